//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Test groups test targets (all, unit, cli, cover).
type Test mg.Namespace

// All runs every test.
func (Test) All() error {
	return sh.RunV(binGo, "test", "./...")
}

// Unit runs tests of everything except the command-line package.
func (Test) Unit() error {
	pkgs, err := sh.Output(binGo, "list", "./...")
	if err != nil {
		return err
	}
	var unitPkgs []string
	for pkg := range strings.SplitSeq(pkgs, "\n") {
		if pkg != "" && !strings.HasSuffix(pkg, "/internal/cli") && !strings.Contains(pkg, "/cmd/") {
			unitPkgs = append(unitPkgs, pkg)
		}
	}
	if len(unitPkgs) == 0 {
		fmt.Println("No unit test packages found.")
		return nil
	}
	args := append([]string{"test"}, unitPkgs...)
	return sh.RunV(binGo, args...)
}

// CLI runs the command-line tests.
func (Test) CLI() error {
	return sh.RunV(binGo, "test", "-v", "./internal/cli/...")
}

// Cover writes a coverage profile and prints the per-function summary.
func (Test) Cover() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	profile := filepath.Join(binaryDir, "coverage.out")
	if err := sh.RunV(binGo, "test", "-coverprofile="+profile, "./..."); err != nil {
		return err
	}
	return sh.RunV(binGo, "tool", "cover", "-func="+profile)
}

// smokeEvents are piped through the built binary; every one must exit 0.
var smokeEvents = []struct {
	category string
	event    string
}{
	{"pre-task", `{"tool_name":"Task","tool_input":{"subagent_type":"architect","description":"complete phase"}}`},
	{"post-task", `{"tool_name":"Task","tool_input":{"subagent_type":"architect"}}`},
	{"post-bash", `{"tool_name":"Bash","tool_input":{"command":"go test ./..."},"tool_response":{"stdout":"ok","exit_code":0}}`},
	{"post-write", `{"tool_name":"Write","tool_input":{"file_path":".phasegate/state.json"}}`},
	{"pre-task", `not json`},
}

// Smoke builds the binary and pipes sample events through each hook
// category in a scratch project.
func Smoke() error {
	mg.Deps(Build)
	dir, err := os.MkdirTemp("", "phasegate-smoke-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	bin, err := filepath.Abs(filepath.Join(binaryDir, binaryName))
	if err != nil {
		return err
	}
	for _, ev := range smokeEvents {
		cmd := exec.Command(bin, "--project-dir", dir, "hook", ev.category)
		cmd.Stdin = strings.NewReader(ev.event)
		cmd.Stderr = os.Stderr
		out, err := cmd.Output()
		if err != nil {
			return fmt.Errorf("hook %s: %w", ev.category, err)
		}
		fmt.Printf("%-10s ok %s\n", ev.category, strings.TrimSpace(string(out)))
	}
	return nil
}
