// Command phasegate enforces phase ordering, test iteration limits, and
// policy gates for an automated development workflow.
package main

import "github.com/mesh-intelligence/phasegate/internal/cli"

func main() {
	cli.Execute()
}
