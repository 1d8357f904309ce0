// Package types defines the workflow-state and analysis-record documents,
// intercepted events, engine configuration, and standard error values shared
// by the phasegate checks and the backlog engine.
package types
