// Package phasegate holds build metadata for the phasegate binary.
package phasegate

// Version is the released version.
const Version = "0.1.0"
