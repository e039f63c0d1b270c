// Package runchecks holds project-wide metadata for the runchecks tool.
package runchecks

// Version is the released version of runchecks.
const Version = "0.1.0"
