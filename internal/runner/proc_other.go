//go:build !unix

package runner

import "os/exec"

// killProcessGroup keeps the default CommandContext behavior, which kills
// only the shell.
func killProcessGroup(cmd *exec.Cmd) {}
