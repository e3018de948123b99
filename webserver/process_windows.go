//go:build windows

package webserver

import "os/exec"

func setProcessGroup(cmd *exec.Cmd) {}

// Windows has no SIGTERM; go straight to Kill.
func terminate(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}

func killProcess(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}
