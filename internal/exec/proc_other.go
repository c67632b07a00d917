//go:build !unix

package exec

import "os/exec"

func setProcessGroup(cmd *exec.Cmd) {}

func terminate(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}

func forceKill(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}
