package health

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// CommandChecker verifies the audit task can be launched: the interpreter is
// on PATH, the workspace exists and the script is in it.
type CommandChecker struct {
	command   string
	script    string
	workspace string
}

// NewCommandChecker creates a checker for "command script" run in workspace.
// script and workspace may be empty.
func NewCommandChecker(command, script, workspace string) *CommandChecker {
	return &CommandChecker{command: command, script: script, workspace: workspace}
}

// Name returns the name of this health check.
func (c *CommandChecker) Name() string {
	return "audit-command"
}

// Check runs "<command> --version" when the interpreter is found, which also
// catches binaries that exist but can't execute.
func (c *CommandChecker) Check(ctx context.Context) *Result {
	path, err := exec.LookPath(c.command)
	if err != nil {
		return Unhealthy(c.command+" not found in PATH").
			WithDetail("error", err.Error())
	}

	if c.workspace != "" {
		if info, err := os.Stat(c.workspace); err != nil || !info.IsDir() {
			return Unhealthy("workspace directory missing").
				WithDetail("workspace", c.workspace)
		}
	}

	if c.script != "" {
		script := c.script
		if !filepath.IsAbs(script) && c.workspace != "" {
			script = filepath.Join(c.workspace, script)
		}
		if _, err := os.Stat(script); err != nil {
			return Unhealthy("audit script missing").
				WithDetail("script", script)
		}
	}

	out, err := exec.CommandContext(ctx, path, "--version").Output()
	if err != nil {
		return Degraded(c.command+" found but --version failed").
			WithDetail("path", path).
			WithDetail("error", err.Error())
	}

	return Healthy("audit command available").
		WithDetail("path", path).
		WithDetail("version", strings.TrimSpace(string(out)))
}
