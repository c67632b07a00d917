package audit

import (
	"context"
	"time"

	"github.com/felixgeelhaar/auditd/internal/exec"
)

// Handle is a launched audit task as seen by the coordinator.
//
// Lines must be closed before the single Exit is delivered on Done, and Kill
// must be safe to call at any time, any number of times.
type Handle interface {
	Lines() <-chan exec.Line
	Done() <-chan exec.Exit
	Kill()
	PID() int
}

// Launcher starts audit tasks. Errors returned from Launch mean the task never
// ran.
type Launcher interface {
	Launch(ctx context.Context, cmd exec.Command) (Handle, error)
}

// ProcessLauncher runs tasks as child processes.
type ProcessLauncher struct {
	// KillGrace is the SIGTERM to SIGKILL delay; zero means exec.DefaultKillGrace
	KillGrace time.Duration
}

// Launch implements Launcher.
func (l ProcessLauncher) Launch(ctx context.Context, cmd exec.Command) (Handle, error) {
	var opts []exec.Option
	if l.KillGrace > 0 {
		opts = append(opts, exec.WithKillGrace(l.KillGrace))
	}

	p, err := exec.Start(ctx, cmd, opts...)
	if err != nil {
		return nil, err
	}
	return p, nil
}
