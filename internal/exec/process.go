package exec

import (
	"bufio"
	"context"
	stderrors "errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/felixgeelhaar/auditd/internal/errors"
)

// DefaultKillGrace is how long Kill waits after SIGTERM before sending SIGKILL.
const DefaultKillGrace = 5 * time.Second

// Option configures a Process at start
type Option func(*Process)

// WithKillGrace overrides DefaultKillGrace.
func WithKillGrace(d time.Duration) Option {
	return func(p *Process) {
		p.killGrace = d
	}
}

// Process is a running external command whose output is delivered line by line.
//
// Lines from stdout and stderr are merged into one channel in arrival order;
// order within each stream is preserved. Lines is closed once both streams
// hit EOF, and only then is the single Exit value sent on Done.
type Process struct {
	cmd       *exec.Cmd
	started   time.Time
	killGrace time.Duration

	lines  chan Line
	done   chan Exit
	quit   chan struct{}
	reaped chan struct{}

	mu       sync.Mutex
	exited   bool
	killOnce sync.Once
}

// Start launches c. A command that cannot be started at all (missing binary,
// permission denied, bad working directory) is reported here as an EXEC-001
// error and nothing is ever sent on Done.
//
// Cancelling ctx kills the process.
func Start(ctx context.Context, c Command, opts ...Option) (*Process, error) {
	cmd := exec.Command(c.Path, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	setProcessGroup(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.NewLaunchError(c.Path, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, errors.NewLaunchError(c.Path, err)
	}

	if err := cmd.Start(); err != nil {
		return nil, errors.NewLaunchError(c.Path, err)
	}

	p := &Process{
		cmd:       cmd,
		started:   time.Now(),
		killGrace: DefaultKillGrace,
		lines:     make(chan Line),
		done:      make(chan Exit, 1),
		quit:      make(chan struct{}),
		reaped:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}

	var pumps sync.WaitGroup
	pumps.Add(2)
	go p.pump(&pumps, stdout, Stdout)
	go p.pump(&pumps, stderr, Stderr)
	go p.wait(&pumps)
	go p.watch(ctx)

	return p, nil
}

// Lines returns the merged output channel.
func (p *Process) Lines() <-chan Line {
	return p.lines
}

// Done returns a channel that receives exactly one Exit.
func (p *Process) Done() <-chan Exit {
	return p.done
}

// PID returns the operating system process id.
func (p *Process) PID() int {
	return p.cmd.Process.Pid
}

// Kill asks the process (and its process group) to terminate with SIGTERM,
// escalating to SIGKILL after the grace period. Output produced after Kill is
// read and discarded. Kill is safe to call repeatedly and after the process
// has exited.
func (p *Process) Kill() {
	p.killOnce.Do(func() {
		close(p.quit)

		p.mu.Lock()
		exited := p.exited
		p.mu.Unlock()
		if exited {
			return
		}

		_ = terminate(p.cmd)
		go p.escalate()
	})
}

func (p *Process) escalate() {
	timer := time.NewTimer(p.killGrace)
	defer timer.Stop()

	select {
	case <-p.reaped:
	case <-timer.C:
		p.mu.Lock()
		defer p.mu.Unlock()
		if !p.exited {
			_ = forceKill(p.cmd)
		}
	}
}

// pump reads r until EOF. After Kill it keeps draining so the child never
// blocks on a full pipe.
func (p *Process) pump(wg *sync.WaitGroup, r io.Reader, stream Stream) {
	defer wg.Done()

	br := bufio.NewReader(r)
	for {
		s, err := br.ReadString('\n')
		if text := strings.TrimRightFunc(s, unicode.IsSpace); text != "" {
			select {
			case p.lines <- Line{Stream: stream, Text: text}:
			case <-p.quit:
			}
		}
		if err != nil {
			return
		}
	}
}

// wait reaps the process once both pipes are drained, as os/exec requires.
func (p *Process) wait(pumps *sync.WaitGroup) {
	pumps.Wait()
	close(p.lines)

	err := p.cmd.Wait()

	p.mu.Lock()
	p.exited = true
	p.mu.Unlock()
	close(p.reaped)

	exit := Exit{Code: -1, Duration: time.Since(p.started)}
	if p.cmd.ProcessState != nil {
		exit.Code = p.cmd.ProcessState.ExitCode()
	}
	var exitErr *exec.ExitError
	if err != nil && (!stderrors.As(err, &exitErr) || exit.Code < 0) {
		exit.Err = err
	}
	p.done <- exit
}

func (p *Process) watch(ctx context.Context) {
	select {
	case <-ctx.Done():
		p.Kill()
	case <-p.reaped:
	}
}
