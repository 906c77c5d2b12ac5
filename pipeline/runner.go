package pipeline

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/HansenHomeAI/v0-spaceport-website-sub000/core"
)

// gracePeriod is how long a stopped process gets to exit after SIGINT
// before it is killed outright.
const gracePeriod = 10 * time.Second

// maxCapturedOutput bounds how much combined tool output is retained for
// error reporting.
const maxCapturedOutput = 64 * 1024

// Command describes one external tool invocation.
type Command struct {
	Bin     string
	Args    []string
	Dir     string
	Env     []string
	Timeout time.Duration

	// LineFunc, when set, receives every line the tool writes to stdout as
	// it appears. Stderr is captured but not streamed.
	LineFunc func(line string)
}

// Runner executes external pipeline tools and captures their output.
type Runner struct {
	logger *core.Logger
}

func NewRunner(logger *core.Logger) *Runner {
	return &Runner{logger: logger}
}

// Run executes cmd and blocks until it exits. Cancelling ctx sends the
// process SIGINT and escalates to SIGKILL after a grace period, so tools
// that checkpoint on interrupt get the chance to do so. The returned
// output is the tail of the combined stdout/stderr stream.
func (r *Runner) Run(ctx context.Context, cmd Command) (string, error) {
	runCtx := ctx
	var cancel context.CancelFunc
	if cmd.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	proc := exec.CommandContext(runCtx, cmd.Bin, cmd.Args...)
	proc.Dir = cmd.Dir
	proc.Env = cmd.Env
	proc.Cancel = func() error {
		return proc.Process.Signal(syscall.SIGINT)
	}
	proc.WaitDelay = gracePeriod

	var captured tailBuffer
	proc.Stderr = &captured

	stdout, err := proc.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("stdout pipe: %w", err)
	}

	r.logger.Debug("running pipeline tool", zap.String("bin", cmd.Bin), zap.Strings("args", cmd.Args))

	if err = proc.Start(); err != nil {
		return "", fmt.Errorf("start %s: %w", cmd.Bin, err)
	}

	tee := io.TeeReader(stdout, &captured)
	scanner := bufio.NewScanner(tee)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if cmd.LineFunc != nil {
			cmd.LineFunc(scanner.Text())
		}
	}

	var scanErr error
	if err = scanner.Err(); err != nil {
		scanErr = fmt.Errorf("read %s output: %w", cmd.Bin, err)
		// Keep draining so the child is not blocked on a full pipe; the
		// tee still lands the remainder in the captured tail.
		_, _ = io.Copy(io.Discard, tee)
	}

	waitErr := proc.Wait()
	output := captured.String()

	if waitErr != nil {
		if ctxErr := runCtx.Err(); ctxErr != nil {
			return output, fmt.Errorf("%s: %w", cmd.Bin, ctxErr)
		}

		return output, fmt.Errorf("%s: %w: %s", cmd.Bin, waitErr, lastLines(output, 5))
	}

	if scanErr != nil {
		return output, scanErr
	}

	return output, nil
}

// tailBuffer keeps only the most recent maxCapturedOutput bytes written
// to it. Stderr writes arrive from the copier goroutine exec spawns
// while stdout writes arrive from the scanning goroutine, so access is
// mutex-guarded.
type tailBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n, err := t.buf.Write(p)
	if t.buf.Len() > maxCapturedOutput {
		trimmed := t.buf.Bytes()[t.buf.Len()-maxCapturedOutput:]
		rest := make([]byte, len(trimmed))
		copy(rest, trimmed)
		t.buf.Reset()
		t.buf.Write(rest)
	}

	return n, err
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.buf.String()
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}

	return strings.Join(lines, "\n")
}
