package crab

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/armon/circbuf"
	"github.com/hashicorp/go-hclog"
	"github.com/pkg/errors"
)

const (
	// statusMaxAttempts bounds retries of the status wrapper; the crab
	// backend fails transiently often enough that one shot is not usable.
	statusMaxAttempts = 5

	// statusInitialGap is the wait before the first retry, doubling each
	// attempt.
	statusInitialGap = 2 * time.Second

	// outputBufSize bounds the captured output tail per invocation.
	outputBufSize = 64 * 1024
)

// ErrStatusUnavailable is returned when the status wrapper never produced a
// usable job summary within the attempt budget.
var ErrStatusUnavailable = fmt.Errorf("crab status did not produce a job summary")

// Runner executes the per-task wrapper scripts.
type Runner struct {
	maxAttempts int
	initialGap  time.Duration
	sleep       func(time.Duration)

	// proxy, when set, is exported as X509_USER_PROXY on the child env.
	proxy string

	logger hclog.Logger
}

func NewRunner(logger hclog.Logger, proxy string) *Runner {
	return &Runner{
		maxAttempts: statusMaxAttempts,
		initialGap:  statusInitialGap,
		sleep:       time.Sleep,
		proxy:       proxy,
		logger:      logger.Named("crab"),
	}
}

func (r *Runner) runScript(ctx context.Context, task *Task, script string, args ...string) ([]string, error) {
	buf, err := circbuf.NewBuffer(outputBufSize)
	if err != nil {
		return nil, err
	}

	cmdArgs := append([]string{script}, args...)
	cmd := exec.CommandContext(ctx, "bash", cmdArgs...)
	cmd.Dir = task.WorkDir
	cmd.Stdout = buf
	cmd.Stderr = buf
	cmd.Env = os.Environ()
	if r.proxy != "" {
		cmd.Env = append(cmd.Env, "X509_USER_PROXY="+r.proxy)
	}

	runErr := cmd.Run()
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if runErr != nil {
		return lines, errors.Wrapf(runErr, "%s failed for task %s", script, task.Name)
	}
	return lines, nil
}

// Status runs the task's status wrapper until its output carries a job
// summary, retrying with a doubling gap. The parsed status of the last
// successful attempt is returned; ErrStatusUnavailable after the budget is
// spent.
func (r *Runner) Status(ctx context.Context, task *Task) (*TaskStatus, error) {
	gap := r.initialGap

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		lines, err := r.runScript(ctx, task, statusScript, task.Dir)
		if err == nil && HasStatusLine(lines) {
			status := ParseStatusOutput(lines)
			r.logger.Debug("task status retrieved",
				"task", task.Name, "attempt", attempt, "states", len(status.Fractions))
			return status, nil
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		r.logger.Warn("crab status attempt failed, retrying",
			"task", task.Name, "attempt", attempt, "error", err)
		if attempt < r.maxAttempts {
			r.sleep(gap)
			gap *= 2
		}
	}

	return nil, errors.Wrapf(ErrStatusUnavailable, "task %s", task.Name)
}

// Resubmit reruns the failed jobs of a task via the command wrapper.
func (r *Runner) Resubmit(ctx context.Context, task *Task) error {
	r.logger.Info("resubmitting failed jobs", "task", task.Name)
	_, err := r.runScript(ctx, task, commandScript, "resubmit", task.Dir)
	return err
}
