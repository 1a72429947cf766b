package privexec

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"
)

// ProcessResult is the outcome of a process that ran to completion.
type ProcessResult struct {
	Stdout     string
	Stderr     string
	ExitStatus int
}

// Runner spawns a process with argv and feeds stdin to it. It returns an
// error only when the process could not be run at all; a non-zero exit is
// reported through ProcessResult.
type Runner interface {
	Run(ctx context.Context, argv []string, stdin string) (ProcessResult, error)
}

// ExecRunner is the os/exec Runner.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, argv []string, stdin string) (ProcessResult, error) {
	if len(argv) == 0 {
		return ProcessResult{}, errors.New("empty argv")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdin = strings.NewReader(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Don't let a grandchild holding the pipes keep us waiting after a kill.
	cmd.WaitDelay = time.Second

	err := cmd.Run()
	res := ProcessResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) && ctx.Err() == nil {
			res.ExitStatus = ee.ExitCode()
			return res, nil
		}
		return res, err
	}
	return res, nil
}
