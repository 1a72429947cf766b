// Package privexec runs routing mutations under sudo.
//
// The executor owns the cached sudo password. The secret is only ever
// written to the child's stdin (sudo -S); it never appears in argv, the
// environment or the logs. Commands are serialized by an internal mutex.
package privexec

import (
	"context"
	"sync"
	"time"

	"grimm.is/routepin/internal/logging"
	"grimm.is/routepin/internal/metrics"
	"grimm.is/routepin/internal/routing"
)

// DefaultTimeout bounds a single privileged command.
const DefaultTimeout = 30 * time.Second

// Prompter asks the user for the elevation credential. ok is false when the
// user cancelled.
type Prompter interface {
	PromptCredential() (secret string, ok bool)
}

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func() (string, bool)

// PromptCredential implements Prompter.
func (f PrompterFunc) PromptCredential() (string, bool) { return f() }

// Output is what a successful command printed.
type Output struct {
	Stdout string
	Stderr string
}

// Options configures an Executor.
type Options struct {
	Runner   Runner
	Prompter Prompter
	Timeout  time.Duration
	// SudoPath overrides the elevation binary; defaults to "sudo".
	SudoPath string
	// Elevate forces elevation on or off. Nil means "elevate unless root".
	Elevate *bool
	// GOOS selects the route command dialect; defaults to the running OS.
	GOOS    string
	Metrics *metrics.Registry
	Logger  *logging.Logger
}

// Executor runs CommandSpecs one at a time with a validated credential.
type Executor struct {
	mu         sync.Mutex
	runner     Runner
	prompter   Prompter
	timeout    time.Duration
	sudo       string
	elevate    bool
	goos       string
	credential string
	metrics    *metrics.Registry
	logger     *logging.Logger
}

// New creates an Executor.
func New(opts Options) *Executor {
	e := &Executor{
		runner:   opts.Runner,
		prompter: opts.Prompter,
		timeout:  opts.Timeout,
		sudo:     opts.SudoPath,
		goos:     opts.GOOS,
		metrics:  opts.Metrics,
		logger:   opts.Logger,
	}
	if e.runner == nil {
		e.runner = ExecRunner{}
	}
	if e.timeout <= 0 {
		e.timeout = DefaultTimeout
	}
	if e.sudo == "" {
		e.sudo = "sudo"
	}
	if e.logger == nil {
		e.logger = logging.WithComponent("privexec")
	}
	if opts.Elevate != nil {
		e.elevate = *opts.Elevate
	} else {
		e.elevate = !runningAsRoot()
	}
	return e
}

// SetPrompter replaces the credential prompter. Front-ends that are built
// after the engine use this to attach themselves.
func (e *Executor) SetPrompter(p Prompter) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.prompter = p
}

// HasCredential reports whether a secret is cached.
func (e *Executor) HasCredential() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.credential != ""
}

// Forget drops the cached secret.
func (e *Executor) Forget() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.credential = ""
}

// EnsureCredential makes sure a validated credential is cached.
func (e *Executor) EnsureCredential(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ensureCredential(ctx)
}

// ensureCredential validates the cached secret, prompting when none is
// cached. A failed validation clears the cache and allows exactly one
// re-prompt; a second failure is final for this call. Caller holds e.mu.
func (e *Executor) ensureCredential(ctx context.Context) error {
	if !e.elevate {
		return nil
	}

	for attempt := 1; ; attempt++ {
		if e.credential == "" {
			secret, err := e.prompt()
			if err != nil {
				return err
			}
			e.credential = secret
		}

		res, err := e.exec(ctx, []string{e.sudo, "-S", "-p", "", "-v"}, e.credential+"\n")
		if err == context.DeadlineExceeded {
			// Timeouts keep the cached secret.
			return &CommandError{Command: e.sudo + " -v", ExitStatus: -1, Timeout: true, Err: err}
		}
		if err != nil {
			e.credential = ""
			return &CredentialError{Reason: "could not run " + e.sudo, Err: err}
		}
		if res.ExitStatus == 0 {
			return nil
		}

		e.credential = ""
		e.logger.Warn("credential validation failed", "attempt", attempt)
		if attempt >= 2 {
			return &CredentialError{Reason: "validation failed", Stderr: res.Stderr}
		}
	}
}

func (e *Executor) prompt() (string, error) {
	if e.prompter == nil {
		return "", &CredentialError{Reason: "no prompter available"}
	}
	e.metrics.IncCredentialPrompt()
	secret, ok := e.prompter.PromptCredential()
	if !ok || secret == "" {
		return "", &CredentialError{Reason: "credential entry cancelled"}
	}
	return secret, nil
}

// Run executes spec under elevation. A failing command does not invalidate
// the cached credential.
func (e *Executor) Run(ctx context.Context, spec routing.CommandSpec) (Output, error) {
	if err := spec.Validate(); err != nil {
		return Output{}, &CommandError{Command: spec.String(), ExitStatus: -1, Err: err}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.ensureCredential(ctx); err != nil {
		return Output{}, err
	}

	argv := spec.Argv()
	if e.goos != "" {
		argv = spec.ArgvFor(e.goos)
	}
	stdin := ""
	if e.elevate {
		argv = append([]string{e.sudo, "-S", "-p", "", "--"}, argv...)
		stdin = e.credential + "\n"
	}

	start := time.Now()
	res, err := e.exec(ctx, argv, stdin)
	cmdErr := classify(spec, res, err)
	e.metrics.ObserveCommand(string(spec.Kind), cmdErr, time.Since(start))

	if cmdErr != nil {
		e.logger.Warn("route command failed", "command", spec.String(), "error", cmdErr)
		return Output{}, cmdErr
	}
	e.logger.Info("route command succeeded", "command", spec.String())
	return Output{Stdout: res.Stdout, Stderr: res.Stderr}, nil
}

// exec runs argv under the timeout ceiling. A deadline hit is reported as
// context.DeadlineExceeded regardless of how the runner surfaced it.
func (e *Executor) exec(ctx context.Context, argv []string, stdin string) (ProcessResult, error) {
	cctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	res, err := e.runner.Run(cctx, argv, stdin)
	if cctx.Err() == context.DeadlineExceeded {
		return res, context.DeadlineExceeded
	}
	return res, err
}

func classify(spec routing.CommandSpec, res ProcessResult, err error) error {
	switch {
	case err == context.DeadlineExceeded:
		return &CommandError{Command: spec.String(), ExitStatus: -1, Timeout: true, Err: err}
	case err != nil:
		return &CommandError{Command: spec.String(), ExitStatus: -1, Err: err}
	case res.ExitStatus != 0:
		return &CommandError{Command: spec.String(), ExitStatus: res.ExitStatus, Stderr: res.Stderr}
	}
	return nil
}
