// Package reconciler keeps pinned routes bound to the current gateway.
//
// All work funnels through a single worker goroutine: user add/delete
// requests, gateway changes from the monitor and view refreshes. That worker
// is the only writer of the desired state and the only caller of the
// privileged executor, so commands never interleave.
//
// Batches are best effort. Each destination succeeds or fails on its own,
// failures are reported through the Frontend and nothing is retried.
package reconciler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"grimm.is/routepin/internal/clock"
	"grimm.is/routepin/internal/events"
	"grimm.is/routepin/internal/logging"
	"grimm.is/routepin/internal/metrics"
	"grimm.is/routepin/internal/monitor"
	"grimm.is/routepin/internal/privexec"
	"grimm.is/routepin/internal/resolve"
	"grimm.is/routepin/internal/routing"
	"grimm.is/routepin/internal/state"
)

// DefaultQueueSize is the number of operations that may wait for the worker.
const DefaultQueueSize = 64

// Executor runs one privileged routing command.
type Executor interface {
	Run(ctx context.Context, spec routing.CommandSpec) (privexec.Output, error)
}

// Store persists the desired state.
type Store interface {
	Load() state.DesiredState
	Save(state.DesiredState) error
}

// Journal records finished operations.
type Journal interface {
	Append(ctx context.Context, rec state.Record) error
}

// Options configures an Engine.
type Options struct {
	// Interface is the monitored interface, used for startup resolution.
	Interface string
	Store     Store
	Executor  Executor
	Inspector routing.Inspector
	// Resolver turns user-entered hosts into addresses.
	Resolver resolve.Resolver
	// Gateway resolves the interface gateway at Start. Optional.
	Gateway  monitor.Resolver
	Frontend Frontend
	Journal  Journal
	Hub      *events.Hub
	Metrics  *metrics.Registry
	Clock    clock.Clock
	Logger   *logging.Logger

	QueueSize int
}

type job struct {
	op    Operation
	reply chan Result
}

// Engine is the route reconciliation engine.
type Engine struct {
	iface     string
	store     Store
	exec      Executor
	inspector routing.Inspector
	resolver  resolve.Resolver
	gwResolve monitor.Resolver
	frontend  Frontend
	journal   Journal
	hub       *events.Hub
	metrics   *metrics.Registry
	clock     clock.Clock
	logger    *logging.Logger

	queue    chan job
	done     chan struct{}
	stopOnce sync.Once
	startMu  sync.Mutex
	started  bool
	wg       sync.WaitGroup

	mu      sync.RWMutex
	state   state.DesiredState
	gateway string
	view    []string

	// detached is set once routes were removed because the gateway went
	// away; the next real gateway only needs adds. Worker-owned.
	detached bool
	// interrupted is set when a re-anchor stopped on a credential failure.
	// The next add or delete finishes it first. Worker-owned.
	interrupted bool
}

// New creates an Engine and loads the desired state from the store.
func New(opts Options) *Engine {
	if opts.Frontend == nil {
		opts.Frontend = NopFrontend{}
	}
	if opts.Resolver == nil {
		opts.Resolver = resolve.NewSystemResolver()
	}
	if opts.Clock == nil {
		opts.Clock = clock.RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.WithComponent("reconciler")
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}

	e := &Engine{
		iface:     opts.Interface,
		store:     opts.Store,
		exec:      opts.Executor,
		inspector: opts.Inspector,
		resolver:  opts.Resolver,
		gwResolve: opts.Gateway,
		frontend:  opts.Frontend,
		journal:   opts.Journal,
		hub:       opts.Hub,
		metrics:   opts.Metrics,
		clock:     opts.Clock,
		logger:    opts.Logger,
		queue:     make(chan job, opts.QueueSize),
		done:      make(chan struct{}),
		state:     opts.Store.Load(),
	}
	e.metrics.SetPinnedRoutes(len(e.state.Routes))
	return e
}

// Start resolves the current gateway, starts the worker and queues a view
// refresh. When the stored gateway is set and differs from a resolved one, a
// re-anchor is queued as well.
func (e *Engine) Start(ctx context.Context) {
	e.startMu.Lock()
	defer e.startMu.Unlock()
	if e.started {
		return
	}
	e.started = true

	resolved := false
	if e.gwResolve != nil {
		gw, err := e.gwResolve.Gateway(ctx, e.iface)
		if err != nil {
			e.logger.Warn("startup gateway resolution failed", "interface", e.iface, "error", err)
		} else {
			e.setGateway(gw)
			resolved = true
		}
	}

	e.wg.Add(1)
	go e.worker(context.WithoutCancel(ctx))

	st := e.State()
	gw := e.currentGateway()
	switch {
	case resolved && gw != "" && st.Anchored() && st.GatewayString() != gw:
		e.logger.Info("stored gateway differs from current, re-anchoring",
			"stored", st.GatewayString(), "current", gw)
		e.Submit(GatewayChangedOp(gw))
	default:
		e.Submit(RefreshOp())
	}
}

// Stop ends the worker. Queued operations fail with ErrStopped.
func (e *Engine) Stop() {
	e.stopOnce.Do(func() { close(e.done) })
	e.wg.Wait()
}

// Submit queues op and returns a channel that receives its Result. It blocks
// only while the queue is full.
func (e *Engine) Submit(op Operation) <-chan Result {
	reply := make(chan Result, 1)
	select {
	case <-e.done:
		reply <- stopped(op)
		return reply
	default:
	}

	select {
	case e.queue <- job{op: op, reply: reply}:
	case <-e.done:
		reply <- stopped(op)
	}
	return reply
}

func stopped(op Operation) Result {
	return Result{Op: op, Errors: []error{ErrStopped}}
}

// AddRoutes pins the ';'-separated hosts in text and waits for the result.
func (e *Engine) AddRoutes(text string) Result { return <-e.Submit(AddOp(text)) }

// DeleteRoutes unpins the ';'-separated destinations in text.
func (e *Engine) DeleteRoutes(text string) Result { return <-e.Submit(DeleteOp(text)) }

// DeleteRoute unpins exactly one destination, as given.
func (e *Engine) DeleteRoute(dest string) Result { return <-e.Submit(DeleteLiteralOp(dest)) }

// OnGatewayChanged re-anchors pinned routes to gateway.
func (e *Engine) OnGatewayChanged(gateway string) Result {
	return <-e.Submit(GatewayChangedOp(gateway))
}

// RefreshView re-reads the live routes via the current gateway.
func (e *Engine) RefreshView() Result { return <-e.Submit(RefreshOp()) }

// CurrentGateway returns the gateway the engine pins new routes to.
func (e *Engine) CurrentGateway() string { return e.currentGateway() }

// CurrentGatewayDisplay renders the current gateway for humans.
func (e *Engine) CurrentGatewayDisplay() string {
	if gw := e.currentGateway(); gw != "" {
		return gw
	}
	return "None"
}

// CurrentRouteView returns the last rendered live routes via the gateway.
func (e *Engine) CurrentRouteView() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]string(nil), e.view...)
}

// State returns a snapshot of the desired state.
func (e *Engine) State() state.DesiredState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Clone()
}

func (e *Engine) currentGateway() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.gateway
}

func (e *Engine) setGateway(gw string) {
	e.mu.Lock()
	e.gateway = gw
	e.mu.Unlock()
}

func (e *Engine) commit(st state.DesiredState) {
	e.mu.Lock()
	e.state = st
	e.mu.Unlock()
	e.metrics.SetPinnedRoutes(len(st.Routes))
}

func (e *Engine) worker(ctx context.Context) {
	defer e.wg.Done()
	for {
		select {
		case <-e.done:
			e.drain()
			return
		case j := <-e.queue:
			j.reply <- e.process(ctx, j.op)
		}
	}
}

func (e *Engine) drain() {
	for {
		select {
		case j := <-e.queue:
			j.reply <- stopped(j.op)
		default:
			return
		}
	}
}

func (e *Engine) process(ctx context.Context, op Operation) Result {
	if e.interrupted && (op.Kind == OpAdd || op.Kind == OpDelete) {
		e.logger.Info("resuming interrupted re-anchor", "gateway", display(e.currentGateway()))
		e.process(ctx, GatewayChangedOp(e.currentGateway()))
	}

	res := Result{ID: uuid.NewString(), Op: op}
	started := e.clock.Now()
	logger := e.logger.WithFields(map[string]any{"op": res.ID, "kind": string(op.Kind)})
	logger.Debug("operation started", "input", op.String())

	switch op.Kind {
	case OpAdd:
		e.addRoutes(ctx, logger, op, &res)
	case OpDelete:
		e.deleteRoutes(ctx, logger, op, &res)
	case OpGatewayChanged:
		e.reanchor(ctx, logger, op, &res)
	case OpRefresh:
		e.refresh(ctx, &res)
	default:
		res.Errors = append(res.Errors, fmt.Errorf("unknown operation %q", op.Kind))
	}

	e.finish(ctx, logger, res, started)
	return res
}

func (e *Engine) finish(ctx context.Context, logger *logging.Logger, res Result, started time.Time) {
	outcome := res.Outcome()
	kind := string(res.Op.Kind)

	e.metrics.RecordOperation(kind, string(outcome))
	e.hub.EmitOperationDone(events.OperationDoneData{
		ID:        res.ID,
		Kind:      kind,
		Outcome:   string(outcome),
		Succeeded: res.Succeeded,
		Failed:    res.Failed,
	})

	if outcome == OutcomeFailed || outcome == OutcomePartiallyFailed {
		logger.Warn("operation finished", "outcome", outcome,
			"succeeded", len(res.Succeeded), "failed", len(res.Failed), "errors", len(res.Errors))
	} else {
		logger.Debug("operation finished", "outcome", outcome, "succeeded", len(res.Succeeded))
	}

	if e.journal == nil || res.Op.Kind == OpRefresh {
		return
	}
	rec := state.Record{
		ID:         res.ID,
		Kind:       kind,
		Input:      res.Op.Text,
		Gateway:    e.currentGateway(),
		Succeeded:  len(res.Succeeded),
		Failed:     len(res.Failed),
		Outcome:    string(outcome),
		StartedAt:  started,
		FinishedAt: e.clock.Now(),
	}
	for _, err := range res.Errors {
		rec.Errors = append(rec.Errors, err.Error())
	}
	if err := e.journal.Append(ctx, rec); err != nil {
		logger.Warn("journal append failed", "error", err)
	}
}
