// Package orchestrator is the composition root of a chat client. It owns the
// session registry and the message log and serializes every mutation on one
// event loop; backend calls run on their own goroutines and resume on the loop.
package orchestrator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"chatsync/internal/history"
	"chatsync/internal/workflow"
)

var (
	// ErrStopped is returned by operations issued after the loop has exited.
	ErrStopped = errors.New("orchestrator stopped")

	errAlreadyRunning = errors.New("orchestrator already running")
)

// Discovery selects how the initial session is found
type Discovery string

const (
	// DiscoverRemote activates the first session listed by the backend and
	// fabricates a local one only when the listing is empty or fails.
	DiscoverRemote Discovery = "remote"
	// DiscoverLocal always starts on a fresh local session; listed sessions
	// are merged for selection.
	DiscoverLocal Discovery = "local"
)

// Options configures an Orchestrator
type Options struct {
	UserID    string
	Discovery Discovery
	Logger    *zap.Logger
}

// Notice is a recoverable failure to show once to the user
type Notice struct {
	Op        workflow.Op
	SessionID string
	Err       error
	At        time.Time
}

func (n Notice) String() string {
	return (&workflow.GatewayError{Op: n.Op, SessionID: n.SessionID, Err: n.Err}).Error()
}

// Orchestrator wires user actions to the history and send workflows.
type Orchestrator struct {
	gateway  workflow.Gateway
	registry *history.Registry
	log      *history.Log
	sync     *workflow.HistorySync
	sender   *workflow.SendWorkflow
	opts     Options
	logger   *zap.Logger

	events   chan func()
	stopped  chan struct{}
	running  atomic.Bool
	runCtx   context.Context
	inflight sync.WaitGroup

	// pending counts in-flight sends per session and loading holds the
	// generation of the history load still awaited; loop only.
	pending map[string]int
	loading map[string]uint64

	notices chan Notice
	changes chan struct{}
}

// New creates an orchestrator over the given gateway. Run must be started
// before any other method is used.
func New(gw workflow.Gateway, opts Options) *Orchestrator {
	if opts.Discovery == "" {
		opts.Discovery = DiscoverRemote
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	registry := history.NewRegistry()
	log := history.NewLog()

	return &Orchestrator{
		gateway:  gw,
		registry: registry,
		log:      log,
		sync:     workflow.NewHistorySync(gw, registry, log),
		sender:   workflow.NewSendWorkflow(gw, registry, log),
		opts:     opts,
		logger:   logger.Named("orchestrator"),
		events:   make(chan func()),
		stopped:  make(chan struct{}),
		pending:  make(map[string]int),
		loading:  make(map[string]uint64),
		notices:  make(chan Notice, 1),
		changes:  make(chan struct{}, 1),
	}
}

// Run processes events until ctx is cancelled, then waits for in-flight
// backend calls to return. It can be called only once.
func (o *Orchestrator) Run(ctx context.Context) error {
	if !o.running.CompareAndSwap(false, true) {
		return errAlreadyRunning
	}
	o.runCtx = ctx

	defer func() {
		close(o.stopped)
		o.inflight.Wait()
		o.logger.Debug("Event loop stopped")
	}()

	o.logger.Debug("Event loop started", zap.String("discovery", string(o.opts.Discovery)))
	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-o.events:
			fn()
		}
	}
}

// Notices delivers the most recent recoverable failure. Older unread notices
// are replaced.
func (o *Orchestrator) Notices() <-chan Notice {
	return o.notices
}

// Changes signals that the visible state may have changed. Signals coalesce.
func (o *Orchestrator) Changes() <-chan struct{} {
	return o.changes
}

// do runs fn on the loop and waits for it to finish.
func (o *Orchestrator) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	select {
	case o.events <- func() { defer close(done); fn() }:
	case <-o.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	<-done
	return nil
}

// post queues a continuation from a backend goroutine.
func (o *Orchestrator) post(fn func()) {
	select {
	case o.events <- fn:
	case <-o.stopped:
	}
}

// spawn runs a workflow call off the loop and resumes it on the loop.
// Must be called from the loop.
func (o *Orchestrator) spawn(call workflow.Call, onResume func(error)) {
	o.inflight.Add(1)
	ctx := o.runCtx
	go func() {
		defer o.inflight.Done()
		resume := call(ctx)
		o.post(func() { onResume(resume()) })
	}()
}

func (o *Orchestrator) changed() {
	select {
	case o.changes <- struct{}{}:
	default:
	}
}

func (o *Orchestrator) notify(op workflow.Op, sessionID string, err error) {
	n := Notice{Op: op, SessionID: sessionID, Err: err, At: time.Now()}
	select {
	case o.notices <- n:
		return
	default:
	}
	// Replace the unread notice with the newer one.
	select {
	case <-o.notices:
	default:
	}
	select {
	case o.notices <- n:
	default:
	}
}

// settle handles the outcome of a resumed workflow.
func (o *Orchestrator) settle(err error) {
	var ge *workflow.GatewayError
	switch {
	case err == nil:
	case errors.Is(err, workflow.ErrStaleResult):
		o.logger.Debug("Discarded stale result")
		return
	case errors.As(err, &ge):
		o.logger.Warn("Gateway call failed",
			zap.String("op", string(ge.Op)),
			zap.String("session", ge.SessionID),
			zap.Error(ge.Err))
		o.notify(ge.Op, ge.SessionID, ge.Err)
	default:
		o.logger.Error("Workflow invariant violated", zap.Error(err))
	}
	o.changed()
}
