// Package engine implements the runtime from spec.md section 4.7: a
// cooperative single-loop scheduler that interleaves user commands
// with two internal pollers across every connected device, and the
// pure store projection's sole write path.
package engine

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/tomrford/scopelink/devicemgr"
	"github.com/tomrford/scopelink/store"
)

type pollKind int

const (
	pollKindState pollKind = iota
	pollKindFrame
)

// Config tunes the engine; zero values fall back to sane defaults in
// New.
type Config struct {
	// CrcRetryAttempts is the total attempt budget (first try plus
	// retries) for PollState and user commands; GET_SNAPSHOT_DATA has
	// its own budget inside the snapshot downloader.
	CrcRetryAttempts int
	// FrameTimeoutMs bounds how stale a queued PollFrame tick may be
	// before it is dropped rather than dispatched.
	FrameTimeoutMs int
	// DisconnectThreshold is how many consecutive Timeout failures on
	// one device force a disconnect.
	DisconnectThreshold int
	Logger              *log.Logger
}

func (c Config) withDefaults() Config {
	if c.CrcRetryAttempts <= 0 {
		c.CrcRetryAttempts = 3
	}
	if c.FrameTimeoutMs <= 0 {
		c.FrameTimeoutMs = 500
	}
	if c.DisconnectThreshold <= 0 {
		c.DisconnectThreshold = 3
	}
	if c.Logger == nil {
		c.Logger = log.Default()
	}
	return c
}

// Engine is the runtime. One Engine owns one devicemgr.Manager and is
// driven by a single goroutine running Run.
type Engine struct {
	mgr *devicemgr.Manager
	cfg Config

	userCommands chan command
	stateSlot    *pollSlot
	frameSlot    *pollSlot
	turn         int

	events chan store.Event

	mu                  sync.Mutex
	snapshots           map[string]store.DeviceSnapshot
	consecutiveTimeouts map[string]int
}

func New(mgr *devicemgr.Manager, cfg Config) *Engine {
	return &Engine{
		mgr:                 mgr,
		cfg:                 cfg.withDefaults(),
		userCommands:        make(chan command, userCommandCap),
		stateSlot:           newPollSlot(),
		frameSlot:           newPollSlot(),
		events:              make(chan store.Event, 256),
		snapshots:           make(map[string]store.DeviceSnapshot),
		consecutiveTimeouts: make(map[string]int),
	}
}

// Events is the event stream the store projection consumes. It
// buffers 256 events; once the buffer is full, emitting an event
// blocks the engine until the consumer reads.
func (e *Engine) Events() <-chan store.Event { return e.events }

// Submit enqueues cmd on user_commands, rejecting it with ErrQueueFull
// if the bounded queue is already at capacity.
func (e *Engine) Submit(cmd command) error {
	select {
	case e.userCommands <- cmd:
		return nil
	default:
		return ErrQueueFull{}
	}
}

// Snapshot returns the engine's current view of one device, mirroring
// what store.Apply has produced from every event emitted so far.
func (e *Engine) Snapshot(path string) (store.DeviceSnapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.snapshots[path]
	return s, ok
}

func (e *Engine) connectedSnapshots() map[string]store.DeviceSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]store.DeviceSnapshot, len(e.snapshots))
	for p, s := range e.snapshots {
		out[p] = s
	}
	return out
}

func (e *Engine) controlMode() store.ControlMode {
	e.mu.Lock()
	snaps := make([]store.DeviceSnapshot, 0, len(e.snapshots))
	for _, s := range e.snapshots {
		if s.Status == store.Connected {
			snaps = append(snaps, s)
		}
	}
	e.mu.Unlock()
	return store.DeriveControlMode(snaps)
}

// StartPollers launches the state and frame tickers. They run until
// ctx is cancelled.
func (e *Engine) StartPollers(ctx context.Context, stateInterval, frameInterval time.Duration) {
	go e.tick(ctx, stateInterval, e.stateSlot)
	go e.tick(ctx, frameInterval, e.frameSlot)
}

func (e *Engine) tick(ctx context.Context, interval time.Duration, slot *pollSlot) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			slot.Set(pollToken{queuedAt: now})
		}
	}
}

// Run is the main loop of spec.md section 4.7.2. It blocks until ctx
// is cancelled, at which point it disconnects every session and
// returns.
func (e *Engine) Run(ctx context.Context) {
	defer e.shutdown()
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-e.userCommands:
			e.dispatchCommand(cmd)
			continue
		default:
		}

		if tok, kind, ok := e.takeNextPoll(); ok {
			e.dispatchPoll(kind, tok)
			continue
		}

		select {
		case <-ctx.Done():
			return
		case cmd := <-e.userCommands:
			e.dispatchCommand(cmd)
		case <-e.stateSlot.notify:
			if tok, ok := e.stateSlot.Take(); ok {
				e.dispatchPoll(pollKindState, tok)
			}
		case <-e.frameSlot.notify:
			if tok, ok := e.frameSlot.Take(); ok {
				e.dispatchPoll(pollKindFrame, tok)
			}
		}
	}
}

// takeNextPoll implements the persisted round-robin turn: whichever
// slot is tried first alternates on every call, so a steady stream of
// user commands interleaved with both poll kinds can never starve one
// of them.
func (e *Engine) takeNextPoll() (pollToken, pollKind, bool) {
	order := [2]pollKind{pollKindState, pollKindFrame}
	if e.turn != 0 {
		order = [2]pollKind{pollKindFrame, pollKindState}
	}
	for _, k := range order {
		slot := e.slotFor(k)
		if tok, ok := slot.Take(); ok {
			e.turn = 1 - e.turn
			return tok, k, true
		}
	}
	return pollToken{}, 0, false
}

func (e *Engine) slotFor(k pollKind) *pollSlot {
	if k == pollKindState {
		return e.stateSlot
	}
	return e.frameSlot
}

func (e *Engine) shutdown() {
	e.mgr.DisconnectAll()
}

// applyAndEmit runs the pure reducer over the engine's mirrored
// snapshot for path (if the event is device-scoped) and forwards the
// event downstream. FrameTick carries no path and bypasses the
// reducer entirely, per spec.md section 4.7.8.
func (e *Engine) applyAndEmit(path string, ev store.Event) {
	if path != "" {
		e.mu.Lock()
		cur, ok := e.snapshots[path]
		if !ok {
			cur = store.NewDeviceSnapshot(path)
		}
		e.snapshots[path] = store.Apply(cur, ev)
		e.mu.Unlock()
	}
	e.events <- ev
}

func (e *Engine) emitTick(ev store.Event) {
	e.events <- ev
}

// recordOutcome updates the per-device consecutive-timeout counter
// and disconnects the device once it crosses the configured
// threshold, per spec.md section 4.7.6.
func (e *Engine) recordOutcome(path string, err error) {
	e.mu.Lock()
	if err == nil || !isTimeout(err) {
		e.consecutiveTimeouts[path] = 0
		e.mu.Unlock()
		return
	}
	e.consecutiveTimeouts[path]++
	n := e.consecutiveTimeouts[path]
	e.mu.Unlock()
	if n >= e.cfg.DisconnectThreshold {
		e.disconnectDevice(path)
	}
}

func (e *Engine) disconnectDevice(path string) {
	e.mgr.Disconnect(path)
	e.mu.Lock()
	delete(e.consecutiveTimeouts, path)
	e.mu.Unlock()
	e.applyAndEmit(path, store.DeviceDisconnected{Path: path})
	e.cfg.Logger.Printf("scopelink: %s disconnected after repeated timeouts", path)
}
