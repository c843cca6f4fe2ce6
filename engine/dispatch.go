package engine

import (
	"context"
	"sync"
	"time"

	"github.com/tomrford/scopelink/session"
	"github.com/tomrford/scopelink/snapshot"
	"github.com/tomrford/scopelink/store"
	"github.com/tomrford/scopelink/wire"
)

// NotConnectedError reports a command that targeted a path with no
// open session.
type NotConnectedError struct{ Path string }

func (e *NotConnectedError) Error() string { return "engine: " + e.Path + " is not connected" }

func errNotConnected(path string) error { return &NotConnectedError{Path: path} }

func (e *Engine) dispatchCommand(cmd command) {
	switch c := cmd.(type) {
	case ConnectCmd:
		e.dispatchConnect(c)
	case DisconnectCmd:
		e.dispatchDisconnect(c)
	case DownloadSnapshotCmd:
		e.dispatchDownload(c)
	case SetStateCmd:
		e.dispatchMutating(store.CmdSetState, c.State, c.Targets, c.Result, func(path string, s *session.Session) (store.Event, error) {
			if _, err := s.SetState(c.State); err != nil {
				return nil, err
			}
			st, err := s.GetState()
			if err != nil {
				return nil, err
			}
			return store.StateUpdated{Path: path, State: st}, nil
		})
	case TriggerCmd:
		e.dispatchMutating(store.CmdTrigger, 0, c.Targets, c.Result, func(path string, s *session.Session) (store.Event, error) {
			return nil, s.Trigger()
		})
	case SetTimingCmd:
		e.dispatchMutating(store.CmdSetTiming, 0, c.Targets, c.Result, func(path string, s *session.Session) (store.Event, error) {
			if _, err := s.SetTiming(wire.TimingConfig{Divider: c.Divider, PreTrig: c.PreTrig}); err != nil {
				return nil, err
			}
			t, err := s.GetTiming()
			if err != nil {
				return nil, err
			}
			return store.TimingUpdated{Path: path, Timing: t}, nil
		})
	case SetChannelMapCmd:
		e.dispatchMutating(store.CmdSetChannelMap, 0, c.Targets, c.Result, func(path string, s *session.Session) (store.Event, error) {
			if _, _, err := s.SetChannelMap(c.ChannelIdx, c.CatalogIdx); err != nil {
				return nil, err
			}
			cm, err := s.GetChannelMap()
			if err != nil {
				return nil, err
			}
			return store.ChannelMapUpdated{Path: path, ChannelMap: cm}, nil
		})
	case SetTriggerCmd:
		e.dispatchMutating(store.CmdSetTrigger, 0, c.Targets, c.Result, func(path string, s *session.Session) (store.Event, error) {
			cfg := wire.TriggerConfig{Threshold: c.Threshold, Channel: c.Channel, Mode: c.Mode}
			if _, err := s.SetTrigger(cfg); err != nil {
				return nil, err
			}
			t, err := s.GetTrigger()
			if err != nil {
				return nil, err
			}
			return store.TriggerUpdated{Path: path, Trigger: t}, nil
		})
	case SetRtBufferCmd:
		e.dispatchMutating(store.CmdSetRtBuffer, 0, c.Targets, c.Result, func(path string, s *session.Session) (store.Event, error) {
			if _, err := s.SetRtBuffer(c.Index, c.Value); err != nil {
				return nil, err
			}
			v, err := s.GetRtBuffer(c.Index)
			if err != nil {
				return nil, err
			}
			return store.RtBufferUpdated{Path: path, Index: c.Index, Value: v}, nil
		})
	}
}

// dispatchMutating runs the command guard, then executes perDevice
// against every eligible target with unbounded concurrency, per
// spec.md section 4.7.4. Every Set* operation issues its matching GET
// inside perDevice and builds the event from that GET's result, not
// the caller's intent.
func (e *Engine) dispatchMutating(kind store.CommandKind, state wire.DeviceState, targets []string, result chan<- store.Decision, perDevice func(path string, s *session.Session) (store.Event, error)) {
	decision := store.Guard(e.controlMode(), kind, state, targets, e.connectedSnapshots())
	if result != nil {
		result <- decision
	}
	if !decision.Allowed {
		return
	}

	var wg sync.WaitGroup
	for _, path := range decision.Targets {
		path := path
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess, ok := e.mgr.Get(path)
			if !ok {
				return
			}
			ev, err := withRetry(e.cfg.CrcRetryAttempts, func() (store.Event, error) {
				return perDevice(path, sess)
			})
			e.recordOutcome(path, err)
			if err != nil {
				e.applyAndEmit(path, store.DeviceErrorEvent{Path: path, Kind: errKind(err), Err: err})
				return
			}
			if ev != nil {
				e.applyAndEmit(path, ev)
			}
		}()
	}
	wg.Wait()
}

func (e *Engine) dispatchConnect(cmd ConnectCmd) {
	cd, err := e.mgr.Connect(cmd.Path, cmd.Config)
	if err != nil {
		if cmd.Result != nil {
			cmd.Result <- err
		}
		return
	}
	info := cd.Session.Info()
	e.applyAndEmit(cmd.Path, store.DeviceConnected{Path: cmd.Path, Info: info})
	e.primeSession(cmd.Path, cd.Session, info)
	if cmd.Result != nil {
		cmd.Result <- nil
	}
}

func (e *Engine) dispatchDisconnect(cmd DisconnectCmd) {
	e.mgr.Disconnect(cmd.Path)
	e.mu.Lock()
	delete(e.consecutiveTimeouts, cmd.Path)
	e.mu.Unlock()
	e.applyAndEmit(cmd.Path, store.DeviceDisconnected{Path: cmd.Path})
	if cmd.Result != nil {
		cmd.Result <- struct{}{}
	}
}

// catalogPageSize derives the largest page size whose response still
// fits in one frame: a 3-byte header (total, start, count) plus
// count*nameLen bytes of names, bounded by wire.MaxPayload.
func catalogPageSize(nameLen uint8) uint8 {
	if nameLen == 0 {
		return 1
	}
	max := (wire.MaxPayload - 3) / int(nameLen)
	if max < 1 {
		max = 1
	}
	if max > 255 {
		max = 255
	}
	return uint8(max)
}

// primeSession runs the connect-priming sequence from spec.md section
// 4.7.3. A GET_STATE failure is recorded as a DeviceError and ends
// priming. Every later step is best-effort: a failure is recorded as a
// DeviceError and priming continues with the next field rather than
// aborting the whole connect.
func (e *Engine) primeSession(path string, s *session.Session, info wire.DeviceInfo) {
	st, err := s.GetState()
	if err != nil {
		e.applyAndEmit(path, store.DeviceErrorEvent{Path: path, Kind: errKind(err), Err: err})
		return
	}
	e.applyAndEmit(path, store.StateUpdated{Path: path, State: st})
	if st == wire.Misconfigured {
		return
	}

	if timing, err := s.GetTiming(); err == nil {
		e.applyAndEmit(path, store.TimingUpdated{Path: path, Timing: timing})
	} else {
		e.applyAndEmit(path, store.DeviceErrorEvent{Path: path, Kind: errKind(err), Err: err})
	}

	if trig, err := s.GetTrigger(); err == nil {
		e.applyAndEmit(path, store.TriggerUpdated{Path: path, Trigger: trig})
	} else {
		e.applyAndEmit(path, store.DeviceErrorEvent{Path: path, Kind: errKind(err), Err: err})
	}

	if cm, err := s.GetChannelMap(); err == nil {
		e.applyAndEmit(path, store.ChannelMapUpdated{Path: path, ChannelMap: cm})
	} else {
		e.applyAndEmit(path, store.DeviceErrorEvent{Path: path, Kind: errKind(err), Err: err})
	}

	pageSize := catalogPageSize(info.NameLen)
	e.paginateCatalog(path, pageSize, s.GetVarListPage, func(p wire.CatalogPage) store.Event {
		return store.VarListPageUpdated{Path: path, Page: p}
	})
	e.paginateCatalog(path, pageSize, s.GetRtLabelsPage, func(p wire.CatalogPage) store.Event {
		return store.RtLabelsPageUpdated{Path: path, Page: p}
	})

	for i := uint8(0); i < info.RtCount; i++ {
		if v, err := s.GetRtBuffer(i); err == nil {
			e.applyAndEmit(path, store.RtBufferUpdated{Path: path, Index: i, Value: v})
		} else {
			e.applyAndEmit(path, store.DeviceErrorEvent{Path: path, Kind: errKind(err), Err: err})
		}
	}
}

// paginateCatalog walks a paginated name list until a page returns no
// new entries or fails to advance the start index, per spec.md
// section 4.7.3.
func (e *Engine) paginateCatalog(path string, pageSize uint8, fetch func(start, max uint8) (wire.CatalogPage, error), toEvent func(wire.CatalogPage) store.Event) {
	start := uint8(0)
	for {
		page, err := fetch(start, pageSize)
		if err != nil {
			e.applyAndEmit(path, store.DeviceErrorEvent{Path: path, Kind: errKind(err), Err: err})
			return
		}
		e.applyAndEmit(path, toEvent(page))
		if len(page.Entries) == 0 {
			return
		}
		next := page.StartIdx + uint8(len(page.Entries))
		if next == start || int(next) >= int(page.TotalCount) {
			return
		}
		start = next
	}
}

func (e *Engine) dispatchDownload(cmd DownloadSnapshotCmd) {
	sess, ok := e.mgr.Get(cmd.Path)
	if !ok {
		if cmd.Result != nil {
			cmd.Result <- DownloadResult{Err: errNotConnected(cmd.Path)}
		}
		return
	}

	header, err := sess.GetSnapshotHeader()
	if err != nil {
		e.recordOutcome(cmd.Path, err)
		e.applyAndEmit(cmd.Path, store.DeviceErrorEvent{Path: cmd.Path, Kind: errKind(err), Err: err})
		if cmd.Result != nil {
			cmd.Result <- DownloadResult{Err: err}
		}
		return
	}
	e.applyAndEmit(cmd.Path, store.SnapshotHeaderUpdated{Path: cmd.Path, Header: header})

	info := sess.Info()
	dl := snapshot.New(sessionGetter{sess})
	var all []wire.FrameSample
	downloadErr := dl.Download(context.Background(), int(info.BufferSize), int(info.NumChannels), func(start int, samples []wire.FrameSample) {
		all = append(all, samples...)
		e.emitTick(store.SnapshotChunk{Path: cmd.Path, Start: start, Samples: samples})
	})

	if cmd.Result != nil {
		cmd.Result <- DownloadResult{Header: header, Samples: all, Err: downloadErr}
	}
}

// sessionGetter adapts *session.Session to snapshot.Getter.
type sessionGetter struct{ s *session.Session }

func (g sessionGetter) GetSnapshotData(start uint16, count uint8) ([]wire.FrameSample, error) {
	return g.s.GetSnapshotData(start, count)
}

func (e *Engine) dispatchPoll(kind pollKind, tok pollToken) {
	switch kind {
	case pollKindState:
		e.dispatchPollState()
	case pollKindFrame:
		e.dispatchPollFrame(tok)
	}
}

func (e *Engine) dispatchPollState() {
	devices := e.mgr.Active()
	var wg sync.WaitGroup
	for _, d := range devices {
		d := d
		wg.Add(1)
		go func() {
			defer wg.Done()
			st, err := withRetry(e.cfg.CrcRetryAttempts, func() (wire.DeviceState, error) {
				return d.Session.GetState()
			})
			e.recordOutcome(d.Path, err)
			if err != nil {
				e.applyAndEmit(d.Path, store.DeviceErrorEvent{Path: d.Path, Kind: errKind(err), Err: err})
				return
			}
			e.applyAndEmit(d.Path, store.StateUpdated{Path: d.Path, State: st})
		}()
	}
	wg.Wait()
}

// dispatchPollFrame emits FrameTick before any FrameUpdated/FrameCleared
// it causes, per spec.md section 5's ordering guarantee.
func (e *Engine) dispatchPollFrame(tok pollToken) {
	devices := e.mgr.Active()
	e.emitTick(store.FrameTick{QueuedAt: tok.queuedAt})

	if time.Since(tok.queuedAt) > time.Duration(e.cfg.FrameTimeoutMs)*time.Millisecond {
		for _, d := range devices {
			e.applyAndEmit(d.Path, store.FrameCleared{Path: d.Path})
		}
		return
	}

	var wg sync.WaitGroup
	for _, d := range devices {
		d := d
		wg.Add(1)
		go func() {
			defer wg.Done()
			frame, err := d.Session.GetFrame()
			if err != nil {
				if isCrcMismatch(err) {
					return
				}
				e.recordOutcome(d.Path, err)
				e.applyAndEmit(d.Path, store.DeviceErrorEvent{Path: d.Path, Kind: errKind(err), Err: err})
				return
			}
			e.recordOutcome(d.Path, nil)
			e.applyAndEmit(d.Path, store.FrameUpdated{Path: d.Path, Frame: frame})
		}()
	}
	wg.Wait()
}
