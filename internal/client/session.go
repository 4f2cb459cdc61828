// Package client keeps a local mirror of the playground in sync with the
// server over a websocket, reconnecting when the connection drops.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"nhooyr.io/websocket"

	"github.com/playperu/tabletop/internal/playground"
	"github.com/playperu/tabletop/internal/protocol"
)

var (
	// ErrNotConnected is returned by mutations made while offline. The
	// mutation is still applied to the mirror.
	ErrNotConnected = errors.New("not connected to server")
	// ErrClosed is returned once the session stopped reconnecting.
	ErrClosed = errors.New("session closed")
	// ErrUnknownElement is returned when patching an element the mirror
	// does not hold.
	ErrUnknownElement = errors.New("unknown element")
)

const (
	defaultMaxAttempts = 5
	defaultDelay       = time.Second
	writeTimeout       = 10 * time.Second
	maxFrameBytes      = 4 << 20
)

// Status is the connection state reported by a Session.
type Status int

const (
	Disconnected Status = iota
	Connecting
	Connected
)

func (s Status) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// ServerError is a rejection sent by the server.
type ServerError struct {
	RequestID string
	Code      string
	Message   string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server rejected request %s: %s: %s", e.RequestID, e.Code, e.Message)
}

// Handlers are called from the session's read goroutine after the mirror
// has been updated. Any of them may be nil.
type Handlers struct {
	OnState     func(playground.State)
	OnElements  func(map[string]playground.Element)
	OnRemove    func(ids []string)
	OnTemplates func(map[string]playground.Template)
	OnStatus    func(Status)
	OnError     func(error)
}

// Options configures a Session.
type Options struct {
	// URL of the websocket endpoint, e.g. ws://localhost:3001/ws.
	URL string
	// MaxAttempts is the number of consecutive failed dials before the
	// session gives up. Zero means 5.
	MaxAttempts int
	// Delay between dials. Zero means one second.
	Delay    time.Duration
	Logger   *slog.Logger
	Handlers Handlers
}

// Session is one client connection to the playground server together with
// the local mirror it keeps in sync.
type Session struct {
	opts   Options
	logger *slog.Logger
	mirror *Mirror
	seq    atomic.Uint64

	mu      sync.Mutex
	status  Status
	conn    *websocket.Conn
	lastErr string
	synced  chan struct{}
	waiting map[string]chan struct{}
	cancel  context.CancelFunc
	done    chan struct{}
}

// New returns a disconnected session; call Connect to start it.
func New(opts Options) *Session {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.Delay <= 0 {
		opts.Delay = defaultDelay
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		opts:    opts,
		logger:  logger.With("url", opts.URL),
		mirror:  NewMirror(),
		synced:  make(chan struct{}),
		waiting: make(map[string]chan struct{}),
	}
}

// Mirror is the local copy of the playground.
func (s *Session) Mirror() *Mirror {
	return s.mirror
}

// Status reports the current connection state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Connected reports whether mutations currently reach the server.
func (s *Session) Connected() bool {
	return s.Status() == Connected
}

// LastError is the most recent error message, or "".
func (s *Session) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Connect starts dialing in the background. It returns at once; use
// WaitSynced to block until the first snapshot has arrived. Calling it
// while a previous Connect is still running does nothing; after Disconnect
// or giving up it starts over with a fresh attempt budget.
func (s *Session) Connect(ctx context.Context) {
	s.mu.Lock()
	if s.done != nil {
		select {
		case <-s.done:
		default:
			s.mu.Unlock()
			return
		}
	}
	select {
	case <-s.synced:
		s.synced = make(chan struct{})
	default:
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		s.run(ctx)
	}()
}

// Disconnect closes the connection and stops reconnecting. The mirror is
// kept.
func (s *Session) Disconnect() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Done is closed when the current run stops, either through Disconnect or
// after running out of attempts. It is nil before Connect.
func (s *Session) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// WaitSynced blocks until the mirror holds a snapshot from the current
// connection and OnState has returned for it.
func (s *Session) WaitSynced(ctx context.Context) error {
	s.mu.Lock()
	synced, done := s.synced, s.done
	s.mu.Unlock()

	select {
	case <-synced:
		return nil
	case <-done:
		if msg := s.LastError(); msg != "" {
			return fmt.Errorf("%w: %s", ErrClosed, msg)
		}
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) run(ctx context.Context) {
	defer s.setStatus(Disconnected)

	failures := 0
	for {
		s.setStatus(Connecting)
		conn, _, err := websocket.Dial(ctx, s.opts.URL, nil)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			failures++
			s.fail(fmt.Errorf("connecting: %w", err))
			s.setStatus(Disconnected)
			if failures >= s.opts.MaxAttempts {
				s.fail(fmt.Errorf("giving up after %d attempts", failures))
				return
			}
			if !s.sleep(ctx) {
				return
			}
			continue
		}

		failures = 0
		conn.SetReadLimit(maxFrameBytes)
		s.attach(conn)
		s.logger.Info("connected")

		if err := s.send(protocol.GetPlaygroundState, nil); err == nil {
			err = s.readLoop(ctx, conn)
			if ctx.Err() == nil {
				s.fail(fmt.Errorf("connection lost: %w", err))
			}
		}
		s.detach(conn)

		if ctx.Err() != nil {
			conn.Close(websocket.StatusNormalClosure, "")
			return
		}
		conn.CloseNow()
		if !s.sleep(ctx) {
			return
		}
	}
}

func (s *Session) sleep(ctx context.Context) bool {
	t := time.NewTimer(s.opts.Delay)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Session) attach(conn *websocket.Conn) {
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	s.setStatus(Connected)
}

func (s *Session) detach(conn *websocket.Conn) {
	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
	}
	select {
	case <-s.synced:
		s.synced = make(chan struct{})
	default:
	}
	s.mu.Unlock()
	s.setStatus(Disconnected)
	s.logger.Info("disconnected")
}

func (s *Session) setStatus(st Status) {
	s.mu.Lock()
	changed := s.status != st
	s.status = st
	s.mu.Unlock()
	if changed && s.opts.Handlers.OnStatus != nil {
		s.opts.Handlers.OnStatus(st)
	}
}

func (s *Session) fail(err error) {
	s.mu.Lock()
	s.lastErr = err.Error()
	s.mu.Unlock()
	s.logger.Warn("session error", "error", err)
	if s.opts.Handlers.OnError != nil {
		s.opts.Handlers.OnError(err)
	}
}

func (s *Session) readLoop(ctx context.Context, conn *websocket.Conn) error {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}
		f, err := protocol.Decode(data)
		if err != nil {
			s.fail(fmt.Errorf("malformed frame from server: %w", err))
			continue
		}
		if err := s.apply(f); err != nil {
			s.fail(fmt.Errorf("applying %s: %w", f.Type, err))
		}
	}
}

// apply merges a server frame into the mirror.
func (s *Session) apply(f protocol.Frame) error {
	h := s.opts.Handlers

	switch f.Type {
	case protocol.PlaygroundState:
		var st playground.State
		if err := json.Unmarshal(f.Payload, &st); err != nil {
			return err
		}
		s.mirror.Replace(st)
		if h.OnState != nil {
			h.OnState(s.mirror.Snapshot())
		}
		s.markSynced()
		if f.RequestID != "" {
			s.mu.Lock()
			if reply, ok := s.waiting[f.RequestID]; ok {
				close(reply)
				delete(s.waiting, f.RequestID)
			}
			s.mu.Unlock()
		}

	case protocol.ElementState:
		elements, err := playground.DecodeElements(f.Payload)
		if err != nil {
			return err
		}
		s.mirror.ApplyElements(elements)
		if h.OnElements != nil {
			h.OnElements(elements)
		}

	case protocol.RemoveElementState:
		var ids []string
		if err := json.Unmarshal(f.Payload, &ids); err != nil {
			return err
		}
		s.mirror.Remove(ids)
		if h.OnRemove != nil {
			h.OnRemove(ids)
		}

	case protocol.TemplateState:
		var templates map[string]playground.Template
		if err := json.Unmarshal(f.Payload, &templates); err != nil {
			return err
		}
		s.mirror.SetTemplates(templates)
		if h.OnTemplates != nil {
			h.OnTemplates(templates)
		}

	case protocol.Error:
		var p protocol.ErrorPayload
		if err := json.Unmarshal(f.Payload, &p); err != nil {
			return err
		}
		s.fail(&ServerError{RequestID: f.RequestID, Code: p.Code, Message: p.Message})

	default:
		s.logger.Debug("unhandled frame", "type", f.Type)
	}
	return nil
}

func (s *Session) markSynced() {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.synced:
	default:
		close(s.synced)
	}
}

func (s *Session) send(typ protocol.Event, payload any) error {
	return s.sendRequest(s.nextRequestID(), typ, payload)
}

func (s *Session) nextRequestID() string {
	return strconv.FormatUint(s.seq.Add(1), 10)
}

// sendRequest writes one frame. Offline it records ErrNotConnected instead.
func (s *Session) sendRequest(requestID string, typ protocol.Event, payload any) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		s.fail(ErrNotConnected)
		return ErrNotConnected
	}

	f, err := protocol.NewFrame(typ, payload)
	if err != nil {
		return err
	}
	f.RequestID = requestID
	data, err := protocol.Encode(f)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		err = fmt.Errorf("sending %s: %w", typ, err)
		s.fail(err)
		return err
	}
	return nil
}

// Refresh asks the server for a full snapshot.
func (s *Session) Refresh() error {
	return s.send(protocol.GetPlaygroundState, nil)
}

// Sync requests a snapshot and waits until the reply to that request has
// been applied. The server answers a connection in order, so every frame
// sent before Sync has been handled by then.
func (s *Session) Sync(ctx context.Context) error {
	id := s.nextRequestID()
	reply := make(chan struct{})

	s.mu.Lock()
	done := s.done
	s.waiting[id] = reply
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.waiting, id)
		s.mu.Unlock()
	}()

	if err := s.sendRequest(id, protocol.GetPlaygroundState, nil); err != nil {
		return err
	}
	select {
	case <-reply:
		return nil
	case <-done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) AddElement(e playground.Element) error {
	if err := e.Validate(); err != nil {
		return err
	}
	s.mirror.ApplyElements(map[string]playground.Element{e.ID: e})
	return s.send(protocol.AddElement, e)
}

// UpdateElement applies e locally and, when commit is set, sends it. A
// local-only update is for intermediate states such as a drag in progress.
func (s *Session) UpdateElement(e playground.Element, commit bool) error {
	if err := e.Validate(); err != nil {
		return err
	}
	s.mirror.ApplyElements(map[string]playground.Element{e.ID: e})
	if !commit {
		return nil
	}
	return s.send(protocol.UpdateElement, e)
}

// PatchElement changes a mirrored element in place through fn.
func (s *Session) PatchElement(id string, fn func(*playground.Element), commit bool) error {
	e, ok := s.mirror.Element(id)
	if !ok {
		return fmt.Errorf("patching %q: %w", id, ErrUnknownElement)
	}
	fn(&e)
	e.ID = id
	if err := e.Validate(); err != nil {
		return err
	}
	s.mirror.ApplyElements(map[string]playground.Element{id: e})
	if !commit {
		return nil
	}
	return s.send(protocol.UpdateElements, map[string]playground.Element{id: e})
}

func (s *Session) IncreasePriority(id string) error {
	return s.PatchElement(id, func(e *playground.Element) { e.RenderingPriority++ }, true)
}

func (s *Session) DecreasePriority(id string) error {
	return s.PatchElement(id, func(e *playground.Element) { e.RenderingPriority-- }, true)
}

func (s *Session) DeleteElement(id string) error {
	s.mirror.Remove([]string{id})
	return s.send(protocol.DeleteElement, id)
}

// UpdateElements applies a batch locally and sends it as one frame.
func (s *Session) UpdateElements(elements map[string]playground.Element) error {
	for key, e := range elements {
		if key != e.ID {
			return fmt.Errorf("%w: element map key %q does not match id %q", playground.ErrInvalid, key, e.ID)
		}
		if err := e.Validate(); err != nil {
			return err
		}
	}
	if len(elements) == 0 {
		return nil
	}
	s.mirror.ApplyElements(elements)
	return s.send(protocol.UpdateElements, elements)
}

// Commit sends every mirrored element in one batch, publishing any
// local-only updates.
func (s *Session) Commit() error {
	elements := s.mirror.Snapshot().Elements
	if len(elements) == 0 {
		return nil
	}
	return s.send(protocol.UpdateElements, elements)
}

// ClearElements deletes every mirrored element. Deletes stop being sent at
// the first failure; the mirror is cleared regardless.
func (s *Session) ClearElements() error {
	ids := s.mirror.ElementIDs()
	s.mirror.Remove(ids)
	for _, id := range ids {
		if err := s.send(protocol.DeleteElement, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) AddTemplate(t playground.Template) error {
	if err := t.Validate(); err != nil {
		return err
	}
	s.mirror.upsertTemplate(t)
	return s.send(protocol.AddTemplate, t)
}

func (s *Session) UpdateTemplate(t playground.Template) error {
	if err := t.Validate(); err != nil {
		return err
	}
	s.mirror.upsertTemplate(t)
	return s.send(protocol.UpdateTemplate, t)
}

// DeleteTemplate leaves cards that use the template in place.
func (s *Session) DeleteTemplate(id string) error {
	s.mirror.removeTemplate(id)
	return s.send(protocol.DeleteTemplate, id)
}
