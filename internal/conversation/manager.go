package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/alisoliman/realtime-api/internal/realtime"
	"github.com/alisoliman/realtime-api/internal/shared"
	"github.com/alisoliman/realtime-api/internal/tools"
	"github.com/google/uuid"
)

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateError        State = "error"
)

const maxTitleLen = 40

// TokenSource issues the short-lived credentials used to open a session.
type TokenSource interface {
	Issue(ctx context.Context, voice string) (realtime.Credentials, error)
}

// ToolExecutor runs one tool invocation. It never fails; errors come back
// as a structured payload in the result string.
type ToolExecutor interface {
	Execute(ctx context.Context, name, argumentsJSON string) string
}

// MicAuthorizer gates connection attempts on microphone permission.
type MicAuthorizer interface {
	RequestAccess(ctx context.Context) error
}

// Record is one finished conversation handed to persistence.
type Record struct {
	Title     string
	StartedAt time.Time
	Duration  time.Duration
	Entries   []Entry
}

// Saver persists a finished conversation.
type Saver interface {
	Save(ctx context.Context, rec Record) error
}

// Callbacks observe session state for UI layers. All fields are optional;
// none affect correctness.
type Callbacks struct {
	OnState      func(state State, errMsg string)
	OnTranscript func(entry Entry, isNew bool)
	OnSpeaking   func(speaking bool)
}

type Config struct {
	Dialer     realtime.Dialer
	Tokens     TokenSource
	Registry   *tools.Registry
	Executor   ToolExecutor
	History    Saver
	Mic        MicAuthorizer
	Voice      string
	Callbacks  Callbacks
	Log        *slog.Logger
	TaskBuffer int
}

// Manager owns one conversation session end to end: the connection
// lifecycle state machine, the ordered event loop, transcript accumulation,
// the tool-call pipeline and the audio gate.
type Manager struct {
	sessionID string
	log       *slog.Logger

	dialer   realtime.Dialer
	tokens   TokenSource
	registry *tools.Registry
	executor ToolExecutor
	history  Saver
	mic      MicAuthorizer
	voice    string
	cb       Callbacks
	taskBuf  int

	transcript *Transcript
	modes      *ModeController

	mu        sync.Mutex
	state     State
	errMsg    string
	conn      realtime.Connection
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startedAt time.Time
	speaking  bool

	// Owned by the event loop goroutine; tool results re-enter the loop
	// through the session's task channel.
	reg   *registrar
	calls *callTracker
}

func NewManager(cfg Config) *Manager {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	sessionID := uuid.New().String()

	m := &Manager{
		sessionID: sessionID,
		log:       log.With("session_id", sessionID),
		dialer:    cfg.Dialer,
		tokens:    cfg.Tokens,
		registry:  cfg.Registry,
		executor:  cfg.Executor,
		history:   cfg.History,
		mic:       cfg.Mic,
		voice:     cfg.Voice,
		cb:        cfg.Callbacks,
		taskBuf:   cfg.TaskBuffer,
		modes:     NewModeController(),
		state:     StateDisconnected,
		calls:     newCallTracker(),
	}
	if m.taskBuf <= 0 {
		m.taskBuf = 16
	}
	m.transcript = NewTranscript(func(entry Entry, isNew bool) {
		if m.cb.OnTranscript != nil {
			m.cb.OnTranscript(entry, isNew)
		}
	})
	return m
}

func (m *Manager) SessionID() string {
	return m.sessionID
}

// Start opens a session. It is idempotent: calling it while a session is
// connecting or live is a no-op. A previous error state does not block a
// fresh start.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateConnecting || m.conn != nil {
		state := m.state
		m.mu.Unlock()
		m.log.Debug("start ignored", "state", state)
		return nil
	}
	m.state = StateConnecting
	m.errMsg = ""
	m.mu.Unlock()
	m.notifyState(StateConnecting, "")

	if m.mic != nil {
		if err := m.mic.RequestAccess(ctx); err != nil {
			m.fail("microphone access denied; enable it in system settings")
			return fmt.Errorf("%w: %v", shared.ErrMicDenied, err)
		}
	}

	creds, err := m.tokens.Issue(ctx, m.voice)
	if err != nil {
		m.fail("could not obtain a session token: " + err.Error())
		return fmt.Errorf("issue token: %w", err)
	}

	conn, err := m.dialer.Connect(ctx, creds)
	if err != nil {
		m.fail("connection failed: " + err.Error())
		return fmt.Errorf("connect: %w", err)
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	tasks := make(chan func(), m.taskBuf)

	m.mu.Lock()
	m.conn = conn
	m.cancel = cancel
	m.startedAt = time.Now()
	m.reg = newRegistrar(m.registry, m.voice)
	m.calls.reset()
	m.state = StateConnected
	m.errMsg = ""
	m.mu.Unlock()
	m.notifyState(StateConnected, "")

	m.modes.Bind(conn.SetAudioEnabled)

	m.wg.Add(1)
	go m.eventLoop(loopCtx, conn, tasks)

	m.log.Info("conversation started", "endpoint", creds.Endpoint)
	return nil
}

// End finishes the conversation: persists the transcript, cancels the event
// loop, releases the connection and resets accumulation state. It is a
// no-op when no session is live.
func (m *Manager) End(ctx context.Context) error {
	m.mu.Lock()
	conn := m.conn
	cancel := m.cancel
	startedAt := m.startedAt
	m.conn = nil
	m.cancel = nil
	m.mu.Unlock()

	if conn == nil {
		m.log.Debug("end ignored, no live session")
		return nil
	}

	m.persist(ctx, startedAt)

	cancel()
	m.modes.Bind(nil)
	if err := conn.Close(); err != nil {
		m.log.Error("failed to close connection", "error", err)
	}
	m.wg.Wait()

	m.mu.Lock()
	m.transcript.Reset()
	m.calls.reset()
	m.reg = nil
	m.speaking = false
	m.state = StateDisconnected
	m.errMsg = ""
	m.mu.Unlock()
	m.notifyState(StateDisconnected, "")

	m.log.Info("conversation ended", "duration", time.Since(startedAt))
	return nil
}

func (m *Manager) persist(ctx context.Context, startedAt time.Time) {
	if m.history == nil {
		return
	}
	entries := m.transcript.Persistable()
	if len(entries) == 0 {
		return
	}

	rec := Record{
		Title:     titleFor(entries),
		StartedAt: startedAt,
		Duration:  time.Since(startedAt),
		Entries:   entries,
	}
	if err := m.history.Save(ctx, rec); err != nil {
		m.log.Error("failed to save conversation", "error", err)
	}
}

func titleFor(entries []Entry) string {
	for _, e := range entries {
		if e.Role == RoleUser {
			return truncate(e.Content, maxTitleLen)
		}
	}
	return "New conversation"
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max]) + "…"
}

// State returns the current connection state and, in the error state, its
// user-facing description.
func (m *Manager) State() (State, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state, m.errMsg
}

// Transcript exposes the accumulated entries for rendering.
func (m *Manager) Transcript() []Entry {
	return m.transcript.Entries()
}

// IsSpeaking reports whether the server currently detects user speech. It
// is an observation signal only; it never drives the audio gate.
func (m *Manager) IsSpeaking() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.speaking
}

func (m *Manager) SetMode(mode Mode)    { m.modes.SetMode(mode) }
func (m *Manager) Mode() Mode           { return m.modes.Mode() }
func (m *Manager) SetMuted(muted bool)  { m.modes.SetMuted(muted) }
func (m *Manager) Muted() bool          { return m.modes.Muted() }
func (m *Manager) SetTalking(held bool) { m.modes.SetTalking(held) }
func (m *Manager) AudioEnabled() bool   { return m.modes.AudioEnabled() }

func (m *Manager) fail(msg string) {
	m.mu.Lock()
	m.state = StateError
	m.errMsg = msg
	m.mu.Unlock()
	m.notifyState(StateError, msg)
}

func (m *Manager) notifyState(state State, errMsg string) {
	if m.cb.OnState != nil {
		m.cb.OnState(state, errMsg)
	}
}

func (m *Manager) eventLoop(ctx context.Context, conn realtime.Connection, tasks chan func()) {
	defer m.wg.Done()

	events := conn.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case task := <-tasks:
			task()
		case evt, ok := <-events:
			if !ok {
				m.onStreamEnded()
				return
			}
			if evt == nil {
				continue
			}
			m.handleEvent(ctx, conn, tasks, evt)
		}
	}
}

func (m *Manager) onStreamEnded() {
	m.mu.Lock()
	// A nil conn means End already detached the transport; the close is
	// deliberate, not a failure.
	wasConnected := m.state == StateConnected && m.conn != nil
	if wasConnected {
		m.state = StateError
		m.errMsg = "connection closed unexpectedly"
	}
	m.mu.Unlock()

	if wasConnected {
		m.notifyState(StateError, "connection closed unexpectedly")
	}
	m.log.Warn("event stream ended")
}

func (m *Manager) handleEvent(ctx context.Context, conn realtime.Connection, tasks chan func(), evt realtime.ServerEvent) {
	switch e := evt.(type) {
	case realtime.SessionCreated:
		m.onSessionConfirmed(ctx, conn, true, e.Session)
	case realtime.SessionUpdated:
		m.onSessionConfirmed(ctx, conn, false, e.Session)
	case realtime.SpeechStarted:
		m.setSpeaking(true)
	case realtime.SpeechStopped:
		m.setSpeaking(false)
	case realtime.InputCommitted:
		m.log.Debug("input committed", "item_id", e.ItemID)
	case realtime.ItemCreated:
		m.onItemCreated(e.Item)
	case realtime.InputTranscriptionDelta:
		m.transcript.Upsert(e.ItemID, RoleUser, e.Delta, Append)
	case realtime.InputTranscriptionCompleted:
		m.transcript.Upsert(e.ItemID, RoleUser, e.Transcript, Replace)
	case realtime.ResponseTranscriptDelta:
		m.transcript.Upsert(e.ItemID, RoleAssistant, e.Delta, Append)
	case realtime.ResponseTranscriptDone:
		m.transcript.Upsert(e.ItemID, RoleAssistant, e.Transcript, Replace)
	case realtime.FunctionCallArgumentsDelta:
		m.calls.onDelta(e.CallID, e.ItemID, e.Delta)
	case realtime.FunctionCallArgumentsDone:
		m.onArgumentsDone(ctx, conn, tasks, e)
	case realtime.ResponseCreated:
		m.log.Debug("response created", "response_id", e.ResponseID)
	case realtime.ResponseDone:
		m.log.Debug("response done", "response_id", e.ResponseID, "status", e.Status)
	case realtime.ErrorEvent:
		// Server errors surface to the caller but do not tear the session
		// down; recovery is an explicit End followed by a new Start.
		m.log.Error("server error event", "code", e.Code, "message", e.Message)
		m.fail(e.Message)
	}
}

func (m *Manager) onSessionConfirmed(ctx context.Context, conn realtime.Connection, created bool, cfg realtime.SessionConfig) {
	if m.reg == nil {
		return
	}
	for _, cmd := range m.reg.onConfirmed(created, cfg) {
		if err := conn.Send(ctx, cmd); err != nil {
			m.log.Error("session handshake send failed", "error", err)
		}
	}
}

func (m *Manager) setSpeaking(speaking bool) {
	m.mu.Lock()
	changed := m.speaking != speaking
	m.speaking = speaking
	m.mu.Unlock()

	if changed && m.cb.OnSpeaking != nil {
		m.cb.OnSpeaking(speaking)
	}
}

func (m *Manager) onItemCreated(item realtime.ConversationItem) {
	if item.Type == "function_call" {
		m.calls.recordName(item.CallID, item.Name)
		return
	}
	if role, ok := roleFromWire(item.Role); ok {
		m.transcript.Upsert(item.ID, role, item.Text(), Replace)
	}
}

func roleFromWire(role string) (Role, bool) {
	switch role {
	case "user":
		return RoleUser, true
	case "assistant":
		return RoleAssistant, true
	}
	return "", false
}

func (m *Manager) onArgumentsDone(ctx context.Context, conn realtime.Connection, tasks chan func(), e realtime.FunctionCallArgumentsDone) {
	call := m.calls.onComplete(e.CallID, e.ItemID, e.Arguments)
	if call == nil {
		m.log.Debug("duplicate arguments completion ignored", "call_id", e.CallID)
		return
	}

	name := call.name
	arguments := call.arguments

	// Tool entries live under a derived id so they can never collide with
	// the model's item identifiers.
	toolItemID := "tool_" + e.CallID

	if name == "" {
		m.log.Warn("tool call with unresolved name", "call_id", e.CallID)
		m.transcript.Upsert(toolItemID, RoleTool, "Tool call failed: unknown tool", Replace)
		m.finishToolCall(ctx, conn, e.CallID, toolItemID, `{"error":"unknown tool"}`)
		return
	}

	m.transcript.Upsert(toolItemID, RoleTool, "Calling "+name+"…", Replace)

	// The executor runs off the event loop; End does not wait for it. A
	// result arriving after teardown is dropped by the ctx guard here and
	// the active-set check in finishToolCall.
	go func() {
		result := m.executor.Execute(ctx, name, arguments)
		select {
		case tasks <- func() { m.finishToolCall(ctx, conn, e.CallID, toolItemID, result) }:
		case <-ctx.Done():
			// Session torn down while the tool ran; the result is stale.
		}
	}()
}

func (m *Manager) finishToolCall(ctx context.Context, conn realtime.Connection, callID, toolItemID, result string) {
	if !m.calls.active(callID) {
		m.log.Debug("stale tool result dropped", "call_id", callID)
		return
	}

	m.transcript.Upsert(toolItemID, RoleTool, result, Replace)

	if err := conn.Send(ctx, realtime.FunctionCallOutput(callID, result)); err != nil {
		m.log.Error("failed to deliver tool output", "call_id", callID, "error", err)
	} else if err := conn.Send(ctx, realtime.ResponseCreate{}); err != nil {
		m.log.Error("failed to request continuation", "call_id", callID, "error", err)
	}

	m.calls.clear(callID)
}
