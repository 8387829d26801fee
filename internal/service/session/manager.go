// Package session orchestrates conversations: it loads and persists
// transcripts, applies tab memory rules, composes prompts and calls the model.
package session

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/brightly-app/brightly/backend/internal/events"
	"github.com/brightly-app/brightly/backend/internal/logger"
	"github.com/brightly-app/brightly/backend/internal/model/chat"
	"github.com/brightly-app/brightly/backend/internal/model/profile"
	"github.com/brightly-app/brightly/backend/internal/model/tab"
	"github.com/brightly-app/brightly/backend/internal/service/ai"
	"github.com/brightly-app/brightly/backend/internal/service/prompt"
	"github.com/brightly-app/brightly/backend/internal/store"
)

const (
	module              = "session"
	defaultHistoryLimit = 10
	defaultTimeout      = 30 * time.Second
)

// Generator produces the assistant reply for a request.
type Generator interface {
	Generate(ctx context.Context, req ai.Request) (string, error)
	Stream(ctx context.Context, req ai.Request, onDelta func(string)) (string, error)
}

// Dependencies wires a Manager. Clock, NewSessionID, Events, Logger,
// HistoryLimit and GenerationTimeout have defaults.
type Dependencies struct {
	Transcripts       store.TranscriptStore
	Memories          store.MemoryStore
	Profiles          profile.Store
	Tabs              tab.Store
	Generator         Generator
	Events            events.Publisher
	Logger            logger.Logger
	Clock             func() time.Time
	NewSessionID      func() string
	HistoryLimit      int
	GenerationTimeout time.Duration
}

// Manager is the entry point for every conversation operation.
type Manager struct {
	transcripts  store.TranscriptStore
	memories     store.MemoryStore
	profiles     profile.Store
	tabs         tab.Store
	composer     *prompt.Composer
	generator    Generator
	events       events.Publisher
	log          logger.Logger
	tracer       trace.Tracer
	now          func() time.Time
	newSessionID func() string
	historyLimit int
	timeout      time.Duration

	mu       sync.RWMutex
	accounts map[string]*account
}

// NewManager creates a Manager.
func NewManager(deps Dependencies) *Manager {
	m := &Manager{
		transcripts:  deps.Transcripts,
		memories:     deps.Memories,
		profiles:     deps.Profiles,
		tabs:         deps.Tabs,
		composer:     prompt.NewComposer(deps.Tabs),
		generator:    deps.Generator,
		events:       deps.Events,
		log:          deps.Logger,
		tracer:       otel.Tracer("brightly/session"),
		now:          deps.Clock,
		newSessionID: deps.NewSessionID,
		historyLimit: deps.HistoryLimit,
		timeout:      deps.GenerationTimeout,
		accounts:     make(map[string]*account),
	}
	if m.events == nil {
		m.events = events.Nop{}
	}
	if m.log == nil {
		m.log = logger.NewNop()
	}
	if m.now == nil {
		m.now = func() time.Time { return time.Now().UTC() }
	}
	if m.newSessionID == nil {
		m.newSessionID = newTimeOrderedID
	}
	if m.historyLimit <= 0 {
		m.historyLimit = defaultHistoryLimit
	}
	if m.timeout <= 0 {
		m.timeout = defaultTimeout
	}
	return m
}

// newTimeOrderedID returns a UUIDv7, which sorts by creation time.
func newTimeOrderedID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// SignIn opens the application context of ownerID, creating the registration
// profile when none is stored. Signing in again refreshes the profile and
// keeps the open views.
func (m *Manager) SignIn(ctx context.Context, ownerID string) (profile.Profile, error) {
	const op = "session.SignIn"
	if strings.TrimSpace(ownerID) == "" {
		return profile.Profile{}, validationError(op, ErrProfileUnavailable)
	}

	p, ok, err := m.profiles.Get(ctx, ownerID)
	if err != nil {
		return profile.Profile{}, persistenceError(op, err)
	}
	if !ok {
		p = profile.Registration(profile.Default(ownerID))
		if err := m.profiles.Put(ctx, p); err != nil {
			return profile.Profile{}, persistenceError(op, err)
		}
		m.log.Info(module, "created default profile", map[string]interface{}{"owner": ownerID})
	}
	p = p.WithDefaults()

	m.mu.Lock()
	if acct, exists := m.accounts[ownerID]; exists {
		acct.setProfile(p)
	} else {
		m.accounts[ownerID] = newAccount(p)
	}
	m.mu.Unlock()

	m.log.Info(module, "signed in", map[string]interface{}{"owner": ownerID})
	return p, nil
}

// SignOut drops the application context of ownerID and all of its views.
func (m *Manager) SignOut(ownerID string) {
	m.mu.Lock()
	_, existed := m.accounts[ownerID]
	delete(m.accounts, ownerID)
	m.mu.Unlock()

	if c, ok := m.profiles.(profileInvalidator); ok {
		c.Invalidate(ownerID)
	}

	if existed {
		m.log.Info(module, "signed out", map[string]interface{}{"owner": ownerID})
	}
}

// profileInvalidator is implemented by profile stores that cache entries.
type profileInvalidator interface {
	Invalidate(ownerID string)
}

// SignedIn reports whether ownerID has an open application context.
func (m *Manager) SignedIn(ownerID string) bool {
	_, ok := m.account(ownerID)
	return ok
}

func (m *Manager) account(ownerID string) (*account, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	acct, ok := m.accounts[ownerID]
	return acct, ok
}

// Profile returns the stored profile of ownerID, or the default one.
func (m *Manager) Profile(ctx context.Context, ownerID string) (profile.Profile, error) {
	const op = "session.Profile"
	p, ok, err := m.profiles.Get(ctx, ownerID)
	if err != nil {
		return profile.Profile{}, persistenceError(op, err)
	}
	if !ok {
		return profile.Default(ownerID), nil
	}
	return p, nil
}

// UpdateProfile merges u into the stored profile and refreshes the signed-in
// context so the next prompt sees the change.
func (m *Manager) UpdateProfile(ctx context.Context, ownerID string, u profile.Update) (profile.Profile, error) {
	const op = "session.UpdateProfile"
	p, err := m.Profile(ctx, ownerID)
	if err != nil {
		return profile.Profile{}, err
	}
	p = p.Apply(u)
	p.OwnerID = ownerID
	if err := m.profiles.Put(ctx, p); err != nil {
		return profile.Profile{}, persistenceError(op, err)
	}
	if acct, ok := m.account(ownerID); ok {
		acct.setProfile(p.WithDefaults())
	}
	return p, nil
}

// Tabs lists the tabs visible to a signed-in owner.
func (m *Manager) Tabs(ownerID string) ([]tab.Tab, error) {
	acct, ok := m.account(ownerID)
	if !ok {
		return nil, validationError("session.Tabs", ErrProfileUnavailable)
	}
	p := acct.currentProfile()
	return tab.Visible(m.tabs.List(), p.Gender, p.HiddenTabs), nil
}

func (m *Manager) chatTab(t tab.ID) (tab.Tab, bool) {
	item, ok := m.tabs.FindByID(t)
	if !ok || !item.Chat {
		return tab.Tab{}, false
	}
	return item, true
}

// LoadSession shows the stored transcript of sessionID in the tab's view. A
// missing transcript loads as an empty conversation.
func (m *Manager) LoadSession(ctx context.Context, ownerID string, t tab.ID, sessionID string) (Snapshot, error) {
	const op = "session.LoadSession"
	acct, ok := m.account(ownerID)
	if !ok {
		return Snapshot{}, validationError(op, ErrProfileUnavailable)
	}
	if _, ok := m.chatTab(t); !ok {
		return Snapshot{}, validationError(op, ErrUnknownTab)
	}
	sessionID = chat.NormalizeSessionID(sessionID)

	ctx, span := m.tracer.Start(ctx, op, trace.WithAttributes(
		attribute.String("tab", string(t)),
		attribute.String("session", sessionID),
	))
	defer span.End()

	transcript, _, err := m.transcripts.Get(ctx, chat.Key{OwnerID: ownerID, Tab: t, SessionID: sessionID})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		m.log.Error(module, "failed to load transcript", map[string]interface{}{
			"owner": ownerID, "tab": t, "session": sessionID, "error": err.Error(),
		})
		return acct.view(t).snapshot(), persistenceError(op, err)
	}

	snap, err := acct.view(t).replace(sessionID, transcript.Messages)
	if err != nil {
		return snap, validationError(op, err)
	}
	return snap, nil
}

// SendOption adjusts a single Send.
type SendOption func(*sendOptions)

type sendOptions struct {
	tone    prompt.Tone
	onDelta func(string)
}

// WithTone overrides the profile tone preference for this send.
func WithTone(tone prompt.Tone) SendOption {
	return func(o *sendOptions) {
		o.tone = tone
	}
}

// WithDeltaHandler streams reply chunks to fn as they are generated.
func WithDeltaHandler(fn func(string)) SendOption {
	return func(o *sendOptions) {
		o.onDelta = fn
	}
}

// Send appends text and the generated reply to the conversation and persists
// both. Validation failures change nothing. On a generation or persistence
// failure the user message stays visible, nothing new is persisted and the
// returned snapshot carries the user-facing error text.
func (m *Manager) Send(ctx context.Context, ownerID string, t tab.ID, sessionID, text string, opts ...SendOption) (Snapshot, error) {
	const op = "session.Send"

	text = strings.TrimSpace(text)
	if text == "" {
		return Snapshot{}, validationError(op, ErrEmptyMessage)
	}
	acct, ok := m.account(ownerID)
	if !ok {
		return Snapshot{}, validationError(op, ErrProfileUnavailable)
	}
	item, ok := m.chatTab(t)
	if !ok {
		return Snapshot{}, validationError(op, ErrUnknownTab)
	}
	sessionID = chat.NormalizeSessionID(sessionID)

	options := sendOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if options.tone != "" && !options.tone.Valid() {
		return Snapshot{}, validationError(op, ErrInvalidTone)
	}

	v := acct.view(t)
	currentID, shown, synced, err := v.beginSend()
	if err != nil {
		return v.snapshot(), validationError(op, err)
	}

	ctx, span := m.tracer.Start(ctx, op, trace.WithAttributes(
		attribute.String("tab", string(t)),
		attribute.String("session", sessionID),
	))
	defer span.End()

	details := map[string]interface{}{"owner": ownerID, "tab": t, "session": sessionID}
	userMsg := chat.Message{Role: chat.RoleUser, Content: text, Timestamp: m.now()}

	prior := shown
	if currentID != sessionID || !synced {
		transcript, _, err := m.transcripts.Get(ctx, chat.Key{OwnerID: ownerID, Tab: t, SessionID: sessionID})
		if err != nil {
			return m.failSend(span, v, sessionID, []chat.Message{userMsg}, false, persistenceError(op, err), details)
		}
		prior = transcript.Messages
	}

	staged := append(chat.CloneMessages(prior), userMsg)
	v.stage(sessionID, staged)

	// The prompt uses the note as it was before this message's trigger fires.
	oldNote, _, err := m.memories.Get(ctx, ownerID, t)
	if err != nil {
		return m.failSend(span, v, sessionID, staged, true, persistenceError(op, err), details)
	}
	if trigger, ok := item.MatchTrigger(text); ok {
		if err := m.memories.Put(ctx, ownerID, t, trigger.Fact); err != nil {
			return m.failSend(span, v, sessionID, staged, true, persistenceError(op, err), details)
		}
		m.publish(events.TopicMemoryUpdated, events.Event{OwnerID: ownerID, Tab: t, Note: trigger.Fact, At: m.now()})
	}

	pctx := prompt.ContextFor(acct.currentProfile(), t, oldNote)
	if options.tone != "" {
		pctx.Tone = options.tone
	}
	req := ai.Request{
		System:  m.composer.Compose(pctx),
		History: chat.Tail(prior, m.historyLimit),
		Query:   text,
	}

	reply, err := m.generate(ctx, req, options.onDelta)
	if err != nil {
		return m.failSend(span, v, sessionID, staged, true, generationError(op, err), details)
	}

	assistantMsg := chat.Message{Role: chat.RoleAssistant, Content: reply, Timestamp: m.now()}
	final := append(staged, assistantMsg)
	transcript := chat.Transcript{
		OwnerID:     ownerID,
		Tab:         t,
		SessionID:   sessionID,
		Messages:    final,
		LastUpdated: assistantMsg.Timestamp,
	}
	if err := m.transcripts.Put(ctx, transcript); err != nil {
		return m.failSend(span, v, sessionID, staged, true, persistenceError(op, err), details)
	}

	snap := v.commit(sessionID, final)
	m.publish(events.TopicSessionPersisted, events.Event{
		OwnerID: ownerID, Tab: t, SessionID: sessionID, MessageCount: len(final), At: transcript.LastUpdated,
	})
	m.log.Info(module, "message persisted", map[string]interface{}{
		"owner": ownerID, "tab": t, "session": sessionID, "messages": len(final),
	})
	return snap, nil
}

func (m *Manager) generate(ctx context.Context, req ai.Request, onDelta func(string)) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	var (
		reply string
		err   error
	)
	if onDelta != nil {
		reply, err = m.generator.Stream(ctx, req, onDelta)
	} else {
		reply, err = m.generator.Generate(ctx, req)
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(reply) == "" {
		return "", ai.ErrEmptyResponse
	}
	return reply, nil
}

func (m *Manager) failSend(span trace.Span, v *view, sessionID string, shown []chat.Message, synced bool, err error, details map[string]interface{}) (Snapshot, error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(KindOf(err)))

	errText := PersistenceFailure
	if KindOf(err) == KindGeneration {
		errText = FallbackReply
	}
	details["error"] = err.Error()
	m.log.Error(module, "send failed", details)
	return v.fail(sessionID, shown, synced, errText), err
}

// StartNewSession points the tab's view at a fresh session id and shows an
// empty conversation. Previously persisted sessions are untouched.
func (m *Manager) StartNewSession(ctx context.Context, ownerID string, t tab.ID) (Snapshot, error) {
	const op = "session.StartNewSession"
	acct, ok := m.account(ownerID)
	if !ok {
		return Snapshot{}, validationError(op, ErrProfileUnavailable)
	}
	if _, ok := m.chatTab(t); !ok {
		return Snapshot{}, validationError(op, ErrUnknownTab)
	}

	snap, err := acct.view(t).replace(m.newSessionID(), nil)
	if err != nil {
		return snap, validationError(op, err)
	}
	m.log.Debug(module, "started new session", map[string]interface{}{"owner": ownerID, "tab": t, "session": snap.SessionID})
	return snap, nil
}

// ClearSession deletes the stored transcript of sessionID. When the signed-in
// view shows that session it is reset to an empty conversation.
func (m *Manager) ClearSession(ctx context.Context, ownerID string, t tab.ID, sessionID string) (Snapshot, error) {
	const op = "session.ClearSession"
	if _, ok := m.chatTab(t); !ok {
		return Snapshot{}, validationError(op, ErrUnknownTab)
	}
	sessionID = chat.NormalizeSessionID(sessionID)

	var v *view
	if acct, ok := m.account(ownerID); ok {
		if existing, ok := acct.existingView(t); ok {
			v = existing
			if snap := v.snapshot(); snap.State == StateSending && snap.SessionID == sessionID {
				return snap, validationError(op, ErrSendInFlight)
			}
		}
	}

	key := chat.Key{OwnerID: ownerID, Tab: t, SessionID: sessionID}
	if err := m.transcripts.Delete(ctx, key); err != nil {
		m.log.Error(module, "failed to delete transcript", map[string]interface{}{
			"owner": ownerID, "tab": t, "session": sessionID, "error": err.Error(),
		})
		return Snapshot{}, persistenceError(op, err)
	}
	m.publish(events.TopicSessionCleared, events.Event{OwnerID: ownerID, Tab: t, SessionID: sessionID, At: m.now()})

	empty := Snapshot{OwnerID: ownerID, Tab: t, SessionID: sessionID, State: StateLoaded, Messages: []chat.Message{}}
	if v == nil || v.snapshot().SessionID != sessionID {
		return empty, nil
	}
	snap, err := v.replace(sessionID, nil)
	if err != nil {
		// a send began on the view after the delete; the record is gone regardless
		return empty, nil
	}
	return snap, nil
}

// ListSessions summarizes the stored sessions of one tab, most recent first.
func (m *Manager) ListSessions(ctx context.Context, ownerID string, t tab.ID) ([]chat.Summary, error) {
	const op = "session.ListSessions"
	if _, ok := m.chatTab(t); !ok {
		return nil, validationError(op, ErrUnknownTab)
	}

	transcripts, err := m.transcripts.Scan(ctx, chat.Query{OwnerID: ownerID, Tab: t})
	if err != nil {
		return nil, persistenceError(op, err)
	}
	sortByRecency(transcripts)

	summaries := make([]chat.Summary, 0, len(transcripts))
	for _, transcript := range transcripts {
		summaries = append(summaries, transcript.Summarize())
	}
	return summaries, nil
}

// History returns the stored transcripts of ownerID, optionally narrowed to a
// tab and to conversations containing query, most recent first.
func (m *Manager) History(ctx context.Context, ownerID string, t tab.ID, query string) ([]chat.Transcript, error) {
	const op = "session.History"
	if t != "" {
		if _, ok := m.chatTab(t); !ok {
			return nil, validationError(op, ErrUnknownTab)
		}
	}

	transcripts, err := m.transcripts.Scan(ctx, chat.Query{OwnerID: ownerID, Tab: t})
	if err != nil {
		return nil, persistenceError(op, err)
	}

	query = strings.TrimSpace(query)
	result := transcripts[:0]
	for _, transcript := range transcripts {
		if query == "" || transcript.ContainsText(query) {
			result = append(result, transcript)
		}
	}
	sortByRecency(result)
	return result, nil
}

func sortByRecency(transcripts []chat.Transcript) {
	sort.SliceStable(transcripts, func(i, j int) bool {
		return transcripts[i].LastUpdated.After(transcripts[j].LastUpdated)
	})
}

// View returns the current snapshot of a signed-in owner's tab.
func (m *Manager) View(ownerID string, t tab.ID) (Snapshot, error) {
	acct, ok := m.account(ownerID)
	if !ok {
		return Snapshot{}, validationError("session.View", ErrProfileUnavailable)
	}
	if _, ok := m.chatTab(t); !ok {
		return Snapshot{}, validationError("session.View", ErrUnknownTab)
	}
	return acct.view(t).snapshot(), nil
}

func (m *Manager) publish(topic string, event events.Event) {
	if err := m.events.Publish(topic, event); err != nil {
		m.log.Warn(module, "failed to publish event", map[string]interface{}{"topic": topic, "error": err.Error()})
	}
}
