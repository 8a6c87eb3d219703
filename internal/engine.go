package internal

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultRecentLimit is the size of the recently handled message buffer
	DefaultRecentLimit = 5
	// suggestionKeyLength bounds the text used to recognise a repeated trigger
	suggestionKeyLength = 50
)

// EngineConfig holds the capture engine's limits and delays
type EngineConfig struct {
	Profile            Profile
	HistoryLimit       int
	RecentLimit        int
	SettleDelay        time.Duration
	EnableDelay        time.Duration
	ScanRetryDelay     time.Duration
	ChatChangeDebounce time.Duration
	SuggestDebounce    time.Duration
	RateLimit          time.Duration
	ReplyEndpoint      string
	GeneralEndpoint    string
}

// DefaultEngineConfig returns the WhatsApp Web timings
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Profile:            WhatsAppProfile(),
		HistoryLimit:       DefaultHistoryLimit,
		RecentLimit:        DefaultRecentLimit,
		SettleDelay:        1500 * time.Millisecond,
		EnableDelay:        1000 * time.Millisecond,
		ScanRetryDelay:     500 * time.Millisecond,
		ChatChangeDebounce: 100 * time.Millisecond,
		SuggestDebounce:    900 * time.Millisecond,
		RateLimit:          2000 * time.Millisecond,
		ReplyEndpoint:      DefaultReplyEndpoint,
		GeneralEndpoint:    DefaultGeneralEndpoint,
	}
}

type timerKind int

const (
	timerChatChange timerKind = iota
	timerScan
	timerEnable
	timerSuggest
)

func (k timerKind) String() string {
	switch k {
	case timerChatChange:
		return "chat-change"
	case timerScan:
		return "scan"
	case timerEnable:
		return "enable"
	default:
		return "suggest"
	}
}

// events delivered to the loop
type (
	pageEvent struct {
		page  *Page
		added []Node
	}
	timerEvent struct {
		kind timerKind
		gen  uint64
		seq  uint64
	}
	suggestionEvent struct {
		gen        uint64
		suggestion Suggestion
		err        error
	}
	commandEvent struct {
		cmd   Command
		reply chan CommandResult
	}
)

// Engine watches page updates for new chat messages, keeps per-session
// history and asks for reply suggestions. All capture state is owned by the
// goroutine running Run; other goroutines talk to it through Observe and Do.
type Engine struct {
	cfg         EngineConfig
	kv          KVStore
	store       *MessageStore
	classifier  *BubbleClassifier
	tracker     *SessionTracker
	scanner     *ContextScanner
	watcher     *MutationWatcher
	coordinator *SuggestionCoordinator
	notifier    Notifier
	now         func() time.Time

	events chan any
	done   chan struct{}
	ctx    context.Context

	// owned by the loop
	page          *Page
	session       SessionInfo
	tracked       bool
	changedAt     time.Time
	generation    uint64
	initialized   bool
	existing      map[string]struct{}
	recent        []string
	lastProcessed string
	lastRequest   time.Time
	changeSeq     uint64
	suggestSeq    uint64
	timers        map[timerKind]*time.Timer
}

// NewEngine wires an engine over kv. A nil notifier discards signals.
func NewEngine(cfg EngineConfig, kv KVStore, coordinator *SuggestionCoordinator, notifier Notifier) *Engine {
	def := DefaultEngineConfig()
	if cfg.RecentLimit <= 0 {
		cfg.RecentLimit = def.RecentLimit
	}
	if cfg.ReplyEndpoint == "" {
		cfg.ReplyEndpoint = def.ReplyEndpoint
	}
	if cfg.GeneralEndpoint == "" {
		cfg.GeneralEndpoint = def.GeneralEndpoint
	}
	cfg.Profile = cfg.Profile.withDefaults()
	if notifier == nil {
		notifier = NopNotifier{}
	}

	classifier := NewBubbleClassifier(cfg.Profile)
	store := NewMessageStore(kv, cfg.HistoryLimit)

	return &Engine{
		cfg:         cfg,
		kv:          kv,
		store:       store,
		classifier:  classifier,
		tracker:     NewSessionTracker(cfg.Profile),
		scanner:     NewContextScanner(classifier, store),
		watcher:     NewMutationWatcher(cfg.Profile),
		coordinator: coordinator,
		notifier:    notifier,
		now:         time.Now,
		events:      make(chan any, 64),
		done:        make(chan struct{}),
		ctx:         context.Background(),
		existing:    make(map[string]struct{}),
		timers:      make(map[timerKind]*time.Timer),
	}
}

// Store returns the engine's message store
func (e *Engine) Store() *MessageStore {
	return e.store
}

// Run processes events until ctx is done. It must be called once.
func (e *Engine) Run(ctx context.Context) error {
	e.ctx = ctx
	defer close(e.done)
	defer e.stopTimers()

	if e.coordinator != nil {
		e.coordinator.Start(ctx)
	}

	log.Info().Str("platform", e.cfg.Profile.Platform).Msg("capture engine started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("capture engine stopped")
			return nil
		case ev := <-e.events:
			e.dispatch(ev)
		}
	}
}

// Observe hands a page update and the subtrees it added to the engine
func (e *Engine) Observe(ctx context.Context, page *Page, added []Node) error {
	return e.send(ctx, pageEvent{page: page, added: added})
}

// Do runs a command on the loop and waits for its result
func (e *Engine) Do(ctx context.Context, cmd Command) (CommandResult, error) {
	reply := make(chan CommandResult, 1)
	if err := e.send(ctx, commandEvent{cmd: cmd, reply: reply}); err != nil {
		return CommandResult{}, err
	}
	select {
	case res := <-reply:
		return res, nil
	case <-ctx.Done():
		return CommandResult{}, ctx.Err()
	case <-e.done:
		return CommandResult{}, ErrEngineStopped
	}
}

// Reset clears all in-memory capture state and forgets the current session
func (e *Engine) Reset(ctx context.Context) error {
	_, err := e.Do(ctx, Command{Type: CmdResetState})
	return err
}

func (e *Engine) send(ctx context.Context, ev any) error {
	select {
	case e.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-e.done:
		return ErrEngineStopped
	}
}

// post is used by timers and suggestion goroutines
func (e *Engine) post(ev any) {
	select {
	case e.events <- ev:
	case <-e.done:
	}
}

func (e *Engine) dispatch(ev any) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered while handling engine event")
		}
	}()

	switch ev := ev.(type) {
	case pageEvent:
		e.handlePage(ev)
	case timerEvent:
		e.handleTimer(ev)
	case suggestionEvent:
		e.handleSuggestion(ev)
	case commandEvent:
		ev.reply <- e.handleCommand(ev.cmd)
	}
}

func (e *Engine) handlePage(ev pageEvent) {
	if ev.page == nil {
		return
	}
	e.page = ev.page

	if !e.tracked {
		e.detectChatChange()
	} else {
		e.changeSeq++
		e.schedule(timerChatChange, e.cfg.ChatChangeDebounce, e.changeSeq)
	}

	if !e.initialized {
		return
	}
	// A switch is pending; wait for the debounced check to reset state.
	if e.tracker.Current(ev.page).SessionID != e.session.SessionID {
		return
	}

	for _, n := range e.watcher.Candidates(ev.page, ev.added) {
		e.handleElement(n)
	}
}

func (e *Engine) handleTimer(ev timerEvent) {
	log.Debug().Stringer("timer", ev.kind).Uint64("gen", ev.gen).Msg("timer fired")
	switch ev.kind {
	case timerChatChange:
		if ev.seq == e.changeSeq {
			e.detectChatChange()
		}
	case timerScan:
		if ev.gen == e.generation {
			e.runScan(true)
		}
	case timerEnable:
		if ev.gen == e.generation {
			e.initialized = true
			log.Info().Str("session", e.session.SessionID).Msg("capturing new messages only")
		}
	case timerSuggest:
		if ev.gen == e.generation && ev.seq == e.suggestSeq {
			e.requestSuggestion()
		}
	}
}

// detectChatChange resets capture state when the page shows a different conversation
func (e *Engine) detectChatChange() {
	if e.page == nil {
		return
	}

	info, changed := e.tracker.Observe(e.page)
	e.tracked = true
	if !changed {
		return
	}

	log.Info().
		Str("from", e.session.SessionID).
		Str("session", info.SessionID).
		Msg("chat changed")

	e.resetCapture()
	e.session = info
	e.changedAt = e.now()
	e.schedule(timerScan, e.cfg.SettleDelay, 0)
}

// resetCapture clears per-session state and invalidates pending timers
func (e *Engine) resetCapture() {
	e.generation++
	e.initialized = false
	e.existing = make(map[string]struct{})
	e.recent = e.recent[:0]
	e.lastProcessed = ""
	e.cancel(timerScan)
	e.cancel(timerEnable)
	e.cancel(timerSuggest)
}

// runScan seeds history from the rendered conversation. When enable is set a
// successful scan arms live capture.
func (e *Engine) runScan(enable bool) (*ScanResult, error) {
	res, err := e.scanner.Scan(e.ctx, e.page, e.session)
	if errors.Is(err, ErrContainerNotFound) {
		log.Debug().Str("session", e.session.SessionID).Msg("no chat container found, retrying")
		if enable {
			e.schedule(timerScan, e.cfg.ScanRetryDelay, 0)
		}
		return nil, err
	}
	if res == nil {
		return nil, err
	}

	for k := range res.Existing {
		e.existing[k] = struct{}{}
	}
	for _, k := range res.RecentKeys {
		e.pushRecent(k)
	}

	if err != nil {
		log.Warn().Err(err).Str("session", e.session.SessionID).Msg("storage unavailable, context not saved")
	}
	if enable {
		e.schedule(timerEnable, e.cfg.EnableDelay, 0)
	}
	if err != nil {
		return res, err
	}

	log.Info().
		Str("session", e.session.SessionID).
		Int("existing", len(res.Existing)).
		Int("loaded", len(res.Window)).
		Str("outcome", res.Outcome.String()).
		Msg("loaded conversation context")

	switch res.Outcome {
	case OutcomeSuggest:
		e.requestSuggestion()
	case OutcomeWaiting:
		e.notifier.ShowWaiting()
	}
	return res, nil
}

// handleElement runs one candidate node through classify, dedupe and store
func (e *Engine) handleElement(n Node) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered while inspecting node")
		}
	}()

	container := e.classifier.FindMessageContainer(n)
	if container == nil {
		container = n
	}

	c := e.classifier.Classify(container)
	if !c.IsBubble {
		return
	}

	key := ExistingKey(e.session.SessionID, c.Text)
	if _, ok := e.existing[key]; ok {
		return
	}
	if e.seen(key) {
		return
	}
	e.pushRecent(key)

	now := e.now()
	ts, ok := ParseTimestampAttr(container, e.cfg.Profile.AnnotationAttr, now)
	if !ok {
		ts = now.UnixMilli()
	}

	msg := NormalizeMessage(Message{
		Text:      c.Text,
		Timestamp: ts,
		Direction: c.Direction,
		Platform:  e.cfg.Profile.Platform,
		SessionID: e.session.SessionID,
		ChatTitle: e.session.ChatTitle,
		ReplyTo:   e.classifier.ExtractReplyTo(container),
	}, now)

	saved, err := e.store.Append(e.ctx, msg)
	switch {
	case err != nil:
		log.Warn().Err(err).Msg("storage unavailable, skipping save")
	case !saved:
		log.Debug().Str("session", msg.SessionID).Msg("skipped duplicate")
	default:
		log.Info().
			Str("session", msg.SessionID).
			Str("direction", string(msg.Direction)).
			Str("text", truncate(msg.Text, suggestionKeyLength)).
			Msg("new message saved")
	}

	if msg.Direction == DirectionIncoming {
		triggerKey := truncate(msg.Text, suggestionKeyLength) + "_" + strconv.FormatInt(msg.Timestamp, 10)
		if triggerKey == e.lastProcessed {
			log.Debug().Msg("skipping repeated suggestion trigger")
			return
		}
		e.lastProcessed = triggerKey
		e.suggestSeq++
		e.schedule(timerSuggest, e.cfg.SuggestDebounce, e.suggestSeq)
		return
	}

	recent, err := e.store.SessionMessages(e.ctx, e.session.SessionID)
	if err != nil {
		log.Warn().Err(err).Msg("storage unavailable, cannot check recent messages")
		return
	}
	if len(recent) > e.cfg.RecentLimit {
		recent = recent[:e.cfg.RecentLimit]
	}
	if !HasIncoming(recent) {
		e.notifier.ShowWaiting()
	}
}

// requestSuggestion asks for a reply to the session's newest message. Requests
// closer together than the rate limit are dropped.
func (e *Engine) requestSuggestion() {
	if e.coordinator == nil {
		return
	}

	now := e.now()
	if !e.lastRequest.IsZero() && now.Sub(e.lastRequest) < e.cfg.RateLimit {
		log.Debug().Msg("rate limited, skipping suggestion request")
		return
	}

	enabled, err := ReadFlag(e.ctx, e.kv, KeyEnabled)
	if err != nil {
		log.Warn().Err(err).Msg("could not read enabled flag")
		return
	}
	if !enabled {
		log.Debug().Msg("suggestions disabled")
		return
	}

	mode, err := ReadFlag(e.ctx, e.kv, KeyMode)
	if err != nil {
		log.Warn().Err(err).Msg("could not read mode flag")
	}
	endpoint := e.cfg.GeneralEndpoint
	if mode {
		endpoint = e.cfg.ReplyEndpoint
	}

	history, err := e.store.SessionMessages(e.ctx, e.session.SessionID)
	if err != nil {
		log.Warn().Err(err).Msg("storage unavailable, skipping suggestion")
		return
	}
	if len(history) == 0 {
		return
	}

	current, contextWindow := SplitWindow(history, e.store.Limit())
	e.lastRequest = now
	e.notifier.ShowLoading()

	gen := e.generation
	ctx := e.ctx
	go func() {
		s, err := e.coordinator.RequestSuggestion(ctx, current, contextWindow, WithEndpoint(endpoint))
		e.post(suggestionEvent{gen: gen, suggestion: s, err: err})
	}()
}

func (e *Engine) handleSuggestion(ev suggestionEvent) {
	if ev.gen != e.generation {
		log.Debug().Msg("dropping suggestion for a previous chat")
		return
	}
	if ev.err != nil {
		log.Warn().Err(ev.err).Msg("suggestion request failed")
		e.notifier.ShowError(ev.err)
		return
	}
	e.notifier.ShowSuggestions(SplitSuggestions(ev.suggestion.Suggestion))
}

// SplitWindow turns newest-first history into the current message and up to
// limit-1 earlier messages in chronological order.
func SplitWindow(newestFirst []Message, limit int) (Message, []Message) {
	if len(newestFirst) == 0 {
		return Message{}, nil
	}
	if limit > 0 && len(newestFirst) > limit {
		newestFirst = newestFirst[:limit]
	}
	rest := newestFirst[1:]
	contextWindow := make([]Message, len(rest))
	for i, m := range rest {
		contextWindow[len(rest)-1-i] = m
	}
	return newestFirst[0], contextWindow
}

func (e *Engine) seen(key string) bool {
	for _, k := range e.recent {
		if k == key {
			return true
		}
	}
	return false
}

func (e *Engine) pushRecent(key string) {
	e.recent = append([]string{key}, e.recent...)
	if len(e.recent) > e.cfg.RecentLimit {
		e.recent = e.recent[:e.cfg.RecentLimit]
	}
}

// schedule (re)arms a timer that posts back into the loop
func (e *Engine) schedule(kind timerKind, d time.Duration, seq uint64) {
	e.cancel(kind)
	ev := timerEvent{kind: kind, gen: e.generation, seq: seq}
	e.timers[kind] = time.AfterFunc(d, func() { e.post(ev) })
}

func (e *Engine) cancel(kind timerKind) {
	if t, ok := e.timers[kind]; ok {
		t.Stop()
		delete(e.timers, kind)
	}
}

func (e *Engine) stopTimers() {
	for kind := range e.timers {
		e.cancel(kind)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
