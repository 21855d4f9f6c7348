package app

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"quizhub/internal/domain"
	"quizhub/internal/scoring"
)

// Options tunes orchestrator behaviour; zero values fall back to defaults.
type Options struct {
	// QuestionDuration is how long each question stays live.
	QuestionDuration time.Duration
	// LeaderboardCap bounds the leaderboard snapshot in results events.
	LeaderboardCap int
	// ShuffleQuestions randomizes the question order fixed at session
	// creation; otherwise authored order is kept.
	ShuffleQuestions bool
	// DefaultScoring is the strategy assigned to new sessions.
	DefaultScoring domain.ScoringKind
	// PinAttempts bounds collision retries when allocating a PIN.
	PinAttempts int
}

const (
	defaultQuestionDuration = 10 * time.Second
	defaultLeaderboardCap   = 50
	defaultPinAttempts      = 50
)

func (o Options) withDefaults() Options {
	if o.QuestionDuration <= 0 {
		o.QuestionDuration = defaultQuestionDuration
	}
	if o.LeaderboardCap <= 0 {
		o.LeaderboardCap = defaultLeaderboardCap
	}
	if o.DefaultScoring == "" {
		o.DefaultScoring = domain.ScoringFixed
	}
	if o.PinAttempts <= 0 {
		o.PinAttempts = defaultPinAttempts
	}
	return o
}

// Orchestrator drives live sessions: it validates host and player actions
// against runtime state, applies the mutation, delegates scoring, and
// broadcasts the outcome. All collaborators are constructor-injected.
type Orchestrator struct {
	registry SessionRegistry
	quizzes  QuizRepository
	sessions SessionStore
	players  PlayerRepository
	accounts AccountResolver
	opts     Options
	now      func() time.Time
}

// NewOrchestrator wires the orchestrator to its collaborators.
func NewOrchestrator(registry SessionRegistry, quizzes QuizRepository, sessions SessionStore, players PlayerRepository, accounts AccountResolver, opts Options) *Orchestrator {
	return &Orchestrator{
		registry: registry,
		quizzes:  quizzes,
		sessions: sessions,
		players:  players,
		accounts: accounts,
		opts:     opts.withDefaults(),
		now:      time.Now,
	}
}

// WithClock is test-only for deterministic timestamps.
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// CreateAndClaimSession allocates a fresh PIN, persists a session for the
// quiz with its question order fixed, and claims the caller as host.
func (o *Orchestrator) CreateAndClaimSession(ctx context.Context, connID, hostRef string, quizID uuid.UUID) (string, error) {
	host, err := o.accounts.Resolve(ctx, hostRef)
	if err != nil {
		return "", err
	}

	quiz, err := o.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return "", err
	}
	if err := quiz.Validate(); err != nil {
		return "", err
	}

	pin, err := o.allocatePin(ctx)
	if err != nil {
		return "", err
	}

	order := make([]int, len(quiz.Questions))
	for i := range order {
		order[i] = i
	}
	if o.opts.ShuffleQuestions {
		rand.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	}

	session := &domain.Session{
		ID:            uuid.New(),
		PIN:           pin,
		State:         domain.StateLobby,
		HostAccountID: host.ID,
		QuizID:        quiz.ID,
		Quiz:          &quiz,
		QuestionOrder: order,
		Scoring:       o.opts.DefaultScoring,
	}
	if err := o.sessions.CreateSession(ctx, session); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}

	runtime, err := o.registry.GetOrCreate(pin, func() (*domain.Session, error) {
		return session, nil
	})
	if err != nil {
		return "", err
	}
	runtime.ClaimHost(connID)
	o.broadcastState(ctx, pin, runtime)
	return pin, nil
}

func (o *Orchestrator) allocatePin(ctx context.Context) (string, error) {
	for attempt := 0; attempt < o.opts.PinAttempts; attempt++ {
		pin := GeneratePin()
		if _, err := o.sessions.SessionByPIN(ctx, pin); err == domain.ErrSessionNotFound {
			return pin, nil
		} else if err != nil {
			return "", fmt.Errorf("check pin: %w", err)
		}
	}
	return "", domain.ErrPinSpaceExhausted
}

// ClaimHost attaches the connection as host of an existing session. The
// session must already exist; hosts never silently fabricate one.
func (o *Orchestrator) ClaimHost(ctx context.Context, pin, connID string) error {
	runtime, pin, err := o.ensureRuntime(ctx, pin)
	if err != nil {
		return err
	}
	runtime.ClaimHost(connID)
	o.broadcastState(ctx, pin, runtime)
	return nil
}

// JoinAsPlayer registers (or refreshes) a player in a session. The account
// must resolve; display names are made collision-safe within the session.
func (o *Orchestrator) JoinAsPlayer(ctx context.Context, pin, connID, name, accountRef string) error {
	if NormalizePin(pin) == "" {
		return domain.ErrPinRequired
	}
	if name == "" {
		return domain.ErrNameRequired
	}

	account, err := o.accounts.Resolve(ctx, accountRef)
	if err != nil {
		return err
	}

	runtime, pin, err := o.ensureRuntime(ctx, pin)
	if err != nil {
		return err
	}
	session := runtime.Session()

	player, err := o.findOrCreatePlayer(ctx, session.ID, account.ID, name)
	if err != nil {
		return err
	}

	runtime.RegisterPlayer(connID, player.ID)
	o.broadcastState(ctx, pin, runtime)
	return nil
}

// findOrCreatePlayer reuses the player row for (session, account), updating
// its display name when changed; otherwise it creates one with a
// collision-suffixed name ("Alex (2)").
func (o *Orchestrator) findOrCreatePlayer(ctx context.Context, sessionID, accountID uuid.UUID, name string) (*domain.Player, error) {
	existing, err := o.players.PlayerByAccount(ctx, sessionID, accountID)
	if err != nil && err != domain.ErrPlayerNotRegistered {
		return nil, err
	}
	if existing != nil {
		if existing.Name != name {
			existing.Name = name
			if err := o.players.SavePlayer(ctx, existing); err != nil {
				return nil, fmt.Errorf("rename player: %w", err)
			}
		}
		return existing, nil
	}

	others, err := o.players.PlayersForSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	taken := make(map[string]struct{}, len(others))
	for _, p := range others {
		taken[p.Name] = struct{}{}
	}
	candidate := name
	for i := 2; ; i++ {
		if _, clash := taken[candidate]; !clash {
			break
		}
		candidate = fmt.Sprintf("%s (%d)", name, i)
	}

	player := &domain.Player{
		ID:        uuid.New(),
		SessionID: sessionID,
		AccountID: accountID,
		Name:      candidate,
	}
	if err := o.players.SavePlayer(ctx, player); err != nil {
		return nil, fmt.Errorf("create player: %w", err)
	}
	return player, nil
}

// ScheduleNextQuestion records an upcoming start time, broadcasts it for
// countdown rendering, and arms a one-shot timer that begins the question
// with server-computed state. Arming cancels any previously armed schedule
// timer for the session.
func (o *Orchestrator) ScheduleNextQuestion(ctx context.Context, pin string, inSeconds int, _ int) error {
	runtime, pin, err := o.ensureRuntime(ctx, pin)
	if err != nil {
		return err
	}
	if state := runtime.State(); state == domain.StateCompleted || state == domain.StateCancelled {
		return domain.ErrSessionOver
	}

	if inSeconds < 0 {
		inSeconds = 0
	}
	delay := time.Duration(inSeconds) * time.Second
	start := o.now().Add(delay)

	timerCtx, cancel := context.WithCancel(context.Background())
	runtime.setUpcoming(start, cancel)
	o.broadcastState(ctx, pin, runtime)

	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timerCtx.Done():
			return
		case <-timer.C:
		}
		if err := o.beginScheduled(context.Background(), pin); err != nil {
			log.Printf("session %s: begin scheduled question: %v", pin, err)
		}
	}()
	return nil
}

// beginScheduled decides the next index from server state, so stale or
// duplicate scheduling calls cannot skip or replay questions, and starts
// it with the configured duration.
func (o *Orchestrator) beginScheduled(ctx context.Context, pin string) error {
	runtime, ok := o.registry.TryGet(pin)
	if !ok {
		return domain.ErrSessionNotFound
	}
	count := runtime.Session().QuestionCount()
	if count == 0 {
		return domain.ErrInvalidQuiz
	}
	next := runtime.currentIndex() + 1
	if next > count-1 {
		next = count - 1
	}
	if next < 0 {
		next = 0
	}
	return o.BeginQuestion(ctx, pin, next, o.opts.QuestionDuration)
}

// BeginQuestion makes the question at index live for duration d: clears the
// upcoming marker and answered set, broadcasts the question, and arms an
// auto-end timer gated by this question instance's epoch.
func (o *Orchestrator) BeginQuestion(ctx context.Context, pin string, index int, d time.Duration) error {
	runtime, pin, err := o.ensureRuntime(ctx, pin)
	if err != nil {
		return err
	}
	if state := runtime.State(); state == domain.StateCompleted || state == domain.StateCancelled {
		return domain.ErrSessionOver
	}
	session := runtime.Session()
	question, ok := session.QuestionAt(index)
	if !ok {
		return domain.ErrOptionOutOfRange
	}
	if d <= 0 {
		d = o.opts.QuestionDuration
	}

	epoch, start := runtime.beginQuestion(index, d)

	runtime.Broadcast(domain.Event{Type: domain.EventQuestionStarted, Payload: domain.QuestionStartedEvent{
		Text:            question.Text,
		Options:         question.OptionTexts(),
		DurationSeconds: int(d / time.Second),
		StartTimeUTC:    start.UTC(),
	}})
	o.broadcastState(ctx, pin, runtime)

	timerCtx, cancel := context.WithCancel(context.Background())
	if !runtime.armAutoEnd(epoch, cancel) {
		// A competing transition already replaced this instance.
		cancel()
		return nil
	}
	go func() {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timerCtx.Done():
			return
		case <-timer.C:
		}
		if err := o.endQuestion(context.Background(), pin, epoch); err != nil {
			log.Printf("session %s: auto-end question: %v", pin, err)
		}
	}()
	return nil
}

// SubmitAnswer records a player's answer to the live question. Duplicate
// submissions and submissions after the question closed are silent no-ops;
// unknown connections and out-of-range options are errors.
func (o *Orchestrator) SubmitAnswer(ctx context.Context, pin, connID string, optionIndex int) error {
	if NormalizePin(pin) == "" {
		return domain.ErrPinRequired
	}
	runtime, ok := o.registry.TryGet(NormalizePin(pin))
	if !ok {
		return domain.ErrSessionNotFound
	}
	pin = NormalizePin(pin)

	playerID, registered := runtime.PlayerForConn(connID)
	if !registered {
		return domain.ErrPlayerNotRegistered
	}

	index, start, epoch, live := runtime.liveQuestion()
	if !live {
		// Question already ended; late submissions are absorbed.
		return nil
	}

	session := runtime.Session()
	question, ok := session.QuestionAt(index)
	if !ok {
		return nil
	}
	options := question.OrderedAnswers()
	if optionIndex < 0 || optionIndex >= len(options) {
		return domain.ErrOptionOutOfRange
	}

	// Response time is measured against the question's own start.
	responseTime := o.now().Sub(start)
	if responseTime < 0 {
		responseTime = 0
	}

	if !runtime.tryMarkAnswered(playerID, epoch) {
		return nil
	}

	answer := &domain.PlayerAnswer{
		ID:           uuid.New(),
		PlayerID:     playerID,
		QuestionID:   question.ID,
		AnswerID:     options[optionIndex].ID,
		ResponseTime: responseTime,
	}
	if err := o.players.AddPlayerAnswer(ctx, answer); err != nil {
		runtime.unmarkAnswered(playerID)
		return fmt.Errorf("record answer: %w", err)
	}

	o.broadcastState(ctx, pin, runtime)

	if runtime.allAnswered() {
		return o.endQuestion(ctx, pin, epoch)
	}
	return nil
}

// EndCurrentQuestion closes the live question from the manual path. Ending
// an already-ended question is a no-op, not an error.
func (o *Orchestrator) EndCurrentQuestion(ctx context.Context, pin string) error {
	runtime, pin, err := o.ensureRuntime(ctx, pin)
	if err != nil {
		return err
	}
	return o.endQuestion(ctx, pin, runtime.currentEpoch())
}

// endQuestion is the single close path shared by the manual call, the
// auto-end timer, and the all-answered fast path. The epoch claim decides
// the one winner; losers return nil having done nothing.
func (o *Orchestrator) endQuestion(ctx context.Context, pin string, epoch int) error {
	runtime, ok := o.registry.TryGet(pin)
	if !ok {
		return domain.ErrSessionNotFound
	}

	index, won := runtime.claimEnd(epoch)
	if !won {
		return nil
	}

	session := runtime.Session()
	question, ok := session.QuestionAt(index)
	if !ok {
		runtime.Broadcast(domain.Event{Type: domain.EventQuestionEnded, Payload: domain.QuestionEndedEvent{
			CorrectIndex: -1,
			OptionCounts: []int{},
			Leaderboard:  []domain.LeaderboardRow{},
			Answers:      []domain.AnswerReview{},
		}})
		o.broadcastState(ctx, pin, runtime)
		return nil
	}

	players, err := o.players.PlayersForSession(ctx, session.ID)
	if err != nil {
		return fmt.Errorf("load players: %w", err)
	}
	sessionAnswers, err := o.players.AnswersForSession(ctx, session.ID)
	if err != nil {
		return fmt.Errorf("load answers: %w", err)
	}

	strategy, err := scoring.New(session.Scoring)
	if err != nil {
		return err
	}
	input := scoring.Input{Session: session, Players: players, Answers: sessionAnswers}
	strategy.ScoreQuestion(input, index)

	questionAnswers := make([]*domain.PlayerAnswer, 0, len(players))
	for _, a := range sessionAnswers {
		if a.QuestionID == question.ID {
			questionAnswers = append(questionAnswers, a)
		}
	}
	if err := o.players.SavePoints(ctx, questionAnswers); err != nil {
		return fmt.Errorf("persist points: %w", err)
	}
	for _, a := range questionAnswers {
		runtime.addScore(a.PlayerID, a.Points)
	}

	runtime.Broadcast(domain.Event{
		Type:    domain.EventQuestionEnded,
		Payload: o.buildResults(question, players, questionAnswers, strategy.Leaderboard(input)),
	})

	if index >= session.QuestionCount()-1 {
		if err := o.completeSession(ctx, runtime, input, strategy); err != nil {
			return err
		}
	}
	o.broadcastState(ctx, pin, runtime)
	return nil
}

// completeSession finalizes scoring once the last ordered question ended:
// state flips to Completed, the strategy runs its full authoritative pass,
// and the final points are persisted.
func (o *Orchestrator) completeSession(ctx context.Context, runtime *Runtime, input scoring.Input, strategy scoring.Strategy) error {
	session := runtime.Session()
	runtime.finalizeScoring(func() {
		strategy.ScoreSession(input)
	})

	if err := o.players.SavePoints(ctx, input.Answers); err != nil {
		return fmt.Errorf("persist final points: %w", err)
	}
	if err := o.sessions.SaveSession(ctx, session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	totals := make(map[uuid.UUID]int, len(input.Players))
	for _, a := range input.Answers {
		totals[a.PlayerID] += a.Points
	}
	runtime.setScores(totals)
	return nil
}

// CancelSession aborts a session: timers are invalidated, state flips to
// Cancelled, and the final snapshot is broadcast.
func (o *Orchestrator) CancelSession(ctx context.Context, pin string) error {
	runtime, pin, err := o.ensureRuntime(ctx, pin)
	if err != nil {
		return err
	}
	runtime.cancelTimers()
	runtime.setState(domain.StateCancelled)

	session := runtime.Session()
	if err := o.sessions.SaveSession(ctx, session); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	o.broadcastState(ctx, pin, runtime)
	return nil
}

// PublishState rebroadcasts the current session snapshot. Freshly
// subscribed connections call this for their initial view; everyone else
// just sees one more state update.
func (o *Orchestrator) PublishState(ctx context.Context, pin string) error {
	runtime, pin, err := o.ensureRuntime(ctx, pin)
	if err != nil {
		return err
	}
	o.broadcastState(ctx, pin, runtime)
	return nil
}

// GetQuestionCount reports how many questions the session plays through.
func (o *Orchestrator) GetQuestionCount(ctx context.Context, pin string) (int, error) {
	runtime, _, err := o.ensureRuntime(ctx, pin)
	if err != nil {
		return 0, err
	}
	return runtime.Session().QuestionCount(), nil
}

// Subscribe attaches a listener to a session's broadcast channel.
func (o *Orchestrator) Subscribe(pin string) (<-chan domain.Event, func(), error) {
	runtime, ok := o.registry.TryGet(NormalizePin(pin))
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, cancel := runtime.Subscribe()
	return ch, cancel, nil
}

// Disconnect routes a dropped connection to every runtime for cleanup.
func (o *Orchestrator) Disconnect(connID string) {
	o.registry.RemoveConnection(connID)
}

// ensureRuntime resolves pin to a runtime, materializing one from the
// durable store when the process has not seen the session yet. A missing
// session row fails loudly.
func (o *Orchestrator) ensureRuntime(ctx context.Context, pin string) (*Runtime, string, error) {
	pin = NormalizePin(pin)
	if pin == "" {
		return nil, "", domain.ErrPinRequired
	}
	runtime, err := o.registry.GetOrCreate(pin, func() (*domain.Session, error) {
		session, err := o.sessions.SessionByPIN(ctx, pin)
		if err != nil {
			return nil, err
		}
		if session.Quiz == nil {
			quiz, err := o.quizzes.GetQuiz(ctx, session.QuizID)
			if err != nil {
				return nil, err
			}
			session.Quiz = &quiz
		}
		return session, nil
	})
	if err != nil {
		return nil, "", err
	}
	return runtime, pin, nil
}
