package domain

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SessionState tracks the lifecycle of a quiz session.
type SessionState int

const (
	StateLobby SessionState = iota
	StateInProgress
	StateCompleted
	StateCancelled
)

func (s SessionState) String() string {
	switch s {
	case StateLobby:
		return "lobby"
	case StateInProgress:
		return "in_progress"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	}
	return "unknown"
}

// QuestionType distinguishes multiple-choice questions from short answers.
type QuestionType int

const (
	// MultipleChoice questions carry 1-6 answers, any number incorrect.
	MultipleChoice QuestionType = iota
	// ShortAnswer questions carry exactly one answer; every supplied
	// answer is correct by construction.
	ShortAnswer
)

// ScoringKind selects which scoring strategy a session uses.
type ScoringKind string

const (
	ScoringFixed   ScoringKind = "fixed"
	ScoringSpeed   ScoringKind = "speed"
	ScoringRanking ScoringKind = "ranking"
	ScoringStreak  ScoringKind = "streak"
)

// Answer is one option of a question.
type Answer struct {
	ID      uuid.UUID `json:"id"`
	Text    string    `json:"text"`
	Correct bool      `json:"correct"`
}

// Question is a prompt plus its answer set. Immutable once a session is in
// progress.
type Question struct {
	ID      uuid.UUID    `json:"id"`
	Text    string       `json:"text"`
	Type    QuestionType `json:"type"`
	Answers []Answer     `json:"answers"`
}

// OrderedAnswers returns the answers sorted lexically by text. All option
// indices exchanged with clients refer to this ordering.
func (q Question) OrderedAnswers() []Answer {
	out := make([]Answer, len(q.Answers))
	copy(out, q.Answers)
	sort.Slice(out, func(i, j int) bool { return out[i].Text < out[j].Text })
	return out
}

// CorrectIndex returns the index of the first correct answer within
// OrderedAnswers, or -1 if none is marked correct.
func (q Question) CorrectIndex() int {
	for i, a := range q.OrderedAnswers() {
		if a.Correct {
			return i
		}
	}
	return -1
}

// OptionTexts returns the ordered, trimmed option texts for broadcasting.
func (q Question) OptionTexts() []string {
	answers := q.OrderedAnswers()
	out := make([]string, 0, len(answers))
	for _, a := range answers {
		text := strings.TrimSpace(a.Text)
		if text == "" {
			continue
		}
		out = append(out, text)
	}
	return out
}

// Validate checks the per-type answer constraints.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return ErrInvalidQuiz
	}
	switch q.Type {
	case MultipleChoice:
		if len(q.Answers) < 1 || len(q.Answers) > 6 {
			return ErrInvalidQuiz
		}
		if q.CorrectIndex() < 0 {
			return ErrInvalidQuiz
		}
	case ShortAnswer:
		if len(q.Answers) != 1 || !q.Answers[0].Correct {
			return ErrInvalidQuiz
		}
	default:
		return ErrInvalidQuiz
	}
	return nil
}

// Quiz is the authored content a session plays through.
type Quiz struct {
	ID        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	AuthorID  uuid.UUID  `json:"authorId"`
	Questions []Question `json:"questions"`
}

// Validate checks the quiz has a title and at least one valid question.
func (q Quiz) Validate() error {
	if strings.TrimSpace(q.Title) == "" || len(q.Questions) == 0 {
		return ErrInvalidQuiz
	}
	for _, question := range q.Questions {
		if err := question.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Account is the durable identity behind a session-scoped player.
type Account struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
}

// Player is a session-scoped identity; its name is unique within a session.
type Player struct {
	ID        uuid.UUID `json:"id"`
	SessionID uuid.UUID `json:"sessionId"`
	AccountID uuid.UUID `json:"accountId"`
	Name      string    `json:"name"`
}

// PlayerAnswer is the immutable fact of one player answering one question.
// Points stays 0 until the question ends and the scoring strategy runs.
// At most one exists per (player, question) pair.
type PlayerAnswer struct {
	ID           uuid.UUID     `json:"id"`
	PlayerID     uuid.UUID     `json:"playerId"`
	QuestionID   uuid.UUID     `json:"questionId"`
	AnswerID     uuid.UUID     `json:"answerId"`
	ResponseTime time.Duration `json:"responseTime"`
	Points       int           `json:"points"`
}

// Session is the durable record of one live quiz run. QuestionOrder is the
// permutation of quiz question indices fixed when the session is created;
// all replay and streak calculations follow it, never a later re-fetch
// order.
type Session struct {
	ID              uuid.UUID    `json:"id"`
	PIN             string       `json:"pin"`
	State           SessionState `json:"state"`
	HostAccountID   uuid.UUID    `json:"hostAccountId"`
	QuizID          uuid.UUID    `json:"quizId"`
	Quiz            *Quiz        `json:"quiz,omitempty"`
	QuestionOrder   []int        `json:"questionOrder"`
	Scoring         ScoringKind  `json:"scoring"`
	ScoringComplete bool         `json:"scoringComplete"`
}

// QuestionCount reports how many questions the session plays through.
func (s *Session) QuestionCount() int {
	return len(s.QuestionOrder)
}

// QuestionAt resolves the question at a position of the session's fixed
// order. ok is false when the position is out of range or the quiz is not
// attached.
func (s *Session) QuestionAt(pos int) (Question, bool) {
	if s.Quiz == nil || pos < 0 || pos >= len(s.QuestionOrder) {
		return Question{}, false
	}
	idx := s.QuestionOrder[pos]
	if idx < 0 || idx >= len(s.Quiz.Questions) {
		return Question{}, false
	}
	return s.Quiz.Questions[idx], true
}

// LeaderboardEntry is one ranked row of a session leaderboard.
type LeaderboardEntry struct {
	Name  string `json:"name"`
	Rank  int    `json:"rank"`
	Score int    `json:"score"`
}
