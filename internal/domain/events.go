package domain

import "time"

// Event is the envelope every broadcast message travels in.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Broadcast event types.
const (
	EventSessionState    = "sessionStateUpdated"
	EventQuestionStarted = "questionStarted"
	EventQuestionEnded   = "questionEnded"
	EventSessionCreated  = "sessionCreated"
)

// PlayerState is the per-player block of a session state snapshot.
type PlayerState struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Score       int    `json:"score"`
	HasAnswered bool   `json:"hasAnswered"`
}

// QuestionBlock describes the currently live question.
type QuestionBlock struct {
	Text            string    `json:"text"`
	Options         []string  `json:"options"`
	DurationSeconds int       `json:"durationSeconds"`
	StartTimeUTC    time.Time `json:"startTimeUtc"`
}

// UpcomingBlock announces a scheduled question so clients can render a
// synchronized countdown.
type UpcomingBlock struct {
	Text             string    `json:"text"`
	Options          []string  `json:"options"`
	NextStartTimeUTC time.Time `json:"nextStartTimeUtc"`
}

// SessionStateEvent is the full snapshot pushed after every mutation.
type SessionStateEvent struct {
	SessionID string         `json:"sessionId"`
	Host      string         `json:"host,omitempty"`
	Players   []PlayerState  `json:"players"`
	Question  *QuestionBlock `json:"question,omitempty"`
	Upcoming  *UpcomingBlock `json:"upcoming,omitempty"`
	Finished  bool           `json:"finished"`
}

// QuestionStartedEvent fires when a question goes live.
type QuestionStartedEvent struct {
	Text            string    `json:"text"`
	Options         []string  `json:"options"`
	DurationSeconds int       `json:"durationSeconds"`
	StartTimeUTC    time.Time `json:"startTimeUtc"`
}

// AnswerReview exposes one player's submission for host review.
type AnswerReview struct {
	PlayerName          string  `json:"playerName"`
	OptionIndex         int     `json:"optionIndex"`
	ResponseTimeSeconds float64 `json:"responseTimeSeconds"`
}

// LeaderboardRow is one row of the capped leaderboard snapshot.
type LeaderboardRow struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// QuestionEndedEvent carries the per-question results.
type QuestionEndedEvent struct {
	CorrectIndex int              `json:"correctIndex"`
	OptionCounts []int            `json:"optionCounts"`
	Leaderboard  []LeaderboardRow `json:"leaderboard"`
	Answers      []AnswerReview   `json:"answers"`
}
