package scoring

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"quizhub/internal/domain"
)

// Input is everything a strategy needs: the session (with quiz and question
// order attached), its players, and every PlayerAnswer recorded so far.
type Input struct {
	Session *domain.Session
	Players []*domain.Player
	Answers []*domain.PlayerAnswer
}

// Strategy assigns points to player answers and ranks players. Strategies
// mutate PlayerAnswer.Points in place; totals are always derived by summing
// those points.
type Strategy interface {
	// ScoreQuestion scores the answers of the question at position pos of
	// the session's fixed question order.
	ScoreQuestion(in Input, pos int)
	// ScoreSession runs a full scoring pass over every question. It is a
	// no-op while the session is still in progress or once scoring is
	// complete.
	ScoreSession(in Input)
	// Leaderboard ranks every player by total score, ties broken by name.
	Leaderboard(in Input) []domain.LeaderboardEntry
}

// questionScorer is the single method each concrete strategy supplies; the
// session pass and leaderboard are shared.
type questionScorer interface {
	scoreQuestion(in Input, pos int)
}

type strategy struct {
	questionScorer
}

func (s strategy) ScoreQuestion(in Input, pos int) {
	s.scoreQuestion(in, pos)
}

func (s strategy) ScoreSession(in Input) {
	sess := in.Session
	if sess == nil || sess.State == domain.StateInProgress || sess.ScoringComplete {
		return
	}
	for pos := range sess.QuestionOrder {
		s.scoreQuestion(in, pos)
	}
	sess.ScoringComplete = true
}

func (s strategy) Leaderboard(in Input) []domain.LeaderboardEntry {
	totals := in.totals()
	entries := make([]domain.LeaderboardEntry, 0, len(in.Players))
	for _, p := range in.Players {
		entries = append(entries, domain.LeaderboardEntry{
			Name:  p.Name,
			Score: totals[p.ID],
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// New builds the strategy for a scoring kind.
func New(kind domain.ScoringKind) (Strategy, error) {
	switch kind {
	case domain.ScoringFixed, "":
		return strategy{fixed{}}, nil
	case domain.ScoringSpeed:
		return strategy{speed{}}, nil
	case domain.ScoringRanking:
		return strategy{ranking{}}, nil
	case domain.ScoringStreak:
		return strategy{streak{}}, nil
	}
	return nil, fmt.Errorf("unknown scoring kind %q", kind)
}

// answersFor collects the answers submitted for one question.
func (in Input) answersFor(questionID uuid.UUID) []*domain.PlayerAnswer {
	var out []*domain.PlayerAnswer
	for _, a := range in.Answers {
		if a.QuestionID == questionID {
			out = append(out, a)
		}
	}
	return out
}

// answerByPlayer finds one player's answer to one question, if any.
func (in Input) answerByPlayer(playerID, questionID uuid.UUID) *domain.PlayerAnswer {
	for _, a := range in.Answers {
		if a.PlayerID == playerID && a.QuestionID == questionID {
			return a
		}
	}
	return nil
}

func (in Input) totals() map[uuid.UUID]int {
	totals := make(map[uuid.UUID]int, len(in.Players))
	for _, a := range in.Answers {
		totals[a.PlayerID] += a.Points
	}
	return totals
}

// isCorrect resolves whether a recorded answer picked a correct option.
func isCorrect(q domain.Question, a *domain.PlayerAnswer) bool {
	for _, opt := range q.Answers {
		if opt.ID == a.AnswerID {
			return opt.Correct
		}
	}
	return false
}
