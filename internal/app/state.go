package app

import (
	"context"
	"log"
	"sort"
	"time"

	"quizhub/internal/domain"
)

// broadcastState pushes a full session snapshot to every subscriber.
// Players are re-read from the repository so renamed players never show
// stale names.
func (o *Orchestrator) broadcastState(ctx context.Context, pin string, runtime *Runtime) {
	session := runtime.Session()
	players, err := o.players.PlayersForSession(ctx, session.ID)
	if err != nil {
		log.Printf("session %s: load players for snapshot: %v", pin, err)
		players = nil
	}
	runtime.Broadcast(domain.Event{
		Type:    domain.EventSessionState,
		Payload: buildState(pin, session, runtime, players),
	})
}

// buildState shapes the SessionStateUpdated snapshot from the runtime view
// and the fresh player rows.
func buildState(pin string, session *domain.Session, runtime *Runtime, players []*domain.Player) domain.SessionStateEvent {
	view := runtime.view()

	sorted := make([]*domain.Player, len(players))
	copy(sorted, players)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	states := make([]domain.PlayerState, 0, len(sorted))
	for _, p := range sorted {
		states = append(states, domain.PlayerState{
			ID:          p.ID.String(),
			Name:        p.Name,
			Score:       runtime.score(p.ID),
			HasAnswered: runtime.hasAnswered(p.ID),
		})
	}

	event := domain.SessionStateEvent{
		SessionID: pin,
		Players:   states,
		Finished:  view.state == domain.StateCompleted,
	}
	if view.hostConn != "" {
		event.Host = "Host"
	}

	if !view.questionStart.IsZero() {
		if q, ok := session.QuestionAt(view.current); ok {
			event.Question = &domain.QuestionBlock{
				Text:            q.Text,
				Options:         q.OptionTexts(),
				DurationSeconds: int(view.duration / time.Second),
				StartTimeUTC:    view.questionStart.UTC(),
			}
		}
	}

	if !view.upcoming.IsZero() {
		if next, ok := session.QuestionAt(view.current + 1); ok {
			event.Upcoming = &domain.UpcomingBlock{
				Text:             next.Text,
				Options:          next.OptionTexts(),
				NextStartTimeUTC: view.upcoming.UTC(),
			}
		}
	}
	return event
}

// buildResults shapes the QuestionEnded event: the correct option, the
// per-option tallies, the capped leaderboard, and every submission for host
// review.
func (o *Orchestrator) buildResults(question domain.Question, players []*domain.Player, answers []*domain.PlayerAnswer, board []domain.LeaderboardEntry) domain.QuestionEndedEvent {
	options := question.OrderedAnswers()
	indexByAnswer := make(map[string]int, len(options))
	for i, opt := range options {
		indexByAnswer[opt.ID.String()] = i
	}
	nameByPlayer := make(map[string]string, len(players))
	for _, p := range players {
		nameByPlayer[p.ID.String()] = p.Name
	}

	counts := make([]int, len(options))
	reviews := make([]domain.AnswerReview, 0, len(answers))
	for _, a := range answers {
		idx, ok := indexByAnswer[a.AnswerID.String()]
		if !ok {
			continue
		}
		counts[idx]++
		reviews = append(reviews, domain.AnswerReview{
			PlayerName:          nameByPlayer[a.PlayerID.String()],
			OptionIndex:         idx,
			ResponseTimeSeconds: a.ResponseTime.Seconds(),
		})
	}

	if len(board) > o.opts.LeaderboardCap {
		board = board[:o.opts.LeaderboardCap]
	}
	rows := make([]domain.LeaderboardRow, 0, len(board))
	for _, entry := range board {
		rows = append(rows, domain.LeaderboardRow{Name: entry.Name, Score: entry.Score})
	}

	return domain.QuestionEndedEvent{
		CorrectIndex: question.CorrectIndex(),
		OptionCounts: counts,
		Leaderboard:  rows,
		Answers:      reviews,
	}
}
