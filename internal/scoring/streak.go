package scoring

import (
	"math"

	"github.com/google/uuid"
)

const (
	streakMin = 100
	streakMax = 1000
)

// streak replays each player's answers in the session's recorded question
// order and grows the award with their run of consecutive correct answers.
// The run resets on an incorrect or missing answer.
type streak struct{}

func (streak) scoreQuestion(in Input, pos int) {
	q, ok := in.Session.QuestionAt(pos)
	if !ok {
		return
	}
	total := in.Session.QuestionCount()
	if total == 0 {
		return
	}

	for _, a := range in.answersFor(q.ID) {
		if !isCorrect(q, a) {
			a.Points = 0
			continue
		}
		run := runLengthAt(in, a.PlayerID, pos)
		shaped := (1 - math.Cos(math.Pi*float64(run)/float64(total))) / 2
		a.Points = bandScore(streakMin, streakMax, shaped)
	}
}

// runLengthAt replays positions 0..pos of the session order for one player
// and returns their streak value at pos.
func runLengthAt(in Input, playerID uuid.UUID, pos int) int {
	run := 0
	for p := 0; p <= pos; p++ {
		q, ok := in.Session.QuestionAt(p)
		if !ok {
			continue
		}
		a := in.answerByPlayer(playerID, q.ID)
		if a == nil || !isCorrect(q, a) {
			run = 0
			continue
		}
		run++
	}
	return run
}
