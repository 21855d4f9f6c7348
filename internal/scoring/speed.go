package scoring

import (
	"math"
	"time"
)

const (
	speedMin    = 500
	speedMax    = 1000
	speedCutoff = 10 * time.Second
	// speedBonus shapes the decay; >1 keeps early answers near max longer.
	speedBonus = 1.5
)

// speed rewards correct answers by how quickly they arrived: max at instant
// response, decaying to min at the cutoff.
type speed struct{}

func (speed) scoreQuestion(in Input, pos int) {
	q, ok := in.Session.QuestionAt(pos)
	if !ok {
		return
	}
	for _, a := range in.answersFor(q.ID) {
		if !isCorrect(q, a) {
			a.Points = 0
			continue
		}
		t := clamp01(a.ResponseTime.Seconds() / speedCutoff.Seconds())
		shaped := math.Pow(1-t, speedBonus)
		a.Points = bandScore(speedMin, speedMax, shaped)
	}
}
