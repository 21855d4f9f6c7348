package scoring

import (
	"math"
	"sort"
)

const (
	rankMin = 700
	rankMax = 1000
	// rankBonus shapes the decay; higher values favour earlier answers.
	rankBonus = 1.0
)

// ranking orders each question's correct respondents by response time and
// decays the award by rank relative to the player count.
type ranking struct{}

func (ranking) scoreQuestion(in Input, pos int) {
	q, ok := in.Session.QuestionAt(pos)
	if !ok || len(in.Players) == 0 {
		return
	}

	answers := in.answersFor(q.ID)
	sort.Slice(answers, func(i, j int) bool {
		return answers[i].ResponseTime < answers[j].ResponseTime
	})

	rank := 1
	for _, a := range answers {
		if !isCorrect(q, a) {
			a.Points = 0
			continue
		}
		performance := float64(rank) / float64(len(in.Players))
		shaped := 1 - math.Pow(performance, rankBonus)
		a.Points = bandScore(rankMin, rankMax, shaped)
		rank++
	}
}
