package scoring

// fixedPoints is what every correct answer is worth under fixed scoring.
const fixedPoints = 1000

// fixed awards a constant value per correct answer.
type fixed struct{}

func (fixed) scoreQuestion(in Input, pos int) {
	q, ok := in.Session.QuestionAt(pos)
	if !ok {
		return
	}
	for _, a := range in.answersFor(q.ID) {
		if isCorrect(q, a) {
			a.Points = fixedPoints
		} else {
			a.Points = 0
		}
	}
}
