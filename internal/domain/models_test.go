package domain

import (
	"testing"

	"github.com/google/uuid"
)

func TestOrderedAnswersSortsByText(t *testing.T) {
	q := Question{
		ID:   uuid.New(),
		Text: "Largest planet?",
		Type: MultipleChoice,
		Answers: []Answer{
			{ID: uuid.New(), Text: "Saturn"},
			{ID: uuid.New(), Text: "Jupiter", Correct: true},
			{ID: uuid.New(), Text: "Neptune"},
		},
	}
	ordered := q.OrderedAnswers()
	if ordered[0].Text != "Jupiter" || ordered[1].Text != "Neptune" || ordered[2].Text != "Saturn" {
		t.Fatalf("expected lexical order, got %v", ordered)
	}
	if q.CorrectIndex() != 0 {
		t.Fatalf("expected correct index 0, got %d", q.CorrectIndex())
	}
	// The source slice is left untouched.
	if q.Answers[0].Text != "Saturn" {
		t.Fatalf("source order mutated: %v", q.Answers)
	}
}

func TestOptionTextsSkipsBlanks(t *testing.T) {
	q := Question{
		Answers: []Answer{
			{Text: "  B  "},
			{Text: "   "},
			{Text: "A", Correct: true},
		},
	}
	texts := q.OptionTexts()
	if len(texts) != 2 || texts[0] != "A" || texts[1] != "B" {
		t.Fatalf("expected trimmed non-blank options, got %v", texts)
	}
}

func TestQuestionValidate(t *testing.T) {
	base := Question{ID: uuid.New(), Text: "Q", Type: MultipleChoice}

	q := base
	q.Answers = []Answer{{Text: "A", Correct: true}, {Text: "B"}}
	if err := q.Validate(); err != nil {
		t.Fatalf("valid question rejected: %v", err)
	}

	q = base
	q.Answers = []Answer{{Text: "A"}, {Text: "B"}}
	if err := q.Validate(); err == nil {
		t.Fatalf("expected rejection without a correct answer")
	}

	q = base
	q.Answers = []Answer{{Text: "A", Correct: true}}
	for i := 0; i < 6; i++ {
		q.Answers = append(q.Answers, Answer{Text: "X"})
	}
	if err := q.Validate(); err == nil {
		t.Fatalf("expected rejection with more than 6 answers")
	}

	q = base
	q.Type = ShortAnswer
	q.Answers = []Answer{{Text: "A", Correct: true}}
	if err := q.Validate(); err != nil {
		t.Fatalf("valid short answer rejected: %v", err)
	}
	q.Answers = append(q.Answers, Answer{Text: "B", Correct: true})
	if err := q.Validate(); err == nil {
		t.Fatalf("expected rejection of multiple short answer keys")
	}
}

func TestQuizValidate(t *testing.T) {
	quiz := Quiz{ID: uuid.New(), Title: "T", AuthorID: uuid.New()}
	if err := quiz.Validate(); err == nil {
		t.Fatalf("expected rejection of empty quiz")
	}
	quiz.Questions = []Question{{
		ID:      uuid.New(),
		Text:    "Q",
		Type:    MultipleChoice,
		Answers: []Answer{{Text: "A", Correct: true}},
	}}
	if err := quiz.Validate(); err != nil {
		t.Fatalf("valid quiz rejected: %v", err)
	}
}

func TestQuestionAtFollowsOrder(t *testing.T) {
	questions := []Question{
		{ID: uuid.New(), Text: "first"},
		{ID: uuid.New(), Text: "second"},
		{ID: uuid.New(), Text: "third"},
	}
	session := Session{
		Quiz:          &Quiz{Questions: questions},
		QuestionOrder: []int{2, 0, 1},
	}
	if session.QuestionCount() != 3 {
		t.Fatalf("expected 3 questions, got %d", session.QuestionCount())
	}
	q, ok := session.QuestionAt(0)
	if !ok || q.Text != "third" {
		t.Fatalf("expected permuted first question, got %v %v", q.Text, ok)
	}
	if _, ok := session.QuestionAt(3); ok {
		t.Fatalf("expected out-of-range miss")
	}
	if _, ok := session.QuestionAt(-1); ok {
		t.Fatalf("expected negative index miss")
	}
}
