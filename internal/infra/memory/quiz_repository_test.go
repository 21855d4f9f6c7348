package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"quizhub/internal/domain"
)

func TestQuizRepositoryCaches(t *testing.T) {
	quizID := uuid.New()
	loader := &countingLoader{
		QuizLoader: NewStaticQuizLoader(map[uuid.UUID]domain.Quiz{
			quizID: sampleQuiz(quizID),
		}),
	}
	repo := NewQuizRepository(loader, time.Minute)

	if _, err := repo.GetQuiz(context.Background(), quizID); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := repo.GetQuiz(context.Background(), quizID); err != nil {
		t.Fatalf("get quiz 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestQuizRepositoryMiss(t *testing.T) {
	repo := NewQuizRepository(NewStaticQuizLoader(nil), time.Minute)
	if _, err := repo.GetQuiz(context.Background(), uuid.New()); err != domain.ErrQuizNotFound {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
}

type countingLoader struct {
	QuizLoader
	calls int
}

func (l *countingLoader) LoadQuiz(ctx context.Context, quizID uuid.UUID) (domain.Quiz, error) {
	l.calls++
	return l.QuizLoader.LoadQuiz(ctx, quizID)
}

func sampleQuiz(quizID uuid.UUID) domain.Quiz {
	return domain.Quiz{
		ID:       quizID,
		Title:    "Arithmetic",
		AuthorID: uuid.New(),
		Questions: []domain.Question{
			{
				ID:   uuid.New(),
				Text: "What is 2 + 2?",
				Type: domain.MultipleChoice,
				Answers: []domain.Answer{
					{ID: uuid.New(), Text: "3", Correct: false},
					{ID: uuid.New(), Text: "4", Correct: true},
				},
			},
		},
	}
}
