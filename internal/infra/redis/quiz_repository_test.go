package redis

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"quizhub/internal/domain"
	"quizhub/internal/infra/memory"
)

func TestQuizRepositoryCachesInRedis(t *testing.T) {
	mr, client := newTestClient(t)

	quizID := uuid.New()
	loader := &countingLoader{
		QuizLoader: memory.NewStaticQuizLoader(map[uuid.UUID]domain.Quiz{
			quizID: {
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
			},
		}),
	}
	repo := NewQuizRepository(client, loader, time.Minute)
	ctx := context.Background()

	quiz, err := repo.GetQuiz(ctx, quizID)
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if quiz.Title != "Arithmetic" || len(quiz.Questions) != 1 {
		t.Fatalf("unexpected quiz %+v", quiz)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}
	if !mr.Exists("quiz:" + quizID.String()) {
		t.Fatalf("expected quiz cached in redis")
	}

	if _, err := repo.GetQuiz(ctx, quizID); err != nil {
		t.Fatalf("get quiz 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestQuizRepositoryPoisonedEntryReloads(t *testing.T) {
	mr, client := newTestClient(t)

	quizID := uuid.New()
	loader := &countingLoader{
		QuizLoader: memory.NewStaticQuizLoader(map[uuid.UUID]domain.Quiz{
			quizID: {ID: quizID, Title: "Arithmetic", AuthorID: uuid.New()},
		}),
	}
	repo := NewQuizRepository(client, loader, time.Minute)

	mr.Set("quiz:"+quizID.String(), "{not json")

	quiz, err := repo.GetQuiz(context.Background(), quizID)
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if quiz.Title != "Arithmetic" {
		t.Fatalf("expected reload past poisoned entry, got %+v", quiz)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}
}

type countingLoader struct {
	memory.QuizLoader
	calls int
}

func (l *countingLoader) LoadQuiz(ctx context.Context, quizID uuid.UUID) (domain.Quiz, error) {
	l.calls++
	return l.QuizLoader.LoadQuiz(ctx, quizID)
}
