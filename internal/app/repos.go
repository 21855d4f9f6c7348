package app

import (
	"context"

	"github.com/google/uuid"

	"quizhub/internal/domain"
)

// SessionRegistry owns every live Runtime, keyed by normalized PIN. No two
// concurrent callers may construct two runtimes for the same PIN.
type SessionRegistry interface {
	// GetOrCreate returns the runtime for pin, materializing the durable
	// session through factory when absent. factory errors propagate and
	// leave no runtime behind.
	GetOrCreate(pin string, factory func() (*domain.Session, error)) (*Runtime, error)
	TryGet(pin string) (*Runtime, bool)
	// RemoveConnection clears a dropped connection from every runtime's
	// player and host maps.
	RemoveConnection(connID string)
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID uuid.UUID) (domain.Quiz, error)
}

// SessionStore persists session rows; runtimes are rebuilt from it, never
// the other way around.
type SessionStore interface {
	SessionByPIN(ctx context.Context, pin string) (*domain.Session, error)
	CreateSession(ctx context.Context, s *domain.Session) error
	SaveSession(ctx context.Context, s *domain.Session) error
}

// PlayerRepository persists players and their answers, the durable facts a
// crashed runtime could be rebuilt from.
type PlayerRepository interface {
	PlayerByAccount(ctx context.Context, sessionID, accountID uuid.UUID) (*domain.Player, error)
	PlayersForSession(ctx context.Context, sessionID uuid.UUID) ([]*domain.Player, error)
	SavePlayer(ctx context.Context, p *domain.Player) error
	AddPlayerAnswer(ctx context.Context, a *domain.PlayerAnswer) error
	AnswersForQuestion(ctx context.Context, questionID uuid.UUID) ([]*domain.PlayerAnswer, error)
	AnswersForSession(ctx context.Context, sessionID uuid.UUID) ([]*domain.PlayerAnswer, error)
	// SavePoints persists the points assigned by a scoring pass.
	SavePoints(ctx context.Context, answers []*domain.PlayerAnswer) error
}

// AccountResolver maps a client-supplied id or username to an account.
// Resolution failures surface as domain.ErrAccountNotFound, never a silent
// fallback identity.
type AccountResolver interface {
	Resolve(ctx context.Context, idOrName string) (domain.Account, error)
}
