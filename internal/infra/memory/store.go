package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"quizhub/internal/domain"
)

// Store is the in-memory durable tier: sessions, accounts, players, and
// player answers. It backs unit tests and the default server run; the
// Postgres store replaces it in production.
type Store struct {
	mu            sync.RWMutex
	sessionsByPIN map[string]*domain.Session
	players       map[uuid.UUID]*domain.Player
	answers       []*domain.PlayerAnswer
	answered      map[string]struct{} // playerID|questionID insert guard
	accounts      []domain.Account
}

func NewStore() *Store {
	return &Store{
		sessionsByPIN: make(map[string]*domain.Session),
		players:       make(map[uuid.UUID]*domain.Player),
		answered:      make(map[string]struct{}),
	}
}

// SeedAccounts registers resolvable identities; tests and the demo server
// use this in place of a real account system.
func (s *Store) SeedAccounts(accounts ...domain.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = append(s.accounts, accounts...)
}

// Resolve implements app.AccountResolver: by id first, then by username.
func (s *Store) Resolve(_ context.Context, idOrName string) (domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, err := uuid.Parse(idOrName); err == nil {
		for _, a := range s.accounts {
			if a.ID == id {
				return a, nil
			}
		}
	}
	for _, a := range s.accounts {
		if a.Username == idOrName {
			return a, nil
		}
	}
	return domain.Account{}, domain.ErrAccountNotFound
}

func (s *Store) SessionByPIN(_ context.Context, pin string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessionsByPIN[pin]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

func (s *Store) CreateSession(_ context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessionsByPIN[session.PIN]; exists {
		return fmt.Errorf("session pin %s already taken", session.PIN)
	}
	s.sessionsByPIN[session.PIN] = session
	return nil
}

func (s *Store) SaveSession(_ context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionsByPIN[session.PIN] = session
	return nil
}

func (s *Store) PlayerByAccount(_ context.Context, sessionID, accountID uuid.UUID) (*domain.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.players {
		if p.SessionID == sessionID && p.AccountID == accountID {
			return p, nil
		}
	}
	return nil, domain.ErrPlayerNotRegistered
}

func (s *Store) PlayersForSession(_ context.Context, sessionID uuid.UUID) ([]*domain.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Player
	for _, p := range s.players {
		if p.SessionID == sessionID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) SavePlayer(_ context.Context, p *domain.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players[p.ID] = p
	return nil
}

// AddPlayerAnswer inserts the immutable answer fact. A second insert for
// the same (player, question) pair is rejected, never overwritten.
func (s *Store) AddPlayerAnswer(_ context.Context, a *domain.PlayerAnswer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := a.PlayerID.String() + "|" + a.QuestionID.String()
	if _, dup := s.answered[key]; dup {
		return fmt.Errorf("answer already recorded for player %s question %s", a.PlayerID, a.QuestionID)
	}
	s.answered[key] = struct{}{}
	s.answers = append(s.answers, a)
	return nil
}

func (s *Store) AnswersForQuestion(_ context.Context, questionID uuid.UUID) ([]*domain.PlayerAnswer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.PlayerAnswer
	for _, a := range s.answers {
		if a.QuestionID == questionID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Store) AnswersForSession(_ context.Context, sessionID uuid.UUID) ([]*domain.PlayerAnswer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.PlayerAnswer
	for _, a := range s.answers {
		if p, ok := s.players[a.PlayerID]; ok && p.SessionID == sessionID {
			out = append(out, a)
		}
	}
	return out, nil
}

// SavePoints is a no-op for the memory store: scoring mutates the shared
// answer structs in place.
func (s *Store) SavePoints(_ context.Context, _ []*domain.PlayerAnswer) error {
	return nil
}
