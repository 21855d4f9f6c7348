package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"quizhub/internal/domain"
)

// stubRegistry is a minimal in-process SessionRegistry for tests.
type stubRegistry struct {
	mu       sync.Mutex
	runtimes map[string]*Runtime
}

func newStubRegistry() *stubRegistry {
	return &stubRegistry{runtimes: make(map[string]*Runtime)}
}

func (r *stubRegistry) GetOrCreate(pin string, factory func() (*domain.Session, error)) (*Runtime, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if runtime, ok := r.runtimes[pin]; ok {
		return runtime, nil
	}
	session, err := factory()
	if err != nil {
		return nil, err
	}
	runtime := NewRuntime(session)
	r.runtimes[pin] = runtime
	return runtime, nil
}

func (r *stubRegistry) TryGet(pin string) (*Runtime, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	runtime, ok := r.runtimes[pin]
	return runtime, ok
}

func (r *stubRegistry) RemoveConnection(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, runtime := range r.runtimes {
		runtime.DropConnection(connID)
	}
}

// stubStore keeps every durable collaborator behind one lock, mirroring
// the in-memory infra without importing it.
type stubStore struct {
	mu       sync.Mutex
	quizzes  map[uuid.UUID]domain.Quiz
	sessions map[string]*domain.Session
	players  map[uuid.UUID]*domain.Player
	answers  []*domain.PlayerAnswer
	accounts []domain.Account
}

func newStubStore(accounts ...domain.Account) *stubStore {
	return &stubStore{
		quizzes:  make(map[uuid.UUID]domain.Quiz),
		sessions: make(map[string]*domain.Session),
		players:  make(map[uuid.UUID]*domain.Player),
		accounts: accounts,
	}
}

func (s *stubStore) GetQuiz(_ context.Context, quizID uuid.UUID) (domain.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return quiz, nil
}

func (s *stubStore) Resolve(_ context.Context, idOrName string) (domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.ID.String() == idOrName || a.Username == idOrName {
			return a, nil
		}
	}
	return domain.Account{}, domain.ErrAccountNotFound
}

func (s *stubStore) SessionByPIN(_ context.Context, pin string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[pin]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

func (s *stubStore) CreateSession(_ context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.PIN] = session
	return nil
}

func (s *stubStore) SaveSession(_ context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.PIN] = session
	return nil
}

func (s *stubStore) PlayerByAccount(_ context.Context, sessionID, accountID uuid.UUID) (*domain.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.players {
		if p.SessionID == sessionID && p.AccountID == accountID {
			return p, nil
		}
	}
	return nil, domain.ErrPlayerNotRegistered
}

func (s *stubStore) PlayersForSession(_ context.Context, sessionID uuid.UUID) ([]*domain.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Player
	for _, p := range s.players {
		if p.SessionID == sessionID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *stubStore) SavePlayer(_ context.Context, p *domain.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players[p.ID] = p
	return nil
}

func (s *stubStore) AddPlayerAnswer(_ context.Context, a *domain.PlayerAnswer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.answers {
		if existing.PlayerID == a.PlayerID && existing.QuestionID == a.QuestionID {
			return fmt.Errorf("duplicate answer for player %s", a.PlayerID)
		}
	}
	s.answers = append(s.answers, a)
	return nil
}

func (s *stubStore) AnswersForQuestion(_ context.Context, questionID uuid.UUID) ([]*domain.PlayerAnswer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.PlayerAnswer
	for _, a := range s.answers {
		if a.QuestionID == questionID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *stubStore) AnswersForSession(_ context.Context, sessionID uuid.UUID) ([]*domain.PlayerAnswer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.PlayerAnswer
	for _, a := range s.answers {
		if p, ok := s.players[a.PlayerID]; ok && p.SessionID == sessionID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *stubStore) SavePoints(_ context.Context, _ []*domain.PlayerAnswer) error {
	return nil
}
