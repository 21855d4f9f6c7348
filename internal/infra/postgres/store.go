package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quizhub/internal/domain"
)

// Store is the Postgres durable tier: sessions, accounts, players, and
// player answers. Ephemeral runtime state never lands here.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Resolve implements app.AccountResolver: by id first, then by username.
func (s *Store) Resolve(ctx context.Context, idOrName string) (domain.Account, error) {
	var account domain.Account
	if id, err := uuid.Parse(idOrName); err == nil {
		err := s.pool.QueryRow(ctx, `SELECT id, username FROM accounts WHERE id=$1`, id).
			Scan(&account.ID, &account.Username)
		if err == nil {
			return account, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return domain.Account{}, fmt.Errorf("resolve account: %w", err)
		}
	}
	err := s.pool.QueryRow(ctx, `SELECT id, username FROM accounts WHERE username=$1`, idOrName).
		Scan(&account.ID, &account.Username)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Account{}, domain.ErrAccountNotFound
	}
	if err != nil {
		return domain.Account{}, fmt.Errorf("resolve account: %w", err)
	}
	return account, nil
}

func (s *Store) SessionByPIN(ctx context.Context, pin string) (*domain.Session, error) {
	var (
		session  domain.Session
		state    int
		orderRaw []byte
		scoring  string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, pin, state, host_account_id, quiz_id, question_order, scoring, scoring_complete
		FROM sessions WHERE pin=$1`, pin).
		Scan(&session.ID, &session.PIN, &state, &session.HostAccountID,
			&session.QuizID, &orderRaw, &scoring, &session.ScoringComplete)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	session.State = domain.SessionState(state)
	session.Scoring = domain.ScoringKind(scoring)
	if err := json.Unmarshal(orderRaw, &session.QuestionOrder); err != nil {
		return nil, fmt.Errorf("unmarshal question order: %w", err)
	}
	return &session, nil
}

func (s *Store) CreateSession(ctx context.Context, session *domain.Session) error {
	orderRaw, err := json.Marshal(session.QuestionOrder)
	if err != nil {
		return fmt.Errorf("marshal question order: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO sessions (id, pin, state, host_account_id, quiz_id, question_order, scoring, scoring_complete)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		session.ID, session.PIN, int(session.State), session.HostAccountID,
		session.QuizID, orderRaw, string(session.Scoring), session.ScoringComplete)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *Store) SaveSession(ctx context.Context, session *domain.Session) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE sessions SET state=$2, scoring_complete=$3 WHERE id=$1`,
		session.ID, int(session.State), session.ScoringComplete)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

func (s *Store) PlayerByAccount(ctx context.Context, sessionID, accountID uuid.UUID) (*domain.Player, error) {
	var p domain.Player
	err := s.pool.QueryRow(ctx, `
		SELECT id, session_id, account_id, name FROM players
		WHERE session_id=$1 AND account_id=$2`, sessionID, accountID).
		Scan(&p.ID, &p.SessionID, &p.AccountID, &p.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPlayerNotRegistered
	}
	if err != nil {
		return nil, fmt.Errorf("load player: %w", err)
	}
	return &p, nil
}

func (s *Store) PlayersForSession(ctx context.Context, sessionID uuid.UUID) ([]*domain.Player, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, session_id, account_id, name FROM players WHERE session_id=$1`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load players: %w", err)
	}
	defer rows.Close()

	var out []*domain.Player
	for rows.Next() {
		var p domain.Player
		if err := rows.Scan(&p.ID, &p.SessionID, &p.AccountID, &p.Name); err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (s *Store) SavePlayer(ctx context.Context, p *domain.Player) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO players (id, session_id, account_id, name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name`,
		p.ID, p.SessionID, p.AccountID, p.Name)
	if err != nil {
		return fmt.Errorf("save player: %w", err)
	}
	return nil
}

// AddPlayerAnswer inserts the immutable answer fact. The unique
// (player_id, question_id) index makes a duplicate submission lose the
// race at the database, matching the runtime's reservation.
func (s *Store) AddPlayerAnswer(ctx context.Context, a *domain.PlayerAnswer) error {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO player_answers (id, player_id, question_id, answer_id, response_ms, points)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (player_id, question_id) DO NOTHING`,
		a.ID, a.PlayerID, a.QuestionID, a.AnswerID, a.ResponseTime.Milliseconds(), a.Points)
	if err != nil {
		return fmt.Errorf("insert answer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("answer already recorded for player %s question %s", a.PlayerID, a.QuestionID)
	}
	return nil
}

func (s *Store) AnswersForQuestion(ctx context.Context, questionID uuid.UUID) ([]*domain.PlayerAnswer, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, player_id, question_id, answer_id, response_ms, points
		FROM player_answers WHERE question_id=$1`, questionID)
	if err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}
	defer rows.Close()
	return scanAnswers(rows)
}

func (s *Store) AnswersForSession(ctx context.Context, sessionID uuid.UUID) ([]*domain.PlayerAnswer, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT a.id, a.player_id, a.question_id, a.answer_id, a.response_ms, a.points
		FROM player_answers a
		JOIN players p ON p.id = a.player_id
		WHERE p.session_id=$1`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session answers: %w", err)
	}
	defer rows.Close()
	return scanAnswers(rows)
}

func (s *Store) SavePoints(ctx context.Context, answers []*domain.PlayerAnswer) error {
	for _, a := range answers {
		if _, err := s.pool.Exec(ctx,
			`UPDATE player_answers SET points=$2 WHERE id=$1`, a.ID, a.Points); err != nil {
			return fmt.Errorf("save points: %w", err)
		}
	}
	return nil
}

func scanAnswers(rows pgx.Rows) ([]*domain.PlayerAnswer, error) {
	var out []*domain.PlayerAnswer
	for rows.Next() {
		var (
			a          domain.PlayerAnswer
			responseMS int64
		)
		if err := rows.Scan(&a.ID, &a.PlayerID, &a.QuestionID, &a.AnswerID, &responseMS, &a.Points); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		a.ResponseTime = time.Duration(responseMS) * time.Millisecond
		out = append(out, &a)
	}
	return out, rows.Err()
}
