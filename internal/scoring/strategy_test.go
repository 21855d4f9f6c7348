package scoring

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quizhub/internal/domain"
)

func TestFixedAwardsConstantForCorrect(t *testing.T) {
	in := newFixture(t, 1, "Ana", "Ben")
	correct := in.submit(t, "Ana", 0, true, time.Second)
	wrong := in.submit(t, "Ben", 0, false, 2*time.Second)

	st, err := New(domain.ScoringFixed)
	require.NoError(t, err)
	st.ScoreQuestion(in.Input, 0)

	assert.Equal(t, 1000, correct.Points)
	assert.Equal(t, 0, wrong.Points)
}

func TestSpeedBoundsAndMonotonicity(t *testing.T) {
	st, err := New(domain.ScoringSpeed)
	require.NoError(t, err)

	score := func(rt time.Duration) int {
		in := newFixture(t, 1, "Ana")
		a := in.submit(t, "Ana", 0, true, rt)
		st.ScoreQuestion(in.Input, 0)
		return a.Points
	}

	assert.Equal(t, speedMax, score(0))
	assert.Equal(t, speedMin, score(speedCutoff))
	assert.Equal(t, speedMin, score(speedCutoff+5*time.Second))

	prev := score(0)
	for rt := 500 * time.Millisecond; rt <= speedCutoff; rt += 500 * time.Millisecond {
		cur := score(rt)
		assert.LessOrEqual(t, cur, prev, "score must not increase with response time %v", rt)
		prev = cur
	}
}

func TestSpeedIgnoresIncorrect(t *testing.T) {
	in := newFixture(t, 1, "Ana")
	a := in.submit(t, "Ana", 0, false, 0)

	st, _ := New(domain.ScoringSpeed)
	st.ScoreQuestion(in.Input, 0)
	assert.Equal(t, 0, a.Points)
}

func TestRankingFavoursFasterCorrectAnswers(t *testing.T) {
	in := newFixture(t, 1, "Ana", "Ben", "Cal")
	fast := in.submit(t, "Ana", 0, true, time.Second)
	slow := in.submit(t, "Ben", 0, true, 3*time.Second)
	wrong := in.submit(t, "Cal", 0, false, 500*time.Millisecond)

	st, err := New(domain.ScoringRanking)
	require.NoError(t, err)
	st.ScoreQuestion(in.Input, 0)

	assert.GreaterOrEqual(t, fast.Points, slow.Points)
	assert.GreaterOrEqual(t, fast.Points, rankMin)
	assert.LessOrEqual(t, fast.Points, rankMax)
	assert.Equal(t, 0, wrong.Points)
}

func TestStreakResetsOnIncorrect(t *testing.T) {
	in := newFixture(t, 4, "Ana")
	a0 := in.submit(t, "Ana", 0, true, time.Second)
	in.submit(t, "Ana", 1, false, time.Second)
	a2 := in.submit(t, "Ana", 2, true, time.Second)
	in.submit(t, "Ana", 3, false, time.Second)

	st, err := New(domain.ScoringStreak)
	require.NoError(t, err)
	for pos := 0; pos < 4; pos++ {
		st.ScoreQuestion(in.Input, pos)
	}

	// Alternating answers never build past a streak of one, so the first
	// correct answer of each run scores the same.
	assert.Equal(t, a0.Points, a2.Points)
}

func TestStreakGrowsStrictlyWithRunLength(t *testing.T) {
	const total = 4
	in := newFixture(t, total, "Ana")
	var run []*domain.PlayerAnswer
	for pos := 0; pos < total; pos++ {
		run = append(run, in.submit(t, "Ana", pos, true, time.Second))
	}

	st, _ := New(domain.ScoringStreak)
	for pos := 0; pos < total; pos++ {
		st.ScoreQuestion(in.Input, pos)
	}

	for i := 1; i < total; i++ {
		assert.Greater(t, run[i].Points, run[i-1].Points,
			"streak %d should outscore streak %d", i+1, i)
	}
	assert.Equal(t, streakMax, run[total-1].Points)
}

func TestStreakFollowsSessionOrderNotStorageOrder(t *testing.T) {
	in := newFixture(t, 3, "Ana")
	// Play the quiz backwards.
	in.Session.QuestionOrder = []int{2, 1, 0}

	first := in.submit(t, "Ana", 2, true, time.Second)  // position 0
	second := in.submit(t, "Ana", 1, true, time.Second) // position 1
	third := in.submit(t, "Ana", 0, true, time.Second)  // position 2

	st, _ := New(domain.ScoringStreak)
	for pos := 0; pos < 3; pos++ {
		st.ScoreQuestion(in.Input, pos)
	}

	assert.Greater(t, second.Points, first.Points)
	assert.Greater(t, third.Points, second.Points)
}

func TestScoreSessionGuards(t *testing.T) {
	in := newFixture(t, 1, "Ana")
	a := in.submit(t, "Ana", 0, true, time.Second)
	st, _ := New(domain.ScoringFixed)

	in.Session.State = domain.StateInProgress
	st.ScoreSession(in.Input)
	assert.Equal(t, 0, a.Points, "in-progress sessions must not be scored")
	assert.False(t, in.Session.ScoringComplete)

	in.Session.State = domain.StateCompleted
	st.ScoreSession(in.Input)
	assert.Equal(t, 1000, a.Points)
	assert.True(t, in.Session.ScoringComplete)

	// A second pass is a no-op even if points were tampered with.
	a.Points = 7
	st.ScoreSession(in.Input)
	assert.Equal(t, 7, a.Points)
}

func TestLeaderboardOrderAndTieBreak(t *testing.T) {
	in := newFixture(t, 2, "zoe", "Abe", "Mia")
	in.submit(t, "zoe", 0, true, time.Second)
	in.submit(t, "Abe", 0, true, time.Second)
	in.submit(t, "Mia", 0, false, time.Second)

	st, _ := New(domain.ScoringFixed)
	st.ScoreQuestion(in.Input, 0)
	entries := st.Leaderboard(in.Input)

	require.Len(t, entries, 3)
	assert.Equal(t, "Abe", entries[0].Name, "ties break by name, case-insensitive")
	assert.Equal(t, "zoe", entries[1].Name)
	assert.Equal(t, "Mia", entries[2].Name)
	assert.Equal(t, []int{1, 2, 3}, []int{entries[0].Rank, entries[1].Rank, entries[2].Rank})
}

func TestNewRejectsUnknownKind(t *testing.T) {
	_, err := New(domain.ScoringKind("golf"))
	assert.Error(t, err)
}

// fixture builds a session with n two-option questions ("Alpha" correct,
// "Beta" not) played in storage order by the named players.
type fixture struct {
	Input
	players map[string]*domain.Player
}

func newFixture(t *testing.T, questions int, names ...string) *fixture {
	t.Helper()
	quiz := &domain.Quiz{ID: uuid.New(), Title: "fixture"}
	order := make([]int, questions)
	for i := 0; i < questions; i++ {
		quiz.Questions = append(quiz.Questions, domain.Question{
			ID:   uuid.New(),
			Text: "question",
			Type: domain.MultipleChoice,
			Answers: []domain.Answer{
				{ID: uuid.New(), Text: "Alpha", Correct: true},
				{ID: uuid.New(), Text: "Beta"},
			},
		})
		order[i] = i
	}

	sess := &domain.Session{
		ID:            uuid.New(),
		PIN:           "TEST42",
		State:         domain.StateInProgress,
		Quiz:          quiz,
		QuizID:        quiz.ID,
		QuestionOrder: order,
	}

	f := &fixture{
		Input:   Input{Session: sess},
		players: make(map[string]*domain.Player),
	}
	for _, name := range names {
		p := &domain.Player{ID: uuid.New(), SessionID: sess.ID, Name: name}
		f.players[name] = p
		f.Players = append(f.Players, p)
	}
	return f
}

// submit records an answer by storage question index and returns it so tests
// can inspect the points assigned later.
func (f *fixture) submit(t *testing.T, player string, questionIdx int, correct bool, rt time.Duration) *domain.PlayerAnswer {
	t.Helper()
	p, ok := f.players[player]
	if !ok {
		t.Fatalf("unknown fixture player %q", player)
	}
	q := f.Session.Quiz.Questions[questionIdx]
	var answerID uuid.UUID
	for _, opt := range q.Answers {
		if opt.Correct == correct {
			answerID = opt.ID
			break
		}
	}
	a := &domain.PlayerAnswer{
		ID:           uuid.New(),
		PlayerID:     p.ID,
		QuestionID:   q.ID,
		AnswerID:     answerID,
		ResponseTime: rt,
	}
	f.Answers = append(f.Answers, a)
	return a
}
