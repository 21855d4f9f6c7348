package domain

import "errors"

var (
	// ErrSessionNotFound is returned when no session exists for a PIN.
	ErrSessionNotFound = errors.New("no live session found for that code")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrAccountNotFound is returned when a player identity cannot be resolved.
	ErrAccountNotFound = errors.New("account not found")
	// ErrPlayerNotRegistered is returned when a connection acts before joining.
	ErrPlayerNotRegistered = errors.New("player not registered in this session")
	// ErrPinRequired rejects operations called with an empty session PIN.
	ErrPinRequired = errors.New("a session code is required")
	// ErrNameRequired rejects joins with an empty display name.
	ErrNameRequired = errors.New("player name is required")
	// ErrOptionOutOfRange rejects answer indices outside the option set.
	ErrOptionOutOfRange = errors.New("answer option out of range")
	// ErrPinSpaceExhausted is returned when PIN generation keeps colliding.
	ErrPinSpaceExhausted = errors.New("could not allocate a free session code")
	// ErrInvalidQuiz indicates quiz content that fails validation.
	ErrInvalidQuiz = errors.New("invalid quiz")
	// ErrSessionOver rejects play against a completed or cancelled session.
	ErrSessionOver = errors.New("session is over")
)
