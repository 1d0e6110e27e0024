package domain

import "errors"

var (
	// ErrNoActiveQuiz is returned when no quiz definition is offered.
	ErrNoActiveQuiz = errors.New("no active quiz")
	// ErrQuizNotFound indicates an unknown quiz definition id.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrParticipantNotFound indicates an unknown participant id.
	ErrParticipantNotFound = errors.New("participant not found")
	// ErrQuestionNotFound indicates an unknown catalog question id.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrPoolTooSmall is returned when a quiz pool cannot cover a draw.
	ErrPoolTooSmall = errors.New("question pool smaller than requested draw")
	// ErrAttemptFinished is returned for input arriving after finalize.
	ErrAttemptFinished = errors.New("attempt already finalized")
	// ErrAlreadyAnswered is returned when the current question was answered.
	ErrAlreadyAnswered = errors.New("question already answered")
)
