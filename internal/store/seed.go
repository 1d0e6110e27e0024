package store

import (
	"time"

	"github.com/google/uuid"

	"github.com/ProCoderAkhil/mptcquiz/internal/domain"
)

// DefaultState builds the starter state for a fresh install: one active quiz
// over the full catalog, five questions per attempt at 36 seconds each.
func DefaultState(questions []domain.Question, now time.Time) domain.AdminState {
	ids := make([]int, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}
	perAttempt := clamp(5, 1, max(len(ids), 1))
	quiz := domain.QuizDefinition{
		ID:                  uuid.NewString(),
		Title:               "Students Quiz Competition",
		Description:         "Answer the allocated questions before the timer runs out.",
		QuestionIDs:         ids,
		SecondsPerQuestion:  36,
		QuestionsPerAttempt: perAttempt,
		TimeLimitSeconds:    perAttempt * 36,
		AllowRetake:         true,
		IsActive:            true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	return domain.AdminState{
		Quizzes:      []domain.QuizDefinition{quiz},
		ActiveQuizID: quiz.ID,
	}
}
