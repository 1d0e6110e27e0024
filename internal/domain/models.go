package domain

import "time"

// Question is one immutable multiple-choice record from the catalog.
type Question struct {
	ID            int      `json:"id"`
	Category      string   `json:"category"`
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectOption int      `json:"correctOption"`
}

// Valid reports whether the question has at least two options and a
// correct-option index that points into them.
func (q Question) Valid() bool {
	return len(q.Options) >= 2 && q.CorrectOption >= 0 && q.CorrectOption < len(q.Options)
}

// Participant is a registered walk-up quiz taker. The record id is opaque;
// allocation identity is derived from name+phone (see IdentityKey).
type Participant struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Phone       string    `json:"phone"`
	ClassName   string    `json:"className"`
	LatestScore *int      `json:"latestScore,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// QuizDefinition configures one offerable quiz. TimeLimitSeconds is always
// derived from QuestionsPerAttempt*SecondsPerQuestion, never set directly.
type QuizDefinition struct {
	ID                  string    `json:"id"`
	Title               string    `json:"title"`
	Description         string    `json:"description"`
	QuestionIDs         []int     `json:"questionIds"`
	SecondsPerQuestion  int       `json:"perQuestionSeconds"`
	QuestionsPerAttempt int       `json:"questionsPerAttempt"`
	TimeLimitSeconds    int       `json:"timeLimitSeconds"`
	AllowRetake         bool      `json:"allowRetake"`
	IsActive            bool      `json:"isActive"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// AttemptStatus classifies how an attempt ended.
type AttemptStatus string

const (
	AttemptCompleted AttemptStatus = "completed"
	// AttemptIncomplete is reserved for abnormal termination; no finalize
	// path produces it.
	AttemptIncomplete AttemptStatus = "incomplete"
	AttemptTimeout    AttemptStatus = "timeout"
)

// AttemptAnswer records the outcome for a single allocated question.
type AttemptAnswer struct {
	QuestionID int       `json:"questionId"`
	Selected   Selection `json:"selectedOption"`
	IsCorrect  bool      `json:"isCorrect"`
}

// Attempt is the finalized record of one quiz run. It is created whole by
// the attempt state machine's finalize step and never mutated afterwards.
type Attempt struct {
	ID               string          `json:"id"`
	QuizID           string          `json:"quizId"`
	ParticipantID    string          `json:"studentId"`
	ParticipantName  string          `json:"studentName"`
	ClassName        string          `json:"className"`
	Phone            string          `json:"phone"`
	Answers          []AttemptAnswer `json:"answers"`
	Score            int             `json:"score"`
	TotalQuestions   int             `json:"totalQuestions"`
	StartedAt        time.Time       `json:"startedAt"`
	CompletedAt      *time.Time      `json:"completedAt,omitempty"`
	Status           AttemptStatus   `json:"status"`
	TimeTakenSeconds int             `json:"timeTakenSeconds"`
}

// AdminState is the single snapshot owned by the state store.
type AdminState struct {
	Participants []Participant    `json:"students"`
	Quizzes      []QuizDefinition `json:"quizzes"`
	Attempts     []Attempt        `json:"attempts"`
	ActiveQuizID string           `json:"activeQuizId,omitempty"`
}

// ActiveQuiz returns the currently offered quiz definition, if any.
func (s AdminState) ActiveQuiz() (QuizDefinition, bool) {
	if s.ActiveQuizID == "" {
		return QuizDefinition{}, false
	}
	for _, quiz := range s.Quizzes {
		if quiz.ID == s.ActiveQuizID {
			return quiz, true
		}
	}
	return QuizDefinition{}, false
}

// Clone returns a deep copy so callers can never mutate the store's state
// through a returned snapshot.
func (s AdminState) Clone() AdminState {
	out := AdminState{
		Participants: make([]Participant, len(s.Participants)),
		Quizzes:      make([]QuizDefinition, len(s.Quizzes)),
		Attempts:     make([]Attempt, len(s.Attempts)),
		ActiveQuizID: s.ActiveQuizID,
	}
	for i, p := range s.Participants {
		if p.LatestScore != nil {
			score := *p.LatestScore
			p.LatestScore = &score
		}
		out.Participants[i] = p
	}
	for i, q := range s.Quizzes {
		q.QuestionIDs = append([]int(nil), q.QuestionIDs...)
		out.Quizzes[i] = q
	}
	for i, a := range s.Attempts {
		a.Answers = append([]AttemptAnswer(nil), a.Answers...)
		if a.CompletedAt != nil {
			at := *a.CompletedAt
			a.CompletedAt = &at
		}
		out.Attempts[i] = a
	}
	return out
}
