package app

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ProCoderAkhil/mptcquiz/internal/alloc"
	"github.com/ProCoderAkhil/mptcquiz/internal/attempt"
	"github.com/ProCoderAkhil/mptcquiz/internal/catalog"
	"github.com/ProCoderAkhil/mptcquiz/internal/domain"
	"github.com/ProCoderAkhil/mptcquiz/internal/store"
)

// QuizService contains the walk-up quiz use cases: registration, attempt
// start, and read access for the kiosk surfaces.
type QuizService struct {
	store   *store.Store
	catalog catalog.Catalog
	engine  *alloc.Engine

	feedbackDelay time.Duration
	clock         func() time.Time
	log           zerolog.Logger
}

// Option customizes the service.
type Option func(*QuizService)

// WithFeedbackDelay sets the display delay the attempt machine waits after
// an answer before advancing. Tests use zero for synchronous transitions.
func WithFeedbackDelay(d time.Duration) Option {
	return func(s *QuizService) { s.feedbackDelay = d }
}

func WithClock(now func() time.Time) Option {
	return func(s *QuizService) { s.clock = now }
}

func WithLogger(log zerolog.Logger) Option {
	return func(s *QuizService) { s.log = log }
}

func NewQuizService(st *store.Store, cat catalog.Catalog, engine *alloc.Engine, opts ...Option) *QuizService {
	s := &QuizService{
		store:         st,
		catalog:       cat,
		engine:        engine,
		feedbackDelay: 1500 * time.Millisecond,
		clock:         time.Now,
		log:           zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates or refreshes a participant. Lookup is by normalized
// phone; a returning participant gets their name and class updated instead
// of a duplicate record.
func (s *QuizService) Register(ctx context.Context, name, phone, className string) (domain.Participant, error) {
	name = strings.TrimSpace(name)
	className = strings.TrimSpace(className)
	digits := domain.NormalizePhone(phone)

	for _, existing := range s.store.State().Participants {
		if existing.Phone == digits {
			return s.store.UpdateParticipant(existing.ID, store.ParticipantUpdate{
				Name:      &name,
				ClassName: &className,
			})
		}
	}
	return s.store.AddParticipant(store.ParticipantInput{
		Name:      name,
		Phone:     digits,
		ClassName: className,
	}), nil
}

// ActiveQuiz returns the quiz currently offered to participants.
func (s *QuizService) ActiveQuiz() (domain.QuizDefinition, bool) {
	return s.store.State().ActiveQuiz()
}

// State exposes the admin snapshot for read-only consumers.
func (s *QuizService) State() domain.AdminState {
	return s.store.State()
}

// Watch streams admin snapshots for live dashboards.
func (s *QuizService) Watch() (<-chan domain.AdminState, func()) {
	return s.store.Watch()
}

// StartAttempt registers the participant, draws their personalized question
// set, and returns a running attempt machine bound to the store. The caller
// owns driving it (machine.Run) and tearing it down.
func (s *QuizService) StartAttempt(ctx context.Context, name, phone, className string) (*attempt.Machine, domain.Participant, error) {
	quiz, ok := s.store.State().ActiveQuiz()
	if !ok {
		return nil, domain.Participant{}, domain.ErrNoActiveQuiz
	}

	participant, err := s.Register(ctx, name, phone, className)
	if err != nil {
		return nil, domain.Participant{}, err
	}

	questions, err := s.engine.Allocate(ctx, name, phone, quiz.QuestionsPerAttempt)
	if err != nil {
		return nil, domain.Participant{}, err
	}
	if len(questions) == 0 {
		return nil, domain.Participant{}, domain.ErrPoolTooSmall
	}

	machine, err := attempt.New(attempt.Config{
		Quiz:          quiz,
		Participant:   participant,
		Questions:     questions,
		Recorder:      s.store,
		FeedbackDelay: s.feedbackDelay,
		Clock:         s.clock,
		Logger:        s.log,
	})
	if err != nil {
		return nil, domain.Participant{}, err
	}
	s.log.Info().
		Str("participant", participant.ID).
		Str("quiz", quiz.ID).
		Int("questions", len(questions)).
		Msg("attempt started")
	return machine, participant, nil
}
