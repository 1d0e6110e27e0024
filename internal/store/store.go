package store

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ProCoderAkhil/mptcquiz/internal/domain"
)

// Persister keeps the admin state blob on durable storage. Implementations
// live under internal/infra (file, redis).
type Persister interface {
	// LoadState returns the stored blob, or ok=false when none exists yet.
	LoadState(ctx context.Context) (domain.AdminState, bool, error)
	SaveState(ctx context.Context, state domain.AdminState) error
}

// Listener receives the post-mutation snapshot.
type Listener func(domain.AdminState)

// Store is the single source of truth for participants, quiz definitions,
// attempts, and the active-quiz pointer. Every mutation applies atomically
// to the in-memory snapshot, persists best-effort, and notifies subscribers
// before returning. Persistence failures are logged and swallowed: the
// session degrades to in-memory durability instead of surfacing errors.
type Store struct {
	mu       sync.RWMutex
	state    domain.AdminState
	nextSub  int
	subs     map[int]Listener
	notifyMu sync.Mutex

	persister Persister
	log       zerolog.Logger
	now       func() time.Time
	newID     func() string

	rndMu sync.Mutex
	rnd   *rand.Rand
}

// Option customizes a Store; used by tests to pin clocks and ids.
type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) { s.log = log }
}

func WithRand(rnd *rand.Rand) Option {
	return func(s *Store) { s.rnd = rnd }
}

// New loads the persisted state (falling back to the provided initial state
// for a fresh install) and reconciles blobs written by older schema
// versions.
func New(ctx context.Context, persister Persister, initial domain.AdminState, opts ...Option) (*Store, error) {
	s := &Store{
		subs:      make(map[int]Listener),
		persister: persister,
		log:       zerolog.Nop(),
		now:       time.Now,
		newID:     uuid.NewString,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}

	state, ok, err := persister.LoadState(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		state = initial
	}
	reconcile(&state)
	s.state = state
	return s, nil
}

// State returns the current snapshot. The same state is observed between
// mutations; callers never see a partially applied change.
func (s *Store) State() domain.AdminState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Subscribe registers a listener invoked synchronously after every
// successful mutation. The returned unsubscribe function is idempotent.
func (s *Store) Subscribe(listener Listener) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = listener
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// Watch adapts Subscribe to a buffered channel for transports. The first
// message is the current snapshot; slow consumers have stale snapshots
// dropped in favor of the newest one.
func (s *Store) Watch() (<-chan domain.AdminState, func()) {
	w := &watcher{ch: make(chan domain.AdminState, 8)}
	w.push(s.State())
	unsubscribe := s.Subscribe(w.push)

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			unsubscribe()
			w.close()
		})
	}
	return w.ch, cancel
}

type watcher struct {
	mu     sync.Mutex
	ch     chan domain.AdminState
	closed bool
}

func (w *watcher) push(state domain.AdminState) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	select {
	case w.ch <- state:
	default:
		select {
		case <-w.ch:
		default:
		}
		w.ch <- state
	}
}

func (w *watcher) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	close(w.ch)
}

// mutate applies fn under the write lock, persists the result, and notifies
// subscribers. notifyMu keeps persist+notify in mutation order without
// holding the state lock across listener callbacks.
func (s *Store) mutate(fn func(state *domain.AdminState)) {
	s.mu.Lock()
	fn(&s.state)
	snapshot := s.state.Clone()
	listeners := make([]Listener, 0, len(s.subs))
	for _, listener := range s.subs {
		listeners = append(listeners, listener)
	}
	s.notifyMu.Lock()
	s.mu.Unlock()
	defer s.notifyMu.Unlock()

	if err := s.persister.SaveState(context.Background(), snapshot); err != nil {
		s.log.Error().Err(err).Msg("persist admin state")
	}
	for _, listener := range listeners {
		listener(snapshot)
	}
}

// ParticipantInput carries the registration fields for a new participant.
type ParticipantInput struct {
	Name      string
	Phone     string
	ClassName string
}

// ParticipantUpdate is a partial update; nil fields are left untouched.
type ParticipantUpdate struct {
	Name      *string
	Phone     *string
	ClassName *string
}

// AddParticipant creates a participant record. The phone is normalized to
// digits before storing.
func (s *Store) AddParticipant(input ParticipantInput) domain.Participant {
	now := s.now()
	participant := domain.Participant{
		ID:        s.newID(),
		Name:      input.Name,
		Phone:     domain.NormalizePhone(input.Phone),
		ClassName: input.ClassName,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.mutate(func(state *domain.AdminState) {
		state.Participants = append(state.Participants, participant)
	})
	return participant
}

// UpdateParticipant applies a partial update to an existing record.
func (s *Store) UpdateParticipant(id string, update ParticipantUpdate) (domain.Participant, error) {
	var updated domain.Participant
	found := false
	s.mutate(func(state *domain.AdminState) {
		for i := range state.Participants {
			if state.Participants[i].ID != id {
				continue
			}
			p := &state.Participants[i]
			if update.Name != nil {
				p.Name = *update.Name
			}
			if update.Phone != nil {
				p.Phone = domain.NormalizePhone(*update.Phone)
			}
			if update.ClassName != nil {
				p.ClassName = *update.ClassName
			}
			p.UpdatedAt = s.now()
			updated = *p
			found = true
			return
		}
	})
	if !found {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	return updated, nil
}

// DeleteParticipant removes the record and cascades to its attempts.
func (s *Store) DeleteParticipant(id string) {
	s.mutate(func(state *domain.AdminState) {
		participants := state.Participants[:0]
		for _, p := range state.Participants {
			if p.ID != id {
				participants = append(participants, p)
			}
		}
		state.Participants = participants

		attempts := state.Attempts[:0]
		for _, a := range state.Attempts {
			if a.ParticipantID != id {
				attempts = append(attempts, a)
			}
		}
		state.Attempts = attempts
	})
}

// QuizInput carries the configurable quiz fields. A non-empty ID updates an
// existing definition.
type QuizInput struct {
	ID                  string
	Title               string
	Description         string
	QuestionIDs         []int
	SecondsPerQuestion  int
	QuestionsPerAttempt int
	AllowRetake         bool
	IsActive            bool
}

// SaveQuiz creates or updates a definition. QuestionsPerAttempt is clamped
// into [1, len(pool)] and TimeLimitSeconds recomputed. Saving a definition
// with IsActive makes it the sole active quiz; saving the active quiz with
// IsActive cleared leaves no active quiz.
func (s *Store) SaveQuiz(input QuizInput) (domain.QuizDefinition, error) {
	if len(input.QuestionIDs) == 0 {
		return domain.QuizDefinition{}, domain.ErrPoolTooSmall
	}
	perAttempt := clamp(input.QuestionsPerAttempt, 1, len(input.QuestionIDs))
	timeLimit := perAttempt * input.SecondsPerQuestion

	if input.ID != "" && !s.quizExists(input.ID) {
		return domain.QuizDefinition{}, domain.ErrQuizNotFound
	}

	var saved domain.QuizDefinition
	found := input.ID == ""
	s.mutate(func(state *domain.AdminState) {
		now := s.now()
		if input.ID != "" {
			for i := range state.Quizzes {
				if state.Quizzes[i].ID != input.ID {
					continue
				}
				quiz := &state.Quizzes[i]
				quiz.Title = input.Title
				quiz.Description = input.Description
				quiz.QuestionIDs = append([]int(nil), input.QuestionIDs...)
				quiz.SecondsPerQuestion = input.SecondsPerQuestion
				quiz.QuestionsPerAttempt = perAttempt
				quiz.TimeLimitSeconds = timeLimit
				quiz.AllowRetake = input.AllowRetake
				quiz.IsActive = input.IsActive
				quiz.UpdatedAt = now
				saved = *quiz
				found = true
				break
			}
			if !found {
				return
			}
		} else {
			quiz := domain.QuizDefinition{
				ID:                  s.newID(),
				Title:               input.Title,
				Description:         input.Description,
				QuestionIDs:         append([]int(nil), input.QuestionIDs...),
				SecondsPerQuestion:  input.SecondsPerQuestion,
				QuestionsPerAttempt: perAttempt,
				TimeLimitSeconds:    timeLimit,
				AllowRetake:         input.AllowRetake,
				IsActive:            input.IsActive,
				CreatedAt:           now,
				UpdatedAt:           now,
			}
			state.Quizzes = append(state.Quizzes, quiz)
			saved = quiz
		}

		if saved.IsActive {
			activateLocked(state, saved.ID)
		} else if state.ActiveQuizID == saved.ID {
			state.ActiveQuizID = ""
		}
	})
	if !found {
		return domain.QuizDefinition{}, domain.ErrQuizNotFound
	}
	return saved, nil
}

// SetActiveQuiz marks exactly one definition active and clears the flag on
// all others.
func (s *Store) SetActiveQuiz(id string) error {
	if !s.quizExists(id) {
		return domain.ErrQuizNotFound
	}
	s.mutate(func(state *domain.AdminState) {
		activateLocked(state, id)
		for i := range state.Quizzes {
			if state.Quizzes[i].ID == id {
				state.Quizzes[i].UpdatedAt = s.now()
			}
		}
	})
	return nil
}

func (s *Store) quizExists(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.state.Quizzes {
		if s.state.Quizzes[i].ID == id {
			return true
		}
	}
	return false
}

// DeleteQuiz removes a definition and its attempts. Deleting the active quiz
// promotes the first remaining definition, or leaves no active quiz.
func (s *Store) DeleteQuiz(id string) {
	s.mutate(func(state *domain.AdminState) {
		quizzes := state.Quizzes[:0]
		for _, quiz := range state.Quizzes {
			if quiz.ID != id {
				quizzes = append(quizzes, quiz)
			}
		}
		state.Quizzes = quizzes

		attempts := state.Attempts[:0]
		for _, a := range state.Attempts {
			if a.QuizID != id {
				attempts = append(attempts, a)
			}
		}
		state.Attempts = attempts

		if state.ActiveQuizID == id {
			if len(state.Quizzes) > 0 {
				activateLocked(state, state.Quizzes[0].ID)
			} else {
				state.ActiveQuizID = ""
			}
		}
	})
}

// RecordAttempt assigns an id, prepends the attempt (most recent first), and
// refreshes the owning participant's latest score. This is the only write
// path that creates Attempt records.
func (s *Store) RecordAttempt(fields domain.Attempt) domain.Attempt {
	attempt := fields
	attempt.ID = s.newID()
	s.mutate(func(state *domain.AdminState) {
		state.Attempts = append([]domain.Attempt{attempt}, state.Attempts...)
		for i := range state.Participants {
			if state.Participants[i].ID == attempt.ParticipantID {
				score := attempt.Score
				state.Participants[i].LatestScore = &score
				state.Participants[i].UpdatedAt = s.now()
				break
			}
		}
	})
	return attempt
}

// AllocateQuestionIDs returns a shuffled draw of min(questionsPerAttempt,
// len(pool)) ids from the quiz's pool, or nil when the quiz is unknown or
// its pool cannot cover the draw. This path does not consult the usage
// ledger; personalized attempts go through the allocation engine instead.
func (s *Store) AllocateQuestionIDs(quizID string) []int {
	s.mu.RLock()
	var quiz *domain.QuizDefinition
	for i := range s.state.Quizzes {
		if s.state.Quizzes[i].ID == quizID {
			quiz = &s.state.Quizzes[i]
			break
		}
	}
	if quiz == nil {
		s.mu.RUnlock()
		return nil
	}
	pool := append([]int(nil), quiz.QuestionIDs...)
	count := quiz.QuestionsPerAttempt
	s.mu.RUnlock()

	if count > len(pool) {
		count = len(pool)
	}
	if len(pool) < count || count == 0 {
		return nil
	}

	s.rndMu.Lock()
	s.rnd.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	s.rndMu.Unlock()
	return pool[:count]
}

func activateLocked(state *domain.AdminState, id string) {
	state.ActiveQuizID = id
	for i := range state.Quizzes {
		state.Quizzes[i].IsActive = state.Quizzes[i].ID == id
	}
}

// reconcile backfills definitions written by older schema versions that
// predate questionsPerAttempt/timeLimitSeconds.
func reconcile(state *domain.AdminState) {
	for i := range state.Quizzes {
		quiz := &state.Quizzes[i]
		if quiz.QuestionsPerAttempt == 0 {
			quiz.QuestionsPerAttempt = len(quiz.QuestionIDs)
		}
		if len(quiz.QuestionIDs) > 0 {
			quiz.QuestionsPerAttempt = clamp(quiz.QuestionsPerAttempt, 1, len(quiz.QuestionIDs))
		}
		if quiz.TimeLimitSeconds == 0 {
			quiz.TimeLimitSeconds = quiz.QuestionsPerAttempt * quiz.SecondsPerQuestion
		}
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
