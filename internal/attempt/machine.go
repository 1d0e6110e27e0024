package attempt

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ProCoderAkhil/mptcquiz/internal/domain"
)

// State is the machine's lifecycle position. Finalize is guarded by a
// compare-and-set on this enum under the machine mutex: the first trigger to
// move Running -> Finalizing wins and every later trigger is a no-op, so a
// timeout tick racing a just-submitted final answer still writes exactly one
// attempt record.
type State int

const (
	StateRunning State = iota
	StateFinalizing
	StateDone
)

// Recorder is the store-facing write path for finalized attempts.
type Recorder interface {
	RecordAttempt(fields domain.Attempt) domain.Attempt
}

// EventType tags machine events streamed to the transport.
type EventType string

const (
	// EventTick carries the countdown each second.
	EventTick EventType = "tick"
	// EventQuestion signals an advance to the next question.
	EventQuestion EventType = "question"
	// EventFinalized carries the recorded attempt.
	EventFinalized EventType = "finalized"
	// EventDone signals the terminal state after the display delay.
	EventDone EventType = "done"
)

// Event is one machine notification.
type Event struct {
	Type             EventType
	QuestionIndex    int
	RemainingSeconds int
	Attempt          *domain.Attempt
}

// View is a point-in-time snapshot for render surfaces.
type View struct {
	State            State
	QuestionIndex    int
	RemainingSeconds int
	TotalQuestions   int
}

// Config assembles one attempt run.
type Config struct {
	Quiz        domain.QuizDefinition
	Participant domain.Participant
	Questions   []domain.Question
	Recorder    Recorder
	// FeedbackDelay is the fixed display delay between an answer and the
	// advance/finalize that follows it, and between finalize and Done.
	FeedbackDelay time.Duration
	Clock         func() time.Time
	Logger        zerolog.Logger
}

// Machine drives one quiz attempt end to end: countdown, answer capture,
// auto-advance, and single finalization.
type Machine struct {
	mu         sync.Mutex
	state      State
	index      int
	remaining  int
	selections map[int]int
	result     *domain.Attempt

	quiz        domain.QuizDefinition
	participant domain.Participant
	questions   []domain.Question
	startedAt   time.Time

	recorder Recorder
	delay    time.Duration
	now      func() time.Time
	log      zerolog.Logger

	events chan Event
	done   chan struct{}
}

// New builds a running machine with the full time budget on the clock.
func New(cfg Config) (*Machine, error) {
	if len(cfg.Questions) == 0 {
		return nil, errors.New("attempt needs at least one question")
	}
	if cfg.Recorder == nil {
		return nil, errors.New("attempt needs a recorder")
	}
	now := cfg.Clock
	if now == nil {
		now = time.Now
	}
	return &Machine{
		state:       StateRunning,
		remaining:   cfg.Quiz.TimeLimitSeconds,
		selections:  make(map[int]int, len(cfg.Questions)),
		quiz:        cfg.Quiz,
		participant: cfg.Participant,
		questions:   cfg.Questions,
		startedAt:   now(),
		recorder:    cfg.Recorder,
		delay:       cfg.FeedbackDelay,
		now:         now,
		log:         cfg.Logger.With().Str("component", "attempt").Logger(),
		events:      make(chan Event, 32),
		done:        make(chan struct{}),
	}, nil
}

// Run drives the one-second countdown until the attempt finishes or ctx is
// canceled (view teardown). Ticks and answer handling interleave through the
// machine mutex; neither runs concurrently with the other.
func (m *Machine) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-m.done:
			return
		case <-ticker.C:
			m.Tick()
		}
	}
}

// Tick consumes one countdown second. At zero the attempt finalizes with
// status timeout; ticks after finalization are no-ops.
func (m *Machine) Tick() {
	m.mu.Lock()
	if m.state != StateRunning {
		m.mu.Unlock()
		return
	}
	m.remaining--
	if m.remaining > 0 {
		m.emit(Event{Type: EventTick, QuestionIndex: m.index, RemainingSeconds: m.remaining})
		m.mu.Unlock()
		return
	}
	m.remaining = 0
	m.finalizeLocked(domain.AttemptTimeout)
}

// SelectAnswer records the option for the current question and returns
// whether it was correct, for immediate feedback. After the feedback delay
// the machine advances or, on the last question, finalizes as completed.
func (m *Machine) SelectAnswer(option int) (bool, error) {
	m.mu.Lock()
	if m.state != StateRunning {
		m.mu.Unlock()
		return false, domain.ErrAttemptFinished
	}
	question := m.questions[m.index]
	if _, answered := m.selections[question.ID]; answered {
		m.mu.Unlock()
		return false, domain.ErrAlreadyAnswered
	}
	m.selections[question.ID] = option
	correct := option == question.CorrectOption
	m.mu.Unlock()

	if m.delay > 0 {
		time.AfterFunc(m.delay, m.advance)
	} else {
		m.advance()
	}
	return correct, nil
}

func (m *Machine) advance() {
	m.mu.Lock()
	if m.state != StateRunning {
		m.mu.Unlock()
		return
	}
	if m.index < len(m.questions)-1 {
		m.index++
		m.emit(Event{Type: EventQuestion, QuestionIndex: m.index, RemainingSeconds: m.remaining})
		m.mu.Unlock()
		return
	}
	m.finalizeLocked(domain.AttemptCompleted)
}

// finalizeLocked is entered with the mutex held and the Running state
// already verified. Setting Finalizing before any asynchronous work is the
// exactly-once latch.
func (m *Machine) finalizeLocked(status domain.AttemptStatus) {
	m.state = StateFinalizing
	fields := m.buildAttemptLocked(status)
	m.mu.Unlock()

	recorded := m.recorder.RecordAttempt(fields)
	m.log.Info().
		Str("attempt", recorded.ID).
		Str("status", string(status)).
		Int("score", recorded.Score).
		Msg("attempt finalized")

	m.mu.Lock()
	m.result = &recorded
	m.mu.Unlock()
	m.emit(Event{Type: EventFinalized, RemainingSeconds: fields.TimeTakenSeconds, Attempt: &recorded})

	if m.delay > 0 {
		time.AfterFunc(m.delay, m.complete)
	} else {
		m.complete()
	}
}

func (m *Machine) complete() {
	m.mu.Lock()
	if m.state != StateFinalizing {
		m.mu.Unlock()
		return
	}
	m.state = StateDone
	result := m.result
	m.mu.Unlock()

	m.emit(Event{Type: EventDone, Attempt: result})
	close(m.done)
}

func (m *Machine) buildAttemptLocked(status domain.AttemptStatus) domain.Attempt {
	answers := make([]domain.AttemptAnswer, len(m.questions))
	score := 0
	for i, question := range m.questions {
		selection := domain.Unanswered()
		correct := false
		if option, answered := m.selections[question.ID]; answered {
			selection = domain.Selected(option)
			correct = option == question.CorrectOption
		}
		if correct {
			score++
		}
		answers[i] = domain.AttemptAnswer{
			QuestionID: question.ID,
			Selected:   selection,
			IsCorrect:  correct,
		}
	}

	timeTaken := m.quiz.TimeLimitSeconds - m.remaining
	if timeTaken < 0 {
		timeTaken = 0
	}

	var completedAt *time.Time
	if status == domain.AttemptCompleted {
		at := m.now()
		completedAt = &at
	}

	return domain.Attempt{
		QuizID:           m.quiz.ID,
		ParticipantID:    m.participant.ID,
		ParticipantName:  m.participant.Name,
		ClassName:        m.participant.ClassName,
		Phone:            m.participant.Phone,
		Answers:          answers,
		Score:            score,
		TotalQuestions:   len(m.questions),
		StartedAt:        m.startedAt,
		CompletedAt:      completedAt,
		Status:           status,
		TimeTakenSeconds: timeTaken,
	}
}

// Snapshot returns the current view.
func (m *Machine) Snapshot() View {
	m.mu.Lock()
	defer m.mu.Unlock()
	return View{
		State:            m.state,
		QuestionIndex:    m.index,
		RemainingSeconds: m.remaining,
		TotalQuestions:   len(m.questions),
	}
}

// CurrentQuestion returns the question on screen while Running.
func (m *Machine) CurrentQuestion() (domain.Question, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateRunning {
		return domain.Question{}, false
	}
	return m.questions[m.index], true
}

// Questions returns the allocated question set in presentation order.
func (m *Machine) Questions() []domain.Question {
	out := make([]domain.Question, len(m.questions))
	copy(out, m.questions)
	return out
}

// Result returns the recorded attempt once finalize has run.
func (m *Machine) Result() (domain.Attempt, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.result == nil {
		return domain.Attempt{}, false
	}
	return *m.result, true
}

// Events streams machine notifications. Stale events are dropped rather
// than blocking the countdown on a slow consumer.
func (m *Machine) Events() <-chan Event {
	return m.events
}

// Done closes once the machine reaches its terminal state.
func (m *Machine) Done() <-chan struct{} {
	return m.done
}

func (m *Machine) emit(event Event) {
	select {
	case m.events <- event:
	default:
		select {
		case <-m.events:
		default:
		}
		select {
		case m.events <- event:
		default:
		}
	}
}
