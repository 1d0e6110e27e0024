package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ProCoderAkhil/mptcquiz/internal/app"
	"github.com/ProCoderAkhil/mptcquiz/internal/attempt"
	"github.com/ProCoderAkhil/mptcquiz/internal/domain"
)

type WSHandler struct {
	service  *app.QuizService
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

func NewWSHandler(service *app.QuizService, log zerolog.Logger) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log.With().Str("component", "ws").Logger(),
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	OptionIndex int `json:"optionIndex"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// questionView hides the correct option from the kiosk while the attempt is
// still running; full questions ship only with the final review.
type questionView struct {
	ID       int      `json:"id"`
	Category string   `json:"category"`
	Text     string   `json:"text"`
	Options  []string `json:"options"`
}

type startedPayload struct {
	Participant      domain.Participant `json:"participant"`
	QuizTitle        string             `json:"quizTitle"`
	TotalQuestions   int                `json:"totalQuestions"`
	TimeLimitSeconds int                `json:"timeLimitSeconds"`
}

type questionPayload struct {
	Index            int          `json:"index"`
	Total            int          `json:"total"`
	RemainingSeconds int          `json:"remainingSeconds"`
	Question         questionView `json:"question"`
}

type tickPayload struct {
	RemainingSeconds int `json:"remainingSeconds"`
}

type answerResult struct {
	QuestionID int  `json:"questionId"`
	Correct    bool `json:"correct"`
}

type donePayload struct {
	Attempt   domain.Attempt    `json:"attempt"`
	Questions []domain.Question `json:"questions"`
}

// ServeWS runs one kiosk attempt over a websocket: registration and
// allocation on connect, question/tick/finalized events outbound, answer
// submissions inbound.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	phone := r.URL.Query().Get("phone")
	className := r.URL.Query().Get("class")
	if name == "" || phone == "" || className == "" {
		http.Error(w, "missing name, phone, or class", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	machine, participant, err := h.service.StartAttempt(r.Context(), name, phone, className)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	go machine.Run(r.Context())

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	eventsDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug().Err(err).Msg("ws write error")
				return
			}
		}
	}()

	go func() {
		defer close(eventsDone)
		for {
			select {
			case event := <-machine.Events():
				msg, last := h.eventMessage(machine, event)
				select {
				case send <- msg:
				case <-closeSignals:
					return
				}
				if last {
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	snapshot := machine.Snapshot()
	questions := machine.Questions()
	send <- outboundMessage[any]{Type: "started", Payload: startedPayload{
		Participant:      participant,
		QuizTitle:        quizTitle(h.service),
		TotalQuestions:   snapshot.TotalQuestions,
		TimeLimitSeconds: snapshot.RemainingSeconds,
	}}
	send <- outboundMessage[any]{Type: "question", Payload: questionPayload{
		Index:            0,
		Total:            len(questions),
		RemainingSeconds: snapshot.RemainingSeconds,
		Question:         viewOf(questions[0]),
	}}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
				continue
			}
			question, ok := machine.CurrentQuestion()
			if !ok {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: domain.ErrAttemptFinished.Error()}}
				continue
			}
			correct, err := machine.SelectAnswer(payload.OptionIndex)
			if err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			send <- outboundMessage[any]{Type: "answerResult", Payload: answerResult{
				QuestionID: question.ID,
				Correct:    correct,
			}}
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-eventsDone
	close(send)
	<-writerDone
}

// eventMessage translates a machine event into the wire message; last is
// true for the terminal done event.
func (h *WSHandler) eventMessage(machine *attempt.Machine, event attempt.Event) (outboundMessage[any], bool) {
	switch event.Type {
	case attempt.EventQuestion:
		questions := machine.Questions()
		return outboundMessage[any]{Type: "question", Payload: questionPayload{
			Index:            event.QuestionIndex,
			Total:            len(questions),
			RemainingSeconds: event.RemainingSeconds,
			Question:         viewOf(questions[event.QuestionIndex]),
		}}, false
	case attempt.EventFinalized:
		return outboundMessage[any]{Type: "finalized", Payload: event.Attempt}, false
	case attempt.EventDone:
		payload := donePayload{Questions: machine.Questions()}
		if event.Attempt != nil {
			payload.Attempt = *event.Attempt
		}
		return outboundMessage[any]{Type: "done", Payload: payload}, true
	default:
		return outboundMessage[any]{Type: "tick", Payload: tickPayload{
			RemainingSeconds: event.RemainingSeconds,
		}}, false
	}
}

func viewOf(q domain.Question) questionView {
	return questionView{ID: q.ID, Category: q.Category, Text: q.Text, Options: q.Options}
}

func quizTitle(service *app.QuizService) string {
	if quiz, ok := service.ActiveQuiz(); ok {
		return quiz.Title
	}
	return ""
}
