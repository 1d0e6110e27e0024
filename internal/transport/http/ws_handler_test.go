package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ProCoderAkhil/mptcquiz/internal/alloc"
	"github.com/ProCoderAkhil/mptcquiz/internal/app"
	"github.com/ProCoderAkhil/mptcquiz/internal/catalog"
	"github.com/ProCoderAkhil/mptcquiz/internal/domain"
	"github.com/ProCoderAkhil/mptcquiz/internal/infra/memory"
	"github.com/ProCoderAkhil/mptcquiz/internal/store"
)

const testQuestionCount = 6

func newTestService(t *testing.T, withActiveQuiz bool) (*app.QuizService, *store.Store) {
	t.Helper()
	questions := make([]domain.Question, testQuestionCount)
	for i := range questions {
		questions[i] = domain.Question{
			ID:            i + 1,
			Text:          fmt.Sprintf("question %d", i+1),
			Options:       []string{"A", "B", "C"},
			CorrectOption: 0,
		}
	}

	initial := domain.AdminState{}
	if withActiveQuiz {
		initial = domain.AdminState{
			Quizzes: []domain.QuizDefinition{{
				ID:                  "quiz-1",
				Title:               "Walk-up Quiz",
				QuestionIDs:         []int{1, 2, 3, 4, 5, 6},
				SecondsPerQuestion:  60,
				QuestionsPerAttempt: 3,
				TimeLimitSeconds:    180,
				AllowRetake:         true,
				IsActive:            true,
			}},
			ActiveQuizID: "quiz-1",
		}
	}

	persister := memory.NewPersister()
	st, err := store.New(context.Background(), persister, initial)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	cat := catalog.NewStatic(questions)
	engine := alloc.NewEngine(cat, persister, zerolog.Nop())
	return app.NewQuizService(st, cat, engine, app.WithFeedbackDelay(0)), st
}

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func readNext(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg envelope
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read message: %v", err)
	}
	return msg
}

// readUntil skips countdown ticks and interleaved messages until one of the
// wanted type arrives.
func readUntil(t *testing.T, conn *websocket.Conn, wanted string) envelope {
	t.Helper()
	for i := 0; i < 50; i++ {
		msg := readNext(t, conn)
		if msg.Type == wanted {
			return msg
		}
		if msg.Type == "error" {
			t.Fatalf("unexpected error message while waiting for %s: %s", wanted, msg.Payload)
		}
	}
	t.Fatalf("no %s message after 50 reads", wanted)
	return envelope{}
}

func wsURL(server *httptest.Server, path, query string) string {
	u := "ws" + strings.TrimPrefix(server.URL, "http") + path
	if query != "" {
		u += "?" + query
	}
	return u
}

func TestServeWSRunsFullAttempt(t *testing.T) {
	service, st := newTestService(t, true)
	handler := NewWSHandler(service, zerolog.Nop())
	server := httptest.NewServer(http.HandlerFunc(handler.ServeWS))
	defer server.Close()

	query := url.Values{"name": {"Alice"}, "phone": {"9876543210"}, "class": {"10A"}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server, "/", query.Encode()), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	started := readUntil(t, conn, "started")
	var startedBody struct {
		Participant      domain.Participant `json:"participant"`
		QuizTitle        string             `json:"quizTitle"`
		TotalQuestions   int                `json:"totalQuestions"`
		TimeLimitSeconds int                `json:"timeLimitSeconds"`
	}
	if err := json.Unmarshal(started.Payload, &startedBody); err != nil {
		t.Fatalf("decode started: %v", err)
	}
	if startedBody.QuizTitle != "Walk-up Quiz" || startedBody.TotalQuestions != 3 {
		t.Fatalf("unexpected started payload: %+v", startedBody)
	}
	if startedBody.Participant.Phone != "9876543210" {
		t.Fatalf("expected normalized phone, got %q", startedBody.Participant.Phone)
	}

	first := readUntil(t, conn, "question")
	var questionBody struct {
		Index    int `json:"index"`
		Question struct {
			ID      int      `json:"id"`
			Options []string `json:"options"`
		} `json:"question"`
	}
	if err := json.Unmarshal(first.Payload, &questionBody); err != nil {
		t.Fatalf("decode question: %v", err)
	}
	if questionBody.Index != 0 || len(questionBody.Question.Options) != 3 {
		t.Fatalf("unexpected first question: %+v", questionBody)
	}

	// Every question's correct option is 0 in this catalog.
	answer := func() {
		payload, _ := json.Marshal(map[string]any{
			"type":    "answer",
			"payload": map[string]int{"optionIndex": 0},
		})
		conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			t.Fatalf("write answer: %v", err)
		}
	}

	for i := 0; i < 2; i++ {
		answer()
		result := readUntil(t, conn, "answerResult")
		var resultBody struct {
			Correct bool `json:"correct"`
		}
		if err := json.Unmarshal(result.Payload, &resultBody); err != nil {
			t.Fatalf("decode answer result: %v", err)
		}
		if !resultBody.Correct {
			t.Fatalf("expected correct feedback on answer %d", i)
		}
	}

	// The final answer finalizes the attempt; its answerResult and the
	// finalized/done events race onto the wire, so just wait for done.
	answer()
	done := readUntil(t, conn, "done")
	var doneBody struct {
		Attempt   domain.Attempt    `json:"attempt"`
		Questions []domain.Question `json:"questions"`
	}
	if err := json.Unmarshal(done.Payload, &doneBody); err != nil {
		t.Fatalf("decode done: %v", err)
	}
	if doneBody.Attempt.Status != domain.AttemptCompleted || doneBody.Attempt.Score != 3 {
		t.Fatalf("unexpected final attempt: %+v", doneBody.Attempt)
	}
	if len(doneBody.Questions) != 3 {
		t.Fatalf("expected review questions, got %d", len(doneBody.Questions))
	}

	if got := len(st.State().Attempts); got != 1 {
		t.Fatalf("expected 1 recorded attempt, got %d", got)
	}
}

func TestServeWSHidesCorrectOption(t *testing.T) {
	service, _ := newTestService(t, true)
	handler := NewWSHandler(service, zerolog.Nop())
	server := httptest.NewServer(http.HandlerFunc(handler.ServeWS))
	defer server.Close()

	query := url.Values{"name": {"Bob"}, "phone": {"5551234567"}, "class": {"9C"}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server, "/", query.Encode()), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	question := readUntil(t, conn, "question")
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(question.Payload, &raw); err != nil {
		t.Fatalf("decode question: %v", err)
	}
	var view map[string]json.RawMessage
	if err := json.Unmarshal(raw["question"], &view); err != nil {
		t.Fatalf("decode question view: %v", err)
	}
	if _, leaked := view["correctOption"]; leaked {
		t.Fatalf("correct option leaked to the kiosk")
	}
}

func TestServeWSRejectsMissingParams(t *testing.T) {
	service, _ := newTestService(t, true)
	handler := NewWSHandler(service, zerolog.Nop())
	server := httptest.NewServer(http.HandlerFunc(handler.ServeWS))
	defer server.Close()

	resp, err := http.Get(server.URL + "/?name=Alice&phone=123")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestServeWSReportsNoActiveQuiz(t *testing.T) {
	service, _ := newTestService(t, false)
	handler := NewWSHandler(service, zerolog.Nop())
	server := httptest.NewServer(http.HandlerFunc(handler.ServeWS))
	defer server.Close()

	query := url.Values{"name": {"Alice"}, "phone": {"123"}, "class": {"10A"}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server, "/", query.Encode()), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	msg := readNext(t, conn)
	if msg.Type != "error" {
		t.Fatalf("expected error message, got %s", msg.Type)
	}
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(msg.Payload, &body); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if body.Message != domain.ErrNoActiveQuiz.Error() {
		t.Fatalf("unexpected error message: %q", body.Message)
	}
}

func TestAdminWSStreamsStateUpdates(t *testing.T) {
	service, st := newTestService(t, true)
	handler := NewAdminHandler(service, zerolog.Nop())
	server := httptest.NewServer(http.HandlerFunc(handler.ServeWS))
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server, "/", ""), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	initial := readUntil(t, conn, "state")
	var initialState domain.AdminState
	if err := json.Unmarshal(initial.Payload, &initialState); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if initialState.ActiveQuizID != "quiz-1" {
		t.Fatalf("unexpected initial state: %+v", initialState)
	}

	st.AddParticipant(store.ParticipantInput{Name: "Alice", Phone: "9876543210", ClassName: "10A"})

	for i := 0; i < 5; i++ {
		msg := readUntil(t, conn, "state")
		var state domain.AdminState
		if err := json.Unmarshal(msg.Payload, &state); err != nil {
			t.Fatalf("decode state: %v", err)
		}
		if len(state.Participants) == 1 {
			return
		}
	}
	t.Fatalf("participant never appeared in streamed state")
}
