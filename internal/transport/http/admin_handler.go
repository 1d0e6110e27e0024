package http

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ProCoderAkhil/mptcquiz/internal/app"
	"github.com/ProCoderAkhil/mptcquiz/internal/domain"
)

// AdminHandler streams admin state snapshots over a websocket so dashboards
// see new attempts and roster changes without polling.
type AdminHandler struct {
	service  *app.QuizService
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

func NewAdminHandler(service *app.QuizService, log zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log.With().Str("component", "admin-ws").Logger(),
	}
}

func (h *AdminHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	updates, cancel := h.service.Watch()
	defer cancel()

	// Drain inbound frames so pings and closes are processed.
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case state, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(outboundMessage[domain.AdminState]{Type: "state", Payload: state}); err != nil {
				h.log.Debug().Err(err).Msg("ws write error")
				return
			}
		case <-readerDone:
			return
		case <-r.Context().Done():
			return
		}
	}
}
