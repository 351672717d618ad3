package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/Dosada05/tournament-registry/models"
	"github.com/Dosada05/tournament-registry/realtime"
)

// TournamentLookup проверяет, что турнир существует, до апгрейда соединения.
type TournamentLookup interface {
	GetByID(ctx context.Context, id string) (*models.TournamentView, error)
}

type WebSocketHandler struct {
	responder
	hub         *realtime.Hub
	tournaments TournamentLookup
	upgrader    websocket.Upgrader
}

// NewWebSocketHandler разрешает подключения с allowedOrigins; "*" или пустой
// список разрешают любой Origin.
func NewWebSocketHandler(hub *realtime.Hub, tournaments TournamentLookup, allowedOrigins []string, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		responder:   newResponder(logger),
		hub:         hub,
		tournaments: tournaments,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		o = strings.TrimSpace(o)
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		if o != "" {
			set[strings.ToLower(o)] = true
		}
	}
	if len(set) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// не браузерный клиент
		if origin == "" {
			return true
		}
		return set[strings.ToLower(origin)]
	}
}

// ServeWs godoc
// @Summary Подписка на события турнира
// @Description Клиент получает REGISTRATION_*, TOURNAMENT_UPDATED и MATCH_UPDATED.
// @Tags realtime
// @Param id path string true "Tournament ID"
// @Success 101
// @Failure 404 {object} map[string]string
// @Router /ws/tournaments/{id} [get]
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "id")
	if err != nil {
		h.badRequestResponse(w, r, err)
		return
	}

	if h.tournaments != nil {
		if _, err := h.tournaments.GetByID(r.Context(), tournamentID); err != nil {
			h.mapServiceErrorToHTTP(w, r, err)
			return
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade сам отправляет HTTP ошибку клиенту
		h.logger.WarnContext(r.Context(), "websocket upgrade failed",
			slog.String("tournament_id", tournamentID), slog.Any("error", err))
		return
	}

	room := realtime.RoomForTournament(tournamentID)
	h.hub.Attach(conn, room)
	h.logger.DebugContext(r.Context(), "websocket client attached", slog.String("room", room))
}
