package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Dosada05/matchday-system/live"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// В продакшене здесь должна быть проверка Origin,
		// чтобы разрешать подключения только с доверенных доменов.
		return true // Для разработки разрешаем все
	},
}

type WebSocketHandler struct {
	hub    *live.Hub
	logger *slog.Logger
}

func NewWebSocketHandler(hub *live.Hub, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:    hub,
		logger: logger,
	}
}

// ServeScheduleWs обрабатывает WebSocket запросы на события расписания
// подразделения. Клиент подключается к /ws/schedule/{division}/{subdivision}
// и получает сообщение schedule.regenerated после каждой перегенерации.
func (h *WebSocketHandler) ServeScheduleWs(w http.ResponseWriter, r *http.Request) {
	divisionStr := chi.URLParam(r, "division")
	division, err := strconv.Atoi(divisionStr)
	if err != nil || division < 1 {
		http.Error(w, "Invalid division", http.StatusBadRequest)
		return
	}
	subdivision := chi.URLParam(r, "subdivision")
	if subdivision == "" {
		http.Error(w, "Missing subdivision", http.StatusBadRequest)
		return
	}

	h.serveRoom(w, r, live.LeagueRoom(division, subdivision))
}

// ServeTournamentWs обрабатывает WebSocket запросы для конкретного турнира.
// Клиент должен подключаться к /ws/tournaments/{tournamentID}
func (h *WebSocketHandler) ServeTournamentWs(w http.ResponseWriter, r *http.Request) {
	tournamentIDStr := chi.URLParam(r, "tournamentID")
	tournamentID, err := strconv.Atoi(tournamentIDStr)
	if err != nil || tournamentID < 1 {
		http.Error(w, "Invalid tournamentID", http.StatusBadRequest)
		return
	}

	h.serveRoom(w, r, live.TournamentRoom(tournamentID))
}

func (h *WebSocketHandler) serveRoom(w http.ResponseWriter, r *http.Request, roomID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader.Upgrade сам отправляет HTTP ошибку клиенту, так что здесь просто логируем.
		h.logger.Error("failed to upgrade websocket connection", "room", roomID, "error", err)
		return
	}

	client := &live.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256), // Буферизированный канал
		Room: roomID,
	}
	client.Hub.Register <- client

	// Горутины чтения и записи живут, пока клиент не отключится.
	go client.WritePump()
	go client.ReadPump()

	h.logger.Debug("websocket client registered", "room", roomID)
}
