package handlers

import (
	"errors"
	"net/http"
	"strconv" // Для парсинга query параметров
	"time"

	"github.com/Dosada05/matchday-system/models" // Для статусов заполнения
	"github.com/Dosada05/matchday-system/repositories"
	"github.com/Dosada05/matchday-system/services"
)

type TournamentHandler struct {
	tournamentService services.TournamentService
}

func NewTournamentHandler(ts services.TournamentService) *TournamentHandler {
	return &TournamentHandler{
		tournamentService: ts,
	}
}

// CreateTournament godoc
// @Summary Создать турнир
// @Tags tournaments
// @Description Создаёт турнир со статусом заполнения open. Вместимость должна быть не меньше двух.
// @Accept json
// @Produce json
// @Param body body services.CreateTournamentParams true "Параметры турнира"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Ошибка валидации"
// @Failure 409 {object} map[string]string "Имя турнира уже занято"
// @Security BearerAuth
// @Router /tournaments [post]
func (h *TournamentHandler) CreateTournament(w http.ResponseWriter, r *http.Request) {
	var input services.CreateTournamentParams
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.Create(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetTournamentByID godoc
// @Summary Получить турнир по ID
// @Tags tournaments
// @Description Возвращает турнир вместе с его заявками в порядке регистрации.
// @Produce json
// @Param tournamentID path int true "Tournament ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Турнир не найден"
// @Router /tournaments/{tournamentID} [get]
func (h *TournamentHandler) GetTournamentByID(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.GetByID(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListTournaments godoc
// @Summary Список турниров
// @Tags tournaments
// @Produce json
// @Param fill_status query string false "Фильтр по статусу заполнения (open, auto_filled, locked)"
// @Param limit query int false "Размер страницы (по умолчанию 20)"
// @Param offset query int false "Смещение"
// @Success 200 {object} map[string]interface{}
// @Router /tournaments [get]
func (h *TournamentHandler) ListTournaments(w http.ResponseWriter, r *http.Request) {
	// Парсинг query параметров для фильтрации
	var filter repositories.ListTournamentsFilter
	query := r.URL.Query()

	if statusStr := query.Get("fill_status"); statusStr != "" {
		status := models.TournamentFillStatus(statusStr)
		if !status.Valid() {
			badRequestResponse(w, r, errors.New("invalid fill_status query parameter"))
			return
		}
		filter.FillStatus = &status
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil && limit > 0 {
			filter.Limit = limit
		} else {
			badRequestResponse(w, r, errors.New("invalid limit query parameter"))
			return
		}
	} else {
		filter.Limit = 20 // Значение по умолчанию
	}
	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil && offset >= 0 {
			filter.Offset = offset
		} else {
			badRequestResponse(w, r, errors.New("invalid offset query parameter"))
			return
		}
	}

	tournaments, err := h.tournamentService.List(r.Context(), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	// Возвращаем список (даже если он пустой)
	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournaments": tournaments}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RegisterEntry godoc
// @Summary Зарегистрировать команду в турнире
// @Tags tournaments
// @Accept json
// @Produce json
// @Param tournamentID path int true "Tournament ID"
// @Param body body object{team_id=int} true "ID команды"
// @Success 201 {object} map[string]interface{}
// @Failure 403 {object} map[string]string "Регистрация закрыта"
// @Failure 404 {object} map[string]string "Турнир или команда не найдены"
// @Failure 409 {object} map[string]string "Команда уже заявлена или мест нет"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/entries [post]
func (h *TournamentHandler) RegisterEntry(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		TeamID int `json:"team_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.TeamID <= 0 {
		badRequestResponse(w, r, errors.New("team_id must be a positive integer"))
		return
	}

	entry, err := h.tournamentService.RegisterEntry(r.Context(), id, input.TeamID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"entry": entry}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// TriggerAutoFill godoc
// @Summary Принудительно заполнить и посеять турнир
// @Tags tournaments
// @Description Добавляет заглушки до вместимости, строит сетку и переводит турнир в locked, не дожидаясь дедлайна. Свипер делает то же самое автоматически по истечении дедлайна.
// @Produce json
// @Param tournamentID path int true "Tournament ID"
// @Success 200 {object} map[string]interface{} "Отчёт об автозаполнении"
// @Failure 404 {object} map[string]string "Турнир не найден"
// @Failure 409 {object} map[string]string "Турнир уже обработан или обрабатывается"
// @Security BearerAuth
// @Router /tournaments/{tournamentID}/autofill [post]
func (h *TournamentHandler) TriggerAutoFill(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	report, err := h.tournamentService.TriggerAutoFill(r.Context(), id, time.Now().UTC())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"report": report}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListBracket godoc
// @Summary Сетка турнира
// @Tags tournaments
// @Description Возвращает матчи сетки в порядке раундов. Пуста, пока турнир не заблокирован.
// @Produce json
// @Param tournamentID path int true "Tournament ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Турнир не найден"
// @Router /tournaments/{tournamentID}/bracket [get]
func (h *TournamentHandler) ListBracket(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	matches, err := h.tournamentService.ListBracket(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"bracket": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
