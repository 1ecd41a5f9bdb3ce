package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Dosada05/matchday-system/services"
	"github.com/go-chi/chi/v5"
)

type TeamHandler struct {
	teamService services.TeamService
}

func NewTeamHandler(ts services.TeamService) *TeamHandler {
	return &TeamHandler{
		teamService: ts,
	}
}

// CreateTeam godoc
// @Summary Добавить команду в подразделение
// @Tags teams
// @Description Операционный ввод: состав обычно управляется внешней платформой.
// @Accept json
// @Produce json
// @Param body body services.CreateTeamParams true "Дивизион, подразделение, название"
// @Success 201 {object} map[string]interface{} "Команда создана"
// @Failure 400 {object} map[string]string "Ошибка валидации"
// @Failure 409 {object} map[string]string "Название уже занято в подразделении"
// @Security BearerAuth
// @Router /teams [post]
func (h *TeamHandler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	var input services.CreateTeamParams
	err := readJSON(w, r, &input)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	team, err := h.teamService.Create(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"team": team,
	}

	err = writeJSON(w, http.StatusCreated, response, nil)
	if err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetTeamByID godoc
// @Summary Получить команду по ID
// @Tags teams
// @Produce json
// @Param teamID path int true "Team ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Команда не найдена"
// @Router /teams/{teamID} [get]
func (h *TeamHandler) GetTeamByID(w http.ResponseWriter, r *http.Request) {
	teamID, err := getIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	team, err := h.teamService.GetByID(r.Context(), teamID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"team": team}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListBySubdivision godoc
// @Summary Список команд подразделения
// @Tags teams
// @Description Возвращает состав в порядке id - в том же порядке, в котором его видит генератор расписаний.
// @Produce json
// @Param division query int true "Division number"
// @Param subdivision query string true "Subdivision label"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Отсутствуют или некорректны параметры"
// @Router /teams [get]
func (h *TeamHandler) ListBySubdivision(w http.ResponseWriter, r *http.Request) {
	division, subdivision, err := getSubdivisionKey(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	teams, err := h.teamService.ListBySubdivision(r.Context(), division, subdivision)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"teams": teams}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Общая вспомогательная функция для извлечения ID из URL
func getIDFromURL(r *http.Request, paramName string) (int, error) {
	idStr := chi.URLParam(r, paramName)
	if idStr == "" {
		// Попробуем общий "id", если специфичный параметр не найден
		idStr = chi.URLParam(r, "id")
		if idStr == "" {
			return 0, fmt.Errorf("missing %s or id in URL path", paramName)
		}
	}

	id, err := strconv.Atoi(idStr)
	if err != nil {
		return 0, fmt.Errorf("invalid %s format: %q", paramName, idStr)
	}

	if id <= 0 {
		return 0, fmt.Errorf("invalid %s value: %d", paramName, id)
	}

	return id, nil
}

// getSubdivisionKey читает пару division/subdivision из query-параметров.
func getSubdivisionKey(r *http.Request) (int, string, error) {
	query := r.URL.Query()

	divisionStr := query.Get("division")
	if divisionStr == "" {
		return 0, "", errors.New("missing division query parameter")
	}
	division, err := strconv.Atoi(divisionStr)
	if err != nil || division <= 0 {
		return 0, "", fmt.Errorf("invalid division query parameter: %q", divisionStr)
	}

	subdivision := query.Get("subdivision")
	if subdivision == "" {
		return 0, "", errors.New("missing subdivision query parameter")
	}

	return division, subdivision, nil
}
