package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/Dosada05/matchday-system/models"
	"github.com/Dosada05/matchday-system/services"
)

type ScheduleHandler struct {
	scheduleService services.ScheduleService
}

func NewScheduleHandler(ss services.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{
		scheduleService: ss,
	}
}

// Regenerate godoc
// @Summary Перегенерировать расписание подразделения
// @Tags schedule
// @Description Удаляет все матчи подразделения данного типа и записывает свежесгенерированное расписание одной транзакцией. Повторный вызов с тем же составом даёт идентичный результат.
// @Accept json
// @Produce json
// @Param body body services.RegenerateScheduleParams true "Ключ подразделения"
// @Success 200 {object} map[string]interface{} "Сводка: число матчей и распределение по дням"
// @Failure 400 {object} map[string]string "Ошибка валидации"
// @Failure 409 {object} map[string]string "Регенерация этого ключа уже выполняется"
// @Failure 422 {object} map[string]string "Состав слишком мал или окно сезона исчерпано"
// @Security BearerAuth
// @Router /schedule/regenerate [post]
func (h *ScheduleHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	var input services.RegenerateScheduleParams
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.CompetitionType == "" {
		input.CompetitionType = models.CompetitionLeague
	}

	summary, err := h.scheduleService.Regenerate(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"summary": summary}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetSummary godoc
// @Summary Сводка текущего расписания подразделения
// @Tags schedule
// @Produce json
// @Param division query int true "Division number"
// @Param subdivision query string true "Subdivision label"
// @Param type query string false "Competition type (LEAGUE by default)"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string "Расписание не найдено"
// @Router /schedule/summary [get]
func (h *ScheduleHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	division, subdivision, err := getSubdivisionKey(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	competitionType := getCompetitionType(r)

	summary, err := h.scheduleService.GetSummary(r.Context(), division, subdivision, competitionType)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"summary": summary}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListFixtures godoc
// @Summary Матчи подразделения по дням
// @Tags schedule
// @Produce json
// @Param division query int true "Division number"
// @Param subdivision query string true "Subdivision label"
// @Param type query string false "Competition type (LEAGUE by default)"
// @Param from_day query int false "First season day (inclusive)"
// @Param to_day query int false "Last season day (inclusive)"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string "Некорректные параметры"
// @Router /schedule [get]
func (h *ScheduleHandler) ListFixtures(w http.ResponseWriter, r *http.Request) {
	division, subdivision, err := getSubdivisionKey(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	competitionType := getCompetitionType(r)

	fromDay, err := getOptionalDay(r, "from_day")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	toDay, err := getOptionalDay(r, "to_day")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	fixtures, err := h.scheduleService.ListFixtures(r.Context(), division, subdivision, competitionType, fromDay, toDay)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"fixtures": fixtures}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func getCompetitionType(r *http.Request) models.CompetitionType {
	if typeStr := r.URL.Query().Get("type"); typeStr != "" {
		return models.CompetitionType(typeStr)
	}
	return models.CompetitionLeague
}

func getOptionalDay(r *http.Request, param string) (*int, error) {
	dayStr := r.URL.Query().Get(param)
	if dayStr == "" {
		return nil, nil
	}
	day, err := strconv.Atoi(dayStr)
	if err != nil || day < 1 {
		return nil, fmt.Errorf("invalid %s query parameter: %q", param, dayStr)
	}
	return &day, nil
}
