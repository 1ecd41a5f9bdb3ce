// File: matchday-system/services/helpers.go
package services

import (
	"context"

	"github.com/Dosada05/matchday-system/models"
	"github.com/Dosada05/matchday-system/repositories"
)

// --- Общие хелперы ---

// TxRunner runs a function inside one database transaction. Services
// depend on this instead of *sql.DB so tests can substitute a fake.
type TxRunner interface {
	WithinTransaction(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error
}

// Broadcaster pushes a message to every websocket client in a room.
type Broadcaster interface {
	BroadcastToRoom(roomID string, message interface{})
}

func isValidFillTransition(current, next models.TournamentFillStatus) bool {
	if current == next {
		return true
	}
	allowedTransitions := map[models.TournamentFillStatus][]models.TournamentFillStatus{
		models.FillStatusOpen:       {models.FillStatusAutoFilled, models.FillStatusLocked},
		models.FillStatusAutoFilled: {models.FillStatusLocked},
		models.FillStatusLocked:     {},
	}
	for _, allowedNextStatus := range allowedTransitions[current] {
		if next == allowedNextStatus {
			return true
		}
	}
	return false
}

// --- Хелперы для преобразования моделей ---

func EntriesToInterface(slice []*models.Entry) []models.Entry {
	if slice == nil {
		return []models.Entry{}
	}
	result := make([]models.Entry, len(slice))
	for i, ptr := range slice {
		if ptr != nil {
			result[i] = *ptr
		}
	}
	return result
}
