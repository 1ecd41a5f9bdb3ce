package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден (универсальная)
	ErrNotFound = errors.New("requested resource not found")

	// Ошибки валидации и бизнес-правил
	ErrValidationFailed            = errors.New("validation failed")
	ErrPasswordTooShort            = errors.New("password is too short")
	ErrInvalidCredentials          = errors.New("invalid email or password")
	ErrTournamentNameRequired      = errors.New("tournament name is required")
	ErrTournamentInvalidCapacity   = errors.New("tournament capacity must be at least 2")
	ErrTournamentDeadlineRequired  = errors.New("tournament registration deadline is required")
	ErrRegistrationClosed          = errors.New("tournament registration is closed")
	ErrTournamentFull              = errors.New("tournament registration is full")
	ErrInvalidFillStatusTransition = errors.New("invalid tournament fill status transition")

	// Ошибки конфликтов
	ErrRegistrationConflict   = errors.New("team is already registered for this tournament")
	ErrTournamentNameConflict = errors.New("tournament name already exists")
	ErrTeamNameConflict       = errors.New("team name is already in use")
	ErrAdminEmailConflict     = errors.New("email address is already in use")

	// Ошибки конкурентного доступа
	ErrRegenerationInProgress  = errors.New("schedule regeneration already in progress for this subdivision")
	ErrTournamentAlreadyLocked = errors.New("tournament is already locked")
	ErrAutoFillConflict        = errors.New("tournament fill was claimed by another worker")

	// Ошибки, специфичные для сущностей
	ErrTeamNotFound       = errors.New("team not found")
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrScheduleNotFound   = errors.New("no schedule found for this subdivision")
)
