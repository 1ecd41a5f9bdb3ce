package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Dosada05/matchday-system/models"
	"github.com/Dosada05/matchday-system/repositories"
)

type CreateTeamParams struct {
	Division    int    `json:"division"`
	Subdivision string `json:"subdivision"`
	Name        string `json:"name"`
}

// TeamService is the thin surface over the roster store. Team data is
// owned by the wider platform; this service only covers what the
// scheduler needs - ordered subdivision reads plus a seeding write for
// operational recovery and tests.
type TeamService interface {
	Create(ctx context.Context, params CreateTeamParams) (*models.Team, error)
	GetByID(ctx context.Context, id int) (*models.Team, error)
	ListBySubdivision(ctx context.Context, division int, subdivision string) ([]models.Team, error)
}

type teamService struct {
	teamRepo repositories.TeamRepository
}

func NewTeamService(teamRepo repositories.TeamRepository) TeamService {
	return &teamService{
		teamRepo: teamRepo,
	}
}

func (s *teamService) Create(ctx context.Context, params CreateTeamParams) (*models.Team, error) {
	if params.Division < 1 {
		return nil, fmt.Errorf("%w: division must be a positive integer", ErrValidationFailed)
	}
	if strings.TrimSpace(params.Subdivision) == "" {
		return nil, fmt.Errorf("%w: subdivision is required", ErrValidationFailed)
	}
	if strings.TrimSpace(params.Name) == "" {
		return nil, fmt.Errorf("%w: team name is required", ErrValidationFailed)
	}

	team := &models.Team{
		Division:    params.Division,
		Subdivision: strings.TrimSpace(params.Subdivision),
		Name:        strings.TrimSpace(params.Name),
	}

	if err := s.teamRepo.Create(ctx, team); err != nil {
		if errors.Is(err, repositories.ErrTeamNameConflict) {
			return nil, ErrTeamNameConflict
		}
		return nil, fmt.Errorf("failed to create team: %w", err)
	}
	return team, nil
}

func (s *teamService) GetByID(ctx context.Context, id int) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTeamNotFound) {
			return nil, ErrTeamNotFound
		}
		return nil, err
	}
	return team, nil
}

func (s *teamService) ListBySubdivision(ctx context.Context, division int, subdivision string) ([]models.Team, error) {
	if division < 1 {
		return nil, fmt.Errorf("%w: division must be a positive integer", ErrValidationFailed)
	}
	if strings.TrimSpace(subdivision) == "" {
		return nil, fmt.Errorf("%w: subdivision is required", ErrValidationFailed)
	}
	return s.teamRepo.ListBySubdivision(ctx, division, subdivision)
}
