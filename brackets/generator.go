package brackets

import (
	"context"

	"github.com/Dosada05/matchday-system/models"
)

type GenerateBracketParams struct {
	Tournament *models.Tournament
	Entries    []*models.Entry
}

type BracketGenerator interface {
	GenerateBracket(ctx context.Context, params GenerateBracketParams) ([]*BracketMatch, error)

	GetName() string
}
