package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Dosada05/matchday-system/models"
	"github.com/lib/pq"
)

type SQLExecutor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

var (
	ErrFixtureNotFound    = errors.New("fixture not found")
	ErrFixtureTeamInvalid = errors.New("fixture team conflict or invalid")
)

type FixtureRepository interface {
	BulkInsert(ctx context.Context, exec SQLExecutor, fixtures []*models.Fixture) error
	DeleteByTeams(ctx context.Context, exec SQLExecutor, competitionType models.CompetitionType, teamIDs []int) (int64, error)
	ListByTeams(ctx context.Context, competitionType models.CompetitionType, teamIDs []int, fromDay *int, toDay *int) ([]*models.Fixture, error)
	CountPerDay(ctx context.Context, competitionType models.CompetitionType, teamIDs []int) ([]models.ScheduleDayCount, error)
}

type postgresFixtureRepository struct {
	db *sql.DB
}

func NewPostgresFixtureRepository(db *sql.DB) FixtureRepository {
	return &postgresFixtureRepository{db: db}
}

func (r *postgresFixtureRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

// BulkInsert writes all fixtures in a single multi-row INSERT. It is
// meant to be called inside the same transaction that removed the
// previous schedule, so a regeneration replaces fixtures atomically.
func (r *postgresFixtureRepository) BulkInsert(ctx context.Context, exec SQLExecutor, fixtures []*models.Fixture) error {
	if len(fixtures) == 0 {
		return nil
	}
	executor := r.getExecutor(exec)

	valueStrings := make([]string, 0, len(fixtures))
	args := make([]interface{}, 0, len(fixtures)*5)

	for i, f := range fixtures {
		base := i * 5
		valueStrings = append(valueStrings, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5))
		args = append(args, f.CompetitionType, f.HomeTeamID, f.AwayTeamID, f.Day, f.ScheduledAt)
	}

	query := `
		INSERT INTO fixtures
			(competition_type, home_team_id, away_team_id, day, scheduled_at)
		VALUES ` + strings.Join(valueStrings, ", ")

	_, err := executor.ExecContext(ctx, query, args...)
	return r.handleFixtureError(err)
}

// DeleteByTeams removes every fixture of the given competition type that
// involves any of the listed teams and reports how many rows went away.
func (r *postgresFixtureRepository) DeleteByTeams(ctx context.Context, exec SQLExecutor, competitionType models.CompetitionType, teamIDs []int) (int64, error) {
	if len(teamIDs) == 0 {
		return 0, nil
	}
	executor := r.getExecutor(exec)

	query := `
		DELETE FROM fixtures
		WHERE competition_type = $1
		AND (home_team_id = ANY($2) OR away_team_id = ANY($2))`

	result, err := executor.ExecContext(ctx, query, competitionType, pq.Array(teamIDs))
	if err != nil {
		return 0, fmt.Errorf("failed to delete fixtures: %w", err)
	}
	return result.RowsAffected()
}

func (r *postgresFixtureRepository) ListByTeams(ctx context.Context, competitionType models.CompetitionType, teamIDs []int, fromDay *int, toDay *int) ([]*models.Fixture, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`
		SELECT id, competition_type, home_team_id, away_team_id, day, scheduled_at, created_at
		FROM fixtures
		WHERE competition_type = $1
		AND (home_team_id = ANY($2) OR away_team_id = ANY($2))`)

	args := []interface{}{competitionType, pq.Array(teamIDs)}
	placeholderIndex := 3

	if fromDay != nil {
		queryBuilder.WriteString(" AND day >= $")
		queryBuilder.WriteString(strconv.Itoa(placeholderIndex))
		args = append(args, *fromDay)
		placeholderIndex++
	}
	if toDay != nil {
		queryBuilder.WriteString(" AND day <= $")
		queryBuilder.WriteString(strconv.Itoa(placeholderIndex))
		args = append(args, *toDay)
		placeholderIndex++
	}

	queryBuilder.WriteString(" ORDER BY day, id")

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fixtures := make([]*models.Fixture, 0)
	for rows.Next() {
		var f models.Fixture
		if scanErr := rows.Scan(
			&f.ID, &f.CompetitionType, &f.HomeTeamID, &f.AwayTeamID, &f.Day, &f.ScheduledAt, &f.CreatedAt,
		); scanErr != nil {
			return nil, scanErr
		}
		fixtures = append(fixtures, &f)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return fixtures, nil
}

func (r *postgresFixtureRepository) CountPerDay(ctx context.Context, competitionType models.CompetitionType, teamIDs []int) ([]models.ScheduleDayCount, error) {
	query := `
		SELECT day, COUNT(*)
		FROM fixtures
		WHERE competition_type = $1
		AND (home_team_id = ANY($2) OR away_team_id = ANY($2))
		GROUP BY day
		ORDER BY day`

	rows, err := r.db.QueryContext(ctx, query, competitionType, pq.Array(teamIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make([]models.ScheduleDayCount, 0)
	for rows.Next() {
		var c models.ScheduleDayCount
		if scanErr := rows.Scan(&c.Day, &c.Fixtures); scanErr != nil {
			return nil, scanErr
		}
		counts = append(counts, c)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return counts, nil
}

func (r *postgresFixtureRepository) handleFixtureError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		if pqErr.Code == "23503" {
			switch pqErr.Constraint {
			case "fixtures_home_team_id_fkey", "fixtures_away_team_id_fkey":
				return ErrFixtureTeamInvalid
			}
		}
	}
	return err
}
