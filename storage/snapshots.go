package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/Dosada05/matchday-system/models"
)

const snapshotTimeLayout = "20060102T150405Z"

// SnapshotArchiver keeps JSON snapshots of generated schedules and
// finished auto-fills. A regeneration overwrites the fixture tables, so
// the archive is the only place the previous state stays reviewable.
type SnapshotArchiver struct {
	uploader FileUploader
}

func NewSnapshotArchiver(uploader FileUploader) *SnapshotArchiver {
	return &SnapshotArchiver{uploader: uploader}
}

func (a *SnapshotArchiver) ArchiveScheduleSummary(ctx context.Context, summary *models.ScheduleSummary) (string, error) {
	key := fmt.Sprintf("schedules/div%d/%s/%s.json",
		summary.Division, summary.Subdivision, summary.GeneratedAt.UTC().Format(snapshotTimeLayout))
	return a.put(ctx, key, summary)
}

func (a *SnapshotArchiver) ArchiveAutoFillReport(ctx context.Context, report *models.AutoFillReport) (string, error) {
	key := fmt.Sprintf("tournaments/%d/autofill-%s.json",
		report.TournamentID, report.CompletedAt.UTC().Format(snapshotTimeLayout))
	return a.put(ctx, key, report)
}

func (a *SnapshotArchiver) put(ctx context.Context, key string, payload interface{}) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal snapshot payload (key: %s): %w", key, err)
	}

	result, err := a.uploader.Upload(ctx, key, "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	return result.Location, nil
}
