package queue

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
)

// Health aggregates job counts along both stage axes in one grouped query.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	ctx = ensureContext(ctx)
	summary := HealthSummary{}

	rows, err := s.db.QueryContext(ctx,
		`SELECT script_stage, image_stage, COUNT(1) FROM jobs GROUP BY script_stage, image_stage`)
	if err != nil {
		return summary, fmt.Errorf("aggregate stage counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			scriptRaw string
			imageRaw  string
			count     int
		)
		if err := rows.Scan(&scriptRaw, &imageRaw, &count); err != nil {
			return summary, fmt.Errorf("scan stage counts: %w", err)
		}
		scriptStage := ScriptStage(scriptRaw)
		imageStage := ImageStage(imageRaw)

		summary.Total += count
		switch scriptStage {
		case ScriptStagePending:
			summary.ScriptPending += count
		case ScriptStageScripted:
			summary.Scripted += count
		case ScriptStageVoiced:
			summary.Voiced += count
		case ScriptStageCompleted:
			summary.ScriptCompleted += count
		}
		switch imageStage {
		case ImageStagePending:
			summary.ImagesPending += count
		case ImageStageCompleted:
			summary.ImagesCompleted += count
		case ImageStageFailed:
			summary.ImagesFailed += count
		}
		if scriptStage != ScriptStageCompleted || imageStage != ImageStageCompleted {
			summary.InFlight += count
		}
	}
	if err := rows.Err(); err != nil {
		return summary, fmt.Errorf("iterate stage counts: %w", err)
	}
	return summary, nil
}

// Clear removes all jobs and returns the number deleted. Artifacts on disk
// are left alone; retention sweeps own those.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, "DELETE FROM jobs")
	if err != nil {
		return 0, fmt.Errorf("clear jobs: %w", err)
	}
	return res.RowsAffected()
}

// ClearCompleted removes only jobs whose both axes reached terminal success.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx,
		"DELETE FROM jobs WHERE script_stage = ? AND image_stage = ?",
		ScriptStageCompleted, ImageStageCompleted)
	if err != nil {
		return 0, fmt.Errorf("clear completed jobs: %w", err)
	}
	return res.RowsAffected()
}

// RetryImageFailed resets failed image branches back to pending so the image
// worker picks them up again. Stale image paths and the recorded error are
// wiped; the script axis is untouched. With no ids every failed branch is
// reset.
func (s *Store) RetryImageFailed(ctx context.Context, ids ...string) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	query := `UPDATE jobs
        SET image_stage = ?, image_paths_json = NULL, error_message = NULL, updated_at = ?
        WHERE image_stage = ?`
	args := []any{ImageStagePending, now, ImageStageFailed}

	cleaned := make([]string, 0, len(ids))
	for _, id := range ids {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	if len(cleaned) > 0 {
		query += " AND id IN (" + makePlaceholders(len(cleaned)) + ")"
		for _, id := range cleaned {
			args = append(args, id)
		}
	}

	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry failed image branches: %w", err)
	}
	return res.RowsAffected()
}

// Remove deletes specific jobs by id and returns the number deleted.
func (s *Store) Remove(ctx context.Context, ids ...string) (int64, error) {
	cleaned := make([]string, 0, len(ids))
	for _, id := range ids {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	if len(cleaned) == 0 {
		return 0, nil
	}

	args := make([]any, len(cleaned))
	for i, id := range cleaned {
		args[i] = id
	}
	res, err := s.execWithRetry(ctx,
		"DELETE FROM jobs WHERE id IN ("+makePlaceholders(len(cleaned))+")", args...)
	if err != nil {
		return 0, fmt.Errorf("remove jobs: %w", err)
	}
	return res.RowsAffected()
}

// expectedJobColumns lists the columns health checks verify against the live
// table. Keep in sync with schema.sql.
var expectedJobColumns = []string{
	"id",
	"title",
	"news_url",
	"news_source",
	"published_date",
	"content",
	"script_json",
	"audio_path",
	"caption_path",
	"image_paths_json",
	"video_path",
	"script_stage",
	"image_stage",
	"error_message",
	"claimed_by",
	"claimed_at",
	"heartbeat_at",
	"created_at",
	"updated_at",
}

// CheckHealth runs a sequence of diagnostics against the queue database and
// reports how far it got. Each step only runs when the previous one passed.
func (s *Store) CheckHealth(ctx context.Context) DatabaseHealth {
	ctx = ensureContext(ctx)
	health := DatabaseHealth{
		DBPath:        s.path,
		SchemaVersion: fmt.Sprintf("%d", schemaVersion),
	}

	if _, err := os.Stat(s.path); err != nil {
		health.Error = fmt.Sprintf("database file not accessible: %v", err)
		return health
	}
	health.DatabaseExists = true

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.db.PingContext(pingCtx); err != nil {
		health.Error = fmt.Sprintf("database not readable: %v", err)
		return health
	}
	health.DatabaseReadable = true

	var tableCount int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='jobs'",
	).Scan(&tableCount)
	if err != nil {
		health.Error = fmt.Sprintf("check jobs table: %v", err)
		return health
	}
	if tableCount == 0 {
		health.Error = "jobs table missing"
		return health
	}
	health.TableExists = true

	present, err := s.tableColumns(ctx, "jobs")
	if err != nil {
		health.Error = fmt.Sprintf("inspect jobs columns: %v", err)
		return health
	}
	health.ColumnsPresent = present
	presentSet := make(map[string]struct{}, len(present))
	for _, col := range present {
		presentSet[col] = struct{}{}
	}
	for _, col := range expectedJobColumns {
		if _, ok := presentSet[col]; !ok {
			health.MissingColumns = append(health.MissingColumns, col)
		}
	}
	if len(health.MissingColumns) > 0 {
		health.Error = fmt.Sprintf("jobs table missing columns: %s", strings.Join(health.MissingColumns, ", "))
		return health
	}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM jobs").Scan(&health.TotalJobs); err != nil {
		health.Error = fmt.Sprintf("count jobs: %v", err)
		return health
	}

	var integrity string
	if err := s.db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&integrity); err != nil {
		health.Error = fmt.Sprintf("integrity check: %v", err)
		return health
	}
	if integrity != "ok" {
		health.Error = fmt.Sprintf("integrity check reported: %s", integrity)
		return health
	}
	health.IntegrityCheck = true

	return health
}

func (s *Store) tableColumns(ctx context.Context, table string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var (
			cid        int
			name       string
			columnType string
			notNull    int
			defaultVal any
			primaryKey int
		)
		if err := rows.Scan(&cid, &name, &columnType, &notNull, &defaultVal, &primaryKey); err != nil {
			return nil, err
		}
		columns = append(columns, name)
	}
	return columns, rows.Err()
}
