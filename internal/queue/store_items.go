package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewJob inserts a pending job for a discovered story. Duplicate URLs are
// rejected with ErrDuplicateURL and leave the existing row untouched.
func (s *Store) NewJob(ctx context.Context, item NewsItem) (*Job, error) {
	title := strings.TrimSpace(item.Title)
	url := strings.TrimSpace(item.URL)
	if title == "" {
		return nil, errors.New("news item title is required")
	}
	if url == "" {
		return nil, errors.New("news item url is required")
	}

	id := uuid.NewString()
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO jobs (
            id, title, news_url, news_source, published_date, content,
            script_stage, image_stage, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		title,
		url,
		nullableString(strings.TrimSpace(item.Source)),
		nullableString(strings.TrimSpace(item.Published)),
		nullableString(strings.TrimSpace(item.Content)),
		ScriptStagePending,
		ImageStagePending,
		timestamp,
		timestamp,
	)
	if err != nil {
		if isUniqueURLViolation(err) {
			return nil, ErrDuplicateURL
		}
		return nil, fmt.Errorf("insert job: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a job by identifier. Missing jobs return (nil, nil).
func (s *Store) GetByID(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// FindByURL returns the job holding a news URL, if any.
func (s *Store) FindByURL(ctx context.Context, url string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE news_url = ? LIMIT 1`, strings.TrimSpace(url))
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by url: %w", err)
	}
	return job, nil
}

// List returns jobs filtered by script stage (or all jobs when no stage is
// provided) ordered by creation time.
func (s *Store) List(ctx context.Context, stages ...ScriptStage) ([]*Job, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + jobColumns + ` FROM jobs`
	orderClause := ` ORDER BY created_at, id`

	if len(stages) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(stages))
		args := make([]any, len(stages))
		for i, stage := range stages {
			args[i] = stage
		}
		query := baseQuery + ` WHERE script_stage IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// ListByImageStage returns jobs whose image branch is at the given stage,
// ordered by creation time.
func (s *Store) ListByImageStage(ctx context.Context, stage ImageStage) ([]*Job, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE image_stage = ? ORDER BY created_at, id`, stage)
	if err != nil {
		return nil, fmt.Errorf("list by image stage: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Update persists changes to an existing job as one atomic row write. The
// job is validated first so a partial image set or an unknown stage value
// can never reach the database.
func (s *Store) Update(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	if err := job.Validate(); err != nil {
		return fmt.Errorf("validate job: %w", err)
	}

	scriptJSON, err := encodeScript(job.Script)
	if err != nil {
		return err
	}
	imagesJSON, err := encodeStrings(job.ImagePaths)
	if err != nil {
		return err
	}

	job.UpdatedAt = time.Now().UTC()
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE jobs
         SET title = ?, news_url = ?, news_source = ?, published_date = ?, content = ?,
             script_json = ?, audio_path = ?, caption_path = ?, image_paths_json = ?,
             video_path = ?, script_stage = ?, image_stage = ?, error_message = ?,
             claimed_by = ?, claimed_at = ?, heartbeat_at = ?, updated_at = ?
         WHERE id = ?`,
		job.Title,
		job.NewsURL,
		nullableString(job.NewsSource),
		nullableString(job.PublishedDate),
		nullableString(job.Content),
		scriptJSON,
		nullableString(job.AudioPath),
		nullableString(job.CaptionPath),
		imagesJSON,
		nullableString(job.VideoPath),
		job.ScriptStage,
		job.ImageStage,
		nullableString(job.ErrorMessage),
		nullableString(job.ClaimedBy),
		nullableTime(job.ClaimedAt),
		nullableTime(job.HeartbeatAt),
		job.UpdatedAt.Format(time.RFC3339Nano),
		job.ID,
	); err != nil {
		if isUniqueURLViolation(err) {
			return ErrDuplicateURL
		}
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}
