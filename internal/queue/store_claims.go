package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Claim predicates. Stage values are compile-time constants, so inlining them
// keeps each claim a single statement the planner can serve from the stage
// index.
var (
	scriptingPredicate = fmt.Sprintf("script_stage = '%s'", ScriptStagePending)
	voicingPredicate   = fmt.Sprintf("script_stage = '%s'", ScriptStageScripted)
	imagingPredicate   = fmt.Sprintf("script_stage IN ('%s', '%s') AND image_stage = '%s'",
		ScriptStageScripted, ScriptStageVoiced, ImageStagePending)
	renderingPredicate = fmt.Sprintf("script_stage = '%s' AND image_stage = '%s'",
		ScriptStageVoiced, ImageStageCompleted)
)

// ClaimForScripting leases the oldest story that has not been scripted yet.
func (s *Store) ClaimForScripting(ctx context.Context, workerID string) (*Job, error) {
	return s.claimNext(ctx, workerID, scriptingPredicate)
}

// ClaimForVoicing leases the oldest job with a script awaiting narration.
func (s *Store) ClaimForVoicing(ctx context.Context, workerID string) (*Job, error) {
	return s.claimNext(ctx, workerID, voicingPredicate)
}

// ClaimForImaging leases the oldest job whose image branch is still pending.
// The branch runs concurrently with voicing, so any job at scripted or later
// qualifies as long as its images have not been produced.
func (s *Store) ClaimForImaging(ctx context.Context, workerID string) (*Job, error) {
	return s.claimNext(ctx, workerID, imagingPredicate)
}

// ClaimForRendering leases the oldest job that is fully voiced with a
// complete image set.
func (s *Store) ClaimForRendering(ctx context.Context, workerID string) (*Job, error) {
	return s.claimNext(ctx, workerID, renderingPredicate)
}

// ClaimForScriptingByID leases one specific job if it is still eligible for
// scripting. Used by one-shot stage runs.
func (s *Store) ClaimForScriptingByID(ctx context.Context, workerID, jobID string) (*Job, error) {
	return s.claimByID(ctx, workerID, jobID, scriptingPredicate)
}

// ClaimForVoicingByID leases one specific job if it is still eligible for voicing.
func (s *Store) ClaimForVoicingByID(ctx context.Context, workerID, jobID string) (*Job, error) {
	return s.claimByID(ctx, workerID, jobID, voicingPredicate)
}

// ClaimForImagingByID leases one specific job if its image branch is still pending.
func (s *Store) ClaimForImagingByID(ctx context.Context, workerID, jobID string) (*Job, error) {
	return s.claimByID(ctx, workerID, jobID, imagingPredicate)
}

// ClaimForRenderingByID leases one specific job if it is render ready.
func (s *Store) ClaimForRenderingByID(ctx context.Context, workerID, jobID string) (*Job, error) {
	return s.claimByID(ctx, workerID, jobID, renderingPredicate)
}

// claimNext leases the oldest lease-free job matching the predicate. The
// select and the lease write share one transaction so two workers polling the
// same lane cannot both observe the row as free. Returns (nil, nil) when
// nothing is eligible.
func (s *Store) claimNext(ctx context.Context, workerID, predicate string) (*Job, error) {
	return s.claimWhere(ctx, workerID, predicate+" AND claimed_by IS NULL")
}

// claimByID is claimNext pinned to a single row.
func (s *Store) claimByID(ctx context.Context, workerID, jobID, predicate string) (*Job, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return nil, errors.New("job id is required")
	}
	return s.claimWhere(ctx, workerID,
		predicate+" AND claimed_by IS NULL AND id = '"+strings.ReplaceAll(jobID, "'", "''")+"'")
}

func (s *Store) claimWhere(ctx context.Context, workerID, where string) (*Job, error) {
	ctx = ensureContext(ctx)
	workerID = strings.TrimSpace(workerID)
	if workerID == "" {
		return nil, errors.New("worker id is required")
	}

	var claimedID string
	err := retryOnBusy(ctx, func() error {
		claimedID = ""
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin claim tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		var id string
		row := tx.QueryRowContext(ctx,
			`SELECT id FROM jobs WHERE `+where+` ORDER BY created_at, id LIMIT 1`)
		if err := row.Scan(&id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return fmt.Errorf("select claim candidate: %w", err)
		}

		now := time.Now().UTC().Format(time.RFC3339Nano)
		res, err := tx.ExecContext(ctx,
			`UPDATE jobs SET claimed_by = ?, claimed_at = ?, heartbeat_at = ?, updated_at = ?
             WHERE id = ? AND claimed_by IS NULL`,
			workerID, now, now, now, id)
		if err != nil {
			return fmt.Errorf("mark claim: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("claim rows affected: %w", err)
		}
		if affected == 0 {
			// Lost the race to another worker; treat as nothing eligible.
			return nil
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit claim: %w", err)
		}
		claimedID = id
		return nil
	})
	if err != nil {
		return nil, err
	}
	if claimedID == "" {
		return nil, nil
	}
	return s.GetByID(ctx, claimedID)
}

// CountInFlight counts jobs still occupying the pipeline on either axis.
// Failed image branches count as in flight, so discovery stays paused until
// an operator retries or removes them.
func (s *Store) CountInFlight(ctx context.Context) (int, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		`SELECT COUNT(1) FROM jobs WHERE script_stage != ? OR image_stage != ?`,
		ScriptStageCompleted, ImageStageCompleted)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count in-flight jobs: %w", err)
	}
	return count, nil
}

// Heartbeat refreshes the lease timestamp for a claimed job.
func (s *Store) Heartbeat(ctx context.Context, id string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE jobs SET heartbeat_at = ?, updated_at = ? WHERE id = ? AND claimed_by IS NOT NULL`,
		now, now, id,
	); err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// ReleaseClaim frees a job's lease without touching its stage columns.
func (s *Store) ReleaseClaim(ctx context.Context, id string) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE jobs SET claimed_by = NULL, claimed_at = NULL, heartbeat_at = NULL, updated_at = ?
         WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano), id,
	); err != nil {
		return fmt.Errorf("release claim: %w", err)
	}
	return nil
}

// ReclaimStale frees leases whose heartbeat predates the cutoff, making the
// jobs claimable again after a worker crash. Stage columns are untouched, so
// the reclaimed job simply resumes from its last committed stage.
func (s *Store) ReclaimStale(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET claimed_by = NULL, claimed_at = NULL, heartbeat_at = NULL, updated_at = ?
         WHERE claimed_by IS NOT NULL AND heartbeat_at IS NOT NULL AND heartbeat_at < ?`,
		time.Now().UTC().Format(time.RFC3339Nano),
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim stale leases: %w", err)
	}
	return res.RowsAffected()
}
