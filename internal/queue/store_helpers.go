package queue

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const jobColumns = "id, title, news_url, news_source, published_date, content, script_json, audio_path, caption_path, image_paths_json, video_path, script_stage, image_stage, error_message, claimed_by, claimed_at, heartbeat_at, created_at, updated_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id           string
		title        string
		newsURL      string
		newsSource   sql.NullString
		published    sql.NullString
		content      sql.NullString
		scriptJSON   sql.NullString
		audioPath    sql.NullString
		captionPath  sql.NullString
		imagesJSON   sql.NullString
		videoPath    sql.NullString
		scriptStage  string
		imageStage   string
		errorMessage sql.NullString
		claimedBy    sql.NullString
		claimedRaw   sql.NullString
		heartbeatRaw sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&title,
		&newsURL,
		&newsSource,
		&published,
		&content,
		&scriptJSON,
		&audioPath,
		&captionPath,
		&imagesJSON,
		&videoPath,
		&scriptStage,
		&imageStage,
		&errorMessage,
		&claimedBy,
		&claimedRaw,
		&heartbeatRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:            id,
		Title:         title,
		NewsURL:       newsURL,
		NewsSource:    newsSource.String,
		PublishedDate: published.String,
		Content:       content.String,
		AudioPath:     audioPath.String,
		CaptionPath:   captionPath.String,
		VideoPath:     videoPath.String,
		ScriptStage:   ScriptStage(scriptStage),
		ImageStage:    ImageStage(imageStage),
		ErrorMessage:  errorMessage.String,
		ClaimedBy:     claimedBy.String,
	}

	if scriptJSON.Valid && scriptJSON.String != "" {
		script, err := decodeScript(scriptJSON.String)
		if err != nil {
			return nil, fmt.Errorf("decode script for job %s: %w", id, err)
		}
		job.Script = script
	}
	if imagesJSON.Valid && imagesJSON.String != "" {
		paths, err := decodeStrings(imagesJSON.String)
		if err != nil {
			return nil, fmt.Errorf("decode image paths for job %s: %w", id, err)
		}
		job.ImagePaths = paths
	}

	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	if claimedRaw.Valid {
		if claimed, err := parseTimeString(claimedRaw.String); err == nil {
			job.ClaimedAt = &claimed
		}
	}
	if heartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(heartbeatRaw.String); err == nil {
			job.HeartbeatAt = &heartbeat
		}
	}
	return job, nil
}

func encodeScript(script *Script) (any, error) {
	if script == nil {
		return nil, nil
	}
	data, err := json.Marshal(script)
	if err != nil {
		return nil, fmt.Errorf("marshal script: %w", err)
	}
	return string(data), nil
}

func decodeScript(raw string) (*Script, error) {
	var script Script
	if err := json.Unmarshal([]byte(raw), &script); err != nil {
		return nil, err
	}
	return &script, nil
}

func encodeStrings(values []string) (any, error) {
	if len(values) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("marshal string list: %w", err)
	}
	return string(data), nil
}

func decodeStrings(raw string) ([]string, error) {
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, err
	}
	return values, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
