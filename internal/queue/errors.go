package queue

import (
	"errors"
	"strings"
)

// ErrDuplicateURL is returned when inserting a job whose news URL is already
// enqueued. The existing row is left untouched.
var ErrDuplicateURL = errors.New("news url already enqueued")

func isUniqueURLViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") && strings.Contains(msg, "news_url")
}
