package captions

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// TailPadding keeps the final word on screen after speech ends.
const TailPadding = 400 * time.Millisecond

// Word is a single spoken word with its offset from narration start.
type Word struct {
	TimeMillis int64
	Value      string
}

// Cue is one caption with its display window. Index is 1-based to match the
// SubRip sequence numbering.
type Cue struct {
	Index int
	Start time.Duration
	End   time.Duration
	Text  string
}

// BuildCues converts word timing events into caption cues. Cue i starts at
// word i's offset and ends where the next word starts; the final cue ends
// TailPadding after its own start. Words are uppercased for display. Input
// offsets must be monotonic non-decreasing; they are not reordered here.
func BuildCues(words []Word) []Cue {
	caser := cases.Upper(language.Und)
	cues := make([]Cue, 0, len(words))
	for i, word := range words {
		start := time.Duration(word.TimeMillis) * time.Millisecond
		end := start + TailPadding
		if i+1 < len(words) {
			end = time.Duration(words[i+1].TimeMillis) * time.Millisecond
		}
		cues = append(cues, Cue{
			Index: i + 1,
			Start: start,
			End:   end,
			Text:  caser.String(strings.TrimSpace(word.Value)),
		})
	}
	return cues
}

// FormatSRT renders cues in SubRip format. Each block is the sequence
// number, the time range with comma millisecond separators, the text, and a
// blank line. Downstream renderers consume this byte-for-byte, so the layout
// is load-bearing.
func FormatSRT(cues []Cue) string {
	var b strings.Builder
	for _, cue := range cues {
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n",
			cue.Index, formatTimestamp(cue.Start), formatTimestamp(cue.End), cue.Text)
	}
	return b.String()
}

func formatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := d.Milliseconds()
	hours := total / 3_600_000
	minutes := (total % 3_600_000) / 60_000
	seconds := (total % 60_000) / 1000
	millis := total % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", hours, minutes, seconds, millis)
}

// ParseTimestamp parses an SRT timestamp (HH:MM:SS,mmm) into a duration.
func ParseTimestamp(value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	parts := strings.Split(value, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("parse srt timestamp %q: want HH:MM:SS,mmm", value)
	}
	secParts := strings.Split(parts[2], ",")
	if len(secParts) != 2 {
		return 0, fmt.Errorf("parse srt timestamp %q: missing comma millisecond separator", value)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil || hours < 0 {
		return 0, fmt.Errorf("parse srt timestamp %q: bad hours", value)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("parse srt timestamp %q: bad minutes", value)
	}
	seconds, err := strconv.Atoi(secParts[0])
	if err != nil || seconds < 0 || seconds > 59 {
		return 0, fmt.Errorf("parse srt timestamp %q: bad seconds", value)
	}
	millis, err := strconv.Atoi(secParts[1])
	if err != nil || millis < 0 || millis > 999 {
		return 0, fmt.Errorf("parse srt timestamp %q: bad milliseconds", value)
	}
	total := time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(millis)*time.Millisecond
	return total, nil
}

// ValidateSRT checks that content holds exactly wantCues well-formed cue
// blocks: ordered sequence numbers, parseable time ranges that do not run
// backwards, and non-empty text. The voice stage runs this over the file it
// just wrote before advancing the job.
func ValidateSRT(content string, wantCues int) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		if wantCues == 0 {
			return nil
		}
		return fmt.Errorf("srt: empty content, want %d cues", wantCues)
	}
	blocks := strings.Split(trimmed, "\n\n")
	if len(blocks) != wantCues {
		return fmt.Errorf("srt: found %d cue blocks, want %d", len(blocks), wantCues)
	}
	for i, block := range blocks {
		lines := strings.Split(strings.TrimSpace(block), "\n")
		if len(lines) < 3 {
			return fmt.Errorf("srt: cue %d: %d lines, want at least 3", i+1, len(lines))
		}
		seq, err := strconv.Atoi(strings.TrimSpace(lines[0]))
		if err != nil || seq != i+1 {
			return fmt.Errorf("srt: cue %d: bad sequence line %q", i+1, lines[0])
		}
		rangeParts := strings.Split(lines[1], " --> ")
		if len(rangeParts) != 2 {
			return fmt.Errorf("srt: cue %d: bad time range %q", i+1, lines[1])
		}
		start, err := ParseTimestamp(rangeParts[0])
		if err != nil {
			return fmt.Errorf("srt: cue %d: %w", i+1, err)
		}
		end, err := ParseTimestamp(rangeParts[1])
		if err != nil {
			return fmt.Errorf("srt: cue %d: %w", i+1, err)
		}
		if end < start {
			return fmt.Errorf("srt: cue %d: end %s before start %s", i+1, rangeParts[1], rangeParts[0])
		}
		if strings.TrimSpace(lines[2]) == "" {
			return fmt.Errorf("srt: cue %d: empty text", i+1)
		}
	}
	return nil
}
