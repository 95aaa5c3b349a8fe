package captions

import (
	"strings"
	"testing"
	"time"
)

func TestBuildCuesChainsEndTimes(t *testing.T) {
	words := []Word{
		{TimeMillis: 0, Value: "one"},
		{TimeMillis: 500, Value: "two"},
		{TimeMillis: 1000, Value: "three"},
	}
	cues := BuildCues(words)
	if len(cues) != 3 {
		t.Fatalf("expected 3 cues, got %d", len(cues))
	}
	if cues[0].Start != 0 || cues[0].End != 500*time.Millisecond || cues[0].Text != "ONE" {
		t.Fatalf("unexpected first cue: %+v", cues[0])
	}
	if cues[1].Start != 500*time.Millisecond || cues[1].End != time.Second || cues[1].Text != "TWO" {
		t.Fatalf("unexpected second cue: %+v", cues[1])
	}
	if cues[2].Start != time.Second || cues[2].End != 1400*time.Millisecond || cues[2].Text != "THREE" {
		t.Fatalf("unexpected third cue: %+v", cues[2])
	}
	for i, cue := range cues {
		if cue.Index != i+1 {
			t.Fatalf("cue %d has index %d", i, cue.Index)
		}
	}
}

func TestBuildCuesSingleWordGetsTailPadding(t *testing.T) {
	cues := BuildCues([]Word{{TimeMillis: 250, Value: "hello"}})
	if len(cues) != 1 {
		t.Fatalf("expected 1 cue, got %d", len(cues))
	}
	if cues[0].Start != 250*time.Millisecond || cues[0].End != 650*time.Millisecond {
		t.Fatalf("unexpected cue window: %+v", cues[0])
	}
	if cues[0].Text != "HELLO" {
		t.Fatalf("unexpected cue text: %q", cues[0].Text)
	}
}

func TestBuildCuesEmptyInput(t *testing.T) {
	cues := BuildCues(nil)
	if len(cues) != 0 {
		t.Fatalf("expected no cues, got %d", len(cues))
	}
}

func TestBuildCuesUppercasesBeyondASCII(t *testing.T) {
	cues := BuildCues([]Word{
		{TimeMillis: 0, Value: "café"},
		{TimeMillis: 400, Value: "straße"},
	})
	if cues[0].Text != "CAFÉ" {
		t.Fatalf("unexpected text: %q", cues[0].Text)
	}
	if cues[1].Text != "STRASSE" {
		t.Fatalf("unexpected text: %q", cues[1].Text)
	}
}

func TestFormatSRTByteExact(t *testing.T) {
	cues := BuildCues([]Word{
		{TimeMillis: 0, Value: "one"},
		{TimeMillis: 500, Value: "two"},
		{TimeMillis: 1000, Value: "three"},
	})
	got := FormatSRT(cues)
	want := "1\n00:00:00,000 --> 00:00:00,500\nONE\n\n" +
		"2\n00:00:00,500 --> 00:00:01,000\nTWO\n\n" +
		"3\n00:00:01,000 --> 00:00:01,400\nTHREE\n\n"
	if got != want {
		t.Fatalf("SRT bytes mismatch:\ngot:\n%q\nwant:\n%q", got, want)
	}
}

func TestFormatSRTHourRollover(t *testing.T) {
	cues := []Cue{{
		Index: 1,
		Start: time.Hour + time.Minute + time.Second + 500*time.Millisecond,
		End:   time.Hour + time.Minute + 2*time.Second,
		Text:  "LATE",
	}}
	got := FormatSRT(cues)
	if !strings.Contains(got, "01:01:01,500 --> 01:01:02,000") {
		t.Fatalf("unexpected timestamp formatting: %q", got)
	}
}

func TestFormatSRTEmpty(t *testing.T) {
	if got := FormatSRT(nil); got != "" {
		t.Fatalf("expected empty output, got %q", got)
	}
}

func TestParseTimestampRoundTrip(t *testing.T) {
	for _, d := range []time.Duration{
		0,
		500 * time.Millisecond,
		time.Second,
		59*time.Minute + 59*time.Second + 999*time.Millisecond,
		2*time.Hour + 3*time.Minute + 4*time.Second + 5*time.Millisecond,
	} {
		parsed, err := ParseTimestamp(formatTimestamp(d))
		if err != nil {
			t.Fatalf("ParseTimestamp(%s): %v", formatTimestamp(d), err)
		}
		if parsed != d {
			t.Fatalf("round trip mismatch: %v != %v", parsed, d)
		}
	}
}

func TestParseTimestampRejectsMalformedValues(t *testing.T) {
	for _, value := range []string{
		"",
		"00:00:00.500",
		"00:00,500",
		"aa:bb:cc,ddd",
		"00:61:00,000",
		"00:00:61,000",
		"00:00:00,1000",
	} {
		if _, err := ParseTimestamp(value); err == nil {
			t.Fatalf("expected error for %q", value)
		}
	}
}

func TestValidateSRT(t *testing.T) {
	content := FormatSRT(BuildCues([]Word{
		{TimeMillis: 0, Value: "one"},
		{TimeMillis: 500, Value: "two"},
		{TimeMillis: 1000, Value: "three"},
	}))
	if err := ValidateSRT(content, 3); err != nil {
		t.Fatalf("ValidateSRT rejected valid content: %v", err)
	}
	if err := ValidateSRT(content, 4); err == nil {
		t.Fatal("expected error for wrong cue count")
	}
	if err := ValidateSRT("", 0); err != nil {
		t.Fatalf("empty content with zero cues should pass: %v", err)
	}
	if err := ValidateSRT("", 1); err == nil {
		t.Fatal("expected error for empty content with expected cues")
	}
	if err := ValidateSRT("2\n00:00:00,000 --> 00:00:00,500\nONE\n\n", 1); err == nil {
		t.Fatal("expected error for out-of-order sequence numbers")
	}
	if err := ValidateSRT("1\n00:00:00.000 --> 00:00:00.500\nONE\n\n", 1); err == nil {
		t.Fatal("expected error for period millisecond separator")
	}
	if err := ValidateSRT("1\n00:00:01,000 --> 00:00:00,500\nONE\n\n", 1); err == nil {
		t.Fatal("expected error for backwards time range")
	}
	if err := ValidateSRT("1\n00:00:00,000 --> 00:00:00,500\n \n\n", 1); err == nil {
		t.Fatal("expected error for empty cue text")
	}
}
