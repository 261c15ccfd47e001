package ingest

import (
	"errors"
	"testing"
	"time"
)

func TestDecode(t *testing.T) {
	played := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		body      string
		wantErr   error
		wantField string
		wantTime  time.Time
	}{
		{
			name:     "rfc3339 timestamp",
			body:     `{"url":"https://minesweeper.online/game/3891992543","timestamp":"2026-10-14T09:00:00Z","token":"t"}`,
			wantTime: played,
		},
		{
			name:     "unix timestamp",
			body:     `{"url":"https://minesweeper.online/game/3891992543","timestamp":1791968400,"token":"t"}`,
			wantTime: time.Unix(1791968400, 0).UTC(),
		},
		{name: "empty", body: "  \n", wantErr: ErrEmptyBody},
		{name: "not json", body: "{url", wantErr: ErrDecode{}},
		{name: "missing url", body: `{"timestamp":1,"token":"t"}`, wantField: "url"},
		{name: "relative url", body: `{"url":"/game/1","timestamp":1,"token":"t"}`, wantField: "url"},
		{name: "no game id", body: `{"url":"https://minesweeper.online/","timestamp":1,"token":"t"}`, wantField: "url"},
		{name: "missing timestamp", body: `{"url":"https://minesweeper.online/game/1","token":"t"}`, wantField: "timestamp"},
		{name: "missing token", body: `{"url":"https://minesweeper.online/game/1","timestamp":1}`, wantField: "token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job, err := Decode([]byte(tt.body))
			switch {
			case tt.wantErr == ErrEmptyBody:
				if !errors.Is(err, ErrEmptyBody) {
					t.Fatalf("expected ErrEmptyBody, got %v", err)
				}
			case tt.wantErr != nil:
				var decodeErr ErrDecode
				if !errors.As(err, &decodeErr) {
					t.Fatalf("expected ErrDecode, got %v", err)
				}
			case tt.wantField != "":
				var invalid ErrInvalidJob
				if !errors.As(err, &invalid) || invalid.Field != tt.wantField {
					t.Fatalf("expected ErrInvalidJob on %q, got %v", tt.wantField, err)
				}
			default:
				if err != nil {
					t.Fatalf("decode: %v", err)
				}
				if !job.Timestamp.Equal(tt.wantTime) {
					t.Fatalf("timestamp = %v, want %v", job.Timestamp.Time, tt.wantTime)
				}
			}
		})
	}
}

func TestGameIDFromURL(t *testing.T) {
	tests := []struct {
		url      string
		expected string
		wantErr  bool
	}{
		{url: "https://minesweeper.online/game/3891992543", expected: "3891992543"},
		{url: "https://minesweeper.online/game/3891992543/", expected: "3891992543"},
		{url: "https://minesweeper.online/game/42?ref=feed", expected: "42"},
		{url: "https://minesweeper.online", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, err := GameIDFromURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Fatalf("GameIDFromURL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.expected {
				t.Fatalf("GameIDFromURL() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		raw      string
		expected time.Time
		wantErr  bool
	}{
		{raw: "2026-10-14T11:00:00+02:00", expected: time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)},
		{raw: "0", expected: time.Unix(0, 0).UTC()},
		{raw: " ", expected: time.Time{}},
		{raw: "yesterday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseTimestamp(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTimestamp(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.expected) {
				t.Fatalf("ParseTimestamp(%q) = %v, want %v", tt.raw, got.Time, tt.expected)
			}
		})
	}
}
