package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"
)

// ErrEmptyBody is returned when a job payload has no content.
var ErrEmptyBody = errors.New("empty job body")

// ErrDecode wraps a payload that is not a valid job document.
type ErrDecode struct {
	Err error
}

func (e ErrDecode) Error() string {
	return fmt.Errorf("decode job: %w", e.Err).Error()
}

func (e ErrDecode) Unwrap() error {
	return e.Err
}

// ErrInvalidJob reports a decoded job with a missing or unusable field.
type ErrInvalidJob struct {
	Field  string
	Reason string
}

func (e ErrInvalidJob) Error() string {
	return fmt.Sprintf("invalid job: %s %s", e.Field, e.Reason)
}

// Timestamp accepts either Unix seconds or an RFC 3339 string.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		return t.parse(raw)
	}
	return t.parse(string(data))
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339))
}

// ParseTimestamp parses Unix seconds or RFC 3339 text.
func ParseTimestamp(raw string) (Timestamp, error) {
	var t Timestamp
	err := t.parse(raw)
	return t, err
}

func (t *Timestamp) parse(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		t.Time = time.Time{}
		return nil
	}
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		t.Time = time.Unix(secs, 0).UTC()
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return fmt.Errorf("timestamp %q: %w", raw, err)
	}
	t.Time = parsed.UTC()
	return nil
}

// JobRequest asks for one finished game page to be collected.
type JobRequest struct {
	URL       string    `json:"url"`
	Timestamp Timestamp `json:"timestamp"`
	Token     string    `json:"token"`
	Username  string    `json:"username,omitempty"`
}

// Decode parses and validates a JSON job payload.
func Decode(body []byte) (JobRequest, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return JobRequest{}, ErrEmptyBody
	}
	var job JobRequest
	if err := json.Unmarshal(body, &job); err != nil {
		return JobRequest{}, ErrDecode{Err: err}
	}
	if err := job.Validate(); err != nil {
		return JobRequest{}, err
	}
	return job, nil
}

// Validate checks that the job names an absolute game URL, a timestamp and a token.
func (j JobRequest) Validate() error {
	if strings.TrimSpace(j.URL) == "" {
		return ErrInvalidJob{Field: "url", Reason: "is required"}
	}
	parsed, err := url.Parse(j.URL)
	if err != nil || parsed.Host == "" {
		return ErrInvalidJob{Field: "url", Reason: "must be absolute"}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ErrInvalidJob{Field: "url", Reason: "must use http or https"}
	}
	if _, err := GameIDFromURL(j.URL); err != nil {
		return err
	}
	if j.Timestamp.IsZero() {
		return ErrInvalidJob{Field: "timestamp", Reason: "is required"}
	}
	if strings.TrimSpace(j.Token) == "" {
		return ErrInvalidJob{Field: "token", Reason: "is required"}
	}
	return nil
}

// GameIDFromURL returns the last non-empty path segment of a game page URL.
func GameIDFromURL(raw string) (string, error) {
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", ErrInvalidJob{Field: "url", Reason: "is not a URL"}
	}
	id := path.Base(strings.TrimRight(parsed.Path, "/"))
	if id == "" || id == "." || id == "/" {
		return "", ErrInvalidJob{Field: "url", Reason: "has no game id"}
	}
	return id, nil
}
