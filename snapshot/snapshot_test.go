package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aluiziolira/go-scrape-minesweeper/config"
	"github.com/aluiziolira/go-scrape-minesweeper/models"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/go-cmp/cmp"
)

func TestKey(t *testing.T) {
	played := time.Date(2026, 10, 14, 23, 30, 0, 0, time.FixedZone("UTC-2", -2*3600))
	if got := Key("3891992543", played); got != "2026/10/15/3891992543.json" {
		t.Fatalf("Key() = %q", got)
	}
}

func TestDocumentEncode(t *testing.T) {
	raw := models.RawResult{Text: "alice\nTime: 1.160 sec", DifficultyMarker: "<span>Expert</span>"}
	doc := NewDocument("1", "https://minesweeper.online/game/1", raw, time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC))

	body, err := doc.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var decoded Document
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if diff := cmp.Diff(doc, decoded); diff != "" {
		t.Fatalf("document mismatch (-want +got):\n%s", diff)
	}
}

func TestLocalStoreSave(t *testing.T) {
	dir := t.TempDir()
	s := NewLocalStore(dir)

	if err := s.Save(context.Background(), "2026/10/14/1.json", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Save(context.Background(), "2026/10/14/1.json", []byte(`{"a":2}`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dir, "2026", "10", "14", "1.json"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != `{"a":2}` {
		t.Fatalf("content = %s", got)
	}
	entries, err := os.ReadDir(filepath.Join(dir, "2026", "10", "14"))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1 (temp files left behind)", len(entries))
	}
}

func TestLocalStoreRejectsEscapingKey(t *testing.T) {
	s := NewLocalStore(t.TempDir())
	if err := s.Save(context.Background(), "../../etc/passwd", []byte("x")); err == nil {
		t.Fatalf("expected invalid key error")
	}
}

type fakeS3 struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.input = params
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}
	f.body = body
	return &s3.PutObjectOutput{}, nil
}

func TestS3StoreSave(t *testing.T) {
	client := &fakeS3{}
	s := newS3Store(client, "games-bucket", "/snapshots/")

	if err := s.Save(context.Background(), "/2026/10/14/1.json", []byte("{}")); err != nil {
		t.Fatalf("save: %v", err)
	}
	if got := aws.ToString(client.input.Key); got != "snapshots/2026/10/14/1.json" {
		t.Fatalf("key = %q", got)
	}
	if got := aws.ToString(client.input.Bucket); got != "games-bucket" {
		t.Fatalf("bucket = %q", got)
	}
	if client.input.ServerSideEncryption != s3types.ServerSideEncryptionAes256 {
		t.Fatalf("sse = %q", client.input.ServerSideEncryption)
	}
	if string(client.body) != "{}" {
		t.Fatalf("body = %q", client.body)
	}
}

func TestS3StoreSaveError(t *testing.T) {
	putErr := errors.New("access denied")
	s := newS3Store(&fakeS3{err: putErr}, "b", "")
	if err := s.Save(context.Background(), "k", nil); !errors.Is(err, putErr) {
		t.Fatalf("expected put error, got %v", err)
	}
}

func TestApplyPrefix(t *testing.T) {
	tests := []struct {
		prefix, key, expected string
	}{
		{prefix: "", key: "a/b", expected: "a/b"},
		{prefix: "p", key: "/a", expected: "p/a"},
		{prefix: "p", key: "", expected: "p"},
	}
	for _, tt := range tests {
		if got := applyPrefix(tt.prefix, tt.key); got != tt.expected {
			t.Fatalf("applyPrefix(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.expected)
		}
	}
}

func TestNewSelectsStore(t *testing.T) {
	cfg := config.DefaultConfig()

	s, err := New(context.Background(), cfg)
	if err != nil || s != nil {
		t.Fatalf("disabled snapshots = %v, %v", s, err)
	}

	cfg.SnapshotStore = "local"
	cfg.SnapshotDir = t.TempDir()
	s, err = New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("local: %v", err)
	}
	if _, ok := s.(*LocalStore); !ok {
		t.Fatalf("expected *LocalStore, got %T", s)
	}

	cfg.SnapshotStore = "ftp"
	if _, err := New(context.Background(), cfg); err == nil {
		t.Fatalf("expected unknown store error")
	}
}
