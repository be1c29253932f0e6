package files

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/nikhil/chatgenius/internal/apperror"
	"github.com/nikhil/chatgenius/internal/logger"
	"github.com/nikhil/chatgenius/internal/models"
	"github.com/nikhil/chatgenius/internal/realtime"
	"github.com/nikhil/chatgenius/internal/realtime/realtimetest"
	"github.com/nikhil/chatgenius/internal/store"
)

type fakeBlobs struct {
	objects map[string]string
	err     error
}

func (f *fakeBlobs) Put(_ context.Context, key, _ string, body io.Reader) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.objects[key] = string(data)
	return "https://files.example.com/" + key, nil
}

func setup(t *testing.T) (*FileService, *fakeBlobs, *realtimetest.Recorder) {
	t.Helper()
	ctx := context.Background()
	mem := store.NewMemoryStore()
	for _, name := range []string{"alice", "bob"} {
		if err := mem.CreateUser(ctx, models.User{ID: name, Username: name, Email: name + "@example.com"}); err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}
	channel := models.Channel{ID: "c1", Name: "general", Kind: models.ChannelKindStandard, OwnerID: "alice"}
	if err := mem.CreateChannel(ctx, channel, []string{"alice"}); err != nil {
		t.Fatalf("seed channel: %v", err)
	}
	blobs := &fakeBlobs{objects: map[string]string{}}
	recorder := &realtimetest.Recorder{}
	return NewFileService(mem, blobs, recorder, logger.NewNop("file-service")), blobs, recorder
}

func TestUploadClassification(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		want        models.FileStatus
	}{
		{"pdf", "application/pdf", models.FileStatusPending},
		{"text with charset", "text/plain; charset=utf-8", models.FileStatusPending},
		{"docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", models.FileStatusPending},
		{"png", "image/png", models.FileStatusUnsupported},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, blobs, recorder := setup(t)
			ctx := context.Background()

			file, err := svc.Upload(ctx, "c1", "alice", "upload", tc.contentType, strings.NewReader("body"), 4)
			if err != nil {
				t.Fatalf("Upload: %v", err)
			}
			if file.Status != tc.want {
				t.Fatalf("status = %s, want %s", file.Status, tc.want)
			}
			stored, _ := svc.Store.GetFile(ctx, file.ID)
			if stored.Status != tc.want {
				t.Fatalf("stored status = %s, want %s", stored.Status, tc.want)
			}
			if len(blobs.objects) != 1 || !strings.HasPrefix(file.URL, "https://files.example.com/channels/c1/") {
				t.Fatalf("blob not stored: %v %s", blobs.objects, file.URL)
			}
			events := recorder.Events()
			if len(events) != 1 || events[0].Name != realtime.EventFileUploaded || events[0].Room != "c1" {
				t.Fatalf("events = %+v", events)
			}
		})
	}
}

func TestUploadRules(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	if _, err := svc.Upload(ctx, "missing", "alice", "a.pdf", "application/pdf", strings.NewReader("x"), 1); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
	if _, err := svc.Upload(ctx, "c1", "bob", "a.pdf", "application/pdf", strings.NewReader("x"), 1); !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("expected Forbidden, got %v", err)
	}

	svc.Blobs = nil
	if _, err := svc.Upload(ctx, "c1", "alice", "a.pdf", "application/pdf", strings.NewReader("x"), 1); !errors.Is(err, apperror.ErrUnavailable) {
		t.Fatalf("expected Unavailable, got %v", err)
	}
}

func TestUploadBlobFailureRecordsNothing(t *testing.T) {
	svc, blobs, recorder := setup(t)
	blobs.err = errors.New("s3 down")

	if _, err := svc.Upload(context.Background(), "c1", "alice", "a.pdf", "application/pdf", strings.NewReader("x"), 1); err == nil {
		t.Fatal("expected error")
	}
	files, _ := svc.ListUserFiles(context.Background(), "alice")
	if len(files) != 0 || len(recorder.Names()) != 0 {
		t.Fatalf("nothing should be recorded: %v %v", files, recorder.Names())
	}
}

func TestMarkProcessed(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()
	pdf, _ := svc.Upload(ctx, "c1", "alice", "a.pdf", "application/pdf", strings.NewReader("x"), 1)
	png, _ := svc.Upload(ctx, "c1", "alice", "a.png", "image/png", strings.NewReader("x"), 1)

	processed, err := svc.MarkProcessed(ctx, pdf.ID, "alice")
	if err != nil || processed.Status != models.FileStatusProcessed {
		t.Fatalf("MarkProcessed = %+v, %v", processed, err)
	}
	if _, err := svc.MarkProcessed(ctx, png.ID, "alice"); !errors.Is(err, apperror.ErrInvalidInput) {
		t.Fatalf("expected InvalidInput, got %v", err)
	}
	if _, err := svc.MarkProcessed(ctx, pdf.ID, "bob"); !errors.Is(err, apperror.ErrForbidden) {
		t.Fatalf("expected Forbidden, got %v", err)
	}
	if _, err := svc.MarkProcessed(ctx, "missing", "alice"); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}

	files, _ := svc.ListChannelFiles(ctx, "c1", "alice")
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(files))
	}
}
