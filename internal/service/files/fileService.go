package files

import (
	"context"
	"errors"
	"io"
	"mime"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nikhil/chatgenius/internal/apperror"
	"github.com/nikhil/chatgenius/internal/logger"
	"github.com/nikhil/chatgenius/internal/models"
	"github.com/nikhil/chatgenius/internal/realtime"
	"github.com/nikhil/chatgenius/internal/storage"
	"github.com/nikhil/chatgenius/internal/store"
)

// SupportedTypes are the MIME types downstream processing understands.
var SupportedTypes = map[string]bool{
	"application/pdf":    true,
	"text/plain":         true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
}

// IsSupportedType ignores MIME parameters such as charset.
func IsSupportedType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}
	return SupportedTypes[mediaType]
}

type Store interface {
	GetChannel(ctx context.Context, id string) (models.Channel, error)
	CreateFile(ctx context.Context, file models.File) error
	GetFile(ctx context.Context, id string) (models.File, error)
	UpdateFileStatus(ctx context.Context, id string, status models.FileStatus) error
	ListChannelFiles(ctx context.Context, channelID string) ([]models.File, error)
	ListUserFiles(ctx context.Context, userID string) ([]models.File, error)
}

type FileService struct {
	Store     Store
	Blobs     storage.BlobStore
	Publisher realtime.Publisher
	Log       *logger.Logger
	Now       func() time.Time
}

// NewFileService accepts a nil blob store; uploads then fail as unavailable.
func NewFileService(store Store, blobs storage.BlobStore, publisher realtime.Publisher, log *logger.Logger) *FileService {
	return &FileService{
		Store:     store,
		Blobs:     blobs,
		Publisher: publisher,
		Log:       log,
		Now:       func() time.Time { return time.Now().UTC() },
	}
}

// Upload stores the body and records it as PENDING. Types outside
// SupportedTypes are kept but marked UNSUPPORTED.
func (fs *FileService) Upload(ctx context.Context, channelID, userID, name, contentType string, body io.Reader, size int64) (models.File, error) {
	channel, err := fs.Store.GetChannel(ctx, channelID)
	if errors.Is(err, store.ErrNotFound) {
		return models.File{}, apperror.NotFound("Channel not found")
	}
	if err != nil {
		return models.File{}, err
	}
	if !channel.HasMember(userID) {
		return models.File{}, apperror.Forbidden("User is not a member of the channel")
	}
	if fs.Blobs == nil {
		return models.File{}, apperror.New(apperror.ErrUnavailable, "File storage is not configured")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return models.File{}, apperror.InvalidInput("File name is required")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	file := models.File{
		ID:        uuid.NewString(),
		Name:      name,
		Type:      contentType,
		Size:      size,
		ChannelID: channelID,
		UserID:    userID,
		Status:    models.FileStatusPending,
		CreatedAt: fs.Now(),
	}
	url, err := fs.Blobs.Put(ctx, storage.ObjectKey(channelID, file.ID, name), contentType, body)
	if err != nil {
		fs.Log.Error("Failed to store file body", "channel_id", channelID, "file", name, "error", err)
		return models.File{}, err
	}
	file.URL = url

	if err := fs.Store.CreateFile(ctx, file); err != nil {
		fs.Log.Error("Failed to record file", "file_id", file.ID, "error", err)
		return models.File{}, err
	}

	if !IsSupportedType(contentType) {
		if err := fs.Store.UpdateFileStatus(ctx, file.ID, models.FileStatusUnsupported); err != nil {
			fs.Log.Error("Failed to mark file unsupported", "file_id", file.ID, "error", err)
		} else {
			file.Status = models.FileStatusUnsupported
		}
		fs.Log.Info("Unsupported file type", "file_id", file.ID, "type", contentType)
	}

	realtime.Notify(ctx, fs.Publisher, fs.Log, realtime.Event{Name: realtime.EventFileUploaded, Room: channelID, Payload: file})
	return file, nil
}

// ListChannelFiles lists newest first; private channels are hidden from non-members.
func (fs *FileService) ListChannelFiles(ctx context.Context, channelID, userID string) ([]models.File, error) {
	channel, err := fs.Store.GetChannel(ctx, channelID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperror.NotFound("Channel not found")
	}
	if err != nil {
		return nil, err
	}
	if channel.IsPrivate && !channel.HasMember(userID) {
		return nil, apperror.NotFound("Channel not found")
	}
	return fs.Store.ListChannelFiles(ctx, channelID)
}

func (fs *FileService) ListUserFiles(ctx context.Context, userID string) ([]models.File, error) {
	return fs.Store.ListUserFiles(ctx, userID)
}

// MarkProcessed moves a PENDING file to PROCESSED. Only the uploader may
// mark it.
func (fs *FileService) MarkProcessed(ctx context.Context, fileID, userID string) (models.File, error) {
	file, err := fs.Store.GetFile(ctx, fileID)
	if errors.Is(err, store.ErrNotFound) {
		return models.File{}, apperror.NotFound("File not found")
	}
	if err != nil {
		return models.File{}, err
	}
	if file.UserID != userID {
		return models.File{}, apperror.Forbidden("Only the uploader can mark a file processed")
	}
	switch file.Status {
	case models.FileStatusProcessed:
		return file, nil
	case models.FileStatusUnsupported:
		return models.File{}, apperror.InvalidInput("Unsupported files cannot be processed")
	}
	if err := fs.Store.UpdateFileStatus(ctx, fileID, models.FileStatusProcessed); err != nil {
		return models.File{}, err
	}
	file.Status = models.FileStatusProcessed
	return file, nil
}
