package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/nikhil/chatgenius/internal/apperror"
	"github.com/nikhil/chatgenius/internal/logger"
	"github.com/nikhil/chatgenius/internal/models"
	"github.com/nikhil/chatgenius/internal/service/files"
)

// multipartMemory is how much of an upload is buffered before spilling to disk.
const multipartMemory = 8 << 20

type FileHandler struct {
	Service  *files.FileService
	MaxBytes int64
	Log      *logger.Logger
}

func NewFileHandler(service *files.FileService, maxBytes int64, log *logger.Logger) *FileHandler {
	return &FileHandler{Service: service, MaxBytes: maxBytes, Log: log}
}

// Upload accepts a multipart form with a single "file" part.
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if h.MaxBytes > 0 {
		if r.ContentLength > h.MaxBytes {
			respondWithError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "File is too large")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if isRequestTooLarge(err) {
			respondWithError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "File is too large")
			return
		}
		respondWithAppError(w, r, h.Log, apperror.InvalidInput("Invalid multipart form"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	part, header, err := r.FormFile("file")
	if err != nil {
		respondWithAppError(w, r, h.Log, apperror.InvalidInput("file is required"))
		return
	}
	defer part.Close()

	file, err := h.Service.Upload(r.Context(), mux.Vars(r)["channelId"], userID,
		header.Filename, header.Header.Get("Content-Type"), part, header.Size)
	if err != nil {
		respondWithAppError(w, r, h.Log, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, file)
}

func (h *FileHandler) ListChannelFiles(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	list, err := h.Service.ListChannelFiles(r.Context(), mux.Vars(r)["channelId"], userID)
	h.writeFiles(w, r, list, err)
}

// ListUserFiles only lists the caller's own uploads.
func (h *FileHandler) ListUserFiles(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	target := mux.Vars(r)["userId"]
	if target == "me" {
		target = userID
	}
	if target != userID {
		respondWithAppError(w, r, h.Log, apperror.Forbidden("Cannot list another user's files"))
		return
	}
	list, err := h.Service.ListUserFiles(r.Context(), target)
	h.writeFiles(w, r, list, err)
}

func (h *FileHandler) writeFiles(w http.ResponseWriter, r *http.Request, list []models.File, err error) {
	if err != nil {
		respondWithAppError(w, r, h.Log, err)
		return
	}
	if list == nil {
		list = []models.File{}
	}
	respondWithJSON(w, http.StatusOK, list)
}

// MarkProcessed lets the uploader's downstream processor flag a file as done.
func (h *FileHandler) MarkProcessed(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	file, err := h.Service.MarkProcessed(r.Context(), mux.Vars(r)["fileId"], userID)
	if err != nil {
		respondWithAppError(w, r, h.Log, err)
		return
	}
	respondWithJSON(w, http.StatusOK, file)
}
