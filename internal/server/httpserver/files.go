package httpserver

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/yndnr/snapfold-go/internal/core/domain"
	"github.com/yndnr/snapfold-go/internal/registry"
	"github.com/yndnr/snapfold-go/internal/telemetry/logger"
)

// UploadFieldName is the multipart field carrying file payloads.
const UploadFieldName = "myfile[]"

// handleUpload handles POST /files.
//
// The request must declare its length up front: the quota check runs
// against Content-Length before a single byte is stored, so a client
// cannot blow the quota with a streaming body. Chunked uploads are
// rejected for the same reason.
func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	entry := FolderFromContext(r.Context())

	if r.ContentLength < 0 {
		h.writeError(w, r, http.StatusLengthRequired, "SF-SYS-4000",
			"upload requires Content-Length", nil)
		return
	}
	if h.maxUploadBytes > 0 && r.ContentLength > h.maxUploadBytes {
		h.writeError(w, r, http.StatusRequestEntityTooLarge, "SF-FOLD-4002",
			"upload exceeds request size limit", nil)
		return
	}
	if r.ContentLength > entry.Remaining() {
		h.writeError(w, r, http.StatusBadRequest, "SF-FOLD-4002",
			"upload exceeds folder storage limit", nil)
		return
	}

	key, ok := h.sessionKey(w, r, entry)
	if !ok {
		return
	}

	mr, err := r.MultipartReader()
	if err != nil {
		h.writeError(w, r, http.StatusBadRequest, "SF-SYS-4000",
			"multipart body expected", nil)
		return
	}

	sender := displayName(r.UserAgent())
	var accepted []UploadedFile
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			h.handleServiceError(w, r, domain.ErrUploadInterrupted.WithCause(err))
			return
		}
		if part.FormName() != UploadFieldName || part.FileName() == "" {
			part.Close()
			continue
		}

		name := sanitizeFilename(part.FileName())
		fileID, err := domain.NewFileID()
		if err != nil {
			part.Close()
			h.handleServiceError(w, r, err)
			return
		}

		size, err := h.files.Save(r.Context(), entry.Path(), fileID, part, key)
		part.Close()
		if err != nil {
			h.handleServiceError(w, r, err)
			return
		}

		// The message append bills the quota; a lost race against a
		// concurrent upload rolls the file back.
		msg := domain.NewFileMessage(name, size, sender, fileID)
		if err := entry.Publish(r.Context(), h.svc, msg); err != nil {
			if rmErr := h.files.Remove(entry.Path(), fileID); rmErr != nil {
				logger.L(r.Context()).Warn("orphaned upload cleanup failed",
					"identity", entry.Identity(), "file_id", fileID, "error", rmErr)
			}
			h.handleServiceError(w, r, err)
			return
		}

		h.metrics.UploadBytes.Add(float64(size))
		h.metrics.MessagesTotal.WithLabelValues("file").Inc()
		accepted = append(accepted, UploadedFile{FileID: fileID, Name: name, Size: size})
	}

	if len(accepted) == 0 {
		h.writeError(w, r, http.StatusBadRequest, "SF-ARG-1002",
			"no file field in upload", nil)
		return
	}

	logger.L(r.Context()).Info("upload accepted",
		"identity", entry.Identity(), "files", len(accepted))
	h.writeJSON(w, r, http.StatusCreated, UploadResponse{Files: accepted})
}

// handleDownload handles GET /files?id=&name=.
func (h *Handler) handleDownload(w http.ResponseWriter, r *http.Request) {
	entry := FolderFromContext(r.Context())

	fileID := r.URL.Query().Get("id")
	if fileID == "" {
		h.writeError(w, r, http.StatusBadRequest, "SF-ARG-1002", "id is required", nil)
		return
	}
	name := sanitizeFilename(r.URL.Query().Get("name"))
	if name == "" {
		name = fileID
	}

	key, ok := h.sessionKey(w, r, entry)
	if !ok {
		return
	}

	rc, size, err := h.files.Open(entry.Path(), fileID, key)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	w.Header().Set("Content-Disposition",
		mime.FormatMediaType("attachment", map[string]string{"filename": name}))

	n, err := io.Copy(w, rc)
	h.metrics.DownloadBytes.Add(float64(n))
	if err != nil {
		// Headers are gone; all we can do is log the broken transfer
		logger.L(r.Context()).Warn("download aborted",
			"identity", entry.Identity(), "file_id", fileID, "error", err)
	}
}

// sessionKey resolves the encryption key for payload access. When
// encryption is enabled and no login installed a key, the client must log
// in again; without encryption no key is needed at all.
func (h *Handler) sessionKey(w http.ResponseWriter, r *http.Request, entry *registry.Folder) ([]byte, bool) {
	if !h.svc.EncryptsData() {
		return nil, true
	}
	key := entry.Key()
	if key == nil {
		h.writeError(w, r, http.StatusUnauthorized, "SF-AUTH-4010",
			"encryption key not available, log in again", nil)
		return nil, false
	}
	return key, true
}

// sanitizeFilename strips any path components from a client filename.
func sanitizeFilename(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSpace(name)
}
