package httpserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/yndnr/snapfold-go/internal/core/service"
	"github.com/yndnr/snapfold-go/internal/infra/buildinfo"
	"github.com/yndnr/snapfold-go/internal/telemetry/logger"
)

// handleSignup handles POST /signup.
func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "SF-SYS-4000", "invalid request body", nil)
		return
	}
	if req.Passcode == "" {
		h.writeError(w, r, http.StatusBadRequest, "SF-ARG-1002", "passcode is required", nil)
		return
	}

	svcReq := &service.SignupRequest{Passcode: req.Passcode}
	if req.AgeSeconds > 0 {
		svcReq.Age = time.Duration(req.AgeSeconds) * time.Second
	}
	resp, err := h.svc.Signup(r.Context(), svcReq)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	// The directory must exist before the first upload
	if err := h.files.EnsureFolder(resp.Folder.Path); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	entry := h.reg.Admit(resp.Folder, resp.Key)
	h.signer.SetCookie(w, resp.Identity)
	h.metrics.FoldersCreated.Inc()
	h.metrics.FoldersActive.Set(float64(h.reg.Count()))

	logger.L(r.Context()).Info("folder created", "identity", resp.Identity)
	h.writeJSON(w, r, http.StatusCreated, FolderResponse{Folder: entry.View()})
}

// handleLogin handles POST /login.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "SF-SYS-4000", "invalid request body", nil)
		return
	}
	if req.Passcode == "" {
		h.writeError(w, r, http.StatusBadRequest, "SF-ARG-1002", "passcode is required", nil)
		return
	}

	resp, err := h.svc.Login(r.Context(), &service.LoginRequest{Passcode: req.Passcode})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	entry := h.reg.Admit(resp.Folder, resp.Key)
	h.signer.SetCookie(w, resp.Identity)

	logger.L(r.Context()).Info("folder login", "identity", resp.Identity)
	h.writeJSON(w, r, http.StatusOK, FolderResponse{Folder: entry.View()})
}

// handleLogout handles POST /logout. Other sessions of the same folder
// stay logged in; only this client's cookie is dropped.
func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	h.signer.ClearCookie(w)
	h.writeJSON(w, r, http.StatusOK, map[string]string{"status": "logged out"})
}

// handleAuth handles GET /auth, the session probe used on page load.
func (h *Handler) handleAuth(w http.ResponseWriter, r *http.Request) {
	entry := FolderFromContext(r.Context())
	h.writeJSON(w, r, http.StatusOK, FolderResponse{Folder: entry.View()})
}

// handleHealth handles GET /healthz.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": buildinfo.Version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}
