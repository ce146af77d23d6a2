// Package experience serves the per-experience playlist document and the
// watch page that renders it.
package experience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sendrec/videoexp/internal/auth"
	"github.com/sendrec/videoexp/internal/httputil"
	"github.com/sendrec/videoexp/internal/playlist"
	"github.com/sendrec/videoexp/internal/storage"
	"github.com/sendrec/videoexp/internal/validate"
)

const maxDocumentBytes = 1 << 20

// SourceHeader on a GET response says where the playlist came from. Editors
// must not save over a document they were served SourceFallback for.
const SourceHeader = "X-Playlist-Source"

const (
	SourceStored   = "stored"
	SourceDefault  = "default"
	SourceFallback = "fallback"
)

type contextKey string

const experienceIDKey contextKey = "experienceID"

type Handler struct {
	store     storage.Store
	access    auth.AccessChecker
	directory auth.Directory
}

func NewHandler(store storage.Store, access auth.AccessChecker) *Handler {
	return &Handler{store: store, access: access}
}

// SetDirectory enables user and experience names on the watch page.
func (h *Handler) SetDirectory(d auth.Directory) {
	h.directory = d
}

type saveResponse struct {
	Success bool              `json:"success"`
	Data    playlist.Playlist `json:"data"`
}

type listResponse struct {
	Success bool     `json:"success"`
	Files   []string `json:"files"`
	Message string   `json:"message"`
}

type deleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

type accessResponse struct {
	auth.Access
	UserID      string         `json:"userId"`
	FieldLimits map[string]int `json:"fieldLimits"`
}

// RequireExperienceID rejects requests without a usable experienceId query
// parameter. It runs before identity checks so a malformed request is a 400
// whatever the caller's token.
func RequireExperienceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("experienceId")
		if id == "" {
			httputil.WriteError(w, http.StatusBadRequest, "Experience ID is required")
			return
		}
		if msg := validate.ExperienceID(id); msg != "" {
			httputil.WriteError(w, http.StatusBadRequest, msg)
			return
		}
		ctx := context.WithValue(r.Context(), experienceIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func ExperienceIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(experienceIDKey).(string)
	return id
}

// checkAccess resolves the caller's access and writes the error response
// when it is insufficient.
func (h *Handler) checkAccess(w http.ResponseWriter, r *http.Request, requireAdmin bool) (string, auth.Access, bool) {
	experienceID := ExperienceIDFromContext(r.Context())
	userID := auth.UserIDFromContext(r.Context())

	access, err := h.access.CheckAccess(r.Context(), userID, experienceID)
	if err != nil {
		slog.Error("experience: access check failed", "experience_id", experienceID, "user_id", userID, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return "", auth.Access{}, false
	}

	if requireAdmin && !access.IsAdmin() {
		httputil.WriteError(w, http.StatusForbidden, "Admin access required")
		return "", auth.Access{}, false
	}
	if !access.HasAccess {
		httputil.WriteError(w, http.StatusForbidden, "Access denied")
		return "", auth.Access{}, false
	}
	return experienceID, access, true
}

// Get returns the stored playlist, or the defaults when there is nothing
// usable to return.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	experienceID, _, ok := h.checkAccess(w, r, false)
	if !ok {
		return
	}
	p, source := h.load(r.Context(), experienceID)
	w.Header().Set(SourceHeader, source)
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) load(ctx context.Context, experienceID string) (playlist.Playlist, string) {
	p, err := h.store.Get(ctx, experienceID)
	switch {
	case err == nil:
		return p, SourceStored
	case errors.Is(err, storage.ErrNotFound):
		return playlist.Default(), SourceDefault
	case errors.Is(err, storage.ErrNotConfigured):
		slog.Warn("experience: storage not configured, serving defaults", "experience_id", experienceID)
	default:
		slog.Error("experience: failed to load data, serving defaults", "experience_id", experienceID, "error", err)
	}
	return playlist.Default(), SourceFallback
}

func (h *Handler) Put(w http.ResponseWriter, r *http.Request) {
	experienceID, _, ok := h.checkAccess(w, r, true)
	if !ok {
		return
	}

	body, err := httputil.DecodeJSON(w, r, maxDocumentBytes, nil)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, err := playlist.Decode(body)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.Put(r.Context(), experienceID, p); err != nil {
		if errors.Is(err, storage.ErrNotConfigured) {
			httputil.WriteError(w, http.StatusInternalServerError, storage.ErrNotConfigured.Error())
			return
		}
		slog.Error("experience: failed to save data", "experience_id", experienceID, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "failed to save data")
		return
	}

	slog.Info("experience: saved data", "experience_id", experienceID, "videos", len(p.Videos))
	httputil.WriteJSON(w, http.StatusOK, saveResponse{Success: true, Data: p})
}

// ListStored lists every stored experience document. Admin only.
func (h *Handler) ListStored(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := h.checkAccess(w, r, true); !ok {
		return
	}

	files, err := h.store.List(r.Context())
	if err != nil {
		if errors.Is(err, storage.ErrNotConfigured) {
			httputil.WriteError(w, http.StatusInternalServerError, storage.ErrNotConfigured.Error())
			return
		}
		slog.Error("experience: failed to list stored files", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if files == nil {
		files = []string{}
	}

	httputil.WriteJSON(w, http.StatusOK, listResponse{
		Success: true,
		Files:   files,
		Message: fmt.Sprintf("Found %d stored experience files", len(files)),
	})
}

// DeleteStored removes the experience's stored document. Admin only.
func (h *Handler) DeleteStored(w http.ResponseWriter, r *http.Request) {
	experienceID, _, ok := h.checkAccess(w, r, true)
	if !ok {
		return
	}

	if err := h.store.Delete(r.Context(), experienceID); err != nil {
		if errors.Is(err, storage.ErrNotConfigured) {
			httputil.WriteError(w, http.StatusInternalServerError, storage.ErrNotConfigured.Error())
			return
		}
		slog.Error("experience: failed to delete stored data", "experience_id", experienceID, "error", err)
		httputil.WriteJSON(w, http.StatusInternalServerError, deleteResponse{Success: false, Error: "Failed to delete stored data"})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, deleteResponse{
		Success: true,
		Message: "Deleted stored data for experience: " + experienceID,
	})
}

// Access reports the caller's access so clients know whether to offer edit
// mode. A caller without access still gets a 200 describing that.
func (h *Handler) Access(w http.ResponseWriter, r *http.Request) {
	experienceID := ExperienceIDFromContext(r.Context())
	userID := auth.UserIDFromContext(r.Context())

	access, err := h.access.CheckAccess(r.Context(), userID, experienceID)
	if err != nil {
		slog.Error("experience: access check failed", "experience_id", experienceID, "user_id", userID, "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, accessResponse{
		Access:      access,
		UserID:      userID,
		FieldLimits: validate.FieldLimits(),
	})
}
