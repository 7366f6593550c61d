package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/AnshRaj112/serenify-journal/internal/middleware"
	"github.com/AnshRaj112/serenify-journal/internal/models"
	"github.com/AnshRaj112/serenify-journal/internal/services"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

//go:generate mockgen -source=journal.go -destination=mock_journal.go -package=handlers

// EntryService is the owner-scoped entry API.
type EntryService interface {
	Create(ctx context.Context, identity *services.Identity, content string) (*models.Entry, error)
	List(ctx context.Context, identity *services.Identity, page services.Page) ([]models.Entry, error)
	Get(ctx context.Context, identity *services.Identity, id string) (*models.Entry, error)
	Update(ctx context.Context, identity *services.Identity, id, content string) (*models.Entry, error)
	Delete(ctx context.Context, identity *services.Identity, id string) error
}

// EntryRequest is the body of create and update. Any owner field sent by the
// client is ignored.
type EntryRequest struct {
	Content string `json:"content"`
}

// JournalHandler serves /api/entries. Every route sits behind RequireSession.
type JournalHandler struct {
	entries EntryService
	log     *zap.SugaredLogger
}

func NewJournalHandler(entries EntryService, log *zap.SugaredLogger) *JournalHandler {
	return &JournalHandler{entries: entries, log: log}
}

// CreateEntry creates an entry owned by the caller.
func (h *JournalHandler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	var req EntryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	entry, err := h.entries.Create(r.Context(), middleware.IdentityFrom(r.Context()), req.Content)
	if err != nil {
		h.writeEntryError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

// ListEntries returns the caller's entries newest first. limit and skip are
// optional; unparsable values are ignored.
func (h *JournalHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	page := services.Page{
		Limit: queryInt(r, "limit"),
		Skip:  queryInt(r, "skip"),
	}

	entries, err := h.entries.List(r.Context(), middleware.IdentityFrom(r.Context()), page)
	if err != nil {
		h.writeEntryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *JournalHandler) GetEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := h.entries.Get(r.Context(), middleware.IdentityFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.writeEntryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *JournalHandler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	var req EntryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	entry, err := h.entries.Update(r.Context(), middleware.IdentityFrom(r.Context()), chi.URLParam(r, "id"), req.Content)
	if err != nil {
		h.writeEntryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

func (h *JournalHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := h.entries.Delete(r.Context(), middleware.IdentityFrom(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.writeEntryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Message: "Entry deleted successfully"})
}

func (h *JournalHandler) writeEntryError(w http.ResponseWriter, err error) {
	if errors.Is(err, services.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Entry not found")
		return
	}
	writeServiceError(w, h.log, err)
}

func queryInt(r *http.Request, key string) int64 {
	v, err := strconv.ParseInt(r.URL.Query().Get(key), 10, 64)
	if err != nil {
		return 0
	}
	return v
}
