package audit

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/arjun7543/chatroom/internal/domain"
	"github.com/arjun7543/chatroom/internal/infrastructure/json"
	"github.com/arjun7543/chatroom/internal/infrastructure/logging"
)

const defaultLimit = 50

// Handler exposes the room audit trail for operators. Rooms themselves are
// ephemeral; this is the only place their history is visible after deletion.
type Handler struct {
	repo   domain.RoomAuditRepository
	logger logging.Logger
}

func NewHandler(repo domain.RoomAuditRepository, logger logging.Logger) *Handler {
	return &Handler{
		repo:   repo,
		logger: logger,
	}
}

func (h *Handler) GetRoomAudit(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if code == "" {
		json.WriteError(w, http.StatusBadRequest, "room code is required")
		return
	}

	limit := defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 500 {
			json.WriteError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	logs, err := h.repo.GetByRoomCode(r.Context(), code, limit)
	if err != nil {
		h.logger.Error(logging.Mongo, logging.Persistence, "failed to read audit trail", map[logging.ExtraKey]any{
			logging.RoomCode:     code,
			logging.ErrorMessage: err.Error(),
		})
		json.WriteError(w, http.StatusInternalServerError, "failed to read audit trail")
		return
	}

	if logs == nil {
		logs = []domain.RoomAuditLog{}
	}

	json.Write(w, http.StatusOK, auditResponse{
		RoomCode: code,
		Events:   logs,
	})
}
