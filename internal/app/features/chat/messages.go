// internal/app/features/chat/messages.go
package chat

import (
	"encoding/json"
	"net/http"

	uierrors "github.com/dalemusser/playform/internal/app/features/errors"
	"github.com/dalemusser/playform/internal/app/system/auth"
	"github.com/dalemusser/playform/internal/app/system/limits"
	"github.com/dalemusser/playform/internal/app/system/paging"
	"github.com/dalemusser/waffle/pantry/query"
)

// ServeHistory handles GET /api/groups/{id}/messages?cursor=&page_size=.
func (h *Handler) ServeHistory(w http.ResponseWriter, r *http.Request) {
	gid, ok := groupID(w, r)
	if !ok {
		return
	}
	user, _ := auth.CurrentUser(r)

	page, err := h.Chat.GetHistory(r.Context(), gid, user.ID, query.Get(r, "cursor"), paging.ParsePageSize(r))
	if err != nil {
		uierrors.Render(w, r, h.Log, err)
		return
	}

	uierrors.WriteJSON(w, http.StatusOK, page)
}

type sendRequest struct {
	Body string `json:"body"`
}

// HandleSend handles POST /api/groups/{id}/messages.
func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	gid, ok := groupID(w, r)
	if !ok {
		return
	}
	user, _ := auth.CurrentUser(r)

	var req sendRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, limits.MaxJSONBodySize)).Decode(&req); err != nil {
		uierrors.RenderBadRequest(w, "Request body must be a JSON object.")
		return
	}

	msg, err := h.Chat.SendMessage(r.Context(), gid, user.ID, req.Body)
	if err != nil {
		uierrors.Render(w, r, h.Log, err)
		return
	}

	uierrors.WriteJSON(w, http.StatusCreated, msg)
}
