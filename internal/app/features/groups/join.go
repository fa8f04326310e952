// internal/app/features/groups/join.go
package groups

import (
	"encoding/json"
	"net/http"

	uierrors "github.com/dalemusser/playform/internal/app/features/errors"
	"github.com/dalemusser/playform/internal/app/system/auth"
	"github.com/dalemusser/playform/internal/app/system/limits"
)

type joinRequest struct {
	InviteCode string `json:"invite_code"`
}

// HandleJoin handles POST /api/groups/join.
//
// 404 when no group has the code, 409 with error "group_full" or
// "already_member" when the join is refused.
func (h *Handler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r)

	var req joinRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, limits.MaxJSONBodySize)).Decode(&req); err != nil {
		uierrors.RenderBadRequest(w, "Request body must be a JSON object.")
		return
	}

	g, err := h.Membership.JoinGroup(r.Context(), user.ID, req.InviteCode)
	if err != nil {
		uierrors.Render(w, r, h.Log, err)
		return
	}

	uierrors.WriteJSON(w, http.StatusOK, g)
}
