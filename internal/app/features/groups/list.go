// internal/app/features/groups/list.go
package groups

import (
	"net/http"

	uierrors "github.com/dalemusser/playform/internal/app/features/errors"
	"github.com/dalemusser/playform/internal/app/services/membership"
	"github.com/dalemusser/playform/internal/app/system/auth"
)

type listResponse struct {
	Mine      []membership.GroupSummary `json:"mine"`
	Available []membership.GroupSummary `json:"available"`
}

// ServeList handles GET /api/groups.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r)

	mine, available, err := h.Membership.ListGroupsForUser(r.Context(), user.ID)
	if err != nil {
		uierrors.Render(w, r, h.Log, err)
		return
	}

	uierrors.WriteJSON(w, http.StatusOK, listResponse{Mine: mine, Available: available})
}
