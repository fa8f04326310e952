// internal/app/features/groups/create.go
package groups

import (
	"encoding/json"
	"net/http"

	uierrors "github.com/dalemusser/playform/internal/app/features/errors"
	"github.com/dalemusser/playform/internal/app/services/membership"
	"github.com/dalemusser/playform/internal/app/system/auth"
	"github.com/dalemusser/playform/internal/app/system/limits"
)

type createRequest struct {
	Name        string  `json:"name"`
	Platform    string  `json:"platform"`
	MonthlyCost float64 `json:"monthly_cost"`
	MaxMembers  *int    `json:"max_members"`
	Description string  `json:"description"`
}

// HandleCreate handles POST /api/groups.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r)

	var req createRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, limits.MaxJSONBodySize)).Decode(&req); err != nil {
		uierrors.RenderBadRequest(w, "Request body must be a JSON object.")
		return
	}

	maxMembers := membership.DefaultMaxMembers
	if req.MaxMembers != nil {
		maxMembers = *req.MaxMembers
	}

	g, err := h.Membership.CreateGroup(r.Context(), user.ID, membership.GroupConfig{
		Name:        req.Name,
		Platform:    req.Platform,
		MonthlyCost: req.MonthlyCost,
		MaxMembers:  maxMembers,
		Description: req.Description,
	})
	if err != nil {
		uierrors.Render(w, r, h.Log, err)
		return
	}

	uierrors.WriteJSON(w, http.StatusCreated, g)
}
