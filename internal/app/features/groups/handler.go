// internal/app/features/groups/handler.go
package groups

import (
	"github.com/dalemusser/playform/internal/app/services/membership"
	"go.uber.org/zap"
)

// Handler is the shared dependency container for the groups feature.
type Handler struct {
	Membership *membership.Service
	Log        *zap.Logger
}

// NewHandler constructs a groups Handler. It is called from bootstrap
// once the membership service exists.
func NewHandler(svc *membership.Service, logger *zap.Logger) *Handler {
	return &Handler{
		Membership: svc,
		Log:        logger,
	}
}
