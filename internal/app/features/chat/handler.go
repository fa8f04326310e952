// internal/app/features/chat/handler.go
package chat

import (
	"net/http"

	uierrors "github.com/dalemusser/playform/internal/app/features/errors"
	"github.com/dalemusser/playform/internal/app/realtime/fanout"
	chatsvc "github.com/dalemusser/playform/internal/app/services/chat"
	"github.com/dalemusser/playform/internal/app/system/apperr"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler serves a group's messages over REST and its live event stream
// over WebSocket.
type Handler struct {
	Chat       *chatsvc.Service
	Broker     fanout.Broker
	SendBuffer int
	Log        *zap.Logger
}

func NewHandler(svc *chatsvc.Service, broker fanout.Broker, sendBuffer int, logger *zap.Logger) *Handler {
	if sendBuffer <= 0 {
		sendBuffer = defaultSendBuffer
	}
	return &Handler{
		Chat:       svc,
		Broker:     broker,
		SendBuffer: sendBuffer,
		Log:        logger,
	}
}

// groupID reads {id}, writing a 404 when it is not an ObjectID.
func groupID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		uierrors.Render(w, r, nil, apperr.NotFound("Group not found."))
		return primitive.NilObjectID, false
	}
	return id, true
}
