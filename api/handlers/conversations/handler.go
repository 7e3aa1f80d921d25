package conversations

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	custom_err "github.com/mailgrove/mailgrove/api/errors"
	"github.com/mailgrove/mailgrove/interfaces"
	er "github.com/mailgrove/mailgrove/internal/errors"
	"github.com/mailgrove/mailgrove/internal/tracing"
	"github.com/mailgrove/mailgrove/internal/utils"
)

type ConversationsHandler struct {
	conversationService interfaces.ConversationService
}

func NewConversationsHandler(conversationService interfaces.ConversationService) *ConversationsHandler {
	return &ConversationsHandler{
		conversationService: conversationService,
	}
}

// userID pulls the authenticated user out of the request context.
func userID(ctx context.Context) (string, error) {
	id := utils.GetUserIDFromContext(ctx)
	if id == "" {
		return "", er.ErrUserMissing
	}
	return id, nil
}

func respondWithError(c *gin.Context, span opentracing.Span, err error) {
	tracing.TraceErr(span, err)
	c.JSON(custom_err.HTTPStatus(err), gin.H{"error": err.Error()})
}
