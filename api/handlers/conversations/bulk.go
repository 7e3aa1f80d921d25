package conversations

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/mailgrove/mailgrove/dto"
	er "github.com/mailgrove/mailgrove/internal/errors"
	"github.com/mailgrove/mailgrove/internal/tracing"
)

// Bulk applies one action to many conversations. Per-conversation
// outcomes are reported individually, a failing id does not abort the
// rest.
func (h *ConversationsHandler) Bulk() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		span, ctx := opentracing.StartSpanFromContext(ctx, "ConversationsHandler.Bulk")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		user, err := userID(ctx)
		if err != nil {
			respondWithError(c, span, err)
			return
		}

		var request dto.BulkActionRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			respondWithError(c, span, er.ErrInvalidInput)
			return
		}

		result, err := h.conversationService.BulkAction(ctx, user, request)
		if err != nil {
			// A partial result still reaches the client.
			if result != nil {
				tracing.TraceErr(span, err)
				c.JSON(http.StatusOK, result)
				return
			}
			respondWithError(c, span, err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}
