package emails

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/mailgrove/mailgrove/dto"
	er "github.com/mailgrove/mailgrove/internal/errors"
	"github.com/mailgrove/mailgrove/internal/tracing"
)

// Send accepts an outbound message and files it into the sender's
// conversation history. Replies join the parent's conversation.
func (h *EmailsHandler) Send() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		span, ctx := opentracing.StartSpanFromContext(ctx, "EmailsHandler.Send")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		user, err := userID(ctx)
		if err != nil {
			respondWithError(c, span, err)
			return
		}

		var request dto.SendEmailRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			respondWithError(c, span, er.ErrInvalidInput)
			return
		}

		email, err := h.emailService.Send(ctx, user, request)
		if err != nil {
			respondWithError(c, span, err)
			return
		}

		c.JSON(http.StatusCreated, dto.MapEmailToResponse(email))
	}
}
