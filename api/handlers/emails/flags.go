package emails

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/mailgrove/mailgrove/dto"
	er "github.com/mailgrove/mailgrove/internal/errors"
	"github.com/mailgrove/mailgrove/internal/tracing"
)

// SetRead flips the read flag on one message. The owning
// conversation's unread count follows.
func (h *EmailsHandler) SetRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		span, ctx := opentracing.StartSpanFromContext(ctx, "EmailsHandler.SetRead")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		user, err := userID(ctx)
		if err != nil {
			respondWithError(c, span, err)
			return
		}

		var request dto.UpdateFlagRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			respondWithError(c, span, er.ErrInvalidInput)
			return
		}

		email, err := h.emailService.SetRead(ctx, user, c.Param("id"), request.Value)
		if err != nil {
			respondWithError(c, span, err)
			return
		}

		c.JSON(http.StatusOK, dto.MapEmailToResponse(email))
	}
}

func (h *EmailsHandler) SetStarred() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		span, ctx := opentracing.StartSpanFromContext(ctx, "EmailsHandler.SetStarred")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		user, err := userID(ctx)
		if err != nil {
			respondWithError(c, span, err)
			return
		}

		var request dto.UpdateFlagRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			respondWithError(c, span, er.ErrInvalidInput)
			return
		}

		email, err := h.emailService.SetStarred(ctx, user, c.Param("id"), request.Value)
		if err != nil {
			respondWithError(c, span, err)
			return
		}

		c.JSON(http.StatusOK, dto.MapEmailToResponse(email))
	}
}

// MoveToFolder refiles a single message without moving its
// conversation.
func (h *EmailsHandler) MoveToFolder() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		span, ctx := opentracing.StartSpanFromContext(ctx, "EmailsHandler.MoveToFolder")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		user, err := userID(ctx)
		if err != nil {
			respondWithError(c, span, err)
			return
		}

		var request dto.MoveFolderRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			respondWithError(c, span, er.ErrInvalidInput)
			return
		}

		email, err := h.emailService.MoveToFolder(ctx, user, c.Param("id"), request.Folder)
		if err != nil {
			respondWithError(c, span, err)
			return
		}

		c.JSON(http.StatusOK, dto.MapEmailToResponse(email))
	}
}

// Delete moves a message to Trash, deleting a trashed message purges
// it and recomputes the conversation.
func (h *EmailsHandler) Delete() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		span, ctx := opentracing.StartSpanFromContext(ctx, "EmailsHandler.Delete")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		user, err := userID(ctx)
		if err != nil {
			respondWithError(c, span, err)
			return
		}

		if err := h.emailService.Delete(ctx, user, c.Param("id")); err != nil {
			respondWithError(c, span, err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}
