package conversations

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/mailgrove/mailgrove/dto"
	er "github.com/mailgrove/mailgrove/internal/errors"
	"github.com/mailgrove/mailgrove/internal/tracing"
)

func (h *ConversationsHandler) SetRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		span, ctx := opentracing.StartSpanFromContext(ctx, "ConversationsHandler.SetRead")
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

		conversation, err := h.conversationService.SetRead(ctx, user, c.Param("id"), request.Value)
		if err != nil {
			respondWithError(c, span, err)
			return
		}

		c.JSON(http.StatusOK, dto.MapConversationToSummary(conversation, nil))
	}
}

func (h *ConversationsHandler) SetStarred() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		span, ctx := opentracing.StartSpanFromContext(ctx, "ConversationsHandler.SetStarred")
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

		conversation, err := h.conversationService.SetStarred(ctx, user, c.Param("id"), request.Value)
		if err != nil {
			respondWithError(c, span, err)
			return
		}

		c.JSON(http.StatusOK, dto.MapConversationToSummary(conversation, nil))
	}
}

func (h *ConversationsHandler) MoveToFolder() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		span, ctx := opentracing.StartSpanFromContext(ctx, "ConversationsHandler.MoveToFolder")
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

		conversation, err := h.conversationService.MoveToFolder(ctx, user, c.Param("id"), request.Folder)
		if err != nil {
			respondWithError(c, span, err)
			return
		}

		c.JSON(http.StatusOK, dto.MapConversationToSummary(conversation, nil))
	}
}

// Delete moves a conversation to Trash, deleting a trashed
// conversation purges it.
func (h *ConversationsHandler) Delete() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		span, ctx := opentracing.StartSpanFromContext(ctx, "ConversationsHandler.Delete")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		user, err := userID(ctx)
		if err != nil {
			respondWithError(c, span, err)
			return
		}

		if err := h.conversationService.Delete(ctx, user, c.Param("id")); err != nil {
			respondWithError(c, span, err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}
