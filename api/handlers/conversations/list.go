package conversations

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/mailgrove/mailgrove/dto"
	er "github.com/mailgrove/mailgrove/internal/errors"
	"github.com/mailgrove/mailgrove/internal/tracing"
)

// List returns the user's conversations newest first.
func (h *ConversationsHandler) List() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		span, ctx := opentracing.StartSpanFromContext(ctx, "ConversationsHandler.List")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		user, err := userID(ctx)
		if err != nil {
			respondWithError(c, span, err)
			return
		}

		var query dto.ConversationListQuery
		if err := c.ShouldBindQuery(&query); err != nil {
			respondWithError(c, span, er.ErrInvalidInput)
			return
		}

		response, err := h.conversationService.List(ctx, user, query)
		if err != nil {
			respondWithError(c, span, err)
			return
		}

		c.JSON(http.StatusOK, response)
	}
}

// Search runs a substring match over subjects, participants and bodies.
func (h *ConversationsHandler) Search() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		span, ctx := opentracing.StartSpanFromContext(ctx, "ConversationsHandler.Search")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		user, err := userID(ctx)
		if err != nil {
			respondWithError(c, span, err)
			return
		}

		var query dto.ConversationSearchQuery
		if err := c.ShouldBindQuery(&query); err != nil {
			respondWithError(c, span, er.ErrInvalidInput)
			return
		}

		response, err := h.conversationService.Search(ctx, user, query)
		if err != nil {
			respondWithError(c, span, err)
			return
		}

		c.JSON(http.StatusOK, response)
	}
}

// Get returns one conversation with its messages oldest first.
func (h *ConversationsHandler) Get() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		span, ctx := opentracing.StartSpanFromContext(ctx, "ConversationsHandler.Get")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		user, err := userID(ctx)
		if err != nil {
			respondWithError(c, span, err)
			return
		}

		detail, err := h.conversationService.Get(ctx, user, c.Param("id"))
		if err != nil {
			respondWithError(c, span, err)
			return
		}

		c.JSON(http.StatusOK, detail)
	}
}
