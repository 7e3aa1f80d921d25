package emails

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

type EmailsHandler struct {
	emailService interfaces.EmailService
}

func NewEmailsHandler(emailService interfaces.EmailService) *EmailsHandler {
	return &EmailsHandler{
		emailService: emailService,
	}
}

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
