package utils

import (
	"context"

	"github.com/gin-gonic/gin"
)

// CustomContext carries per-request identity through service and
// repository layers.
type CustomContext struct {
	AppSource string
	UserID    string
}

type customContextKeyType struct{}

var customContextKey = customContextKeyType{}

// UserIDHeaders are checked in order by the user-id middleware.
var UserIDHeaders = []string{"X-MAILGROVE-USER-ID", "X-USER-ID"}

func WithCustomContext(ctx context.Context, customContext *CustomContext) context.Context {
	return context.WithValue(ctx, customContextKey, customContext)
}

func WithCustomContextFromGinRequest(c *gin.Context, appSource string) context.Context {
	customContext := &CustomContext{
		AppSource: appSource,
		UserID:    c.GetString("UserId"),
	}
	return WithCustomContext(c.Request.Context(), customContext)
}

func GetContext(ctx context.Context) *CustomContext {
	customContext, ok := ctx.Value(customContextKey).(*CustomContext)
	if !ok {
		return new(CustomContext)
	}
	return customContext
}

func GetUserIDFromContext(ctx context.Context) string {
	return GetContext(ctx).UserID
}

func GetAppSourceFromContext(ctx context.Context) string {
	return GetContext(ctx).AppSource
}
