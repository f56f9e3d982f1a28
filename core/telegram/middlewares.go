package telegram

import (
	"github.com/m3rciful/diarybot/core/telegram/middleware"
)

// DefaultMiddlewares builds the global middleware chain. Per-route logging and
// recovery are added by the router package.
func DefaultMiddlewares() []Middleware {
	return []Middleware{
		{Name: "recover", Use: middleware.RecoverMiddleware},
		{Name: "serialize_users", Use: middleware.SerializeUsers()},
		{Name: "metrics", Use: middleware.MessageMetricsMiddleware},
	}
}
