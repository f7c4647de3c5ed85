package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/epessoa/epessoa/internal/logging"
	"github.com/epessoa/epessoa/internal/middleware"
)

type Deps struct {
	AuthHandler   *AuthHTTP
	PessoaHandler *PessoaHTTP
	AccessSecret  []byte
	Logger        *slog.Logger
}

func Register(e *echo.Echo, d *Deps) {
	if d.Logger != nil {
		e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				req := c.Request()
				ctx := logging.IntoContext(req.Context(), d.Logger)
				c.SetRequest(req.WithContext(ctx))
				return next(c)
			}
		})
	}

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	authMw := middleware.NewAuth(d.AccessSecret)

	auth := e.Group("/api/auth")
	auth.POST("/register", d.AuthHandler.Register)
	auth.POST("/login", d.AuthHandler.Login)
	auth.POST("/refresh", d.AuthHandler.Refresh)
	auth.GET("/govbr/login", d.AuthHandler.GovbrLogin)
	auth.GET("/govbr/callback", d.AuthHandler.GovbrCallback)
	auth.POST("/logout", d.AuthHandler.Logout, authMw.RequireAuth)

	pessoas := e.Group("/api/pessoas", authMw.RequireAuth)
	pessoas.POST("", d.PessoaHandler.Create)
	pessoas.GET("", d.PessoaHandler.List)
	pessoas.GET("/ativas", d.PessoaHandler.ListAtivas)
	pessoas.GET("/search", d.PessoaHandler.Search)
	pessoas.GET("/cpf/:cpf", d.PessoaHandler.GetByCPF)
	pessoas.GET("/:id", d.PessoaHandler.Get)
	pessoas.PUT("/:id", d.PessoaHandler.Update)
	pessoas.DELETE("/:id", d.PessoaHandler.Delete)
	pessoas.DELETE("/:id/permanent", d.PessoaHandler.HardDelete, authMw.RequireAdmin)
}
