package http

import (
	"embed"
	"html/template"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/d-a-s-h-o/nojs-chat/internal/auth"
	"github.com/d-a-s-h-o/nojs-chat/internal/config"
	"github.com/d-a-s-h-o/nojs-chat/internal/store"
)

//go:embed templates/*.html
var templatesFS embed.FS

// NewServer builds the web front-end. It is a store co-tenant of the chat
// engine: pages read and append the same message log but never touch the
// live session registry.
func NewServer(st store.Store, authService *auth.Service, jwtConfig *auth.JWTConfig, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))
	router.SetHTMLTemplate(template.Must(template.ParseFS(templatesFS, "templates/*.html")))

	h := NewHandlers(st, authService, jwtConfig, cfg.ChatName, cfg.HistoryLimit, logger)

	router.GET("/", h.Index)
	router.POST("/login", h.Login)
	router.GET("/register", h.RegisterPage)
	router.POST("/register", h.Register)
	router.GET("/chat", h.ChatPage)
	router.POST("/message", h.PostMessage)
	router.GET("/logout", h.Logout)

	return &stdhttp.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// LoggerMiddleware creates a middleware that logs HTTP requests.
func LoggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Msg("http request")
	}
}
