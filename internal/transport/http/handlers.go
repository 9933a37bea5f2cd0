package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/d-a-s-h-o/nojs-chat/internal/auth"
	"github.com/d-a-s-h-o/nojs-chat/internal/store"
)

// sessionCookie names the cookie carrying the signed web session token.
const sessionCookie = "session"

// Handlers serves the no-JS HTML pages.
type Handlers struct {
	store        store.Store
	authService  *auth.Service
	jwtConfig    *auth.JWTConfig
	chatName     string
	historyLimit int
	log          *zerolog.Logger
}

// NewHandlers creates the page handlers.
func NewHandlers(st store.Store, authService *auth.Service, jwtConfig *auth.JWTConfig, chatName string, historyLimit int, logger *zerolog.Logger) *Handlers {
	if historyLimit <= 0 {
		historyLimit = 20
	}
	return &Handlers{
		store:        st,
		authService:  authService,
		jwtConfig:    jwtConfig,
		chatName:     chatName,
		historyLimit: historyLimit,
		log:          logger,
	}
}

// CredentialsForm is the login and registration form body.
type CredentialsForm struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

// MessageForm is the chat posting form body.
type MessageForm struct {
	Content string `form:"content" binding:"required"`
}

// currentUser returns the authenticated username from the session cookie, or
// "" when the request carries no valid session.
func (h *Handlers) currentUser(c *gin.Context) string {
	token, err := c.Cookie(sessionCookie)
	if err != nil || token == "" {
		return ""
	}
	claims, err := auth.ValidateToken(h.jwtConfig, token)
	if err != nil {
		return ""
	}
	return claims.Username
}

// Index renders the login page, or redirects straight to the chat when a
// session cookie is present.
// GET /
func (h *Handlers) Index(c *gin.Context) {
	if h.currentUser(c) != "" {
		c.Redirect(http.StatusFound, "/chat")
		return
	}
	c.HTML(http.StatusOK, "login.html", gin.H{"ChatName": h.chatName})
}

// Login verifies the posted credentials and sets the session cookie. A failed
// login redirects back to the login page with no detail on what was wrong.
// POST /login
func (h *Handlers) Login(c *gin.Context) {
	var form CredentialsForm
	if err := c.ShouldBind(&form); err != nil {
		c.Redirect(http.StatusFound, "/")
		return
	}

	user, err := h.authService.Verify(c.Request.Context(), form.Username, form.Password)
	if err != nil {
		h.log.Debug().Str("username", form.Username).Msg("web login rejected")
		c.Redirect(http.StatusFound, "/")
		return
	}

	token, err := auth.GenerateToken(h.jwtConfig, user.ID, user.Username)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to generate session token")
		c.Redirect(http.StatusFound, "/")
		return
	}

	c.SetCookie(sessionCookie, token, int(h.jwtConfig.TTL.Seconds()), "/", "", false, true)
	c.Redirect(http.StatusFound, "/chat")
}

// RegisterPage renders the registration form.
// GET /register
func (h *Handlers) RegisterPage(c *gin.Context) {
	c.HTML(http.StatusOK, "register.html", gin.H{"ChatName": h.chatName})
}

// Register creates an account and sends the user to the login page.
// POST /register
func (h *Handlers) Register(c *gin.Context) {
	var form CredentialsForm
	if err := c.ShouldBind(&form); err != nil {
		c.Redirect(http.StatusFound, "/register")
		return
	}

	if _, err := h.authService.Register(c.Request.Context(), form.Username, form.Password); err != nil {
		h.log.Debug().Err(err).Str("username", form.Username).Msg("web registration rejected")
		c.Redirect(http.StatusFound, "/register")
		return
	}

	h.log.Info().Str("username", form.Username).Msg("user registered")
	c.Redirect(http.StatusFound, "/")
}

// ChatPage renders the recent message window, newest first.
// GET /chat
func (h *Handlers) ChatPage(c *gin.Context) {
	if h.currentUser(c) == "" {
		c.Redirect(http.StatusFound, "/")
		return
	}

	messages, err := h.store.RecentMessages(c.Request.Context(), h.historyLimit)
	if err != nil {
		// Degrade to an empty page rather than failing the request.
		h.log.Error().Err(err).Msg("history fetch failed")
		messages = nil
	}

	c.HTML(http.StatusOK, "chat.html", gin.H{
		"ChatName": h.chatName,
		"Messages": messages,
	})
}

// PostMessage appends a message to the log. Interactive participants see it
// on their next history fetch; it is never delivered live from here.
// POST /message
func (h *Handlers) PostMessage(c *gin.Context) {
	username := h.currentUser(c)
	if username == "" {
		c.Redirect(http.StatusFound, "/")
		return
	}

	var form MessageForm
	if err := c.ShouldBind(&form); err != nil {
		c.Redirect(http.StatusFound, "/chat")
		return
	}

	if err := h.store.AppendMessage(c.Request.Context(), username, form.Content); err != nil {
		h.log.Error().Err(err).Str("username", username).Msg("message append failed")
	}
	c.Redirect(http.StatusFound, "/chat")
}

// Logout clears the session cookie.
// GET /logout
func (h *Handlers) Logout(c *gin.Context) {
	c.SetCookie(sessionCookie, "", -1, "/", "", false, true)
	c.Redirect(http.StatusFound, "/")
}
