package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"auth-portal/internal/auth"
	"auth-portal/internal/domain"
	"auth-portal/internal/forms"
	"auth-portal/internal/service"
	"auth-portal/internal/storage"
)

const (
	oauthStateCookie  = "oauth_state"
	oauthReturnCookie = "oauth_return"
	oauthCookieTTL    = 600 // seconds

	presignTTL = 15 * time.Minute
)

// Handler wires HTTP routes to domain services.
type Handler struct {
	users     service.UserService
	gateway   *auth.Gateway
	guard     *RouteGuard
	storage   storage.Service
	bucket    string
	keyPrefix string
	homePath  string
	logger    *logrus.Logger
}

func NewHandler(users service.UserService, gateway *auth.Gateway, guard *RouteGuard, store storage.Service, bucket, keyPrefix, homePath string, logger *logrus.Logger) *Handler {
	if homePath == "" {
		homePath = "/"
	}
	return &Handler{
		users:     users,
		gateway:   gateway,
		guard:     guard,
		storage:   store,
		bucket:    bucket,
		keyPrefix: keyPrefix,
		homePath:  homePath,
		logger:    logger,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(corsMiddleware())
	router.Use(h.guard.Middleware(h.gateway))

	api := router.Group("/api")
	{
		api.POST("/auth/register", h.register)
		api.POST("/auth/login", h.login)
		api.POST("/auth/logout", h.logout)
		api.GET("/auth/session", h.session)
		api.GET("/auth/providers", h.providers)
		api.GET("/auth/oauth/:provider", h.oauthBegin)
		api.GET("/auth/oauth/:provider/callback", h.oauthCallback)
		api.GET("/me", h.me)
		api.POST("/me/avatar", h.uploadAvatar)
		api.GET("/health", func(ctx *gin.Context) {
			ctx.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})
	}

	admin := router.Group("/admin")
	{
		admin.GET("", h.adminHome)
	}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := forms.Register().Validate(map[string]string{
		"name":     req.Name,
		"email":    req.Email,
		"password": req.Password,
	})
	if !result.Valid {
		c.JSON(http.StatusBadRequest, gin.H{"errors": result.Errors})
		return
	}

	user, err := h.users.Register(c.Request.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "Email already exists"})
			return
		}
		h.logger.WithError(err).Warn("registration failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "user": h.userToResponse(c, user)})
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := forms.Login().Validate(map[string]string{
		"email":    req.Email,
		"password": req.Password,
	})
	if !result.Valid {
		c.JSON(http.StatusBadRequest, gin.H{"errors": result.Errors})
		return
	}

	signIn, err := h.gateway.SignIn(c.Request.Context(), auth.SignInRequest{
		Kind:     auth.ProviderCredentials,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		status, message := loginFailure(err)
		if status == http.StatusInternalServerError {
			h.logger.WithError(err).Warn("credential sign-in failed")
		}
		c.JSON(status, gin.H{"error": message})
		return
	}

	h.gateway.WriteSession(c, signIn.Token)
	c.JSON(http.StatusOK, gin.H{"success": true, "user": h.userToResponse(c, signIn.User)})
}

// loginFailure maps authenticator errors to user-facing responses without
// revealing whether the email or the password was wrong.
func loginFailure(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrMissingCredentials),
		errors.Is(err, service.ErrIncorrectPassword),
		errors.Is(err, service.ErrNoPasswordSet),
		errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid email or password"
	default:
		return http.StatusInternalServerError, "Something went wrong"
	}
}

func (h *Handler) logout(c *gin.Context) {
	h.gateway.EndSession(c)
	c.JSON(http.StatusOK, gin.H{"success": true, "redirect": h.homePath})
}

func (h *Handler) session(c *gin.Context) {
	session, ok := h.gateway.CurrentSession(c)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"authenticated": true,
		"session": gin.H{
			"user_id":    session.UserID,
			"email":      session.Email,
			"role":       session.Role,
			"expires_at": session.ExpiresAt.Format(time.RFC3339),
		},
	})
}

func (h *Handler) providers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"providers": h.gateway.Providers()})
}

func (h *Handler) oauthBegin(c *gin.Context) {
	returnPath := sanitizeReturnPath(c.Query("return_to"), h.homePath)

	signIn, err := h.gateway.SignIn(c.Request.Context(), auth.SignInRequest{
		Kind:       auth.ProviderOAuth,
		Provider:   c.Param("provider"),
		ReturnPath: returnPath,
	})
	if err != nil {
		if errors.Is(err, auth.ErrUnknownProvider) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown provider"})
			return
		}
		h.logger.WithError(err).Warn("oauth begin failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, signIn.State, oauthCookieTTL, "/", "", false, true)
	c.SetCookie(oauthReturnCookie, signIn.ReturnPath, oauthCookieTTL, "/", "", false, true)
	c.Redirect(http.StatusFound, signIn.RedirectURL)
}

func (h *Handler) oauthCallback(c *gin.Context) {
	if errParam := c.Query("error"); errParam != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Provider sign-in was cancelled or failed"})
		return
	}

	code := c.Query("code")
	state := c.Query("state")
	expectedState, err := c.Cookie(oauthStateCookie)
	if code == "" || state == "" || err != nil || state != expectedState {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid oauth state"})
		return
	}

	returnPath := h.homePath
	if stored, err := c.Cookie(oauthReturnCookie); err == nil {
		returnPath = sanitizeReturnPath(stored, h.homePath)
	}
	c.SetCookie(oauthStateCookie, "", -1, "/", "", false, true)
	c.SetCookie(oauthReturnCookie, "", -1, "/", "", false, true)

	_, token, err := h.gateway.CompleteOAuthLogin(c.Request.Context(), c.Param("provider"), code)
	if err != nil {
		if errors.Is(err, auth.ErrUnknownProvider) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown provider"})
			return
		}
		if auth.IsProviderError(err) {
			c.JSON(http.StatusBadGateway, gin.H{"error": "Provider sign-in failed"})
			return
		}
		h.logger.WithError(err).Warn("oauth callback failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	h.gateway.WriteSession(c, token)
	c.Redirect(http.StatusFound, returnPath)
}

func (h *Handler) me(c *gin.Context) {
	session, ok := h.gateway.CurrentSession(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), session.UserID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, h.userToResponse(c, user))
}

func (h *Handler) uploadAvatar(c *gin.Context) {
	session, ok := h.gateway.CurrentSession(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	if h.storage == nil || h.bucket == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "avatar storage not configured"})
		return
	}

	var previousImage string
	if current, err := h.users.GetByID(c.Request.Context(), session.UserID); err == nil {
		previousImage = current.Image
	}

	fileHeader, err := c.FormFile("avatar")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "avatar file is required"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "avatar file is unreadable"})
		return
	}
	defer file.Close()

	key := fmt.Sprintf("%s/%d-%s", h.keyPrefix, session.UserID, uuid.NewString())
	location, err := h.storage.Upload(c.Request.Context(), h.bucket, key, file, fileHeader.Header.Get("Content-Type"))
	if err != nil {
		h.logger.WithError(err).Warn("avatar upload failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	user, err := h.users.SetImage(c.Request.Context(), session.UserID, location)
	if err != nil {
		h.logger.WithError(err).Warn("avatar image update failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	h.deleteStoredImage(c, previousImage)

	c.JSON(http.StatusOK, h.userToResponse(c, user))
}

// deleteStoredImage removes a replaced s3:// avatar object. External
// provider image URLs are not ours to delete.
func (h *Handler) deleteStoredImage(c *gin.Context, image string) {
	if !strings.HasPrefix(image, "s3://") || h.storage == nil {
		return
	}
	bucket, key, err := splitS3Location(image)
	if err != nil {
		return
	}
	if err := h.storage.DeleteObject(c.Request.Context(), bucket, key); err != nil {
		h.logger.WithError(err).Warn("delete previous avatar failed")
	}
}

func (h *Handler) adminHome(c *gin.Context) {
	// The guard usually redirects anonymous requests, but the protected
	// prefix set is configurable and may not cover this route.
	session, ok := h.gateway.CurrentSession(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"section": "admin",
		"email":   session.Email,
		"role":    session.Role,
	})
}

type UserResponse struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name,omitempty"`
	Username  string `json:"username,omitempty"`
	Image     string `json:"image,omitempty"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
}

func (h *Handler) userToResponse(c *gin.Context, user *domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Username:  user.Username,
		Image:     h.resolveImageURL(c, user.Image),
		Role:      string(user.Role),
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
	}
}

// resolveImageURL swaps an internal s3:// location for a presigned URL.
// External provider image URLs pass through untouched.
func (h *Handler) resolveImageURL(c *gin.Context, image string) string {
	if !strings.HasPrefix(image, "s3://") {
		return image
	}
	if h.storage == nil {
		return ""
	}
	bucket, key, err := splitS3Location(image)
	if err != nil {
		return ""
	}
	url, err := h.storage.GetObjectURL(c.Request.Context(), bucket, key, presignTTL)
	if err != nil {
		h.logger.WithError(err).Warn("presign avatar failed")
		return ""
	}
	return url
}

func splitS3Location(location string) (bucket, key string, err error) {
	rest := strings.TrimPrefix(location, "s3://")
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid s3 location")
	}
	return parts[0], parts[1], nil
}

// sanitizeReturnPath only allows same-site relative paths as post-login
// destinations.
func sanitizeReturnPath(path, fallback string) string {
	if path == "" || !strings.HasPrefix(path, "/") || strings.HasPrefix(path, "//") {
		return fallback
	}
	return path
}
