package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/duynhne/account-service/internal/core/domain"
	logicv1 "github.com/duynhne/account-service/internal/logic/v1"
	"github.com/duynhne/account-service/middleware"
)

type loginScreenResponse struct {
	ID    string            `json:"id"`
	State domain.LoginDraft `json:"state"`
}

type profileScreenResponse struct {
	ID    string              `json:"id"`
	State domain.ProfileDraft `json:"state"`
}

// ScreenHandler serves the login and profile screen sessions.
type ScreenHandler struct {
	screens *logicv1.Screens
}

// NewScreenHandler creates a new screen handler
func NewScreenHandler(screens *logicv1.Screens) *ScreenHandler {
	return &ScreenHandler{screens: screens}
}

// OpenLogin handles POST /api/v1/screens/login
func (h *ScreenHandler) OpenLogin(c *gin.Context) {
	_, span := startRequestSpan(c)
	defer span.End()

	screen := h.screens.OpenLogin()
	span.SetAttributes(attribute.String("screen.id", screen.ID))
	middleware.GetLoggerFromGinContext(c).Debug("Login screen opened", zap.String("screen_id", screen.ID))
	c.JSON(http.StatusCreated, loginScreenResponse{ID: screen.ID, State: screen.Flow.State()})
}

// UpdateLogin handles PATCH /api/v1/screens/login/:id
func (h *ScreenHandler) UpdateLogin(c *gin.Context) {
	_, span := startRequestSpan(c)
	defer span.End()
	zapLogger := middleware.GetLoggerFromGinContext(c)

	screen, err := h.screens.Login(c.Param("id"))
	if err != nil {
		writeError(c, zapLogger, span, "Login screen lookup failed", err)
		return
	}

	var req domain.UpdateLoginDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": sanitizeValidationError(err)})
		return
	}
	if req.Email != nil {
		screen.Flow.OnEmailChange(*req.Email)
	}
	if req.Password != nil {
		screen.Flow.OnPasswordChange(*req.Password)
	}

	c.JSON(http.StatusOK, loginScreenResponse{ID: screen.ID, State: screen.Flow.State()})
}

// SignIn handles POST /api/v1/screens/login/:id/sign-in
func (h *ScreenHandler) SignIn(c *gin.Context) {
	ctx, span := startRequestSpan(c)
	defer span.End()

	screen, err := h.screens.Login(c.Param("id"))
	if err != nil {
		writeError(c, middleware.GetLoggerFromGinContext(c), span, "Login screen lookup failed", err)
		return
	}
	c.JSON(http.StatusOK, screen.Flow.SignIn(ctx, nil))
}

// ForgotPassword handles POST /api/v1/screens/login/:id/forgot-password
func (h *ScreenHandler) ForgotPassword(c *gin.Context) {
	ctx, span := startRequestSpan(c)
	defer span.End()

	screen, err := h.screens.Login(c.Param("id"))
	if err != nil {
		writeError(c, middleware.GetLoggerFromGinContext(c), span, "Login screen lookup failed", err)
		return
	}
	c.JSON(http.StatusOK, screen.Flow.ForgotPassword(ctx, nil))
}

// BeginFederated handles GET /api/v1/screens/login/:id/federated
func (h *ScreenHandler) BeginFederated(c *gin.Context) {
	_, span := startRequestSpan(c)
	defer span.End()
	zapLogger := middleware.GetLoggerFromGinContext(c)

	screen, err := h.screens.Login(c.Param("id"))
	if err != nil {
		writeError(c, zapLogger, span, "Login screen lookup failed", err)
		return
	}

	start, err := screen.Flow.BeginFederatedSignIn(uuid.NewString())
	if err != nil {
		writeError(c, zapLogger, span, "Federated sign-in unavailable", err)
		return
	}
	c.JSON(http.StatusOK, start)
}

// CompleteFederated handles POST /api/v1/screens/login/:id/federated
func (h *ScreenHandler) CompleteFederated(c *gin.Context) {
	ctx, span := startRequestSpan(c)
	defer span.End()

	screen, err := h.screens.Login(c.Param("id"))
	if err != nil {
		writeError(c, middleware.GetLoggerFromGinContext(c), span, "Login screen lookup failed", err)
		return
	}

	var req domain.FederatedSignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": sanitizeValidationError(err)})
		return
	}
	c.JSON(http.StatusOK, screen.Flow.FederatedSignIn(ctx, nil, req))
}

// CloseLogin handles DELETE /api/v1/screens/login/:id
func (h *ScreenHandler) CloseLogin(c *gin.Context) {
	_, span := startRequestSpan(c)
	defer span.End()

	if err := h.screens.CloseLogin(c.Param("id")); err != nil {
		writeError(c, middleware.GetLoggerFromGinContext(c), span, "Login screen close failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// OpenProfile handles POST /api/v1/screens/profile
func (h *ScreenHandler) OpenProfile(c *gin.Context) {
	ctx, span := startRequestSpan(c)
	defer span.End()
	zapLogger := middleware.GetLoggerFromGinContext(c)

	screen, err := h.screens.OpenProfile(ctx)
	if err != nil {
		writeError(c, zapLogger, span, "Failed to open profile screen", err)
		return
	}

	span.SetAttributes(attribute.String("screen.id", screen.ID))
	zapLogger.Info("Profile screen opened",
		zap.String("screen_id", screen.ID),
		zap.String("user_id", screen.OwnerID),
	)
	c.JSON(http.StatusCreated, profileScreenResponse{ID: screen.ID, State: screen.Editor.State()})
}

// GetProfile handles GET /api/v1/screens/profile/:id
func (h *ScreenHandler) GetProfile(c *gin.Context) {
	ctx, span := startRequestSpan(c)
	defer span.End()

	screen, err := h.screens.Profile(ctx, c.Param("id"))
	if err != nil {
		writeError(c, middleware.GetLoggerFromGinContext(c), span, "Profile screen lookup failed", err)
		return
	}
	c.JSON(http.StatusOK, profileScreenResponse{ID: screen.ID, State: screen.Editor.State()})
}

// UpdateProfile handles PATCH /api/v1/screens/profile/:id
func (h *ScreenHandler) UpdateProfile(c *gin.Context) {
	ctx, span := startRequestSpan(c)
	defer span.End()

	screen, err := h.screens.Profile(ctx, c.Param("id"))
	if err != nil {
		writeError(c, middleware.GetLoggerFromGinContext(c), span, "Profile screen lookup failed", err)
		return
	}

	var req domain.UpdateProfileDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": sanitizeValidationError(err)})
		return
	}
	if req.Name != nil {
		screen.Editor.OnNameChange(*req.Name)
	}
	if req.Birth != nil {
		screen.Editor.OnBirthChange(*req.Birth)
	}

	c.JSON(http.StatusOK, profileScreenResponse{ID: screen.ID, State: screen.Editor.State()})
}

// SaveProfile handles POST /api/v1/screens/profile/:id/save
func (h *ScreenHandler) SaveProfile(c *gin.Context) {
	ctx, span := startRequestSpan(c)
	defer span.End()

	screen, err := h.screens.Profile(ctx, c.Param("id"))
	if err != nil {
		writeError(c, middleware.GetLoggerFromGinContext(c), span, "Profile screen lookup failed", err)
		return
	}
	c.JSON(http.StatusOK, screen.Editor.Save(ctx, nil))
}

// CloseProfile handles DELETE /api/v1/screens/profile/:id
func (h *ScreenHandler) CloseProfile(c *gin.Context) {
	ctx, span := startRequestSpan(c)
	defer span.End()

	if err := h.screens.CloseProfile(ctx, c.Param("id")); err != nil {
		writeError(c, middleware.GetLoggerFromGinContext(c), span, "Profile screen close failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}
