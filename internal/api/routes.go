package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	"github.com/satriahrh/agribot/domain/entities"
	"github.com/satriahrh/agribot/domain/repositories"
	"github.com/satriahrh/agribot/internal/auth"
	_ "github.com/satriahrh/agribot/internal/docs"
	"github.com/satriahrh/agribot/internal/websocket"
	"github.com/satriahrh/agribot/usecase"
)

const sessionContextKey = "session"

// diseaseBodyLimit covers one leaf photo plus multipart framing
const diseaseBodyLimit = "11M"

// Handler serves the REST surface. Every chat and advisory call is bound to
// the session named by the bearer token.
type Handler struct {
	sessions       repositories.SessionRepository
	tokens         *auth.TokenIssuer
	chat           *usecase.ChatOrchestrator
	recommendation *usecase.RecommendationService
	disease        *usecase.DiseaseService
	weather        *usecase.WeatherService
	logger         *zap.Logger
}

func NewHandler(
	sessions repositories.SessionRepository,
	tokens *auth.TokenIssuer,
	chat *usecase.ChatOrchestrator,
	recommendation *usecase.RecommendationService,
	disease *usecase.DiseaseService,
	weather *usecase.WeatherService,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		sessions:       sessions,
		tokens:         tokens,
		chat:           chat,
		recommendation: recommendation,
		disease:        disease,
		weather:        weather,
		logger:         logger,
	}
}

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, h *Handler, hub *websocket.Hub) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"status":   "ok",
			"service":  "agribot-server",
			"sessions": h.sessions.Count(),
		})
	})

	e.GET("/swagger/*", echo.WrapHandler(httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	)))

	// API v1 routes
	v1 := e.Group("/api/v1")

	v1.POST("/sessions", h.createSession)
	v1.GET("/weather", h.getWeather)

	authed := v1.Group("", h.requireSession)

	authed.PUT("/sessions/language", h.setLanguage)

	// Chat APIs
	authed.GET("/chat/messages", h.getMessages)
	authed.POST("/chat/messages", h.postMessage)
	authed.DELETE("/chat/messages", h.clearMessages)
	authed.POST("/chat/voice", h.postVoice)
	authed.GET("/chat/messages/:id/audio", h.getMessageAudio)

	// Advisory APIs
	authed.POST("/recommendations", h.recommendCrops)
	authed.POST("/recommendations/guide", h.cropGuide)
	authed.POST("/disease/detect", h.detectDisease, middleware.BodyLimit(diseaseBodyLimit))

	// WebSocket endpoint with JWT validation
	e.GET("/ws", func(c echo.Context) error {
		return h.websocketWithAuth(hub, c)
	})
}

// requireSession resolves the bearer token into a live session
func (h *Handler) requireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := bearerToken(c.Request())
		if token == "" {
			return c.JSON(http.StatusUnauthorized, ErrorResponse{
				Error:   "missing_token",
				Message: "JWT token is required in Authorization header",
			})
		}

		session, errResp := h.resolveSession(c, token)
		if errResp != nil {
			return c.JSON(http.StatusUnauthorized, errResp)
		}

		c.Set(sessionContextKey, session)
		return next(c)
	}
}

// resolveSession returns the live session for token, or the error to send
func (h *Handler) resolveSession(c echo.Context, token string) (*entities.Session, *ErrorResponse) {
	claims, err := h.tokens.Validate(token)
	if err != nil {
		h.logger.Warn("Request rejected: invalid token", zap.Error(err))
		return nil, &ErrorResponse{
			Error:   "invalid_token",
			Message: "Invalid or expired JWT token",
		}
	}

	session, err := h.sessions.Get(c.Request().Context(), claims.SessionID)
	if err != nil {
		h.logger.Info("Request rejected: session gone",
			zap.String("sessionID", claims.SessionID),
			zap.Error(err))
		return nil, &ErrorResponse{
			Error:   "session_expired",
			Message: "Session no longer exists, open a new one",
		}
	}

	session.Touch()
	return session, nil
}

func sessionFrom(c echo.Context) *entities.Session {
	session, _ := c.Get(sessionContextKey).(*entities.Session)
	return session
}

func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return ""
}

// websocketWithAuth upgrades a connection for the session named by the token.
// Browsers cannot set headers on websocket requests, so ?token= is accepted too.
func (h *Handler) websocketWithAuth(hub *websocket.Hub, c echo.Context) error {
	token := bearerToken(c.Request())
	if token == "" {
		token = c.QueryParam("token")
	}

	if token == "" {
		h.logger.Warn("WebSocket connection rejected: missing token")
		return c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "missing_token",
			Message: "JWT token is required in Authorization header or token query parameter",
		})
	}

	session, errResp := h.resolveSession(c, token)
	if errResp != nil {
		return c.JSON(http.StatusUnauthorized, errResp)
	}

	h.logger.Info("WebSocket connection authenticated", zap.String("sessionID", session.ID))
	return websocket.HandleWebSocket(hub, c, session, h.logger)
}
