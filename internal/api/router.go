package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/faceid/internal/api/handlers"
	"github.com/your-org/faceid/internal/api/ws"
	"github.com/your-org/faceid/internal/auth"
	"github.com/your-org/faceid/internal/identity"
	"github.com/your-org/faceid/internal/recognition"
)

type RouterConfig struct {
	APIKey string
	// RequestTimeout bounds every non-websocket request.
	RequestTimeout time.Duration
	Identities     *identity.Service
	Recognition    *recognition.Service
	Tokens         *auth.JWTIssuer
	Objects        handlers.ObjectStore
	Hub            *ws.Hub
	// Checks are the dependency probes behind /readyz.
	Checks map[string]handlers.Check
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware())
	r.Use(cors.Default())

	// System endpoints (no auth)
	systemH := handlers.NewSystemHandler(cfg.Checks)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiKey := auth.APIKeyMiddleware(cfg.APIKey)
	bearer := auth.BearerMiddleware(cfg.Tokens)
	deadline := DeadlineMiddleware(cfg.RequestTimeout)

	// Authentication
	authH := handlers.NewAuthHandler(cfg.Identities, cfg.Tokens)
	authG := r.Group("/auth", deadline)
	authG.POST("/register", authH.Register)
	authG.POST("/login/password", authH.LoginPassword)
	authG.POST("/login/face", authH.LoginFace)
	authG.POST("/login/face/clientside", apiKey, authH.LoginFaceClientSide)

	// Batch recognition for kiosks
	recH := handlers.NewRecognitionHandler(cfg.Recognition)
	r.POST("/api/recognize/face", deadline, apiKey, recH.RecognizeFaces)

	// Profile
	userH := handlers.NewUserHandler(cfg.Identities)
	users := r.Group("/users", deadline, bearer)
	users.GET("/me", userH.Me)
	users.PUT("/update", userH.Update)
	users.PUT("/update-password", userH.UpdatePassword)

	// Avatars
	avatarH := handlers.NewAvatarHandler(cfg.Objects)
	r.POST("/common/file_upload", deadline, bearer, avatarH.Upload)
	r.GET("/uploads/*key", deadline, avatarH.Download)

	// Live identity events
	if cfg.Hub != nil {
		r.GET("/ws", apiKey, cfg.Hub.HandleWS)
	}

	return r
}
