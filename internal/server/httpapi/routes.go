// Package httpapi is the REST transport of the server, built on gin.
package httpapi

import (
	"context"
	"time"

	"github.com/dmitrijs2005/aliasvault/internal/common"
	"github.com/dmitrijs2005/aliasvault/internal/logging"
	"github.com/dmitrijs2005/aliasvault/internal/server/metrics"
	"github.com/dmitrijs2005/aliasvault/internal/server/services"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis_rate/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are the collaborators of the REST router. Limiter and Archive are
// optional.
type Deps struct {
	Auth               services.Authenticator
	Vaults             services.VaultStore
	Archive            services.ArchiveLinker
	Limiter            *redis_rate.Limiter
	RateLimitPerSecond int
	// TrustedProxies lists the addresses whose forwarding headers are
	// believed. Empty means the peer address is always the client.
	TrustedProxies []string
	JWTSecret      []byte
	Logger         logging.Logger
}

// NewRouter builds the gin engine with every /v1 route and /metrics.
func NewRouter(d Deps) *gin.Engine {
	metrics.InitMetrics()

	router := gin.New()
	if err := router.SetTrustedProxies(d.TrustedProxies); err != nil {
		d.Logger.Warn(context.Background(), "invalid trusted proxies, ignoring forwarding headers", "error", err)
		_ = router.SetTrustedProxies(nil)
	}
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept-Language", common.ClientHeaderName},
		ExposeHeaders:    []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authApi := NewAuthApi(d.Auth, d.Logger)
	vaultApi := NewVaultApi(d.Vaults, d.Auth, d.Archive, d.Logger)

	v1 := router.Group("/v1", metrics.MetricsMiddleware())
	if d.Limiter != nil {
		v1.Use(RateLimitMiddleware(d.Limiter, d.RateLimitPerSecond))
	}

	// PUBLIC API
	public := v1.Group("/auth")
	{
		public.POST("/login", authApi.Login)
		public.POST("/validate-login", authApi.ValidateLogin)
		public.POST("/validate-login-2fa", authApi.ValidateLoginTwoFactor)
		public.POST("/validate-login-recovery-code", authApi.ValidateLoginRecoveryCode)
		public.POST("/refresh", authApi.Refresh)
		public.POST("/revoke", authApi.Revoke)
		public.POST("/register", authApi.Register)
		public.POST("/validate-username", authApi.ValidateUsername)
	}

	// AUTHORIZED API
	authorized := v1.Group("", AuthMiddleware(d.JWTSecret))
	{
		authorized.GET("/status", authApi.Status)
		authorized.GET("/auth/change-password/initiate", authApi.PasswordChangeInitiate)
		authorized.POST("/auth/two-factor/enable", authApi.EnableTwoFactor)
		authorized.POST("/auth/two-factor/confirm", authApi.ConfirmTwoFactor)
		authorized.POST("/auth/two-factor/disable", authApi.DisableTwoFactor)

		authorized.GET("/vault", vaultApi.Get)
		authorized.GET("/vault/merge", vaultApi.Merge)
		authorized.POST("/vault", vaultApi.Update)
		authorized.POST("/vault/change-password", vaultApi.ChangePassword)
		authorized.GET("/vault/archive/:revision", vaultApi.ArchiveLink)
	}

	return router
}
