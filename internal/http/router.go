// Package http wires the Gin routes and middleware stack.
package http

import (
	netHTTP "net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/HamzaElshennawy/qrsystem-sub000/internal/compound"
	"github.com/HamzaElshennawy/qrsystem-sub000/internal/config"
	"github.com/HamzaElshennawy/qrsystem-sub000/internal/http/handler"
	"github.com/HamzaElshennawy/qrsystem-sub000/internal/http/middleware"
)

// NewRouter wires Gin routes and middleware.
func NewRouter(cfg config.Config, authHandler *handler.AuthHandler, inviteHandler *handler.InviteHandler, authMiddleware *middleware.Auth, resolver *compound.Resolver, rateLimiter *middleware.RateLimiter) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(nil))
	if rateLimiter != nil {
		r.Use(rateLimiter.Handler())
	}
	r.Use(middleware.CORS(cfg))
	r.Use(otelgin.Middleware(cfg.ServiceName))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(netHTTP.StatusOK, gin.H{"status": "ok"})
	})

	authGroup := r.Group("/auth")
	{
		owner := authGroup.Group("/owner", middleware.Compound(resolver))
		{
			device := owner.Group("/device")
			{
				device.POST("/check", authHandler.CheckDevice)
				device.POST("/activate", authHandler.ActivateDevice)
				device.POST("/revoke", authMiddleware.RequireBearer, authHandler.RevokeDevice)
			}

			otp := owner.Group("/otp")
			{
				otp.POST("/request", authHandler.SendOTP)
				otp.POST("/verify", authHandler.ConfirmOTP)
			}

			password := owner.Group("/password")
			{
				password.POST("/setup", authHandler.SetupPassword)
				password.POST("/login", authHandler.LoginWithPassword)
			}
		}

		invites := authGroup.Group("/invites")
		{
			invites.POST("", middleware.Compound(resolver), authMiddleware.RequireBearer, inviteHandler.CreateInvite)
			// Accept resolves the compound from the invite itself.
			invites.POST("/accept", authMiddleware.RequireBearer, inviteHandler.AcceptInvite)
		}
	}

	return r
}
