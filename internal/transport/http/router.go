package http

import (
	"github.com/gin-gonic/gin"
	"github.com/paydesk/mp-webhook-service/internal/config"
	"github.com/paydesk/mp-webhook-service/internal/service"
	"go.uber.org/zap"
)

func NewRouter(svc *service.WebhookService, rl config.RateLimitConfig, log *zap.SugaredLogger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware(log))
	r.Use(RateLimitMiddleware(rl.RPS, rl.Burst))
	RegisterHandlers(r, svc)
	return r
}
