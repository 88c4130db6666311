package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/paydesk/mp-webhook-service/internal/service"
)

func RegisterHandlers(r *gin.Engine, svc *service.WebhookService) {
	wh := r.Group("/webhook")
	{
		wh.POST("/mp/:empresaId", webhookHandler(svc))
		wh.GET("/resultados/:empresaId/:orderId", resultadoHandler(svc))
	}
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

func webhookHandler(svc *service.WebhookService) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "cuerpo ilegible"})
			return
		}
		res, err := svc.Ingest(c, c.Param("empresaId"), body, c.Request.URL.Query())
		if err != nil {
			if errors.Is(err, service.ErrInvalidPayload) {
				c.JSON(http.StatusBadRequest, gin.H{"detail": "JSON inválido"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"detail": "Error interno de base de datos"})
			return
		}
		if res.Status == service.StatusDuplicado {
			c.JSON(http.StatusOK, gin.H{"status": res.Status, "orden_id": nullable(res.OrdenID)})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":    res.Status,
			"empresa":   res.Empresa,
			"evento_id": nullable(res.EventoID),
			"orden_id":  nullable(res.OrdenID),
		})
	}
}

func resultadoHandler(svc *service.WebhookService) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := svc.Resultado(c, c.Param("empresaId"), c.Param("orderId"))
		if err != nil {
			switch {
			case errors.Is(err, service.ErrEmpresaNotFound):
				c.JSON(http.StatusNotFound, gin.H{"detail": "Empresa no encontrada"})
			case errors.Is(err, service.ErrOrdenNotFound):
				c.JSON(http.StatusNotFound, gin.H{"detail": "Orden no encontrada"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"detail": "Error interno de base de datos"})
			}
			return
		}
		c.Data(http.StatusOK, "application/json", raw)
	}
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
