package middleware

import (
	"net/http"

	"github.com/erp/fiscal/internal/domain/shared"
	"github.com/erp/fiscal/internal/infrastructure/auth"
	"github.com/erp/fiscal/internal/infrastructure/logger"
	"github.com/erp/fiscal/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Internal caller headers
const (
	APIKeyHeader    = "X-API-Key"
	TenantHeaderKey = "X-Tenant-ID"
)

// InternalSource is the actor source recorded for machine callers
const InternalSource = "internal-api"

// APIKeyAuth guards internal endpoints (billing bridge, external cron). The
// caller names the tenant in X-Tenant-ID and acts as a system actor.
func APIKeyAuth(verifier *auth.APIKeyVerifier, log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		requestID := c.GetString("request_id")
		if !verifier.Enabled() {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeUnavailable, "Internal API is disabled", requestID))
			return
		}
		if err := verifier.Verify(c.GetHeader(APIKeyHeader)); err != nil {
			log.Warn("Internal API key rejected", zap.String("path", c.Request.URL.Path), zap.String("client_ip", c.ClientIP()))
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeUnauthorized, "Invalid API key", requestID))
			return
		}

		tenantID, err := uuid.Parse(c.GetHeader(TenantHeaderKey))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeBadRequest, "X-Tenant-ID must be a UUID", requestID))
			return
		}

		actor := shared.SystemActor(tenantID, InternalSource)
		c.Set(ActorKey, actor)
		c.Set(TenantIDKey, tenantID.String())

		ctx := c.Request.Context()
		ctx, reqLogger := logger.WithActor(ctx, logger.FromContext(ctx), actor)
		c.Request = c.Request.WithContext(ctx)
		c.Set("logger", reqLogger)

		c.Next()
	}
}
