package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"palmpay/internal/core/domain"
	"palmpay/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AuditLog creates an audit middleware that logs successful write operations.
// Handlers may set CtxResourceID to name the affected record.
func AuditLog(auditSvc ports.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Status() < 200 || c.Writer.Status() >= 300 {
			return
		}
		if c.Request.Method != http.MethodPost && c.Request.Method != http.MethodPut {
			return
		}

		action, resourceType := mapPathToAction(c.FullPath(), c.Request.Method)
		if action == "" {
			return
		}

		var identityID *uuid.UUID
		if id, ok := IdentityID(c); ok {
			identityID = &id
		}

		details, _ := json.Marshal(map[string]any{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"request_id": c.GetString(CtxRequestID),
		})

		auditSvc.Log(c.Request.Context(), &domain.AuditLog{
			ID:           uuid.New(),
			IdentityID:   identityID,
			Action:       action,
			ResourceType: resourceType,
			ResourceID:   c.GetString(CtxResourceID),
			IPAddress:    c.ClientIP(),
			Details:      string(details),
			CreatedAt:    time.Now(),
		})
	}
}

func mapPathToAction(path, method string) (domain.AuditAction, string) {
	if method != http.MethodPost {
		return "", ""
	}
	switch path {
	case "/api/v1/palm/enroll":
		return domain.AuditActionEnroll, "identity"
	case "/api/v1/payments/scan-pay":
		return domain.AuditActionScanPay, "transaction"
	case "/api/v1/mall/scan-pay":
		return domain.AuditActionMallPay, "transaction"
	case "/api/v1/wallets/topup":
		return domain.AuditActionTopup, "transaction"
	case "/api/v1/wallets/pin":
		return domain.AuditActionSetPIN, "wallet"
	case "/api/v1/wallets/pin/verify":
		return domain.AuditActionVerifyPIN, "wallet"
	case "/api/v1/wallets/webhook":
		return domain.AuditActionGatewayEvt, "gateway_event"
	}
	return "", ""
}
