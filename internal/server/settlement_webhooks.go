package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	settlementdomain "github.com/smallbiznis/partnerpay/internal/settlement/domain"
	"go.uber.org/zap"
)

func (s *Server) HandleSettlementWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if err := s.verifier.Verify(payload, c.Request.Header); err != nil {
		s.log.Warn("rejected settlement trigger with bad signature")
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Error: errorPayload{
			Code:    "invalid_signature",
			Message: "invalid signature",
		}})
		return
	}

	var notification settlementdomain.Notification
	if err := json.Unmarshal(payload, &notification); err != nil || notification.InvoiceID == 0 || notification.ChargeID == "" {
		AbortWithError(c, settlementdomain.ErrInvalidPayload)
		return
	}

	if err := s.dispatcher.Dispatch(c.Request.Context(), notification); err != nil {
		s.log.Warn("settlement dispatch failed",
			zap.String("invoice_id", notification.InvoiceID.String()),
			zap.Error(err),
		)
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
