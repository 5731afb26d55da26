package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	commissiondomain "github.com/smallbiznis/partnerpay/internal/commission/domain"
)

type updateCommissionRequest struct {
	Amount       *int64  `json:"amount"`
	ModifyAmount *int64  `json:"modifyAmount"`
	Currency     string  `json:"currency"`
	Status       *string `json:"status"`
}

func (s *Server) GetCommission(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	commission, err := s.commissionSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, commission)
}

func (s *Server) UpdateCommission(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	var req updateCommissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	update := commissiondomain.UpdateCommissionRequest{
		ID:           id,
		Amount:       req.Amount,
		ModifyAmount: req.ModifyAmount,
		Currency:     req.Currency,
	}
	if req.Status != nil {
		status := commissiondomain.CommissionStatus(strings.TrimSpace(*req.Status))
		update.Status = &status
	}

	commission, err := s.commissionSvc.Update(c.Request.Context(), update)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, commission)
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, ErrInvalidRequest
	}
	return id, nil
}
