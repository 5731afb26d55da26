package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) GetPayout(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	payout, err := s.payoutRepo.FindByID(c.Request.Context(), s.db, id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, payout)
}
