package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/partnerpay/internal/audit/domain"
	commissiondomain "github.com/smallbiznis/partnerpay/internal/commission/domain"
	"github.com/smallbiznis/partnerpay/internal/fxrate"
	invoicedomain "github.com/smallbiznis/partnerpay/internal/invoice/domain"
	partnerdomain "github.com/smallbiznis/partnerpay/internal/partner/domain"
	payoutdomain "github.com/smallbiznis/partnerpay/internal/payout/domain"
	programdomain "github.com/smallbiznis/partnerpay/internal/program/domain"
	rewarddomain "github.com/smallbiznis/partnerpay/internal/reward/domain"
	settlementdomain "github.com/smallbiznis/partnerpay/internal/settlement/domain"
	"gorm.io/gorm"
)

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
	ErrInternal       = errors.New("internal_error")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case err == nil:
		return http.StatusInternalServerError, errorPayload{
			Code:    "internal_error",
			Message: "internal server error",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Code:    "not_found",
			Message: "not found",
		}
	case isUnprocessableError(err):
		return http.StatusUnprocessableEntity, errorPayload{
			Code:    "unprocessable_entity",
			Message: err.Error(),
		}
	case isBadRequestError(err):
		return http.StatusBadRequest, errorPayload{
			Code:    "bad_request",
			Message: err.Error(),
		}
	case errors.Is(err, settlementdomain.ErrRailFailed):
		return http.StatusBadGateway, errorPayload{
			Code:    "settlement_failed",
			Message: "settlement could not complete",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Code:    "internal_error",
			Message: "internal server error",
		}
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, commissiondomain.ErrCommissionNotFound),
		errors.Is(err, payoutdomain.ErrPayoutNotFound),
		errors.Is(err, invoicedomain.ErrInvoiceNotFound),
		errors.Is(err, partnerdomain.ErrPartnerNotFound),
		errors.Is(err, programdomain.ErrProgramNotFound),
		errors.Is(err, programdomain.ErrEnrollmentNotFound),
		errors.Is(err, rewarddomain.ErrRewardNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isUnprocessableError(err error) bool {
	switch {
	case errors.Is(err, commissiondomain.ErrCommissionPaid),
		errors.Is(err, commissiondomain.ErrNotSaleCommission),
		errors.Is(err, payoutdomain.ErrPayoutCompleted):
		return true
	default:
		return false
	}
}

func isBadRequestError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, commissiondomain.ErrInvalidStatus),
		errors.Is(err, settlementdomain.ErrInvalidPayload),
		errors.Is(err, fxrate.ErrInvalidCurrency),
		errors.Is(err, auditdomain.ErrInvalidPageToken),
		errors.Is(err, auditdomain.ErrInvalidTimeRange),
		errors.Is(err, auditdomain.ErrInvalidAction):
		return true
	default:
		return false
	}
}
