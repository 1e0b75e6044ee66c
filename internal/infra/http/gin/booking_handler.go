package ginserver

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/google/uuid"

	bookingapp "boxstand/internal/app/handlers/booking"
	domainbooking "boxstand/internal/domain/booking"
	domainboxes "boxstand/internal/domain/boxes"
	domainpayments "boxstand/internal/domain/payments"
	"boxstand/internal/domain/shared/daterange"
	"boxstand/internal/domain/shared/money"
	"boxstand/internal/infra/obs"
)

type BookingHandler struct {
	CreateHandler  *bookingapp.CreateBookingHandler
	CancelHandler  *bookingapp.CancelBookingHandler
	ReturnHandler  *bookingapp.ReturnBoxHandler
	PreviewHandler *bookingapp.PreviewRefundHandler
}

type createBookingRequest struct {
	BoxID      string    `json:"box_id" binding:"required"`
	StandID    string    `json:"stand_id" binding:"required"`
	Start      time.Time `json:"start" binding:"required"`
	End        time.Time `json:"end" binding:"required"`
	Amount     int64     `json:"amount" binding:"required"`
	Currency   string    `json:"currency" binding:"required"`
	ChargeRef  string    `json:"charge_ref"`
	CustomerID string    `json:"customer_id"`
}

func (h BookingHandler) Create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	customer := req.CustomerID
	if customer == "" {
		customer = requestingUser(c)
	}
	total, err := money.New(req.Amount, req.Currency)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.CreateHandler.Handle(c.Request.Context(), bookingapp.CreateBookingCommand{
		BookingID:  uuid.NewString(),
		BoxID:      req.BoxID,
		StandID:    req.StandID,
		CustomerID: customer,
		Start:      req.Start,
		End:        req.End,
		Total:      total,
		ChargeRef:  req.ChargeRef,
	})
	if err != nil {
		writeBookingError(c, err)
		return
	}
	obs.IncBookingCreated(result.Status)
	c.JSON(http.StatusCreated, result)
}

func (h BookingHandler) Cancel(c *gin.Context) {
	result, err := h.CancelHandler.Handle(c.Request.Context(), bookingapp.CancelBookingCommand{
		BookingID:        c.Param("id"),
		RequestingUserID: requestingUser(c),
	})
	if err != nil {
		var critical *bookingapp.CriticalInconsistencyError
		if errors.As(err, &critical) {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":     "refund issued but booking state failed to update; manual reconciliation required",
				"refund_id": critical.RefundID,
			})
			return
		}
		writeBookingError(c, err)
		return
	}
	switch {
	case result.AlreadyCancelled:
		obs.IncBookingCancelled("already_cancelled")
	case result.Reconciled:
		obs.IncBookingCancelled("reconciled")
	case result.Cancelled:
		obs.IncBookingCancelled("cancelled")
		if result.Refund.IsPositive() {
			obs.IncRefundIssued(strconv.Itoa(result.Percentage))
		}
	default:
		obs.IncBookingCancelled("refused")
	}
	c.JSON(http.StatusOK, result)
}

type returnBoxRequest struct {
	ReturnedAt time.Time `json:"returned_at"`
}

func (h BookingHandler) Return(c *gin.Context) {
	// Body is optional; an empty one means "returned now".
	var req returnBoxRequest
	_ = c.ShouldBindJSON(&req)
	result, err := h.ReturnHandler.Handle(c.Request.Context(), bookingapp.ReturnBoxCommand{
		BookingID:  c.Param("id"),
		ReturnedAt: req.ReturnedAt,
	})
	if err != nil {
		writeBookingError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) RefundPreview(c *gin.Context) {
	result, err := h.PreviewHandler.Handle(c.Request.Context(), bookingapp.PreviewRefundQuery{
		BookingID:        c.Param("id"),
		RequestingUserID: requestingUser(c),
	})
	if err != nil {
		writeBookingError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// requestingUser resolves the caller identity. Authentication itself lives
// in the gateway; this service trusts the forwarded header.
func requestingUser(c *gin.Context) string {
	return c.GetHeader("X-User-ID")
}

func writeBookingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domainbooking.ErrBookingNotFound),
		errors.Is(err, domainboxes.ErrBoxNotFound),
		errors.Is(err, domainpayments.ErrPaymentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domainpayments.ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, bookingapp.ErrBoxUnavailable):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, daterange.ErrInvalidRange),
		errors.Is(err, domainbooking.ErrStartInPast),
		errors.Is(err, domainbooking.ErrCustomerMissing),
		errors.Is(err, domainbooking.ErrInvalidState),
		errors.Is(err, bookingapp.ErrBoxInactive):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

var _ BookingHTTP = BookingHandler{}
