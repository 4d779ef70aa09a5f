package handler

import (
	"net/http"

	"tillpos/internal/dto"
	"tillpos/internal/service"

	"github.com/gin-gonic/gin"
)

type EntryHandler struct {
	svc    service.EntryService
	cancel service.CancelService
}

func NewEntryHandler(svc service.EntryService, cancel service.CancelService) *EntryHandler {
	return &EntryHandler{svc: svc, cancel: cancel}
}

// Sale records a sale against the open register. Duplicate submissions for
// the same reference id return the already-recorded entry.
func (h *EntryHandler) Sale(c *gin.Context) {
	var req dto.SaleRequest
	if !bindAndValidate(c, &req) {
		return
	}
	operatorID, ok := operatorFromClaims(c)
	if !ok {
		return
	}
	resp, err := h.svc.RecordSale(c.Request.Context(), operatorID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Deposit records money put into the register outside a sale.
func (h *EntryHandler) Deposit(c *gin.Context) {
	var req dto.DepositRequest
	if !bindAndValidate(c, &req) {
		return
	}
	operatorID, ok := operatorFromClaims(c)
	if !ok {
		return
	}
	resp, err := h.svc.AddDeposit(c.Request.Context(), operatorID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Withdrawal records cash taken out of the drawer.
func (h *EntryHandler) Withdrawal(c *gin.Context) {
	var req dto.WithdrawalRequest
	if !bindAndValidate(c, &req) {
		return
	}
	operatorID, ok := operatorFromClaims(c)
	if !ok {
		return
	}
	resp, err := h.svc.AddWithdrawal(c.Request.Context(), operatorID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Payment records an outgoing payment (supplier, expense).
func (h *EntryHandler) Payment(c *gin.Context) {
	var req dto.PaymentRequest
	if !bindAndValidate(c, &req) {
		return
	}
	operatorID, ok := operatorFromClaims(c)
	if !ok {
		return
	}
	resp, err := h.svc.AddPayment(c.Request.Context(), operatorID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Cancel voids a sale or payment via a supervisor-authorized compensating
// refund. The original entry is left untouched.
func (h *EntryHandler) Cancel(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req dto.CancelEntryRequest
	if !bindAndValidate(c, &req) {
		return
	}
	operatorID, ok := operatorFromClaims(c)
	if !ok {
		return
	}
	resp, err := h.cancel.Cancel(c.Request.Context(), operatorID, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}
