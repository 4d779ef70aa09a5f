package handler

import (
	"net/http"
	"strconv"
	"time"

	"tillpos/internal/apierror"
	"tillpos/internal/dto"
	"tillpos/internal/middleware"
	"tillpos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type RegisterHandler struct {
	svc       service.RegisterService
	reconcile service.ReconcileService
}

func NewRegisterHandler(svc service.RegisterService, reconcile service.ReconcileService) *RegisterHandler {
	return &RegisterHandler{svc: svc, reconcile: reconcile}
}

// Open starts a new till session with the declared opening float.
func (h *RegisterHandler) Open(c *gin.Context) {
	var req dto.OpenRegisterRequest
	if !bindAndValidate(c, &req) {
		return
	}
	operatorID, ok := operatorFromClaims(c)
	if !ok {
		return
	}
	resp, err := h.svc.Open(c.Request.Context(), operatorID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Close reconciles and closes the open register.
func (h *RegisterHandler) Close(c *gin.Context) {
	var req dto.CloseRegisterRequest
	if !bindAndValidate(c, &req) {
		return
	}
	operatorID, ok := operatorFromClaims(c)
	if !ok {
		return
	}
	resp, err := h.svc.Close(c.Request.Context(), operatorID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Current returns the open register with its live balance.
func (h *RegisterHandler) Current(c *gin.Context) {
	resp, err := h.svc.Current(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Balance returns the open register's balance by payment method.
// Responds with a zero balance when no register is open.
func (h *RegisterHandler) Balance(c *gin.Context) {
	resp, err := h.svc.CurrentBalance(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// History returns a paginated list of registers in a date window.
func (h *RegisterHandler) History(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	from, to, ok := parseWindow(c)
	if !ok {
		return
	}
	resp, err := h.svc.History(c.Request.Context(), from, to, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Entries returns the full ordered ledger of one register.
func (h *RegisterHandler) Entries(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Entries(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// Movements returns inflow/outflow totals per category for one register.
func (h *RegisterHandler) Movements(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Movements(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Amend revises the counted figures of a closed register.
func (h *RegisterHandler) Amend(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req dto.AmendRegisterRequest
	if !bindAndValidate(c, &req) {
		return
	}
	operatorID, ok := operatorFromClaims(c)
	if !ok {
		return
	}
	resp, err := h.reconcile.AmendClosed(c.Request.Context(), operatorID, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Retroactive backfills a ledger entry that was missed during the session.
func (h *RegisterHandler) Retroactive(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req dto.RetroactiveEntryRequest
	if !bindAndValidate(c, &req) {
		return
	}
	operatorID, ok := operatorFromClaims(c)
	if !ok {
		return
	}
	resp, err := h.reconcile.AddRetroactive(c.Request.Context(), operatorID, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// DayBalance reports the activity balance for one calendar day across
// registers. Lifecycle entries are excluded.
func (h *RegisterHandler) DayBalance(c *gin.Context) {
	day, ok := parseDay(c)
	if !ok {
		return
	}
	resp, err := h.svc.DayBalance(c.Request.Context(), day)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// DayMovements reports inflow/outflow totals per category for one calendar day.
func (h *RegisterHandler) DayMovements(c *gin.Context) {
	day, ok := parseDay(c)
	if !ok {
		return
	}
	resp, err := h.svc.DayMovements(c.Request.Context(), day)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ── Request parsing helpers ─────────────────────────────────────────────────

func operatorFromClaims(c *gin.Context) (uuid.UUID, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, apierror.New("authentication required"))
		return uuid.Nil, false
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, apierror.New("malformed token subject"))
		return uuid.Nil, false
	}
	return id, true
}

func pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid id"))
		return uuid.Nil, false
	}
	return id, true
}

// parseWindow reads from/to query params (YYYY-MM-DD). Defaults: last 30 days.
func parseWindow(c *gin.Context) (time.Time, time.Time, bool) {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -30)
	to := now

	if v := c.Query("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("from must be YYYY-MM-DD"))
			return time.Time{}, time.Time{}, false
		}
		from = t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("to must be YYYY-MM-DD"))
			return time.Time{}, time.Time{}, false
		}
		// inclusive end of day
		to = t.AddDate(0, 0, 1)
	}
	if to.Before(from) {
		c.JSON(http.StatusBadRequest, apierror.New("to must not precede from"))
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

func parseDay(c *gin.Context) (time.Time, bool) {
	v := c.DefaultQuery("date", time.Now().UTC().Format("2006-01-02"))
	day, err := time.Parse("2006-01-02", v)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("date must be YYYY-MM-DD"))
		return time.Time{}, false
	}
	return day, true
}
