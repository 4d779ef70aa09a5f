package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"tillpos/internal/apierror"
	"tillpos/internal/dto"
	"tillpos/internal/guard"
	"tillpos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegisterService(regs *fakeRegisterRepo, entries *fakeEntryRepo) RegisterService {
	return NewRegisterService(regs, entries, nil, "ARS", "")
}

func TestOpenRegister(t *testing.T) {
	regs, entries := newFakeRegisterRepo(), newFakeEntryRepo()
	svc := newRegisterService(regs, entries)

	resp, err := svc.Open(context.Background(), uuid.New(), dto.OpenRegisterRequest{
		InitialAmount: decimal.NewFromFloat(100.00),
	})
	require.NoError(t, err)
	assert.Equal(t, "open", resp.Status)
	assert.Equal(t, "100", resp.InitialAmount.String())
	assert.Equal(t, "ARS", resp.Currency)

	// Opening writes the initial float as the register's first ledger entry.
	require.Len(t, entries.entries, 1)
	first := entries.entries[0]
	assert.Equal(t, model.OpOpen, first.Operation)
	assert.Equal(t, model.MethodCash, first.Method)
	assert.Equal(t, int64(10000), first.AmountUnits)
}

func TestOpenRegisterZeroFloat(t *testing.T) {
	svc := newRegisterService(newFakeRegisterRepo(), newFakeEntryRepo())

	resp, err := svc.Open(context.Background(), uuid.New(), dto.OpenRegisterRequest{
		InitialAmount: decimal.Zero,
	})
	require.NoError(t, err)
	assert.Equal(t, "0", resp.InitialAmount.String())
}

func TestOpenRegisterRejectsSubCent(t *testing.T) {
	svc := newRegisterService(newFakeRegisterRepo(), newFakeEntryRepo())

	_, err := svc.Open(context.Background(), uuid.New(), dto.OpenRegisterRequest{
		InitialAmount: decimal.RequireFromString("10.005"),
	})
	assert.Equal(t, apierror.KindValidation, apierror.KindOf(err))
}

func TestOpenRegisterDoubleOpenConflict(t *testing.T) {
	svc := newRegisterService(newFakeRegisterRepo(), newFakeEntryRepo())

	_, err := svc.Open(context.Background(), uuid.New(), dto.OpenRegisterRequest{
		InitialAmount: decimal.NewFromFloat(100),
	})
	require.NoError(t, err)

	_, err = svc.Open(context.Background(), uuid.New(), dto.OpenRegisterRequest{
		InitialAmount: decimal.NewFromFloat(50),
	})
	assert.Equal(t, apierror.KindConflict, apierror.KindOf(err))
}

func TestCloseRegisterBalanced(t *testing.T) {
	regs, entries := newFakeRegisterRepo(), newFakeEntryRepo()
	svc := newRegisterService(regs, entries)
	entrySvc := NewEntryService(regs, entries, guard.NewMemoryGuard())
	operatorID := uuid.New()

	_, err := svc.Open(context.Background(), operatorID, dto.OpenRegisterRequest{
		InitialAmount: decimal.NewFromFloat(100.00),
	})
	require.NoError(t, err)

	_, err = entrySvc.RecordSale(context.Background(), operatorID, dto.SaleRequest{
		ReferenceID: "sale-1",
		Amount:      decimal.NewFromFloat(50.00),
		Method:      "cash",
	})
	require.NoError(t, err)

	// Counted exactly what the ledger expects: 100 + 50.
	resp, err := svc.Close(context.Background(), operatorID, dto.CloseRegisterRequest{
		CountedCash:  decimal.NewFromFloat(150.00),
		NextDayFloat: decimal.NewFromFloat(100.00),
	})
	require.NoError(t, err)
	assert.Equal(t, "closed", resp.Status)
	require.NotNil(t, resp.ExpectedAmount)
	assert.Equal(t, "150", resp.ExpectedAmount.String())
	assert.Equal(t, "150", resp.FinalAmount.String())
	assert.Equal(t, "0", resp.DifferenceAmount.String())
	require.NotNil(t, resp.ClosedAt)
}

func TestCloseRegisterShortage(t *testing.T) {
	regs, entries := newFakeRegisterRepo(), newFakeEntryRepo()
	svc := newRegisterService(regs, entries)
	operatorID := uuid.New()

	_, err := svc.Open(context.Background(), operatorID, dto.OpenRegisterRequest{
		InitialAmount: decimal.NewFromFloat(100.00),
	})
	require.NoError(t, err)

	// A mismatch closes fine; the difference is recorded, not rejected.
	resp, err := svc.Close(context.Background(), operatorID, dto.CloseRegisterRequest{
		CountedCash:  decimal.NewFromFloat(95.00),
		NextDayFloat: decimal.Zero,
	})
	require.NoError(t, err)
	assert.Equal(t, "-5", resp.DifferenceAmount.String())
}

func TestCloseWithoutOpenRegister(t *testing.T) {
	svc := newRegisterService(newFakeRegisterRepo(), newFakeEntryRepo())

	_, err := svc.Close(context.Background(), uuid.New(), dto.CloseRegisterRequest{
		CountedCash:  decimal.NewFromFloat(100),
		NextDayFloat: decimal.Zero,
	})
	assert.Equal(t, apierror.KindNotFound, apierror.KindOf(err))
}

func TestCloseWritesAuditEntry(t *testing.T) {
	regs, entries := newFakeRegisterRepo(), newFakeEntryRepo()
	svc := newRegisterService(regs, entries)
	operatorID := uuid.New()

	_, err := svc.Open(context.Background(), operatorID, dto.OpenRegisterRequest{
		InitialAmount: decimal.NewFromFloat(100.00),
	})
	require.NoError(t, err)

	_, err = svc.Close(context.Background(), operatorID, dto.CloseRegisterRequest{
		CountedCash:  decimal.NewFromFloat(98.00),
		NextDayFloat: decimal.Zero,
	})
	require.NoError(t, err)

	last := entries.entries[len(entries.entries)-1]
	assert.Equal(t, model.OpClose, last.Operation)
	assert.Equal(t, model.CategoryAdjustment, last.Category)
	// The close entry records the counted amount, not the expected one.
	assert.Equal(t, int64(9800), last.AmountUnits)
}

func TestCurrentBalanceStoreFailure(t *testing.T) {
	regs := newFakeRegisterRepo()
	regs.findOpenErr = errors.New("connection refused")
	svc := newRegisterService(regs, newFakeEntryRepo())

	// A failing store must surface, not read as an empty drawer.
	resp, err := svc.CurrentBalance(context.Background())
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.Equal(t, apierror.Kind(0), apierror.KindOf(err))
}

func TestCloseStoreFailure(t *testing.T) {
	regs := newFakeRegisterRepo()
	regs.findOpenErr = errors.New("connection refused")
	svc := newRegisterService(regs, newFakeEntryRepo())

	_, err := svc.Close(context.Background(), uuid.New(), dto.CloseRegisterRequest{
		CountedCash:  decimal.NewFromFloat(100),
		NextDayFloat: decimal.Zero,
	})
	require.Error(t, err)
	assert.NotEqual(t, apierror.KindNotFound, apierror.KindOf(err))
}

func TestCurrentBalanceNoOpenRegister(t *testing.T) {
	svc := newRegisterService(newFakeRegisterRepo(), newFakeEntryRepo())

	resp, err := svc.CurrentBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0", resp.Total.String())
	assert.Equal(t, "ARS", resp.Currency)
}

func TestCurrentRegisterWithBalance(t *testing.T) {
	regs, entries := newFakeRegisterRepo(), newFakeEntryRepo()
	svc := newRegisterService(regs, entries)
	entrySvc := NewEntryService(regs, entries, guard.NewMemoryGuard())
	operatorID := uuid.New()

	_, err := svc.Open(context.Background(), operatorID, dto.OpenRegisterRequest{
		InitialAmount: decimal.NewFromFloat(100.00),
	})
	require.NoError(t, err)

	_, err = entrySvc.RecordSale(context.Background(), operatorID, dto.SaleRequest{
		ReferenceID: "sale-cc",
		Amount:      decimal.NewFromFloat(30.00),
		Method:      "credit_card",
	})
	require.NoError(t, err)

	resp, err := svc.Current(context.Background())
	require.NoError(t, err)
	require.NotNil(t, resp.Balance)
	assert.Equal(t, "100", resp.Balance.Cash.String())
	assert.Equal(t, "30", resp.Balance.CreditCard.String())
	assert.Equal(t, "130", resp.Balance.Total.String())
}

func TestHistoryWindow(t *testing.T) {
	regs, entries := newFakeRegisterRepo(), newFakeEntryRepo()
	svc := newRegisterService(regs, entries)
	operatorID := uuid.New()

	_, err := svc.Open(context.Background(), operatorID, dto.OpenRegisterRequest{
		InitialAmount: decimal.NewFromFloat(100),
	})
	require.NoError(t, err)
	_, err = svc.Close(context.Background(), operatorID, dto.CloseRegisterRequest{
		CountedCash: decimal.NewFromFloat(100), NextDayFloat: decimal.Zero,
	})
	require.NoError(t, err)

	now := time.Now().UTC()
	resp, err := svc.History(context.Background(), now.AddDate(0, 0, -1), now.AddDate(0, 0, 1), 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.Total)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "closed", resp.Data[0].Status)

	// Window before the register existed.
	resp, err = svc.History(context.Background(), now.AddDate(0, 0, -10), now.AddDate(0, 0, -5), 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(0), resp.Total)
}

func TestEntriesUnknownRegister(t *testing.T) {
	svc := newRegisterService(newFakeRegisterRepo(), newFakeEntryRepo())

	_, err := svc.Entries(context.Background(), uuid.New())
	assert.Equal(t, apierror.KindNotFound, apierror.KindOf(err))
}
