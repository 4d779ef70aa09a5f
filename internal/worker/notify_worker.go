package worker

// notify_worker.go
// Processes back-office notification jobs from QueueNotify.
// Posts the closing summary of a register to the back-office API through the
// circuit breaker, so a downed back office never blocks the till.

import (
	"context"
	"encoding/json"

	"tillpos/internal/infra"

	"github.com/rs/zerolog/log"
)

// ClosingSummary is the job envelope sent to QueueNotify when a register
// closes. All amounts are minor units of Currency.
type ClosingSummary struct {
	RegisterID        string `json:"register_id"`
	ClosedAt          string `json:"closed_at"`
	Currency          string `json:"currency"`
	ExpectedUnits     int64  `json:"expected_units"`
	CountedUnits      int64  `json:"counted_units"`
	DifferenceUnits   int64  `json:"difference_units"`
	ClosingOperator   string `json:"closing_operator"`
	NextDayFloatUnits int64  `json:"next_day_float_units"`
}

type NotifyWorker struct {
	client *infra.BackofficeClient
	cb     *infra.CircuitBreaker
}

func NewNotifyWorker(client *infra.BackofficeClient, cb *infra.CircuitBreaker) *NotifyWorker {
	return &NotifyWorker{client: client, cb: cb}
}

// Process posts one closing summary to the back office. The returned error
// drives the pool's retry/DLQ handling.
func (w *NotifyWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var summary ClosingSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		log.Error().Err(err).Msg("notify_worker: invalid payload")
		return nil // malformed payloads are not retryable
	}

	err := w.cb.Execute(func() error {
		return w.client.NotifyRegisterClosed(ctx, summary)
	})
	if err != nil {
		log.Warn().
			Err(err).
			Str("register_id", summary.RegisterID).
			Msg("notify_worker: back office notification failed")
		return err
	}

	log.Info().
		Str("register_id", summary.RegisterID).
		Int64("difference_units", summary.DifferenceUnits).
		Msg("notify_worker: closing summary delivered")
	return nil
}
