package engine

import (
	"context"
	"errors"
	"time"

	"github.com/roach88/normativ/internal/store"
)

// DeleteNormative removes a normative together with its groups, conditions,
// and their additional requirements, in one transaction.
//
// Returns a NOT_FOUND error when the normative does not exist and a
// CONFLICT error when a row outside that set still references it.
func (e *Engine) DeleteNormative(ctx context.Context, normativeID int64) (*DeleteReport, error) {
	requestID := e.ids.Generate()
	start := time.Now()

	report, err := e.deleteNormative(ctx, requestID, normativeID)
	if err != nil {
		ee := classify("delete", requestID, err)
		e.metrics.observeRequest("delete", ee, time.Since(start))
		e.logger.Error("delete failed",
			"request_id", requestID,
			"normative_id", normativeID,
			"code", ee.Code,
			"error", ee,
		)
		return nil, ee
	}

	e.metrics.observeRequest("delete", nil, time.Since(start))
	e.logger.Info("normative deleted",
		"request_id", requestID,
		"normative_id", normativeID,
		"conditions", report.Deleted.Conditions,
		"groups", report.Deleted.Groups,
	)
	return report, nil
}

func (e *Engine) deleteNormative(ctx context.Context, requestID string, normativeID int64) (*DeleteReport, error) {
	if normativeID <= 0 {
		return nil, newNotFoundError(normativeID)
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	var counts store.DeleteCounts
	err := e.inTx(ctx, "delete", requestID, func(tx *store.Tx) error {
		var err error
		counts, err = tx.DeleteNormative(ctx, normativeID)
		return err
	})
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound):
		return nil, newNotFoundError(normativeID)
	case store.IsForeignKeyViolation(err):
		return nil, newReferencedError(normativeID, err)
	default:
		return nil, err
	}

	return &DeleteReport{
		RequestID:   requestID,
		NormativeID: normativeID,
		Deleted:     counts,
	}, nil
}
