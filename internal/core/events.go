package core

import (
	"context"

	"hsecore/pkg/domain"
)

// EventPublisher delivers committed stock movements to downstream consumers.
// Publishing happens after commit; failures are logged and never undo the operation.
type EventPublisher interface {
	PublishStockMovements(ctx context.Context, movements []domain.StockMovement) error
}

type noopEventPublisher struct{}

func (noopEventPublisher) PublishStockMovements(context.Context, []domain.StockMovement) error {
	return nil
}

// stockMovements resolves net stock lines against the transaction state so
// each movement carries the resulting stock. Lines for unknown medicines are dropped.
func stockMovements(view TransactionView, lines []domain.StockLine, visitID string, reason Action, at Clock) []domain.StockMovement {
	if len(lines) == 0 {
		return nil
	}
	now := at.Now()
	out := make([]domain.StockMovement, 0, len(lines))
	for _, line := range lines {
		med, ok := view.FindMedicine(line.MedicineID)
		if !ok {
			continue
		}
		out = append(out, domain.StockMovement{
			MedicineID: line.MedicineID,
			Delta:      line.Delta,
			Stock:      med.Stock,
			VisitID:    visitID,
			Reason:     reason,
			OccurredAt: now,
		})
	}
	return out
}

func (s *Service) publishStockMovements(ctx context.Context, movements []domain.StockMovement) {
	if len(movements) == 0 {
		return
	}
	if err := s.events.PublishStockMovements(ctx, movements); err != nil {
		s.logger.Error("publish stock movements", "count", len(movements), "error", err)
	}
}
