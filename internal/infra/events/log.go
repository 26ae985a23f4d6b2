package events

import (
	"context"

	"hsecore/pkg/domain"
)

// LogPublisher writes each movement as a structured log line.
type LogPublisher struct {
	logger Logger
}

type discard struct{}

func (discard) Info(string, ...any) {}

// NewLogPublisher returns a publisher logging through logger. A nil logger discards.
func NewLogPublisher(logger Logger) *LogPublisher {
	if logger == nil {
		logger = discard{}
	}
	return &LogPublisher{logger: logger}
}

// PublishStockMovements implements Publisher.
func (p *LogPublisher) PublishStockMovements(_ context.Context, movements []domain.StockMovement) error {
	for _, m := range movements {
		p.logger.Info("stock movement",
			"medicine_id", m.MedicineID,
			"delta", m.Delta,
			"stock", m.Stock,
			"visit_id", m.VisitID,
			"reason", string(m.Reason),
		)
	}
	return nil
}

// Close implements Publisher.
func (p *LogPublisher) Close() error { return nil }
