package core

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"hsecore/pkg/domain"
)

// fixedNow is 1403/07/01 in Tehran.
var fixedNow = time.Date(2024, time.September, 22, 9, 0, 0, 0, time.UTC)

type captureAuditRecorder struct {
	entries []AuditEntry
}

func (c *captureAuditRecorder) Record(_ context.Context, entry AuditEntry) {
	c.entries = append(c.entries, entry)
}

func (c *captureAuditRecorder) has(op string, status AuditStatus, predicate func(AuditEntry) bool) bool {
	for _, entry := range c.entries {
		if entry.Operation == op && entry.Status == status {
			if predicate == nil || predicate(entry) {
				return true
			}
		}
	}
	return false
}

type metricsCall struct {
	op       string
	success  bool
	duration time.Duration
}

type captureMetricsRecorder struct {
	calls []metricsCall
}

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, duration time.Duration) {
	c.calls = append(c.calls, metricsCall{op: op, success: success, duration: duration})
}

func (c *captureMetricsRecorder) has(op string, success bool) bool {
	for _, call := range c.calls {
		if call.op == op && call.success == success {
			return true
		}
	}
	return false
}

type spanRecord struct {
	op  string
	err error
}

type captureTracer struct {
	started []string
	ended   []spanRecord
}

func (c *captureTracer) Start(ctx context.Context, op string) (context.Context, TraceSpan) {
	c.started = append(c.started, op)
	return ctx, &captureSpan{tracer: c, op: op}
}

func (c *captureTracer) has(op string, success bool) bool {
	for _, record := range c.ended {
		if record.op == op && (record.err == nil) == success {
			return true
		}
	}
	return false
}

type captureSpan struct {
	tracer *captureTracer
	op     string
}

func (s *captureSpan) End(err error) {
	s.tracer.ended = append(s.tracer.ended, spanRecord{op: s.op, err: err})
}

type logEntry struct {
	level string
	msg   string
	args  []any
}

type captureLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *captureLogger) add(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, args: args})
}

func (l *captureLogger) Debug(msg string, args ...any) { l.add("debug", msg, args) }
func (l *captureLogger) Info(msg string, args ...any)  { l.add("info", msg, args) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.add("warn", msg, args) }
func (l *captureLogger) Error(msg string, args ...any) { l.add("error", msg, args) }

func (l *captureLogger) has(level, msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.entries {
		if e.level == level && e.msg == msg {
			return true
		}
	}
	return false
}

type capturePublisher struct {
	batches [][]domain.StockMovement
	err     error
}

func (c *capturePublisher) PublishStockMovements(_ context.Context, movements []domain.StockMovement) error {
	c.batches = append(c.batches, movements)
	return c.err
}

func fixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}

// newSeededService returns an in-memory service with the default rules,
// a fixed clock and the seed data installed.
func newSeededService(t *testing.T, opts ...ServiceOption) *Service {
	t.Helper()
	opts = append([]ServiceOption{WithClock(fixedClock(fixedNow))}, opts...)
	svc := NewInMemoryService(nil, opts...)
	if _, err := svc.Seed(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return svc
}

func stockOf(t *testing.T, svc *Service, id string) int {
	t.Helper()
	m, err := svc.GetMedicine(context.Background(), id)
	if err != nil {
		t.Fatalf("get medicine %s: %v", id, err)
	}
	return m.Stock
}

func complexVisit(personnelID string, lines ...domain.PrescribedMedication) VisitRecord {
	return VisitRecord{
		VisitDate:     "1403/07/01 10:30",
		Reason:        "headache",
		Diagnosis:     "tension",
		PatientType:   domain.PatientComplex,
		PersonnelID:   personnelID,
		ActionResult:  domain.ActionReturnToWork,
		Prescriptions: lines,
	}
}

func rx(medicineID string, qty int) domain.PrescribedMedication {
	return domain.PrescribedMedication{MedicineID: medicineID, Quantity: qty}
}

func ids[T any](items []T, id func(T) string) string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, id(item))
	}
	return strings.Join(out, ",")
}
