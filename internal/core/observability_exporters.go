package core

import (
	"context"
	"encoding/json"
	"expvar"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"
)

var expvarSeq uint64

// OperationStats aggregates outcomes of one service operation. Entity and
// Action are set for operations that mutate records.
type OperationStats struct {
	Entity  EntityType `json:"entity,omitempty"`
	Action  Action     `json:"action,omitempty"`
	Success int64      `json:"success"`
	Error   int64      `json:"error"`
	TotalMS float64    `json:"total_ms"`
}

// ExpvarMetricsSnapshot is a copy of the recorder state. Mutations counts
// committed creates, updates and deletes per entity type.
type ExpvarMetricsSnapshot struct {
	Operations map[string]OperationStats `json:"operations"`
	Mutations  map[EntityType]int64      `json:"mutations"`
	RecordedAt time.Time                 `json:"recorded_at"`
}

// ExpvarMetricsRecorder publishes per-operation outcomes and per-entity
// mutation counts under one expvar name.
type ExpvarMetricsRecorder struct {
	name       string
	mu         sync.Mutex
	operations map[string]OperationStats
	mutations  map[EntityType]int64
}

// NewExpvarMetricsRecorder publishes a recorder under name, or under a
// generated hse_service_metrics_<n> name when name is empty.
func NewExpvarMetricsRecorder(name string) *ExpvarMetricsRecorder {
	if name == "" {
		name = fmt.Sprintf("hse_service_metrics_%d", atomic.AddUint64(&expvarSeq, 1))
	}
	rec := &ExpvarMetricsRecorder{
		name:       name,
		operations: make(map[string]OperationStats),
		mutations:  make(map[EntityType]int64),
	}
	expvar.Publish(name, expvar.Func(func() any { return rec.Snapshot() }))
	return rec
}

// Name returns the expvar export name.
func (r *ExpvarMetricsRecorder) Name() string { return r.name }

// Snapshot returns a copy of the aggregated metrics.
func (r *ExpvarMetricsRecorder) Snapshot() ExpvarMetricsSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	ops := make(map[string]OperationStats, len(r.operations))
	for op, stats := range r.operations {
		ops[op] = stats
	}
	mutations := make(map[EntityType]int64, len(r.mutations))
	for entity, n := range r.mutations {
		mutations[entity] = n
	}
	return ExpvarMetricsSnapshot{Operations: ops, Mutations: mutations, RecordedAt: time.Now().UTC()}
}

// Observe implements MetricsRecorder.
func (r *ExpvarMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	meta, mutating := auditedOperations[operation]

	r.mu.Lock()
	defer r.mu.Unlock()
	stats := r.operations[operation]
	stats.Entity, stats.Action = meta.entity, meta.action
	stats.TotalMS += float64(duration) / float64(time.Millisecond)
	if !success {
		stats.Error++
		r.operations[operation] = stats
		return
	}
	stats.Success++
	r.operations[operation] = stats
	if mutating {
		r.mutations[meta.entity]++
	}
}

// JSONTraceEntry is one finished span. EntityID is the record the operation
// touched, when known.
type JSONTraceEntry struct {
	Operation  string     `json:"operation"`
	Entity     EntityType `json:"entity,omitempty"`
	Action     Action     `json:"action,omitempty"`
	EntityID   string     `json:"entity_id,omitempty"`
	Status     string     `json:"status"`
	DurationMS float64    `json:"duration_ms"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	EndedAt    time.Time  `json:"ended_at"`
}

// JSONTraceTracer writes finished spans as JSON lines and keeps them for
// inspection.
type JSONTraceTracer struct {
	mu      sync.Mutex
	entries []JSONTraceEntry
	enc     *json.Encoder
}

// NewJSONTracer returns a tracer writing to w. A nil w only retains entries.
func NewJSONTracer(w io.Writer) *JSONTraceTracer {
	t := &JSONTraceTracer{}
	if w != nil {
		t.enc = json.NewEncoder(w)
	}
	return t
}

// Entries returns a copy of the finished spans.
func (t *JSONTraceTracer) Entries() []JSONTraceEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]JSONTraceEntry(nil), t.entries...)
}

// Start implements Tracer.
func (t *JSONTraceTracer) Start(ctx context.Context, operation string) (context.Context, TraceSpan) {
	meta := auditedOperations[operation]
	return ctx, &jsonTraceSpan{
		tracer:  t,
		entry:   JSONTraceEntry{Operation: operation, Entity: meta.entity, Action: meta.action},
		started: time.Now().UTC(),
	}
}

func (t *JSONTraceTracer) emit(entry JSONTraceEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, entry)
	if t.enc != nil {
		_ = t.enc.Encode(entry)
	}
}

type jsonTraceSpan struct {
	tracer  *JSONTraceTracer
	entry   JSONTraceEntry
	started time.Time
}

// SetEntityID implements entitySpan.
func (s *jsonTraceSpan) SetEntityID(id string) { s.entry.EntityID = id }

func (s *jsonTraceSpan) End(err error) {
	ended := time.Now().UTC()
	entry := s.entry
	entry.Status = "success"
	if err != nil {
		entry.Status = "error"
		entry.Error = err.Error()
	}
	entry.StartedAt = s.started
	entry.EndedAt = ended
	entry.DurationMS = float64(ended.Sub(s.started)) / float64(time.Millisecond)
	s.tracer.emit(entry)
}
