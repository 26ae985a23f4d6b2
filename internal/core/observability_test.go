package core

import (
	"bytes"
	"context"
	"errors"
	"expvar"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"hsecore/pkg/domain"
)

func TestServiceObservabilityAcrossOperations(t *testing.T) {
	ctx := context.Background()
	audit := &captureAuditRecorder{}
	metrics := &captureMetricsRecorder{}
	tracer := &captureTracer{}
	svc := newSeededService(t, WithAuditRecorder(audit), WithMetricsRecorder(metrics), WithTracer(tracer))

	med, _, err := svc.CreateMedicine(ctx, Medicine{Name: "Ors", Type: "powder", Stock: 30})
	if err != nil {
		t.Fatalf("create medicine: %v", err)
	}
	if !audit.has("create_medicine", AuditStatusSuccess, func(e AuditEntry) bool {
		return e.EntityID == med.ID && e.Entity == domain.EntityMedicine && e.Action == ActionCreate && e.Timestamp.Equal(fixedNow)
	}) {
		t.Fatalf("expected audit entry for create_medicine with generated id")
	}

	visit, _, err := svc.CreateVisitRecord(ctx, complexVisit("p2", rx(med.ID, 2)))
	if err != nil {
		t.Fatalf("create visit: %v", err)
	}
	if _, _, err := svc.UpdateVisitRecord(ctx, visit.ID, func(v *VisitRecord) error {
		v.Diagnosis = "dehydration"
		return nil
	}); err != nil {
		t.Fatalf("update visit: %v", err)
	}
	if _, err := svc.DeleteVisitRecord(ctx, visit.ID); err != nil {
		t.Fatalf("delete visit: %v", err)
	}
	if _, err := svc.DeleteVisitRecord(ctx, "missing"); err == nil {
		t.Fatalf("expected delete of missing visit to fail")
	}

	for _, op := range []string{"create_medicine", "create_visit_record", "update_visit_record", "delete_visit_record"} {
		if !metrics.has(op, true) {
			t.Fatalf("expected metrics success entry for %s", op)
		}
		if !tracer.has(op, true) {
			t.Fatalf("expected finished span for %s", op)
		}
		if !audit.has(op, AuditStatusSuccess, nil) {
			t.Fatalf("expected audit success entry for %s", op)
		}
	}
	if !audit.has("delete_visit_record", AuditStatusError, func(e AuditEntry) bool { return e.EntityID == "missing" && e.Error != "" }) {
		t.Fatalf("expected audit error entry for missing visit")
	}
	if !metrics.has("delete_visit_record", false) || !tracer.has("delete_visit_record", false) {
		t.Fatalf("expected failed delete to be measured and traced")
	}

	if _, _, err := svc.CreateMedicine(ctx, Medicine{}); err == nil {
		t.Fatalf("expected validation failure")
	}
	if !metrics.has("create_medicine", false) || !tracer.has("create_medicine", false) {
		t.Fatalf("expected rejected create to be measured and traced")
	}
}

func TestSeedIsNotAudited(t *testing.T) {
	audit := &captureAuditRecorder{}
	svc := newSeededService(t, WithAuditRecorder(audit))
	if len(audit.entries) != 0 {
		t.Fatalf("expected seed to skip audit, got %+v", audit.entries)
	}
	if _, err := svc.Seed(context.Background()); err != nil {
		t.Fatalf("reseed: %v", err)
	}
	users, _ := svc.ListUsers(context.Background())
	if len(users) != 5 {
		t.Fatalf("expected reseed to be idempotent, got %d users", len(users))
	}
}

func TestRunLogsFailures(t *testing.T) {
	logger := &captureLogger{}
	svc := newSeededService(t, WithLogger(logger))
	if _, err := svc.DeleteChecklist(context.Background(), "missing"); err == nil {
		t.Fatalf("expected error")
	}
	if !logger.has("error", "operation failed") {
		t.Fatalf("expected failure to be logged")
	}
	if _, _, err := svc.CreateIncident(context.Background(), Incident{}); err == nil {
		t.Fatalf("expected validation error")
	}
	if !logger.has("info", "operation rejected") {
		t.Fatalf("expected rejection to be logged")
	}
}

func TestNilOptionsKeepDefaults(t *testing.T) {
	svc := NewInMemoryService(nil, WithLogger(nil), WithClock(nil), WithAuditRecorder(nil), WithMetricsRecorder(nil), WithTracer(nil), WithEventPublisher(nil), WithRulesEngine(nil))
	if svc.RulesEngine() == nil {
		t.Fatalf("expected engine from store")
	}
	if got := svc.RulesEngine().Rules(); len(got) != 2 {
		t.Fatalf("expected default rules, got %v", got)
	}
	if _, _, err := svc.CreateChecklistCategory(context.Background(), ChecklistCategory{Name: "General"}); err != nil {
		t.Fatalf("create with defaults: %v", err)
	}
	if svc.Now().IsZero() {
		t.Fatalf("expected wall clock")
	}
}

func TestExpvarMetricsRecorderExports(t *testing.T) {
	recorder := NewExpvarMetricsRecorder("")
	if !strings.HasPrefix(recorder.Name(), "hse_service_metrics_") {
		t.Fatalf("unexpected export name %s", recorder.Name())
	}
	ctx := context.Background()
	recorder.Observe(ctx, "create_medicine", true, 10*time.Millisecond)
	recorder.Observe(ctx, "create_medicine", false, 5*time.Millisecond)
	recorder.Observe(ctx, "update_medicine", true, time.Millisecond)
	recorder.Observe(ctx, "delete_visit_record", true, time.Millisecond)
	recorder.Observe(ctx, "check_prescription", true, time.Millisecond)
	recorder.Observe(ctx, "", true, time.Millisecond)

	snapshot := recorder.Snapshot()
	created := snapshot.Operations["create_medicine"]
	if created.Success != 1 || created.Error != 1 || created.TotalMS <= 0 {
		t.Fatalf("unexpected create_medicine stats %+v", created)
	}
	if created.Entity != domain.EntityMedicine || created.Action != ActionCreate {
		t.Fatalf("expected medicine create metadata, got %+v", created)
	}
	if snapshot.Mutations[domain.EntityMedicine] != 2 || snapshot.Mutations[domain.EntityVisitRecord] != 1 {
		t.Fatalf("unexpected mutation counts %+v", snapshot.Mutations)
	}
	if read := snapshot.Operations["check_prescription"]; read.Entity != "" || read.Success != 1 {
		t.Fatalf("non-mutating operation should carry no entity, got %+v", read)
	}
	if len(snapshot.Operations) != 4 {
		t.Fatalf("expected empty operation to be ignored, got %+v", snapshot.Operations)
	}
	if v := expvar.Get(recorder.Name()); v == nil || !strings.Contains(v.String(), "create_medicine") {
		t.Fatalf("expected expvar export to contain operation")
	}
}

func TestExpvarMetricsRecorderCountsServiceMutations(t *testing.T) {
	recorder := NewExpvarMetricsRecorder("")
	svc := newSeededService(t, WithMetricsRecorder(recorder))
	ctx := context.Background()
	visit, _, err := svc.CreateVisitRecord(ctx, complexVisit("p1", rx("m1", 3)))
	if err != nil {
		t.Fatalf("create visit: %v", err)
	}
	if _, err := svc.DeleteVisitRecord(ctx, visit.ID); err != nil {
		t.Fatalf("delete visit: %v", err)
	}
	snapshot := recorder.Snapshot()
	if snapshot.Mutations[domain.EntityVisitRecord] != 2 {
		t.Fatalf("expected two visit mutations, got %+v", snapshot.Mutations)
	}
	if snapshot.Operations["seed"].Success != 1 || snapshot.Operations["seed"].Entity != "" {
		t.Fatalf("expected seed to be measured without entity, got %+v", snapshot.Operations["seed"])
	}
}

func TestPrometheusMetricsRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	rec.Observe(context.Background(), "create_medicine", true, 20*time.Millisecond)
	rec.Observe(context.Background(), "create_medicine", false, time.Millisecond)
	rec.Observe(context.Background(), "create_medicine", true, time.Millisecond)

	if got := testutil.ToFloat64(rec.results.WithLabelValues("create_medicine", "success")); got != 2 {
		t.Fatalf("expected 2 successes, got %v", got)
	}
	if got := testutil.ToFloat64(rec.results.WithLabelValues("create_medicine", "error")); got != 1 {
		t.Fatalf("expected 1 error, got %v", got)
	}
	if n := testutil.CollectAndCount(rec.duration); n != 1 {
		t.Fatalf("expected one histogram series, got %d", n)
	}
	if _, err := NewPrometheusMetricsRecorder(reg); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
}

func TestJSONTraceTracerExports(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)
	_, span := tracer.Start(context.Background(), "create_incident")
	span.(entitySpan).SetEntityID("inc-1")
	span.End(nil)
	_, failed := tracer.Start(context.Background(), "check_prescription")
	failed.End(errors.New("boom"))

	entries := tracer.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected two span entries, got %d", len(entries))
	}
	first := entries[0]
	if first.Operation != "create_incident" || first.Status != "success" || first.Entity != domain.EntityIncident || first.Action != ActionCreate || first.EntityID != "inc-1" {
		t.Fatalf("unexpected span entry: %+v", first)
	}
	if entries[1].Status != "error" || entries[1].Error != "boom" || entries[1].Entity != "" {
		t.Fatalf("unexpected failed span: %+v", entries[1])
	}
	if !strings.Contains(buf.String(), `"entity_id":"inc-1"`) {
		t.Fatalf("expected JSON output to carry the entity id: %q", buf.String())
	}
}

func TestJSONTraceTracerRecordsServiceEntityIDs(t *testing.T) {
	tracer := NewJSONTracer(nil)
	svc := newSeededService(t, WithTracer(tracer))
	ctx := context.Background()
	med, _, err := svc.CreateMedicine(ctx, Medicine{Name: "Ors", Type: "powder", Stock: 30})
	if err != nil {
		t.Fatalf("create medicine: %v", err)
	}
	if _, err := svc.DeleteVisitRecord(ctx, "missing"); err == nil {
		t.Fatalf("expected delete of missing visit to fail")
	}
	var created, missing bool
	for _, e := range tracer.Entries() {
		switch {
		case e.Operation == "create_medicine" && e.EntityID == med.ID && e.Entity == domain.EntityMedicine:
			created = true
		case e.Operation == "delete_visit_record" && e.EntityID == "missing" && e.Status == "error":
			missing = true
		}
	}
	if !created || !missing {
		t.Fatalf("expected spans with entity ids, got %+v", tracer.Entries())
	}
}
