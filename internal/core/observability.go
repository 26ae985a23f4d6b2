package core

import (
	"context"
	"time"

	"hsecore/pkg/domain"
)

// Logger is the structured logging surface used by the service. *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// AuditStatus is the outcome recorded for an audited operation.
type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusError   AuditStatus = "error"
)

// AuditEntry describes one mutating service call.
type AuditEntry struct {
	Operation string
	Entity    EntityType
	Action    Action
	EntityID  string
	Status    AuditStatus
	Error     string
	Duration  time.Duration
	Timestamp time.Time
}

// AuditRecorder receives audit entries for mutating operations.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

// MetricsRecorder observes operation latency and outcome.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Tracer starts spans around service operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan is ended exactly once with the operation error, if any.
type TraceSpan interface {
	End(err error)
}

// entitySpan is implemented by spans that record the id of the touched record.
type entitySpan interface {
	SetEntityID(id string)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type noopAuditRecorder struct{}

func (noopAuditRecorder) Record(context.Context, AuditEntry) {}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) Observe(context.Context, string, bool, time.Duration) {}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}

type operationMeta struct {
	entity EntityType
	action Action
}

var auditedOperations = map[string]operationMeta{
	"create_user":                 {domain.EntityUser, domain.ActionCreate},
	"update_user":                 {domain.EntityUser, domain.ActionUpdate},
	"delete_user":                 {domain.EntityUser, domain.ActionDelete},
	"create_personnel":            {domain.EntityPersonnel, domain.ActionCreate},
	"update_personnel":            {domain.EntityPersonnel, domain.ActionUpdate},
	"create_medical_record":       {domain.EntityMedicalRecord, domain.ActionCreate},
	"create_visit_record":         {domain.EntityVisitRecord, domain.ActionCreate},
	"update_visit_record":         {domain.EntityVisitRecord, domain.ActionUpdate},
	"delete_visit_record":         {domain.EntityVisitRecord, domain.ActionDelete},
	"create_medicine":             {domain.EntityMedicine, domain.ActionCreate},
	"update_medicine":             {domain.EntityMedicine, domain.ActionUpdate},
	"create_incident":             {domain.EntityIncident, domain.ActionCreate},
	"create_checklist_category":   {domain.EntityChecklistCategory, domain.ActionCreate},
	"update_checklist_category":   {domain.EntityChecklistCategory, domain.ActionUpdate},
	"delete_checklist_category":   {domain.EntityChecklistCategory, domain.ActionDelete},
	"create_checklist":            {domain.EntityChecklist, domain.ActionCreate},
	"update_checklist":            {domain.EntityChecklist, domain.ActionUpdate},
	"delete_checklist":            {domain.EntityChecklist, domain.ActionDelete},
	"create_checklist_submission": {domain.EntityChecklistSubmission, domain.ActionCreate},
	"create_fire_equipment_type":  {domain.EntityFireEquipmentType, domain.ActionCreate},
	"update_fire_equipment_type":  {domain.EntityFireEquipmentType, domain.ActionUpdate},
	"delete_fire_equipment_type":  {domain.EntityFireEquipmentType, domain.ActionDelete},
	"create_fire_equipment":       {domain.EntityFireEquipment, domain.ActionCreate},
	"update_fire_equipment":       {domain.EntityFireEquipment, domain.ActionUpdate},
	"delete_fire_equipment":       {domain.EntityFireEquipment, domain.ActionDelete},
}

func (s *Service) recordAuditSuccess(ctx context.Context, op, entityID string, duration time.Duration) {
	s.recordAudit(ctx, op, entityID, duration, nil)
}

func (s *Service) recordAuditError(ctx context.Context, op, entityID string, duration time.Duration, err error) {
	s.recordAudit(ctx, op, entityID, duration, err)
}

func (s *Service) recordAudit(ctx context.Context, op, entityID string, duration time.Duration, err error) {
	meta, ok := auditedOperations[op]
	if !ok {
		return
	}
	entry := AuditEntry{
		Operation: op,
		Entity:    meta.entity,
		Action:    meta.action,
		EntityID:  entityID,
		Status:    AuditStatusSuccess,
		Duration:  duration,
		Timestamp: s.clock.Now(),
	}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
	}
	s.audit.Record(ctx, entry)
}
