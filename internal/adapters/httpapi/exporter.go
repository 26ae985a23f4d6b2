package httpapi

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"hsecore/internal/blob"
	"hsecore/internal/core"
	"hsecore/pkg/domain"
)

// ExportStatus describes the lifecycle stage of an export request.
type ExportStatus string

const (
	ExportStatusQueued    ExportStatus = "queued"
	ExportStatusRunning   ExportStatus = "running"
	ExportStatusSucceeded ExportStatus = "succeeded"
	ExportStatusFailed    ExportStatus = "failed"
)

// ExportFormat is the encoding of an export artifact.
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
)

func (f ExportFormat) contentType() string {
	if f == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/json"
}

// Collection names an exportable record set.
type Collection string

const (
	CollectionPersonnel      Collection = "personnel"
	CollectionMedicalRecords Collection = "medical_records"
	CollectionVisits         Collection = "visits"
	CollectionMedicines      Collection = "medicines"
	CollectionIncidents      Collection = "incidents"
	CollectionSubmissions    Collection = "submissions"
	CollectionFireEquipment  Collection = "fire_equipment"
)

// Collections lists every exportable collection.
func Collections() []Collection {
	return []Collection{
		CollectionPersonnel, CollectionMedicalRecords, CollectionVisits, CollectionMedicines,
		CollectionIncidents, CollectionSubmissions, CollectionFireEquipment,
	}
}

const (
	exportQueueSize = 32
	exportKeyPrefix = "exports/"
	entityExport    = domain.EntityType("export")
)

// ErrExportQueueFull is returned when the worker cannot accept more requests.
var ErrExportQueueFull = errors.New("export queue full")

// ExportArtifact is one stored rendering of an export.
type ExportArtifact struct {
	Format      ExportFormat `json:"format"`
	Key         string       `json:"key"`
	ContentType string       `json:"content_type"`
	SizeBytes   int64        `json:"size_bytes"`
	Rows        int          `json:"rows"`
	ETag        string       `json:"etag,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// ExportRecord tracks an export request and its artifacts.
type ExportRecord struct {
	ID          string           `json:"id"`
	Collection  Collection       `json:"collection"`
	Formats     []ExportFormat   `json:"formats"`
	Status      ExportStatus     `json:"status"`
	Error       string           `json:"error,omitempty"`
	Artifacts   []ExportArtifact `json:"artifacts,omitempty"`
	RequestedBy string           `json:"requested_by"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

// Artifact returns the artifact rendered in format.
func (r ExportRecord) Artifact(format ExportFormat) (ExportArtifact, bool) {
	for _, a := range r.Artifacts {
		if a.Format == format {
			return a, true
		}
	}
	return ExportArtifact{}, false
}

func (r ExportRecord) copy() ExportRecord {
	dup := r
	dup.Formats = append([]ExportFormat(nil), r.Formats...)
	dup.Artifacts = append([]ExportArtifact(nil), r.Artifacts...)
	return dup
}

// ExportInput is an enqueue request.
type ExportInput struct {
	Collection  Collection
	Formats     []ExportFormat
	RequestedBy string
}

// ExportScheduler queues exports and exposes their status.
type ExportScheduler interface {
	EnqueueExport(ctx context.Context, input ExportInput) (ExportRecord, error)
	GetExport(id string) (ExportRecord, bool)
	Store() blob.Store
}

// table is a rendered collection: CSV columns and rows plus the raw records
// for JSON.
type table struct {
	columns []string
	rows    [][]string
	records any
}

// Worker renders exports asynchronously into a blob store.
type Worker struct {
	svc    *core.Service
	store  blob.Store
	logger core.Logger
	audit  core.AuditRecorder
	clock  core.Clock

	queue chan exportTask
	mu    sync.RWMutex
	jobs  map[string]*ExportRecord

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type exportTask struct {
	id    string
	input ExportInput
}

// WorkerOption configures optional worker collaborators.
type WorkerOption func(*Worker)

// WithWorkerLogger sets the logger for export failures.
func WithWorkerLogger(logger core.Logger) WorkerOption {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithWorkerAudit records an audit entry for each finished export.
func WithWorkerAudit(audit core.AuditRecorder) WorkerOption {
	return func(w *Worker) { w.audit = audit }
}

// WithWorkerClock sets the time source for export timestamps.
func WithWorkerClock(clock core.Clock) WorkerOption {
	return func(w *Worker) {
		if clock != nil {
			w.clock = clock
		}
	}
}

// NewWorker constructs an export worker reading from svc and writing to store.
func NewWorker(svc *core.Service, store blob.Store, opts ...WorkerOption) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		svc:    svc,
		store:  store,
		logger: discardLogger{},
		clock:  core.ClockFunc(func() time.Time { return time.Now().UTC() }),
		queue:  make(chan exportTask, exportQueueSize),
		jobs:   make(map[string]*ExportRecord),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Store returns the blob store artifacts are written to.
func (w *Worker) Store() blob.Store { return w.store }

// Start begins processing export requests.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop halts the worker and waits for the in-flight export, bounded by ctx.
func (w *Worker) Stop(ctx context.Context) error {
	w.cancel()
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case task := <-w.queue:
			w.process(task)
		}
	}
}

// EnqueueExport validates input and schedules it. Formats default to csv and
// json; duplicates are dropped.
func (w *Worker) EnqueueExport(_ context.Context, input ExportInput) (ExportRecord, error) {
	if !knownCollection(input.Collection) {
		return ExportRecord{}, core.ValidationError{Entity: entityExport, Field: "collection", Message: fmt.Sprintf("unknown collection %q", input.Collection)}
	}
	formats := input.Formats
	if len(formats) == 0 {
		formats = []ExportFormat{FormatCSV, FormatJSON}
	}
	seen := make(map[ExportFormat]struct{}, len(formats))
	uniq := make([]ExportFormat, 0, len(formats))
	for _, f := range formats {
		if f != FormatCSV && f != FormatJSON {
			return ExportRecord{}, core.ValidationError{Entity: entityExport, Field: "formats", Message: fmt.Sprintf("unsupported format %q", f)}
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		uniq = append(uniq, f)
	}

	now := w.clock.Now()
	record := ExportRecord{
		ID:          uuid.NewString(),
		Collection:  input.Collection,
		Formats:     uniq,
		Status:      ExportStatusQueued,
		RequestedBy: input.RequestedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	w.mu.Lock()
	w.jobs[record.ID] = &record
	queued := record.copy()
	w.mu.Unlock()

	select {
	case w.queue <- exportTask{id: record.ID, input: input}:
	default:
		w.mu.Lock()
		delete(w.jobs, record.ID)
		w.mu.Unlock()
		return ExportRecord{}, ErrExportQueueFull
	}
	return queued, nil
}

// GetExport returns a snapshot of an export record.
func (w *Worker) GetExport(id string) (ExportRecord, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	record, ok := w.jobs[id]
	if !ok {
		return ExportRecord{}, false
	}
	return record.copy(), true
}

func (w *Worker) process(task exportTask) {
	started := w.clock.Now()
	formats := w.setRunning(task.id)
	if formats == nil {
		return
	}
	data, err := w.collect(w.ctx, task.input.Collection)
	if err != nil {
		w.finish(task.id, nil, fmt.Errorf("collect %s: %w", task.input.Collection, err), started)
		return
	}
	artifacts := make([]ExportArtifact, 0, len(formats))
	for _, format := range formats {
		payload, err := render(format, data)
		if err != nil {
			w.finish(task.id, nil, fmt.Errorf("render %s: %w", format, err), started)
			return
		}
		key := fmt.Sprintf("%s%s/%s.%s", exportKeyPrefix, task.input.Collection, task.id, format)
		info, err := w.store.Put(w.ctx, key, bytes.NewReader(payload), blob.PutOptions{
			ContentType: format.contentType(),
			Metadata: map[string]string{
				"collection":   string(task.input.Collection),
				"export_id":    task.id,
				"requested_by": task.input.RequestedBy,
			},
		})
		if err != nil {
			w.finish(task.id, nil, fmt.Errorf("store %s: %w", key, err), started)
			return
		}
		artifacts = append(artifacts, ExportArtifact{
			Format:      format,
			Key:         key,
			ContentType: format.contentType(),
			SizeBytes:   int64(len(payload)),
			Rows:        len(data.rows),
			ETag:        info.ETag,
			CreatedAt:   w.clock.Now(),
		})
	}
	w.finish(task.id, artifacts, nil, started)
}

func (w *Worker) setRunning(id string) []ExportFormat {
	w.mu.Lock()
	defer w.mu.Unlock()
	record, ok := w.jobs[id]
	if !ok {
		return nil
	}
	record.Status = ExportStatusRunning
	record.UpdatedAt = w.clock.Now()
	return append([]ExportFormat(nil), record.Formats...)
}

func (w *Worker) finish(id string, artifacts []ExportArtifact, err error, started time.Time) {
	now := w.clock.Now()
	entry := core.AuditEntry{
		Operation: "export",
		Entity:    entityExport,
		Action:    core.ActionCreate,
		EntityID:  id,
		Status:    core.AuditStatusSuccess,
		Duration:  now.Sub(started),
		Timestamp: now,
	}
	if err != nil {
		w.logger.Error("export failed", "export_id", id, "error", err)
		entry.Status = core.AuditStatusError
		entry.Error = err.Error()
	} else {
		w.logger.Info("export stored", "export_id", id, "artifacts", len(artifacts))
	}
	if w.audit != nil {
		w.audit.Record(w.ctx, entry)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	record, ok := w.jobs[id]
	if !ok {
		return
	}
	record.Status = ExportStatusSucceeded
	record.Artifacts = artifacts
	if err != nil {
		record.Status = ExportStatusFailed
		record.Error = err.Error()
	}
	record.UpdatedAt = now
	record.CompletedAt = &now
}

func knownCollection(c Collection) bool {
	for _, known := range Collections() {
		if c == known {
			return true
		}
	}
	return false
}

func render(format ExportFormat, data table) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.Marshal(data.records)
	case FormatCSV:
		buf := &bytes.Buffer{}
		writer := csv.NewWriter(buf)
		if err := writer.Write(data.columns); err != nil {
			return nil, err
		}
		if err := writer.WriteAll(data.rows); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported export format %s", format)
	}
}

// collect reads a collection through the service so listings keep their
// usual ordering and derived fields.
func (w *Worker) collect(ctx context.Context, c Collection) (table, error) {
	switch c {
	case CollectionPersonnel:
		list, err := w.svc.SearchPersonnel(ctx, "")
		return tableOf(list, []string{"id", "personnel_id", "first_name", "last_name", "national_id", "hire_date", "position"},
			func(p core.Personnel) []string {
				return []string{p.ID, p.PersonnelID, p.FirstName, p.LastName, p.NationalID, p.HireDate, p.Position}
			}), err
	case CollectionMedicalRecords:
		personnel, err := w.svc.SearchPersonnel(ctx, "")
		if err != nil {
			return table{}, err
		}
		var records []core.MedicalRecord
		for _, p := range personnel {
			list, err := w.svc.MedicalRecordsFor(ctx, p.ID)
			if err != nil {
				return table{}, err
			}
			records = append(records, list...)
		}
		return tableOf(records, []string{"id", "personnel_id", "exam_date", "next_exam_date", "fitness_status", "referral"},
			func(r core.MedicalRecord) []string {
				return []string{r.ID, r.PersonnelID, r.ExamDate, r.NextExamDate, string(r.PhysicianOpinion.Status), r.PhysicianOpinion.Referral}
			}), nil
	case CollectionVisits:
		list, err := w.svc.ListVisitRecords(ctx)
		return tableOf(list, []string{"id", "visit_date", "patient_type", "personnel_id", "reason", "diagnosis", "action_result", "prescriptions"},
			func(v core.VisitRecord) []string {
				return []string{v.ID, v.VisitDate, string(v.PatientType), v.PersonnelID, v.Reason, v.Diagnosis, string(v.ActionResult), formatPrescriptions(v.Prescriptions)}
			}), err
	case CollectionMedicines:
		list, err := w.svc.SearchMedicines(ctx, "")
		return tableOf(list, []string{"id", "name", "type", "stock"},
			func(m core.Medicine) []string { return []string{m.ID, m.Name, m.Type, strconv.Itoa(m.Stock)} }), err
	case CollectionIncidents:
		list, err := w.svc.ListIncidents(ctx)
		return tableOf(list, []string{"id", "date", "location", "party", "contractor_name", "severity", "status", "description"},
			func(i core.Incident) []string {
				return []string{i.ID, i.Date, i.Location, string(i.Party), i.ContractorName, string(i.Severity), string(i.Status), i.Description}
			}), err
	case CollectionSubmissions:
		list, err := w.svc.ListSubmissions(ctx)
		return tableOf(list, []string{"id", "date", "checklist", "location", "performed_by", "pass", "fail", "na"},
			func(s core.ChecklistSubmission) []string {
				counts := map[domain.SubmissionStatus]int{}
				for _, item := range s.Items {
					counts[item.Status]++
				}
				return []string{s.ID, s.Date, w.svc.SubmissionTitle(ctx, s), s.Location, s.PerformedBy,
					strconv.Itoa(counts[domain.SubmissionPass]), strconv.Itoa(counts[domain.SubmissionFail]), strconv.Itoa(counts[domain.SubmissionNA])}
			}), err
	case CollectionFireEquipment:
		list, err := w.svc.ListFireEquipment(ctx)
		return tableOf(list, []string{"id", "tag", "type_id", "location", "install_date", "last_inspection_date", "next_inspection_date", "status"},
			func(e core.FireEquipment) []string {
				return []string{e.ID, e.Tag, e.TypeID, e.Location, e.InstallDate, e.LastInspectionDate, e.NextInspectionDate, string(e.Status)}
			}), err
	default:
		return table{}, fmt.Errorf("unknown collection %q", c)
	}
}

func tableOf[T any](items []T, columns []string, row func(T) []string) table {
	if items == nil {
		items = []T{}
	}
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, row(item))
	}
	return table{columns: columns, rows: rows, records: items}
}

func formatPrescriptions(lines []domain.PrescribedMedication) string {
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		parts = append(parts, line.MedicineID+":"+strconv.Itoa(line.Quantity))
	}
	return strings.Join(parts, ";")
}

type discardLogger struct{}

func (discardLogger) Debug(string, ...any) {}
func (discardLogger) Info(string, ...any)  {}
func (discardLogger) Warn(string, ...any)  {}
func (discardLogger) Error(string, ...any) {}
