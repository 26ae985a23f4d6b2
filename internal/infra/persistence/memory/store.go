// Package memory provides an in-memory implementation of the core persistence
// store used for tests and ephemeral environments.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"hsecore/pkg/domain"

	"github.com/google/uuid"
)

// Compile-time contract assertions ensuring memory.Store adheres to the domain persistence interfaces.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// User aliases domain.User for in-memory persistence operations.
	User = domain.User
	// Personnel aliases domain.Personnel.
	Personnel = domain.Personnel
	// MedicalRecord aliases domain.MedicalRecord.
	MedicalRecord = domain.MedicalRecord
	// VisitRecord aliases domain.VisitRecord.
	VisitRecord = domain.VisitRecord
	// Medicine aliases domain.Medicine.
	Medicine = domain.Medicine
	// Incident aliases domain.Incident.
	Incident = domain.Incident
	// ChecklistCategory aliases domain.ChecklistCategory.
	ChecklistCategory = domain.ChecklistCategory
	// Checklist aliases domain.Checklist.
	Checklist = domain.Checklist
	// ChecklistSubmission aliases domain.ChecklistSubmission.
	ChecklistSubmission = domain.ChecklistSubmission
	// FireEquipmentType aliases domain.FireEquipmentType.
	FireEquipmentType = domain.FireEquipmentType
	// FireEquipment aliases domain.FireEquipment.
	FireEquipment = domain.FireEquipment
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

type memoryState struct {
	users          map[string]User
	personnel      map[string]Personnel
	medicalRecords map[string]MedicalRecord
	visits         map[string]VisitRecord
	medicines      map[string]Medicine
	incidents      map[string]Incident
	categories     map[string]ChecklistCategory
	checklists     map[string]Checklist
	submissions    map[string]ChecklistSubmission
	equipmentTypes map[string]FireEquipmentType
	equipment      map[string]FireEquipment
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Users          map[string]User                `json:"users"`
	Personnel      map[string]Personnel           `json:"personnel"`
	MedicalRecords map[string]MedicalRecord       `json:"medical_records"`
	Visits         map[string]VisitRecord         `json:"visits"`
	Medicines      map[string]Medicine            `json:"medicines"`
	Incidents      map[string]Incident            `json:"incidents"`
	Categories     map[string]ChecklistCategory   `json:"checklist_categories"`
	Checklists     map[string]Checklist           `json:"checklists"`
	Submissions    map[string]ChecklistSubmission `json:"checklist_submissions"`
	EquipmentTypes map[string]FireEquipmentType   `json:"fire_equipment_types"`
	Equipment      map[string]FireEquipment       `json:"fire_equipment"`
}

func newMemoryState() memoryState {
	return memoryState{
		users:          make(map[string]User),
		personnel:      make(map[string]Personnel),
		medicalRecords: make(map[string]MedicalRecord),
		visits:         make(map[string]VisitRecord),
		medicines:      make(map[string]Medicine),
		incidents:      make(map[string]Incident),
		categories:     make(map[string]ChecklistCategory),
		checklists:     make(map[string]Checklist),
		submissions:    make(map[string]ChecklistSubmission),
		equipmentTypes: make(map[string]FireEquipmentType),
		equipment:      make(map[string]FireEquipment),
	}
}

func cloneMap[T any](in map[string]T, clone func(T) T) map[string]T {
	out := make(map[string]T, len(in))
	for k, v := range in {
		out[k] = clone(v)
	}
	return out
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	return Snapshot{
		Users:          cloneMap(state.users, cloneUser),
		Personnel:      cloneMap(state.personnel, identity[Personnel]),
		MedicalRecords: cloneMap(state.medicalRecords, identity[MedicalRecord]),
		Visits:         cloneMap(state.visits, cloneVisit),
		Medicines:      cloneMap(state.medicines, identity[Medicine]),
		Incidents:      cloneMap(state.incidents, identity[Incident]),
		Categories:     cloneMap(state.categories, identity[ChecklistCategory]),
		Checklists:     cloneMap(state.checklists, cloneChecklist),
		Submissions:    cloneMap(state.submissions, cloneSubmission),
		EquipmentTypes: cloneMap(state.equipmentTypes, identity[FireEquipmentType]),
		Equipment:      cloneMap(state.equipment, identity[FireEquipment]),
	}
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	return memoryState{
		users:          cloneMap(s.Users, cloneUser),
		personnel:      cloneMap(s.Personnel, identity[Personnel]),
		medicalRecords: cloneMap(s.MedicalRecords, identity[MedicalRecord]),
		visits:         cloneMap(s.Visits, cloneVisit),
		medicines:      cloneMap(s.Medicines, identity[Medicine]),
		incidents:      cloneMap(s.Incidents, identity[Incident]),
		categories:     cloneMap(s.Categories, identity[ChecklistCategory]),
		checklists:     cloneMap(s.Checklists, cloneChecklist),
		submissions:    cloneMap(s.Submissions, cloneSubmission),
		equipmentTypes: cloneMap(s.EquipmentTypes, identity[FireEquipmentType]),
		equipment:      cloneMap(s.Equipment, identity[FireEquipment]),
	}
}

// migrateSnapshot fills missing buckets, stamps ids from map keys and
// defaults enum fields that older payloads may have left empty.
func migrateSnapshot(snapshot Snapshot) Snapshot {
	if snapshot.Users == nil {
		snapshot.Users = map[string]User{}
	}
	if snapshot.Personnel == nil {
		snapshot.Personnel = map[string]Personnel{}
	}
	if snapshot.MedicalRecords == nil {
		snapshot.MedicalRecords = map[string]MedicalRecord{}
	}
	if snapshot.Visits == nil {
		snapshot.Visits = map[string]VisitRecord{}
	}
	if snapshot.Medicines == nil {
		snapshot.Medicines = map[string]Medicine{}
	}
	if snapshot.Incidents == nil {
		snapshot.Incidents = map[string]Incident{}
	}
	if snapshot.Categories == nil {
		snapshot.Categories = map[string]ChecklistCategory{}
	}
	if snapshot.Checklists == nil {
		snapshot.Checklists = map[string]Checklist{}
	}
	if snapshot.Submissions == nil {
		snapshot.Submissions = map[string]ChecklistSubmission{}
	}
	if snapshot.EquipmentTypes == nil {
		snapshot.EquipmentTypes = map[string]FireEquipmentType{}
	}
	if snapshot.Equipment == nil {
		snapshot.Equipment = map[string]FireEquipment{}
	}

	for id, v := range snapshot.Visits {
		v.ID = id
		if v.PatientType == "" {
			v.PatientType = domain.PatientComplex
		}
		snapshot.Visits[id] = v
	}
	for id, inc := range snapshot.Incidents {
		inc.ID = id
		if inc.Status == "" {
			inc.Status = domain.IncidentOpen
		}
		snapshot.Incidents[id] = inc
	}
	for id, eq := range snapshot.Equipment {
		eq.ID = id
		if eq.Status == "" {
			eq.Status = domain.EquipmentOperational
		}
		snapshot.Equipment[id] = eq
	}
	for id, cl := range snapshot.Checklists {
		cl.ID = id
		if cl.Items == nil {
			cl.Items = []domain.ChecklistItem{}
		}
		snapshot.Checklists[id] = cl
	}
	return snapshot
}

func identity[T any](v T) T { return v }

func cloneUser(u User) User {
	cp := u
	cp.Roles = append([]domain.Role(nil), u.Roles...)
	return cp
}

func cloneVisit(v VisitRecord) VisitRecord {
	cp := v
	cp.Prescriptions = append([]domain.PrescribedMedication(nil), v.Prescriptions...)
	if v.Contractor != nil {
		c := *v.Contractor
		cp.Contractor = &c
	}
	if v.HospitalDispatch != nil {
		d := *v.HospitalDispatch
		cp.HospitalDispatch = &d
	}
	return cp
}

func cloneChecklist(c Checklist) Checklist {
	cp := c
	cp.Items = append([]domain.ChecklistItem(nil), c.Items...)
	return cp
}

func cloneSubmission(s ChecklistSubmission) ChecklistSubmission {
	cp := s
	cp.Items = append([]domain.ChecklistSubmissionItem(nil), s.Items...)
	return cp
}

func (s memoryState) clone() memoryState {
	return memoryStateFromSnapshot(snapshotFromMemoryState(s))
}

// Store provides an in-memory transactional store for the core domain.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) newID() string {
	return uuid.NewString()
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(migrateSnapshot(snapshot))
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used for record timestamps.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// SetNowFunc replaces the timestamp provider. Nil restores the wall clock.
func (s *Store) SetNowFunc(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if fn == nil {
		fn = func() time.Time { return time.Now().UTC() }
	}
	s.nowFn = fn
}

// RunInTransaction executes fn within a transactional copy of the store state.
// Rules run against the mutated copy; blocking violations discard it.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()

	return fn(newTransactionView(&snapshot))
}

type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

// values returns cloned map values ordered by creation time, then id.
func values[T any](in map[string]T, clone func(T) T, base func(T) domain.Base) []T {
	out := make([]T, 0, len(in))
	for _, v := range in {
		out = append(out, clone(v))
	}
	sort.Slice(out, func(i, j int) bool {
		bi, bj := base(out[i]), base(out[j])
		if !bi.CreatedAt.Equal(bj.CreatedAt) {
			return bi.CreatedAt.Before(bj.CreatedAt)
		}
		return bi.ID < bj.ID
	})
	return out
}

func find[T any](in map[string]T, id string, clone func(T) T) (T, bool) {
	v, ok := in[id]
	if !ok {
		var zero T
		return zero, false
	}
	return clone(v), true
}

func (v transactionView) ListUsers() []User {
	return values(v.state.users, cloneUser, func(u User) domain.Base { return u.Base })
}

func (v transactionView) ListPersonnel() []Personnel {
	return values(v.state.personnel, identity[Personnel], func(p Personnel) domain.Base { return p.Base })
}

func (v transactionView) ListMedicalRecords() []MedicalRecord {
	return values(v.state.medicalRecords, identity[MedicalRecord], func(r MedicalRecord) domain.Base { return r.Base })
}

func (v transactionView) ListVisitRecords() []VisitRecord {
	return values(v.state.visits, cloneVisit, func(r VisitRecord) domain.Base { return r.Base })
}

func (v transactionView) ListMedicines() []Medicine {
	return values(v.state.medicines, identity[Medicine], func(m Medicine) domain.Base { return m.Base })
}

func (v transactionView) ListIncidents() []Incident {
	return values(v.state.incidents, identity[Incident], func(i Incident) domain.Base { return i.Base })
}

func (v transactionView) ListChecklistCategories() []ChecklistCategory {
	return values(v.state.categories, identity[ChecklistCategory], func(c ChecklistCategory) domain.Base { return c.Base })
}

func (v transactionView) ListChecklists() []Checklist {
	return values(v.state.checklists, cloneChecklist, func(c Checklist) domain.Base { return c.Base })
}

func (v transactionView) ListChecklistSubmissions() []ChecklistSubmission {
	return values(v.state.submissions, cloneSubmission, func(s ChecklistSubmission) domain.Base { return s.Base })
}

func (v transactionView) ListFireEquipmentTypes() []FireEquipmentType {
	return values(v.state.equipmentTypes, identity[FireEquipmentType], func(t FireEquipmentType) domain.Base { return t.Base })
}

func (v transactionView) ListFireEquipment() []FireEquipment {
	return values(v.state.equipment, identity[FireEquipment], func(e FireEquipment) domain.Base { return e.Base })
}

func (v transactionView) FindUser(id string) (User, bool) {
	return find(v.state.users, id, cloneUser)
}

func (v transactionView) FindUserByUsername(username string) (User, bool) {
	for _, u := range v.state.users {
		if u.Username == username {
			return cloneUser(u), true
		}
	}
	return User{}, false
}

func (v transactionView) FindPersonnel(id string) (Personnel, bool) {
	return find(v.state.personnel, id, identity[Personnel])
}

func (v transactionView) FindVisitRecord(id string) (VisitRecord, bool) {
	return find(v.state.visits, id, cloneVisit)
}

func (v transactionView) FindMedicine(id string) (Medicine, bool) {
	return find(v.state.medicines, id, identity[Medicine])
}

func (v transactionView) FindChecklistCategory(id string) (ChecklistCategory, bool) {
	return find(v.state.categories, id, identity[ChecklistCategory])
}

func (v transactionView) FindChecklist(id string) (Checklist, bool) {
	return find(v.state.checklists, id, cloneChecklist)
}

func (v transactionView) FindFireEquipmentType(id string) (FireEquipmentType, bool) {
	return find(v.state.equipmentTypes, id, identity[FireEquipmentType])
}

func (v transactionView) FindFireEquipment(id string) (FireEquipment, bool) {
	return find(v.state.equipment, id, identity[FireEquipment])
}
