package domain

import "context"

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope.
//
// Visit record mutations reconcile medicine stock in the same scope: create
// takes the prescribed quantities, update applies NetStockDelta between the
// stored and mutated prescriptions, delete gives the quantities back.
type Transaction interface {
	Snapshot() TransactionView

	CreateUser(User) (User, error)
	UpdateUser(id string, mutator func(*User) error) (User, error)
	DeleteUser(id string) error

	CreatePersonnel(Personnel) (Personnel, error)
	UpdatePersonnel(id string, mutator func(*Personnel) error) (Personnel, error)

	CreateMedicalRecord(MedicalRecord) (MedicalRecord, error)

	CreateVisitRecord(VisitRecord) (VisitRecord, error)
	UpdateVisitRecord(id string, mutator func(*VisitRecord) error) (VisitRecord, error)
	DeleteVisitRecord(id string) error

	CreateMedicine(Medicine) (Medicine, error)
	UpdateMedicine(id string, mutator func(*Medicine) error) (Medicine, error)

	CreateIncident(Incident) (Incident, error)

	CreateChecklistCategory(ChecklistCategory) (ChecklistCategory, error)
	UpdateChecklistCategory(id string, mutator func(*ChecklistCategory) error) (ChecklistCategory, error)
	DeleteChecklistCategory(id string) error
	CreateChecklist(Checklist) (Checklist, error)
	UpdateChecklist(id string, mutator func(*Checklist) error) (Checklist, error)
	DeleteChecklist(id string) error
	CreateChecklistSubmission(ChecklistSubmission) (ChecklistSubmission, error)

	CreateFireEquipmentType(FireEquipmentType) (FireEquipmentType, error)
	UpdateFireEquipmentType(id string, mutator func(*FireEquipmentType) error) (FireEquipmentType, error)
	DeleteFireEquipmentType(id string) error
	CreateFireEquipment(FireEquipment) (FireEquipment, error)
	UpdateFireEquipment(id string, mutator func(*FireEquipment) error) (FireEquipment, error)
	DeleteFireEquipment(id string) error
}

// TransactionView provides read-only access to snapshot data for rules and queries.
type TransactionView interface {
	RuleView
	ListUsers() []User
	ListPersonnel() []Personnel
	ListMedicalRecords() []MedicalRecord
	ListIncidents() []Incident
	ListChecklistCategories() []ChecklistCategory
	ListChecklistSubmissions() []ChecklistSubmission
	ListFireEquipmentTypes() []FireEquipmentType
	FindUser(id string) (User, bool)
	FindUserByUsername(username string) (User, bool)
	FindPersonnel(id string) (Personnel, bool)
	FindVisitRecord(id string) (VisitRecord, bool)
	FindChecklist(id string) (Checklist, bool)
	FindFireEquipment(id string) (FireEquipment, bool)
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
}
