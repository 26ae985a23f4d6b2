package core

import "hsecore/pkg/domain"

type (
	EntityType          = domain.EntityType
	Severity            = domain.Severity
	Base                = domain.Base
	User                = domain.User
	Role                = domain.Role
	Tab                 = domain.Tab
	Personnel           = domain.Personnel
	MedicalRecord       = domain.MedicalRecord
	VisitRecord         = domain.VisitRecord
	Medicine            = domain.Medicine
	Incident            = domain.Incident
	ChecklistCategory   = domain.ChecklistCategory
	Checklist           = domain.Checklist
	ChecklistSubmission = domain.ChecklistSubmission
	FireEquipmentType   = domain.FireEquipmentType
	FireEquipment       = domain.FireEquipment
	Change              = domain.Change
	Action              = domain.Action
	Violation           = domain.Violation
	Result              = domain.Result
	RuleViolationError  = domain.RuleViolationError
	RulesEngine         = domain.RulesEngine
	Rule                = domain.Rule
	ErrNotFound         = domain.ErrNotFound
	ErrAlreadyExists    = domain.ErrAlreadyExists
	Transaction         = domain.Transaction
	TransactionView     = domain.TransactionView
	PersistentStore     = domain.PersistentStore
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	ActionCreate = domain.ActionCreate
	ActionUpdate = domain.ActionUpdate
	ActionDelete = domain.ActionDelete
)
