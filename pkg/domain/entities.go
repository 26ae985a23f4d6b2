// Package domain defines the core persistent entities, value types, and
// rule evaluation primitives used by hsecore.
package domain

import (
	"time"
)

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityUser identifies a login account.
	EntityUser EntityType = "user"
	// EntityPersonnel identifies an employee record.
	EntityPersonnel EntityType = "personnel"
	// EntityMedicalRecord identifies a periodic occupational exam record.
	EntityMedicalRecord EntityType = "medical_record"
	// EntityVisitRecord identifies a clinic visit.
	EntityVisitRecord EntityType = "visit_record"
	// EntityMedicine identifies a pharmacy stock item.
	EntityMedicine EntityType = "medicine"
	// EntityIncident identifies a safety incident log entry.
	EntityIncident EntityType = "incident"
	// EntityChecklistCategory identifies a checklist grouping.
	EntityChecklistCategory EntityType = "checklist_category"
	// EntityChecklist identifies a checklist template.
	EntityChecklist EntityType = "checklist"
	// EntityChecklistSubmission identifies a performed checklist.
	EntityChecklistSubmission EntityType = "checklist_submission"
	// EntityFireEquipmentType identifies a configurable equipment type.
	EntityFireEquipmentType EntityType = "fire_equipment_type"
	// EntityFireEquipment identifies a fire equipment inventory item.
	EntityFireEquipment EntityType = "fire_equipment"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Base contains common fields for all domain records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// User is a login account. Passwords are stored and compared verbatim.
type User struct {
	Base
	Username string `json:"username"`
	Password string `json:"password,omitempty"`
	Roles    []Role `json:"roles"`
}

// Personnel represents an employee tracked by occupational medicine.
type Personnel struct {
	Base
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	NationalID  string `json:"national_id"`
	PersonnelID string `json:"personnel_id"`
	HireDate    string `json:"hire_date"`
	Position    string `json:"position"`
}

// FullName joins first and last name.
func (p Personnel) FullName() string {
	switch {
	case p.FirstName == "":
		return p.LastName
	case p.LastName == "":
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

// Finding is a normal/abnormal test outcome. Empty means not performed.
type Finding string

const (
	FindingNone     Finding = ""
	FindingNormal   Finding = "normal"
	FindingAbnormal Finding = "abnormal"
)

// FitnessStatus is the physician's work fitness verdict.
type FitnessStatus string

const (
	FitnessUnrestricted FitnessStatus = "unrestricted"
	FitnessConditional  FitnessStatus = "conditional"
)

// Vitals holds basic exam measurements.
type Vitals struct {
	BMI                    string `json:"bmi"`
	BloodPressureSystolic  string `json:"blood_pressure_systolic"`
	BloodPressureDiastolic string `json:"blood_pressure_diastolic"`
}

// BloodTest holds CBC and chemistry results as entered.
type BloodTest struct {
	WBC   string `json:"wbc"`
	RBC   string `json:"rbc"`
	HB    string `json:"hb"`
	HCT   string `json:"hct"`
	MCV   string `json:"mcv"`
	MCH   string `json:"mch"`
	MCHC  string `json:"mchc"`
	RDW   string `json:"rdw"`
	PLT   string `json:"plt"`
	MPV   string `json:"mpv"`
	PDW   string `json:"pdw"`
	FBS   string `json:"fbs"`
	CHO   string `json:"cho"`
	TG    string `json:"tg"`
	ASTOT string `json:"ast_ot"`
	ALTPT string `json:"alt_pt"`
	CR    string `json:"cr"`
}

// Urinalysis holds urine test results.
type Urinalysis struct {
	PH         string `json:"ph"`
	SG         string `json:"sg"`
	Color      string `json:"color"`
	Appearance string `json:"appearance"`
	Glucose    string `json:"glucose"`
	Protein    string `json:"protein"`
	Ketones    string `json:"ketones"`
	Blood      string `json:"blood"`
	Leukocytes string `json:"leukocytes"`
	Nitrite    string `json:"nitrite"`
}

// VisionTest holds acuity, color vision and visual field results per eye.
type VisionTest struct {
	RightEyeAcuityUncorrected string  `json:"right_eye_acuity_uncorrected"`
	RightEyeAcuityCorrected   string  `json:"right_eye_acuity_corrected"`
	LeftEyeAcuityUncorrected  string  `json:"left_eye_acuity_uncorrected"`
	LeftEyeAcuityCorrected    string  `json:"left_eye_acuity_corrected"`
	RightEyeColorVision       Finding `json:"right_eye_color_vision"`
	LeftEyeColorVision        Finding `json:"left_eye_color_vision"`
	RightEyeVisualField       Finding `json:"right_eye_visual_field"`
	LeftEyeVisualField        Finding `json:"left_eye_visual_field"`
}

// Audiometry holds hearing thresholds per ear and frequency.
type Audiometry struct {
	RightEar500  string `json:"right_ear_500"`
	RightEar1000 string `json:"right_ear_1000"`
	RightEar2000 string `json:"right_ear_2000"`
	RightEar4000 string `json:"right_ear_4000"`
	LeftEar500   string `json:"left_ear_500"`
	LeftEar1000  string `json:"left_ear_1000"`
	LeftEar2000  string `json:"left_ear_2000"`
	LeftEar4000  string `json:"left_ear_4000"`
}

// PhysicianOpinion records the examining physician's conclusion.
type PhysicianOpinion struct {
	SpecialistOpinion string        `json:"specialist_opinion"`
	Recommendations   string        `json:"recommendations"`
	Referral          string        `json:"referral"`
	Status            FitnessStatus `json:"status"`
	ReferralDetails   string        `json:"referral_details"`
}

// MedicalRecord is an occupational exam for one personnel. Records are append-only.
type MedicalRecord struct {
	Base
	PersonnelID      string           `json:"personnel_id"`
	ExamDate         string           `json:"exam_date"`
	NextExamDate     string           `json:"next_exam_date"`
	Vitals           Vitals           `json:"vitals"`
	BloodTest        BloodTest        `json:"blood_test"`
	Urinalysis       Urinalysis       `json:"urinalysis"`
	VisionTest       VisionTest       `json:"vision_test"`
	Audiometry       Audiometry       `json:"audiometry"`
	Spirometry       Finding          `json:"spirometry"`
	ECG              Finding          `json:"ecg"`
	PhysicianOpinion PhysicianOpinion `json:"physician_opinion"`
}

// PatientType distinguishes complex personnel from contractor patients.
type PatientType string

const (
	PatientComplex    PatientType = "complex"
	PatientContractor PatientType = "contractor"
)

// ActionResult is the outcome of a clinic visit.
type ActionResult string

const (
	ActionReturnToWork     ActionResult = "returnToWork"
	ActionReferral         ActionResult = "referral"
	ActionHospitalDispatch ActionResult = "hospitalDispatch"
)

// ContractorInfo identifies a contractor patient inline on the visit.
type ContractorInfo struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Age        string `json:"age"`
	NationalID string `json:"national_id"`
	Company    string `json:"company"`
}

// HospitalDispatch records ambulance details when a patient is dispatched.
type HospitalDispatch struct {
	DriverName   string `json:"driver_name"`
	DispatchTime string `json:"dispatch_time"`
}

// PrescribedMedication is a medicine quantity handed out during a visit.
type PrescribedMedication struct {
	MedicineID string `json:"medicine_id"`
	Quantity   int    `json:"quantity"`
}

// VisitRecord is a clinic visit. Its prescriptions drive medicine stock.
type VisitRecord struct {
	Base
	VisitDate                  string                 `json:"visit_date"`
	Reason                     string                 `json:"reason"`
	Diagnosis                  string                 `json:"diagnosis"`
	Recommendations            string                 `json:"recommendations"`
	PhysicianName              string                 `json:"physician_name"`
	PatientType                PatientType            `json:"patient_type"`
	PersonnelID                string                 `json:"personnel_id,omitempty"`
	Contractor                 *ContractorInfo        `json:"contractor,omitempty"`
	Prescriptions              []PrescribedMedication `json:"prescriptions,omitempty"`
	ActionResult               ActionResult           `json:"action_result"`
	HospitalDispatch           *HospitalDispatch      `json:"hospital_dispatch,omitempty"`
	ConsultingPhysicianName    string                 `json:"consulting_physician_name"`
	HasElectronicPrescription  bool                   `json:"has_electronic_prescription"`
	ElectronicPrescriptionCode string                 `json:"electronic_prescription_code,omitempty"`
}

// Medicine is a pharmacy stock item.
type Medicine struct {
	Base
	Name  string `json:"name"`
	Type  string `json:"type"`
	Stock int    `json:"stock"`
}

// IncidentParty identifies who was involved in an incident.
type IncidentParty string

const (
	PartyComplex    IncidentParty = "complex"
	PartyContractor IncidentParty = "contractor"
)

// IncidentSeverity grades an incident.
type IncidentSeverity string

const (
	SeverityMinor    IncidentSeverity = "minor"
	SeverityModerate IncidentSeverity = "moderate"
	SeveritySerious  IncidentSeverity = "serious"
	SeverityFatal    IncidentSeverity = "fatal"
)

// IncidentStatus tracks investigation progress.
type IncidentStatus string

const (
	IncidentOpen          IncidentStatus = "open"
	IncidentInvestigating IncidentStatus = "investigating"
	IncidentClosed        IncidentStatus = "closed"
)

// Incident is a safety incident log entry. Incidents are append-only.
type Incident struct {
	Base
	Date              string           `json:"date"`
	Location          string           `json:"location"`
	Description       string           `json:"description"`
	Party             IncidentParty    `json:"party"`
	ContractorName    string           `json:"contractor_name,omitempty"`
	Severity          IncidentSeverity `json:"severity"`
	CorrectiveActions string           `json:"corrective_actions"`
	Status            IncidentStatus   `json:"status"`
}

// ChecklistCategory groups checklists. Deleting a category deletes its checklists.
type ChecklistCategory struct {
	Base
	Name string `json:"name"`
}

// ChecklistItem is one line of a checklist.
type ChecklistItem struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Checklist is an inspection template owned by a category.
type Checklist struct {
	Base
	CategoryID string          `json:"category_id"`
	Title      string          `json:"title"`
	Items      []ChecklistItem `json:"items"`
}

// SubmissionStatus is the per-item outcome of a performed checklist.
type SubmissionStatus string

const (
	SubmissionPass SubmissionStatus = "pass"
	SubmissionFail SubmissionStatus = "fail"
	SubmissionNA   SubmissionStatus = "na"
)

// ChecklistSubmissionItem records the outcome for one checklist item.
type ChecklistSubmissionItem struct {
	ItemID  string           `json:"item_id"`
	Status  SubmissionStatus `json:"status"`
	Comment string           `json:"comment"`
}

// ChecklistSubmission is a performed checklist. Submissions are append-only
// and survive deletion of the checklist they reference.
type ChecklistSubmission struct {
	Base
	ChecklistID string                    `json:"checklist_id"`
	Date        string                    `json:"date"`
	Location    string                    `json:"location"`
	PerformedBy string                    `json:"performed_by"`
	Items       []ChecklistSubmissionItem `json:"items"`
}

// FireEquipmentType is a configurable equipment category (extinguisher, hydrant, ...).
type FireEquipmentType struct {
	Base
	Name string `json:"name"`
}

// EquipmentStatus is the service state of a piece of fire equipment.
type EquipmentStatus string

const (
	EquipmentOperational  EquipmentStatus = "operational"
	EquipmentNeedsService EquipmentStatus = "needs_service"
	EquipmentOutOfService EquipmentStatus = "out_of_service"
)

// FireEquipment is an inventory item referencing a FireEquipmentType.
type FireEquipment struct {
	Base
	Tag                string          `json:"tag"`
	TypeID             string          `json:"type_id"`
	Location           string          `json:"location"`
	InstallDate        string          `json:"install_date"`
	LastInspectionDate string          `json:"last_inspection_date"`
	NextInspectionDate string          `json:"next_inspection_date"`
	Status             EquipmentStatus `json:"status"`
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported CRUD operations captured in audit trail.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// Warnings returns the non-blocking violations.
func (r Result) Warnings() []Violation {
	var out []Violation
	for _, v := range r.Violations {
		if v.Severity != SeverityBlock {
			out = append(out, v)
		}
	}
	return out
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	for _, v := range e.Result.Violations {
		if v.Severity == SeverityBlock && v.Message != "" {
			return "transaction blocked by rules: " + v.Message
		}
	}
	return "transaction blocked by rules"
}
