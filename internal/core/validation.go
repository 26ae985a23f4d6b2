package core

import (
	"errors"
	"fmt"
	"strings"

	"hsecore/pkg/domain"
)

var (
	// ErrAccessDenied is returned when a user may not open any tab or the requested one.
	ErrAccessDenied = errors.New("access denied")
	// ErrInvalidCredentials is returned when a username/password pair matches no user.
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// ValidationError reports a required-field or value check that blocked a submission.
type ValidationError struct {
	Entity  EntityType
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Entity, e.Message)
	}
	return fmt.Sprintf("%s.%s: %s", e.Entity, e.Field, e.Message)
}

func invalid(entity EntityType, field, message string) error {
	return ValidationError{Entity: entity, Field: field, Message: message}
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

func validateUser(u User, creating bool) error {
	if blank(u.Username) {
		return invalid(domain.EntityUser, "username", "is required")
	}
	if creating && u.Password == "" {
		return invalid(domain.EntityUser, "password", "is required for new users")
	}
	if len(u.Roles) == 0 {
		return invalid(domain.EntityUser, "roles", "at least one role is required")
	}
	for _, r := range u.Roles {
		if !r.Valid() {
			return invalid(domain.EntityUser, "roles", fmt.Sprintf("unknown role %q", r))
		}
	}
	return nil
}

func validatePersonnel(p Personnel) error {
	required := []struct{ field, value string }{
		{"first_name", p.FirstName},
		{"last_name", p.LastName},
		{"national_id", p.NationalID},
		{"personnel_id", p.PersonnelID},
		{"position", p.Position},
	}
	for _, r := range required {
		if blank(r.value) {
			return invalid(domain.EntityPersonnel, r.field, "is required")
		}
	}
	return validateDate(domain.EntityPersonnel, "hire_date", p.HireDate, true)
}

// validateDate checks a Jalali date field. Visit and incident dates carry a
// trailing time, so only the leading date is parsed.
func validateDate(entity EntityType, field, value string, required bool) error {
	value = strings.TrimSpace(value)
	if value == "" {
		if required {
			return invalid(entity, field, "is required")
		}
		return nil
	}
	datePart, _, _ := strings.Cut(value, " ")
	if _, err := domain.ParseJalaliDate(datePart); err != nil {
		return invalid(entity, field, "must be a YYYY/MM/DD date")
	}
	return nil
}

func validateMedicalRecord(r MedicalRecord) error {
	if blank(r.PersonnelID) {
		return invalid(domain.EntityMedicalRecord, "personnel_id", "select a personnel first")
	}
	if err := validateDate(domain.EntityMedicalRecord, "exam_date", r.ExamDate, true); err != nil {
		return err
	}
	if err := validateDate(domain.EntityMedicalRecord, "next_exam_date", r.NextExamDate, false); err != nil {
		return err
	}
	switch r.PhysicianOpinion.Status {
	case "", domain.FitnessUnrestricted, domain.FitnessConditional:
		return nil
	}
	return invalid(domain.EntityMedicalRecord, "physician_opinion.status", fmt.Sprintf("unknown status %q", r.PhysicianOpinion.Status))
}

func validateVisit(v VisitRecord) error {
	switch v.PatientType {
	case domain.PatientComplex, "":
		if blank(v.PersonnelID) {
			return invalid(domain.EntityVisitRecord, "personnel_id", "complete the patient information")
		}
	case domain.PatientContractor:
		if v.Contractor == nil || blank(v.Contractor.NationalID) {
			return invalid(domain.EntityVisitRecord, "contractor.national_id", "complete the patient information")
		}
	default:
		return invalid(domain.EntityVisitRecord, "patient_type", fmt.Sprintf("unknown patient type %q", v.PatientType))
	}
	if blank(v.Reason) || blank(v.Diagnosis) {
		return invalid(domain.EntityVisitRecord, "reason", "reason and diagnosis are required")
	}
	switch v.ActionResult {
	case "", domain.ActionReturnToWork, domain.ActionReferral, domain.ActionHospitalDispatch:
	default:
		return invalid(domain.EntityVisitRecord, "action_result", fmt.Sprintf("unknown action result %q", v.ActionResult))
	}
	if v.HasElectronicPrescription && blank(v.ElectronicPrescriptionCode) {
		return invalid(domain.EntityVisitRecord, "electronic_prescription_code", "is required when an electronic prescription was issued")
	}
	for _, p := range v.Prescriptions {
		if blank(p.MedicineID) || p.Quantity <= 0 {
			return invalid(domain.EntityVisitRecord, "prescriptions", "invalid medicine line")
		}
	}
	return validateDate(domain.EntityVisitRecord, "visit_date", v.VisitDate, false)
}

func validateMedicine(m Medicine) error {
	if blank(m.Name) || blank(m.Type) {
		return invalid(domain.EntityMedicine, "name", "name and type are required")
	}
	if m.Stock < 0 {
		return invalid(domain.EntityMedicine, "stock", "must not be negative")
	}
	return nil
}

func validateIncident(i Incident) error {
	if blank(i.Location) || blank(i.Description) {
		return invalid(domain.EntityIncident, "location", "location and description are required")
	}
	switch i.Party {
	case domain.PartyComplex:
	case domain.PartyContractor:
		if blank(i.ContractorName) {
			return invalid(domain.EntityIncident, "contractor_name", "is required for contractor incidents")
		}
	default:
		return invalid(domain.EntityIncident, "party", fmt.Sprintf("unknown party %q", i.Party))
	}
	switch i.Severity {
	case domain.SeverityMinor, domain.SeverityModerate, domain.SeveritySerious, domain.SeverityFatal:
	default:
		return invalid(domain.EntityIncident, "severity", fmt.Sprintf("unknown severity %q", i.Severity))
	}
	switch i.Status {
	case "", domain.IncidentOpen, domain.IncidentInvestigating, domain.IncidentClosed:
	default:
		return invalid(domain.EntityIncident, "status", fmt.Sprintf("unknown status %q", i.Status))
	}
	return validateDate(domain.EntityIncident, "date", i.Date, false)
}

func validateCategory(c ChecklistCategory) error {
	if blank(c.Name) {
		return invalid(domain.EntityChecklistCategory, "name", "is required")
	}
	return nil
}

func validateChecklist(c Checklist) error {
	if blank(c.Title) {
		return invalid(domain.EntityChecklist, "title", "is required")
	}
	if blank(c.CategoryID) {
		return invalid(domain.EntityChecklist, "category_id", "is required")
	}
	for _, item := range c.Items {
		if !blank(item.Text) {
			return nil
		}
	}
	return invalid(domain.EntityChecklist, "items", "at least one item with text is required")
}

func validateSubmission(s ChecklistSubmission, checklist Checklist) error {
	if blank(s.Location) || blank(s.PerformedBy) {
		return invalid(domain.EntityChecklistSubmission, "location", "location and performer are required")
	}
	known := make(map[string]bool, len(checklist.Items))
	for _, item := range checklist.Items {
		known[item.ID] = true
	}
	seen := make(map[string]bool, len(s.Items))
	for _, item := range s.Items {
		if !known[item.ItemID] {
			return invalid(domain.EntityChecklistSubmission, "items", fmt.Sprintf("item %q is not on the checklist", item.ItemID))
		}
		if seen[item.ItemID] {
			return invalid(domain.EntityChecklistSubmission, "items", fmt.Sprintf("item %q answered twice", item.ItemID))
		}
		seen[item.ItemID] = true
		switch item.Status {
		case domain.SubmissionPass, domain.SubmissionFail, domain.SubmissionNA:
		default:
			return invalid(domain.EntityChecklistSubmission, "items", fmt.Sprintf("unknown status %q", item.Status))
		}
	}
	return validateDate(domain.EntityChecklistSubmission, "date", s.Date, false)
}

func validateEquipmentType(t FireEquipmentType) error {
	if blank(t.Name) {
		return invalid(domain.EntityFireEquipmentType, "name", "is required")
	}
	return nil
}

func validateEquipment(e FireEquipment) error {
	if blank(e.Tag) || blank(e.Location) {
		return invalid(domain.EntityFireEquipment, "tag", "tag and location are required")
	}
	if blank(e.TypeID) {
		return invalid(domain.EntityFireEquipment, "type_id", "is required")
	}
	switch e.Status {
	case "", domain.EquipmentOperational, domain.EquipmentNeedsService, domain.EquipmentOutOfService:
	default:
		return invalid(domain.EntityFireEquipment, "status", fmt.Sprintf("unknown status %q", e.Status))
	}
	for _, d := range []struct{ field, value string }{
		{"install_date", e.InstallDate},
		{"last_inspection_date", e.LastInspectionDate},
	} {
		if err := validateDate(domain.EntityFireEquipment, d.field, d.value, false); err != nil {
			return err
		}
	}
	return validateDate(domain.EntityFireEquipment, "next_inspection_date", e.NextInspectionDate, true)
}
