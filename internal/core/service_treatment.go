package core

import (
	"context"
	"fmt"
	"sort"

	"hsecore/pkg/domain"
)

// CreateVisitRecord stores a clinic visit and takes its prescriptions from stock
// in the same transaction. Duplicate medicine lines are merged first.
func (s *Service) CreateVisitRecord(ctx context.Context, v VisitRecord) (VisitRecord, Result, error) {
	const op = "create_visit_record"
	if err := validateVisit(v); err != nil {
		return VisitRecord{}, Result{}, s.fail(ctx, op, v.ID, err)
	}
	v.Prescriptions = domain.MergePrescriptions(v.Prescriptions)
	var created VisitRecord
	var movements []domain.StockMovement
	res, err := s.run(ctx, op, &created.ID, func(tx Transaction) error {
		var err error
		created, err = tx.CreateVisitRecord(v)
		if err != nil {
			return err
		}
		movements = stockMovements(tx.Snapshot(), domain.NetStockDelta(nil, created.Prescriptions), created.ID, ActionCreate, s.clock)
		return nil
	})
	if err == nil {
		s.publishStockMovements(ctx, movements)
	}
	return created, res, err
}

// UpdateVisitRecord mutates a visit and applies one net stock adjustment per
// medicine referenced by the old or new prescriptions.
func (s *Service) UpdateVisitRecord(ctx context.Context, id string, mutator func(*VisitRecord) error) (VisitRecord, Result, error) {
	var updated VisitRecord
	var movements []domain.StockMovement
	res, err := s.run(ctx, "update_visit_record", &id, func(tx Transaction) error {
		before, ok := tx.Snapshot().FindVisitRecord(id)
		if !ok {
			return ErrNotFound{Entity: domain.EntityVisitRecord, ID: id}
		}
		var err error
		updated, err = tx.UpdateVisitRecord(id, func(v *VisitRecord) error {
			if err := mutator(v); err != nil {
				return err
			}
			if err := validateVisit(*v); err != nil {
				return err
			}
			v.Prescriptions = domain.MergePrescriptions(v.Prescriptions)
			return nil
		})
		if err != nil {
			return err
		}
		movements = stockMovements(tx.Snapshot(), domain.NetStockDelta(before.Prescriptions, updated.Prescriptions), id, ActionUpdate, s.clock)
		return nil
	})
	if err == nil {
		s.publishStockMovements(ctx, movements)
	}
	return updated, res, err
}

// DeleteVisitRecord removes a visit and returns its prescriptions to stock.
func (s *Service) DeleteVisitRecord(ctx context.Context, id string) (Result, error) {
	var movements []domain.StockMovement
	res, err := s.run(ctx, "delete_visit_record", &id, func(tx Transaction) error {
		before, ok := tx.Snapshot().FindVisitRecord(id)
		if !ok {
			return ErrNotFound{Entity: domain.EntityVisitRecord, ID: id}
		}
		if err := tx.DeleteVisitRecord(id); err != nil {
			return err
		}
		movements = stockMovements(tx.Snapshot(), domain.NetStockDelta(before.Prescriptions, nil), id, ActionDelete, s.clock)
		return nil
	})
	if err == nil {
		s.publishStockMovements(ctx, movements)
	}
	return res, err
}

// ListVisitRecords returns visits newest first.
func (s *Service) ListVisitRecords(ctx context.Context) ([]VisitRecord, error) {
	return s.SearchVisits(ctx, "")
}

// SearchVisits matches query against the patient name, reason and diagnosis.
func (s *Service) SearchVisits(ctx context.Context, query string) ([]VisitRecord, error) {
	var visits []VisitRecord
	err := s.view(ctx, func(v TransactionView) error {
		visits = filter(v.ListVisitRecords(), func(visit VisitRecord) bool {
			return matchesQuery(query, patientName(v, visit), visit.Reason, visit.Diagnosis)
		})
		return nil
	})
	sort.SliceStable(visits, func(i, j int) bool {
		return domain.CompareJalaliStrings(visits[i].VisitDate, visits[j].VisitDate) > 0
	})
	return visits, err
}

func patientName(v TransactionView, visit VisitRecord) string {
	if visit.PatientType == domain.PatientContractor {
		if visit.Contractor == nil {
			return ""
		}
		return domain.Personnel{FirstName: visit.Contractor.FirstName, LastName: visit.Contractor.LastName}.FullName()
	}
	if p, ok := v.FindPersonnel(visit.PersonnelID); ok {
		return p.FullName()
	}
	return ""
}

// CheckPrescription validates adding line to a draft prescription list.
// Available stock counts the quantity already held by the visit being edited
// (visitID, empty for a new visit); the draft's own quantity for the medicine
// is added to the request.
func (s *Service) CheckPrescription(ctx context.Context, visitID string, draft []domain.PrescribedMedication, line domain.PrescribedMedication) error {
	if line.MedicineID == "" || line.Quantity <= 0 {
		return invalid(domain.EntityVisitRecord, "prescriptions", "invalid medicine line")
	}
	requested := domain.PrescribedTotals(draft)[line.MedicineID] + line.Quantity
	return s.view(ctx, func(v TransactionView) error {
		return checkAvailable(v, visitID, line.MedicineID, requested)
	})
}

// CheckPrescriptions validates a complete prescription list before submission.
func (s *Service) CheckPrescriptions(ctx context.Context, visitID string, lines []domain.PrescribedMedication) error {
	for _, line := range lines {
		if line.MedicineID == "" || line.Quantity <= 0 {
			return invalid(domain.EntityVisitRecord, "prescriptions", "invalid medicine line")
		}
	}
	merged := domain.MergePrescriptions(lines)
	return s.view(ctx, func(v TransactionView) error {
		for _, line := range merged {
			if err := checkAvailable(v, visitID, line.MedicineID, line.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
}

func checkAvailable(v TransactionView, visitID, medicineID string, requested int) error {
	med, ok := v.FindMedicine(medicineID)
	if !ok {
		return invalid(domain.EntityVisitRecord, "prescriptions", "invalid medicine line")
	}
	available := med.Stock
	if visitID != "" {
		if visit, ok := v.FindVisitRecord(visitID); ok {
			available += domain.PrescribedTotals(visit.Prescriptions)[medicineID]
		}
	}
	if requested > available {
		return invalid(domain.EntityVisitRecord, "prescriptions", fmt.Sprintf("insufficient stock for %q", med.Name))
	}
	return nil
}

// CreateMedicine adds a pharmacy item.
func (s *Service) CreateMedicine(ctx context.Context, m Medicine) (Medicine, Result, error) {
	const op = "create_medicine"
	if err := validateMedicine(m); err != nil {
		return Medicine{}, Result{}, s.fail(ctx, op, m.ID, err)
	}
	var created Medicine
	res, err := s.run(ctx, op, &created.ID, func(tx Transaction) error {
		var err error
		created, err = tx.CreateMedicine(m)
		return err
	})
	return created, res, err
}

// UpdateMedicine edits a pharmacy item, including a direct stock correction.
func (s *Service) UpdateMedicine(ctx context.Context, id string, mutator func(*Medicine) error) (Medicine, Result, error) {
	var updated Medicine
	res, err := s.run(ctx, "update_medicine", &id, func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateMedicine(id, func(m *Medicine) error {
			if err := mutator(m); err != nil {
				return err
			}
			return validateMedicine(*m)
		})
		return err
	})
	return updated, res, err
}

// GetMedicine returns one pharmacy item.
func (s *Service) GetMedicine(ctx context.Context, id string) (Medicine, error) {
	var m Medicine
	var ok bool
	if err := s.view(ctx, func(v TransactionView) error {
		m, ok = v.FindMedicine(id)
		return nil
	}); err != nil {
		return Medicine{}, err
	}
	if !ok {
		return Medicine{}, ErrNotFound{Entity: domain.EntityMedicine, ID: id}
	}
	return m, nil
}

// SearchMedicines matches query against name and type; results are ordered by name.
func (s *Service) SearchMedicines(ctx context.Context, query string) ([]Medicine, error) {
	var meds []Medicine
	err := s.view(ctx, func(v TransactionView) error {
		meds = filter(v.ListMedicines(), func(m Medicine) bool { return matchesQuery(query, m.Name, m.Type) })
		return nil
	})
	sort.SliceStable(meds, func(i, j int) bool { return meds[i].Name < meds[j].Name })
	return meds, err
}
