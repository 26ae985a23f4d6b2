package core

import (
	"context"
	"sort"

	"hsecore/pkg/domain"
)

// CreatePersonnel registers an employee.
func (s *Service) CreatePersonnel(ctx context.Context, p Personnel) (Personnel, Result, error) {
	const op = "create_personnel"
	if err := validatePersonnel(p); err != nil {
		return Personnel{}, Result{}, s.fail(ctx, op, p.ID, err)
	}
	var created Personnel
	res, err := s.run(ctx, op, &created.ID, func(tx Transaction) error {
		var err error
		created, err = tx.CreatePersonnel(p)
		return err
	})
	return created, res, err
}

// UpdatePersonnel mutates an employee record.
func (s *Service) UpdatePersonnel(ctx context.Context, id string, mutator func(*Personnel) error) (Personnel, Result, error) {
	var updated Personnel
	res, err := s.run(ctx, "update_personnel", &id, func(tx Transaction) error {
		var err error
		updated, err = tx.UpdatePersonnel(id, func(p *Personnel) error {
			if err := mutator(p); err != nil {
				return err
			}
			return validatePersonnel(*p)
		})
		return err
	})
	return updated, res, err
}

// GetPersonnel returns one employee.
func (s *Service) GetPersonnel(ctx context.Context, id string) (Personnel, error) {
	var p Personnel
	var ok bool
	if err := s.view(ctx, func(v TransactionView) error {
		p, ok = v.FindPersonnel(id)
		return nil
	}); err != nil {
		return Personnel{}, err
	}
	if !ok {
		return Personnel{}, ErrNotFound{Entity: domain.EntityPersonnel, ID: id}
	}
	return p, nil
}

func sortedPersonnel(list []Personnel) []Personnel {
	sort.SliceStable(list, func(i, j int) bool { return list[i].PersonnelID < list[j].PersonnelID })
	return list
}

// SearchPersonnel matches query against first name, last name, personnel id
// and national id. Results are ordered by personnel id.
func (s *Service) SearchPersonnel(ctx context.Context, query string) ([]Personnel, error) {
	var list []Personnel
	err := s.view(ctx, func(v TransactionView) error {
		list = v.ListPersonnel()
		return nil
	})
	list = filter(list, func(p Personnel) bool {
		return matchesQuery(query, p.FirstName, p.LastName, p.PersonnelID, p.NationalID)
	})
	return sortedPersonnel(list), err
}

// CreateMedicalRecord appends an occupational exam for an existing personnel.
func (s *Service) CreateMedicalRecord(ctx context.Context, r MedicalRecord) (MedicalRecord, Result, error) {
	const op = "create_medical_record"
	if err := validateMedicalRecord(r); err != nil {
		return MedicalRecord{}, Result{}, s.fail(ctx, op, r.ID, err)
	}
	var created MedicalRecord
	res, err := s.run(ctx, op, &created.ID, func(tx Transaction) error {
		var err error
		created, err = tx.CreateMedicalRecord(r)
		return err
	})
	return created, res, err
}

// MedicalRecordsFor returns a personnel's exams, newest exam date first.
func (s *Service) MedicalRecordsFor(ctx context.Context, personnelID string) ([]MedicalRecord, error) {
	var records []MedicalRecord
	err := s.view(ctx, func(v TransactionView) error {
		records = filter(v.ListMedicalRecords(), func(r MedicalRecord) bool { return r.PersonnelID == personnelID })
		return nil
	})
	sort.SliceStable(records, func(i, j int) bool {
		return domain.CompareJalaliStrings(records[i].ExamDate, records[j].ExamDate) > 0
	})
	return records, err
}
