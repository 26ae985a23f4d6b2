package core

import (
	"context"

	"hsecore/pkg/domain"
)

// SeedData returns the accounts, personnel and medicines installed by Seed.
func SeedData() ([]User, []Personnel, []Medicine) {
	users := []User{
		{Base: Base{ID: "1"}, Username: "admin", Password: "12345", Roles: []Role{domain.RoleAdmin}},
		{Base: Base{ID: "2"}, Username: "dr_ahmadi", Password: "password", Roles: []Role{domain.RoleOccupationalMedicine, domain.RoleTreatment}},
		{Base: Base{ID: "3"}, Username: "safety_officer", Password: "password", Roles: []Role{domain.RoleSafety}},
		{Base: Base{ID: "4"}, Username: "fire_chief", Password: "password", Roles: []Role{domain.RoleFireDepartment}},
		{Base: Base{ID: "5"}, Username: "env_spec", Password: "password", Roles: []Role{domain.RoleEnvironment}},
	}
	personnel := []Personnel{
		{Base: Base{ID: "p1"}, FirstName: "علی", LastName: "رضایی", NationalID: "1234567890", PersonnelID: "1001", HireDate: "1398/02/15", Position: "اپراتور"},
		{Base: Base{ID: "p2"}, FirstName: "سارا", LastName: "محمدی", NationalID: "0987654321", PersonnelID: "1002", HireDate: "1400/11/01", Position: "تکنسین"},
	}
	medicines := []Medicine{
		{Base: Base{ID: "m1"}, Name: "استامینوفن", Type: "قرص", Stock: 150},
		{Base: Base{ID: "m2"}, Name: "ایبوپروفن", Type: "قرص", Stock: 80},
		{Base: Base{ID: "m3"}, Name: "شربت دیفن هیدرامین", Type: "شربت", Stock: 45},
	}
	return users, personnel, medicines
}

// Seed installs SeedData in one transaction. Records whose id already exists
// are left untouched, so seeding a persisted store is a no-op.
func (s *Service) Seed(ctx context.Context) (Result, error) {
	users, personnel, medicines := SeedData()
	return s.run(ctx, "seed", nil, func(tx Transaction) error {
		view := tx.Snapshot()
		for _, u := range users {
			if _, ok := view.FindUser(u.ID); ok {
				continue
			}
			if _, ok := view.FindUserByUsername(u.Username); ok {
				continue
			}
			if _, err := tx.CreateUser(u); err != nil {
				return err
			}
		}
		for _, p := range personnel {
			if _, ok := view.FindPersonnel(p.ID); ok {
				continue
			}
			if _, err := tx.CreatePersonnel(p); err != nil {
				return err
			}
		}
		for _, m := range medicines {
			if _, ok := view.FindMedicine(m.ID); ok {
				continue
			}
			if _, err := tx.CreateMedicine(m); err != nil {
				return err
			}
		}
		return nil
	})
}
