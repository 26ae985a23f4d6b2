package core

import (
	"context"
	"sort"
	"strings"

	"hsecore/pkg/domain"
)

// CreateFireEquipmentType adds an equipment type.
func (s *Service) CreateFireEquipmentType(ctx context.Context, t FireEquipmentType) (FireEquipmentType, Result, error) {
	const op = "create_fire_equipment_type"
	t.Name = strings.TrimSpace(t.Name)
	if err := validateEquipmentType(t); err != nil {
		return FireEquipmentType{}, Result{}, s.fail(ctx, op, t.ID, err)
	}
	var created FireEquipmentType
	res, err := s.run(ctx, op, &created.ID, func(tx Transaction) error {
		var err error
		created, err = tx.CreateFireEquipmentType(t)
		return err
	})
	return created, res, err
}

// UpdateFireEquipmentType renames an equipment type.
func (s *Service) UpdateFireEquipmentType(ctx context.Context, id string, mutator func(*FireEquipmentType) error) (FireEquipmentType, Result, error) {
	var updated FireEquipmentType
	res, err := s.run(ctx, "update_fire_equipment_type", &id, func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateFireEquipmentType(id, func(t *FireEquipmentType) error {
			if err := mutator(t); err != nil {
				return err
			}
			t.Name = strings.TrimSpace(t.Name)
			return validateEquipmentType(*t)
		})
		return err
	})
	return updated, res, err
}

// DeleteFireEquipmentType removes an equipment type. The delete is rejected
// with a RuleViolationError while any equipment still references the type.
func (s *Service) DeleteFireEquipmentType(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, "delete_fire_equipment_type", &id, func(tx Transaction) error {
		return tx.DeleteFireEquipmentType(id)
	})
}

// ListFireEquipmentTypes returns equipment types ordered by name.
func (s *Service) ListFireEquipmentTypes(ctx context.Context) ([]FireEquipmentType, error) {
	var list []FireEquipmentType
	err := s.view(ctx, func(v TransactionView) error {
		list = v.ListFireEquipmentTypes()
		return nil
	})
	sort.SliceStable(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list, err
}

func requireEquipmentType(v TransactionView, typeID string) error {
	if _, ok := v.FindFireEquipmentType(typeID); !ok {
		return ErrNotFound{Entity: domain.EntityFireEquipmentType, ID: typeID}
	}
	return nil
}

// CreateFireEquipment adds an inventory item of an existing type.
func (s *Service) CreateFireEquipment(ctx context.Context, e FireEquipment) (FireEquipment, Result, error) {
	const op = "create_fire_equipment"
	if err := validateEquipment(e); err != nil {
		return FireEquipment{}, Result{}, s.fail(ctx, op, e.ID, err)
	}
	var created FireEquipment
	res, err := s.run(ctx, op, &created.ID, func(tx Transaction) error {
		if err := requireEquipmentType(tx.Snapshot(), e.TypeID); err != nil {
			return err
		}
		var err error
		created, err = tx.CreateFireEquipment(e)
		return err
	})
	return created, res, err
}

// UpdateFireEquipment edits an inventory item, e.g. after an inspection.
func (s *Service) UpdateFireEquipment(ctx context.Context, id string, mutator func(*FireEquipment) error) (FireEquipment, Result, error) {
	var updated FireEquipment
	res, err := s.run(ctx, "update_fire_equipment", &id, func(tx Transaction) error {
		view := tx.Snapshot()
		var err error
		updated, err = tx.UpdateFireEquipment(id, func(e *FireEquipment) error {
			if err := mutator(e); err != nil {
				return err
			}
			if err := validateEquipment(*e); err != nil {
				return err
			}
			return requireEquipmentType(view, e.TypeID)
		})
		return err
	})
	return updated, res, err
}

// DeleteFireEquipment removes an inventory item.
func (s *Service) DeleteFireEquipment(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, "delete_fire_equipment", &id, func(tx Transaction) error {
		return tx.DeleteFireEquipment(id)
	})
}

// ListFireEquipment returns equipment ordered by next inspection date, soonest first.
func (s *Service) ListFireEquipment(ctx context.Context) ([]FireEquipment, error) {
	return s.SearchEquipment(ctx, "")
}

// SearchEquipment matches query against tag, location and type name.
func (s *Service) SearchEquipment(ctx context.Context, query string) ([]FireEquipment, error) {
	var list []FireEquipment
	err := s.view(ctx, func(v TransactionView) error {
		list = filter(v.ListFireEquipment(), func(e FireEquipment) bool {
			typeName := ""
			if t, ok := v.FindFireEquipmentType(e.TypeID); ok {
				typeName = t.Name
			}
			return matchesQuery(query, e.Tag, e.Location, typeName)
		})
		return nil
	})
	sort.SliceStable(list, func(i, j int) bool {
		return domain.CompareJalaliStrings(list[i].NextInspectionDate, list[j].NextInspectionDate) < 0
	})
	return list, err
}
