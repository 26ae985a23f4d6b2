package core

import (
	"context"
	"fmt"

	"hsecore/pkg/domain"
)

const equipmentTypeReferenceRuleName = "fire_equipment_type_reference"

// NewEquipmentTypeReferenceRule blocks transactions that leave fire equipment
// pointing at a missing equipment type. Deleting a type that is still in use
// is rejected this way.
func NewEquipmentTypeReferenceRule() domain.Rule {
	return equipmentTypeReferenceRule{}
}

type equipmentTypeReferenceRule struct{}

func (equipmentTypeReferenceRule) Name() string { return equipmentTypeReferenceRuleName }

func (equipmentTypeReferenceRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	if !touchesEquipment(changes) {
		return domain.Result{}, nil
	}
	deleted := deletedEquipmentTypes(changes)
	inUse := make(map[string]int, len(deleted))
	var order []string
	res := domain.Result{}
	for _, eq := range view.ListFireEquipment() {
		if _, ok := view.FindFireEquipmentType(eq.TypeID); ok {
			continue
		}
		if _, ok := deleted[eq.TypeID]; ok {
			if inUse[eq.TypeID] == 0 {
				order = append(order, eq.TypeID)
			}
			inUse[eq.TypeID]++
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     equipmentTypeReferenceRuleName,
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("equipment %s (%s) references missing type %s", eq.Tag, eq.ID, eq.TypeID),
			Entity:   domain.EntityFireEquipment,
			EntityID: eq.ID,
		})
	}
	for _, id := range order {
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     equipmentTypeReferenceRuleName,
			Severity: domain.SeverityBlock,
			Message:  fmt.Sprintf("type %s is still used by %d equipment", deleted[id], inUse[id]),
			Entity:   domain.EntityFireEquipmentType,
			EntityID: id,
		})
	}
	return res, nil
}

// deletedEquipmentTypes maps the id of every type deleted in changes to its
// display name. The id stands in when the prior record is not attached.
func deletedEquipmentTypes(changes []domain.Change) map[string]string {
	out := make(map[string]string)
	for _, c := range changes {
		if c.Entity != domain.EntityFireEquipmentType || c.Action != domain.ActionDelete {
			continue
		}
		switch before := c.Before.(type) {
		case domain.FireEquipmentType:
			out[before.ID] = typeLabel(before)
		case *domain.FireEquipmentType:
			if before != nil {
				out[before.ID] = typeLabel(*before)
			}
		}
	}
	return out
}

func typeLabel(t domain.FireEquipmentType) string {
	if t.Name == "" {
		return t.ID
	}
	return t.Name
}

func touchesEquipment(changes []domain.Change) bool {
	for _, c := range changes {
		switch c.Entity {
		case domain.EntityFireEquipmentType:
			if c.Action == domain.ActionDelete {
				return true
			}
		case domain.EntityFireEquipment:
			if c.Action != domain.ActionDelete {
				return true
			}
		}
	}
	return false
}
