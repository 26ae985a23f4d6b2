package core

import (
	"context"
	"fmt"
	"sort"

	"hsecore/pkg/domain"
)

const (
	medicineStockRuleName = "medicine_stock"
	// LowStockThreshold is the stock level below which a medicine is reported as running low.
	LowStockThreshold = 10
)

// NewMedicineStockRule warns when a transaction leaves a medicine with
// negative or low stock. Only medicines changed in the transaction are reported.
func NewMedicineStockRule() domain.Rule {
	return medicineStockRule{}
}

type medicineStockRule struct{}

func (medicineStockRule) Name() string { return medicineStockRuleName }

func (medicineStockRule) Evaluate(_ context.Context, view domain.RuleView, changes []domain.Change) (domain.Result, error) {
	touched := make(map[string]struct{})
	for _, c := range changes {
		if c.Entity != domain.EntityMedicine || c.Action == domain.ActionDelete {
			continue
		}
		if m, ok := c.After.(domain.Medicine); ok {
			touched[m.ID] = struct{}{}
		}
	}
	ids := make([]string, 0, len(touched))
	for id := range touched {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	res := domain.Result{}
	for _, id := range ids {
		med, ok := view.FindMedicine(id)
		if !ok {
			continue
		}
		var msg string
		switch {
		case med.Stock < 0:
			msg = fmt.Sprintf("medicine %s stock is negative: %d", med.Name, med.Stock)
		case med.Stock < LowStockThreshold:
			msg = fmt.Sprintf("medicine %s stock is low: %d", med.Name, med.Stock)
		default:
			continue
		}
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     medicineStockRuleName,
			Severity: domain.SeverityWarn,
			Message:  msg,
			Entity:   domain.EntityMedicine,
			EntityID: med.ID,
		})
	}
	return res, nil
}
