package domain

import (
	"sort"
	"time"
)

// StockLine is a net stock adjustment for one medicine.
type StockLine struct {
	MedicineID string
	Delta      int
}

// PrescribedTotals sums prescribed quantities per medicine.
func PrescribedTotals(lines []PrescribedMedication) map[string]int {
	totals := make(map[string]int, len(lines))
	for _, line := range lines {
		totals[line.MedicineID] += line.Quantity
	}
	return totals
}

// NetStockDelta computes one stock adjustment per medicine for replacing the
// prescriptions in before with those in after: old quantity given back minus
// new quantity taken. Medicines whose delta is zero are omitted. Lines are
// sorted by medicine id.
func NetStockDelta(before, after []PrescribedMedication) []StockLine {
	delta := PrescribedTotals(before)
	for id, qty := range PrescribedTotals(after) {
		delta[id] -= qty
	}
	out := make([]StockLine, 0, len(delta))
	for id, d := range delta {
		if d == 0 {
			continue
		}
		out = append(out, StockLine{MedicineID: id, Delta: d})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MedicineID < out[j].MedicineID })
	return out
}

// MergePrescriptions folds duplicate medicine lines into one line per
// medicine, keeping first-seen order. Lines with non-positive quantity are dropped.
func MergePrescriptions(lines []PrescribedMedication) []PrescribedMedication {
	if len(lines) == 0 {
		return nil
	}
	index := make(map[string]int, len(lines))
	out := make([]PrescribedMedication, 0, len(lines))
	for _, line := range lines {
		if line.MedicineID == "" || line.Quantity <= 0 {
			continue
		}
		if i, ok := index[line.MedicineID]; ok {
			out[i].Quantity += line.Quantity
			continue
		}
		index[line.MedicineID] = len(out)
		out = append(out, line)
	}
	return out
}

// StockMovement reports one committed stock change caused by a visit.
type StockMovement struct {
	MedicineID string    `json:"medicine_id"`
	Delta      int       `json:"delta"`
	Stock      int       `json:"stock"`
	VisitID    string    `json:"visit_id"`
	Reason     Action    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
}
