package domain

import "testing"

func TestNetStockDeltaUnionOfMedicines(t *testing.T) {
	before := []PrescribedMedication{{MedicineID: "m1", Quantity: 10}, {MedicineID: "m2", Quantity: 3}}
	after := []PrescribedMedication{{MedicineID: "m1", Quantity: 5}, {MedicineID: "m3", Quantity: 4}}

	lines := NetStockDelta(before, after)
	want := map[string]int{"m1": 5, "m2": 3, "m3": -4}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %+v", len(want), lines)
	}
	for _, line := range lines {
		if want[line.MedicineID] != line.Delta {
			t.Fatalf("medicine %s: expected delta %d, got %d", line.MedicineID, want[line.MedicineID], line.Delta)
		}
	}
	if lines[0].MedicineID != "m1" || lines[2].MedicineID != "m3" {
		t.Fatalf("expected lines sorted by medicine id, got %+v", lines)
	}
}

func TestNetStockDeltaOmitsUnchanged(t *testing.T) {
	same := []PrescribedMedication{{MedicineID: "m1", Quantity: 2}}
	if lines := NetStockDelta(same, same); len(lines) != 0 {
		t.Fatalf("expected no adjustments, got %+v", lines)
	}
	if lines := NetStockDelta(nil, nil); len(lines) != 0 {
		t.Fatalf("expected no adjustments for empty lists, got %+v", lines)
	}
}

func TestNetStockDeltaSumsDuplicateLines(t *testing.T) {
	before := []PrescribedMedication{{MedicineID: "m1", Quantity: 2}, {MedicineID: "m1", Quantity: 3}}
	lines := NetStockDelta(before, nil)
	if len(lines) != 1 || lines[0].Delta != 5 {
		t.Fatalf("expected single +5 line, got %+v", lines)
	}
}

func TestMergePrescriptions(t *testing.T) {
	merged := MergePrescriptions([]PrescribedMedication{
		{MedicineID: "m2", Quantity: 1},
		{MedicineID: "m1", Quantity: 2},
		{MedicineID: "m2", Quantity: 4},
		{MedicineID: "m3", Quantity: 0},
		{MedicineID: "", Quantity: 5},
	})
	if len(merged) != 2 {
		t.Fatalf("expected 2 lines, got %+v", merged)
	}
	if merged[0].MedicineID != "m2" || merged[0].Quantity != 5 {
		t.Fatalf("expected m2 merged to 5 first, got %+v", merged[0])
	}
	if merged[1].MedicineID != "m1" || merged[1].Quantity != 2 {
		t.Fatalf("unexpected second line %+v", merged[1])
	}
	if MergePrescriptions(nil) != nil {
		t.Fatalf("expected nil for empty input")
	}
}
