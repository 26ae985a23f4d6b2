package core

import (
	"context"
	"errors"
	"testing"

	"hsecore/pkg/domain"
)

func TestSearchPersonnel(t *testing.T) {
	ctx := context.Background()
	svc := newSeededService(t)

	cases := []struct {
		query string
		want  string
	}{
		{"", "p1,p2"},
		{"1002", "p2"},
		{"۱۰۰۲", "p2"},
		{"محمدي", "p2"},
		{"0987654321", "p2"},
		{"رضایی", "p1"},
		{"nobody", ""},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			got, err := svc.SearchPersonnel(ctx, tc.query)
			if err != nil {
				t.Fatalf("search: %v", err)
			}
			if ids(got, func(p Personnel) string { return p.ID }) != tc.want {
				t.Fatalf("query %q: expected %q, got %+v", tc.query, tc.want, got)
			}
		})
	}
}

func TestPersonnelValidationAndUpdate(t *testing.T) {
	ctx := context.Background()
	svc := newSeededService(t)

	_, _, err := svc.CreatePersonnel(ctx, Personnel{FirstName: "Nima", LastName: "Azadi", NationalID: "1", PersonnelID: "1003", Position: "Welder"})
	var verr ValidationError
	if !errors.As(err, &verr) || verr.Field != "hire_date" {
		t.Fatalf("expected hire_date ValidationError, got %v", err)
	}

	updated, _, err := svc.UpdatePersonnel(ctx, "p1", func(p *Personnel) error {
		p.Position = "Supervisor"
		return nil
	})
	if err != nil {
		t.Fatalf("update personnel: %v", err)
	}
	if updated.Position != "Supervisor" || updated.ID != "p1" {
		t.Fatalf("unexpected update %+v", updated)
	}
	if _, _, err := svc.UpdatePersonnel(ctx, "p1", func(p *Personnel) error {
		p.LastName = ""
		return nil
	}); err == nil {
		t.Fatalf("expected blank last name to fail")
	}
	got, err := svc.GetPersonnel(ctx, "p1")
	if err != nil || got.LastName == "" {
		t.Fatalf("expected failed update to roll back, got %+v err=%v", got, err)
	}
	if _, err := svc.GetPersonnel(ctx, "p9"); !errors.As(err, new(ErrNotFound)) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMedicalRecords(t *testing.T) {
	ctx := context.Background()
	svc := newSeededService(t)

	if _, _, err := svc.CreateMedicalRecord(ctx, MedicalRecord{ExamDate: "1403/01/10"}); err == nil {
		t.Fatalf("expected personnel to be required")
	}
	if _, _, err := svc.CreateMedicalRecord(ctx, MedicalRecord{PersonnelID: "p9", ExamDate: "1403/01/10"}); !errors.As(err, new(ErrNotFound)) {
		t.Fatalf("expected unknown personnel to fail, got %v", err)
	}
	for _, date := range []string{"1401/03/01", "1403/01/10", "1402/02/20"} {
		if _, _, err := svc.CreateMedicalRecord(ctx, MedicalRecord{PersonnelID: "p1", ExamDate: date}); err != nil {
			t.Fatalf("create record %s: %v", date, err)
		}
	}
	records, err := svc.MedicalRecordsFor(ctx, "p1")
	if err != nil {
		t.Fatalf("records: %v", err)
	}
	if got := ids(records, func(r MedicalRecord) string { return r.ExamDate }); got != "1403/01/10,1402/02/20,1401/03/01" {
		t.Fatalf("expected newest first, got %s", got)
	}
}

func TestDueCheckups(t *testing.T) {
	ctx := context.Background()
	svc := newSeededService(t)

	p3, _, err := svc.CreatePersonnel(ctx, Personnel{FirstName: "Nima", LastName: "Azadi", NationalID: "3", PersonnelID: "1003", HireDate: "1401/01/01", Position: "Welder"})
	if err != nil {
		t.Fatalf("create personnel: %v", err)
	}
	records := []MedicalRecord{
		{PersonnelID: "p1", ExamDate: "1401/06/01", NextExamDate: "1402/06/01"},
		{PersonnelID: "p1", ExamDate: "1402/06/01", NextExamDate: "1403/06/01"},
		{PersonnelID: p3.ID, ExamDate: "1403/01/01", NextExamDate: "1404/01/01"},
	}
	for _, r := range records {
		if _, _, err := svc.CreateMedicalRecord(ctx, r); err != nil {
			t.Fatalf("create record: %v", err)
		}
	}

	due, err := svc.DueCheckups(ctx, 0)
	if err != nil {
		t.Fatalf("due checkups: %v", err)
	}
	want := []struct {
		id     string
		status CheckupStatus
		next   string
	}{
		{"p1", CheckupOverdue, "1403/06/01"},
		{p3.ID, CheckupDueSoon, "1404/01/01"},
		{"p2", CheckupNeedsFirst, ""},
	}
	if len(due) != len(want) {
		t.Fatalf("expected %d entries, got %+v", len(want), due)
	}
	for i, w := range want {
		if due[i].Personnel.ID != w.id || due[i].Status != w.status || due[i].NextExamDate != w.next {
			t.Fatalf("entry %d: expected %+v, got %+v", i, w, due[i])
		}
	}

	limited, _ := svc.DueCheckups(ctx, 1)
	if len(limited) != 1 || limited[0].Personnel.ID != "p1" {
		t.Fatalf("expected limit to truncate, got %+v", limited)
	}
}

func TestDeriveDueCheckupsDefaultLimit(t *testing.T) {
	var personnel []Personnel
	for i := 0; i < 15; i++ {
		personnel = append(personnel, Personnel{Base: Base{ID: string(rune('a' + i))}})
	}
	out := deriveDueCheckups(personnel, nil, domain.MustParseJalaliDate("1403/07/01"), 0)
	if len(out) != DefaultDueCheckupLimit {
		t.Fatalf("expected %d entries, got %d", DefaultDueCheckupLimit, len(out))
	}
	for _, d := range out {
		if d.Status != CheckupNeedsFirst {
			t.Fatalf("expected needsFirst, got %s", d.Status)
		}
	}
}

func TestServiceToday(t *testing.T) {
	svc := NewInMemoryService(nil, WithClock(fixedClock(fixedNow)))
	if got := svc.Today().String(); got != "1403/07/01" {
		t.Fatalf("expected 1403/07/01, got %s", got)
	}
}
