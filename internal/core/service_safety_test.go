package core

import (
	"context"
	"errors"
	"testing"

	"hsecore/pkg/domain"
)

func seedChecklist(t *testing.T, svc *Service) (ChecklistCategory, Checklist) {
	t.Helper()
	ctx := context.Background()
	cat, _, err := svc.CreateChecklistCategory(ctx, ChecklistCategory{Name: "  Workshop  "})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	cl, _, err := svc.CreateChecklist(ctx, Checklist{
		CategoryID: cat.ID,
		Title:      "Grinder inspection",
		Items: []domain.ChecklistItem{
			{Text: "Guard fitted"},
			{Text: "   "},
			{ID: "keep", Text: " Cable intact "},
		},
	})
	if err != nil {
		t.Fatalf("create checklist: %v", err)
	}
	return cat, cl
}

func TestChecklistNormalisesItems(t *testing.T) {
	svc := newSeededService(t)
	cat, cl := seedChecklist(t, svc)

	if cat.Name != "Workshop" {
		t.Fatalf("expected trimmed category name, got %q", cat.Name)
	}
	if len(cl.Items) != 2 {
		t.Fatalf("expected blank item dropped, got %+v", cl.Items)
	}
	if cl.Items[0].ID == "" || cl.Items[0].Text != "Guard fitted" {
		t.Fatalf("expected generated id, got %+v", cl.Items[0])
	}
	if cl.Items[1].ID != "keep" || cl.Items[1].Text != "Cable intact" {
		t.Fatalf("expected kept id and trimmed text, got %+v", cl.Items[1])
	}

	firstID := cl.Items[0].ID
	updated, _, err := svc.UpdateChecklist(context.Background(), cl.ID, func(c *Checklist) error {
		c.Items = append(c.Items, domain.ChecklistItem{Text: "Switch works"})
		return nil
	})
	if err != nil {
		t.Fatalf("update checklist: %v", err)
	}
	if len(updated.Items) != 3 || updated.Items[0].ID != firstID || updated.Items[2].ID == "" {
		t.Fatalf("expected existing ids kept and new id assigned, got %+v", updated.Items)
	}
}

func TestChecklistValidation(t *testing.T) {
	ctx := context.Background()
	svc := newSeededService(t)
	cat, _ := seedChecklist(t, svc)

	if _, _, err := svc.CreateChecklistCategory(ctx, ChecklistCategory{Name: "   "}); err == nil {
		t.Fatalf("expected blank category name to fail")
	}
	if _, _, err := svc.CreateChecklist(ctx, Checklist{CategoryID: cat.ID, Title: "Empty", Items: []domain.ChecklistItem{{Text: " "}}}); err == nil {
		t.Fatalf("expected checklist without items to fail")
	}
	_, _, err := svc.CreateChecklist(ctx, Checklist{CategoryID: "missing", Title: "Orphan", Items: []domain.ChecklistItem{{Text: "x"}}})
	var nf ErrNotFound
	if !errors.As(err, &nf) || nf.Entity != domain.EntityChecklistCategory {
		t.Fatalf("expected category not found, got %v", err)
	}
}

func TestCategoryDeleteCascadesAndKeepsSubmissions(t *testing.T) {
	ctx := context.Background()
	svc := newSeededService(t)
	cat, cl := seedChecklist(t, svc)

	other, _, err := svc.CreateChecklistCategory(ctx, ChecklistCategory{Name: "Office"})
	if err != nil {
		t.Fatalf("create other category: %v", err)
	}
	survivor, _, err := svc.CreateChecklist(ctx, Checklist{CategoryID: other.ID, Title: "Exits", Items: []domain.ChecklistItem{{Text: "Clear"}}})
	if err != nil {
		t.Fatalf("create other checklist: %v", err)
	}

	sub, _, err := svc.CreateChecklistSubmission(ctx, ChecklistSubmission{
		ChecklistID: cl.ID,
		Date:        "1403/07/01",
		Location:    "Hall B",
		PerformedBy: "Safety officer",
		Items: []domain.ChecklistSubmissionItem{
			{ItemID: cl.Items[0].ID, Status: domain.SubmissionPass},
			{ItemID: "keep", Status: domain.SubmissionFail, Comment: "frayed"},
		},
	})
	if err != nil {
		t.Fatalf("create submission: %v", err)
	}
	if title := svc.SubmissionTitle(ctx, sub); title != "Grinder inspection" {
		t.Fatalf("expected checklist title, got %q", title)
	}

	if _, err := svc.DeleteChecklistCategory(ctx, cat.ID); err != nil {
		t.Fatalf("delete category: %v", err)
	}
	remaining, err := svc.ListChecklists(ctx, "")
	if err != nil {
		t.Fatalf("list checklists: %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != survivor.ID {
		t.Fatalf("expected only %s to remain, got %+v", survivor.ID, remaining)
	}
	subs, err := svc.ListSubmissions(ctx)
	if err != nil {
		t.Fatalf("list submissions: %v", err)
	}
	if len(subs) != 1 || subs[0].ID != sub.ID {
		t.Fatalf("expected submission kept, got %+v", subs)
	}
	if title := svc.SubmissionTitle(ctx, subs[0]); title != DeletedChecklistTitle {
		t.Fatalf("expected fallback title, got %q", title)
	}
	found, _ := svc.SearchSubmissions(ctx, "deleted")
	if len(found) != 1 {
		t.Fatalf("expected fallback title to be searchable, got %d", len(found))
	}
}

func TestSubmissionValidation(t *testing.T) {
	ctx := context.Background()
	svc := newSeededService(t)
	_, cl := seedChecklist(t, svc)

	base := ChecklistSubmission{ChecklistID: cl.ID, Date: "1403/07/01", Location: "Hall", PerformedBy: "Officer"}
	cases := []struct {
		name  string
		items []domain.ChecklistSubmissionItem
	}{
		{"unknown item", []domain.ChecklistSubmissionItem{{ItemID: "nope", Status: domain.SubmissionPass}}},
		{"duplicate item", []domain.ChecklistSubmissionItem{{ItemID: "keep", Status: domain.SubmissionPass}, {ItemID: "keep", Status: domain.SubmissionNA}}},
		{"bad status", []domain.ChecklistSubmissionItem{{ItemID: "keep", Status: "maybe"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sub := base
			sub.Items = tc.items
			_, _, err := svc.CreateChecklistSubmission(ctx, sub)
			var verr ValidationError
			if !errors.As(err, &verr) || verr.Field != "items" {
				t.Fatalf("expected items ValidationError, got %v", err)
			}
		})
	}

	missing := base
	missing.ChecklistID = "gone"
	if _, _, err := svc.CreateChecklistSubmission(ctx, missing); !errors.As(err, new(ErrNotFound)) {
		t.Fatalf("expected not found for missing checklist, got %v", err)
	}
	noPerformer := base
	noPerformer.PerformedBy = ""
	if _, _, err := svc.CreateChecklistSubmission(ctx, noPerformer); err == nil {
		t.Fatalf("expected performer to be required")
	}
}

func TestIncidents(t *testing.T) {
	ctx := context.Background()
	svc := newSeededService(t)

	if _, _, err := svc.CreateIncident(ctx, Incident{
		Date: "1403/07/01", Location: "Yard", Description: "Slip", Party: domain.PartyContractor, Severity: domain.SeverityMinor,
	}); err == nil {
		t.Fatalf("expected contractor name to be required")
	}
	first, _, err := svc.CreateIncident(ctx, Incident{
		Date: "1403/05/10 14:00", Location: "Yard", Description: "Slip", Party: domain.PartyComplex, Severity: domain.SeverityMinor, ContractorName: "ignored",
	})
	if err != nil {
		t.Fatalf("create incident: %v", err)
	}
	if first.Status != domain.IncidentOpen || first.ContractorName != "" {
		t.Fatalf("expected open status and no contractor name, got %+v", first)
	}
	second, _, err := svc.CreateIncident(ctx, Incident{
		Date: "1403/06/02 09:00", Location: "Roof", Description: "Fall", Party: domain.PartyContractor, ContractorName: "Acme", Severity: domain.SeveritySerious, Status: domain.IncidentInvestigating,
	})
	if err != nil {
		t.Fatalf("create second incident: %v", err)
	}
	list, err := svc.ListIncidents(ctx)
	if err != nil {
		t.Fatalf("list incidents: %v", err)
	}
	if got := ids(list, func(i Incident) string { return i.ID }); got != second.ID+","+first.ID {
		t.Fatalf("expected newest first, got %s", got)
	}
}

func TestSearchIncidents(t *testing.T) {
	ctx := context.Background()
	svc := newSeededService(t)

	contractor, _, err := svc.CreateIncident(ctx, Incident{
		Date: "1403/06/02", Location: "Roof", Description: "Fall", Party: domain.PartyContractor,
		ContractorName: "Acme Scaffolding", Severity: domain.SeveritySerious,
	})
	if err != nil {
		t.Fatalf("create contractor incident: %v", err)
	}
	complexIncident, _, err := svc.CreateIncident(ctx, Incident{
		Date: "1403/06/05", Location: "Workshop", Description: "Cut hand", Party: domain.PartyComplex,
		Severity: domain.SeverityMinor, CorrectiveActions: "Install GUARD on grinder",
	})
	if err != nil {
		t.Fatalf("create complex incident: %v", err)
	}
	// A complex incident that still carries a contractor name from older data.
	var stale Incident
	if _, err := svc.Store().RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		stale, err = tx.CreateIncident(Incident{
			Date: "1403/06/07", Location: "Gate", Description: "Vehicle scrape", Party: domain.PartyComplex,
			ContractorName: "Acme Haulage", Severity: domain.SeverityMinor, Status: domain.IncidentOpen,
		})
		return err
	}); err != nil {
		t.Fatalf("store stale incident: %v", err)
	}

	tests := []struct {
		query string
		want  string
	}{
		{"", stale.ID + "," + complexIncident.ID + "," + contractor.ID},
		{"acme", contractor.ID},
		{"guard", complexIncident.ID},
		{"ROOF", contractor.ID},
		{"scrape", stale.ID},
		{"haulage", ""},
	}
	for _, tc := range tests {
		list, err := svc.SearchIncidents(ctx, tc.query)
		if err != nil {
			t.Fatalf("search %q: %v", tc.query, err)
		}
		if got := ids(list, func(i Incident) string { return i.ID }); got != tc.want {
			t.Fatalf("search %q: expected %q, got %q", tc.query, tc.want, got)
		}
	}
}
