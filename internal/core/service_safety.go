package core

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"hsecore/pkg/domain"
)

// DeletedChecklistTitle is shown for submissions whose checklist was removed.
const DeletedChecklistTitle = "deleted checklist"

// CreateIncident appends an incident log entry. Status defaults to open.
func (s *Service) CreateIncident(ctx context.Context, i Incident) (Incident, Result, error) {
	const op = "create_incident"
	if err := validateIncident(i); err != nil {
		return Incident{}, Result{}, s.fail(ctx, op, i.ID, err)
	}
	if i.Party != domain.PartyContractor {
		i.ContractorName = ""
	}
	var created Incident
	res, err := s.run(ctx, op, &created.ID, func(tx Transaction) error {
		var err error
		created, err = tx.CreateIncident(i)
		return err
	})
	return created, res, err
}

// ListIncidents returns incidents newest first.
func (s *Service) ListIncidents(ctx context.Context) ([]Incident, error) {
	return s.SearchIncidents(ctx, "")
}

// SearchIncidents matches query against location, description and corrective
// actions, and against the contractor name of contractor incidents.
func (s *Service) SearchIncidents(ctx context.Context, query string) ([]Incident, error) {
	var list []Incident
	err := s.view(ctx, func(v TransactionView) error {
		list = filter(v.ListIncidents(), func(i Incident) bool {
			contractor := ""
			if i.Party == domain.PartyContractor {
				contractor = i.ContractorName
			}
			return matchesQuery(query, i.Location, i.Description, i.CorrectiveActions, contractor)
		})
		return nil
	})
	sort.SliceStable(list, func(i, j int) bool { return domain.CompareJalaliStrings(list[i].Date, list[j].Date) > 0 })
	return list, err
}

// CreateChecklistCategory adds a checklist grouping.
func (s *Service) CreateChecklistCategory(ctx context.Context, c ChecklistCategory) (ChecklistCategory, Result, error) {
	const op = "create_checklist_category"
	c.Name = strings.TrimSpace(c.Name)
	if err := validateCategory(c); err != nil {
		return ChecklistCategory{}, Result{}, s.fail(ctx, op, c.ID, err)
	}
	var created ChecklistCategory
	res, err := s.run(ctx, op, &created.ID, func(tx Transaction) error {
		var err error
		created, err = tx.CreateChecklistCategory(c)
		return err
	})
	return created, res, err
}

// UpdateChecklistCategory renames a category.
func (s *Service) UpdateChecklistCategory(ctx context.Context, id string, mutator func(*ChecklistCategory) error) (ChecklistCategory, Result, error) {
	var updated ChecklistCategory
	res, err := s.run(ctx, "update_checklist_category", &id, func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateChecklistCategory(id, func(c *ChecklistCategory) error {
			if err := mutator(c); err != nil {
				return err
			}
			c.Name = strings.TrimSpace(c.Name)
			return validateCategory(*c)
		})
		return err
	})
	return updated, res, err
}

// DeleteChecklistCategory removes a category together with its checklists.
// Submissions of those checklists are kept.
func (s *Service) DeleteChecklistCategory(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, "delete_checklist_category", &id, func(tx Transaction) error {
		return tx.DeleteChecklistCategory(id)
	})
}

// ListChecklistCategories returns categories in creation order.
func (s *Service) ListChecklistCategories(ctx context.Context) ([]ChecklistCategory, error) {
	var list []ChecklistCategory
	err := s.view(ctx, func(v TransactionView) error {
		list = v.ListChecklistCategories()
		return nil
	})
	return list, err
}

// normalizeChecklist trims the title, drops items without text and assigns
// ids to new items. Existing item ids are kept so submissions stay valid.
func normalizeChecklist(c *Checklist) {
	c.Title = strings.TrimSpace(c.Title)
	items := make([]domain.ChecklistItem, 0, len(c.Items))
	for _, item := range c.Items {
		item.Text = strings.TrimSpace(item.Text)
		if item.Text == "" {
			continue
		}
		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		items = append(items, item)
	}
	c.Items = items
}

// CreateChecklist adds a checklist to an existing category.
func (s *Service) CreateChecklist(ctx context.Context, c Checklist) (Checklist, Result, error) {
	const op = "create_checklist"
	normalizeChecklist(&c)
	if err := validateChecklist(c); err != nil {
		return Checklist{}, Result{}, s.fail(ctx, op, c.ID, err)
	}
	var created Checklist
	res, err := s.run(ctx, op, &created.ID, func(tx Transaction) error {
		var err error
		created, err = tx.CreateChecklist(c)
		return err
	})
	return created, res, err
}

// UpdateChecklist edits a checklist's title, category or items.
func (s *Service) UpdateChecklist(ctx context.Context, id string, mutator func(*Checklist) error) (Checklist, Result, error) {
	var updated Checklist
	res, err := s.run(ctx, "update_checklist", &id, func(tx Transaction) error {
		var err error
		updated, err = tx.UpdateChecklist(id, func(c *Checklist) error {
			if err := mutator(c); err != nil {
				return err
			}
			normalizeChecklist(c)
			return validateChecklist(*c)
		})
		return err
	})
	return updated, res, err
}

// DeleteChecklist removes one checklist. Its submissions are kept.
func (s *Service) DeleteChecklist(ctx context.Context, id string) (Result, error) {
	return s.run(ctx, "delete_checklist", &id, func(tx Transaction) error {
		return tx.DeleteChecklist(id)
	})
}

// ListChecklists returns checklists, optionally restricted to one category.
func (s *Service) ListChecklists(ctx context.Context, categoryID string) ([]Checklist, error) {
	var list []Checklist
	err := s.view(ctx, func(v TransactionView) error {
		list = filter(v.ListChecklists(), func(c Checklist) bool {
			return categoryID == "" || c.CategoryID == categoryID
		})
		return nil
	})
	return list, err
}

// CreateChecklistSubmission records a performed checklist. Every answered
// item must belong to the checklist and carry a pass, fail or na status.
func (s *Service) CreateChecklistSubmission(ctx context.Context, sub ChecklistSubmission) (ChecklistSubmission, Result, error) {
	const op = "create_checklist_submission"
	var created ChecklistSubmission
	res, err := s.run(ctx, op, &created.ID, func(tx Transaction) error {
		checklist, ok := tx.Snapshot().FindChecklist(sub.ChecklistID)
		if !ok {
			return ErrNotFound{Entity: domain.EntityChecklist, ID: sub.ChecklistID}
		}
		if err := validateSubmission(sub, checklist); err != nil {
			return err
		}
		var err error
		created, err = tx.CreateChecklistSubmission(sub)
		return err
	})
	return created, res, err
}

// SubmissionTitle returns the title of the submission's checklist, or
// DeletedChecklistTitle when it no longer exists.
func (s *Service) SubmissionTitle(ctx context.Context, sub ChecklistSubmission) string {
	title := DeletedChecklistTitle
	_ = s.view(ctx, func(v TransactionView) error {
		title = submissionTitle(v, sub)
		return nil
	})
	return title
}

func submissionTitle(v TransactionView, sub ChecklistSubmission) string {
	if c, ok := v.FindChecklist(sub.ChecklistID); ok {
		return c.Title
	}
	return DeletedChecklistTitle
}

// ListSubmissions returns submissions newest first.
func (s *Service) ListSubmissions(ctx context.Context) ([]ChecklistSubmission, error) {
	return s.SearchSubmissions(ctx, "")
}

// SearchSubmissions matches query against checklist title, location and performer.
func (s *Service) SearchSubmissions(ctx context.Context, query string) ([]ChecklistSubmission, error) {
	var list []ChecklistSubmission
	err := s.view(ctx, func(v TransactionView) error {
		list = filter(v.ListChecklistSubmissions(), func(sub ChecklistSubmission) bool {
			return matchesQuery(query, submissionTitle(v, sub), sub.Location, sub.PerformedBy)
		})
		return nil
	})
	sort.SliceStable(list, func(i, j int) bool { return domain.CompareJalaliStrings(list[i].Date, list[j].Date) > 0 })
	return list, err
}
