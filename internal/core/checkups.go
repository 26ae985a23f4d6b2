package core

import (
	"context"
	"sort"

	"hsecore/pkg/domain"
)

// CheckupStatus classifies a personnel's next occupational exam.
type CheckupStatus string

const (
	CheckupOverdue    CheckupStatus = "overdue"
	CheckupDueSoon    CheckupStatus = "dueSoon"
	CheckupNeedsFirst CheckupStatus = "needsFirst"
)

// DefaultDueCheckupLimit caps DueCheckups when no limit is given.
const DefaultDueCheckupLimit = 10

// DueCheckup is one entry of the upcoming exam list.
type DueCheckup struct {
	Personnel    Personnel     `json:"personnel"`
	Status       CheckupStatus `json:"status"`
	NextExamDate string        `json:"next_exam_date,omitempty"`
	RecordID     string        `json:"record_id,omitempty"`
}

// latestRecord returns the record with the greatest exam date.
func latestRecord(records []MedicalRecord) (MedicalRecord, bool) {
	if len(records) == 0 {
		return MedicalRecord{}, false
	}
	latest := records[0]
	for _, r := range records[1:] {
		if domain.CompareJalaliStrings(r.ExamDate, latest.ExamDate) > 0 {
			latest = r
		}
	}
	return latest, true
}

// deriveDueCheckups lists personnel with records by their latest record's
// next exam date, earliest first, followed by personnel without records.
func deriveDueCheckups(personnel []Personnel, records []MedicalRecord, today domain.JalaliDate, limit int) []DueCheckup {
	if limit <= 0 {
		limit = DefaultDueCheckupLimit
	}
	byPersonnel := make(map[string][]MedicalRecord)
	for _, r := range records {
		byPersonnel[r.PersonnelID] = append(byPersonnel[r.PersonnelID], r)
	}

	var scheduled, needsFirst []DueCheckup
	for _, p := range personnel {
		latest, ok := latestRecord(byPersonnel[p.ID])
		if !ok {
			needsFirst = append(needsFirst, DueCheckup{Personnel: p, Status: CheckupNeedsFirst})
			continue
		}
		status := CheckupDueSoon
		if next, err := domain.ParseJalaliDate(latest.NextExamDate); err == nil && next.Before(today) {
			status = CheckupOverdue
		}
		scheduled = append(scheduled, DueCheckup{
			Personnel:    p,
			Status:       status,
			NextExamDate: latest.NextExamDate,
			RecordID:     latest.ID,
		})
	}
	sort.SliceStable(scheduled, func(i, j int) bool {
		a, b := scheduled[i].NextExamDate, scheduled[j].NextExamDate
		if (a == "") != (b == "") {
			return b == ""
		}
		return domain.CompareJalaliStrings(a, b) < 0
	})

	out := append(scheduled, needsFirst...)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// DueCheckups derives the upcoming exam list against today's Jalali date.
func (s *Service) DueCheckups(ctx context.Context, limit int) ([]DueCheckup, error) {
	var personnel []Personnel
	var records []MedicalRecord
	if err := s.view(ctx, func(v TransactionView) error {
		personnel = sortedPersonnel(v.ListPersonnel())
		records = v.ListMedicalRecords()
		return nil
	}); err != nil {
		return nil, err
	}
	return deriveDueCheckups(personnel, records, s.Today(), limit), nil
}
