package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"hsecore/internal/blob"
	"hsecore/internal/core"
	"hsecore/pkg/domain"
)

type routeGate = func(core.User) error

func (h *Handler) personnelRoutes(g routeGate) {
	h.mux.HandleFunc("GET /api/v1/personnel", h.guard(g, func(w http.ResponseWriter, r *http.Request, _ core.User) {
		list, err := h.svc.SearchPersonnel(r.Context(), r.URL.Query().Get("q"))
		h.list(w, r, "personnel", list, err)
	}))
	h.mux.HandleFunc("POST /api/v1/personnel", h.guard(g, func(w http.ResponseWriter, r *http.Request, _ core.User) {
		var in core.Personnel
		if !h.decode(w, r, &in) {
			return
		}
		created, res, err := h.svc.CreatePersonnel(r.Context(), in)
		h.created(w, r, "personnel", created, res, err, "personnel added")
	}))
	h.mux.HandleFunc("GET /api/v1/personnel/{id}", h.guard(g, func(w http.ResponseWriter, r *http.Request, _ core.User) {
		p, err := h.svc.GetPersonnel(r.Context(), r.PathValue("id"))
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"personnel": p})
	}))
	h.mux.HandleFunc("PUT /api/v1/personnel/{id}", h.guard(g, func(w http.ResponseWriter, r *http.Request, _ core.User) {
		var in core.Personnel
		if !h.decode(w, r, &in) {
			return
		}
		updated, res, err := h.svc.UpdatePersonnel(r.Context(), r.PathValue("id"), replace(in, func(p *core.Personnel) *core.Base { return &p.Base }))
		h.updated(w, r, "personnel", updated, res, err, "personnel updated")
	}))
	h.mux.HandleFunc("GET /api/v1/personnel/{id}/medical-records", h.guard(g, func(w http.ResponseWriter, r *http.Request, _ core.User) {
		records, err := h.svc.MedicalRecordsFor(r.Context(), r.PathValue("id"))
		h.list(w, r, "medical_records", records, err)
	}))
	h.mux.HandleFunc("POST /api/v1/medical-records", h.guard(g, func(w http.ResponseWriter, r *http.Request, _ core.User) {
		var in core.MedicalRecord
		if !h.decode(w, r, &in) {
			return
		}
		created, res, err := h.svc.CreateMedicalRecord(r.Context(), in)
		h.created(w, r, "medical_record", created, res, err, "medical record saved")
	}))
	h.mux.HandleFunc("GET /api/v1/checkups/due", h.guard(g, func(w http.ResponseWriter, r *http.Request, _ core.User) {
		limit := 0
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				h.writeError(w, r, core.ValidationError{Entity: domain.EntityMedicalRecord, Field: "limit", Message: "must be a number"})
				return
			}
			limit = n
		}
		due, err := h.svc.DueCheckups(r.Context(), limit)
		h.list(w, r, "checkups", due, err)
	}))
}

func (h *Handler) treatmentRoutes(g routeGate) {
	h.mux.HandleFunc("GET /api/v1/visits", h.guard(g, func(w http.ResponseWriter, r *http.Request, _ core.User) {
		visits, err := h.svc.SearchVisits(r.Context(), r.URL.Query().Get("q"))
		h.list(w, r, "visits", visits, err)
	}))
	h.mux.HandleFunc("POST /api/v1/visits", h.guard(g, func(w http.ResponseWriter, r *http.Request, _ core.User) {
		var in core.VisitRecord
		if !h.decode(w, r, &in) {
			return
		}
		created, res, err := h.svc.CreateVisitRecord(r.Context(), in)
		h.created(w, r, "visit", created, res, err, "visit saved")
	}))
	h.mux.HandleFunc("PUT /api/v1/visits/{id}", h.guard(g, func(w http.ResponseWriter, r *http.Request, _ core.User) {
		var in core.VisitRecord
		if !h.decode(w, r, &in) {
			return
		}
		updated, res, err := h.svc.UpdateVisitRecord(r.Context(), r.PathValue("id"), replace(in, func(v *core.VisitRecord) *core.Base { return &v.Base }))
		h.updated(w, r, "visit", updated, res, err, "visit updated")
	}))
	h.mux.HandleFunc("DELETE /api/v1/visits/{id}", h.guard(g, func(w http.ResponseWriter, r *http.Request, _ core.User) {
		res, err := h.svc.DeleteVisitRecord(r.Context(), r.PathValue("id"))
		h.deleted(w, r, r.PathValue("id"), res, err, "visit deleted")
	}))
	h.mux.HandleFunc("POST /api/v1/prescription-checks", h.guard(g, func(w http.ResponseWriter, r *http.Request, _ core.User) {
		var req struct {
			VisitID string                        `json:"visit_id"`
			Draft   []domain.PrescribedMedication `json:"draft"`
			Line    *domain.PrescribedMedication  `json:"line"`
			Lines   []domain.PrescribedMedication `json:"lines"`
		}
		if !h.decode(w, r, &req) {
			return
		}
		var err error
		if req.Line != nil {
			err = h.svc.CheckPrescription(r.Context(), req.VisitID, req.Draft, *req.Line)
		} else {
			err = h.svc.CheckPrescriptions(r.Context(), req.VisitID, req.Lines)
		}
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	}))
	h.mux.HandleFunc("GET /api/v1/medicines", h.guard(g, func(w http.ResponseWriter, r *http.Request, _ core.User) {
		meds, err := h.svc.SearchMedicines(r.Context(), r.URL.Query().Get("q"))
		h.list(w, r, "medicines", meds, err)
	}))
	h.mux.HandleFunc("POST /api/v1/medicines", h.guard(g, func(w http.ResponseWriter, r *http.Request, _ core.User) {
		var in core.Medicine
		if !h.decode(w, r, &in) {
			return
		}
		created, res, err := h.svc.CreateMedicine(r.Context(), in)
		h.created(w, r, "medicine", created, res, err, "medicine added")
	}))
	h.mux.HandleFunc("GET /api/v1/medicines/{id}", h.guard(g, func(w http.ResponseWriter, r *http.Request, _ core.User) {
		m, err := h.svc.GetMedicine(r.Context(), r.PathValue("id"))
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"medicine": m})
	}))
	h.mux.HandleFunc("PUT /api/v1/medicines/{id}", h.guard(g, func(w http.ResponseWriter, r *http.Request, _ core.User) {
		var in core.Medicine
		if !h.decode(w, r, &in) {
			return
		}
		updated, res, err := h.svc.UpdateMedicine(r.Context(), r.PathValue("id"), replace(in, func(m *core.Medicine) *core.Base { return &m.Base }))
		h.updated(w, r, "medicine", updated, res, err, "medicine updated")
	}))
}

type submissionView struct {
	core.ChecklistSubmission
	ChecklistTitle string `json:"checklist_title"`
}

func (h *Handler) safetyRoutes(g routeGate) {
	h.mux.HandleFunc("GET /api/v1/incidents", h.guard(g, func(w http.ResponseWriter, r *http.Request, _ core.User) {
		list, err := h.svc.SearchIncidents(r.Context(), r.URL.Query().Get("q"))
		h.list(w, r, "incidents", list, err)
	}))
	h.mux.HandleFunc("POST /api/v1/incidents", h.guard(g, func(w http.ResponseWriter, r *http.Request, _ core.User) {
		var in core.Incident
		if !h.decode(w, r, &in) {
			return
		}
		created, res, err := h.svc.CreateIncident(r.Context(), in)
		h.created(w, r, "incident", created, res, err, "incident recorded")
	}))

	h.mux.HandleFunc("GET /api/v1/checklist-categories", h.guard(g, func(w http.ResponseWriter, r *http.Request, _ core.User) {
		list, err := h.svc.ListChecklistCategories(r.Context())
		h.list(w, r, "categories", list, err)
	}))
	h.mux.HandleFunc("POST /api/v1/checklist-categories", h.guard(g, func(w http.ResponseWriter, r *http.Request, _ core.User) {
		var in core.ChecklistCategory
		if !h.decode(w, r, &in) {
			return
		}
		created, res, err := h.svc.CreateChecklistCategory(r.Context(), in)
		h.created(w, r, "category", created, res, err, "category added")
	}))
	h.mux.HandleFunc("PUT /api/v1/checklist-categories/{id}", h.guard(g, func(w http.ResponseWriter, r *http.Request, _ core.User) {
		var in core.ChecklistCategory
		if !h.decode(w, r, &in) {
			return
		}
		updated, res, err := h.svc.UpdateChecklistCategory(r.Context(), r.PathValue("id"), replace(in, func(c *core.ChecklistCategory) *core.Base { return &c.Base }))
		h.updated(w, r, "category", updated, res, err, "category updated")
	}))
	h.mux.HandleFunc("DELETE /api/v1/checklist-categories/{id}", h.guard(g, func(w http.ResponseWriter, r *http.Request, _ core.User) {
		res, err := h.svc.DeleteChecklistCategory(r.Context(), r.PathValue("id"))
		h.deleted(w, r, r.PathValue("id"), res, err, "category and its checklists deleted")
	}))

	h.mux.HandleFunc("GET /api/v1/checklists", h.guard(g, func(w http.ResponseWriter, r *http.Request, _ core.User) {
		list, err := h.svc.ListChecklists(r.Context(), r.URL.Query().Get("category_id"))
		h.list(w, r, "checklists", list, err)
	}))
	h.mux.HandleFunc("POST /api/v1/checklists", h.guard(g, func(w http.ResponseWriter, r *http.Request, _ core.User) {
		var in core.Checklist
		if !h.decode(w, r, &in) {
			return
		}
		created, res, err := h.svc.CreateChecklist(r.Context(), in)
		h.created(w, r, "checklist", created, res, err, "checklist added")
	}))
	h.mux.HandleFunc("PUT /api/v1/checklists/{id}", h.guard(g, func(w http.ResponseWriter, r *http.Request, _ core.User) {
		var in core.Checklist
		if !h.decode(w, r, &in) {
			return
		}
		updated, res, err := h.svc.UpdateChecklist(r.Context(), r.PathValue("id"), replace(in, func(c *core.Checklist) *core.Base { return &c.Base }))
		h.updated(w, r, "checklist", updated, res, err, "checklist updated")
	}))
	h.mux.HandleFunc("DELETE /api/v1/checklists/{id}", h.guard(g, func(w http.ResponseWriter, r *http.Request, _ core.User) {
		res, err := h.svc.DeleteChecklist(r.Context(), r.PathValue("id"))
		h.deleted(w, r, r.PathValue("id"), res, err, "checklist deleted")
	}))

	h.mux.HandleFunc("GET /api/v1/submissions", h.guard(g, func(w http.ResponseWriter, r *http.Request, _ core.User) {
		list, err := h.svc.SearchSubmissions(r.Context(), r.URL.Query().Get("q"))
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		views := make([]submissionView, 0, len(list))
		for _, sub := range list {
			views = append(views, submissionView{ChecklistSubmission: sub, ChecklistTitle: h.svc.SubmissionTitle(r.Context(), sub)})
		}
		writeJSON(w, http.StatusOK, map[string]any{"submissions": views})
	}))
	h.mux.HandleFunc("POST /api/v1/submissions", h.guard(g, func(w http.ResponseWriter, r *http.Request, _ core.User) {
		var in core.ChecklistSubmission
		if !h.decode(w, r, &in) {
			return
		}
		created, res, err := h.svc.CreateChecklistSubmission(r.Context(), in)
		h.created(w, r, "submission", created, res, err, "checklist submitted")
	}))
}

func (h *Handler) fireRoutes(g routeGate) {
	h.mux.HandleFunc("GET /api/v1/fire-equipment-types", h.guard(g, func(w http.ResponseWriter, r *http.Request, _ core.User) {
		list, err := h.svc.ListFireEquipmentTypes(r.Context())
		h.list(w, r, "types", list, err)
	}))
	h.mux.HandleFunc("POST /api/v1/fire-equipment-types", h.guard(g, func(w http.ResponseWriter, r *http.Request, _ core.User) {
		var in core.FireEquipmentType
		if !h.decode(w, r, &in) {
			return
		}
		created, res, err := h.svc.CreateFireEquipmentType(r.Context(), in)
		h.created(w, r, "type", created, res, err, "equipment type added")
	}))
	h.mux.HandleFunc("PUT /api/v1/fire-equipment-types/{id}", h.guard(g, func(w http.ResponseWriter, r *http.Request, _ core.User) {
		var in core.FireEquipmentType
		if !h.decode(w, r, &in) {
			return
		}
		updated, res, err := h.svc.UpdateFireEquipmentType(r.Context(), r.PathValue("id"), replace(in, func(t *core.FireEquipmentType) *core.Base { return &t.Base }))
		h.updated(w, r, "type", updated, res, err, "equipment type updated")
	}))
	h.mux.HandleFunc("DELETE /api/v1/fire-equipment-types/{id}", h.guard(g, func(w http.ResponseWriter, r *http.Request, _ core.User) {
		res, err := h.svc.DeleteFireEquipmentType(r.Context(), r.PathValue("id"))
		h.deleted(w, r, r.PathValue("id"), res, err, "equipment type deleted")
	}))

	h.mux.HandleFunc("GET /api/v1/fire-equipment", h.guard(g, func(w http.ResponseWriter, r *http.Request, _ core.User) {
		list, err := h.svc.SearchEquipment(r.Context(), r.URL.Query().Get("q"))
		h.list(w, r, "equipment", list, err)
	}))
	h.mux.HandleFunc("POST /api/v1/fire-equipment", h.guard(g, func(w http.ResponseWriter, r *http.Request, _ core.User) {
		var in core.FireEquipment
		if !h.decode(w, r, &in) {
			return
		}
		created, res, err := h.svc.CreateFireEquipment(r.Context(), in)
		h.created(w, r, "equipment", created, res, err, "equipment added")
	}))
	h.mux.HandleFunc("PUT /api/v1/fire-equipment/{id}", h.guard(g, func(w http.ResponseWriter, r *http.Request, _ core.User) {
		var in core.FireEquipment
		if !h.decode(w, r, &in) {
			return
		}
		updated, res, err := h.svc.UpdateFireEquipment(r.Context(), r.PathValue("id"), replace(in, func(e *core.FireEquipment) *core.Base { return &e.Base }))
		h.updated(w, r, "equipment", updated, res, err, "equipment updated")
	}))
	h.mux.HandleFunc("DELETE /api/v1/fire-equipment/{id}", h.guard(g, func(w http.ResponseWriter, r *http.Request, _ core.User) {
		res, err := h.svc.DeleteFireEquipment(r.Context(), r.PathValue("id"))
		h.deleted(w, r, r.PathValue("id"), res, err, "equipment deleted")
	}))
}

func (h *Handler) adminRoutes(g routeGate) {
	h.mux.HandleFunc("GET /api/v1/users", h.guard(g, func(w http.ResponseWriter, r *http.Request, _ core.User) {
		users, err := h.svc.ListUsers(r.Context())
		h.list(w, r, "users", users, err)
	}))
	h.mux.HandleFunc("POST /api/v1/users", h.guard(g, func(w http.ResponseWriter, r *http.Request, _ core.User) {
		var in core.User
		if !h.decode(w, r, &in) {
			return
		}
		created, res, err := h.svc.CreateUser(r.Context(), in)
		h.created(w, r, "user", created, res, err, "user added")
	}))
	h.mux.HandleFunc("PUT /api/v1/users/{id}", h.guard(g, func(w http.ResponseWriter, r *http.Request, _ core.User) {
		var in core.User
		if !h.decode(w, r, &in) {
			return
		}
		updated, res, err := h.svc.UpdateUser(r.Context(), r.PathValue("id"), func(u *core.User) error {
			u.Username = in.Username
			u.Password = in.Password
			u.Roles = in.Roles
			return nil
		})
		h.updated(w, r, "user", updated, res, err, "user updated")
	}))
	h.mux.HandleFunc("DELETE /api/v1/users/{id}", h.guard(g, func(w http.ResponseWriter, r *http.Request, _ core.User) {
		res, err := h.svc.DeleteUser(r.Context(), r.PathValue("id"))
		h.deleted(w, r, r.PathValue("id"), res, err, "user deleted")
	}))

	h.mux.HandleFunc("POST /api/v1/exports", h.guard(g, h.handleExportCreate))
	h.mux.HandleFunc("GET /api/v1/exports/{id}", h.guard(g, h.handleExportGet))
	h.mux.HandleFunc("GET /api/v1/exports/{id}/{format}", h.guard(g, h.handleExportDownload))
}

func (h *Handler) handleExportCreate(w http.ResponseWriter, r *http.Request, user core.User) {
	if h.exports == nil {
		http.NotFound(w, r)
		return
	}
	var req struct {
		Collection string   `json:"collection"`
		Formats    []string `json:"formats"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	formats := make([]ExportFormat, 0, len(req.Formats))
	for _, f := range req.Formats {
		formats = append(formats, ExportFormat(strings.ToLower(strings.TrimSpace(f))))
	}
	record, err := h.exports.EnqueueExport(r.Context(), ExportInput{
		Collection:  Collection(strings.TrimSpace(req.Collection)),
		Formats:     formats,
		RequestedBy: user.Username,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"export": record})
}

func (h *Handler) handleExportGet(w http.ResponseWriter, r *http.Request, _ core.User) {
	if h.exports == nil {
		http.NotFound(w, r)
		return
	}
	record, ok := h.exports.GetExport(r.PathValue("id"))
	if !ok {
		h.writeError(w, r, core.ErrNotFound{Entity: entityExport, ID: r.PathValue("id")})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"export": record})
}

// handleExportDownload redirects to a pre-signed URL when the store offers
// one and streams the object otherwise.
func (h *Handler) handleExportDownload(w http.ResponseWriter, r *http.Request, _ core.User) {
	if h.exports == nil {
		http.NotFound(w, r)
		return
	}
	id := r.PathValue("id")
	record, ok := h.exports.GetExport(id)
	if !ok {
		h.writeError(w, r, core.ErrNotFound{Entity: entityExport, ID: id})
		return
	}
	artifact, ok := record.Artifact(ExportFormat(r.PathValue("format")))
	if !ok {
		h.writeError(w, r, core.ErrNotFound{Entity: entityExport, ID: id + "/" + r.PathValue("format")})
		return
	}
	store := h.exports.Store()
	url, err := store.PresignURL(r.Context(), artifact.Key, blob.SignedURLOptions{})
	if err == nil {
		http.Redirect(w, r, url, http.StatusTemporaryRedirect)
		return
	}
	if !errors.Is(err, blob.ErrUnsupported) {
		h.writeError(w, r, err)
		return
	}
	info, body, err := store.Get(r.Context(), artifact.Key)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer body.Close()
	w.Header().Set("Content-Type", info.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fmt.Sprintf("%s-%s.%s", record.Collection, id, artifact.Format)))
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, body)
}

// replace returns a mutator that overwrites the stored value with in while
// keeping its identity and timestamps.
func replace[T any](in T, base func(*T) *core.Base) func(*T) error {
	return func(stored *T) error {
		keep := *base(stored)
		*stored = in
		*base(stored) = keep
		return nil
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, key string, value any, err error) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{key: value})
}

func (h *Handler) created(w http.ResponseWriter, r *http.Request, key string, value any, res core.Result, err error, message string) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.mutated(w, r, http.StatusCreated, key, value, res, message)
}

func (h *Handler) updated(w http.ResponseWriter, r *http.Request, key string, value any, res core.Result, err error, message string) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.mutated(w, r, http.StatusOK, key, value, res, message)
}

func (h *Handler) deleted(w http.ResponseWriter, r *http.Request, id string, res core.Result, err error, message string) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.mutated(w, r, http.StatusOK, "deleted", id, res, message)
}
