package memory

import (
	"time"

	"hsecore/pkg/domain"
)

type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

func notFound(entity domain.EntityType, id string) error {
	return domain.ErrNotFound{Entity: entity, ID: id}
}

func (tx *transaction) stamp(base *domain.Base) {
	if base.ID == "" {
		base.ID = tx.store.newID()
	}
	base.CreatedAt = tx.now
	base.UpdatedAt = tx.now
}

// CreateUser inserts a login account. Usernames are unique.
func (tx *transaction) CreateUser(u User) (User, error) {
	tx.stamp(&u.Base)
	if _, exists := tx.state.users[u.ID]; exists {
		return User{}, domain.ErrAlreadyExists{Entity: domain.EntityUser, Key: u.ID}
	}
	for _, existing := range tx.state.users {
		if existing.Username == u.Username {
			return User{}, domain.ErrAlreadyExists{Entity: domain.EntityUser, Key: u.Username}
		}
	}
	tx.state.users[u.ID] = cloneUser(u)
	tx.recordChange(Change{Entity: domain.EntityUser, Action: domain.ActionCreate, After: cloneUser(u)})
	return cloneUser(u), nil
}

// UpdateUser mutates an existing account.
func (tx *transaction) UpdateUser(id string, mutator func(*User) error) (User, error) {
	current, ok := tx.state.users[id]
	if !ok {
		return User{}, notFound(domain.EntityUser, id)
	}
	before := cloneUser(current)
	if err := mutator(&current); err != nil {
		return User{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	for otherID, existing := range tx.state.users {
		if otherID != id && existing.Username == current.Username {
			return User{}, domain.ErrAlreadyExists{Entity: domain.EntityUser, Key: current.Username}
		}
	}
	tx.state.users[id] = cloneUser(current)
	tx.recordChange(Change{Entity: domain.EntityUser, Action: domain.ActionUpdate, Before: before, After: cloneUser(current)})
	return cloneUser(current), nil
}

// DeleteUser removes an account.
func (tx *transaction) DeleteUser(id string) error {
	current, ok := tx.state.users[id]
	if !ok {
		return notFound(domain.EntityUser, id)
	}
	delete(tx.state.users, id)
	tx.recordChange(Change{Entity: domain.EntityUser, Action: domain.ActionDelete, Before: cloneUser(current)})
	return nil
}

// CreatePersonnel inserts an employee record.
func (tx *transaction) CreatePersonnel(p Personnel) (Personnel, error) {
	tx.stamp(&p.Base)
	if _, exists := tx.state.personnel[p.ID]; exists {
		return Personnel{}, domain.ErrAlreadyExists{Entity: domain.EntityPersonnel, Key: p.ID}
	}
	tx.state.personnel[p.ID] = p
	tx.recordChange(Change{Entity: domain.EntityPersonnel, Action: domain.ActionCreate, After: p})
	return p, nil
}

// UpdatePersonnel mutates an existing employee record.
func (tx *transaction) UpdatePersonnel(id string, mutator func(*Personnel) error) (Personnel, error) {
	current, ok := tx.state.personnel[id]
	if !ok {
		return Personnel{}, notFound(domain.EntityPersonnel, id)
	}
	before := current
	if err := mutator(&current); err != nil {
		return Personnel{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	tx.state.personnel[id] = current
	tx.recordChange(Change{Entity: domain.EntityPersonnel, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// CreateMedicalRecord appends an exam record for an existing personnel.
func (tx *transaction) CreateMedicalRecord(r MedicalRecord) (MedicalRecord, error) {
	if _, ok := tx.state.personnel[r.PersonnelID]; !ok {
		return MedicalRecord{}, notFound(domain.EntityPersonnel, r.PersonnelID)
	}
	tx.stamp(&r.Base)
	if _, exists := tx.state.medicalRecords[r.ID]; exists {
		return MedicalRecord{}, domain.ErrAlreadyExists{Entity: domain.EntityMedicalRecord, Key: r.ID}
	}
	tx.state.medicalRecords[r.ID] = r
	tx.recordChange(Change{Entity: domain.EntityMedicalRecord, Action: domain.ActionCreate, After: r})
	return r, nil
}

// adjustStock applies net stock lines. Medicines that no longer exist are skipped.
func (tx *transaction) adjustStock(lines []domain.StockLine) {
	for _, line := range lines {
		med, ok := tx.state.medicines[line.MedicineID]
		if !ok {
			continue
		}
		before := med
		med.Stock += line.Delta
		med.UpdatedAt = tx.now
		tx.state.medicines[med.ID] = med
		tx.recordChange(Change{Entity: domain.EntityMedicine, Action: domain.ActionUpdate, Before: before, After: med})
	}
}

func (tx *transaction) checkVisitPatient(v VisitRecord) error {
	if v.PatientType == domain.PatientComplex {
		if _, ok := tx.state.personnel[v.PersonnelID]; !ok {
			return notFound(domain.EntityPersonnel, v.PersonnelID)
		}
	}
	return nil
}

// CreateVisitRecord inserts a visit and takes its prescribed quantities from stock.
func (tx *transaction) CreateVisitRecord(v VisitRecord) (VisitRecord, error) {
	if v.PatientType == "" {
		v.PatientType = domain.PatientComplex
	}
	if err := tx.checkVisitPatient(v); err != nil {
		return VisitRecord{}, err
	}
	tx.stamp(&v.Base)
	if _, exists := tx.state.visits[v.ID]; exists {
		return VisitRecord{}, domain.ErrAlreadyExists{Entity: domain.EntityVisitRecord, Key: v.ID}
	}
	tx.state.visits[v.ID] = cloneVisit(v)
	tx.recordChange(Change{Entity: domain.EntityVisitRecord, Action: domain.ActionCreate, After: cloneVisit(v)})
	tx.adjustStock(domain.NetStockDelta(nil, v.Prescriptions))
	return cloneVisit(v), nil
}

// UpdateVisitRecord mutates a visit and applies the net prescription change to stock.
func (tx *transaction) UpdateVisitRecord(id string, mutator func(*VisitRecord) error) (VisitRecord, error) {
	current, ok := tx.state.visits[id]
	if !ok {
		return VisitRecord{}, notFound(domain.EntityVisitRecord, id)
	}
	before := cloneVisit(current)
	if err := mutator(&current); err != nil {
		return VisitRecord{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	if current.PatientType == "" {
		current.PatientType = domain.PatientComplex
	}
	if err := tx.checkVisitPatient(current); err != nil {
		return VisitRecord{}, err
	}
	tx.state.visits[id] = cloneVisit(current)
	tx.recordChange(Change{Entity: domain.EntityVisitRecord, Action: domain.ActionUpdate, Before: before, After: cloneVisit(current)})
	tx.adjustStock(domain.NetStockDelta(before.Prescriptions, current.Prescriptions))
	return cloneVisit(current), nil
}

// DeleteVisitRecord removes a visit and returns its prescribed quantities to stock.
func (tx *transaction) DeleteVisitRecord(id string) error {
	current, ok := tx.state.visits[id]
	if !ok {
		return notFound(domain.EntityVisitRecord, id)
	}
	delete(tx.state.visits, id)
	tx.recordChange(Change{Entity: domain.EntityVisitRecord, Action: domain.ActionDelete, Before: cloneVisit(current)})
	tx.adjustStock(domain.NetStockDelta(current.Prescriptions, nil))
	return nil
}

// CreateMedicine inserts a pharmacy stock item.
func (tx *transaction) CreateMedicine(m Medicine) (Medicine, error) {
	tx.stamp(&m.Base)
	if _, exists := tx.state.medicines[m.ID]; exists {
		return Medicine{}, domain.ErrAlreadyExists{Entity: domain.EntityMedicine, Key: m.ID}
	}
	tx.state.medicines[m.ID] = m
	tx.recordChange(Change{Entity: domain.EntityMedicine, Action: domain.ActionCreate, After: m})
	return m, nil
}

// UpdateMedicine mutates an existing stock item.
func (tx *transaction) UpdateMedicine(id string, mutator func(*Medicine) error) (Medicine, error) {
	current, ok := tx.state.medicines[id]
	if !ok {
		return Medicine{}, notFound(domain.EntityMedicine, id)
	}
	before := current
	if err := mutator(&current); err != nil {
		return Medicine{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	tx.state.medicines[id] = current
	tx.recordChange(Change{Entity: domain.EntityMedicine, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// CreateIncident appends a safety incident.
func (tx *transaction) CreateIncident(i Incident) (Incident, error) {
	if i.Status == "" {
		i.Status = domain.IncidentOpen
	}
	tx.stamp(&i.Base)
	if _, exists := tx.state.incidents[i.ID]; exists {
		return Incident{}, domain.ErrAlreadyExists{Entity: domain.EntityIncident, Key: i.ID}
	}
	tx.state.incidents[i.ID] = i
	tx.recordChange(Change{Entity: domain.EntityIncident, Action: domain.ActionCreate, After: i})
	return i, nil
}

// CreateChecklistCategory inserts a checklist grouping.
func (tx *transaction) CreateChecklistCategory(c ChecklistCategory) (ChecklistCategory, error) {
	tx.stamp(&c.Base)
	if _, exists := tx.state.categories[c.ID]; exists {
		return ChecklistCategory{}, domain.ErrAlreadyExists{Entity: domain.EntityChecklistCategory, Key: c.ID}
	}
	tx.state.categories[c.ID] = c
	tx.recordChange(Change{Entity: domain.EntityChecklistCategory, Action: domain.ActionCreate, After: c})
	return c, nil
}

// UpdateChecklistCategory mutates a checklist grouping.
func (tx *transaction) UpdateChecklistCategory(id string, mutator func(*ChecklistCategory) error) (ChecklistCategory, error) {
	current, ok := tx.state.categories[id]
	if !ok {
		return ChecklistCategory{}, notFound(domain.EntityChecklistCategory, id)
	}
	before := current
	if err := mutator(&current); err != nil {
		return ChecklistCategory{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	tx.state.categories[id] = current
	tx.recordChange(Change{Entity: domain.EntityChecklistCategory, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// DeleteChecklistCategory removes a category together with its checklists.
// Submissions are kept.
func (tx *transaction) DeleteChecklistCategory(id string) error {
	current, ok := tx.state.categories[id]
	if !ok {
		return notFound(domain.EntityChecklistCategory, id)
	}
	for clID, cl := range tx.state.checklists {
		if cl.CategoryID != id {
			continue
		}
		delete(tx.state.checklists, clID)
		tx.recordChange(Change{Entity: domain.EntityChecklist, Action: domain.ActionDelete, Before: cloneChecklist(cl)})
	}
	delete(tx.state.categories, id)
	tx.recordChange(Change{Entity: domain.EntityChecklistCategory, Action: domain.ActionDelete, Before: current})
	return nil
}

// CreateChecklist inserts a checklist under an existing category.
func (tx *transaction) CreateChecklist(c Checklist) (Checklist, error) {
	if _, ok := tx.state.categories[c.CategoryID]; !ok {
		return Checklist{}, notFound(domain.EntityChecklistCategory, c.CategoryID)
	}
	tx.stamp(&c.Base)
	if _, exists := tx.state.checklists[c.ID]; exists {
		return Checklist{}, domain.ErrAlreadyExists{Entity: domain.EntityChecklist, Key: c.ID}
	}
	if c.Items == nil {
		c.Items = []domain.ChecklistItem{}
	}
	tx.state.checklists[c.ID] = cloneChecklist(c)
	tx.recordChange(Change{Entity: domain.EntityChecklist, Action: domain.ActionCreate, After: cloneChecklist(c)})
	return cloneChecklist(c), nil
}

// UpdateChecklist mutates a checklist. The category may change but must exist.
func (tx *transaction) UpdateChecklist(id string, mutator func(*Checklist) error) (Checklist, error) {
	current, ok := tx.state.checklists[id]
	if !ok {
		return Checklist{}, notFound(domain.EntityChecklist, id)
	}
	before := cloneChecklist(current)
	if err := mutator(&current); err != nil {
		return Checklist{}, err
	}
	if _, ok := tx.state.categories[current.CategoryID]; !ok {
		return Checklist{}, notFound(domain.EntityChecklistCategory, current.CategoryID)
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	tx.state.checklists[id] = cloneChecklist(current)
	tx.recordChange(Change{Entity: domain.EntityChecklist, Action: domain.ActionUpdate, Before: before, After: cloneChecklist(current)})
	return cloneChecklist(current), nil
}

// DeleteChecklist removes a checklist. Submissions that reference it are kept.
func (tx *transaction) DeleteChecklist(id string) error {
	current, ok := tx.state.checklists[id]
	if !ok {
		return notFound(domain.EntityChecklist, id)
	}
	delete(tx.state.checklists, id)
	tx.recordChange(Change{Entity: domain.EntityChecklist, Action: domain.ActionDelete, Before: cloneChecklist(current)})
	return nil
}

// CreateChecklistSubmission appends a performed checklist.
func (tx *transaction) CreateChecklistSubmission(s ChecklistSubmission) (ChecklistSubmission, error) {
	if _, ok := tx.state.checklists[s.ChecklistID]; !ok {
		return ChecklistSubmission{}, notFound(domain.EntityChecklist, s.ChecklistID)
	}
	tx.stamp(&s.Base)
	if _, exists := tx.state.submissions[s.ID]; exists {
		return ChecklistSubmission{}, domain.ErrAlreadyExists{Entity: domain.EntityChecklistSubmission, Key: s.ID}
	}
	tx.state.submissions[s.ID] = cloneSubmission(s)
	tx.recordChange(Change{Entity: domain.EntityChecklistSubmission, Action: domain.ActionCreate, After: cloneSubmission(s)})
	return cloneSubmission(s), nil
}

// CreateFireEquipmentType inserts an equipment type.
func (tx *transaction) CreateFireEquipmentType(t FireEquipmentType) (FireEquipmentType, error) {
	tx.stamp(&t.Base)
	if _, exists := tx.state.equipmentTypes[t.ID]; exists {
		return FireEquipmentType{}, domain.ErrAlreadyExists{Entity: domain.EntityFireEquipmentType, Key: t.ID}
	}
	tx.state.equipmentTypes[t.ID] = t
	tx.recordChange(Change{Entity: domain.EntityFireEquipmentType, Action: domain.ActionCreate, After: t})
	return t, nil
}

// UpdateFireEquipmentType renames an equipment type.
func (tx *transaction) UpdateFireEquipmentType(id string, mutator func(*FireEquipmentType) error) (FireEquipmentType, error) {
	current, ok := tx.state.equipmentTypes[id]
	if !ok {
		return FireEquipmentType{}, notFound(domain.EntityFireEquipmentType, id)
	}
	before := current
	if err := mutator(&current); err != nil {
		return FireEquipmentType{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	tx.state.equipmentTypes[id] = current
	tx.recordChange(Change{Entity: domain.EntityFireEquipmentType, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// DeleteFireEquipmentType removes an equipment type. Equipment that still
// references it is caught by the reference rule at commit.
func (tx *transaction) DeleteFireEquipmentType(id string) error {
	current, ok := tx.state.equipmentTypes[id]
	if !ok {
		return notFound(domain.EntityFireEquipmentType, id)
	}
	delete(tx.state.equipmentTypes, id)
	tx.recordChange(Change{Entity: domain.EntityFireEquipmentType, Action: domain.ActionDelete, Before: current})
	return nil
}

// CreateFireEquipment inserts an inventory item.
func (tx *transaction) CreateFireEquipment(e FireEquipment) (FireEquipment, error) {
	if e.Status == "" {
		e.Status = domain.EquipmentOperational
	}
	tx.stamp(&e.Base)
	if _, exists := tx.state.equipment[e.ID]; exists {
		return FireEquipment{}, domain.ErrAlreadyExists{Entity: domain.EntityFireEquipment, Key: e.ID}
	}
	tx.state.equipment[e.ID] = e
	tx.recordChange(Change{Entity: domain.EntityFireEquipment, Action: domain.ActionCreate, After: e})
	return e, nil
}

// UpdateFireEquipment mutates an inventory item.
func (tx *transaction) UpdateFireEquipment(id string, mutator func(*FireEquipment) error) (FireEquipment, error) {
	current, ok := tx.state.equipment[id]
	if !ok {
		return FireEquipment{}, notFound(domain.EntityFireEquipment, id)
	}
	before := current
	if err := mutator(&current); err != nil {
		return FireEquipment{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	tx.state.equipment[id] = current
	tx.recordChange(Change{Entity: domain.EntityFireEquipment, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// DeleteFireEquipment removes an inventory item.
func (tx *transaction) DeleteFireEquipment(id string) error {
	current, ok := tx.state.equipment[id]
	if !ok {
		return notFound(domain.EntityFireEquipment, id)
	}
	delete(tx.state.equipment, id)
	tx.recordChange(Change{Entity: domain.EntityFireEquipment, Action: domain.ActionDelete, Before: current})
	return nil
}
