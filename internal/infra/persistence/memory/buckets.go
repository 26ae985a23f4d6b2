package memory

import (
	"encoding/json"
	"fmt"
)

// Buckets lists the snapshot collections in the order persistent backends
// write them. Each bucket is stored as one JSON payload.
var Buckets = []string{
	"users",
	"personnel",
	"medical_records",
	"visits",
	"medicines",
	"incidents",
	"checklist_categories",
	"checklists",
	"checklist_submissions",
	"fire_equipment_types",
	"fire_equipment",
}

func (s *Snapshot) bucketTargets() map[string]any {
	return map[string]any{
		"users":                 &s.Users,
		"personnel":             &s.Personnel,
		"medical_records":       &s.MedicalRecords,
		"visits":                &s.Visits,
		"medicines":             &s.Medicines,
		"incidents":             &s.Incidents,
		"checklist_categories":  &s.Categories,
		"checklists":            &s.Checklists,
		"checklist_submissions": &s.Submissions,
		"fire_equipment_types":  &s.EquipmentTypes,
		"fire_equipment":        &s.Equipment,
	}
}

// EncodeBucket marshals one snapshot collection.
func (s Snapshot) EncodeBucket(bucket string) ([]byte, error) {
	target, ok := s.bucketTargets()[bucket]
	if !ok {
		return nil, fmt.Errorf("unknown bucket %q", bucket)
	}
	data, err := json.Marshal(target)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", bucket, err)
	}
	return data, nil
}

// DecodeBucket unmarshals payload into the named collection. Unknown buckets
// and empty payloads are ignored so older databases keep loading.
func (s *Snapshot) DecodeBucket(bucket string, payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	target, ok := s.bucketTargets()[bucket]
	if !ok {
		return nil
	}
	if err := json.Unmarshal(payload, target); err != nil {
		return fmt.Errorf("decode %s: %w", bucket, err)
	}
	return nil
}
