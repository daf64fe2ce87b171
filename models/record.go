package models

import (
	"encoding/json"
	"time"
)

// Record lifecycle statuses.
const (
	StatusSubmitted = "submitted"
	StatusActive    = "active"
	StatusInactive  = "inactive"
)

// Record is an authoritative submitter entry. The form's business data lives
// in Fields and is passed through opaquely; only ID, Status and SubmittedAt
// are interpreted by the core. On the wire the Fields are flattened to the
// top level next to the reserved keys, matching what the form clients send.
type Record struct {
	ID          string
	Status      string
	SubmittedAt string
	Fields      map[string]any
}

// reserved keys that never belong to the opaque payload.
const (
	keyID          = "id"
	keyStatus      = "status"
	keySubmittedAt = "submittedAt"
)

func (r Record) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(r.Fields)+3)
	for k, v := range r.Fields {
		switch k {
		case keyID, keyStatus, keySubmittedAt:
			continue
		}
		flat[k] = v
	}
	if r.ID != "" {
		flat[keyID] = r.ID
	}
	if r.Status != "" {
		flat[keyStatus] = r.Status
	}
	if r.SubmittedAt != "" {
		flat[keySubmittedAt] = r.SubmittedAt
	}
	return json.Marshal(flat)
}

func (r *Record) UnmarshalJSON(data []byte) error {
	var flat map[string]any
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}
	r.ID, _ = flat[keyID].(string)
	r.Status, _ = flat[keyStatus].(string)
	r.SubmittedAt, _ = flat[keySubmittedAt].(string)
	delete(flat, keyID)
	delete(flat, keyStatus)
	delete(flat, keySubmittedAt)
	r.Fields = flat
	return nil
}

// Clone returns a deep-enough copy for handing out to other goroutines.
// Field values are shared; the core never mutates them.
func (r Record) Clone() Record {
	cp := r
	cp.Fields = make(map[string]any, len(r.Fields))
	for k, v := range r.Fields {
		cp.Fields[k] = v
	}
	return cp
}

// Now formats a timestamp the way all lifecycle fields are stored.
func Now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
