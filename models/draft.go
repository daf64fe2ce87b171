package models

// Draft is an ephemeral, session-scoped, unsubmitted in-progress edit.
// It is identified by the originating session, not by a record ID — a draft
// usually precedes record existence.
type Draft struct {
	SessionID        string         `json:"sessionId"`
	Payload          map[string]any `json:"payload"`
	LastUpdatedAt    string         `json:"lastUpdatedAt"`
	LastChangedField string         `json:"lastChangedField,omitempty"`
}

// Clone copies the draft with its own payload map.
func (d Draft) Clone() Draft {
	cp := d
	cp.Payload = make(map[string]any, len(d.Payload))
	for k, v := range d.Payload {
		cp.Payload[k] = v
	}
	return cp
}
