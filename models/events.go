package models

import "encoding/json"

// Message types, client to server.
const (
	TypeDraftEdit    = "draft:edit"
	TypeRecordSubmit = "record:submit"
	TypeRecordApply  = "record:apply"
)

// Message types, server to client.
const (
	TypeSyncInit      = "sync:init"
	TypeRecordNew     = "record:new"
	TypeRecordUpdated = "record:updated"
	TypeDraftUpdated  = "draft:updated"
	TypeDraftClosed   = "draft:closed"
	TypeRecordAck     = "record:ack"
)

// Envelope is the wire frame for every realtime message.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope marshals data into an envelope of the given type.
func NewEnvelope(typ string, data any) (Envelope, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Type: typ, Data: raw}, nil
}

// SyncInit snapshots the whole record store for a newly connected client.
// It is the only catch-up mechanism; missed events are not replayed.
type SyncInit struct {
	Records []Record `json:"records"`
}

// DraftClosed notifies reviewers that a session's draft is gone.
type DraftClosed struct {
	SessionID string `json:"sessionId"`
}

// RecordAck is the explicit acknowledgment for a submit or apply sent over
// the realtime channel.
type RecordAck struct {
	ID string `json:"id"`
}
