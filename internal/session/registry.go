// Package session tracks one ephemeral draft per connected submitter session.
package session

import (
	"reflect"

	"github.com/21Gxme/Agnos/models"
)

// Emitter receives draft events for fan-out. ExceptID is the hub connection
// the event must not be delivered to (a submitter never sees its own edit
// echoed back); zero means broadcast to everyone.
type Emitter interface {
	EmitDraft(typ string, draft models.Draft, exceptID int64)
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(typ string, draft models.Draft, exceptID int64)

func (f EmitterFunc) EmitDraft(typ string, draft models.Draft, exceptID int64) {
	f(typ, draft, exceptID)
}

// Registry owns all drafts. Entries are keyed by the broker-assigned
// connection ID and die with the session: only the broker declares a session
// dead, and that declaration is the sole trigger for draft destruction.
// Like the store, the registry is mutated only on the hub's run loop.
type Registry struct {
	drafts  map[int64]models.Draft
	emitter Emitter
}

func New() *Registry {
	return &Registry{drafts: make(map[int64]models.Draft)}
}

func (r *Registry) SetEmitter(e Emitter) { r.emitter = e }

// Edit creates the session's draft if absent, otherwise merges payload into
// it with shallow per-field overwrite, then emits draft:updated to every
// session except the originating one.
func (r *Registry) Edit(sessionID int64, payload map[string]any) models.Draft {
	d, ok := r.drafts[sessionID]
	if !ok {
		d = models.Draft{
			SessionID: SessionName(sessionID),
			Payload:   make(map[string]any, len(payload)),
		}
	} else {
		d = d.Clone()
	}
	for k, v := range payload {
		// DeepEqual: payload values come from JSON and may be slices.
		if old, had := d.Payload[k]; !had || !reflect.DeepEqual(old, v) {
			d.LastChangedField = k
		}
		d.Payload[k] = v
	}
	d.LastUpdatedAt = models.Now()
	r.drafts[sessionID] = d

	if r.emitter != nil {
		r.emitter.EmitDraft(models.TypeDraftUpdated, d.Clone(), sessionID)
	}
	return d.Clone()
}

// Drop removes the session's draft and emits draft:closed. Dropping an
// absent session is a no-op, not an error.
func (r *Registry) Drop(sessionID int64) {
	d, ok := r.drafts[sessionID]
	if !ok {
		return
	}
	delete(r.drafts, sessionID)
	if r.emitter != nil {
		r.emitter.EmitDraft(models.TypeDraftClosed, models.Draft{SessionID: d.SessionID}, 0)
	}
}

// Discard removes the session's draft without notifying anyone. Used when
// the session's action was persisted as a record: reviewers clean the draft
// out of their view from the record event itself.
func (r *Registry) Discard(sessionID int64) {
	delete(r.drafts, sessionID)
}

// Get returns the draft for a session, if any.
func (r *Registry) Get(sessionID int64) (models.Draft, bool) {
	d, ok := r.drafts[sessionID]
	if !ok {
		return models.Draft{}, false
	}
	return d.Clone(), true
}

// Len reports the number of live drafts.
func (r *Registry) Len() int { return len(r.drafts) }
