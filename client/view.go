package client

import (
	"encoding/json"
	"reflect"

	"github.com/21Gxme/Agnos/models"
)

// View is a reviewer's derived, disposable copy of server state: a pure fold
// of the event stream into records and live drafts. It never owns
// authoritative state and can be rebuilt from a sync:init at any time.
type View struct {
	records map[string]models.Record
	order   []string
	drafts  map[string]models.Draft

	// changed holds, per session, the fields whose values differed from
	// the previously stored draft payload. Display-only; never consulted
	// for correctness.
	changed map[string][]string
}

func NewView() *View {
	return &View{
		records: make(map[string]models.Record),
		drafts:  make(map[string]models.Draft),
		changed: make(map[string][]string),
	}
}

// Apply folds one envelope into the view. Unknown event types are ignored so
// a newer server does not break an older reviewer.
func (v *View) Apply(env models.Envelope) error {
	switch env.Type {
	case models.TypeSyncInit:
		var snap models.SyncInit
		if err := json.Unmarshal(env.Data, &snap); err != nil {
			return err
		}
		// Wholesale replace, never a partial merge.
		v.records = make(map[string]models.Record, len(snap.Records))
		v.order = v.order[:0]
		for _, rec := range snap.Records {
			v.records[rec.ID] = rec
			v.order = append(v.order, rec.ID)
		}
	case models.TypeRecordNew:
		var rec models.Record
		if err := json.Unmarshal(env.Data, &rec); err != nil {
			return err
		}
		// Duplicate deliveries happen; the first insert wins.
		if _, dup := v.records[rec.ID]; !dup {
			v.records[rec.ID] = rec
			v.order = append(v.order, rec.ID)
		}
		v.reconcileDrafts(rec)
	case models.TypeRecordUpdated:
		var rec models.Record
		if err := json.Unmarshal(env.Data, &rec); err != nil {
			return err
		}
		// An update for an unseen record is kept as an insert rather
		// than dropped.
		if _, seen := v.records[rec.ID]; !seen {
			v.order = append(v.order, rec.ID)
		}
		v.records[rec.ID] = rec
		v.reconcileDrafts(rec)
	case models.TypeDraftUpdated:
		var d models.Draft
		if err := json.Unmarshal(env.Data, &d); err != nil {
			return err
		}
		v.changed[d.SessionID] = diffFields(v.drafts[d.SessionID].Payload, d.Payload)
		v.drafts[d.SessionID] = d
	case models.TypeDraftClosed:
		var closed models.DraftClosed
		if err := json.Unmarshal(env.Data, &closed); err != nil {
			return err
		}
		delete(v.drafts, closed.SessionID)
		delete(v.changed, closed.SessionID)
	}
	return nil
}

// Records returns the records in arrival order.
func (v *View) Records() []models.Record {
	out := make([]models.Record, 0, len(v.order))
	for _, id := range v.order {
		out = append(out, v.records[id])
	}
	return out
}

// Record looks up one record by ID.
func (v *View) Record(id string) (models.Record, bool) {
	rec, ok := v.records[id]
	return rec, ok
}

// Drafts returns the live drafts keyed by session.
func (v *View) Drafts() map[string]models.Draft {
	out := make(map[string]models.Draft, len(v.drafts))
	for k, d := range v.drafts {
		out[k] = d
	}
	return out
}

// ChangedFields reports which fields of a session's draft changed in the
// most recent update, for highlighting.
func (v *View) ChangedFields(sessionID string) []string {
	return v.changed[sessionID]
}

// reconcileDrafts drops any draft whose content matches a record that just
// arrived: the submitter's form became a real record, so the "in progress"
// card is stale. Best-effort UX cleanup keyed on the email field, not a
// correctness rule.
func (v *View) reconcileDrafts(rec models.Record) {
	email, _ := rec.Fields["email"].(string)
	if email == "" {
		return
	}
	for sid, d := range v.drafts {
		if de, _ := d.Payload["email"].(string); de == email {
			delete(v.drafts, sid)
			delete(v.changed, sid)
		}
	}
}

// diffFields returns the symmetric difference of two payloads: fields that
// appear in only one, or whose values differ.
func diffFields(prev, next map[string]any) []string {
	var out []string
	for k, nv := range next {
		// DeepEqual: payload values come from JSON and may be slices.
		if pv, ok := prev[k]; !ok || !reflect.DeepEqual(pv, nv) {
			out = append(out, k)
		}
	}
	for k := range prev {
		if _, ok := next[k]; !ok {
			out = append(out, k)
		}
	}
	return out
}
