package hub_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/21Gxme/Agnos/internal/hub"
	"github.com/21Gxme/Agnos/internal/session"
	"github.com/21Gxme/Agnos/internal/store"
	"github.com/21Gxme/Agnos/models"
)

// testConn is an in-process hub participant; the hub is transport agnostic,
// so the routing rules can be exercised without a websocket.
type testConn struct {
	id int64
	ch chan *hub.Msg
}

func newTestConn() *testConn {
	return &testConn{id: hub.NextID(), ch: make(chan *hub.Msg, 32)}
}

func (c *testConn) ID() int64             { return c.id }
func (c *testConn) Chan() chan<- *hub.Msg { return c.ch }

// next waits for the connection's next message of the given type, skipping
// nothing: an unexpected type fails the test.
func (c *testConn) next(t *testing.T, typ string) models.Envelope {
	t.Helper()
	select {
	case m := <-c.ch:
		if m == nil {
			t.Fatalf("connection closed while waiting for %s", typ)
		}
		env, ok := m.Data.(models.Envelope)
		if !ok {
			t.Fatalf("expected envelope, got %T", m.Data)
		}
		if env.Type != typ {
			t.Fatalf("expected %s, got %s", typ, env.Type)
		}
		return env
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", typ)
	}
	return models.Envelope{}
}

// quiet asserts no message is pending. Routing is synchronous on the run
// loop, so once a later message has arrived elsewhere the absence here is
// meaningful.
func (c *testConn) quiet(t *testing.T) {
	t.Helper()
	select {
	case m := <-c.ch:
		if m != nil {
			if env, ok := m.Data.(models.Envelope); ok {
				t.Fatalf("unexpected %s message", env.Type)
			}
			t.Fatalf("unexpected message %v", m)
		}
	default:
	}
}

func startHub(t *testing.T) (*hub.Hub, *store.Store) {
	t.Helper()
	st := store.New()
	reg := session.New()
	h := hub.New()
	svc := hub.NewService(h, st, reg)
	go h.Run(svc)
	t.Cleanup(h.Stop)
	return h, st
}

func signon(t *testing.T, h *hub.Hub) *testConn {
	t.Helper()
	c := newTestConn()
	h.Signon(c)
	c.next(t, models.TypeSyncInit)
	return c
}

func TestSyncInitSnapshotOnConnect(t *testing.T) {
	h, st := startHub(t)
	st.Upsert(models.Record{Fields: map[string]any{"firstName": "Anek"}})

	c := newTestConn()
	h.Signon(c)

	env := c.next(t, models.TypeSyncInit)
	var snap models.SyncInit
	if err := json.Unmarshal(env.Data, &snap); err != nil {
		t.Fatalf("decode sync:init: %v", err)
	}
	if len(snap.Records) != 1 {
		t.Fatalf("expected 1 record in snapshot, got %d", len(snap.Records))
	}
}

func TestDraftFanOutExcludesOriginator(t *testing.T) {
	h, _ := startHub(t)
	reviewer := signon(t, h)
	submitter := signon(t, h)

	h.Chan() <- &hub.Msg{From: submitter, Type: models.TypeDraftEdit, Raw: []byte(`{"firstName":"A"}`)}

	env := reviewer.next(t, models.TypeDraftUpdated)
	var d models.Draft
	if err := json.Unmarshal(env.Data, &d); err != nil {
		t.Fatalf("decode draft:updated: %v", err)
	}
	if d.Payload["firstName"] != "A" {
		t.Fatalf("payload not forwarded: %v", d.Payload)
	}

	// Sign the submitter off and drain its channel to the terminating nil:
	// anything buffered before it would be an echo of its own edit.
	h.Signoff(submitter)
	for m := range submitter.ch {
		if m == nil {
			break
		}
		if env, ok := m.Data.(models.Envelope); ok && env.Type == models.TypeDraftUpdated {
			t.Fatal("draft:updated echoed back to its originator")
		}
	}
	reviewer.next(t, models.TypeDraftClosed)
}

func TestDisconnectDropsDraftAndNotifies(t *testing.T) {
	h, _ := startHub(t)
	reviewer := signon(t, h)
	submitter := signon(t, h)

	h.Chan() <- &hub.Msg{From: submitter, Type: models.TypeDraftEdit, Raw: []byte(`{"firstName":"A"}`)}
	h.Chan() <- &hub.Msg{From: submitter, Type: models.TypeDraftEdit, Raw: []byte(`{"firstName":"Al"}`)}
	h.Signoff(submitter)

	reviewer.next(t, models.TypeDraftUpdated)
	reviewer.next(t, models.TypeDraftUpdated)
	reviewer.next(t, models.TypeDraftClosed)
	reviewer.quiet(t)
}

func TestSubmitBroadcastsAndAcks(t *testing.T) {
	h, st := startHub(t)
	reviewer := signon(t, h)
	submitter := signon(t, h)

	raw, _ := json.Marshal(models.Record{Fields: map[string]any{"firstName": "Anek"}})
	h.Chan() <- &hub.Msg{From: submitter, Type: models.TypeRecordSubmit, Raw: raw}

	env := reviewer.next(t, models.TypeRecordNew)
	var rec models.Record
	if err := json.Unmarshal(env.Data, &rec); err != nil {
		t.Fatalf("decode record:new: %v", err)
	}
	if rec.ID == "" || rec.Status != models.StatusSubmitted {
		t.Fatalf("bad stored record: %+v", rec)
	}

	// The submitter sees the broadcast too, then its acknowledgment.
	submitter.next(t, models.TypeRecordNew)
	env = submitter.next(t, models.TypeRecordAck)
	var ack models.RecordAck
	if err := json.Unmarshal(env.Data, &ack); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if ack.ID != rec.ID {
		t.Fatalf("ack for wrong record: %s != %s", ack.ID, rec.ID)
	}
	if st.Len() != 1 {
		t.Fatalf("store has %d records", st.Len())
	}
}

func TestCallSerializesWithRealtimeTraffic(t *testing.T) {
	h, _ := startHub(t)
	reviewer := signon(t, h)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	reply, err := h.Call(ctx, models.TypeRecordSubmit, models.Record{Fields: map[string]any{"firstName": "Anek"}})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	stored, ok := reply.Data.(models.Record)
	if !ok {
		t.Fatalf("expected record reply, got %T", reply.Data)
	}
	if stored.ID == "" {
		t.Fatal("call did not assign an id")
	}

	// The HTTP-originated mutation fans out like any other.
	reviewer.next(t, models.TypeRecordNew)

	reply, err = h.Call(ctx, hub.SubjRecordList, nil)
	if err != nil {
		t.Fatalf("list call: %v", err)
	}
	recs, _ := reply.Data.([]models.Record)
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}

	reply, err = h.Call(ctx, hub.SubjRecordGet, "missing")
	if err != nil {
		t.Fatalf("get call: %v", err)
	}
	if errReply, ok := reply.Data.(error); !ok || errReply != store.ErrNotFound {
		t.Fatalf("expected ErrNotFound reply, got %v", reply.Data)
	}
}

func TestLastWriteWinsOnConcurrentApply(t *testing.T) {
	h, st := startHub(t)
	r1 := signon(t, h)
	r2 := signon(t, h)

	raw, _ := json.Marshal(models.Record{Fields: map[string]any{"firstName": "Anek"}})
	h.Chan() <- &hub.Msg{From: r1, Type: models.TypeRecordSubmit, Raw: raw}
	env := r2.next(t, models.TypeRecordNew)
	var rec models.Record
	json.Unmarshal(env.Data, &rec)

	rec.Status = models.StatusActive
	rawActive, _ := json.Marshal(rec)
	rec.Status = models.StatusInactive
	rawInactive, _ := json.Marshal(rec)

	h.Chan() <- &hub.Msg{From: r1, Type: models.TypeRecordApply, Raw: rawActive}
	h.Chan() <- &hub.Msg{From: r2, Type: models.TypeRecordApply, Raw: rawInactive}

	r1.next(t, models.TypeRecordNew)
	r1.next(t, models.TypeRecordAck) // for the submit
	r1.next(t, models.TypeRecordUpdated)
	r1.next(t, models.TypeRecordAck) // for the first apply
	r1.next(t, models.TypeRecordUpdated)

	got, err := st.Get(rec.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != models.StatusInactive {
		t.Fatalf("expected last write (inactive) to win, got %q", got.Status)
	}
	if got.SubmittedAt != rec.SubmittedAt {
		t.Fatal("apply overwrote submittedAt")
	}
}
