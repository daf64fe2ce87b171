package client

import (
	"context"
	"log"

	"github.com/google/uuid"

	"github.com/21Gxme/Agnos/models"
)

// Tier identifies the cascade step that ended up committing an action.
type Tier int

const (
	TierRealtime Tier = iota + 1
	TierHTTP
	TierLocal
)

func (t Tier) String() string {
	switch t {
	case TierRealtime:
		return "realtime"
	case TierHTTP:
		return "http"
	case TierLocal:
		return "local"
	}
	return "unknown"
}

// CascadeResult reports which tier won and the record as committed by that
// tier. For TierRealtime the record is the one sent: the authoritative copy
// arrives back as a record:new/record:updated event.
type CascadeResult struct {
	Tier   Tier
	Record models.Record
}

// Submit applies one new-record action through the cascade.
func (c *Client) Submit(ctx context.Context, rec models.Record) (CascadeResult, error) {
	return c.cascade(ctx, rec, false)
}

// Update applies one full-replace action through the cascade. The record
// must carry the ID being replaced; status and submission time travel along
// unchanged, so an edit keeps the record's lifecycle state.
func (c *Client) Update(ctx context.Context, rec models.Record) (CascadeResult, error) {
	return c.cascade(ctx, rec, true)
}

// cascade walks the three tiers in strict order. The tiers are never raced:
// exactly one wins, and a duplicate delivery downstream of tier 1 is
// harmless because the store is idempotent on ID. Failures of tiers 1 and 2
// are logged and swallowed; only tier 3 failing too is surfaced, because
// then the action is not recorded anywhere.
func (c *Client) cascade(ctx context.Context, rec models.Record, update bool) (CascadeResult, error) {
	if done, res := c.tryRealtime(ctx, rec, update); done {
		// A cancellation while waiting for the ack surfaces here so
		// the caller never acts on a stale outcome.
		return res, ctx.Err()
	}
	if err := ctx.Err(); err != nil {
		return CascadeResult{}, err
	}
	if done, res := c.tryHTTP(ctx, rec, update); done {
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		return CascadeResult{}, err
	}
	return c.useLocal(rec)
}

// tryRealtime sends the action over the live session, if any, and waits up
// to AckTimeout for the explicit acknowledgment. A timeout is still success:
// the send did not fail, so the action is assumed delivered ("fire and
// hope", tolerable because the store applies duplicates idempotently).
func (c *Client) tryRealtime(ctx context.Context, rec models.Record, update bool) (bool, CascadeResult) {
	if !c.rt.Connected() {
		return false, CascadeResult{}
	}
	typ := models.TypeRecordSubmit
	if update {
		typ = models.TypeRecordApply
	}
	ack, err := c.rt.sendAction(typ, rec)
	if err != nil {
		log.Printf("Warning: realtime submit failed, falling back: %v", err)
		return false, CascadeResult{}
	}
	timer := newTimer(c.AckTimeout)
	defer timer.Stop()
	select {
	case a := <-ack:
		rec.ID = a.ID
	case <-timer.C:
		// no ack, assume success
	case <-ctx.Done():
		// Torn down while waiting. The action may or may not have
		// landed; do not fall through to another tier on a stale
		// result.
		return true, CascadeResult{Tier: TierRealtime, Record: rec}
	}
	return true, CascadeResult{Tier: TierRealtime, Record: rec}
}

// tryHTTP issues the synchronous request/response call. Any non-success
// response is a hard failure for this tier.
func (c *Client) tryHTTP(ctx context.Context, rec models.Record, update bool) (bool, CascadeResult) {
	var stored models.Record
	var err error
	if update {
		stored, err = c.UpdateRecord(ctx, rec)
	} else {
		stored, err = c.CreateRecord(ctx, rec)
	}
	if err != nil {
		log.Printf("Warning: http submit failed, falling back: %v", err)
		return false, CascadeResult{}
	}
	return true, CascadeResult{Tier: TierHTTP, Record: stored}
}

// useLocal merges the action into the fallback file so the input is not
// lost. The record is normalized here because no server will do it: a
// missing ID is minted locally and lifecycle fields are filled in.
func (c *Client) useLocal(rec models.Record) (CascadeResult, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Status == "" {
		rec.Status = models.StatusSubmitted
	}
	if rec.SubmittedAt == "" {
		rec.SubmittedAt = models.Now()
	}
	if err := c.Local.Put(rec); err != nil {
		log.Printf("Warning: local fallback failed: %v", err)
		return CascadeResult{}, ErrNotRecorded
	}
	return CascadeResult{Tier: TierLocal, Record: rec}, nil
}
