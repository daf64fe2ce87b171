// Package client is the Go SDK for an Agnos intake server. It bundles the
// three transports a submitter action can take — the realtime channel, the
// request/response surface and the local fallback file — and the fallback
// cascade that picks between them.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/21Gxme/Agnos/models"
)

// Client talks to one Agnos server.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Local   *LocalStore

	// AckTimeout bounds the wait for a realtime acknowledgment in the
	// cascade's first tier.
	AckTimeout time.Duration

	rt *Realtime
}

// New returns a client for the server at baseURL (e.g. "http://localhost:3000").
// localPath is the fallback file used when both transports are down. The ack
// wait defaults to one second and can be overridden with AGNOS_ACK_TIMEOUT_MS
// or by setting AckTimeout directly.
func New(baseURL, localPath string) *Client {
	ackTimeout := time.Second
	if ms, err := strconv.Atoi(os.Getenv("AGNOS_ACK_TIMEOUT_MS")); err == nil && ms > 0 {
		ackTimeout = time.Duration(ms) * time.Millisecond
	}
	return &Client{
		BaseURL:    baseURL,
		HTTP:       &http.Client{Timeout: 10 * time.Second},
		Local:      NewLocalStore(localPath),
		AckTimeout: ackTimeout,
	}
}

// ListRecords fetches all records in insertion order.
func (c *Client) ListRecords(ctx context.Context) ([]models.Record, error) {
	var recs []models.Record
	if err := c.do(ctx, http.MethodGet, "/records", nil, &recs); err != nil {
		return nil, err
	}
	return recs, nil
}

// GetRecord fetches one record by ID.
func (c *Client) GetRecord(ctx context.Context, id string) (models.Record, error) {
	var rec models.Record
	if err := c.do(ctx, http.MethodGet, "/records/"+id, nil, &rec); err != nil {
		return models.Record{}, err
	}
	return rec, nil
}

// CreateRecord inserts a record over the request/response surface, letting
// the server assign the ID when absent.
func (c *Client) CreateRecord(ctx context.Context, rec models.Record) (models.Record, error) {
	var stored models.Record
	if err := c.do(ctx, http.MethodPost, "/records", rec, &stored); err != nil {
		return models.Record{}, err
	}
	return stored, nil
}

// UpdateRecord full-replaces the record with rec.ID.
func (c *Client) UpdateRecord(ctx context.Context, rec models.Record) (models.Record, error) {
	var stored models.Record
	if err := c.do(ctx, http.MethodPut, "/records/"+rec.ID, rec, &stored); err != nil {
		return models.Record{}, err
	}
	return stored, nil
}

// do issues one request and decodes the checked response.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("agnos: marshal request: %w", err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransportUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&apiErr)
		return &APIError{Status: resp.StatusCode, Msg: apiErr.Error}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
