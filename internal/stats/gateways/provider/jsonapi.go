package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/statlinehq/statline/internal/stats/domain"
)

// JSONAPI is a reference adapter for providers exposing a JSON endpoint. It
// documents the adapter contract: compiled parameters go out as query
// parameters, rows come back as a JSON array (bare, or under a "rows" key),
// and zero rows is an Empty outcome, never an error.
type JSONAPI struct {
	providerID string
	endpoint   string
	client     *http.Client
}

// NewJSONAPI constructs the adapter. client may be nil for a default client;
// per-attempt timeouts are enforced by the guard's context, not here.
func NewJSONAPI(providerID, endpoint string, client *http.Client) *JSONAPI {
	if client == nil {
		client = &http.Client{}
	}
	return &JSONAPI{providerID: providerID, endpoint: endpoint, client: client}
}

// Fetch implements domain.Provider.
func (a *JSONAPI) Fetch(ctx context.Context, params map[string]any) (domain.Outcome, error) {
	u, err := url.Parse(a.endpoint)
	if err != nil {
		return domain.Outcome{}, domain.Permanent(a.providerID, fmt.Errorf("bad endpoint: %w", err))
	}
	q := u.Query()
	for k, v := range params {
		q.Set(k, fmt.Sprintf("%v", v))
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return domain.Outcome{}, domain.Permanent(a.providerID, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		// Transport faults (connection refused, reset, ctx timeout) are
		// all retry-worthy.
		return domain.Outcome{}, domain.Transient(a.providerID, err)
	}
	defer resp.Body.Close()

	if cerr := ClassifyStatus(a.providerID, resp.StatusCode); cerr != nil {
		return domain.Outcome{}, cerr
	}

	rows, err := decodeRows(resp.Body)
	if err != nil {
		return domain.Outcome{}, domain.Permanent(a.providerID, fmt.Errorf("malformed response: %w", err))
	}
	if len(rows) == 0 {
		return domain.Empty(), nil
	}
	var table domain.Table
	table.Append(rows...)
	return domain.OK(table), nil
}

func decodeRows(r interface{ Read([]byte) (int, error) }) ([]domain.Row, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, err
	}
	var list []map[string]any
	if err := json.Unmarshal(raw, &list); err == nil {
		return toRows(list), nil
	}
	var wrapped struct {
		Rows []map[string]any `json:"rows"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, err
	}
	return toRows(wrapped.Rows), nil
}

func toRows(list []map[string]any) []domain.Row {
	rows := make([]domain.Row, 0, len(list))
	for _, m := range list {
		rows = append(rows, domain.Row(m))
	}
	return rows
}

var _ domain.Provider = (*JSONAPI)(nil)
