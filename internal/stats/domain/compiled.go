package domain

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// CompiledRequest is the compiler's output: provider-native parameters, the
// residual client-side filter set, and query metadata. It is owned by the
// call that produced it and never persisted.
type CompiledRequest struct {
	ProviderParams map[string]any
	Residual       map[string]any
	Meta           RequestMeta
}

// RequestMeta carries the cache-key ingredients and caller-only concerns.
// Limit and Columns deliberately stay out of the cache key so that calls
// differing only in projection share one entry.
type RequestMeta struct {
	Dataset    Dataset
	League     League
	Season     string
	ProviderID string
	Limit      int
	Columns    []string
}

// CacheKey derives a stable key from the cache-relevant parts of the
// request: dataset, league, the provider-facing parameters, and the residual
// filter set (the cached value is the masked result, so residual filters
// are key-relevant; limit and projection are not). Encoding goes through
// msgpack with sorted map keys so that two equal parameter maps always
// serialize identically regardless of insertion order.
func (c *CompiledRequest) CacheKey() (string, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	seed := map[string]any{
		"dataset":  string(c.Meta.Dataset),
		"league":   string(c.Meta.League),
		"params":   c.ProviderParams,
		"residual": c.Residual,
	}
	if err := enc.Encode(seed); err != nil {
		return "", fmt.Errorf("cache key encode: %w", err)
	}
	sum := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:]), nil
}

// PartitionKey names the persistent-tier partition this request belongs to.
// Season-wide pulls land in one file per (dataset, league, season).
func (c *CompiledRequest) PartitionKey() string {
	season := c.Meta.Season
	if season == "" {
		season = "any"
	}
	return fmt.Sprintf("%s_%s_%s", c.Meta.Dataset, c.Meta.League, season)
}
