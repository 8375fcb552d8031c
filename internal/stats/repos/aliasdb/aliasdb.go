// Package aliasdb resolves team and player display names to canonical
// identifiers using per-league alias tables persisted in Bolt. Resolution is
// exact and alias-table only; no fuzzy matching. Lookups run through a small
// LRU decision cache before touching the store.
package aliasdb

import (
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	bbolt "go.etcd.io/bbolt"

	"github.com/statlinehq/statline/internal/stats/domain"
)

// Kind distinguishes the two alias namespaces.
type Kind string

const (
	KindTeam   Kind = "team"
	KindPlayer Kind = "player"
)

const decisionCacheSize = 4096

type decision struct {
	id    string
	found bool
}

// Resolver maps display names to canonical ids.
type Resolver struct {
	db    *bbolt.DB
	cache *lru.Cache[string, decision]
}

// Open opens (or creates) the alias database at path.
func Open(path string) (*Resolver, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	cache, err := lru.New[string, decision](decisionCacheSize)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Resolver{db: db, cache: cache}, nil
}

func (r *Resolver) Close() error { return r.db.Close() }

// Seed replaces the alias set for one (league, kind) namespace. aliases maps
// display names (in any casing) to canonical ids; the canonical display name
// itself should be included as its own alias.
func (r *Resolver) Seed(league domain.League, kind Kind, aliases map[string]string) error {
	name := bucketName(league, kind)
	err := r.db.Update(func(tx *bbolt.Tx) error {
		if b := tx.Bucket(name); b != nil {
			if err := tx.DeleteBucket(name); err != nil {
				return err
			}
		}
		b, err := tx.CreateBucket(name)
		if err != nil {
			return err
		}
		for alias, id := range aliases {
			if err := b.Put([]byte(normalizeName(alias)), []byte(id)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("seed %s: %w", name, err)
	}
	r.cache.Purge()
	return nil
}

// Resolve returns the canonical id for name within the (league, kind)
// namespace, or false if the name is unknown. Matching is case-insensitive
// and whitespace-normalized but never approximate.
func (r *Resolver) Resolve(league domain.League, kind Kind, name string) (string, bool) {
	key := string(bucketName(league, kind)) + "\x00" + normalizeName(name)
	if d, ok := r.cache.Get(key); ok {
		return d.id, d.found
	}

	var id string
	var found bool
	_ = r.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName(league, kind))
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(normalizeName(name))); v != nil {
			id = string(v)
			found = true
		}
		return nil
	})

	r.cache.Add(key, decision{id: id, found: found})
	return id, found
}

// ResolveTeam is a convenience wrapper over Resolve for the team namespace.
func (r *Resolver) ResolveTeam(league domain.League, name string) (string, bool) {
	return r.Resolve(league, KindTeam, name)
}

// ResolvePlayer is a convenience wrapper over Resolve for the player
// namespace.
func (r *Resolver) ResolvePlayer(league domain.League, name string) (string, bool) {
	return r.Resolve(league, KindPlayer, name)
}

func bucketName(league domain.League, kind Kind) []byte {
	return []byte(string(league) + "/" + string(kind))
}

// normalizeName lowercases and collapses interior whitespace so that the
// same display name matches regardless of provider formatting quirks.
func normalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
