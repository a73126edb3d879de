// Package trust caches attestation verdicts per card public key so repeat
// verification of a known card can short-circuit.
package trust

import (
	"encoding/hex"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	log "github.com/sirupsen/logrus"

	cardwallet "github.com/hwsdk/cardwallet-go"
	"github.com/hwsdk/cardwallet-go/storage"
)

const keyPrefix = "trust/"

// Record is one cached verdict together with the attestation mode it was
// achieved under. A record satisfies a fresh request only at or below its
// mode.
type Record struct {
	Verdict   cardwallet.Attestation     `cbor:"1,keyasint"`
	Mode      cardwallet.AttestationMode `cbor:"2,keyasint"`
	UpdatedAt time.Time                  `cbor:"3,keyasint"`
}

// Cache maps card public keys to verdicts. Lookups reflect the most recent
// Record call within the process lifetime; with a backing store the cache
// also survives restarts. Entries never auto-expire.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Record
	store   storage.Storage
}

// NewCache builds a cache. store may be nil for a purely in-memory cache.
func NewCache(store storage.Storage) *Cache {
	return &Cache{
		entries: make(map[string]Record),
		store:   store,
	}
}

// Lookup returns the cached record for a card public key.
func (c *Cache) Lookup(publicKey []byte) (Record, bool) {
	id := hex.EncodeToString(publicKey)

	c.mu.RLock()
	rec, ok := c.entries[id]
	c.mu.RUnlock()
	if ok {
		return rec, true
	}

	if c.store == nil {
		return Record{}, false
	}

	raw, err := c.store.Get(keyPrefix + id)
	if err != nil || raw == nil {
		return Record{}, false
	}

	if err := cbor.Unmarshal(raw, &rec); err != nil {
		log.WithError(err).Warn("discarding undecodable trust cache entry")
		return Record{}, false
	}

	c.mu.Lock()
	c.entries[id] = rec
	c.mu.Unlock()

	return rec, true
}

// Record stores a verdict for a card public key. Only fully verified
// verdicts are cached: the card key must have passed online verification and
// no component may have failed or been skipped.
func (c *Cache) Record(publicKey []byte, verdict cardwallet.Attestation, mode cardwallet.AttestationMode) {
	if verdict.CardKey != cardwallet.AttestationVerified {
		return
	}
	switch verdict.Status() {
	case cardwallet.AttestationFailed, cardwallet.AttestationSkipped:
		return
	}

	id := hex.EncodeToString(publicKey)
	rec := Record{
		Verdict:   verdict,
		Mode:      mode,
		UpdatedAt: time.Now().UTC(),
	}

	c.mu.Lock()
	c.entries[id] = rec
	c.mu.Unlock()

	if c.store == nil {
		return
	}

	raw, err := cbor.Marshal(rec)
	if err != nil {
		log.WithError(err).Warn("cannot encode trust cache entry")
		return
	}
	if err := c.store.Set(keyPrefix+id, raw); err != nil {
		log.WithError(err).Warn("cannot persist trust cache entry")
	}
}

// Clear drops every entry, including persisted ones known to this process.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.store != nil {
		for id := range c.entries {
			if err := c.store.Delete(keyPrefix + id); err != nil {
				log.WithError(err).Warn("cannot delete trust cache entry")
			}
		}
	}

	c.entries = make(map[string]Record)
}
