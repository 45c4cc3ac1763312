package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const (
	cooldownPrefix = "cooldown:"
	orderPrefix    = "order:"

	// Order hashes only need to survive long enough to dedupe overlapping
	// poll windows across a restart.
	orderRetention = 48 * time.Hour
)

// CooldownStore tracks recently announced listings in badger so a seller
// relisting the same token inside the cooldown window stays quiet, and so
// the same marketplace order is never announced twice. Entries carry TTLs,
// badger drops them on its own once they expire.
type CooldownStore struct {
	db     *badger.DB
	window time.Duration
	now    func() time.Time
}

func NewCooldownStore(db *badger.DB, window time.Duration) *CooldownStore {
	return &CooldownStore{
		db:     db,
		window: window,
		now:    time.Now,
	}
}

func cooldownKey(seller, tokenID string) []byte {
	return []byte(fmt.Sprintf("%s%s:%s", cooldownPrefix, seller, tokenID))
}

func orderKey(orderHash string) []byte {
	return []byte(orderPrefix + orderHash)
}

// InCooldown reports whether seller listed tokenID within the cooldown window.
func (s *CooldownStore) InCooldown(seller, tokenID string) (bool, error) {
	var last int64
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(cooldownKey(seller, tokenID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			if len(val) != 8 {
				return fmt.Errorf("malformed cooldown value, len %d", len(val))
			}
			last = int64(binary.BigEndian.Uint64(val))
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return s.now().Unix()-last < int64(s.window.Seconds()), nil
}

// MarkListed records a listing announcement for the seller/token pair.
func (s *CooldownStore) MarkListed(seller, tokenID string) error {
	val := make([]byte, 8)
	binary.BigEndian.PutUint64(val, uint64(s.now().Unix()))
	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(cooldownKey(seller, tokenID), val).WithTTL(2 * s.window)
		return txn.SetEntry(entry)
	})
}

// SeenOrder reports whether the marketplace order hash was already processed.
func (s *CooldownStore) SeenOrder(orderHash string) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(orderKey(orderHash))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *CooldownStore) MarkOrder(orderHash string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(orderKey(orderHash), []byte{1}).WithTTL(orderRetention)
		return txn.SetEntry(entry)
	})
}
