package invoice

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const (
	historyBucket = "company-history"
	historyKey    = "names"

	// historyLimit caps how many company names are remembered.
	historyLimit = 20

	// defaultCompanyName is the placeholder the UI starts with; it never
	// belongs in the history.
	defaultCompanyName = "moje_firma"
)

// History persists the most-recently-used company names. A corrupted or
// missing store reads as empty history; it never blocks the pipeline.
type History struct {
	db *bbolt.DB
}

// OpenHistory opens (or creates) the history store at path.
func OpenHistory(path string) (*History, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening history store: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(historyBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating history bucket: %w", err)
	}

	return &History{db: db}, nil
}

// List returns the remembered names, most recent first. Any read or decode
// problem is treated as empty history.
func (h *History) List() []string {
	var names []string
	h.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(historyBucket))
		if bucket == nil {
			return nil
		}
		data := bucket.Get([]byte(historyKey))
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &names); err != nil {
			names = nil
		}
		return nil
	})
	return names
}

// Add records a name at the front of the history, deduplicated and capped.
// Empty names and the placeholder are ignored.
func (h *History) Add(name string) error {
	if name == "" || name == defaultCompanyName {
		return nil
	}

	names := h.List()
	filtered := make([]string, 0, len(names)+1)
	filtered = append(filtered, name)
	for _, n := range names {
		if n != name {
			filtered = append(filtered, n)
		}
	}
	if len(filtered) > historyLimit {
		filtered = filtered[:historyLimit]
	}

	data, err := json.Marshal(filtered)
	if err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}

	err = h.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(historyBucket)).Put([]byte(historyKey), data)
	})
	if err != nil {
		return fmt.Errorf("saving history: %w", err)
	}
	return nil
}

// Close closes the underlying store.
func (h *History) Close() error {
	return h.db.Close()
}
