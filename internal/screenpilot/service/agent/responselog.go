package agent

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/boltdb/bolt"
)

var bucketResponses = []byte("responses")

const defaultMaxResponses = 200

// ResponseLog keeps raw provider output for debugging. Entries are
// keyed by timestamp and rotated once the bucket exceeds its cap.
type ResponseLog struct {
	db         *bolt.DB
	maxEntries int
}

func OpenResponseLog(path string, maxEntries int) (*ResponseLog, error) {
	if maxEntries <= 0 {
		maxEntries = defaultMaxResponses
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open response log: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketResponses)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return &ResponseLog{db: db, maxEntries: maxEntries}, nil
}

// Append stores one raw response and drops the oldest entries beyond
// the cap. Keys sort chronologically, so rotation walks from the front.
func (l *ResponseLog) Append(content string) error {
	key := []byte(time.Now().UTC().Format("20060102_150405.000000000"))

	return l.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketResponses)
		if err := b.Put(key, []byte(content)); err != nil {
			return err
		}

		excess := b.Stats().KeyN + 1 - l.maxEntries
		if excess <= 0 {
			return nil
		}
		c := b.Cursor()
		for k, _ := c.First(); k != nil && excess > 0; k, _ = c.Next() {
			if err := c.Delete(); err != nil {
				return err
			}
			excess--
		}
		return nil
	})
}

// Recent returns up to n entries, newest first.
func (l *ResponseLog) Recent(n int) ([]string, error) {
	var out []string
	err := l.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketResponses).Cursor()
		for k, v := c.Last(); k != nil && len(out) < n; k, v = c.Prev() {
			out = append(out, string(v))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read response log: %w", err)
	}
	return out, nil
}

func (l *ResponseLog) Close() error {
	return l.db.Close()
}
