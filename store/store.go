// Package store keeps the saved clip and Q&A collections, mirrored to
// JSON files so they survive restarts.
package store

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// Record is anything a Collection can hold.
type Record interface {
	RecordID() string
}

// Collection is an ordered, newest-first list of records with a JSON file
// mirror. The in-memory copy is authoritative: a failed save is logged and
// the session keeps working, corrupt data on disk is logged and treated as
// an empty collection.
type Collection[T Record] struct {
	path    string
	mu      sync.RWMutex
	records []T
}

// NewCollection opens (or creates) the collection mirrored at path.
func NewCollection[T Record](path string) *Collection[T] {
	c := &Collection[T]{path: path}
	c.load()
	return c
}

func (c *Collection[T]) load() {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[Store] Failed to read %s: %v", c.path, err)
		}
		return
	}

	var records []T
	if err := json.Unmarshal(data, &records); err != nil {
		log.Printf("[Store] Corrupt data in %s, starting empty: %v", c.path, err)
		return
	}
	c.records = records
}

// persist writes the full list to disk atomically. Failure is logged, not
// returned: the in-memory list stays authoritative for the session.
func (c *Collection[T]) persist() {
	data, err := json.MarshalIndent(c.records, "", "  ")
	if err != nil {
		log.Printf("[Store] Failed to marshal %s: %v", c.path, err)
		return
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		log.Printf("[Store] Failed to create dir for %s: %v", c.path, err)
		return
	}

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		log.Printf("[Store] Failed to write %s: %v", tmpPath, err)
		return
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		os.Remove(tmpPath)
		log.Printf("[Store] Failed to rename %s: %v", tmpPath, err)
	}
}

// All returns a copy of the records, newest first.
func (c *Collection[T]) All() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]T, len(c.records))
	copy(result, c.records)
	return result
}

// Get returns the record with the given id.
func (c *Collection[T]) Get(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, r := range c.records {
		if r.RecordID() == id {
			return r, true
		}
	}
	var zero T
	return zero, false
}

// Create prepends a record and re-persists the list.
func (c *Collection[T]) Create(record T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.records = append([]T{record}, c.records...)
	c.persist()
}

// Update replaces the matching record via patch and re-persists.
// Returns the updated record, or false when no record matched.
func (c *Collection[T]) Update(id string, patch func(T) T) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, r := range c.records {
		if r.RecordID() == id {
			c.records[i] = patch(r)
			c.persist()
			return c.records[i], true
		}
	}
	var zero T
	return zero, false
}

// Delete removes the matching record and re-persists.
func (c *Collection[T]) Delete(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, r := range c.records {
		if r.RecordID() == id {
			c.records = append(c.records[:i], c.records[i+1:]...)
			c.persist()
			return true
		}
	}
	return false
}

// Len returns the number of records.
func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// Path returns the mirror file path, mostly for logging.
func (c *Collection[T]) Path() string { return c.path }

func collectionPath(dataDir, name string) string {
	return filepath.Join(dataDir, fmt.Sprintf("%s.json", name))
}
