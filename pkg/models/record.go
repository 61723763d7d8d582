// Package models provides the value types shared by planning and reading:
// record identifiers and the records fetched for them.
package models

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// RecordID identifies one record in the store by container and key.
// It is a comparable value and can be used directly as a map key.
type RecordID struct {
	Container string `json:"container" yaml:"container"`
	Key       string `json:"key" yaml:"key"`
}

// NewRecordID creates a record identifier
func NewRecordID(container, key string) RecordID {
	return RecordID{Container: container, Key: key}
}

// Valid reports whether both container and key are set
func (id RecordID) Valid() bool {
	return id.Container != "" && id.Key != ""
}

// Compare orders identifiers by container, then key.
// It returns -1, 0 or 1.
func (id RecordID) Compare(other RecordID) int {
	if c := strings.Compare(id.Container, other.Container); c != 0 {
		return c
	}
	return strings.Compare(id.Key, other.Key)
}

// Less reports whether id sorts before other
func (id RecordID) Less(other RecordID) bool {
	return id.Compare(other) < 0
}

func (id RecordID) String() string {
	return fmt.Sprintf("RecordID[container=%s, key=%s]", id.Container, id.Key)
}

// SortRecordIDs sorts ids in place by container, then key
func SortRecordIDs(ids []RecordID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
}

// Dedupe returns ids with duplicates removed, keeping the first occurrence
// of each identifier and the original order otherwise.
func Dedupe(ids []RecordID) []RecordID {
	seen := make(map[RecordID]struct{}, len(ids))
	out := make([]RecordID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Sibling is one concurrent value stored under a record key
type Sibling struct {
	Value           []byte            `json:"value"`
	ContentType     string            `json:"content_type,omitempty"`
	Charset         string            `json:"charset,omitempty"`
	ContentEncoding string            `json:"content_encoding,omitempty"`
	VTag            string            `json:"vtag,omitempty"`
	LastModified    time.Time         `json:"last_modified,omitempty"`
	UserMeta        map[string]string `json:"user_meta,omitempty"`
	Deleted         bool              `json:"deleted,omitempty"`
}

// Record is the result of fetching one key. A record may hold several
// siblings when the store kept conflicting writes; resolving them is left to
// the consumer. A record with no siblings was not found.
type Record struct {
	ID       RecordID  `json:"id"`
	VClock   []byte    `json:"vclock,omitempty"`
	Siblings []Sibling `json:"siblings"`
}

// NotFound reports whether the store had no value for the key
func (r *Record) NotFound() bool {
	return r == nil || len(r.Siblings) == 0
}

// HasSiblings reports whether the record holds more than one value
func (r *Record) HasSiblings() bool {
	return r != nil && len(r.Siblings) > 1
}
