package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordIDEqualityAndMapKey(t *testing.T) {
	a := NewRecordID("users", "alice")
	b := NewRecordID("users", "alice")
	c := NewRecordID("users", "bob")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	set := map[RecordID]struct{}{a: {}}
	_, ok := set[b]
	assert.True(t, ok)
	assert.True(t, a.Valid())
	assert.False(t, RecordID{Container: "users"}.Valid())
}

func TestRecordIDOrdering(t *testing.T) {
	ids := []RecordID{
		NewRecordID("b", "1"),
		NewRecordID("a", "2"),
		NewRecordID("a", "1"),
	}
	SortRecordIDs(ids)

	assert.Equal(t, []RecordID{
		NewRecordID("a", "1"),
		NewRecordID("a", "2"),
		NewRecordID("b", "1"),
	}, ids)
	assert.Equal(t, 0, ids[0].Compare(NewRecordID("a", "1")))
	assert.True(t, ids[0].Less(ids[1]))
}

func TestDedupeKeepsFirstOccurrence(t *testing.T) {
	ids := []RecordID{
		NewRecordID("a", "2"),
		NewRecordID("a", "1"),
		NewRecordID("a", "2"),
	}
	assert.Equal(t, []RecordID{NewRecordID("a", "2"), NewRecordID("a", "1")}, Dedupe(ids))
	assert.Empty(t, Dedupe(nil))
}

func TestRecordNotFound(t *testing.T) {
	var nilRecord *Record
	assert.True(t, nilRecord.NotFound())
	assert.True(t, (&Record{}).NotFound())

	r := &Record{Siblings: []Sibling{{Value: []byte("a")}, {Value: []byte("b")}}}
	assert.False(t, r.NotFound())
	assert.True(t, r.HasSiblings())
}
