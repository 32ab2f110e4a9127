package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEntry(t *testing.T) {
	e, err := NewEntry(5, "text\n", "// note\n")
	require.NoError(t, err)
	assert.Equal(t, 5, e.ID)
	assert.Equal(t, "// note\n", e.Comment())

	_, err = NewEntry(-1, "text\n", "")
	assert.ErrorIs(t, err, ErrNegativeID)

	_, err = NewEntry(MaxID, "text\n", "")
	assert.NoError(t, err)
	_, err = NewEntry(MaxID+1, "text\n", "")
	assert.ErrorIs(t, err, ErrIDTooLarge)
}

func TestSortByID(t *testing.T) {
	a, _ := NewEntry(3, "c", "")
	b, _ := NewEntry(1, "a", "")
	c, _ := NewEntry(2, "b", "")
	entries := []*Entry{a, b, c}

	SortByID(entries)
	assert.Equal(t, []*Entry{b, c, a}, entries)
	assert.True(t, b.Less(a))
}

func TestEntryJSON(t *testing.T) {
	e, _ := NewEntry(7, "Hello\n", "// Units: H000 (Paladin), Name (Name)\n")
	data, err := json.Marshal(e)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":7,"content":"Hello\n","comment":"// Units: H000 (Paladin), Name (Name)\n"}`, string(data))
}

func TestEntryString(t *testing.T) {
	e, _ := NewEntry(7, "Hello\n", "// note\n")
	assert.Equal(t, `Entry(id=7, comment="note", content="Hello")`, e.String())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "a b", Truncate("a\nb", 10))
	assert.Equal(t, "abcdefg...", Truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "Меч...", Truncate("Меч героя", 6))
}

func TestParseCategory(t *testing.T) {
	c, ok := ParseCategory("Units")
	assert.True(t, ok)
	assert.Equal(t, Unit, c)

	c, ok = ParseCategory("BuffEffect")
	assert.True(t, ok)
	assert.Equal(t, BuffEffect, c)

	_, ok = ParseCategory("Heroes")
	assert.False(t, ok)
}

func TestParseField(t *testing.T) {
	f, ok := ParseField("Researchubertip")
	assert.True(t, ok)
	assert.Equal(t, Researchubertip, f)

	_, ok = ParseField("researchubertip")
	assert.False(t, ok)
	assert.Len(t, Fields, 20)
}

func TestKey(t *testing.T) {
	k := Key{Category: BuffEffect, Entity: "B000", Field: Bufftip}
	assert.Equal(t, "BuffEffect/B000/Bufftip", k.String())

	data, err := json.Marshal(k)
	require.NoError(t, err)
	assert.JSONEq(t, `{"category":"BuffEffect","entity":"B000","field":"Bufftip"}`, string(data))
}
