package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_AppendExtendsColumns(t *testing.T) {
	tbl := NewTable(ColGameID, ColDate)
	tbl.Append(Row{ColGameID: "g1", ColDate: "2024-01-05", ColVenue: "TD Garden"})
	assert.Equal(t, []string{ColGameID, ColDate, ColVenue}, tbl.Columns)
	assert.Equal(t, 1, tbl.Len())
}

func TestTable_ProjectPreservesOrderAndIgnoresUnknown(t *testing.T) {
	tbl := NewTable("a", "b", "c")
	tbl.Append(Row{"a": 1, "b": 2, "c": 3})
	got := tbl.Project([]string{"c", "a", "nope"})
	assert.Equal(t, []string{"c", "a"}, got.Columns)
	require.Len(t, got.Rows, 1)
	assert.Equal(t, Row{"c": 3, "a": 1}, got.Rows[0])
}

func TestTable_Head(t *testing.T) {
	tbl := NewTable("a")
	tbl.Append(Row{"a": 1}, Row{"a": 2}, Row{"a": 3})
	assert.Equal(t, 2, tbl.Head(2).Len())
	assert.Equal(t, 3, tbl.Head(0).Len(), "zero limit means unlimited")
	assert.Equal(t, 3, tbl.Head(10).Len())
}

func TestTable_MergeDeduplicatesByIdentity(t *testing.T) {
	a := NewTable(ColGameID)
	a.Append(Row{ColGameID: "g1"}, Row{ColGameID: "g2"})
	b := NewTable(ColGameID)
	b.Append(Row{ColGameID: "g2"}, Row{ColGameID: "g3"})
	a.Merge(b, ColGameID)
	assert.Equal(t, 3, a.Len())
}

func TestRow_Accessors(t *testing.T) {
	r := Row{"id": 42, "name": "Liberty", "pct": 0.51, "missing": nil}
	assert.Equal(t, "42", r.String("id"))
	assert.Equal(t, "Liberty", r.String("name"))
	assert.Equal(t, "", r.String("missing"))

	f, ok := r.Float("pct")
	assert.True(t, ok)
	assert.Equal(t, 0.51, f)

	n, ok := r.Int("id")
	assert.True(t, ok)
	assert.Equal(t, 42, n)

	_, ok = r.Int("pct")
	assert.False(t, ok)
}

func TestEmptyTableKeepsShape(t *testing.T) {
	tbl := NewTable(ColGameID, ColDate)
	assert.True(t, tbl.IsEmpty())
	assert.NotNil(t, tbl.Rows)
	assert.Equal(t, []string{ColGameID, ColDate}, tbl.Columns)
}
