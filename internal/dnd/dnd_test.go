package dnd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lyra-cli/internal/model"
)

func TestDragLifecycle(t *testing.T) {
	var d Drag
	assert.Equal(t, PhaseIdle, d.Phase())
	assert.Error(t, d.Start(" "))

	require.NoError(t, d.Start("s1"))
	d.Over("s3")
	assert.Equal(t, "s3", d.OverID())
	assert.Equal(t, PhaseDropped, d.Drop("s2"))
	assert.Equal(t, "s2", d.OverID())

	// Dropping again after the gesture ended changes nothing.
	assert.Equal(t, PhaseDropped, d.Drop("s9"))

	require.NoError(t, d.Start("s1"))
	assert.Equal(t, PhaseCancelled, d.Drop("s1"))
	require.NoError(t, d.Start("s1"))
	assert.Equal(t, PhaseCancelled, d.Drop(""))

	require.NoError(t, d.Start("s1"))
	d.Cancel()
	assert.Equal(t, PhaseCancelled, d.Phase())
	d.Reset()
	assert.Equal(t, Drag{}, d)
}

func TestMove(t *testing.T) {
	ids := []string{"a", "b", "c", "d"}
	assert.Equal(t, []string{"b", "c", "a", "d"}, Move(ids, 0, 2))
	assert.Equal(t, []string{"d", "a", "b", "c"}, Move(ids, 3, 0))
	assert.Equal(t, ids, Move(ids, 1, 9))
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids, "input must not be mutated")
}

func TestReorder(t *testing.T) {
	ids := []string{"s1", "s2", "s3"}

	got, changed := Reorder(ids, "s3", "s1")
	assert.True(t, changed)
	assert.Equal(t, []string{"s3", "s1", "s2"}, got)

	got, changed = Reorder(ids, "s1", "s2")
	assert.True(t, changed)
	assert.Equal(t, []string{"s2", "s1", "s3"}, got)
}

func TestReorderToSameOrderIsIdempotent(t *testing.T) {
	ids := []string{"s1", "s2", "s3"}
	for _, tc := range []struct{ active, over string }{
		{"s2", "s2"},
		{"s2", ""},
		{"missing", "s1"},
	} {
		got, changed := Reorder(ids, tc.active, tc.over)
		assert.False(t, changed, "%s over %s", tc.active, tc.over)
		assert.Equal(t, ids, got)
	}
}

func folder(id string, parent *string) model.Item {
	return model.Item{Kind: model.ItemFolder, ID: id, Title: id, ParentID: parent}
}

func doc(id string, parent *string) model.Item {
	return model.Item{Kind: model.ItemDocument, ID: id, Title: id, ParentID: parent, Doc: &model.DocumentStats{}}
}

func tree() []model.Item {
	// root -> A -> B -> C, root -> D (document), A -> E (document)
	return []model.Item{
		folder("A", nil),
		folder("B", model.StrPtr("A")),
		folder("C", model.StrPtr("B")),
		doc("D", nil),
		doc("E", model.StrPtr("A")),
	}
}

func TestDescendantsBreadthFirst(t *testing.T) {
	assert.Equal(t, []string{"B", "E", "C"}, Descendants(tree(), "A"))
	assert.Empty(t, Descendants(tree(), "D"))
}

func TestCheckReparentRejectsCycles(t *testing.T) {
	items := tree()

	err := CheckReparent(items, "A", model.StrPtr("B"))
	var mr *MoveRejectedError
	require.ErrorAs(t, err, &mr)
	assert.Equal(t, RejectCycle, mr.Reason)

	require.ErrorAs(t, CheckReparent(items, "A", model.StrPtr("C")), &mr)
	assert.Equal(t, RejectCycle, mr.Reason)

	require.ErrorAs(t, CheckReparent(items, "A", model.StrPtr("A")), &mr)
	assert.Equal(t, RejectSelf, mr.Reason)

	require.ErrorAs(t, CheckReparent(items, "E", model.StrPtr("D")), &mr)
	assert.Equal(t, RejectNotFolder, mr.Reason)

	require.ErrorAs(t, CheckReparent(items, "E", model.StrPtr("nope")), &mr)
	assert.Equal(t, RejectUnknown, mr.Reason)
}

func TestCheckReparentAllowsValidMoves(t *testing.T) {
	items := tree()
	assert.NoError(t, CheckReparent(items, "D", model.StrPtr("C")))
	assert.NoError(t, CheckReparent(items, "C", model.StrPtr("A")))
	assert.NoError(t, CheckReparent(items, "C", nil))
}
