package transfer

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittclouds/lorekeep/internal/store"
)

// seqSource yields prefix-01, prefix-02, ... so remap results are
// reproducible in assertions.
func seqSource(prefix string) IDSource {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%02d", prefix, n)
	}
}

func TestRemapAllocatesFreshIDs(t *testing.T) {
	snap := sampleSnapshot()
	out, m, err := Remap(snap, seqSource("new"))
	require.NoError(t, err)

	assert.Equal(t, "new-01", out.Canvas.ID)
	assert.Equal(t, snap.Canvas.Name, out.Canvas.Name)

	// Every old id must map to a distinct fresh id.
	seen := map[string]bool{}
	for _, table := range []map[string]string{m.Canvas, m.Items, m.Notes, m.Tags, m.Photos} {
		for old, fresh := range table {
			assert.NotEqual(t, old, fresh)
			assert.False(t, seen[fresh], "id %s allocated twice", fresh)
			seen[fresh] = true
		}
	}

	for _, item := range out.Items {
		assert.Equal(t, out.Canvas.ID, item.CanvasID)
	}
	require.Len(t, out.Links, 1)
	assert.Equal(t, out.Canvas.ID, out.Links[0].CanvasID)
	a, b := store.NormalizeLinkPair(m.Items["item-a"], m.Items["item-b"])
	assert.Equal(t, a, out.Links[0].ItemA)
	assert.Equal(t, b, out.Links[0].ItemB)
}

func TestRemapRewritesMentions(t *testing.T) {
	snap := sampleSnapshot()
	out, m, err := Remap(snap, seqSource("new"))
	require.NoError(t, err)

	require.Len(t, out.Notes, 1)
	assert.Equal(t, "met at @{"+m.Items["item-b"]+"}", out.Notes[0].Content)
}

func TestRemapStripsDanglingMentions(t *testing.T) {
	snap := sampleSnapshot()
	snap.Notes[0].Content = "ghost @{item-gone} remains"
	out, _, err := Remap(snap, seqSource("new"))
	require.NoError(t, err)
	assert.Equal(t, "ghost  remains", out.Notes[0].Content)
}

func TestRemapNullsExternalParent(t *testing.T) {
	snap := sampleSnapshot()
	external := "item-from-another-canvas"
	snap.Items[1].ParentItemID = &external

	out, _, err := Remap(snap, seqSource("new"))
	require.NoError(t, err)
	assert.Nil(t, out.Items[1].ParentItemID)
}

func TestRemapPreservesInternalParent(t *testing.T) {
	snap := sampleSnapshot()
	out, m, err := Remap(snap, seqSource("new"))
	require.NoError(t, err)

	require.NotNil(t, out.Items[1].ParentItemID)
	assert.Equal(t, m.Items["item-a"], *out.Items[1].ParentItemID)
}

func TestRemapRenamesAttachmentFiles(t *testing.T) {
	snap := sampleSnapshot()
	out, m, err := Remap(snap, seqSource("new"))
	require.NoError(t, err)

	require.Len(t, out.Photos, 1)
	assert.Equal(t, m.Photos["photo-1"]+".jpg", out.Photos[0].Filename)
	assert.Equal(t, out.Photos[0].Filename, m.Files["harbor.jpg"])
}

func TestRemapFatalCases(t *testing.T) {
	t.Run("LinkEndpointMissing", func(t *testing.T) {
		snap := sampleSnapshot()
		snap.Links[0].ItemB = "item-gone"
		_, _, err := Remap(snap, seqSource("new"))
		assert.ErrorIs(t, err, ErrRemap)
	})

	t.Run("NoteItemMissing", func(t *testing.T) {
		snap := sampleSnapshot()
		snap.Notes[0].ItemID = "item-gone"
		_, _, err := Remap(snap, seqSource("new"))
		assert.ErrorIs(t, err, ErrRemap)
	})

	t.Run("PhotoItemMissing", func(t *testing.T) {
		snap := sampleSnapshot()
		snap.Photos[0].ItemID = "item-gone"
		_, _, err := Remap(snap, seqSource("new"))
		assert.ErrorIs(t, err, ErrRemap)
	})

	t.Run("AssignmentTagMissing", func(t *testing.T) {
		snap := sampleSnapshot()
		snap.TagAssignments[0].TagID = "tag-gone"
		_, _, err := Remap(snap, seqSource("new"))
		assert.ErrorIs(t, err, ErrRemap)
	})

	t.Run("ItemFromForeignCanvas", func(t *testing.T) {
		snap := sampleSnapshot()
		snap.Items[0].CanvasID = "canvas-other"
		_, _, err := Remap(snap, seqSource("new"))
		assert.ErrorIs(t, err, ErrRemap)
	})
}

func TestRemapIsDeterministic(t *testing.T) {
	snap := sampleSnapshot()
	out1, _, err := Remap(snap, seqSource("new"))
	require.NoError(t, err)
	out2, _, err := Remap(snap, seqSource("new"))
	require.NoError(t, err)
	assert.Equal(t, out1, out2)
}
