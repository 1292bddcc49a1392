package transfer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittclouds/lorekeep/internal/attach"
	"github.com/kittclouds/lorekeep/internal/store"
)

// seedCanvas builds a small but fully connected canvas: two linked items
// with a parent/child relationship, a tagged item, a note mentioning the
// other item, and a photo with real attachment bytes.
func seedCanvas(t *testing.T, st store.Storer, att attach.Store) {
	t.Helper()

	require.NoError(t, st.CreateCanvas(&store.Canvas{ID: "canvas-1", Name: "The Sunken Realm", CreatedAt: 100}, "user-1"))

	parent := "item-a"
	require.NoError(t, st.PutItem(&store.CanvasItem{ID: "item-a", CanvasID: "canvas-1", Type: store.ItemPerson, Title: "Mira", CreatedAt: 10, UpdatedAt: 10}))
	require.NoError(t, st.PutItem(&store.CanvasItem{ID: "item-b", CanvasID: "canvas-1", Type: store.ItemPlace, Title: "Harbor", ParentItemID: &parent, CreatedAt: 20, UpdatedAt: 20}))
	require.NoError(t, st.PutLink("item-a", "item-b"))

	require.NoError(t, st.CreateNote(&store.Note{ID: "note-1", ItemID: "item-a", Content: "met at @{item-b}", CreatedAt: 10, UpdatedAt: 10}))

	require.NoError(t, st.PutTag(&store.Tag{ID: "tag-1", CanvasID: "canvas-1", Name: "npc"}))
	require.NoError(t, st.AssignTag("item-a", "tag-1"))

	require.NoError(t, st.PutPhoto(&store.Photo{ID: "photo-1", ItemID: "item-b", Filename: "harbor.jpg", Selected: true, CreatedAt: 20}))
	require.NoError(t, att.Put("harbor.jpg", []byte("jpeg-bytes")))
}

func TestExportImportRoundTrip(t *testing.T) {
	srcStore := store.NewMemStore()
	srcAtt := attach.NewMemStore()
	seedCanvas(t, srcStore, srcAtt)

	data, err := Export(srcStore, srcAtt, "canvas-1")
	require.NoError(t, err)

	dstStore := store.NewMemStore()
	dstAtt := attach.NewMemStore()
	res, err := Import(dstStore, dstAtt, seqSource("new"), data, "user-2")
	require.NoError(t, err)

	assert.NotEqual(t, "canvas-1", res.ID)
	assert.Equal(t, "The Sunken Realm", res.Name)

	// Importing user owns the copy.
	canvases, err := dstStore.ListCanvases("user-2")
	require.NoError(t, err)
	require.Len(t, canvases, 1)
	assert.Equal(t, res.ID, canvases[0].ID)

	items, err := dstStore.ListItems(res.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)

	byTitle := map[string]*store.CanvasItem{}
	for _, it := range items {
		assert.NotEqual(t, "item-a", it.ID)
		assert.NotEqual(t, "item-b", it.ID)
		byTitle[it.Title] = it
	}
	require.Contains(t, byTitle, "Mira")
	require.Contains(t, byTitle, "Harbor")
	require.NotNil(t, byTitle["Harbor"].ParentItemID)
	assert.Equal(t, byTitle["Mira"].ID, *byTitle["Harbor"].ParentItemID)

	// Link graph is isomorphic: one edge between the same two titles.
	links, err := dstStore.ListLinks(res.ID)
	require.NoError(t, err)
	require.Len(t, links, 1)
	endpoints := map[string]bool{links[0].ItemA: true, links[0].ItemB: true}
	assert.True(t, endpoints[byTitle["Mira"].ID])
	assert.True(t, endpoints[byTitle["Harbor"].ID])

	// Mention tokens resolve to the fresh ids.
	notes, err := dstStore.ListNotes(byTitle["Mira"].ID)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "met at @{"+byTitle["Harbor"].ID+"}", notes[0].Content)

	tags, err := dstStore.ListTags(res.ID)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "npc", tags[0].Name)

	assignments, err := dstStore.ListTagAssignments(res.ID)
	require.NoError(t, err)
	require.Len(t, assignments, 1)
	assert.Equal(t, byTitle["Mira"].ID, assignments[0].ItemID)

	// Attachment bytes travel under the fresh filename.
	photos, err := dstStore.ListPhotos(byTitle["Harbor"].ID)
	require.NoError(t, err)
	require.Len(t, photos, 1)
	assert.NotEqual(t, "harbor.jpg", photos[0].Filename)
	assert.True(t, photos[0].Selected)
	got, err := dstAtt.Get(photos[0].Filename)
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-bytes"), got)
}

func TestImportIntoSameStoreTwice(t *testing.T) {
	st := store.NewMemStore()
	att := attach.NewMemStore()
	seedCanvas(t, st, att)

	data, err := Export(st, att, "canvas-1")
	require.NoError(t, err)

	res1, err := Import(st, att, seqSource("copy1"), data, "user-1")
	require.NoError(t, err)
	res2, err := Import(st, att, seqSource("copy2"), data, "user-1")
	require.NoError(t, err)
	assert.NotEqual(t, res1.ID, res2.ID)

	canvases, err := st.ListCanvases("user-1")
	require.NoError(t, err)
	assert.Len(t, canvases, 3)
}

func TestExportUnknownCanvas(t *testing.T) {
	st := store.NewMemStore()
	_, err := Export(st, attach.NewMemStore(), "canvas-nope")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestImportMalformedData(t *testing.T) {
	st := store.NewMemStore()
	_, err := Import(st, attach.NewMemStore(), seqSource("new"), []byte("junk"), "user-1")
	assert.ErrorIs(t, err, ErrMalformedArchive)

	canvases, err := st.ListCanvases("user-1")
	require.NoError(t, err)
	assert.Empty(t, canvases)
}

func TestImportFailureCleansUpAttachments(t *testing.T) {
	st := store.NewMemStore()
	att := attach.NewMemStore()
	seedCanvas(t, st, att)

	data, err := Export(st, att, "canvas-1")
	require.NoError(t, err)

	// A source that re-issues the existing ids forces an id conflict in
	// the metadata transaction after the attachment bytes were written.
	ids := []string{"canvas-1", "item-a", "item-b", "note-1", "tag-1", "photo-1"}
	i := 0
	colliding := func() string {
		id := ids[i%len(ids)]
		i++
		return id
	}

	_, err = Import(st, att, colliding, data, "user-1")
	require.ErrorIs(t, err, ErrImportFailed)

	// The colliding photo id maps the attachment onto photo-1.jpg; the
	// rollback must have removed it again.
	_, err = att.Get("photo-1.jpg")
	assert.Error(t, err)
	// The original attachment is untouched.
	_, err = att.Get("harbor.jpg")
	assert.NoError(t, err)
}

func TestCloneWholeCanvas(t *testing.T) {
	st := store.NewMemStore()
	att := attach.NewMemStore()
	seedCanvas(t, st, att)

	res, err := Clone(st, att, seqSource("clone"), "canvas-1", "", "user-2")
	require.NoError(t, err)

	items, err := st.ListItems(res.ID)
	require.NoError(t, err)
	assert.Len(t, items, 2)

	// Source canvas is untouched.
	items, err = st.ListItems("canvas-1")
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestCloneSubtree(t *testing.T) {
	st := store.NewMemStore()
	att := attach.NewMemStore()
	seedCanvas(t, st, att)

	// Extend the tree: item-c under item-b, item-d detached.
	parentB := "item-b"
	require.NoError(t, st.PutItem(&store.CanvasItem{ID: "item-c", CanvasID: "canvas-1", Type: store.ItemThing, Title: "Anchor", ParentItemID: &parentB, CreatedAt: 30, UpdatedAt: 30}))
	require.NoError(t, st.PutItem(&store.CanvasItem{ID: "item-d", CanvasID: "canvas-1", Type: store.ItemEvent, Title: "Storm", CreatedAt: 40, UpdatedAt: 40}))
	require.NoError(t, st.PutLink("item-b", "item-d"))

	res, err := Clone(st, att, seqSource("sub"), "canvas-1", "item-b", "user-2")
	require.NoError(t, err)

	items, err := st.ListItems(res.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	titles := map[string]*store.CanvasItem{}
	for _, it := range items {
		titles[it.Title] = it
	}
	require.Contains(t, titles, "Harbor")
	require.Contains(t, titles, "Anchor")

	// The subtree root loses its parent pointer; the child keeps it.
	assert.Nil(t, titles["Harbor"].ParentItemID)
	require.NotNil(t, titles["Anchor"].ParentItemID)
	assert.Equal(t, titles["Harbor"].ID, *titles["Anchor"].ParentItemID)

	// Both link endpoints fell outside the subtree in one case each, so
	// no edges survive.
	links, err := st.ListLinks(res.ID)
	require.NoError(t, err)
	assert.Empty(t, links)

	// item-a's note and tag stay behind; item-b's photo comes along.
	notes, err := st.ListNotes(titles["Harbor"].ID)
	require.NoError(t, err)
	assert.Empty(t, notes)
	tags, err := st.ListTags(res.ID)
	require.NoError(t, err)
	assert.Empty(t, tags)
	photos, err := st.ListPhotos(titles["Harbor"].ID)
	require.NoError(t, err)
	assert.Len(t, photos, 1)
}

func TestCloneSubtreeRootMissing(t *testing.T) {
	st := store.NewMemStore()
	att := attach.NewMemStore()
	seedCanvas(t, st, att)

	_, err := Clone(st, att, seqSource("sub"), "canvas-1", "item-nope", "user-2")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
