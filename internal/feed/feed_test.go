package feed

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittclouds/lorekeep/internal/store"
	"github.com/kittclouds/lorekeep/pkg/cursor"
)

func seedCanvas(t *testing.T, s store.Storer) {
	t.Helper()
	require.NoError(t, s.CreateCanvas(&store.Canvas{ID: "canvas-1", Name: "c", CreatedAt: 1}, "user-1"))
}

func putItem(t *testing.T, s store.Storer, id string, createdAt int64) {
	t.Helper()
	require.NoError(t, s.PutItem(&store.CanvasItem{
		ID: id, CanvasID: "canvas-1", Type: store.ItemEvent, Title: id,
		CreatedAt: createdAt, UpdatedAt: createdAt,
	}))
}

// TestTimelineTieBreakExample walks the canonical case: items A and B share
// created_at=10, C has 5, page size 2. Page 1 is [B,A] (id tie-break), page 2
// is [C] with a nil cursor.
func TestTimelineTieBreakExample(t *testing.T) {
	s := store.NewMemStore()
	defer s.Close()
	seedCanvas(t, s)
	putItem(t, s, "item-a", 10)
	putItem(t, s, "item-b", 10)
	putItem(t, s, "item-c", 5)

	page1, err := Timeline(s, TimelineRequest{CanvasID: "canvas-1", Sort: store.SortCreatedAt, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page1.Entries, 2)
	assert.Equal(t, "item-b", page1.Entries[0].ID)
	assert.Equal(t, "item-a", page1.Entries[1].ID)
	require.NotNil(t, page1.NextCursor)

	c, err := cursor.Decode(*page1.NextCursor)
	require.NoError(t, err)
	assert.Equal(t, int64(10), c.Key)
	assert.Equal(t, "item-a", c.ID)

	page2, err := Timeline(s, TimelineRequest{CanvasID: "canvas-1", Sort: store.SortCreatedAt, Limit: 2, Cursor: *page1.NextCursor})
	require.NoError(t, err)
	require.Len(t, page2.Entries, 1)
	assert.Equal(t, "item-c", page2.Entries[0].ID)
	assert.Nil(t, page2.NextCursor, "short page ends the feed")
}

// TestTimelineCompleteness pages through a feed with many duplicate
// timestamps: concatenated pages must yield every entry exactly once, in
// descending order.
func TestTimelineCompleteness(t *testing.T) {
	s := store.NewMemStore()
	defer s.Close()
	seedCanvas(t, s)

	const total = 23
	for i := 0; i < total; i++ {
		// Only 5 distinct timestamps, so ties cross page boundaries.
		putItem(t, s, fmt.Sprintf("item-%02d", i), int64(i%5))
	}

	seen := make(map[string]bool)
	var lastKey int64
	var lastID string
	cursorStr := ""
	pages := 0
	for {
		req := TimelineRequest{CanvasID: "canvas-1", Sort: store.SortCreatedAt, Limit: 4, Cursor: cursorStr}
		page, err := Timeline(s, req)
		require.NoError(t, err)
		pages++
		for _, e := range page.Entries {
			assert.False(t, seen[e.ID], "entry %s repeated across pages", e.ID)
			seen[e.ID] = true
			if lastID != "" {
				ordered := e.CreatedAt < lastKey || (e.CreatedAt == lastKey && e.ID < lastID)
				assert.True(t, ordered, "entry %s out of order", e.ID)
			}
			lastKey, lastID = e.CreatedAt, e.ID
		}
		if page.NextCursor == nil {
			break
		}
		cursorStr = *page.NextCursor
	}

	assert.Len(t, seen, total, "no omissions")
	assert.Equal(t, 6, pages, "23 entries at page size 4")
}

func TestTimelineRejectsBadCursors(t *testing.T) {
	s := store.NewMemStore()
	defer s.Close()
	seedCanvas(t, s)
	putItem(t, s, "item-a", 10)

	_, err := Timeline(s, TimelineRequest{CanvasID: "canvas-1", Sort: store.SortCreatedAt, Cursor: "garbage!!"})
	assert.ErrorIs(t, err, cursor.ErrInvalidCursor)

	// Cursor minted for createdAt cannot resume an updatedAt feed.
	page, err := Timeline(s, TimelineRequest{CanvasID: "canvas-1", Sort: store.SortCreatedAt, Limit: 1})
	require.NoError(t, err)
	require.NotNil(t, page.NextCursor)
	_, err = Timeline(s, TimelineRequest{CanvasID: "canvas-1", Sort: store.SortUpdatedAt, Cursor: *page.NextCursor})
	assert.ErrorIs(t, err, cursor.ErrInvalidCursor)

	// Unknown sort field.
	_, err = Timeline(s, TimelineRequest{CanvasID: "canvas-1", Sort: "sessionDate"})
	assert.ErrorIs(t, err, cursor.ErrInvalidCursor)
}

func TestGalleryPagination(t *testing.T) {
	s := store.NewMemStore()
	defer s.Close()
	seedCanvas(t, s)
	putItem(t, s, "item-a", 1)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.PutPhoto(&store.Photo{
			ID: fmt.Sprintf("photo-%d", i), ItemID: "item-a",
			Filename: fmt.Sprintf("%d.jpg", i), Important: i%2 == 0, CreatedAt: int64(i),
		}))
	}

	page1, err := Gallery(s, GalleryRequest{CanvasID: "canvas-1", Limit: 3})
	require.NoError(t, err)
	require.Len(t, page1.Entries, 3)
	assert.Equal(t, "photo-4", page1.Entries[0].ID)
	require.NotNil(t, page1.NextCursor)

	page2, err := Gallery(s, GalleryRequest{CanvasID: "canvas-1", Limit: 3, Cursor: *page1.NextCursor})
	require.NoError(t, err)
	require.Len(t, page2.Entries, 2)
	assert.Nil(t, page2.NextCursor)

	// important_only applies before pagination: 3 of 5 photos qualify.
	imp, err := Gallery(s, GalleryRequest{CanvasID: "canvas-1", Limit: 2, ImportantOnly: true})
	require.NoError(t, err)
	require.Len(t, imp.Entries, 2)
	require.NotNil(t, imp.NextCursor)
	imp2, err := Gallery(s, GalleryRequest{CanvasID: "canvas-1", Limit: 2, ImportantOnly: true, Cursor: *imp.NextCursor})
	require.NoError(t, err)
	require.Len(t, imp2.Entries, 1)
	assert.Nil(t, imp2.NextCursor)

	// A timeline cursor cannot resume the gallery.
	tl, err := Timeline(s, TimelineRequest{CanvasID: "canvas-1", Sort: store.SortCreatedAt, Limit: 1})
	require.NoError(t, err)
	require.NotNil(t, tl.NextCursor)
	_, err = Gallery(s, GalleryRequest{CanvasID: "canvas-1", Cursor: *tl.NextCursor})
	assert.ErrorIs(t, err, cursor.ErrInvalidCursor)
}
