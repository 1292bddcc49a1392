package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Keyset Page Query Tests
// =============================================================================

func TestTimelinePageOrderingAndTieBreak(t *testing.T) {
	runTestsForAllStores(t, "TimelineOrdering", func(t *testing.T, s Storer) {
		mustCanvas(t, s, "canvas-1", "user-1")
		// A and B share a timestamp; C is older.
		mustItem(t, s, "item-a", "canvas-1", 10)
		mustItem(t, s, "item-b", "canvas-1", 10)
		mustItem(t, s, "item-c", "canvas-1", 5)

		page, err := s.TimelinePage(TimelineQuery{CanvasID: "canvas-1", Sort: SortCreatedAt, Limit: 2})
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, "item-b", page[0].ID, "equal timestamps order by id descending")
		assert.Equal(t, "item-a", page[1].ID)

		// Resume strictly after (10, item-a).
		page, err = s.TimelinePage(TimelineQuery{
			CanvasID: "canvas-1", Sort: SortCreatedAt, Limit: 2,
			AfterKey: 10, AfterID: "item-a",
		})
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, "item-c", page[0].ID)
	})
}

func TestTimelinePageSortFieldAndParentFilter(t *testing.T) {
	runTestsForAllStores(t, "TimelineFilters", func(t *testing.T, s Storer) {
		mustCanvas(t, s, "canvas-1", "user-1")
		parent := mustItem(t, s, "item-parent", "canvas-1", 1)

		a := mustItem(t, s, "item-a", "canvas-1", 10)
		a.ParentItemID = &parent.ID
		a.UpdatedAt = 50
		require.NoError(t, s.PutItem(a))

		b := mustItem(t, s, "item-b", "canvas-1", 20)
		b.UpdatedAt = 40
		require.NoError(t, s.PutItem(b))

		// updatedAt ordering differs from createdAt ordering here.
		page, err := s.TimelinePage(TimelineQuery{CanvasID: "canvas-1", Sort: SortUpdatedAt, Limit: 10})
		require.NoError(t, err)
		require.Len(t, page, 3)
		assert.Equal(t, "item-a", page[0].ID)
		assert.Equal(t, "item-b", page[1].ID)

		// Parent scope applies before pagination.
		page, err = s.TimelinePage(TimelineQuery{
			CanvasID: "canvas-1", Sort: SortCreatedAt, ParentItemID: "item-parent", Limit: 10,
		})
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, "item-a", page[0].ID)
	})
}

func TestGalleryPageFilters(t *testing.T) {
	runTestsForAllStores(t, "GalleryFilters", func(t *testing.T, s Storer) {
		mustCanvas(t, s, "canvas-1", "user-1")
		parent := mustItem(t, s, "item-parent", "canvas-1", 1)
		a := mustItem(t, s, "item-a", "canvas-1", 10)
		a.ParentItemID = &parent.ID
		require.NoError(t, s.PutItem(a))
		mustItem(t, s, "item-b", "canvas-1", 20)

		require.NoError(t, s.PutPhoto(&Photo{ID: "photo-1", ItemID: "item-a", Filename: "1.jpg", Important: true, CreatedAt: 10}))
		require.NoError(t, s.PutPhoto(&Photo{ID: "photo-2", ItemID: "item-a", Filename: "2.jpg", CreatedAt: 20}))
		require.NoError(t, s.PutPhoto(&Photo{ID: "photo-3", ItemID: "item-b", Filename: "3.jpg", Important: true, CreatedAt: 30}))

		page, err := s.GalleryPage(GalleryQuery{CanvasID: "canvas-1", Limit: 10})
		require.NoError(t, err)
		assert.Len(t, page, 3)
		assert.Equal(t, "photo-3", page[0].ID, "newest first")

		page, err = s.GalleryPage(GalleryQuery{CanvasID: "canvas-1", ImportantOnly: true, Limit: 10})
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, "photo-3", page[0].ID)
		assert.Equal(t, "photo-1", page[1].ID)

		page, err = s.GalleryPage(GalleryQuery{CanvasID: "canvas-1", ParentItemID: "item-parent", Limit: 10})
		require.NoError(t, err)
		require.Len(t, page, 2)

		page, err = s.GalleryPage(GalleryQuery{
			CanvasID: "canvas-1", ParentItemID: "item-parent", ImportantOnly: true, Limit: 10,
		})
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, "photo-1", page[0].ID)
	})
}
