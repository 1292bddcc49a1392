// Package feed assembles the Timeline and Gallery pages: one bounded keyset
// query per page, descending by the sort key with an id tie-break, and an
// opaque next cursor.
package feed

import (
	"github.com/kittclouds/lorekeep/internal/store"
	"github.com/kittclouds/lorekeep/pkg/cursor"
)

const (
	// DefaultLimit applies when a request has no page size.
	DefaultLimit = 20
	// MaxLimit bounds the per-page query.
	MaxLimit = 100

	// galleryField tags gallery cursors so a timeline cursor cannot resume
	// a gallery feed (and vice versa).
	galleryField = "photoCreatedAt"
)

// TimelineRequest selects one page of canvas items.
type TimelineRequest struct {
	CanvasID     string
	Sort         store.SortField
	Cursor       string // optional; empty = first page
	Limit        int
	ParentItemID string // optional scope filter
}

// TimelinePage is one page of timeline entries, newest first.
// NextCursor is nil exactly when the feed is exhausted.
type TimelinePage struct {
	Entries    []*store.CanvasItem `json:"entries"`
	NextCursor *string             `json:"nextCursor"`
}

// GalleryRequest selects one page of photos across a canvas.
type GalleryRequest struct {
	CanvasID      string
	Cursor        string // optional; empty = first page
	Limit         int
	ImportantOnly bool
	ParentItemID  string // optional scope filter on the owning item
}

// GalleryPage is one page of gallery entries, newest first.
type GalleryPage struct {
	Entries    []*store.Photo `json:"entries"`
	NextCursor *string        `json:"nextCursor"`
}

func clampLimit(n int) int {
	if n <= 0 {
		return DefaultLimit
	}
	if n > MaxLimit {
		return MaxLimit
	}
	return n
}

// Timeline returns one page of items ordered by the requested timestamp
// field descending, id descending on ties. A cursor encoded for another
// sort field is rejected with cursor.ErrInvalidCursor.
func Timeline(st store.Storer, req TimelineRequest) (*TimelinePage, error) {
	if !req.Sort.Valid() {
		return nil, cursor.ErrInvalidCursor
	}
	limit := clampLimit(req.Limit)

	q := store.TimelineQuery{
		CanvasID:     req.CanvasID,
		Sort:         req.Sort,
		ParentItemID: req.ParentItemID,
		Limit:        limit,
	}
	if req.Cursor != "" {
		c, err := cursor.DecodeFor(req.Cursor, string(req.Sort))
		if err != nil {
			return nil, err
		}
		q.AfterKey = c.Key
		q.AfterID = c.ID
	}

	entries, err := st.TimelinePage(q)
	if err != nil {
		return nil, err
	}

	page := &TimelinePage{Entries: entries}
	if len(entries) == limit {
		last := entries[len(entries)-1]
		key := last.CreatedAt
		if req.Sort == store.SortUpdatedAt {
			key = last.UpdatedAt
		}
		next := cursor.Cursor{Field: string(req.Sort), Key: key, ID: last.ID}.Encode()
		page.NextCursor = &next
	}
	return page, nil
}

// Gallery returns one page of photos, newest first. The important-only and
// parent filters apply in the store query, before pagination.
func Gallery(st store.Storer, req GalleryRequest) (*GalleryPage, error) {
	limit := clampLimit(req.Limit)

	q := store.GalleryQuery{
		CanvasID:      req.CanvasID,
		ParentItemID:  req.ParentItemID,
		ImportantOnly: req.ImportantOnly,
		Limit:         limit,
	}
	if req.Cursor != "" {
		c, err := cursor.DecodeFor(req.Cursor, galleryField)
		if err != nil {
			return nil, err
		}
		q.AfterKey = c.Key
		q.AfterID = c.ID
	}

	entries, err := st.GalleryPage(q)
	if err != nil {
		return nil, err
	}

	page := &GalleryPage{Entries: entries}
	if len(entries) == limit {
		last := entries[len(entries)-1]
		next := cursor.Cursor{Field: galleryField, Key: last.CreatedAt, ID: last.ID}.Encode()
		page.NextCursor = &next
	}
	return page, nil
}
