// Package store provides persistence for Lorekeep canvases.
// This is the unified data layer behind export/import and the feeds.
package store

import "errors"

// Sentinel errors shared by all store implementations.
var (
	// ErrNotFound indicates a referenced canvas, item, note, photo or share
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrLastCanvas indicates an attempt to delete the sole remaining canvas
	// for an account.
	ErrLastCanvas = errors.New("cannot delete last canvas")

	// ErrSelfLink indicates an attempt to link an item to itself.
	ErrSelfLink = errors.New("item cannot link to itself")

	// ErrCrossCanvas indicates a link between items of different canvases.
	ErrCrossCanvas = errors.New("linked items belong to different canvases")

	// ErrConflict indicates a write collided with an existing row id.
	ErrConflict = errors.New("id conflict")
)

// ItemType classifies a canvas item.
type ItemType string

const (
	ItemPerson  ItemType = "person"
	ItemPlace   ItemType = "place"
	ItemThing   ItemType = "thing"
	ItemEvent   ItemType = "event"
	ItemSession ItemType = "session"
)

// Canvas is the root of ownership for all campaign data.
type Canvas struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt int64  `json:"createdAt"`
}

// CanvasUser binds a user to a canvas as a member.
type CanvasUser struct {
	CanvasID string `json:"canvasId"`
	UserID   string `json:"userId"`
	Role     string `json:"role"` // "owner" | "member"
}

// CanvasItem is a typed node placed on a canvas.
type CanvasItem struct {
	ID           string   `json:"id"`
	CanvasID     string   `json:"canvasId"`
	Type         ItemType `json:"type"`
	Title        string   `json:"title"`
	Summary      string   `json:"summary,omitempty"`
	CanvasX      float64  `json:"canvasX"`
	CanvasY      float64  `json:"canvasY"`
	SessionDate  *int64   `json:"sessionDate,omitempty"`
	ParentItemID *string  `json:"parentItemId,omitempty"`
	Important    bool     `json:"important"`
	CreatedAt    int64    `json:"createdAt"`
	UpdatedAt    int64    `json:"updatedAt"`
}

// CanvasItemLink is an undirected edge between two items of one canvas.
// Stored normalized: ItemA < ItemB, so (A,B) and (B,A) are the same row.
type CanvasItemLink struct {
	CanvasID string `json:"canvasId"`
	ItemA    string `json:"itemA"`
	ItemB    string `json:"itemB"`
}

// NormalizeLinkPair orders an item pair for storage. Both orientations of
// the same edge normalize to the same pair.
func NormalizeLinkPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}

// Note is rich text attached to an item. Content may embed mention tokens
// of the form @{itemId} referencing other items.
type Note struct {
	ID        string `json:"id"`
	ItemID    string `json:"itemId"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

// NoteHistory is an append-only snapshot of a note's content, written on
// every content change. Never updated; removed only by cascade.
type NoteHistory struct {
	ID         string `json:"id"`
	NoteID     string `json:"noteId"`
	Content    string `json:"content"`
	SnapshotAt int64  `json:"snapshotAt"`
}

// Tag is a canvas-scoped label with presentation hints.
type Tag struct {
	ID       string `json:"id"`
	CanvasID string `json:"canvasId"`
	Name     string `json:"name"`
	Icon     string `json:"icon,omitempty"`
	Color    string `json:"color,omitempty"`
}

// CanvasItemTag assigns a tag to an item (many-to-many).
type CanvasItemTag struct {
	ItemID string `json:"itemId"`
	TagID  string `json:"tagId"`
}

// Photo is image metadata attached to an item. Binary bytes live in the
// attachment store, keyed by Filename. At most one photo per item may be
// Selected (the representative image).
type Photo struct {
	ID        string `json:"id"`
	ItemID    string `json:"itemId"`
	Filename  string `json:"filename"`
	Selected  bool   `json:"selected"`
	Important bool   `json:"important"`
	Caption   string `json:"caption,omitempty"`
	Blurhash  string `json:"blurhash,omitempty"`
	CreatedAt int64  `json:"createdAt"`
}

// Share is a capability: anyone holding Token may view (and clone) the
// referenced canvas, or item subtree when ItemID is set.
type Share struct {
	ID        string  `json:"id"`
	CanvasID  string  `json:"canvasId"`
	ItemID    *string `json:"itemId,omitempty"`
	Token     string  `json:"token"`
	CreatedBy string  `json:"createdBy"`
	CreatedAt int64   `json:"createdAt"`
}

// SortField selects the timestamp a feed orders by.
type SortField string

const (
	SortCreatedAt SortField = "createdAt"
	SortUpdatedAt SortField = "updatedAt"
)

// Valid reports whether f is a known sort field.
func (f SortField) Valid() bool {
	return f == SortCreatedAt || f == SortUpdatedAt
}

// TimelineQuery selects one page of canvas items, newest first.
// AfterID empty means first page; otherwise the page starts strictly after
// the (AfterKey, AfterID) keyset position.
type TimelineQuery struct {
	CanvasID     string
	Sort         SortField
	ParentItemID string // optional scope filter
	AfterKey     int64
	AfterID      string
	Limit        int
}

// GalleryQuery selects one page of photos across a canvas, newest first.
type GalleryQuery struct {
	CanvasID      string
	ParentItemID  string // optional scope filter on the owning item
	ImportantOnly bool
	AfterKey      int64
	AfterID       string
	Limit         int
}

// Snapshot is a full, ID-addressed copy of one canvas's entity graph.
// Notes carry latest content only; history does not travel.
type Snapshot struct {
	Canvas         Canvas           `json:"canvas"`
	Items          []CanvasItem     `json:"items"`
	Links          []CanvasItemLink `json:"links"`
	Notes          []Note           `json:"notes"`
	Tags           []Tag            `json:"tags"`
	TagAssignments []CanvasItemTag  `json:"tagAssignments"`
	Photos         []Photo          `json:"photos"`
}

// Storer defines the interface for data persistence.
// This allows swapping between MemStore (testing) and SQLiteStore (production).
type Storer interface {
	// Canvases. DeleteCanvas requires userID to be a member of the canvas
	// and never removes the member's last canvas.
	CreateCanvas(c *Canvas, ownerUserID string) error
	GetCanvas(id string) (*Canvas, error)
	ListCanvases(userID string) ([]*Canvas, error)
	DeleteCanvas(id, userID string) error

	// Items
	PutItem(item *CanvasItem) error
	GetItem(id string) (*CanvasItem, error)
	DeleteItem(id string) error
	ListItems(canvasID string) ([]*CanvasItem, error)

	// Links
	PutLink(itemA, itemB string) error
	DeleteLink(itemA, itemB string) error
	ListLinks(canvasID string) ([]*CanvasItemLink, error)

	// Notes
	CreateNote(n *Note) error
	UpdateNote(n *Note) error
	GetNote(id string) (*Note, error)
	DeleteNote(id string) error
	ListNotes(itemID string) ([]*Note, error)
	ListNoteHistory(noteID string) ([]*NoteHistory, error)

	// Tags
	PutTag(t *Tag) error
	DeleteTag(id string) error
	ListTags(canvasID string) ([]*Tag, error)
	AssignTag(itemID, tagID string) error
	UnassignTag(itemID, tagID string) error
	ListTagAssignments(canvasID string) ([]*CanvasItemTag, error)

	// Photos
	PutPhoto(p *Photo) error
	GetPhoto(id string) (*Photo, error)
	DeletePhoto(id string) error
	SetSelectedPhoto(itemID, photoID string) error
	ListPhotos(itemID string) ([]*Photo, error)

	// Shares
	CreateShare(s *Share) error
	GetShareByToken(token string) (*Share, error)
	DeleteShare(id string) error

	// Feeds
	TimelinePage(q TimelineQuery) ([]*CanvasItem, error)
	GalleryPage(q GalleryQuery) ([]*Photo, error)

	// Transfer
	SnapshotCanvas(canvasID string) (*Snapshot, error)
	ImportSnapshot(snap *Snapshot, ownerUserID string) error

	// Lifecycle
	Close() error
}
