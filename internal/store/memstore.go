// Package store provides persistence for Lorekeep canvases.
// This file contains the in-memory implementation used in tests.
package store

import (
	"sort"
	"strconv"
	"sync"
)

// MemStore is an in-memory implementation of Storer for testing.
type MemStore struct {
	mu          sync.RWMutex
	canvases    map[string]*Canvas
	members     []*CanvasUser
	items       map[string]*CanvasItem
	links       map[string]*CanvasItemLink // keyed by normalized "a|b"
	notes       map[string]*Note
	history     map[string][]*NoteHistory // noteID -> rows, oldest first
	tags        map[string]*Tag
	assignments map[string]*CanvasItemTag // keyed by "item|tag"
	photos      map[string]*Photo
	shares      map[string]*Share
}

// NewMemStore creates a new in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		canvases:    make(map[string]*Canvas),
		items:       make(map[string]*CanvasItem),
		links:       make(map[string]*CanvasItemLink),
		notes:       make(map[string]*Note),
		history:     make(map[string][]*NoteHistory),
		tags:        make(map[string]*Tag),
		assignments: make(map[string]*CanvasItemTag),
		photos:      make(map[string]*Photo),
		shares:      make(map[string]*Share),
	}
}

// Close is a no-op for MemStore.
func (s *MemStore) Close() error {
	return nil
}

func linkKey(a, b string) string {
	a, b = NormalizeLinkPair(a, b)
	return a + "|" + b
}

func assignKey(itemID, tagID string) string {
	return itemID + "|" + tagID
}

// =============================================================================
// Canvas CRUD
// =============================================================================

func (s *MemStore) CreateCanvas(c *Canvas, ownerUserID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *c
	s.canvases[c.ID] = &cp
	s.members = append(s.members, &CanvasUser{CanvasID: c.ID, UserID: ownerUserID, Role: "owner"})
	return nil
}

func (s *MemStore) GetCanvas(id string) (*Canvas, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.canvases[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *MemStore) ListCanvases(userID string) ([]*Canvas, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Canvas
	for _, m := range s.members {
		if m.UserID != userID {
			continue
		}
		if c, ok := s.canvases[m.CanvasID]; ok {
			cp := *c
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt < result[j].CreatedAt })
	return result, nil
}

// DeleteCanvas removes a canvas and everything it owns. Only a member of
// the canvas may delete it, and the last canvas of an account is never
// deleted.
func (s *MemStore) DeleteCanvas(id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.canvases[id]; !ok {
		return ErrNotFound
	}

	owned := 0
	member := false
	for _, m := range s.members {
		if m.UserID == userID {
			owned++
			if m.CanvasID == id {
				member = true
			}
		}
	}
	if !member {
		return ErrNotFound
	}
	if owned <= 1 {
		return ErrLastCanvas
	}

	for itemID, item := range s.items {
		if item.CanvasID == id {
			s.deleteItemLocked(itemID)
		}
	}
	for tagID, tag := range s.tags {
		if tag.CanvasID == id {
			delete(s.tags, tagID)
		}
	}
	for shareID, share := range s.shares {
		if share.CanvasID == id {
			delete(s.shares, shareID)
		}
	}
	kept := s.members[:0]
	for _, m := range s.members {
		if m.CanvasID != id {
			kept = append(kept, m)
		}
	}
	s.members = kept
	delete(s.canvases, id)
	return nil
}

// =============================================================================
// Item CRUD
// =============================================================================

func (s *MemStore) PutItem(item *CanvasItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *item
	s.items[item.ID] = &cp
	return nil
}

func (s *MemStore) GetItem(id string) (*CanvasItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *item
	return &cp, nil
}

// deleteItemLocked cascades one item: its notes and their history, photos,
// tag assignments, links touching it, and parent pointers of its children.
func (s *MemStore) deleteItemLocked(id string) {
	for noteID, note := range s.notes {
		if note.ItemID == id {
			delete(s.notes, noteID)
			delete(s.history, noteID)
		}
	}
	for photoID, photo := range s.photos {
		if photo.ItemID == id {
			delete(s.photos, photoID)
		}
	}
	for key, a := range s.assignments {
		if a.ItemID == id {
			delete(s.assignments, key)
		}
	}
	for key, l := range s.links {
		if l.ItemA == id || l.ItemB == id {
			delete(s.links, key)
		}
	}
	for _, other := range s.items {
		if other.ParentItemID != nil && *other.ParentItemID == id {
			other.ParentItemID = nil
		}
	}
	delete(s.items, id)
}

func (s *MemStore) DeleteItem(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return ErrNotFound
	}
	s.deleteItemLocked(id)
	return nil
}

func (s *MemStore) ListItems(canvasID string) ([]*CanvasItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*CanvasItem
	for _, item := range s.items {
		if item.CanvasID == canvasID {
			cp := *item
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt < result[j].CreatedAt })
	return result, nil
}

// =============================================================================
// Links
// =============================================================================

func (s *MemStore) PutLink(itemA, itemB string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if itemA == itemB {
		return ErrSelfLink
	}
	a, okA := s.items[itemA]
	b, okB := s.items[itemB]
	if !okA || !okB {
		return ErrNotFound
	}
	if a.CanvasID != b.CanvasID {
		return ErrCrossCanvas
	}

	na, nb := NormalizeLinkPair(itemA, itemB)
	s.links[linkKey(na, nb)] = &CanvasItemLink{CanvasID: a.CanvasID, ItemA: na, ItemB: nb}
	return nil
}

func (s *MemStore) DeleteLink(itemA, itemB string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := linkKey(itemA, itemB)
	if _, ok := s.links[key]; !ok {
		return ErrNotFound
	}
	delete(s.links, key)
	return nil
}

func (s *MemStore) ListLinks(canvasID string) ([]*CanvasItemLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*CanvasItemLink
	for _, l := range s.links {
		if l.CanvasID == canvasID {
			cp := *l
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].ItemA != result[j].ItemA {
			return result[i].ItemA < result[j].ItemA
		}
		return result[i].ItemB < result[j].ItemB
	})
	return result, nil
}

// =============================================================================
// Notes
// =============================================================================

func (s *MemStore) CreateNote(n *Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *n
	s.notes[n.ID] = &cp
	return nil
}

// UpdateNote replaces a note's content and appends a history row when the
// content actually changed.
func (s *MemStore) UpdateNote(n *Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.notes[n.ID]
	if !ok {
		return ErrNotFound
	}
	changed := current.Content != n.Content

	cp := *n
	cp.ItemID = current.ItemID
	cp.CreatedAt = current.CreatedAt
	s.notes[n.ID] = &cp

	if changed {
		s.history[n.ID] = append(s.history[n.ID], &NoteHistory{
			ID:         n.ID + "#" + strconv.Itoa(len(s.history[n.ID])+1),
			NoteID:     n.ID,
			Content:    n.Content,
			SnapshotAt: n.UpdatedAt,
		})
	}
	return nil
}

func (s *MemStore) GetNote(id string) (*Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.notes[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *n
	return &cp, nil
}

func (s *MemStore) DeleteNote(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.notes[id]; !ok {
		return ErrNotFound
	}
	delete(s.notes, id)
	delete(s.history, id)
	return nil
}

func (s *MemStore) ListNotes(itemID string) ([]*Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Note
	for _, n := range s.notes {
		if n.ItemID == itemID {
			cp := *n
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt < result[j].CreatedAt })
	return result, nil
}

func (s *MemStore) ListNoteHistory(noteID string) ([]*NoteHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.history[noteID]
	result := make([]*NoteHistory, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- { // newest first
		cp := *rows[i]
		result = append(result, &cp)
	}
	return result, nil
}

// =============================================================================
// Tags
// =============================================================================

func (s *MemStore) PutTag(t *Tag) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *t
	s.tags[t.ID] = &cp
	return nil
}

func (s *MemStore) DeleteTag(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tags[id]; !ok {
		return ErrNotFound
	}
	for key, a := range s.assignments {
		if a.TagID == id {
			delete(s.assignments, key)
		}
	}
	delete(s.tags, id)
	return nil
}

func (s *MemStore) ListTags(canvasID string) ([]*Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Tag
	for _, t := range s.tags {
		if t.CanvasID == canvasID {
			cp := *t
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (s *MemStore) AssignTag(itemID, tagID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[itemID]; !ok {
		return ErrNotFound
	}
	if _, ok := s.tags[tagID]; !ok {
		return ErrNotFound
	}
	s.assignments[assignKey(itemID, tagID)] = &CanvasItemTag{ItemID: itemID, TagID: tagID}
	return nil
}

func (s *MemStore) UnassignTag(itemID, tagID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.assignments, assignKey(itemID, tagID))
	return nil
}

func (s *MemStore) ListTagAssignments(canvasID string) ([]*CanvasItemTag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*CanvasItemTag
	for _, a := range s.assignments {
		item, ok := s.items[a.ItemID]
		if ok && item.CanvasID == canvasID {
			cp := *a
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].ItemID != result[j].ItemID {
			return result[i].ItemID < result[j].ItemID
		}
		return result[i].TagID < result[j].TagID
	})
	return result, nil
}

// =============================================================================
// Photos
// =============================================================================

func (s *MemStore) PutPhoto(p *Photo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *p
	s.photos[p.ID] = &cp
	return nil
}

func (s *MemStore) GetPhoto(id string) (*Photo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.photos[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *MemStore) DeletePhoto(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.photos[id]; !ok {
		return ErrNotFound
	}
	delete(s.photos, id)
	return nil
}

// SetSelectedPhoto marks one photo as the item's representative image,
// clearing any previous selection on the same item.
func (s *MemStore) SetSelectedPhoto(itemID, photoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, ok := s.photos[photoID]
	if !ok || target.ItemID != itemID {
		return ErrNotFound
	}
	for _, p := range s.photos {
		if p.ItemID == itemID {
			p.Selected = p.ID == photoID
		}
	}
	return nil
}

func (s *MemStore) ListPhotos(itemID string) ([]*Photo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Photo
	for _, p := range s.photos {
		if p.ItemID == itemID {
			cp := *p
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt < result[j].CreatedAt })
	return result, nil
}

// =============================================================================
// Shares
// =============================================================================

func (s *MemStore) CreateShare(sh *Share) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *sh
	s.shares[sh.ID] = &cp
	return nil
}

func (s *MemStore) GetShareByToken(token string) (*Share, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sh := range s.shares {
		if sh.Token == token {
			cp := *sh
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemStore) DeleteShare(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.shares[id]; !ok {
		return ErrNotFound
	}
	delete(s.shares, id)
	return nil
}

// =============================================================================
// Feed pages
// =============================================================================

func itemSortKey(item *CanvasItem, field SortField) int64 {
	if field == SortUpdatedAt {
		return item.UpdatedAt
	}
	return item.CreatedAt
}

// TimelinePage returns one keyset page of items, newest first, id-desc
// tie-break. Filters apply before pagination.
func (s *MemStore) TimelinePage(q TimelineQuery) ([]*CanvasItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []*CanvasItem
	for _, item := range s.items {
		if item.CanvasID != q.CanvasID {
			continue
		}
		if q.ParentItemID != "" && (item.ParentItemID == nil || *item.ParentItemID != q.ParentItemID) {
			continue
		}
		cp := *item
		all = append(all, &cp)
	}

	sort.Slice(all, func(i, j int) bool {
		ki, kj := itemSortKey(all[i], q.Sort), itemSortKey(all[j], q.Sort)
		if ki != kj {
			return ki > kj
		}
		return all[i].ID > all[j].ID
	})

	var page []*CanvasItem
	for _, item := range all {
		k := itemSortKey(item, q.Sort)
		if q.AfterID != "" && !(k < q.AfterKey || (k == q.AfterKey && item.ID < q.AfterID)) {
			continue
		}
		page = append(page, item)
		if len(page) == q.Limit {
			break
		}
	}
	return page, nil
}

// GalleryPage returns one keyset page of photos across a canvas.
func (s *MemStore) GalleryPage(q GalleryQuery) ([]*Photo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []*Photo
	for _, p := range s.photos {
		item, ok := s.items[p.ItemID]
		if !ok || item.CanvasID != q.CanvasID {
			continue
		}
		if q.ParentItemID != "" && (item.ParentItemID == nil || *item.ParentItemID != q.ParentItemID) {
			continue
		}
		if q.ImportantOnly && !p.Important {
			continue
		}
		cp := *p
		all = append(all, &cp)
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt != all[j].CreatedAt {
			return all[i].CreatedAt > all[j].CreatedAt
		}
		return all[i].ID > all[j].ID
	})

	var page []*Photo
	for _, p := range all {
		if q.AfterID != "" && !(p.CreatedAt < q.AfterKey || (p.CreatedAt == q.AfterKey && p.ID < q.AfterID)) {
			continue
		}
		page = append(page, p)
		if len(page) == q.Limit {
			break
		}
	}
	return page, nil
}

// =============================================================================
// Transfer
// =============================================================================

// SnapshotCanvas copies the whole canvas graph under one lock hold, so the
// result is a consistent read.
func (s *MemStore) SnapshotCanvas(canvasID string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.canvases[canvasID]
	if !ok {
		return nil, ErrNotFound
	}

	snap := &Snapshot{Canvas: *c}
	inCanvas := make(map[string]bool)
	for _, item := range s.items {
		if item.CanvasID == canvasID {
			snap.Items = append(snap.Items, *item)
			inCanvas[item.ID] = true
		}
	}
	for _, l := range s.links {
		if l.CanvasID == canvasID {
			snap.Links = append(snap.Links, *l)
		}
	}
	for _, n := range s.notes {
		if inCanvas[n.ItemID] {
			snap.Notes = append(snap.Notes, *n)
		}
	}
	for _, t := range s.tags {
		if t.CanvasID == canvasID {
			snap.Tags = append(snap.Tags, *t)
		}
	}
	for _, a := range s.assignments {
		if inCanvas[a.ItemID] {
			snap.TagAssignments = append(snap.TagAssignments, *a)
		}
	}
	for _, p := range s.photos {
		if inCanvas[p.ItemID] {
			snap.Photos = append(snap.Photos, *p)
		}
	}

	sortSnapshot(snap)
	return snap, nil
}

// ImportSnapshot applies a remapped snapshot under one lock hold. The id
// collision check runs before any write, so a failed import changes nothing.
func (s *MemStore) ImportSnapshot(snap *Snapshot, ownerUserID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.canvases[snap.Canvas.ID]; exists {
		return ErrConflict
	}
	for _, item := range snap.Items {
		if _, exists := s.items[item.ID]; exists {
			return ErrConflict
		}
	}
	for _, n := range snap.Notes {
		if _, exists := s.notes[n.ID]; exists {
			return ErrConflict
		}
	}
	for _, t := range snap.Tags {
		if _, exists := s.tags[t.ID]; exists {
			return ErrConflict
		}
	}
	for _, p := range snap.Photos {
		if _, exists := s.photos[p.ID]; exists {
			return ErrConflict
		}
	}

	c := snap.Canvas
	s.canvases[c.ID] = &c
	s.members = append(s.members, &CanvasUser{CanvasID: c.ID, UserID: ownerUserID, Role: "owner"})
	for i := range snap.Items {
		cp := snap.Items[i]
		s.items[cp.ID] = &cp
	}
	for i := range snap.Links {
		cp := snap.Links[i]
		s.links[linkKey(cp.ItemA, cp.ItemB)] = &cp
	}
	for i := range snap.Notes {
		cp := snap.Notes[i]
		s.notes[cp.ID] = &cp
	}
	for i := range snap.Tags {
		cp := snap.Tags[i]
		s.tags[cp.ID] = &cp
	}
	for i := range snap.TagAssignments {
		cp := snap.TagAssignments[i]
		s.assignments[assignKey(cp.ItemID, cp.TagID)] = &cp
	}
	for i := range snap.Photos {
		cp := snap.Photos[i]
		s.photos[cp.ID] = &cp
	}
	return nil
}

// sortSnapshot gives every snapshot slice a stable order so two snapshots
// of the same canvas compare equal.
func sortSnapshot(snap *Snapshot) {
	sort.Slice(snap.Items, func(i, j int) bool { return snap.Items[i].ID < snap.Items[j].ID })
	sort.Slice(snap.Links, func(i, j int) bool {
		if snap.Links[i].ItemA != snap.Links[j].ItemA {
			return snap.Links[i].ItemA < snap.Links[j].ItemA
		}
		return snap.Links[i].ItemB < snap.Links[j].ItemB
	})
	sort.Slice(snap.Notes, func(i, j int) bool { return snap.Notes[i].ID < snap.Notes[j].ID })
	sort.Slice(snap.Tags, func(i, j int) bool { return snap.Tags[i].ID < snap.Tags[j].ID })
	sort.Slice(snap.TagAssignments, func(i, j int) bool {
		if snap.TagAssignments[i].ItemID != snap.TagAssignments[j].ItemID {
			return snap.TagAssignments[i].ItemID < snap.TagAssignments[j].ItemID
		}
		return snap.TagAssignments[i].TagID < snap.TagAssignments[j].TagID
	})
	sort.Slice(snap.Photos, func(i, j int) bool { return snap.Photos[i].ID < snap.Photos[j].ID })
}

// Compile-time interface check
var _ Storer = (*MemStore)(nil)
