package transfer

import (
	"fmt"
	"path"

	"github.com/google/uuid"

	"github.com/kittclouds/lorekeep/internal/store"
	"github.com/kittclouds/lorekeep/pkg/mention"
)

// IDSource supplies fresh identifiers. Remapping is a pure function of
// (snapshot, id source), so tests inject a deterministic sequence.
type IDSource func() string

// UUIDSource is the production id supply.
func UUIDSource() string {
	return uuid.NewString()
}

// Mapping holds the old-id to new-id tables, scoped per entity kind.
// Link and assignment rows have no identity of their own and get no table.
type Mapping struct {
	Canvas map[string]string
	Items  map[string]string
	Notes  map[string]string
	Tags   map[string]string
	Photos map[string]string

	// Files maps old attachment filenames to fresh ones, so imported
	// attachments never collide with existing ones.
	Files map[string]string
}

// Remap produces a copy of the snapshot where every record has a fresh id
// and every foreign key and embedded mention resolves through the mapping.
//
// Two passes: allocate all new ids first, then rewrite everywhere. This
// removes any ordering dependency in cyclic item/link graphs. Fallbacks:
// a parent pointer outside the snapshot is nulled, an unresolvable mention
// token is stripped. A link, assignment, note or photo whose required key
// has no mapping entry is fatal (ErrRemap).
func Remap(snap *store.Snapshot, src IDSource) (*store.Snapshot, *Mapping, error) {
	m := &Mapping{
		Canvas: make(map[string]string),
		Items:  make(map[string]string),
		Notes:  make(map[string]string),
		Tags:   make(map[string]string),
		Photos: make(map[string]string),
		Files:  make(map[string]string),
	}

	// Pass 1: allocation. One fresh id per record with identity.
	m.Canvas[snap.Canvas.ID] = src()
	for _, item := range snap.Items {
		m.Items[item.ID] = src()
	}
	for _, n := range snap.Notes {
		m.Notes[n.ID] = src()
	}
	for _, t := range snap.Tags {
		m.Tags[t.ID] = src()
	}
	for _, p := range snap.Photos {
		newID := src()
		m.Photos[p.ID] = newID
		m.Files[p.Filename] = newID + path.Ext(p.Filename)
	}

	// Pass 2: rewrite.
	out := &store.Snapshot{}
	newCanvasID, ok := m.Canvas[snap.Canvas.ID]
	if !ok {
		return nil, nil, fmt.Errorf("%w: canvas %s", ErrRemap, snap.Canvas.ID)
	}
	out.Canvas = store.Canvas{ID: newCanvasID, Name: snap.Canvas.Name, CreatedAt: snap.Canvas.CreatedAt}

	scanner := mention.NewScanner()

	for _, item := range snap.Items {
		newItem := item
		newItem.ID = m.Items[item.ID]
		canvasID, ok := m.Canvas[item.CanvasID]
		if !ok {
			return nil, nil, fmt.Errorf("%w: item %s references canvas %s outside the archive", ErrRemap, item.ID, item.CanvasID)
		}
		newItem.CanvasID = canvasID
		if item.ParentItemID != nil {
			if parent, ok := m.Items[*item.ParentItemID]; ok {
				newItem.ParentItemID = &parent
			} else {
				// Parent outside the snapshot: nulled, never copied verbatim.
				newItem.ParentItemID = nil
			}
		}
		out.Items = append(out.Items, newItem)
	}

	for _, l := range snap.Links {
		a, okA := m.Items[l.ItemA]
		b, okB := m.Items[l.ItemB]
		if !okA || !okB {
			return nil, nil, fmt.Errorf("%w: link (%s,%s) references an item outside the archive", ErrRemap, l.ItemA, l.ItemB)
		}
		// Fresh ids reorder the pair; normalize again.
		a, b = store.NormalizeLinkPair(a, b)
		out.Links = append(out.Links, store.CanvasItemLink{CanvasID: newCanvasID, ItemA: a, ItemB: b})
	}

	for _, n := range snap.Notes {
		itemID, ok := m.Items[n.ItemID]
		if !ok {
			return nil, nil, fmt.Errorf("%w: note %s references item %s outside the archive", ErrRemap, n.ID, n.ItemID)
		}
		newNote := n
		newNote.ID = m.Notes[n.ID]
		newNote.ItemID = itemID
		newNote.Content = scanner.Rewrite(n.Content, m.Items)
		out.Notes = append(out.Notes, newNote)
	}

	for _, t := range snap.Tags {
		canvasID, ok := m.Canvas[t.CanvasID]
		if !ok {
			return nil, nil, fmt.Errorf("%w: tag %s references canvas %s outside the archive", ErrRemap, t.ID, t.CanvasID)
		}
		newTag := t
		newTag.ID = m.Tags[t.ID]
		newTag.CanvasID = canvasID
		out.Tags = append(out.Tags, newTag)
	}

	for _, a := range snap.TagAssignments {
		itemID, okItem := m.Items[a.ItemID]
		tagID, okTag := m.Tags[a.TagID]
		if !okItem || !okTag {
			return nil, nil, fmt.Errorf("%w: assignment (%s,%s) references an entity outside the archive", ErrRemap, a.ItemID, a.TagID)
		}
		out.TagAssignments = append(out.TagAssignments, store.CanvasItemTag{ItemID: itemID, TagID: tagID})
	}

	for _, p := range snap.Photos {
		itemID, ok := m.Items[p.ItemID]
		if !ok {
			return nil, nil, fmt.Errorf("%w: photo %s references item %s outside the archive", ErrRemap, p.ID, p.ItemID)
		}
		newPhoto := p
		newPhoto.ID = m.Photos[p.ID]
		newPhoto.ItemID = itemID
		newPhoto.Filename = m.Files[p.Filename]
		out.Photos = append(out.Photos, newPhoto)
	}

	return out, m, nil
}
