package transfer

import (
	"fmt"
	"time"

	"github.com/kittclouds/lorekeep/internal/attach"
	"github.com/kittclouds/lorekeep/internal/store"
)

// Result identifies the canvas created by an import or clone.
type Result struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Export snapshots one canvas and serializes it, attachment bytes included.
// Returns store.ErrNotFound when the canvas does not exist; a missing
// attachment aborts the export.
func Export(st store.Storer, att attach.Store, canvasID string) ([]byte, error) {
	snap, err := st.SnapshotCanvas(canvasID)
	if err != nil {
		return nil, err
	}

	attachments := make(map[string][]byte, len(snap.Photos))
	for _, p := range snap.Photos {
		data, err := att.Get(p.Filename)
		if err != nil {
			return nil, fmt.Errorf("export aborted: %w", err)
		}
		attachments[p.Filename] = data
	}

	return Encode(snap, attachments, time.Now().UnixMilli())
}

// Import decodes an archive, remaps every id, stores the attachment bytes
// under fresh filenames, and commits the snapshot atomically for the
// importing user.
func Import(st store.Storer, att attach.Store, src IDSource, data []byte, userID string) (Result, error) {
	arch, err := Decode(data)
	if err != nil {
		return Result{}, err
	}
	return commitSnapshot(st, att, src, &arch.Manifest.Snapshot, arch.Attachments, userID)
}

// Clone copies a live canvas (or the subtree under rootItemID) into a new
// canvas owned by userID. Same pipeline as import, minus the wire format.
func Clone(st store.Storer, att attach.Store, src IDSource, canvasID, rootItemID, userID string) (Result, error) {
	snap, err := st.SnapshotCanvas(canvasID)
	if err != nil {
		return Result{}, err
	}
	if rootItemID != "" {
		snap, err = filterSubtree(snap, rootItemID)
		if err != nil {
			return Result{}, err
		}
	}

	attachments := make(map[string][]byte, len(snap.Photos))
	for _, p := range snap.Photos {
		data, err := att.Get(p.Filename)
		if err != nil {
			return Result{}, fmt.Errorf("clone aborted: %w", err)
		}
		attachments[p.Filename] = data
	}

	return commitSnapshot(st, att, src, snap, attachments, userID)
}

// commitSnapshot remaps a snapshot, writes its attachment bytes under the
// fresh filenames, and applies the metadata transaction. Partial imports
// are never visible: a failure after any attachment write removes the
// written bytes before surfacing.
func commitSnapshot(st store.Storer, att attach.Store, src IDSource, snap *store.Snapshot, attachments map[string][]byte, userID string) (Result, error) {
	remapped, mapping, err := Remap(snap, src)
	if err != nil {
		return Result{}, err
	}

	var written []string
	cleanup := func() {
		for _, name := range written {
			att.Delete(name) // best effort; metadata was never committed
		}
	}

	for oldName, newName := range mapping.Files {
		if err := att.Put(newName, attachments[oldName]); err != nil {
			cleanup()
			return Result{}, fmt.Errorf("%w: %v", ErrImportFailed, err)
		}
		written = append(written, newName)
	}

	if err := st.ImportSnapshot(remapped, userID); err != nil {
		cleanup()
		return Result{}, fmt.Errorf("%w: %v", ErrImportFailed, err)
	}

	return Result{ID: remapped.Canvas.ID, Name: remapped.Canvas.Name}, nil
}

// filterSubtree narrows a snapshot to the item subtree rooted at rootID:
// the root, its transitive children, and only the links, notes, photos,
// tags and assignments that stay inside that set. The root's own parent
// pointer falls outside the set, so the remapper nulls it.
func filterSubtree(snap *store.Snapshot, rootID string) (*store.Snapshot, error) {
	children := make(map[string][]string)
	found := false
	for _, item := range snap.Items {
		if item.ID == rootID {
			found = true
		}
		if item.ParentItemID != nil {
			children[*item.ParentItemID] = append(children[*item.ParentItemID], item.ID)
		}
	}
	if !found {
		return nil, store.ErrNotFound
	}

	keep := map[string]bool{rootID: true}
	queue := []string{rootID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, child := range children[id] {
			if !keep[child] {
				keep[child] = true
				queue = append(queue, child)
			}
		}
	}

	out := &store.Snapshot{Canvas: snap.Canvas}
	for _, item := range snap.Items {
		if keep[item.ID] {
			out.Items = append(out.Items, item)
		}
	}
	for _, l := range snap.Links {
		if keep[l.ItemA] && keep[l.ItemB] {
			out.Links = append(out.Links, l)
		}
	}
	keptTags := make(map[string]bool)
	for _, a := range snap.TagAssignments {
		if keep[a.ItemID] {
			out.TagAssignments = append(out.TagAssignments, a)
			keptTags[a.TagID] = true
		}
	}
	for _, t := range snap.Tags {
		if keptTags[t.ID] {
			out.Tags = append(out.Tags, t)
		}
	}
	for _, n := range snap.Notes {
		if keep[n.ItemID] {
			out.Notes = append(out.Notes, n)
		}
	}
	for _, p := range snap.Photos {
		if keep[p.ItemID] {
			out.Photos = append(out.Photos, p)
		}
	}
	return out, nil
}
