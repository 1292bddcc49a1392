// Package store provides SQLite-backed persistence for Lorekeep.
// Uses ncruces/go-sqlite3/driver which provides a database/sql interface.
package store

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// SQLiteStore is the SQLite-backed data store.
// Thread-safe for concurrent request handlers.
type SQLiteStore struct {
	mu sync.RWMutex
	db *sql.DB
}

// schema defines all tables for the canvas data layer.
// Note: No foreign keys - referential integrity managed at application level.
const schema = `
CREATE TABLE IF NOT EXISTS canvases (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS canvas_users (
    canvas_id TEXT NOT NULL,
    user_id TEXT NOT NULL,
    role TEXT NOT NULL DEFAULT 'owner',
    PRIMARY KEY (canvas_id, user_id)
);

CREATE INDEX IF NOT EXISTS idx_canvas_users_user ON canvas_users(user_id);

CREATE TABLE IF NOT EXISTS items (
    id TEXT PRIMARY KEY,
    canvas_id TEXT NOT NULL,
    type TEXT NOT NULL,
    title TEXT NOT NULL,
    summary TEXT,
    canvas_x REAL NOT NULL DEFAULT 0,
    canvas_y REAL NOT NULL DEFAULT 0,
    session_date INTEGER,
    parent_item_id TEXT,
    important INTEGER DEFAULT 0,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_items_canvas ON items(canvas_id);
-- Keyset pagination indexes: one per sort field
CREATE INDEX IF NOT EXISTS idx_items_created ON items(canvas_id, created_at DESC, id DESC);
CREATE INDEX IF NOT EXISTS idx_items_updated ON items(canvas_id, updated_at DESC, id DESC);

-- Links are undirected: rows always hold the normalized (min,max) pair,
-- so uniqueness of an edge is the primary key.
CREATE TABLE IF NOT EXISTS links (
    canvas_id TEXT NOT NULL,
    item_a TEXT NOT NULL,
    item_b TEXT NOT NULL,
    PRIMARY KEY (item_a, item_b),
    CHECK (item_a < item_b)
);

CREATE INDEX IF NOT EXISTS idx_links_canvas ON links(canvas_id);

CREATE TABLE IF NOT EXISTS notes (
    id TEXT PRIMARY KEY,
    item_id TEXT NOT NULL,
    content TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_notes_item ON notes(item_id);

-- Append-only content snapshots, one per note content change
CREATE TABLE IF NOT EXISTS note_history (
    id TEXT PRIMARY KEY,
    note_id TEXT NOT NULL,
    content TEXT NOT NULL,
    snapshot_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_note_history_note ON note_history(note_id, snapshot_at);

CREATE TABLE IF NOT EXISTS tags (
    id TEXT PRIMARY KEY,
    canvas_id TEXT NOT NULL,
    name TEXT NOT NULL,
    icon TEXT,
    color TEXT
);

CREATE INDEX IF NOT EXISTS idx_tags_canvas ON tags(canvas_id);

CREATE TABLE IF NOT EXISTS item_tags (
    item_id TEXT NOT NULL,
    tag_id TEXT NOT NULL,
    PRIMARY KEY (item_id, tag_id)
);

CREATE TABLE IF NOT EXISTS photos (
    id TEXT PRIMARY KEY,
    item_id TEXT NOT NULL,
    filename TEXT NOT NULL,
    selected INTEGER DEFAULT 0,
    important INTEGER DEFAULT 0,
    caption TEXT,
    blurhash TEXT,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_photos_item ON photos(item_id);
CREATE INDEX IF NOT EXISTS idx_photos_created ON photos(created_at DESC, id DESC);

CREATE TABLE IF NOT EXISTS shares (
    id TEXT PRIMARY KEY,
    canvas_id TEXT NOT NULL,
    item_id TEXT,
    token TEXT NOT NULL UNIQUE,
    created_by TEXT NOT NULL,
    created_at INTEGER NOT NULL
);
`

// NewSQLiteStore creates a new in-memory SQLite store.
func NewSQLiteStore() (*SQLiteStore, error) {
	return NewSQLiteStoreWithDSN(":memory:")
}

// NewSQLiteStoreWithDSN creates a store with a specific data source name.
// Use ":memory:" for in-memory or a file path for persistent storage.
func NewSQLiteStoreWithDSN(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// =============================================================================
// Canvas CRUD
// =============================================================================

// CreateCanvas inserts a canvas and its owner membership row.
func (s *SQLiteStore) CreateCanvas(c *Canvas, ownerUserID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO canvases (id, name, created_at) VALUES (?, ?, ?)`,
		c.ID, c.Name, c.CreatedAt); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT INTO canvas_users (canvas_id, user_id, role) VALUES (?, ?, 'owner')`,
		c.ID, ownerUserID); err != nil {
		return err
	}
	return tx.Commit()
}

// GetCanvas retrieves a canvas by ID.
func (s *SQLiteStore) GetCanvas(id string) (*Canvas, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c Canvas
	err := s.db.QueryRow(`SELECT id, name, created_at FROM canvases WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCanvases returns the canvases a user is a member of, oldest first.
func (s *SQLiteStore) ListCanvases(userID string) ([]*Canvas, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT c.id, c.name, c.created_at
		FROM canvases c JOIN canvas_users cu ON cu.canvas_id = c.id
		WHERE cu.user_id = ? ORDER BY c.created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*Canvas
	for rows.Next() {
		var c Canvas
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, &c)
	}
	return result, rows.Err()
}

// DeleteCanvas removes a canvas and everything it owns in one transaction.
// Only a member of the canvas may delete it, and the last canvas of an
// account is never deleted.
func (s *SQLiteStore) DeleteCanvas(id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRow(`SELECT 1 FROM canvases WHERE id = ?`, id).Scan(&exists); err == sql.ErrNoRows {
		return ErrNotFound
	} else if err != nil {
		return err
	}

	var member int
	if err := tx.QueryRow(`SELECT 1 FROM canvas_users WHERE canvas_id = ? AND user_id = ?`, id, userID).Scan(&member); err == sql.ErrNoRows {
		return ErrNotFound
	} else if err != nil {
		return err
	}

	var owned int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM canvas_users WHERE user_id = ?`, userID).Scan(&owned); err != nil {
		return err
	}
	if owned <= 1 {
		return ErrLastCanvas
	}

	stmts := []string{
		`DELETE FROM note_history WHERE note_id IN (
			SELECT n.id FROM notes n JOIN items i ON n.item_id = i.id WHERE i.canvas_id = ?)`,
		`DELETE FROM notes WHERE item_id IN (SELECT id FROM items WHERE canvas_id = ?)`,
		`DELETE FROM photos WHERE item_id IN (SELECT id FROM items WHERE canvas_id = ?)`,
		`DELETE FROM item_tags WHERE item_id IN (SELECT id FROM items WHERE canvas_id = ?)`,
		`DELETE FROM links WHERE canvas_id = ?`,
		`DELETE FROM tags WHERE canvas_id = ?`,
		`DELETE FROM shares WHERE canvas_id = ?`,
		`DELETE FROM items WHERE canvas_id = ?`,
		`DELETE FROM canvas_users WHERE canvas_id = ?`,
		`DELETE FROM canvases WHERE id = ?`,
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt, id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// =============================================================================
// Item CRUD
// =============================================================================

// PutItem inserts or updates an item.
func (s *SQLiteStore) PutItem(item *CanvasItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO items (id, canvas_id, type, title, summary, canvas_x, canvas_y,
			session_date, parent_item_id, important, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			type = excluded.type,
			title = excluded.title,
			summary = excluded.summary,
			canvas_x = excluded.canvas_x,
			canvas_y = excluded.canvas_y,
			session_date = excluded.session_date,
			parent_item_id = excluded.parent_item_id,
			important = excluded.important,
			updated_at = excluded.updated_at
	`, item.ID, item.CanvasID, string(item.Type), item.Title, item.Summary,
		item.CanvasX, item.CanvasY, item.SessionDate, item.ParentItemID,
		boolToInt(item.Important), item.CreatedAt, item.UpdatedAt)
	return err
}

const itemCols = `id, canvas_id, type, title, COALESCE(summary, ''), canvas_x, canvas_y,
	session_date, parent_item_id, important, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(r rowScanner) (*CanvasItem, error) {
	var item CanvasItem
	var typ string
	var sessionDate sql.NullInt64
	var parent sql.NullString
	var important int

	if err := r.Scan(&item.ID, &item.CanvasID, &typ, &item.Title, &item.Summary,
		&item.CanvasX, &item.CanvasY, &sessionDate, &parent, &important,
		&item.CreatedAt, &item.UpdatedAt); err != nil {
		return nil, err
	}
	item.Type = ItemType(typ)
	item.Important = important != 0
	if sessionDate.Valid {
		item.SessionDate = &sessionDate.Int64
	}
	if parent.Valid {
		item.ParentItemID = &parent.String
	}
	return &item, nil
}

// GetItem retrieves an item by ID.
func (s *SQLiteStore) GetItem(id string) (*CanvasItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, err := scanItem(s.db.QueryRow(`SELECT `+itemCols+` FROM items WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

// DeleteItem cascades to the item's notes (and their history), photos, tag
// assignments, links in either direction, and nulls children's parent pointer.
func (s *SQLiteStore) DeleteItem(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRow(`SELECT 1 FROM items WHERE id = ?`, id).Scan(&exists); err == sql.ErrNoRows {
		return ErrNotFound
	} else if err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM note_history WHERE note_id IN (SELECT id FROM notes WHERE item_id = ?)`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM notes WHERE item_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM photos WHERE item_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM item_tags WHERE item_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM links WHERE item_a = ? OR item_b = ?`, id, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`UPDATE items SET parent_item_id = NULL WHERE parent_item_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM items WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// ListItems returns all items of a canvas, oldest first.
func (s *SQLiteStore) ListItems(canvasID string) ([]*CanvasItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT `+itemCols+` FROM items WHERE canvas_id = ? ORDER BY created_at, id`, canvasID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*CanvasItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}

// =============================================================================
// Links
// =============================================================================

// PutLink creates the undirected edge between two items of the same canvas.
// Both orientations normalize to one row; re-adding is a no-op.
func (s *SQLiteStore) PutLink(itemA, itemB string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if itemA == itemB {
		return ErrSelfLink
	}

	var canvasA, canvasB string
	if err := s.db.QueryRow(`SELECT canvas_id FROM items WHERE id = ?`, itemA).Scan(&canvasA); err == sql.ErrNoRows {
		return ErrNotFound
	} else if err != nil {
		return err
	}
	if err := s.db.QueryRow(`SELECT canvas_id FROM items WHERE id = ?`, itemB).Scan(&canvasB); err == sql.ErrNoRows {
		return ErrNotFound
	} else if err != nil {
		return err
	}
	if canvasA != canvasB {
		return ErrCrossCanvas
	}

	a, b := NormalizeLinkPair(itemA, itemB)
	_, err := s.db.Exec(`INSERT OR IGNORE INTO links (canvas_id, item_a, item_b) VALUES (?, ?, ?)`,
		canvasA, a, b)
	return err
}

// DeleteLink removes the edge given either orientation of the pair.
func (s *SQLiteStore) DeleteLink(itemA, itemB string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, b := NormalizeLinkPair(itemA, itemB)
	res, err := s.db.Exec(`DELETE FROM links WHERE item_a = ? AND item_b = ?`, a, b)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListLinks returns all edges of a canvas.
func (s *SQLiteStore) ListLinks(canvasID string) ([]*CanvasItemLink, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT canvas_id, item_a, item_b FROM links WHERE canvas_id = ? ORDER BY item_a, item_b`, canvasID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*CanvasItemLink
	for rows.Next() {
		var l CanvasItemLink
		if err := rows.Scan(&l.CanvasID, &l.ItemA, &l.ItemB); err != nil {
			return nil, err
		}
		result = append(result, &l)
	}
	return result, rows.Err()
}

// =============================================================================
// Notes
// =============================================================================

// CreateNote inserts a note.
func (s *SQLiteStore) CreateNote(n *Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`INSERT INTO notes (id, item_id, content, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		n.ID, n.ItemID, n.Content, n.CreatedAt, n.UpdatedAt)
	return err
}

// UpdateNote replaces a note's content and appends a history row when the
// content actually changed. ItemID and CreatedAt are immutable.
func (s *SQLiteStore) UpdateNote(n *Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var oldContent string
	err = tx.QueryRow(`SELECT content FROM notes WHERE id = ?`, n.ID).Scan(&oldContent)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	if _, err := tx.Exec(`UPDATE notes SET content = ?, updated_at = ? WHERE id = ?`,
		n.Content, n.UpdatedAt, n.ID); err != nil {
		return err
	}

	if oldContent != n.Content {
		if _, err := tx.Exec(`
			INSERT INTO note_history (id, note_id, content, snapshot_at)
			VALUES (lower(hex(randomblob(16))), ?, ?, ?)
		`, n.ID, n.Content, n.UpdatedAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetNote retrieves a note by ID.
func (s *SQLiteStore) GetNote(id string) (*Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n Note
	err := s.db.QueryRow(`SELECT id, item_id, content, created_at, updated_at FROM notes WHERE id = ?`, id).
		Scan(&n.ID, &n.ItemID, &n.Content, &n.CreatedAt, &n.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// DeleteNote removes a note and its history.
func (s *SQLiteStore) DeleteNote(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	if _, err := tx.Exec(`DELETE FROM note_history WHERE note_id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// ListNotes returns an item's notes, oldest first.
func (s *SQLiteStore) ListNotes(itemID string) ([]*Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT id, item_id, content, created_at, updated_at FROM notes WHERE item_id = ? ORDER BY created_at, id`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*Note
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.ItemID, &n.Content, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, &n)
	}
	return result, rows.Err()
}

// ListNoteHistory returns a note's content snapshots, newest first.
func (s *SQLiteStore) ListNoteHistory(noteID string) ([]*NoteHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT id, note_id, content, snapshot_at FROM note_history WHERE note_id = ? ORDER BY snapshot_at DESC, id DESC`, noteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*NoteHistory
	for rows.Next() {
		var h NoteHistory
		if err := rows.Scan(&h.ID, &h.NoteID, &h.Content, &h.SnapshotAt); err != nil {
			return nil, err
		}
		result = append(result, &h)
	}
	return result, rows.Err()
}

// =============================================================================
// Tags
// =============================================================================

// PutTag inserts or updates a tag.
func (s *SQLiteStore) PutTag(t *Tag) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO tags (id, canvas_id, name, icon, color) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			icon = excluded.icon,
			color = excluded.color
	`, t.ID, t.CanvasID, t.Name, t.Icon, t.Color)
	return err
}

// DeleteTag removes a tag and all its assignments.
func (s *SQLiteStore) DeleteTag(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`DELETE FROM tags WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	if _, err := tx.Exec(`DELETE FROM item_tags WHERE tag_id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// ListTags returns a canvas's tags ordered by name.
func (s *SQLiteStore) ListTags(canvasID string) ([]*Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT id, canvas_id, name, COALESCE(icon, ''), COALESCE(color, '') FROM tags WHERE canvas_id = ? ORDER BY name`, canvasID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*Tag
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.CanvasID, &t.Name, &t.Icon, &t.Color); err != nil {
			return nil, err
		}
		result = append(result, &t)
	}
	return result, rows.Err()
}

// AssignTag adds a tag assignment. Re-assigning is a no-op.
func (s *SQLiteStore) AssignTag(itemID, tagID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var exists int
	if err := s.db.QueryRow(`SELECT 1 FROM items WHERE id = ?`, itemID).Scan(&exists); err == sql.ErrNoRows {
		return ErrNotFound
	} else if err != nil {
		return err
	}
	if err := s.db.QueryRow(`SELECT 1 FROM tags WHERE id = ?`, tagID).Scan(&exists); err == sql.ErrNoRows {
		return ErrNotFound
	} else if err != nil {
		return err
	}

	_, err := s.db.Exec(`INSERT OR IGNORE INTO item_tags (item_id, tag_id) VALUES (?, ?)`, itemID, tagID)
	return err
}

// UnassignTag removes a tag assignment.
func (s *SQLiteStore) UnassignTag(itemID, tagID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`DELETE FROM item_tags WHERE item_id = ? AND tag_id = ?`, itemID, tagID)
	return err
}

// ListTagAssignments returns all assignments of a canvas.
func (s *SQLiteStore) ListTagAssignments(canvasID string) ([]*CanvasItemTag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT it.item_id, it.tag_id
		FROM item_tags it JOIN items i ON it.item_id = i.id
		WHERE i.canvas_id = ? ORDER BY it.item_id, it.tag_id
	`, canvasID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*CanvasItemTag
	for rows.Next() {
		var a CanvasItemTag
		if err := rows.Scan(&a.ItemID, &a.TagID); err != nil {
			return nil, err
		}
		result = append(result, &a)
	}
	return result, rows.Err()
}

// =============================================================================
// Photos
// =============================================================================

// PutPhoto inserts or updates photo metadata.
func (s *SQLiteStore) PutPhoto(p *Photo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO photos (id, item_id, filename, selected, important, caption, blurhash, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			filename = excluded.filename,
			selected = excluded.selected,
			important = excluded.important,
			caption = excluded.caption,
			blurhash = excluded.blurhash
	`, p.ID, p.ItemID, p.Filename, boolToInt(p.Selected), boolToInt(p.Important),
		p.Caption, p.Blurhash, p.CreatedAt)
	return err
}

const photoCols = `id, item_id, filename, selected, important, COALESCE(caption, ''), COALESCE(blurhash, ''), created_at`

func scanPhoto(r rowScanner) (*Photo, error) {
	var p Photo
	var selected, important int
	if err := r.Scan(&p.ID, &p.ItemID, &p.Filename, &selected, &important,
		&p.Caption, &p.Blurhash, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.Selected = selected != 0
	p.Important = important != 0
	return &p, nil
}

// GetPhoto retrieves photo metadata by ID.
func (s *SQLiteStore) GetPhoto(id string) (*Photo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, err := scanPhoto(s.db.QueryRow(`SELECT `+photoCols+` FROM photos WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// DeletePhoto removes photo metadata.
func (s *SQLiteStore) DeletePhoto(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM photos WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetSelectedPhoto marks one photo as the item's representative image,
// clearing any previous selection in the same statement batch.
func (s *SQLiteStore) SetSelectedPhoto(itemID, photoID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var owner string
	err = tx.QueryRow(`SELECT item_id FROM photos WHERE id = ?`, photoID).Scan(&owner)
	if err == sql.ErrNoRows || (err == nil && owner != itemID) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	if _, err := tx.Exec(`UPDATE photos SET selected = (id = ?) WHERE item_id = ?`, photoID, itemID); err != nil {
		return err
	}
	return tx.Commit()
}

// ListPhotos returns an item's photos, oldest first.
func (s *SQLiteStore) ListPhotos(itemID string) ([]*Photo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT `+photoCols+` FROM photos WHERE item_id = ? ORDER BY created_at, id`, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*Photo
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// =============================================================================
// Shares
// =============================================================================

// CreateShare inserts a share.
func (s *SQLiteStore) CreateShare(sh *Share) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO shares (id, canvas_id, item_id, token, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, sh.ID, sh.CanvasID, sh.ItemID, sh.Token, sh.CreatedBy, sh.CreatedAt)
	return err
}

// GetShareByToken resolves a share capability token.
func (s *SQLiteStore) GetShareByToken(token string) (*Share, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sh Share
	var itemID sql.NullString
	err := s.db.QueryRow(`SELECT id, canvas_id, item_id, token, created_by, created_at FROM shares WHERE token = ?`, token).
		Scan(&sh.ID, &sh.CanvasID, &itemID, &sh.Token, &sh.CreatedBy, &sh.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if itemID.Valid {
		sh.ItemID = &itemID.String
	}
	return &sh, nil
}

// DeleteShare revokes a share.
func (s *SQLiteStore) DeleteShare(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM shares WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// =============================================================================
// Feed pages
// =============================================================================

// TimelinePage returns one keyset page of items. The sort column is chosen
// from a fixed set; the keyset predicate and tie-break mirror the index order.
func (s *SQLiteStore) TimelinePage(q TimelineQuery) ([]*CanvasItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	col := "created_at"
	if q.Sort == SortUpdatedAt {
		col = "updated_at"
	}

	query := `SELECT ` + itemCols + ` FROM items WHERE canvas_id = ?`
	args := []any{q.CanvasID}
	if q.ParentItemID != "" {
		query += ` AND parent_item_id = ?`
		args = append(args, q.ParentItemID)
	}
	if q.AfterID != "" {
		query += ` AND (` + col + ` < ? OR (` + col + ` = ? AND id < ?))`
		args = append(args, q.AfterKey, q.AfterKey, q.AfterID)
	}
	query += ` ORDER BY ` + col + ` DESC, id DESC LIMIT ?`
	args = append(args, q.Limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var page []*CanvasItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		page = append(page, item)
	}
	return page, rows.Err()
}

// GalleryPage returns one keyset page of photos across a canvas. Filters
// apply in the query, before pagination.
func (s *SQLiteStore) GalleryPage(q GalleryQuery) ([]*Photo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT p.id, p.item_id, p.filename, p.selected, p.important,
			COALESCE(p.caption, ''), COALESCE(p.blurhash, ''), p.created_at
		FROM photos p JOIN items i ON p.item_id = i.id
		WHERE i.canvas_id = ?`
	args := []any{q.CanvasID}
	if q.ParentItemID != "" {
		query += ` AND i.parent_item_id = ?`
		args = append(args, q.ParentItemID)
	}
	if q.ImportantOnly {
		query += ` AND p.important = 1`
	}
	if q.AfterID != "" {
		query += ` AND (p.created_at < ? OR (p.created_at = ? AND p.id < ?))`
		args = append(args, q.AfterKey, q.AfterKey, q.AfterID)
	}
	query += ` ORDER BY p.created_at DESC, p.id DESC LIMIT ?`
	args = append(args, q.Limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var page []*Photo
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, err
		}
		page = append(page, p)
	}
	return page, rows.Err()
}

// =============================================================================
// Transfer
// =============================================================================

// SnapshotCanvas reads the whole canvas graph inside one transaction, so
// every foreign key in the snapshot resolves within the snapshot.
func (s *SQLiteStore) SnapshotCanvas(canvasID string) (*Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	snap := &Snapshot{}
	err = tx.QueryRow(`SELECT id, name, created_at FROM canvases WHERE id = ?`, canvasID).
		Scan(&snap.Canvas.ID, &snap.Canvas.Name, &snap.Canvas.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	itemRows, err := tx.Query(`SELECT `+itemCols+` FROM items WHERE canvas_id = ? ORDER BY id`, canvasID)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()
	for itemRows.Next() {
		item, err := scanItem(itemRows)
		if err != nil {
			return nil, err
		}
		snap.Items = append(snap.Items, *item)
	}
	if err := itemRows.Err(); err != nil {
		return nil, err
	}

	linkRows, err := tx.Query(`SELECT canvas_id, item_a, item_b FROM links WHERE canvas_id = ? ORDER BY item_a, item_b`, canvasID)
	if err != nil {
		return nil, err
	}
	defer linkRows.Close()
	for linkRows.Next() {
		var l CanvasItemLink
		if err := linkRows.Scan(&l.CanvasID, &l.ItemA, &l.ItemB); err != nil {
			return nil, err
		}
		snap.Links = append(snap.Links, l)
	}
	if err := linkRows.Err(); err != nil {
		return nil, err
	}

	noteRows, err := tx.Query(`
		SELECT n.id, n.item_id, n.content, n.created_at, n.updated_at
		FROM notes n JOIN items i ON n.item_id = i.id
		WHERE i.canvas_id = ? ORDER BY n.id
	`, canvasID)
	if err != nil {
		return nil, err
	}
	defer noteRows.Close()
	for noteRows.Next() {
		var n Note
		if err := noteRows.Scan(&n.ID, &n.ItemID, &n.Content, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, err
		}
		snap.Notes = append(snap.Notes, n)
	}
	if err := noteRows.Err(); err != nil {
		return nil, err
	}

	tagRows, err := tx.Query(`SELECT id, canvas_id, name, COALESCE(icon, ''), COALESCE(color, '') FROM tags WHERE canvas_id = ? ORDER BY id`, canvasID)
	if err != nil {
		return nil, err
	}
	defer tagRows.Close()
	for tagRows.Next() {
		var t Tag
		if err := tagRows.Scan(&t.ID, &t.CanvasID, &t.Name, &t.Icon, &t.Color); err != nil {
			return nil, err
		}
		snap.Tags = append(snap.Tags, t)
	}
	if err := tagRows.Err(); err != nil {
		return nil, err
	}

	assignRows, err := tx.Query(`
		SELECT it.item_id, it.tag_id
		FROM item_tags it JOIN items i ON it.item_id = i.id
		WHERE i.canvas_id = ? ORDER BY it.item_id, it.tag_id
	`, canvasID)
	if err != nil {
		return nil, err
	}
	defer assignRows.Close()
	for assignRows.Next() {
		var a CanvasItemTag
		if err := assignRows.Scan(&a.ItemID, &a.TagID); err != nil {
			return nil, err
		}
		snap.TagAssignments = append(snap.TagAssignments, a)
	}
	if err := assignRows.Err(); err != nil {
		return nil, err
	}

	photoRows, err := tx.Query(`
		SELECT p.id, p.item_id, p.filename, p.selected, p.important,
			COALESCE(p.caption, ''), COALESCE(p.blurhash, ''), p.created_at
		FROM photos p JOIN items i ON p.item_id = i.id
		WHERE i.canvas_id = ? ORDER BY p.id
	`, canvasID)
	if err != nil {
		return nil, err
	}
	defer photoRows.Close()
	for photoRows.Next() {
		p, err := scanPhoto(photoRows)
		if err != nil {
			return nil, err
		}
		snap.Photos = append(snap.Photos, *p)
	}
	if err := photoRows.Err(); err != nil {
		return nil, err
	}

	return snap, tx.Commit()
}

// ImportSnapshot applies a remapped snapshot in one atomic transaction:
// canvas, items, links, notes, tags, assignments, photos, owner membership.
// Any constraint violation rolls the whole import back.
func (s *SQLiteStore) ImportSnapshot(snap *Snapshot, ownerUserID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO canvases (id, name, created_at) VALUES (?, ?, ?)`,
		snap.Canvas.ID, snap.Canvas.Name, snap.Canvas.CreatedAt); err != nil {
		return err
	}
	for i := range snap.Items {
		item := &snap.Items[i]
		if _, err := tx.Exec(`
			INSERT INTO items (id, canvas_id, type, title, summary, canvas_x, canvas_y,
				session_date, parent_item_id, important, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, item.ID, item.CanvasID, string(item.Type), item.Title, item.Summary,
			item.CanvasX, item.CanvasY, item.SessionDate, item.ParentItemID,
			boolToInt(item.Important), item.CreatedAt, item.UpdatedAt); err != nil {
			return err
		}
	}
	for _, l := range snap.Links {
		a, b := NormalizeLinkPair(l.ItemA, l.ItemB)
		if _, err := tx.Exec(`INSERT INTO links (canvas_id, item_a, item_b) VALUES (?, ?, ?)`,
			l.CanvasID, a, b); err != nil {
			return err
		}
	}
	for _, n := range snap.Notes {
		if _, err := tx.Exec(`INSERT INTO notes (id, item_id, content, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			n.ID, n.ItemID, n.Content, n.CreatedAt, n.UpdatedAt); err != nil {
			return err
		}
	}
	for _, t := range snap.Tags {
		if _, err := tx.Exec(`INSERT INTO tags (id, canvas_id, name, icon, color) VALUES (?, ?, ?, ?, ?)`,
			t.ID, t.CanvasID, t.Name, t.Icon, t.Color); err != nil {
			return err
		}
	}
	for _, a := range snap.TagAssignments {
		if _, err := tx.Exec(`INSERT INTO item_tags (item_id, tag_id) VALUES (?, ?)`,
			a.ItemID, a.TagID); err != nil {
			return err
		}
	}
	for _, p := range snap.Photos {
		if _, err := tx.Exec(`
			INSERT INTO photos (id, item_id, filename, selected, important, caption, blurhash, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, p.ID, p.ItemID, p.Filename, boolToInt(p.Selected), boolToInt(p.Important),
			p.Caption, p.Blurhash, p.CreatedAt); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(`INSERT INTO canvas_users (canvas_id, user_id, role) VALUES (?, ?, 'owner')`,
		snap.Canvas.ID, ownerUserID); err != nil {
		return err
	}
	return tx.Commit()
}

// =============================================================================
// Helpers
// =============================================================================

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Compile-time interface check
var _ Storer = (*SQLiteStore)(nil)
