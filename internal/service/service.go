// Package service exposes the canvas core to callers: export, import,
// share-based cloning, and the timeline/gallery feeds. It owns error-code
// mapping and structured logging; the packages below it only return errors.
package service

import (
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kittclouds/lorekeep/internal/attach"
	"github.com/kittclouds/lorekeep/internal/feed"
	"github.com/kittclouds/lorekeep/internal/store"
	"github.com/kittclouds/lorekeep/internal/transfer"
	"github.com/kittclouds/lorekeep/pkg/cursor"
)

// Code is the stable error code reported to callers.
type Code string

const (
	CodeNone             Code = ""
	CodeNotFound         Code = "not_found"
	CodeMalformedArchive Code = "malformed_archive"
	CodeRemapError       Code = "remap_error"
	CodeImportFailed     Code = "import_failed"
	CodeInvalidCursor    Code = "invalid_cursor"
	CodeLastCanvas       Code = "last_canvas"
	CodeInternal         Code = "internal"
)

// CodeOf classifies an error from any core operation.
func CodeOf(err error) Code {
	switch {
	case err == nil:
		return CodeNone
	case errors.Is(err, store.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, store.ErrLastCanvas):
		return CodeLastCanvas
	case errors.Is(err, transfer.ErrMalformedArchive):
		return CodeMalformedArchive
	case errors.Is(err, transfer.ErrRemap):
		return CodeRemapError
	case errors.Is(err, transfer.ErrImportFailed):
		return CodeImportFailed
	case errors.Is(err, cursor.ErrInvalidCursor):
		return CodeInvalidCursor
	default:
		return CodeInternal
	}
}

// NewLogger builds the service logger.
func NewLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// Service wires the store, the attachment store, the id supply and a logger.
type Service struct {
	store  store.Storer
	att    attach.Store
	ids    transfer.IDSource
	logger zerolog.Logger
}

// New creates a service with the production id source.
func New(st store.Storer, att attach.Store, logger zerolog.Logger) *Service {
	return &Service{store: st, att: att, ids: transfer.UUIDSource, logger: logger}
}

// WithIDSource overrides the fresh-id supply (deterministic tests).
func (s *Service) WithIDSource(src transfer.IDSource) *Service {
	s.ids = src
	return s
}

// Export serializes one canvas to archive bytes.
func (s *Service) Export(canvasID string) ([]byte, error) {
	data, err := transfer.Export(s.store, s.att, canvasID)
	if err != nil {
		s.logger.Warn().Str("canvas", canvasID).Str("code", string(CodeOf(err))).Err(err).Msg("export failed")
		return nil, err
	}
	s.logger.Info().Str("canvas", canvasID).Int("bytes", len(data)).Msg("canvas exported")
	return data, nil
}

// Import creates a new canvas from archive bytes, owned by userID.
func (s *Service) Import(data []byte, userID string) (transfer.Result, error) {
	res, err := transfer.Import(s.store, s.att, s.ids, data, userID)
	if err != nil {
		s.logger.Warn().Str("user", userID).Str("code", string(CodeOf(err))).Err(err).Msg("import failed")
		return transfer.Result{}, err
	}
	s.logger.Info().Str("user", userID).Str("canvas", res.ID).Str("name", res.Name).Msg("canvas imported")
	return res, nil
}

// Timeline returns one page of the timeline feed.
func (s *Service) Timeline(req feed.TimelineRequest) (*feed.TimelinePage, error) {
	return feed.Timeline(s.store, req)
}

// Gallery returns one page of the gallery feed.
func (s *Service) Gallery(req feed.GalleryRequest) (*feed.GalleryPage, error) {
	return feed.Gallery(s.store, req)
}

// CreateShare mints a share capability for a canvas, or for an item
// subtree when itemID is non-empty.
func (s *Service) CreateShare(canvasID string, itemID *string, userID string) (*store.Share, error) {
	if _, err := s.store.GetCanvas(canvasID); err != nil {
		return nil, err
	}
	if itemID != nil {
		item, err := s.store.GetItem(*itemID)
		if err != nil {
			return nil, err
		}
		if item.CanvasID != canvasID {
			return nil, store.ErrNotFound
		}
	}

	sh := &store.Share{
		ID:        s.ids(),
		CanvasID:  canvasID,
		ItemID:    itemID,
		Token:     uuid.NewString(),
		CreatedBy: userID,
		CreatedAt: time.Now().UnixMilli(),
	}
	if err := s.store.CreateShare(sh); err != nil {
		return nil, err
	}
	s.logger.Info().Str("canvas", canvasID).Str("share", sh.ID).Msg("share created")
	return sh, nil
}

// ResolveShare looks a share up by its capability token.
func (s *Service) ResolveShare(token string) (*store.Share, error) {
	return s.store.GetShareByToken(token)
}

// RevokeShare deletes a share.
func (s *Service) RevokeShare(id string) error {
	return s.store.DeleteShare(id)
}

// CloneFromShare copies the canvas (or item subtree) behind a share token
// into a new canvas owned by the caller.
func (s *Service) CloneFromShare(token, userID string) (transfer.Result, error) {
	sh, err := s.store.GetShareByToken(token)
	if err != nil {
		return transfer.Result{}, err
	}

	rootItemID := ""
	if sh.ItemID != nil {
		rootItemID = *sh.ItemID
	}
	res, err := transfer.Clone(s.store, s.att, s.ids, sh.CanvasID, rootItemID, userID)
	if err != nil {
		s.logger.Warn().Str("share", sh.ID).Str("code", string(CodeOf(err))).Err(err).Msg("clone failed")
		return transfer.Result{}, err
	}
	s.logger.Info().Str("share", sh.ID).Str("canvas", res.ID).Str("user", userID).Msg("canvas cloned from share")
	return res, nil
}

// NoteHistory lists a note's content snapshots, newest first.
func (s *Service) NoteHistory(noteID string) ([]*store.NoteHistory, error) {
	if _, err := s.store.GetNote(noteID); err != nil {
		return nil, err
	}
	return s.store.ListNoteHistory(noteID)
}
