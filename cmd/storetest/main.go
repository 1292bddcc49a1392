// Command storetest is a quick smoke check that both store backends agree
// on the core flows. go test covers the details; this is for eyeballing a
// fresh build.
package main

import (
	"fmt"
	"log"

	"github.com/kittclouds/lorekeep/internal/store"
)

func main() {
	fmt.Println("Testing MemStore...")
	s := store.NewMemStore()
	exercise(s)
	s.Close()

	fmt.Println("\nTesting SQLiteStore...")
	sq, err := store.NewSQLiteStore()
	if err != nil {
		log.Fatalf("NewSQLiteStore failed: %v", err)
	}
	exercise(sq)
	sq.Close()

	fmt.Println("\n✅ All checks passed!")
}

func exercise(s store.Storer) {
	canvas := &store.Canvas{ID: "canvas-1", Name: "Smoke Test", CreatedAt: 1234567890}
	if err := s.CreateCanvas(canvas, "user-1"); err != nil {
		log.Fatalf("CreateCanvas failed: %v", err)
	}
	fmt.Println("  ✓ CreateCanvas works")

	itemA := &store.CanvasItem{ID: "item-a", CanvasID: "canvas-1", Type: store.ItemPerson, Title: "Mira", CreatedAt: 10, UpdatedAt: 10}
	itemB := &store.CanvasItem{ID: "item-b", CanvasID: "canvas-1", Type: store.ItemPlace, Title: "Harbor", CreatedAt: 20, UpdatedAt: 20}
	if err := s.PutItem(itemA); err != nil {
		log.Fatalf("PutItem failed: %v", err)
	}
	if err := s.PutItem(itemB); err != nil {
		log.Fatalf("PutItem failed: %v", err)
	}
	fmt.Println("  ✓ PutItem works")

	if err := s.PutLink("item-b", "item-a"); err != nil {
		log.Fatalf("PutLink failed: %v", err)
	}
	links, err := s.ListLinks("canvas-1")
	if err != nil {
		log.Fatalf("ListLinks failed: %v", err)
	}
	if len(links) != 1 || links[0].ItemA != "item-a" {
		log.Fatalf("link not normalized: %+v", links)
	}
	fmt.Println("  ✓ PutLink normalizes the pair")

	note := &store.Note{ID: "note-1", ItemID: "item-a", Content: "v1", CreatedAt: 10, UpdatedAt: 10}
	if err := s.CreateNote(note); err != nil {
		log.Fatalf("CreateNote failed: %v", err)
	}
	note.Content = "v2"
	note.UpdatedAt = 11
	if err := s.UpdateNote(note); err != nil {
		log.Fatalf("UpdateNote failed: %v", err)
	}
	hist, err := s.ListNoteHistory("note-1")
	if err != nil {
		log.Fatalf("ListNoteHistory failed: %v", err)
	}
	if len(hist) != 1 || hist[0].Content != "v1" {
		log.Fatalf("history wrong: %+v", hist)
	}
	fmt.Println("  ✓ UpdateNote records history")

	page, err := s.TimelinePage(store.TimelineQuery{CanvasID: "canvas-1", Sort: store.SortCreatedAt, Limit: 10})
	if err != nil {
		log.Fatalf("TimelinePage failed: %v", err)
	}
	if len(page) != 2 || page[0].ID != "item-b" {
		log.Fatalf("timeline wrong order: %+v", page)
	}
	fmt.Println("  ✓ TimelinePage orders newest first")

	snap, err := s.SnapshotCanvas("canvas-1")
	if err != nil {
		log.Fatalf("SnapshotCanvas failed: %v", err)
	}
	if len(snap.Items) != 2 || len(snap.Links) != 1 || len(snap.Notes) != 1 {
		log.Fatalf("snapshot incomplete: %+v", snap)
	}
	fmt.Println("  ✓ SnapshotCanvas captures the graph")
}
