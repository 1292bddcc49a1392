package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kittclouds/lorekeep/internal/feed"
	"github.com/kittclouds/lorekeep/internal/store"
)

// newTimelineCmd creates the timeline command
func newTimelineCmd(configPath *string) *cobra.Command {
	var (
		sortField string
		cursorStr string
		limit     int
		parentID  string
	)

	cmd := &cobra.Command{
		Use:   "timeline <canvas-id>",
		Short: "Print one page of a canvas timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := openService(*configPath)
			if err != nil {
				return err
			}
			defer closeFn()

			page, err := svc.Timeline(feed.TimelineRequest{
				CanvasID:     args[0],
				Sort:         store.SortField(sortField),
				Cursor:       cursorStr,
				Limit:        limit,
				ParentItemID: parentID,
			})
			if err != nil {
				return err
			}

			for _, e := range page.Entries {
				ts := e.CreatedAt
				if store.SortField(sortField) == store.SortUpdatedAt {
					ts = e.UpdatedAt
				}
				fmt.Printf("%s  %-8s  %s  %s\n",
					time.UnixMilli(ts).Format(time.RFC3339), e.Type, e.ID, e.Title)
			}
			if page.NextCursor != nil {
				fmt.Printf("next: %s\n", *page.NextCursor)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&sortField, "sort", string(store.SortCreatedAt), "sort field: createdAt or updatedAt")
	cmd.Flags().StringVar(&cursorStr, "cursor", "", "resume cursor from a previous page")
	cmd.Flags().IntVar(&limit, "limit", feed.DefaultLimit, "page size")
	cmd.Flags().StringVar(&parentID, "parent", "", "scope to children of this item")
	return cmd
}

// newGalleryCmd creates the gallery command
func newGalleryCmd(configPath *string) *cobra.Command {
	var (
		cursorStr     string
		limit         int
		parentID      string
		importantOnly bool
	)

	cmd := &cobra.Command{
		Use:   "gallery <canvas-id>",
		Short: "Print one page of a canvas photo gallery",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := openService(*configPath)
			if err != nil {
				return err
			}
			defer closeFn()

			page, err := svc.Gallery(feed.GalleryRequest{
				CanvasID:      args[0],
				Cursor:        cursorStr,
				Limit:         limit,
				ImportantOnly: importantOnly,
				ParentItemID:  parentID,
			})
			if err != nil {
				return err
			}

			for _, p := range page.Entries {
				marker := " "
				if p.Important {
					marker = "*"
				}
				fmt.Printf("%s %s  %s  %s\n",
					marker, time.UnixMilli(p.CreatedAt).Format(time.RFC3339), p.ID, p.Filename)
			}
			if page.NextCursor != nil {
				fmt.Printf("next: %s\n", *page.NextCursor)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&cursorStr, "cursor", "", "resume cursor from a previous page")
	cmd.Flags().IntVar(&limit, "limit", feed.DefaultLimit, "page size")
	cmd.Flags().StringVar(&parentID, "parent", "", "scope to photos of this item's children")
	cmd.Flags().BoolVar(&importantOnly, "important", false, "only photos flagged important")
	return cmd
}
