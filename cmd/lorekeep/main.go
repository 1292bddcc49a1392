// Package main implements the lorekeep command-line interface.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hack-pad/hackpadfs"
	osfs "github.com/hack-pad/hackpadfs/os"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/kittclouds/lorekeep/internal/attach"
	"github.com/kittclouds/lorekeep/internal/config"
	"github.com/kittclouds/lorekeep/internal/service"
	"github.com/kittclouds/lorekeep/internal/store"
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "lorekeep",
		Short:         "Campaign canvas export, import and feeds",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "lorekeep.yaml", "path to config file")

	cmd.AddCommand(newExportCmd(&configPath))
	cmd.AddCommand(newImportCmd(&configPath))
	cmd.AddCommand(newTimelineCmd(&configPath))
	cmd.AddCommand(newGalleryCmd(&configPath))
	cmd.AddCommand(newShareCmd(&configPath))

	return cmd
}

// openService builds the service stack from the config file.
func openService(configPath string) (*service.Service, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := service.NewLogger(os.Stderr, level)

	st, err := store.NewSQLiteStoreWithDSN(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}

	att, err := openAttachments(cfg.AttachmentsDir)
	if err != nil {
		st.Close()
		return nil, nil, err
	}

	svc := service.New(st, att, logger)
	return svc, func() { st.Close() }, nil
}

// openAttachments roots an attachment store at dir, creating it if absent.
// hackpadfs paths are fs-style: absolute, slash-separated, no leading slash.
func openAttachments(dir string) (*attach.FSStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, err
	}
	sub, err := hackpadfs.Sub(osfs.NewFS(), strings.TrimPrefix(filepath.ToSlash(abs), "/"))
	if err != nil {
		return nil, err
	}
	return attach.NewFSStore(sub), nil
}
