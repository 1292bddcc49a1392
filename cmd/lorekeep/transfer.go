package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// newExportCmd creates the export command
func newExportCmd(configPath *string) *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "export <canvas-id>",
		Short: "Export a canvas to a portable archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := openService(*configPath)
			if err != nil {
				return err
			}
			defer closeFn()

			data, err := svc.Export(args[0])
			if err != nil {
				return err
			}

			out := outputFile
			if out == "" {
				out = args[0] + ".lorekeep.zip"
			}
			if err := os.WriteFile(out, data, 0644); err != nil {
				return err
			}
			fmt.Printf("Exported canvas %s to %s (%d bytes)\n", args[0], out, len(data))
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "output file (default <canvas-id>.lorekeep.zip)")
	return cmd
}

// newImportCmd creates the import command
func newImportCmd(configPath *string) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "import <archive-file>",
		Short: "Import an archive as a new canvas",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := openService(*configPath)
			if err != nil {
				return err
			}
			defer closeFn()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			res, err := svc.Import(data, userID)
			if err != nil {
				return err
			}
			fmt.Printf("Imported %q as canvas %s\n", res.Name, res.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "importing user id")
	cmd.MarkFlagRequired("user")
	return cmd
}
