package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newShareCmd creates the share command group
func newShareCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "share",
		Short: "Create, revoke and clone from canvas shares",
	}
	cmd.AddCommand(newShareCreateCmd(configPath))
	cmd.AddCommand(newShareRevokeCmd(configPath))
	cmd.AddCommand(newShareCloneCmd(configPath))
	return cmd
}

func newShareCreateCmd(configPath *string) *cobra.Command {
	var (
		itemID string
		userID string
	)

	cmd := &cobra.Command{
		Use:   "create <canvas-id>",
		Short: "Mint a share token for a canvas or item subtree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := openService(*configPath)
			if err != nil {
				return err
			}
			defer closeFn()

			var item *string
			if itemID != "" {
				item = &itemID
			}
			sh, err := svc.CreateShare(args[0], item, userID)
			if err != nil {
				return err
			}
			fmt.Printf("Share %s created\ntoken: %s\n", sh.ID, sh.Token)
			return nil
		},
	}
	cmd.Flags().StringVar(&itemID, "item", "", "share only the subtree under this item")
	cmd.Flags().StringVar(&userID, "user", "", "sharing user id")
	cmd.MarkFlagRequired("user")
	return cmd
}

func newShareRevokeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <share-id>",
		Short: "Revoke a share",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := openService(*configPath)
			if err != nil {
				return err
			}
			defer closeFn()

			if err := svc.RevokeShare(args[0]); err != nil {
				return err
			}
			fmt.Printf("Share %s revoked\n", args[0])
			return nil
		},
	}
}

func newShareCloneCmd(configPath *string) *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "clone <token>",
		Short: "Clone the canvas behind a share token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := openService(*configPath)
			if err != nil {
				return err
			}
			defer closeFn()

			res, err := svc.CloneFromShare(args[0], userID)
			if err != nil {
				return err
			}
			fmt.Printf("Cloned %q as canvas %s\n", res.Name, res.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "cloning user id")
	cmd.MarkFlagRequired("user")
	return cmd
}
