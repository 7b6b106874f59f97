// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package main

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tomtom215/readmark/internal/audit"
	"github.com/tomtom215/readmark/internal/wechat"
)

func newMenuCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "menu",
		Short: "Manage the official account menu",
	}

	var show bool
	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Publish the default menu (catalog link, bind, recommend, unbind)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.Server.PublicBaseURL == "" {
				return errors.New("PUBLIC_BASE_URL is required to build the menu's login link")
			}
			menu := wechat.DefaultMenu(a.cfg.LoginURL())
			if show {
				out, err := json.MarshalIndent(menu, "", "  ")
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return err
			}
			if a.cfg.WeChat.AppID == "" || a.cfg.WeChat.AppSecret == "" {
				return errors.New("WECHAT_APPID and WECHAT_SECRET are required")
			}
			trail, err := a.auditTrail(cmd.Context())
			if err != nil {
				return err
			}
			err = wechat.NewClient(&a.cfg.WeChat).CreateMenu(cmd.Context(), menu)
			trail.MenuPublished(operatorActor, audit.ActorOperator, err)
			if err != nil {
				return fmt.Errorf("create menu: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "menu created")
			return err
		},
	}
	createCmd.Flags().BoolVar(&show, "show", false, "print the menu JSON without publishing it")

	cmd.AddCommand(createCmd)
	return cmd
}
