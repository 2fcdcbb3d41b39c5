package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/haierkeys/page-notes-service/internal/tui"
	"github.com/haierkeys/page-notes-service/pkg/client"

	"github.com/spf13/cobra"
)

func init() {
	var configPath string
	override := tui.Config{}
	var noEvents bool

	panelCmd := &cobra.Command{
		Use:   "panel [--page-url url]",
		Short: "Open the notes panel for a page in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := tui.LoadConfig(configPath)
			if err != nil {
				return err
			}

			fs := cmd.Flags()
			if fs.Changed("server") {
				cfg.Server = override.Server
			}
			if fs.Changed("token") {
				cfg.Token = override.Token
			}
			if fs.Changed("lang") {
				cfg.Lang = override.Lang
			}
			if fs.Changed("page-url") {
				cfg.PageURL = override.PageURL
			}
			if fs.Changed("page-title") {
				cfg.PageTitle = override.PageTitle
			}
			if fs.Changed("notice-ttl") {
				cfg.NoticeTTL = override.NoticeTTL
			}
			if noEvents {
				cfg.Events = false
			}

			c, err := client.New(client.Config{Server: cfg.Server, Token: cfg.Token, Lang: cfg.Lang})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var events tui.Subscriber
			if cfg.Events {
				events = c
			}
			return tui.Run(ctx, c, events, cfg)
		},
	}

	rootCmd.AddCommand(panelCmd)
	fs := panelCmd.Flags()
	fs.StringVarP(&configPath, "config", "c", tui.DefaultConfigFile, "panel config file (TOML)")
	fs.StringVar(&override.Server, "server", "", "service address, e.g. http://127.0.0.1:9000")
	fs.StringVar(&override.Token, "token", "", "user token")
	fs.StringVar(&override.Lang, "lang", "", "message language, en or zh-cn")
	fs.StringVar(&override.PageURL, "page-url", "", "page the notes belong to")
	fs.StringVar(&override.PageTitle, "page-title", "", "page title stored with new notes")
	fs.StringVar(&override.NoticeTTL, "notice-ttl", "", "how long notices stay visible, e.g. 3s")
	fs.BoolVar(&noEvents, "no-events", false, "do not subscribe to change events")
}
