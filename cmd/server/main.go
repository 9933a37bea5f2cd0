package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/d-a-s-h-o/nojs-chat/internal/app"
	"github.com/d-a-s-h-o/nojs-chat/internal/config"
	"github.com/d-a-s-h-o/nojs-chat/internal/log"
)

func main() {
	var (
		configPath string
		httpAddr   string
		sshAddr    string
		chatName   string
	)

	rootCmd := &cobra.Command{
		Use:          "nojs-chat",
		Short:        "Minimal chat server over HTTP and SSH",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bootstrap := log.New("info")
			cfg, path, err := config.Load(bootstrap, configPath)
			if err != nil {
				return fmt.Errorf("load config %s: %w", path, err)
			}

			// Flags override whatever the file and environment said.
			if cmd.Flags().Changed("port") {
				cfg.HTTPAddr = httpAddr
			}
			if cmd.Flags().Changed("ssh") {
				cfg.SSHAddr = sshAddr
			}
			if cmd.Flags().Changed("name") {
				cfg.ChatName = chatName
			}

			logger := log.New(cfg.LogLevel)
			logger.Info().
				Str("chat_name", cfg.ChatName).
				Str("http_addr", cfg.HTTPAddr).
				Str("ssh_addr", cfg.SSHAddr).
				Msg("starting server")

			application, err := app.New(&cfg, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := application.Run(ctx); err != nil {
				return err
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}

	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file")
	rootCmd.Flags().StringVarP(&httpAddr, "port", "p", "", "HTTP listen address")
	rootCmd.Flags().StringVarP(&sshAddr, "ssh", "s", "", "SSH listen address")
	rootCmd.Flags().StringVarP(&chatName, "name", "n", "", "chat name")

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
