package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"mediagrab/internal/config"
	"mediagrab/internal/extractor"
	"mediagrab/internal/fetcher"
	"mediagrab/internal/instagram"
	"mediagrab/internal/media"
	"mediagrab/internal/pipeline"
)

const version = "0.3.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "mediagrab: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "mediagrab",
		Short:        "mediagrab acquisition CLI",
		Long:         `mediagrab fetches a media asset from a source URL using the same acquisition pipeline as the Telegram bot, without needing a bot token.`,
		SilenceUsage: true,
	}
	cmd.AddCommand(
		newFetchCmd(),
		newVersionCmd(),
	)
	return cmd
}

func newFetchCmd() *cobra.Command {
	var (
		kindFlag string
		outDir   string
		verbose  bool
	)
	cmd := &cobra.Command{
		Use:   "fetch <url>",
		Short: "Download the best media file for a URL into a local directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, ok := media.ParseKind(kindFlag)
			if !ok {
				return fmt.Errorf("invalid kind %q (want video, audio, or image)", kindFlag)
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			if verbose {
				logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
			}

			pipe := pipeline.New(
				extractor.New(cfg.YtdlpPath, cfg.ExtractTimeout, logger),
				fetcher.New(cfg.Timeout, logger),
				instagram.New(cfg.Timeout, cfg.InstagramCookie, logger),
				pipeline.Options{CookieText: cfg.CookieText, CookiePath: cfg.CookiePath, Logger: logger},
			)

			sel, cleanup, err := pipe.Fetch(cmd.Context(), pipeline.Request{URL: args[0], Kind: kind})
			if err != nil {
				return err
			}
			defer cleanup()

			if err := os.MkdirAll(outDir, 0o750); err != nil {
				return err
			}
			dst := filepath.Join(outDir, filepath.Base(sel.Path))
			if err := os.Rename(sel.Path, dst); err != nil {
				// Cross-device rename; fall back to a copy.
				if err := copyFile(sel.Path, dst); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", dst, sel.Class, humanize.IBytes(uint64(sel.Size)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&kindFlag, "kind", "k", "video", "Desired kind: video, audio, or image")
	cmd.Flags().StringVarP(&outDir, "output", "o", ".", "Directory to place the downloaded file in")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log pipeline stages to stderr")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the mediagrab version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "mediagrab "+version)
		},
	}
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
