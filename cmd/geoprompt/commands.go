package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"geoprompt/config"
	"geoprompt/internal/app"
	"geoprompt/internal/core"
	"geoprompt/internal/logging"
	"geoprompt/internal/relay"
	"geoprompt/internal/version"
)

const shutdownTimeout = 30 * time.Second

// cli carries state shared by subcommands after PersistentPreRunE has run.
type cli struct {
	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "geoprompt",
		Short:         "Turn natural-language place queries into Overpass QL with a Groq-hosted model",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.serve(cmd)
		},
	}
	root.PersistentFlags().String("env-file", ".env", "dotenv file to load if present")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.serve(cmd)
		},
	}
	serveCmd.Flags().String("port", "", "listen port (overrides PORT)")

	predictCmd := &cobra.Command{
		Use:   "predict <prompt...>",
		Short: "Run one prediction and print the JSON result",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.predict(cmd, strings.Join(args, " "))
		},
	}
	predictCmd.Flags().Duration("timeout", 0, "overall deadline (0 uses HTTP_TIMEOUT per attempt)")

	categoriesCmd := &cobra.Command{
		Use:   "categories",
		Short: "List the POI categories the model is instructed to recognise",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printCategories(cmd)
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.Info())
		},
	}

	root.AddCommand(serveCmd, predictCmd, categoriesCmd, versionCmd)
	return root
}

func (c *cli) setup(cmd *cobra.Command) error {
	envFile, _ := cmd.Flags().GetString("env-file")
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(os.Stderr, cfg.Logging.Format, cfg.Logging.Level)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	c.cfg = cfg
	return nil
}

func (c *cli) serve(cmd *cobra.Command) error {
	if port, _ := cmd.Flags().GetString("port"); port != "" {
		c.cfg.Server.Port = port
	}

	slog.Info("starting geoprompt",
		"version", version.Version,
		"commit", version.Commit,
		"build_date", version.Date,
	)

	application, err := app.New(cmd.Context(), c.cfg)
	if err != nil {
		slog.Error("failed to initialize application", "error", err)
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx, ":"+c.cfg.Server.Port, shutdownTimeout); err != nil {
		slog.Error("application failed", "error", err)
		return err
	}
	return nil
}

func (c *cli) predict(cmd *cobra.Command, prompt string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout, _ := cmd.Flags().GetDuration("timeout"); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	svc := app.NewRelay(c.cfg)
	result, err := svc.Predict(ctx, prompt)
	if err != nil {
		var gwErr *core.GatewayError
		if errors.As(err, &gwErr) {
			_ = writeJSON(cmd, gwErr.ToJSON())
		}
		return err
	}

	var payload any = result.Payload()
	if result.Kind == relay.KindObject {
		payload = result.Object
	}
	return writeJSON(cmd, payload)
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printCategories(cmd *cobra.Command) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CATEGORY\tOSM TAG")
	for _, tag := range relay.POITags {
		fmt.Fprintf(w, "%s\t%s\n", tag.Category, tag.Tag())
	}
	return w.Flush()
}
