package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	_ "time/tzdata"

	"github.com/spf13/cobra"

	"github.com/qs3c/listing_sub_server/config"
	"github.com/qs3c/listing_sub_server/internal/bootstrap"
	"github.com/qs3c/listing_sub_server/internal/model"
	"github.com/qs3c/listing_sub_server/internal/pkg/jwt"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Operator commands for the subscription server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", envOr("CONFIG_PATH", "config.yaml"), "config file path")

	root.AddCommand(sweepCmd(), purgeClaimsCmd(), seedCatalogCmd(), tokenCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// withApp 加载配置并连接依赖，执行完关闭连接
func withApp(fn func(ctx context.Context, app *bootstrap.App) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	app, err := bootstrap.Open(cfg)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(context.Background(), app)
}

func sweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one expiry reminder sweep now",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, app *bootstrap.App) error {
				report, err := app.Reminders.Sweep(ctx)
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			})
		},
	}
}

func purgeClaimsCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "purge-claims",
		Short: "Delete verified and rejected claims older than --days",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, app *bootstrap.App) error {
				n, err := app.Claims.Purge(ctx, time.Duration(days)*24*time.Hour)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "purged %d claims\n", n)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 180, "retention in days")
	return cmd
}

func seedCatalogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-catalog",
		Short: "Insert the default price list when the catalog is empty",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, app *bootstrap.App) error {
				n, err := app.Catalog.Seed(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created %d packages\n", n)
				return nil
			})
		},
	}
}

func tokenCmd() *cobra.Command {
	var (
		userID int64
		role   string
		hours  int
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			if role != model.RoleSubject && role != model.RoleAdmin {
				return fmt.Errorf("role must be %s or %s", model.RoleSubject, model.RoleAdmin)
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			tok, err := jwt.GenerateToken(userID, role, cfg.JWT.Secret, hours)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().Int64Var(&userID, "user-id", 0, "subject id")
	cmd.Flags().StringVar(&role, "role", model.RoleSubject, "subject or admin")
	cmd.Flags().IntVar(&hours, "hours", 24, "validity in hours")
	_ = cmd.MarkFlagRequired("user-id")
	return cmd
}
