package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/patientflow/internal/config"
	"github.com/ehr/patientflow/internal/domain/department"
	"github.com/ehr/patientflow/internal/domain/directory"
	"github.com/ehr/patientflow/internal/platform/auth"
	"github.com/ehr/patientflow/internal/platform/db"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "patientflow-server",
		Short: "Hospital patient flow API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(hospitalCmd())
	rootCmd.AddCommand(departmentCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger().Level(zerolog.DebugLevel)
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger().Level(zerolog.InfoLevel)
}

// connect loads config and opens the pool for one-shot commands.
func connect(ctx context.Context) (*config.Config, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	pool, err := db.NewPool(ctx, db.PoolConfig{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	}, newLogger(cfg.Env))
	if err != nil {
		return nil, nil, err
	}
	return cfg, pool, nil
}

func parseID(raw, what string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid %s id %q", what, raw)
	}
	return id, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the patient flow API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			cfg, pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			dir, _ := cmd.Flags().GetString("dir")
			if dir == "" {
				dir = cfg.MigrationsDir
			}
			count, err := db.NewMigrator(pool, dir).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "", "Path to migrations directory (defaults to MIGRATIONS_DIR)")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			cfg, pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			dir, _ := cmd.Flags().GetString("dir")
			if dir == "" {
				dir = cfg.MigrationsDir
			}
			statuses, err := db.NewMigrator(pool, dir).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status, appliedAt := "pending", ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format(time.RFC3339)
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "", "Path to migrations directory (defaults to MIGRATIONS_DIR)")
	cmd.AddCommand(statusCmd)

	return cmd
}

func hospitalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hospital",
		Short: "Manage hospitals",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "onboard <hospital-id>",
		Short: "Create the default department set for a hospital",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hospitalID, err := parseID(args[0], "hospital")
			if err != nil {
				return err
			}
			ctx := context.Background()
			cfg, pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			reg := department.NewRegistry(department.NewRepoPG(pool), directory.NewService(directory.NewRepoPG(pool)),
				db.PoolRunner(pool), newLogger(cfg.Env))
			created, err := reg.OnboardHospital(ctx, hospitalID)
			if err != nil {
				return err
			}
			fmt.Printf("Created %d department(s) for hospital %s.\n", len(created), hospitalID)
			return nil
		},
	})
	return cmd
}

func departmentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "department",
		Short: "Inspect departments",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list <hospital-id>",
		Short: "List a hospital's departments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hospitalID, err := parseID(args[0], "hospital")
			if err != nil {
				return err
			}
			ctx := context.Background()
			cfg, pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			reg := department.NewRegistry(department.NewRepoPG(pool), directory.NewService(directory.NewRepoPG(pool)),
				db.PoolRunner(pool), newLogger(cfg.Env))
			depts, err := reg.List(ctx, hospitalID)
			if err != nil {
				return err
			}
			fmt.Printf("%-16s %-12s %-11s %s\n", "NAME", "CATEGORY", "OPERATIONAL", "OPERATORS")
			for _, d := range depts {
				fmt.Printf("%-16s %-12s %-11t %d\n", d.Name, d.Category, d.Operational, len(d.Operators))
			}
			return nil
		},
	})
	return cmd
}

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token <user-id>",
		Short: "Issue a signed access token for a directory user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := parseID(args[0], "user")
			if err != nil {
				return err
			}
			ttl, _ := cmd.Flags().GetDuration("ttl")

			ctx := context.Background()
			cfg, pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()
			if cfg.AuthSigningKey == "" {
				return fmt.Errorf("AUTH_SIGNING_KEY is required to issue tokens")
			}

			u, err := directory.NewService(directory.NewRepoPG(pool)).GetUser(ctx, userID)
			if err != nil {
				return err
			}
			var dept string
			if u.Department != nil {
				dept = string(*u.Department)
			}
			token, err := auth.IssueToken(auth.JWTConfig{
				Issuer:     cfg.AuthIssuer,
				SigningKey: []byte(cfg.AuthSigningKey),
				TTL:        ttl,
			}, u.ID.String(), u.HospitalID.String(), dept, []string{string(u.Role)})
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().Duration("ttl", 12*time.Hour, "Token lifetime")
	return cmd
}
