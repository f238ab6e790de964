package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/internal/models"
	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/internal/seed"
	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/internal/service"
	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/migrations"
	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/pkg/config"
	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/pkg/database"
)

type options struct {
	grievancesPath string
	usersPath      string
	rulesPath      string
	limit          int
	now            func() time.Time
}

func newRootCmd() *cobra.Command {
	opts := &options{now: time.Now}

	root := &cobra.Command{
		Use:           "grievancectl",
		Short:         "Offline workflow and analytics tooling for the grievance portal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.grievancesPath, "grievances", "grievances.json", "JSON file holding an array of grievances")
	root.PersistentFlags().StringVar(&opts.usersPath, "users", "users.json", "JSON file holding an array of users")
	root.PersistentFlags().StringVar(&opts.rulesPath, "rules", "", "YAML or JSON rule file (defaults to the built-in rules)")

	root.AddCommand(
		&cobra.Command{
			Use:   "snapshot",
			Short: "Print the analytics snapshot",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				grievances, users, err := opts.loadData()
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), opts.engine().GenerateSnapshot(grievances, users))
			},
		},
		&cobra.Command{
			Use:   "insights",
			Short: "Print insight alerts derived from the snapshot",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				grievances, users, err := opts.loadData()
				if err != nil {
					return err
				}
				engine := opts.engine()
				return writeJSON(cmd.OutOrStdout(), engine.GenerateInsights(engine.GenerateSnapshot(grievances, users)))
			},
		},
		newPredictCmd(opts),
		&cobra.Command{
			Use:   "apply <grievance-id>",
			Short: "Evaluate workflow rules against one grievance without saving",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				grievances, users, err := opts.loadData()
				if err != nil {
					return err
				}
				grievance, err := findGrievance(grievances, args[0])
				if err != nil {
					return err
				}
				rules, err := opts.loadRules()
				if err != nil {
					return err
				}
				engine := service.NewWorkflowEngine(service.WithEngineClock(opts.now))
				return writeJSON(cmd.OutOrStdout(), engine.ApplyRules(rules, grievance, users))
			},
		},
		&cobra.Command{
			Use:   "rules",
			Short: "Print the rule set",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				rules, err := opts.loadRules()
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), rules)
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply database migrations using the server configuration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return migrate(cmd.Context(), cmd.OutOrStdout())
			},
		},
	)
	return root
}

func newPredictCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predict [grievance-id]",
		Short: "Predict resolution time for one grievance or the first open ones in the file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			grievances, _, err := opts.loadData()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				grievance, err := findGrievance(grievances, args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), service.PredictResolutionTime(grievance, grievances))
			}
			return writeJSON(cmd.OutOrStdout(), service.PredictActive(grievances, opts.limit))
		},
	}
	cmd.Flags().IntVar(&opts.limit, "limit", service.DefaultPredictionLimit, "maximum open grievances to predict")
	return cmd
}

func (o *options) engine() *service.AnalyticsEngine {
	return service.NewAnalyticsEngine(service.WithAnalyticsClock(o.now))
}

func (o *options) loadData() ([]models.Grievance, []models.User, error) {
	var grievances []models.Grievance
	if err := readJSONFile(o.grievancesPath, &grievances); err != nil {
		return nil, nil, err
	}
	var users []models.User
	if err := readJSONFile(o.usersPath, &users); err != nil {
		return nil, nil, err
	}
	return grievances, users, nil
}

func (o *options) loadRules() ([]models.WorkflowRule, error) {
	if o.rulesPath == "" {
		return seed.DefaultRules()
	}
	f, err := os.Open(o.rulesPath)
	if err != nil {
		return nil, fmt.Errorf("open rules: %w", err)
	}
	defer f.Close()
	return seed.ReadRules(f)
}

func findGrievance(grievances []models.Grievance, id string) (models.Grievance, error) {
	for _, g := range grievances {
		if g.ID == id {
			return g, nil
		}
	}
	return models.Grievance{}, fmt.Errorf("grievance %q not found", id)
}

func readJSONFile(path string, dest interface{}) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func migrate(ctx context.Context, out io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(db.DB, migrations.FS); err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, "migrations applied")
	return err
}
