package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nyashahama/vitalwatch-backend/internal/ai"
	"github.com/nyashahama/vitalwatch-backend/internal/assessment"
	"github.com/nyashahama/vitalwatch-backend/internal/config"
	"github.com/nyashahama/vitalwatch-backend/internal/patient"
	"github.com/nyashahama/vitalwatch-backend/internal/rpc"
	"github.com/nyashahama/vitalwatch-backend/internal/store"
)

// assessFunc runs one assessment, locally or against a server.
type assessFunc func(ctx context.Context, req assessment.HealthProfileRequest) (assessment.Result, error)

// deps are the collaborators the commands reach for. Tests replace them.
type deps struct {
	// local builds an assessor from the configured AI provider.
	local func() (assessFunc, error)
	// remote connects to a RiskService at target. The returned func closes
	// the connection.
	remote func(target string) (assessFunc, func() error, error)
	// openDB opens the registry database from DATABASE_URL.
	openDB func(ctx context.Context) (*sql.DB, error)
}

func defaultDeps() deps {
	return deps{
		local: func() (assessFunc, error) {
			cfg, err := config.Load()
			if err != nil {
				return nil, fmt.Errorf("config: %w", err)
			}
			gen, err := ai.New(cfg.AI())
			if err != nil {
				return nil, err
			}
			return assessment.NewService(gen).Assess, nil
		},
		remote: func(target string) (assessFunc, func() error, error) {
			c, err := rpc.Dial(target)
			if err != nil {
				return nil, nil, err
			}
			return c.AssessRisk, c.Close, nil
		},
		openDB: func(ctx context.Context) (*sql.DB, error) {
			dsn, err := config.LoadDatabaseURL()
			if err != nil {
				return nil, err
			}
			return store.Open(ctx, dsn)
		},
	}
}

// newRootCmd wires the cobra root command.
func newRootCmd(d deps) *cobra.Command {
	root := &cobra.Command{
		Use:           "riskctl",
		Short:         "VitalWatch operator tool",
		Long:          "riskctl runs health risk assessments and maintains the patient registry database.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newAssessCommand(d))
	root.AddCommand(newMigrateCommand(d))
	root.AddCommand(newSeedCommand(d))
	return root
}

// ─── assess ──────────────────────────────────────────────────────────────────

func newAssessCommand(d deps) *cobra.Command {
	var (
		req     assessment.HealthProfileRequest
		file    string
		remote  string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "assess",
		Short: "Assess one health profile and print the JSON result",
		Example: `  riskctl assess --age 45 --gender male --sugar 140 --bp-systolic 130 \
    --bp-diastolic 85 --bmi 28.5 --condition diabetes
  riskctl assess --file profile.yaml --remote localhost:8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			profile := assessment.HealthProfileRequest{}
			if file != "" {
				var err error
				if profile, err = readProfile(file); err != nil {
					return err
				}
			}
			// Flags given explicitly override the file.
			mergeFlags(cmd, &profile, req)

			assess, closeFn, err := pickAssessor(d, remote)
			if err != nil {
				return err
			}
			defer closeFn()

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			res, err := assess(ctx, profile)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}

	f := cmd.Flags()
	f.IntVar(&req.Age, "age", 0, "Age in years (1-120)")
	f.StringVar(&req.Gender, "gender", "", "Male, Female or Other")
	f.Float64Var(&req.SugarLevel, "sugar", 0, "Fasting blood sugar, mg/dL")
	f.IntVar(&req.BPSystolic, "bp-systolic", 0, "Systolic blood pressure, mmHg")
	f.IntVar(&req.BPDiastolic, "bp-diastolic", 0, "Diastolic blood pressure, mmHg")
	f.Float64Var(&req.BMI, "bmi", 0, "Body mass index, kg/m²")
	f.StringVar(&req.Condition, "condition", "", "diabetes, hypertension or heart disease")
	f.StringVarP(&file, "file", "f", "", "Read the profile from a YAML file")
	f.StringVar(&remote, "remote", "", "Assess via the gRPC API at host:port instead of calling the provider directly")
	f.DurationVar(&timeout, "timeout", 90*time.Second, "Bound the whole call")

	return cmd
}

func pickAssessor(d deps, remote string) (assessFunc, func() error, error) {
	if remote != "" {
		return d.remote(remote)
	}
	assess, err := d.local()
	if err != nil {
		return nil, nil, err
	}
	return assess, func() error { return nil }, nil
}

// readProfile decodes a YAML profile. Unknown keys are rejected.
func readProfile(path string) (assessment.HealthProfileRequest, error) {
	var profile assessment.HealthProfileRequest

	f, err := os.Open(path)
	if err != nil {
		return profile, fmt.Errorf("read profile: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&profile); err != nil {
		return profile, fmt.Errorf("parse profile %s: %w", path, err)
	}
	return profile, nil
}

func mergeFlags(cmd *cobra.Command, dst *assessment.HealthProfileRequest, flags assessment.HealthProfileRequest) {
	changed := cmd.Flags().Changed
	if changed("age") {
		dst.Age = flags.Age
	}
	if changed("gender") {
		dst.Gender = flags.Gender
	}
	if changed("sugar") {
		dst.SugarLevel = flags.SugarLevel
	}
	if changed("bp-systolic") {
		dst.BPSystolic = flags.BPSystolic
	}
	if changed("bp-diastolic") {
		dst.BPDiastolic = flags.BPDiastolic
	}
	if changed("bmi") {
		dst.BMI = flags.BMI
	}
	if changed("condition") {
		dst.Condition = flags.Condition
	}
}

// ─── migrate / seed ──────────────────────────────────────────────────────────

func newMigrateCommand(d deps) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations to DATABASE_URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := d.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := store.Migrate(cmd.Context(), pool); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}

func newSeedCommand(d deps) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the sample patients into an empty registry",
		Long:  "seed inserts the sample patient dataset when the patients table is empty. Run migrate first.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := d.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()

			n, err := store.NewPostgres(pool).Seed(cmd.Context(), patient.MockPatients())
			if err != nil {
				return err
			}
			if n == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "registry already has patients; nothing seeded")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d patients\n", n)
			return nil
		},
	}
}
