package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gobrittle/adapters/excel"
	"gobrittle/app"
	"gobrittle/domain/brittleness"
	"gobrittle/domain/core"
	"gobrittle/domain/series"
	"gobrittle/internal"
	"gobrittle/internal/config"
	"gobrittle/internal/testkit"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gobrittle-dev",
		Short: "gobrittle development tools",
	}

	rootCmd.AddCommand(
		newSeedCmd(),
		newSmokeTestCmd(),
		newDeterminismTestCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// scenario is one synthetic recording with its expected outcome
type scenario struct {
	name    string
	domain  series.Domain
	samples func() []series.RawSample
	check   func(*brittleness.Profile) error
}

func scenarios() []scenario {
	return []scenario{
		{"flat_glucose", series.DomainGlucose, func() []series.RawSample { return testkit.FlatGlucose(2) }, func(p *brittleness.Profile) error {
			if len(p.Segments) != 1 || p.Classification.Level != brittleness.LevelI {
				return fmt.Errorf("expected one level I segment, got %d segments at level %s", len(p.Segments), p.Classification.Code)
			}
			return nil
		}},
		{"shifted_glucose", series.DomainGlucose, func() []series.RawSample { return testkit.ShiftedGlucose(4, 3) }, func(p *brittleness.Profile) error {
			if len(p.Boundaries) == 0 {
				return fmt.Errorf("expected a boundary near the shift")
			}
			return nil
		}},
		{"brittle_glucose", series.DomainGlucose, func() []series.RawSample { return testkit.BrittleGlucose(4, 5) }, func(p *brittleness.Profile) error {
			if p.Classification.Level < brittleness.LevelIII {
				return fmt.Errorf("expected level III or worse, got %s", p.Classification.Code)
			}
			return nil
		}},
		{"stable_ecg", series.DomainECG, func() []series.RawSample { return testkit.StableECG(120, 2) }, func(p *brittleness.Profile) error {
			if p.Classification.Level != brittleness.LevelI {
				return fmt.Errorf("expected level I, got %s", p.Classification.Code)
			}
			return nil
		}},
		{"dipping_bp", series.DomainBloodPressure, func() []series.RawSample { return testkit.DippingBloodPressure(4) }, nil},
	}
}

func newSeedCmd() *cobra.Command {
	var dir string
	var format string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write the synthetic scenario recordings to disk",
		RunE: func(cmd *cobra.Command, args []string) error {
			return generateSeedData(dir, format)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "testdata", "Output directory")
	cmd.Flags().StringVar(&format, "format", "xlsx", "File format (csv or xlsx)")
	return cmd
}

func newSmokeTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "smoke",
		Short: "Run the synthetic scenarios end to end",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSmokeTests(cmd.Context())
		},
	}
}

func newDeterminismTestCmd() *cobra.Command {
	var domainName string

	cmd := &cobra.Command{
		Use:   "determinism [recording]",
		Short: "Check that a recording yields the same fingerprint for any worker count",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			domain, err := series.ParseDomain(domainName)
			if err != nil {
				return err
			}
			return testDeterminism(cmd.Context(), domain, args[0])
		},
	}
	cmd.Flags().StringVar(&domainName, "domain", "glucose", "Sampling domain")
	return cmd
}

func generateSeedData(dir, format string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, sc := range scenarios() {
		profile, _ := config.ProfileFor(sc.domain)
		path := filepath.Join(dir, sc.name+"."+format)
		if err := excel.WriteRecording(path, excel.DefaultReaderConfig(profile), sc.samples()); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		fmt.Printf("Wrote %s\n", path)
	}
	return nil
}

func runSmokeTests(ctx context.Context) error {
	fmt.Println("Running smoke tests...")
	svc := app.NewBrittlenessService(nil, internal.NewLogger(internal.LogLevelWarn))

	passed := 0
	all := scenarios()
	for _, sc := range all {
		fmt.Printf("  Running %s...", sc.name)
		p, err := svc.Analyze(ctx, app.AnalysisRequest{
			SubjectID: core.SubjectID(sc.name),
			Samples:   sc.samples(),
			Config:    config.DefaultAnalysisConfig(sc.domain),
		})
		if err == nil && sc.check != nil {
			err = sc.check(p)
		}
		if err != nil {
			fmt.Printf(" FAILED: %v\n", err)
			continue
		}
		fmt.Printf(" PASSED (score %.1f, level %s, %d segments)\n", p.OverallScore, p.Classification.Code, len(p.Segments))
		passed++
	}

	fmt.Printf("\nSmoke tests: %d/%d passed\n", passed, len(all))
	if passed < len(all) {
		return fmt.Errorf("some smoke tests failed")
	}
	return nil
}

func testDeterminism(ctx context.Context, domain series.Domain, path string) error {
	profile, _ := config.ProfileFor(domain)
	samples, err := excel.NewRecordingReader(excel.DefaultReaderConfig(profile)).ReadRecording(ctx, path)
	if err != nil {
		return err
	}

	svc := app.NewBrittlenessService(nil, internal.NewLogger(internal.LogLevelWarn))
	var reference core.Hash
	for _, workers := range []int{1, 2, 4, 8} {
		cfg := config.DefaultAnalysisConfig(domain)
		cfg.Workers = workers
		p, err := svc.Analyze(ctx, app.AnalysisRequest{SubjectID: "determinism", Samples: samples, Config: cfg})
		if err != nil {
			return err
		}
		fmt.Printf("  workers=%d fingerprint=%s\n", workers, p.Fingerprint)
		if reference.IsEmpty() {
			reference = p.Fingerprint
			continue
		}
		if !reference.Equals(p.Fingerprint) {
			return fmt.Errorf("fingerprint mismatch with %d workers", workers)
		}
	}
	fmt.Println("✅ Determinism verified")
	return nil
}
