package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"gobrittle/adapters/excel"
	"gobrittle/adapters/postgres"
	"gobrittle/app"
	"gobrittle/domain/brittleness"
	"gobrittle/domain/core"
	"gobrittle/domain/series"
	"gobrittle/internal"
	"gobrittle/internal/config"
	"gobrittle/internal/migration"
	"gobrittle/ports"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "gobrittle",
		Short: "Brittleness segmentation and classification for physiological recordings",
	}

	rootCmd.AddCommand(
		newAnalyzeCmd(),
		newDomainsCmd(),
		newProfilesCmd(),
		newMigrateCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newAnalyzeCmd() *cobra.Command {
	var (
		domainName  string
		subject     string
		minSegments int
		maxSegments int
		workers     int
		asJSON      bool
		store       bool
	)

	cmd := &cobra.Command{
		Use:   "analyze [recording]",
		Short: "Segment and classify a CSV or XLSX recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadAnalysisConfig()
			if err != nil {
				return err
			}
			if domainName != "" {
				domain, err := series.ParseDomain(domainName)
				if err != nil {
					return err
				}
				cfg = cfg.ForDomain(domain)
			}
			profile, _ := config.ProfileFor(cfg.Domain)

			if minSegments > 0 {
				cfg.MinSegments = minSegments
			}
			if maxSegments > 0 {
				cfg.MaxSegments = maxSegments
			}
			if workers > 0 {
				cfg.Workers = workers
			}

			if subject == "" {
				subject = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			}
			subjectID, err := core.ParseSubjectID(subject)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			var source ports.RecordingSource = excel.NewRecordingReader(excel.DefaultReaderConfig(profile))
			samples, err := source.ReadRecording(ctx, args[0])
			if err != nil {
				return err
			}

			logger := internal.NewDefaultLogger()
			req := app.AnalysisRequest{SubjectID: subjectID, Samples: samples, Config: cfg}

			if !store {
				result, err := app.NewBrittlenessService(nil, logger).Analyze(ctx, req)
				if err != nil {
					return err
				}
				return render(result, "", asJSON)
			}

			db, err := openDatabase(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			stored, err := app.NewBrittlenessService(postgres.NewProfileRepository(db), logger).AnalyzeAndStore(ctx, req)
			if err != nil {
				return err
			}
			return render(stored.Profile, stored.RunID, asJSON)
		},
	}

	cmd.Flags().StringVar(&domainName, "domain", "", "Sampling domain (glucose, ecg, blood_pressure); defaults to BRITTLE_DOMAIN or glucose")
	cmd.Flags().StringVar(&subject, "subject", "", "Subject identifier (defaults to the file name)")
	cmd.Flags().IntVar(&minSegments, "min-segments", 0, "Minimum number of segments")
	cmd.Flags().IntVar(&maxSegments, "max-segments", 0, "Maximum number of segments")
	cmd.Flags().IntVar(&workers, "workers", 0, "Feature extraction workers (0 = GOMAXPROCS)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full profile as JSON")
	cmd.Flags().BoolVar(&store, "store", false, "Persist the profile to DATABASE_URL")

	return cmd
}

func newDomainsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "domains",
		Short: "List supported sampling domains and their defaults",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "DOMAIN\tUNIT\tCHANNELS\tINTERVAL\tMIN SPAN\tTARGET")
			for _, d := range series.Domains() {
				p, _ := config.ProfileFor(d)
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%.1f-%.1f\n",
					p.Domain, p.Unit, strings.Join(p.Channels, ","), p.NominalInterval, p.MinSpan, p.TargetLow, p.TargetHigh)
			}
			return w.Flush()
		},
	}
}

func newProfilesCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "profiles [subject-id]",
		Short: "List stored profiles of a subject",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			subjectID, err := core.ParseSubjectID(args[0])
			if err != nil {
				return err
			}
			db, err := openDatabase(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			summaries, err := postgres.NewProfileRepository(db).ListProfilesBySubject(cmd.Context(), subjectID, limit)
			if err != nil {
				return err
			}
			printSummaries(summaries)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of profiles")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the profile tables in DATABASE_URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDatabase(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()
			fmt.Printf("Schema %s is up to date\n", migration.NewRunner().Version())
			return nil
		},
	}
}

// openDatabase connects to DATABASE_URL and applies the schema
func openDatabase(ctx context.Context) (*sqlx.DB, error) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sqlx.ConnectContext(ctx, "postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := migration.NewRunner().Run(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	return db, nil
}

func render(p *brittleness.Profile, runID core.RunID, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if runID != "" {
			return enc.Encode(app.StoredAnalysis{RunID: runID, Profile: p})
		}
		return enc.Encode(p)
	}

	if runID != "" {
		fmt.Printf("Run:          %s\n", runID)
	}
	fmt.Printf("Subject:      %s (%s)\n", p.SeriesID, p.Domain)
	fmt.Printf("Score:        %.1f\n", p.OverallScore)
	fmt.Printf("Level:        %s %s (%s)\n", p.Classification.Code, p.Classification.Label, p.Classification.Pattern)
	fmt.Printf("Confidence:   %.2f\n", p.Confidence)
	fmt.Printf("Fingerprint:  %s\n\n", p.Fingerprint)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tSTART\tEND\tPOINTS\tSCORE\tIMPORTANCE\tTREND")
	for _, s := range p.Segments {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%.1f\t%.2f\t%s\n",
			s.Index, s.StartTime.Format(time.RFC3339), s.EndTime.Format(time.RFC3339), s.Points, s.Score, s.Importance, s.Trend)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	for _, warning := range p.Warnings {
		fmt.Printf("warning: %s\n", warning)
	}
	if len(p.Recommendations) > 0 {
		fmt.Println("\nRecommendations:")
		for _, r := range p.Recommendations {
			fmt.Printf("  [%s/%s] %s\n", r.Priority, r.Category, r.Text)
		}
	}
	return nil
}

func printSummaries(summaries []ports.ProfileSummary) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tCREATED\tDOMAIN\tSCORE\tLEVEL\tCONFIDENCE\tSEGMENTS")
	for _, s := range summaries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.1f\t%s %s\t%.2f\t%d\n",
			s.RunID, s.CreatedAt.Format(time.RFC3339), s.Domain, s.OverallScore, s.Code, s.Label, s.Confidence, s.Segments)
	}
	w.Flush()
}
