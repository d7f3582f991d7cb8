package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"strings"
	"text/tabwriter"

	"github.com/propenster/rustysec/internal/config"
	"github.com/propenster/rustysec/internal/dialect"
	"github.com/propenster/rustysec/internal/loader"
	"github.com/propenster/rustysec/internal/reporter"
	"github.com/propenster/rustysec/internal/rules"
	"github.com/propenster/rustysec/internal/scanner"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configPath string
	logger     *logrus.Logger
)

var rootCmd = &cobra.Command{
	Use:   "rustysec",
	Short: "rustysec - API Specification Security Analyzer",
	Long: `rustysec statically analyzes OpenAPI (and Swagger 2.0) documents and
reports data validation and security hygiene defects, each weighted against a
data validation score (70) and a security score (30).`,
}

var scanCmd = &cobra.Command{
	Use:   "scan [spec file or URL]",
	Short: "Scan an API specification and write a JSON report",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig(cmd)
		source := args[0]

		text, err := newLoader(cfg).Load(cmd.Context(), source)
		if err != nil {
			logger.Errorf("Failed to load specification: %v", err)
			os.Exit(1)
		}

		s := scanner.New(logger, scanner.Options{SkipRules: cfg.SkipRules})
		report, err := s.Scan(text)
		if err != nil {
			logger.Errorf("Scan failed: %v", err)
			os.Exit(1)
		}

		r := reporter.New(logger)
		r.Record(source, report)
		r.LogFindings()

		outputFile := cfg.Output
		if outputFile == "" {
			outputFile = fmt.Sprintf("rustysec-report-%s.json", reportName(source))
		}
		if err := r.GenerateReport(outputFile); err != nil {
			logger.Errorf("Failed to generate report: %v", err)
			os.Exit(1)
		}

		logger.Infof("Scan completed. Report saved to: %s", outputFile)
	},
}

var detectCmd = &cobra.Command{
	Use:   "detect [spec file or URL]",
	Short: "Print the dialect of an API specification",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig(cmd)

		text, err := newLoader(cfg).Load(cmd.Context(), args[0])
		if err != nil {
			logger.Errorf("Failed to load specification: %v", err)
			os.Exit(1)
		}

		d, flavor := dialect.DetectFlavor(text)
		if flavor != dialect.FlavorNone {
			fmt.Printf("%s (%s)\n", d, flavor)
		} else {
			fmt.Println(d)
		}
		if d == dialect.Unknown {
			os.Exit(1)
		}
	},
}

var discoverCmd = &cobra.Command{
	Use:   "discover [base URL]",
	Short: "Probe a host for published API specifications",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig(cmd)

		result, err := newLoader(cfg).Discover(cmd.Context(), args[0])
		if err != nil {
			logger.Errorf("Discovery failed: %v", err)
			os.Exit(1)
		}

		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(result); err != nil {
			logger.Errorf("Failed to print discovery result: %v", err)
			os.Exit(1)
		}
	},
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the rule battery",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSEVERITY\tWEIGHT\tSCORE\tTITLE")
		for _, r := range rules.Defaults() {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", r.ID, r.Weight, int(r.Weight), r.Counter, r.Title)
		}
		_ = w.Flush()
	},
}

func init() {
	// Setup logging
	logger = logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	// Add global flags
	rootCmd.PersistentFlags().BoolP("debug", "d", false,
		"Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"Config file (default: ./"+config.DefaultConfigFile+" when present)")
	rootCmd.PersistentFlags().String("log-format", "text",
		"Log format (text, json)")

	// Add command flags
	for _, cmd := range []*cobra.Command{scanCmd, detectCmd, discoverCmd} {
		cmd.Flags().Duration("timeout", 0,
			"HTTP timeout when loading from a URL (default 10s)")
		cmd.Flags().Bool("insecure", false,
			"Skip TLS certificate verification")
	}
	for _, cmd := range []*cobra.Command{scanCmd, detectCmd} {
		cmd.Flags().Int64("max-bytes", 0,
			"Maximum specification size in bytes (default 10 MiB)")
	}
	scanCmd.Flags().StringP("output", "o", "",
		"Output file for the report (default: rustysec-report-<spec>.json)")
	scanCmd.Flags().StringSliceP("skip", "s", []string{},
		"Skip rules by ID (e.g. R5,R12)")

	// Add commands
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(rulesCmd)
}

// mustLoadConfig resolves settings for cmd and applies the logging ones
func mustLoadConfig(cmd *cobra.Command) *config.Config {
	cfg, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		logger.Errorf("Invalid configuration: %v", err)
		os.Exit(1)
	}

	if cfg.Debug {
		logger.SetLevel(logrus.DebugLevel)
	}
	if cfg.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return cfg
}

func newLoader(cfg *config.Config) *loader.Loader {
	return loader.New(logger, loader.Options{
		Timeout:  cfg.HTTPTimeout,
		MaxBytes: cfg.MaxInputBytes,
		Insecure: cfg.InsecureTLS,
	})
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// reportName derives a file-name friendly label from a path or URL
func reportName(source string) string {
	name := filepath.Base(strings.TrimRight(source, "/"))
	name = unsafeName.ReplaceAllString(name, "_")
	if name == "" || name == "." {
		return "spec"
	}
	return name
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
