package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/auxct/auxmailer/internal/archive"
	"github.com/auxct/auxmailer/internal/config"
	"github.com/auxct/auxmailer/internal/core"
	"github.com/auxct/auxmailer/internal/factory"
	"github.com/auxct/auxmailer/internal/logging"
	"github.com/auxct/auxmailer/internal/roster"
)

var (
	// Input flags
	emailCSV   = flag.String("email-csv", "./MemberEmail.csv", "Member email roster CSV")
	archiveDir = flag.String("archive-dir", "", "Directory of archived HTML copies (overrides config)")
	startTime  = flag.Int64("start-time", 0, "Only consider failures at or after this epoch timestamp")

	// Mode flags
	listOnly = flag.Bool("list-only", false, "Report correlation results without resending")
	dryRun   = flag.Bool("dry-run", false, "Correlate and log what would be resent")

	// Runtime flags
	configFile = flag.String("config", "", "Path to config file")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	jsonLog    = flag.Bool("json-log", false, "Output logs in JSON format")
)

func main() {
	flag.Parse()

	logger, err := logging.InitConsoleLogger(*verbose, *jsonLog)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := loadConfig()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	loader := roster.NewLoader(logger)
	rosterByID, err := loader.LoadRoster(*emailCSV)
	if err != nil {
		logger.Fatal("Failed to load email roster", zap.Error(err))
	}

	store, err := archive.NewStore(cfg.GetString("archive.dir"), logger)
	if err != nil {
		logger.Fatal("Failed to open archive", zap.Error(err))
	}

	senderFactory := factory.NewSenderFactory(cfg, logger)
	suppressions, err := senderFactory.CreateSuppressionSource()
	if err != nil {
		logger.Fatal("Failed to create suppression client", zap.Error(err))
	}

	// List-only runs never send, so a relay misconfiguration should not
	// block them.
	var sender core.EmailSender
	if !*listOnly {
		sender, err = senderFactory.CreateRelaySender()
		if err != nil {
			logger.Fatal("Failed to create relay sender", zap.Error(err))
		}
	}

	sendLog, err := factory.NewSendLogFactory(cfg, logger).CreateSendLog()
	if err != nil {
		logger.Fatal("Failed to open send log", zap.Error(err))
	}
	if sendLog != nil {
		defer sendLog.Close()
	}

	var start *int64
	if *startTime > 0 {
		start = startTime
	}

	service := core.NewRetryService(suppressions, sender, store, sendLog, logger,
		cfg.GetEmail().From, cfg.GetString("retry.subject_prefix"))
	result, err := service.Run(context.Background(), rosterByID, core.RetryOptions{
		StartTime: start,
		ListOnly:  *listOnly,
		DryRun:    cfg.GetBool("run.dry_run"),
	})
	if err != nil {
		logger.Fatal("Retry pass failed", zap.Error(err))
	}

	printReport(result, *listOnly, cfg.GetBool("run.dry_run"))
	if len(result.Failed) > 0 {
		os.Exit(1)
	}
}

// loadConfig loads the configuration and overlays flag values on top.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if *configFile != "" {
		cfg, err = config.NewWithFile(*configFile)
	} else {
		cfg, err = config.New()
	}
	if err != nil {
		return nil, err
	}

	v := cfg.GetViper()
	if *dryRun {
		v.Set("run.dry_run", true)
	}
	if *archiveDir != "" {
		v.Set("archive.dir", *archiveDir)
	}
	return cfg, nil
}

func printReport(result *core.RetryResult, listOnly, dryRun bool) {
	report := result.Report

	fmt.Printf("\n=== Correlation ===\n")
	fmt.Printf("Provider failures: %d\n", report.TotalFailures)
	fmt.Printf("Matched to archive: %d\n", report.Matched)
	fmt.Printf("Failures without artifact: %d\n", len(report.UnmatchedFailures))
	for _, email := range report.UnmatchedFailures {
		fmt.Printf("  no artifact: %s\n", email)
	}
	fmt.Printf("Artifacts without failure: %d\n", len(report.UnmatchedArtifacts))
	fmt.Printf("Data gaps: %d\n", len(report.Gaps))
	for _, gap := range report.Gaps {
		fmt.Printf("  gap: %s\n", gap.String())
	}

	if len(result.LocalFailures) > 0 {
		fmt.Printf("\n=== Local send-log failures ===\n")
		for _, rec := range result.LocalFailures {
			fmt.Printf("  %s (%s): %s\n", rec.Email, rec.SentAt.Format("2006-01-02 15:04"), rec.Error)
		}
	}

	if listOnly {
		fmt.Printf("\nList-only mode, nothing was resent.\n")
		return
	}

	fmt.Printf("\n=== Resend ===\n")
	if dryRun {
		fmt.Printf("Mode: dry run (nothing was sent)\n")
	}
	fmt.Printf("Resent: %d\n", len(result.Sent))
	fmt.Printf("Failed: %d\n", len(result.Failed))
	for _, email := range result.Failed {
		fmt.Printf("  failed: %s\n", email)
	}
}
