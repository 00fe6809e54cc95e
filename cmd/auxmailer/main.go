package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/auxct/auxmailer/internal/config"
	"github.com/auxct/auxmailer/internal/core"
	"github.com/auxct/auxmailer/internal/di"
	"github.com/auxct/auxmailer/internal/logging"
	"github.com/auxct/auxmailer/internal/roster"
)

// filterFlags collects repeated --filter Column=Value pairs.
type filterFlags map[string]string

func (f filterFlags) String() string {
	return roster.Describe(f)
}

func (f filterFlags) Set(value string) error {
	col, val, ok := strings.Cut(value, "=")
	if !ok {
		return fmt.Errorf("filter must be Column=Value, got %q", value)
	}
	f[strings.TrimSpace(col)] = strings.TrimSpace(val)
	return nil
}

var (
	// Input flags
	trainingCSV    = flag.String("training-csv", "./CTQueryReport.csv", "Training status export CSV")
	emailCSV       = flag.String("email-csv", "./MemberEmail.csv", "Member email roster CSV")
	coursesCSV     = flag.String("courses-csv", "./Courses.csv", "Course reference table CSV")
	extractionDate = flag.String("extraction-date", "", "Date the training export was taken (M/D/YYYY, defaults to today)")

	// Template flags
	templateName = flag.String("template", "training_reminder.html", "Template file to render")
	templateDir  = flag.String("template-dir", "", "Template directory (overrides config)")
	subject      = flag.String("subject", "AUXCT Training Reminder - {{.first_name_titlecase}} {{.last_name}}", "Subject-line template")

	// Output flags
	archiveDir = flag.String("archive-dir", "", "Directory for archived HTML copies (overrides config)")
	dryRun     = flag.Bool("dry-run", false, "Render and archive without sending")

	// Runtime flags
	configFile = flag.String("config", "", "Path to config file")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	jsonLog    = flag.Bool("json-log", false, "Output logs in JSON format")
)

func main() {
	filters := filterFlags{}
	flag.Var(filters, "filter", "Keep only members matching Column=Value (repeatable)")
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

	today := core.Midnight(time.Now())
	extraction := today
	if *extractionDate != "" {
		extraction, err = core.ParseExtractionDate(*extractionDate)
		if err != nil {
			logger.Fatal("Invalid extraction date", zap.Error(err))
		}
	}

	loader := roster.NewLoader(logger)
	courseDefs, err := loader.LoadCourses(*coursesCSV)
	if err != nil {
		logger.Fatal("Failed to load course table", zap.Error(err))
	}
	courseOrder := make([]string, 0, len(courseDefs))
	for _, def := range courseDefs {
		courseOrder = append(courseOrder, def.Code)
	}

	members, err := loader.LoadMembers(*trainingCSV, *emailCSV, courseOrder)
	if err != nil {
		logger.Fatal("Failed to load members", zap.Error(err))
	}
	if len(filters) > 0 {
		before := len(members)
		members = roster.Filter(members, filters)
		logger.Info("Applied member filter",
			zap.String("criteria", roster.Describe(filters)),
			zap.Int("before", before),
			zap.Int("after", len(members)))
	}

	container, err := di.BuildContainer(cfg)
	if err != nil {
		logger.Fatal("Failed to build dependency container", zap.Error(err))
	}

	var result *core.BatchResult
	err = container.Invoke(func(service *core.MailerService, sendLog core.SendLogRepository) error {
		if sendLog != nil {
			defer sendLog.Close()
		}

		bar := progressbar.Default(int64(len(members)), "sending")
		result, err = service.SendBatch(context.Background(), members, roster.CourseIndex(courseDefs), core.BatchOptions{
			TemplateName:    *templateName,
			SubjectTemplate: *subject,
			ExtractionDate:  extraction,
			Today:           today,
			DryRun:          cfg.GetBool("run.dry_run"),
			Progress: func(done, total int) {
				_ = bar.Set(done)
			},
		})
		return err
	})
	if err != nil {
		logger.Fatal("Batch aborted", zap.Error(err))
	}

	printSummary(result, cfg.GetBool("run.dry_run"))
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
	if *templateDir != "" {
		v.Set("templates.dir", *templateDir)
	}
	if *archiveDir != "" {
		v.Set("archive.dir", *archiveDir)
	}
	return cfg, nil
}

func printSummary(result *core.BatchResult, dryRun bool) {
	fmt.Printf("\n=== Summary ===\n")
	if dryRun {
		fmt.Printf("Mode: dry run (nothing was sent)\n")
	}
	fmt.Printf("Sent: %d\n", len(result.Sent))
	fmt.Printf("Failed: %d\n", len(result.Failed))
	fmt.Printf("Skipped (no email): %d\n", result.Skipped)
	fmt.Printf("Data gaps: %d\n", len(result.Gaps))
	for _, email := range result.Failed {
		fmt.Printf("  failed: %s\n", email)
	}
	for _, gap := range result.Gaps {
		fmt.Printf("  gap: %s\n", gap.String())
	}
}
