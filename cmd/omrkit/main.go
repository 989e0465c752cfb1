package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/omrkit/omrkit/internal/evaluator"
	"github.com/omrkit/omrkit/internal/handler"
	"github.com/omrkit/omrkit/internal/ingest"
	"github.com/omrkit/omrkit/internal/model"
	"github.com/omrkit/omrkit/internal/recognize"
	"github.com/omrkit/omrkit/internal/report"
	"github.com/omrkit/omrkit/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "omrkit",
		Short: "OMR answer-sheet evaluation service",
	}

	serve := serveCmd()
	root.AddCommand(serve, importKeyCmd(), scoreCmd(), reportCmd(), exportCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `omrkit --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP evaluation server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "omrkit.db", "SQLite database path")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func importKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import-key",
		Short: "Import and validate an answer key from a CSV file",
		RunE:  runImportKey,
	}
	f := cmd.Flags()
	f.String("db", "omrkit.db", "SQLite database path")
	f.StringP("file", "f", "", "Answer key CSV file (question,answer rows)")
	f.String("exam-name", "", "Exam name (required)")
	f.String("set-version", "A", "Question set version")
	f.IntP("total-questions", "n", 0, "Number of questions (0 = infer from file)")
	f.StringSliceP("subject", "s", nil, `Subject range, e.g. "Physics=1-25" (repeatable)`)
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")

	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("exam-name")

	return cmd
}

func scoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score a scanned sheet against a stored answer key",
		RunE:  runScore,
	}
	f := cmd.Flags()
	f.String("db", "omrkit.db", "SQLite database path")
	f.StringP("key", "k", "", "Answer key ID (required)")
	f.String("scan", "", "Detection pipeline output JSON for the sheet")
	f.String("image", "", "Sheet image to run through the detection pipeline")
	f.String("pipeline", "", "Detection pipeline command (required with --image)")
	f.String("student", "", "Student name (required)")
	f.String("roll", "", "Roll number (required)")
	f.String("date", "", "Exam date in YYYY-MM-DD format")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")

	_ = cmd.MarkFlagRequired("key")
	_ = cmd.MarkFlagRequired("student")
	_ = cmd.MarkFlagRequired("roll")

	return cmd
}

func reportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the per-question comparison for an evaluation",
		RunE:  runReport,
	}
	f := cmd.Flags()
	f.String("db", "omrkit.db", "SQLite database path")
	f.StringP("evaluation", "e", "", "Evaluation ID (required)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")

	_ = cmd.MarkFlagRequired("evaluation")

	return cmd
}

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export results for an answer key as JSON",
		RunE:  runExport,
	}
	f := cmd.Flags()
	f.String("db", "omrkit.db", "SQLite database path")
	f.StringP("key", "k", "", "Answer key ID (required)")
	f.StringP("output", "o", "-", "Output file path (- for stdout)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")

	_ = cmd.MarkFlagRequired("key")

	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("OMRKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("omrkit")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/omrkit")
	v.AddConfigPath("/etc/omrkit")
	v.AddConfigPath("/data")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	h := handler.New(db)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server", "addr", addr, "db", v.GetString("db"))
	return http.ListenAndServe(addr, r)
}

func runImportKey(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	key, err := ingest.LoadKeyFile(
		v.GetString("file"),
		v.GetString("exam-name"),
		v.GetString("set-version"),
		v.GetInt("total-questions"),
		v.GetStringSlice("subject"),
	)
	if err != nil {
		return fmt.Errorf("import key: %w", err)
	}

	if err := db.PutAnswerKey(key); err != nil {
		return fmt.Errorf("store key: %w", err)
	}

	slog.Info("answer key imported",
		"key_id", key.ID,
		"exam", key.ExamName,
		"questions", key.TotalQuestions,
		"subjects", len(key.Subjects),
	)
	color.Green("Imported %q (%d questions)", key.ExamName, key.TotalQuestions)
	fmt.Println(key.ID)
	return nil
}

func runScore(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	detected, err := readDetectedAnswers(v)
	if err != nil {
		return err
	}

	ev, err := evaluator.New(db).Evaluate(evaluator.Submission{
		StudentName:     v.GetString("student"),
		RollNumber:      v.GetString("roll"),
		ExamDate:        v.GetString("date"),
		AnswerKeyID:     v.GetString("key"),
		DetectedAnswers: detected,
	})
	if err != nil {
		if ev != nil {
			color.Red("Evaluation %s failed: %v", ev.ID, err)
		}
		return err
	}

	key, err := db.GetAnswerKey(ev.AnswerKeyID)
	if err != nil || key == nil {
		return fmt.Errorf("get answer key %s: %w", ev.AnswerKeyID, err)
	}

	color.Green("Scored %s: %d/%d", ev.StudentName, ev.Result.TotalScore, key.TotalQuestions)
	for _, r := range key.Subjects {
		fmt.Printf("  %s: %d/%d\n", r.Subject, ev.Result.SubjectScores[r.Subject], r.To-r.From+1)
	}
	fmt.Println(ev.ID)
	return nil
}

// readDetectedAnswers takes either a ready scan report (--scan) or a sheet
// image to push through the external detection pipeline (--image).
func readDetectedAnswers(v *viper.Viper) (model.DetectedAnswerSet, error) {
	scanPath := v.GetString("scan")
	imagePath := v.GetString("image")

	switch {
	case scanPath != "" && imagePath != "":
		return nil, fmt.Errorf("--scan and --image are mutually exclusive")
	case scanPath != "":
		detected, res, err := recognize.ReadScanFile(scanPath)
		if err != nil {
			return nil, fmt.Errorf("read scan %s: %w", scanPath, err)
		}
		slog.Info("loaded scan report",
			"path", scanPath,
			"total_detected", res.TotalDetected,
			"detection_rate", res.DetectionRate,
		)
		return detected, nil
	case imagePath != "":
		command := v.GetString("pipeline")
		if command == "" {
			return nil, fmt.Errorf("--pipeline is required with --image")
		}
		parts := strings.Fields(command)
		pipeline := &recognize.Pipeline{Command: parts[0], Args: parts[1:]}
		return pipeline.Detect(context.Background(), imagePath)
	default:
		return nil, fmt.Errorf("one of --scan or --image is required")
	}
}

func runReport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	ev, err := db.GetEvaluation(v.GetString("evaluation"))
	if err != nil {
		return fmt.Errorf("get evaluation: %w", err)
	}
	if ev == nil {
		return fmt.Errorf("evaluation %s not found", v.GetString("evaluation"))
	}

	key, err := db.GetAnswerKey(ev.AnswerKeyID)
	if err != nil {
		return fmt.Errorf("get answer key: %w", err)
	}
	if key == nil {
		return fmt.Errorf("answer key %s not found", ev.AnswerKeyID)
	}

	return report.WriteComparison(os.Stdout, ev, key)
}

func runExport(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	export, err := db.ExportForKey(v.GetString("key"))
	if err != nil {
		return fmt.Errorf("export results: %w", err)
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	outPath := v.GetString("output")
	var w io.Writer
	if outPath == "" || outPath == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	// Ensure trailing newline.
	_, _ = fmt.Fprintln(w)

	return nil
}
