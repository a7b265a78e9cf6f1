package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"examscore/internal/app"
	"examscore/internal/db"
	"examscore/internal/exam"

	"github.com/urfave/cli/v3"
)

var Version = "dev"

func main() {
	cmd := &cli.Command{
		Name:    "examscore",
		Usage:   "exam scoring service",
		Version: Version,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return serve(ctx)
		},
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "start the HTTP server",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return serve(ctx)
				},
			},
			{
				Name:  "migrate",
				Usage: "create the SQL schema if it does not exist",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					dbConn, err := db.Open(ctx, app.DBConfig(app.LoadConfig()))
					if err != nil {
						return err
					}
					defer dbConn.Close()
					log.Printf("schema is up to date")
					return nil
				},
			},
			{
				Name:      "import-exam",
				Usage:     "create an exam from an .xlsx workbook",
				ArgsUsage: "<file.xlsx>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "code", Usage: "exam code", Required: true},
					&cli.StringFlag{Name: "name", Usage: "exam name"},
					&cli.StringFlag{Name: "marks", Usage: "total marks", Value: "0"},
					&cli.StringFlag{Name: "duration", Usage: "duration in minutes", Value: "0"},
				},
				Action: importExam,
			},
			{
				Name:      "export-exam",
				Usage:     "write an exam to an .xlsx workbook",
				ArgsUsage: "<code> <out.xlsx>",
				Action:    exportExam,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Printf("examscore: %v", err)
		os.Exit(1)
	}
}

func serve(ctx context.Context) error {
	cfg := app.LoadConfig()

	dbConn, err := db.Open(ctx, app.DBConfig(cfg))
	if err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	defer dbConn.Close()

	store, closeStore, err := app.OpenExamStore(ctx, cfg, dbConn)
	if err != nil {
		return fmt.Errorf("exam store error: %w", err)
	}
	defer func() { _ = closeStore(context.Background()) }()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           app.NewRouter(cfg, dbConn, store),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("examscore listening on %s (db=%s, exams=%s)", cfg.HTTPAddr, cfg.DBDriver, cfg.ExamStore)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Printf("shutting down")
	return srv.Shutdown(shutdownCtx)
}

func openService(ctx context.Context) (*exam.Service, func(), error) {
	cfg := app.LoadConfig()

	var dbConn *sql.DB
	if cfg.ExamStore == app.ExamStoreSQL || cfg.ExamStore == "" {
		var err error
		dbConn, err = db.Open(ctx, app.DBConfig(cfg))
		if err != nil {
			return nil, nil, fmt.Errorf("database error: %w", err)
		}
	}
	store, closeStore, err := app.OpenExamStore(ctx, cfg, dbConn)
	if err != nil {
		if dbConn != nil {
			_ = dbConn.Close()
		}
		return nil, nil, err
	}
	cleanup := func() {
		_ = closeStore(context.Background())
		if dbConn != nil {
			_ = dbConn.Close()
		}
	}
	return exam.NewService(store), cleanup, nil
}

func importExam(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().Get(0)
	if path == "" {
		return errors.New("missing workbook path")
	}
	marks, err := strconv.ParseFloat(strings.TrimSpace(cmd.String("marks")), 64)
	if err != nil {
		return fmt.Errorf("invalid --marks: %w", err)
	}
	duration, err := strconv.Atoi(strings.TrimSpace(cmd.String("duration")))
	if err != nil {
		return fmt.Errorf("invalid --duration: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	svc, cleanup, err := openService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	report, err := svc.ImportExcel(ctx, exam.ImportExcelInput{
		ExamCode:   cmd.String("code"),
		Name:       cmd.String("name"),
		TotalMarks: marks,
		Duration:   duration,
	}, f)
	if err != nil {
		return err
	}
	log.Printf("imported exam %s (id=%s): %d/%d rows", report.Exam.ExamCode, report.Exam.ID, report.ImportedRows, report.TotalRows)
	for _, rowErr := range report.Errors {
		log.Printf("row %d: %s", rowErr.Row, rowErr.Error)
	}
	return nil
}

func exportExam(ctx context.Context, cmd *cli.Command) error {
	code, out := cmd.Args().Get(0), cmd.Args().Get(1)
	if code == "" || out == "" {
		return errors.New("usage: export-exam <code> <out.xlsx>")
	}

	svc, cleanup, err := openService(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	data, err := svc.ExportExcel(ctx, exam.ByCode(code))
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return err
	}
	log.Printf("exported exam %s to %s", code, out)
	return nil
}
