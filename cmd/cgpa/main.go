// Command cgpa computes SGPA and CGPA from transcript files on disk and writes
// the certificate, the JSON summary or a plain-text table.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"github.com/joho/godotenv"

	"github.com/shagyeeen/cgpa-shyne/config"
	"github.com/shagyeeen/cgpa-shyne/internal/application/command"
	"github.com/shagyeeen/cgpa-shyne/internal/domain/transcript"
	"github.com/shagyeeen/cgpa-shyne/internal/infrastructure/document"
	"github.com/shagyeeen/cgpa-shyne/internal/infrastructure/report"
	"github.com/shagyeeen/cgpa-shyne/pkg/logger"
)

const version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the CLI and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	// ── Flags ─────────────────────────────────────────────────────────────
	fs := flag.NewFlagSet("cgpa", flag.ContinueOnError)
	fs.SetOutput(stderr)

	format := fs.String("format", "pretty", "Output format: pdf, json, pretty")
	outFile := fs.String("out", "", "Write output to file instead of stdout")
	title := fs.String("title", "", "Certificate title (default from REPORT_TITLE)")
	verbose := fs.Bool("v", false, "Log extraction details to stderr")
	showVersion := fs.Bool("version", false, "Print version and exit")

	fs.Usage = func() {
		fmt.Fprintf(stderr, `cgpa: SGPA/CGPA from semester transcripts

Usage:
  cgpa sem1.pdf sem2.pdf sem3.txt
  cgpa -format pdf -out CGPA_Certificate.pdf transcripts/*.pdf
  cgpa -format json sem*.pdf

Flags:
`)
		fs.PrintDefaults()
		fmt.Fprintf(stderr, `
Formats:
  pretty    Plain-text table per semester (default)
  json      Summary as JSON
  pdf       Printable certificate
`)
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if *showVersion {
		fmt.Fprintf(stdout, "cgpa %s\n", version)
		return 0
	}

	if fs.NArg() == 0 {
		fmt.Fprintln(stderr, "Error: at least one transcript file is required")
		fs.Usage()
		return 2
	}

	if *format == "pdf" && *outFile == "" {
		fmt.Fprintln(stderr, "Error: -out is required for -format pdf")
		return 2
	}

	// ── Config ────────────────────────────────────────────────────────────
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if *title != "" {
		cfg.Report.Title = *title
	}

	level := logger.LevelWarn
	if *verbose {
		level = logger.LevelDebug
	}
	log := logger.New(logger.Options{Output: stderr, Level: level})

	// ── Read documents ────────────────────────────────────────────────────
	docs := make([]command.Document, 0, fs.NArg())
	for _, path := range fs.Args() {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		docs = append(docs, command.Document{Name: filepath.Base(path), Data: data})
	}

	// ── Generate ──────────────────────────────────────────────────────────
	renderFormat := *format
	if renderFormat == "pretty" {
		renderFormat = string(report.FormatJSON)
	}

	handler := command.NewGenerateCertificateHandler(
		document.NewExtractor(log),
		transcript.NewEngine(),
		report.NewRegistry(cfg.Report.Title),
		nil,
		command.GenerateCertificateHandlerConfig{
			MaxDocuments:    max(len(docs), cfg.Extraction.MaxDocuments),
			Concurrency:     cfg.Extraction.Concurrency,
			DefaultFileName: cfg.Report.FileName,
		},
		log,
	)

	result, err := handler.Handle(ctx, command.GenerateCertificateCommand{
		Documents: docs,
		Format:    renderFormat,
	})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	for _, s := range result.Skipped {
		fmt.Fprintf(stderr, "skipped document %d (%s): %s\n", s.Position, s.Name, s.Reason)
	}

	// ── Output ────────────────────────────────────────────────────────────
	var w io.Writer = stdout
	if *outFile != "" {
		f, err := os.Create(*outFile)
		if err != nil {
			fmt.Fprintf(stderr, "Error: failed to create output file: %v\n", err)
			return 1
		}
		defer f.Close()
		w = f
	}

	if *format == "pretty" {
		err = writePretty(w, result.Summary)
	} else {
		_, err = w.Write(result.Artifact)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to write output: %v\n", err)
		return 1
	}

	return 0
}

// writePretty prints one table per term followed by the CGPA.
func writePretty(w io.Writer, s transcript.Summary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "Name:\t%s\n", s.Identity.Name)
	fmt.Fprintf(tw, "Register No:\t%s\n", s.Identity.RegisterNumber)

	for _, term := range s.Terms {
		fmt.Fprintf(tw, "\nSemester %d\tSGPA: %.2f\t(%d credits)\n", term.TermNumber, term.AveragePoints, term.TotalCredits)
		fmt.Fprintln(tw, "Code\tSubject\tCredit\tGrade")
		for _, sub := range term.Subjects {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", sub.Code, sub.Name, sub.Credit, sub.Grade)
		}
	}

	fmt.Fprintf(tw, "\nSemesters:\t%d\n", s.TermCount())
	fmt.Fprintf(tw, "CGPA:\t%.2f\n", s.OverallAverage)

	return tw.Flush()
}
