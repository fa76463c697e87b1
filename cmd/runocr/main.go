// Command runocr runs the extraction pipeline on a local file without any
// database: OCR, field parsing and categorization, printed as JSON. Useful
// for tuning tesseract settings against real receipts.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/rico-rbls/smart-budget-tracker/internal/categorize"
	"github.com/rico-rbls/smart-budget-tracker/internal/common"
	"github.com/rico-rbls/smart-budget-tracker/internal/ocr"
	"github.com/rico-rbls/smart-budget-tracker/internal/parser"
)

type output struct {
	Path       string                   `json:"path"`
	Method     string                   `json:"method"`
	Pages      int                      `json:"pages"`
	Confidence float64                  `json:"confidence"`
	DurationMS int64                    `json:"duration_ms"`
	Text       string                   `json:"text,omitempty"`
	Parsed     parser.ParsedReceiptData `json:"parsed"`
	Category   string                   `json:"category"`
}

func main() {
	showText := flag.Bool("text", false, "include the raw extracted text in the output")
	timeout := flag.Duration("timeout", 2*time.Minute, "extraction timeout")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [-text] [-timeout 2m] <receipt file>\n", os.Args[0])
		os.Exit(2)
	}
	path := flag.Arg(0)

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	cfg := common.LoadConfig()
	extractor := ocr.NewExtractor(ocr.Config{
		Tesseract:     cfg.OCR.Tesseract,
		Pdftotext:     cfg.OCR.Pdftotext,
		Pdftoppm:      cfg.OCR.Pdftoppm,
		TesseractLang: cfg.OCR.TesseractLang,
		TessdataDir:   cfg.OCR.TessdataDir,
		DPI:           cfg.OCR.DPI,
		MaxPages:      cfg.OCR.MaxPages,
	}, logger)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	res, err := extractor.Extract(ctx, path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "extraction failed: %v\n", err)
		os.Exit(1)
	}

	parsed := parser.Parse(res.Text)
	merchant := ""
	if parsed.Merchant != nil {
		merchant = *parsed.Merchant
	}
	category := categorize.NewCategorizer(logger).Categorize(merchant)

	out := output{
		Path:       path,
		Method:     res.Method,
		Pages:      res.Pages,
		Confidence: res.Confidence,
		DurationMS: res.Duration.Milliseconds(),
		Parsed:     parsed,
		Category:   string(category),
	}
	if *showText {
		out.Text = res.Text
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "encode output: %v\n", err)
		os.Exit(1)
	}
}
