package ocr

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/plantdex/plantdex/pkg/logger_i"
)

// Runner rasterizes scanned pages and recognizes text. It shells out to
// poppler's pdftoppm and to tesseract; both must be on PATH (or configured)
// for the runner to report itself available.
type Runner interface {
	Available() bool
	// RecognizePDF rasterizes every page of the PDF at 300 DPI and runs
	// recognition with the ru+eng language hint. One string per page;
	// a page that yields nothing produces an empty entry.
	RecognizePDF(ctx context.Context, pdfPath string) ([]string, error)
}

type execRunner struct {
	tesseract string
	pdftoppm  string
	logger    *logger_i.Logger
}

func NewRunner(tesseractPath string) Runner {
	r := &execRunner{tesseract: tesseractPath, logger: logger_i.NewLogger("OCR")}
	if p, err := exec.LookPath(tesseractPath); err == nil {
		r.tesseract = p
	} else {
		r.tesseract = ""
	}
	if p, err := exec.LookPath("pdftoppm"); err == nil {
		r.pdftoppm = p
	}
	return r
}

func (r *execRunner) Available() bool {
	return r.tesseract != "" && r.pdftoppm != ""
}

func (r *execRunner) RecognizePDF(ctx context.Context, pdfPath string) ([]string, error) {
	if !r.Available() {
		return nil, fmt.Errorf("ocr runner is not available")
	}

	workDir, err := os.MkdirTemp("", "plantdex_ocr_*")
	if err != nil {
		return nil, fmt.Errorf("ocr scratch dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	// 300 DPI is the sweet spot for engineering scans; higher buys nothing
	// from tesseract and triples raster size.
	raster := exec.CommandContext(ctx, r.pdftoppm, "-r", "300", "-png", pdfPath, filepath.Join(workDir, "page"))
	if out, err := raster.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w: %s", err, strings.TrimSpace(string(out)))
	}

	images, err := filepath.Glob(filepath.Join(workDir, "page-*.png"))
	if err != nil || len(images) == 0 {
		return nil, fmt.Errorf("rasterization produced no pages")
	}
	sort.Strings(images) //pdftoppm zero-pads page numbers

	pages := make([]string, 0, len(images))
	for _, img := range images {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		text, err := r.recognizeImage(ctx, img)
		if err != nil {
			r.logger.Warn("OCR failed for a page", "image", filepath.Base(img), "error", err)
			text = ""
		}
		pages = append(pages, text)
	}
	return pages, nil
}

func (r *execRunner) recognizeImage(ctx context.Context, imagePath string) (string, error) {
	cmd := exec.CommandContext(ctx, r.tesseract, imagePath, "stdout", "-l", "rus+eng")
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}
