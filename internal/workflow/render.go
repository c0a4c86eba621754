package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/JaimeStill/document-context/pkg/config"
	"github.com/JaimeStill/document-context/pkg/document"
	"github.com/JaimeStill/document-context/pkg/image"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/appart/pkg/storage"
)

const sourcePDF = "source.pdf"

// Rasterizer renders PDF documents to PNG page images with ImageMagick.
type Rasterizer struct {
	workers int
}

// NewRasterizer creates a Rasterizer rendering at most workers pages at once.
func NewRasterizer(workers int) *Rasterizer {
	return &Rasterizer{workers: max(workers, 1)}
}

// Render writes data to a temporary PDF and renders every page.
func (r *Rasterizer) Render(ctx context.Context, data []byte) ([]Page, error) {
	tempDir, err := os.MkdirTemp("", "appart-render-*")
	if err != nil {
		return nil, fmt.Errorf("create temp directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	pdfPath := filepath.Join(tempDir, sourcePDF)
	if err := os.WriteFile(pdfPath, data, 0600); err != nil {
		return nil, fmt.Errorf("write temp pdf: %w", err)
	}

	return r.RenderFile(ctx, pdfPath)
}

// RenderFile renders every page of the PDF at path, in page order.
func (r *Rasterizer) RenderFile(ctx context.Context, path string) ([]Page, error) {
	pdfDoc, err := document.OpenPDF(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer pdfDoc.Close()

	renderer, err := image.NewImageMagickRenderer(config.DefaultImageConfig())
	if err != nil {
		return nil, fmt.Errorf("create renderer: %w", err)
	}

	allPages, err := pdfDoc.ExtractAllPages()
	if err != nil {
		return nil, fmt.Errorf("extract pages: %w", err)
	}

	pages := make([]Page, len(allPages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(min(r.workers, len(allPages)), 1))

	for i, page := range allPages {
		pageNum := i + 1

		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}

			data, err := page.ToImage(renderer, nil)
			if err != nil {
				return fmt.Errorf("render page %d: %w", pageNum, err)
			}

			pages[i] = Page{Number: pageNum, Image: data}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return pages, nil
}

// StoragePages returns a provider that downloads key from the object
// store and rasterizes it.
func StoragePages(store storage.System, key string, r *Rasterizer) PagesProvider {
	return func(ctx context.Context) ([]Page, error) {
		data, err := storage.ReadAll(ctx, store, key)
		if err != nil {
			return nil, fmt.Errorf("download %s: %w", key, err)
		}
		return r.Render(ctx, data)
	}
}

// FilePages returns a provider that rasterizes a local PDF.
func FilePages(path string, r *Rasterizer) PagesProvider {
	return func(ctx context.Context) ([]Page, error) {
		return r.RenderFile(ctx, path)
	}
}
