package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"

	"mail-courier/internal/config"
)

// Renderer turns a message's HTML body into a PDF artifact on disk. Each
// render serves the HTML from a short-lived loopback server, drives a
// headless browser to it and prints the page to PDF. Renders are expected to
// be serialized by the caller; the server is a shared single-holder resource
// when a fixed listen address is configured.
//
// One browser process is shared across the Renderer's lifetime; each render
// opens a fresh tab in it. The process launches lazily on the first render
// and is torn down by Close.
type Renderer struct {
	stagingDir string
	listenAddr string
	timeout    time.Duration

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

func New(cfg config.RendererConfig) *Renderer {
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), chromedp.DefaultExecAllocatorOptions[:]...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	return &Renderer{
		stagingDir:    cfg.StagingDir,
		listenAddr:    cfg.ListenAddr,
		timeout:       cfg.NavigationTimeout,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}
}

// Close shuts down the shared browser process. The Renderer cannot be used
// after Close.
func (r *Renderer) Close() error {
	r.browserCancel()
	r.allocCancel()
	return nil
}

// ArtifactPath returns the deterministic artifact location for a message id.
// Repeated renders for the same id overwrite rather than accumulate.
func (r *Renderer) ArtifactPath(messageID string) string {
	return filepath.Join(r.stagingDir, fmt.Sprintf("mail-%s.pdf", messageID))
}

// Render serves html on the loopback server, prints it to PDF and writes the
// artifact. The server is taken down, with acknowledgment, on every exit
// path. Any failure is a render error for this message only.
func (r *Renderer) Render(ctx context.Context, html []byte, messageID string) (string, error) {
	logrus.Infof("Rendering PDF for message %s", messageID)

	srv, err := startHTMLServer(r.listenAddr, html)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := srv.shutdown(); err != nil {
			logrus.Errorf("Render server shutdown failed: %v", err)
		}
	}()

	pdf, err := r.printToPDF(ctx, srv.url)
	if err != nil {
		return "", fmt.Errorf("failed to print message %s to PDF: %w", messageID, err)
	}

	if err := os.MkdirAll(r.stagingDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create staging dir: %w", err)
	}

	path := r.ArtifactPath(messageID)
	if err := os.WriteFile(path, pdf, 0o644); err != nil {
		return "", fmt.Errorf("failed to write artifact for message %s: %w", messageID, err)
	}

	return path, nil
}

// printToPDF opens a tab in the shared browser, navigates to url and prints
// the loaded page. The navigation timeout bounds the whole browser
// interaction so a hung page cannot stall the run; cancelling ctx tears the
// tab down without touching the browser itself.
func (r *Renderer) printToPDF(ctx context.Context, url string) ([]byte, error) {
	tabCtx, cancelTab := chromedp.NewContext(r.browserCtx)
	defer cancelTab()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, r.timeout)
	defer cancelTimeout()

	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	var pdf []byte
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(url),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().Do(ctx)
			if err != nil {
				return err
			}
			pdf = buf
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}
	return pdf, nil
}
