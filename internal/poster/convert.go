package poster

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	apperrors "postergen/internal/common/errors"
	"postergen/internal/common/logger"
)

// Supported output formats.
const (
	FormatSVG = "svg"
	FormatPNG = "png"
	FormatPDF = "pdf"
)

// Converter turns a filled vector document into the bytes of one output
// format. Each (template, format) conversion is independent.
type Converter interface {
	Convert(ctx context.Context, doc []byte, format string) ([]byte, error)
}

// BrowserConverter renders SVG through a headless browser: screenshot for
// PNG, print-to-PDF for PDF. SVG passes through untouched. The browser is
// launched lazily on the first raster conversion.
type BrowserConverter struct {
	logger logger.Logger

	mu       sync.Mutex
	launcher *launcher.Launcher
	browser  *rod.Browser
}

func NewBrowserConverter(log logger.Logger) *BrowserConverter {
	return &BrowserConverter{
		logger: log.WithFields(map[string]interface{}{"component": "converter"}),
	}
}

func (c *BrowserConverter) Convert(ctx context.Context, doc []byte, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case FormatSVG:
		out := make([]byte, len(doc))
		copy(out, doc)
		return out, nil
	case FormatPNG, FormatPDF:
		return c.render(ctx, doc, strings.ToLower(format))
	default:
		return nil, apperrors.NewConversionFailedError(format, fmt.Errorf("unsupported format"))
	}
}

func (c *BrowserConverter) render(ctx context.Context, doc []byte, format string) ([]byte, error) {
	browser, err := c.connect()
	if err != nil {
		return nil, apperrors.NewConversionFailedError(format, err)
	}

	// The browser loads the document from a temp file that lives only
	// for this conversion.
	tmp, err := os.CreateTemp("", "poster-*.svg")
	if err != nil {
		return nil, apperrors.NewConversionFailedError(format, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(doc); err != nil {
		tmp.Close()
		return nil, apperrors.NewConversionFailedError(format, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, apperrors.NewConversionFailedError(format, err)
	}

	abs, err := filepath.Abs(tmp.Name())
	if err != nil {
		return nil, apperrors.NewConversionFailedError(format, err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "file://" + abs})
	if err != nil {
		return nil, apperrors.NewConversionFailedError(format, err)
	}
	defer page.Close()

	page = page.Context(ctx)
	if err := page.WaitLoad(); err != nil {
		return nil, apperrors.NewConversionFailedError(format, err)
	}

	switch format {
	case FormatPNG:
		data, err := page.Screenshot(true, &proto.PageCaptureScreenshot{
			Format: proto.PageCaptureScreenshotFormatPng,
		})
		if err != nil {
			return nil, apperrors.NewConversionFailedError(format, err)
		}
		return data, nil
	case FormatPDF:
		r, err := page.PDF(&proto.PagePrintToPDF{PrintBackground: true})
		if err != nil {
			return nil, apperrors.NewConversionFailedError(format, err)
		}
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, apperrors.NewConversionFailedError(format, err)
		}
		return data, nil
	}
	return nil, apperrors.NewConversionFailedError(format, fmt.Errorf("unsupported format"))
}

// connect launches and connects the headless browser once.
func (c *BrowserConverter) connect() (*rod.Browser, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.browser != nil {
		return c.browser, nil
	}

	l := launcher.New().Headless(true)
	url, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(url)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	c.launcher = l
	c.browser = browser
	c.logger.Debug("headless browser started", nil)
	return browser, nil
}

// Close shuts the headless browser down if it was started.
func (c *BrowserConverter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.browser == nil {
		return nil
	}
	err := c.browser.Close()
	c.launcher.Cleanup()
	c.browser = nil
	c.launcher = nil
	return err
}
