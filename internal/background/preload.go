package background

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"time"

	_ "golang.org/x/image/webp"
)

// maxImageBytes caps how much of an image body is read while preloading.
const maxImageBytes = 32 << 20

// HTTPPreloader downloads an image and checks that its header decodes.
type HTTPPreloader struct {
	Client *http.Client
}

// NewHTTPPreloader returns a preloader with a bounded request timeout.
func NewHTTPPreloader() *HTTPPreloader {
	return &HTTPPreloader{Client: &http.Client{Timeout: 60 * time.Second}}
}

func (p *HTTPPreloader) Preload(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("preload %s: %w", url, err)
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return fmt.Errorf("preload %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("preload %s: server returned %d", url, resp.StatusCode)
	}

	body := io.LimitReader(resp.Body, maxImageBytes)
	cfg, format, err := image.DecodeConfig(body)
	if err != nil {
		return fmt.Errorf("preload %s: decode: %w", url, err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return fmt.Errorf("preload %s: empty %s image", url, format)
	}
	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, body)
	return nil
}
