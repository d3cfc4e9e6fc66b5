package mapview

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/chromedp/chromedp"

	"llamarural/utils"
)

// Snapshotter renders map pages to PNG with a headless Chrome.
type Snapshotter struct {
	chromeBin string
	width     int64
	height    int64
	settle    time.Duration
	retry     *utils.RetryConfig
	logger    *utils.Logger
}

// NewSnapshotter looks up a Chrome binary when chromeBin is empty.
func NewSnapshotter(chromeBin string, maxRetries int, logger *utils.Logger) *Snapshotter {
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	return &Snapshotter{
		chromeBin: chromeBin,
		width:     1280,
		height:    900,
		settle:    3 * time.Second,
		retry: &utils.RetryConfig{
			MaxAttempts: maxRetries,
			BaseDelay:   time.Second,
			Logger:      logger,
		},
		logger: logger,
	}
}

// Snapshot renders v and writes a PNG screenshot of it to outPath.
func (s *Snapshotter) Snapshot(ctx context.Context, v View, outPath string) error {
	html, err := RenderString(v)
	if err != nil {
		return err
	}

	dir, err := os.MkdirTemp("", "llamarural-map-*")
	if err != nil {
		return fmt.Errorf("mapview: temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	page := filepath.Join(dir, "map.html")
	if err := os.WriteFile(page, []byte(html), 0644); err != nil {
		return fmt.Errorf("mapview: write page: %w", err)
	}

	s.logger.Info("[mapview] Using browser binary: %s", s.chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.WindowSize(int(s.width), int(s.height)),
	)
	if s.chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(s.chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	var png []byte
	err = s.retry.Do(ctx, "map snapshot", func(ctx context.Context) error {
		// Suppress chromedp log noise
		tabCtx, cancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
		defer cancel()
		tabCtx, cancelTimeout := context.WithTimeout(tabCtx, 60*time.Second)
		defer cancelTimeout()

		return chromedp.Run(tabCtx,
			chromedp.EmulateViewport(s.width, s.height),
			chromedp.Navigate("file://"+page),
			chromedp.WaitVisible("#map", chromedp.ByID),
			chromedp.Sleep(s.settle),
			chromedp.FullScreenshot(&png, 90),
		)
	})
	if err != nil {
		return fmt.Errorf("mapview: snapshot: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return fmt.Errorf("mapview: create dir: %w", err)
	}
	if err := os.WriteFile(outPath, png, 0644); err != nil {
		return fmt.Errorf("mapview: write %s: %w", outPath, err)
	}
	s.logger.Info("[mapview] Saved snapshot to %s (%d bytes)", outPath, len(png))
	return nil
}

// findChromeBinary locates Chrome/Chromium binary.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
