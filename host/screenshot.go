package host

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/hajimehoshi/ebiten/v2"
	"go.uber.org/zap"

	"github.com/phanxgames/tilegrid"
)

// Screenshot queues a capture of the next drawn frame. The PNG is named
// after the frame's tick and label and written to RunConfig.ScreenshotDir.
// F12 queues one labeled with the hovered cell.
func (g *Game) Screenshot(label string) {
	g.screenshotQueue = append(g.screenshotQueue, label)
}

// hoverLabel names a screenshot after the pick under the pointer.
func hoverLabel(p tilegrid.Pick) string {
	if !p.Resolved() {
		return p.Status.String()
	}
	return fmt.Sprintf("cell_%d_%d_%s", p.Coord.X, p.Coord.Y, p.Status)
}

func screenshotPath(dir string, tick uint64, label string) string {
	return filepath.Join(dir, fmt.Sprintf("tick%06d_%s.png", tick, sanitizeLabel(label)))
}

// flushScreenshots writes the screen once per queued label. ebiten pixels
// are premultiplied, which is image.RGBA's layout.
func (g *Game) flushScreenshots(screen *ebiten.Image) {
	if len(g.screenshotQueue) == 0 {
		return
	}
	queue := g.screenshotQueue
	g.screenshotQueue = g.screenshotQueue[:0]

	if err := os.MkdirAll(g.screenshotDir, 0o755); err != nil {
		g.logger().Warn("screenshot dir", zap.String("dir", g.screenshotDir), zap.Error(err))
		return
	}
	img := image.NewRGBA(screen.Bounds())
	screen.ReadPixels(img.Pix)

	for _, label := range queue {
		path := screenshotPath(g.screenshotDir, g.tick, label)
		if err := writeScreenshot(path, img); err != nil {
			g.logger().Warn("screenshot failed", zap.Error(err))
			continue
		}
		g.logger().Info("screenshot saved", zap.String("path", path))
	}
}

func (g *Game) logger() *zap.Logger {
	if g.rt == nil {
		return zap.NewNop()
	}
	return g.rt.Logger()
}

func writeScreenshot(path string, img image.Image) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// sanitizeLabel keeps letters, digits, '-', '_' and '.'; everything else
// becomes '_'.
func sanitizeLabel(label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		return "frame"
	}
	return strings.Map(func(r rune) rune {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune("-_.", r)) {
			return r
		}
		return '_'
	}, label)
}
