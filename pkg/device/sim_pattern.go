package device

import (
	"encoding/binary"
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"github.com/tauraamui/framegrab/pkg/frame"
	"github.com/tauraamui/framegrab/pkg/log"
	"github.com/tauraamui/xerror"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

var (
	parseFontOnce sync.Once
	patternFont   *truetype.Font
	parseFontErr  error
)

// testPattern renders a labelled canvas once per geometry, every
// frame is that canvas shifted by the frame id.
type testPattern struct {
	label    string
	mu       sync.Mutex
	geometry frame.Geometry
	canvas   *image.RGBA
}

func (p *testPattern) canvasFor(g frame.Geometry) *image.RGBA {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.canvas == nil || p.geometry != g {
		p.canvas = renderBaseFrameCanvas(g.W, g.H)
		if err := drawLabel(p.canvas, "FRAMEGRAB_SIM", p.label); err != nil {
			log.Debug("unable to draw label onto test pattern: %v", err)
		}
		p.geometry = g
	}
	return p.canvas
}

func (p *testPattern) fill(dst []byte, g frame.Geometry, id uint64, status frame.Status) {
	canvas := p.canvasFor(g)

	limit := g.PayloadSize()
	if limit > len(dst) {
		limit = len(dst)
	}
	switch status {
	case frame.Incomplete:
		limit /= 2
	case frame.Aborted, frame.TooSmall:
		limit = 0
	}

	shift := uint8(id)
	bpp := g.PixelFormat.BytesPerPixel()
	px := make([]byte, bpp)
	written := 0
	for y := 0; y < g.H && written < limit; y++ {
		for x := 0; x < g.W && written < limit; x++ {
			c := canvas.RGBAAt(x, y)
			switch g.PixelFormat {
			case frame.Mono8:
				px[0] = luminance(c) + shift
			case frame.Mono16:
				binary.LittleEndian.PutUint16(px, uint16(luminance(c)+shift)<<8)
			case frame.RGB8:
				px[0], px[1], px[2] = c.R+shift, c.G+shift, c.B+shift
			}
			written += copy(dst[written:limit], px)
		}
	}
	for i := written; i < len(dst); i++ {
		dst[i] = 0
	}
}

func luminance(c color.RGBA) uint8 {
	return uint8((299*uint32(c.R) + 587*uint32(c.G) + 114*uint32(c.B)) / 1000)
}

func renderBaseFrameCanvas(w, h int) *image.RGBA {
	var hw, hh float64 = float64(w) / 2, float64(h) / 2
	r := math.Min(hw, hh) / 2
	θ := 2 * math.Pi / 3
	cr := &circle{hw - r*math.Sin(0), hh - r*math.Cos(0), r * 1.5}
	cg := &circle{hw - r*math.Sin(θ), hh - r*math.Cos(θ), r * 1.5}
	cb := &circle{hw - r*math.Sin(-θ), hh - r*math.Cos(-θ), r * 1.5}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.SetRGBA(x, y, color.RGBA{
				cr.Brightness(float64(x), float64(y)),
				cg.Brightness(float64(x), float64(y)),
				cb.Brightness(float64(x), float64(y)),
				255,
			})
		}
	}
	return img
}

func drawLabel(canvas *image.RGBA, lines ...string) error {
	parseFontOnce.Do(func() {
		patternFont, parseFontErr = freetype.ParseFont(goregular.TTF)
	})
	if parseFontErr != nil {
		return xerror.Errorf("unable to parse test pattern font: %w", parseFontErr)
	}

	h := canvas.Bounds().Dy()
	fontSize := math.Max(float64(h)/8, 6)
	drawer := &font.Drawer{
		Dst: canvas,
		Src: image.White,
		Face: truetype.NewFace(patternFont, &truetype.Options{
			Size:    fontSize,
			Hinting: font.HintingFull,
		}),
	}
	for i, line := range lines {
		drawer.Dot = fixed.Point26_6{
			X: fixed.I(2),
			Y: fixed.I(int(fontSize) * (i + 1)),
		}
		drawer.DrawString(line)
	}
	return nil
}

type circle struct {
	X, Y, R float64
}

func (c *circle) Brightness(x, y float64) uint8 {
	var dx, dy float64 = c.X - x, c.Y - y
	d := math.Sqrt(dx*dx+dy*dy) / c.R
	if d > 1 {
		return 0
	}
	return 255
}
