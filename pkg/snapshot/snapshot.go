package snapshot

import (
	"fmt"
	"image"
	"image/color"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"github.com/tauraamui/framegrab/pkg/frame"
	"github.com/tauraamui/framegrab/pkg/log"
	"github.com/tauraamui/xerror"
	"golang.org/x/image/tiff"
)

var fs afero.Fs = afero.NewOsFs()

// Writer stores every nth completed frame it is handed as a TIFF file
// under dir. It plugs into capture.Consume as a capture.Processor.
type Writer struct {
	dir      string
	prefix   string
	interval int
	seen     int
	written  int
}

func NewWriter(dir, prefix string, interval int) *Writer {
	if interval < 1 {
		interval = 1
	}
	return &Writer{dir: dir, prefix: prefix, interval: interval}
}

func (w *Writer) Written() int { return w.written }

func (w *Writer) Process(f frame.Frame) error {
	w.seen++
	if (w.seen-1)%w.interval != 0 {
		return nil
	}

	path, err := Save(w.dir, w.prefix, f)
	if err != nil {
		return err
	}
	w.written++
	log.Debug("Saved frame [%d] to %s", f.ID(), path)
	return nil
}

// Save writes a single frame and returns the path it was written to.
func Save(dir, prefix string, f frame.Frame) (string, error) {
	img, err := ToImage(f)
	if err != nil {
		return "", err
	}

	if err := fs.MkdirAll(dir, 0700); err != nil {
		return "", xerror.Errorf("unable to create snapshot dir %s: %w", dir, err)
	}

	path := filepath.Join(dir, fileName(prefix, f.ID(), time.Now()))
	file, err := fs.Create(path)
	if err != nil {
		return "", xerror.Errorf("unable to create snapshot file: %w", err)
	}
	defer file.Close()

	if err := tiff.Encode(file, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true}); err != nil {
		return "", xerror.Errorf("unable to encode frame [%d]: %w", f.ID(), err)
	}
	return path, nil
}

func fileName(prefix string, id uint64, t time.Time) string {
	if prefix == "" {
		prefix = "frame"
	}
	return fmt.Sprintf("%s_%s_%06d.tiff", prefix, t.Format("2006-01-02_15.04.05"), id)
}

// ToImage copies the frame payload into an image, the frame can be
// released as soon as it returns.
func ToImage(f frame.Frame) (image.Image, error) {
	dim := f.Dimensions()
	rect := image.Rect(0, 0, dim.W, dim.H)
	payload := f.Payload()
	geometry := frame.Geometry{Dimensions: dim, PixelFormat: f.PixelFormat()}
	if dim.Pixels() == 0 || len(payload) < geometry.PayloadSize() {
		return nil, xerror.Errorf("frame [%d] payload too short for %s", f.ID(), geometry)
	}

	switch f.PixelFormat() {
	case frame.Mono8:
		img := image.NewGray(rect)
		copy(img.Pix, payload)
		return img, nil
	case frame.Mono16:
		img := image.NewGray16(rect)
		for i := 0; i < dim.Pixels(); i++ {
			v := uint16(payload[i*2]) | uint16(payload[i*2+1])<<8
			img.Pix[i*2], img.Pix[i*2+1] = uint8(v>>8), uint8(v)
		}
		return img, nil
	case frame.RGB8:
		img := image.NewNRGBA(rect)
		for i := 0; i < dim.Pixels(); i++ {
			img.SetNRGBA(i%dim.W, i/dim.W, color.NRGBA{R: payload[i*3], G: payload[i*3+1], B: payload[i*3+2], A: 0xff})
		}
		return img, nil
	}
	return nil, xerror.Errorf("unsupported pixel format %s", f.PixelFormat())
}
