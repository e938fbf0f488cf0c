package frame

import (
	"fmt"
	"strings"

	"github.com/tauraamui/xerror"
)

type Dimensions struct {
	W, H int
}

func (d Dimensions) Pixels() int { return d.W * d.H }

type Status int

const (
	Completed Status = iota
	Incomplete
	Aborted
	TooSmall
)

func (s Status) String() string {
	switch s {
	case Completed:
		return "Completed"
	case Incomplete:
		return "Incomplete"
	case Aborted:
		return "Aborted"
	case TooSmall:
		return "TooSmall"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

type PixelFormat int

const (
	Mono8 PixelFormat = iota
	Mono16
	RGB8
)

var pixelFormatNames = map[PixelFormat]string{
	Mono8:  "Mono8",
	Mono16: "Mono16",
	RGB8:   "RGB8",
}

func (p PixelFormat) String() string {
	if n, ok := pixelFormatNames[p]; ok {
		return n
	}
	return fmt.Sprintf("PixelFormat(%d)", int(p))
}

// BytesPerPixel returns 0 for unknown formats.
func (p PixelFormat) BytesPerPixel() int {
	switch p {
	case Mono8:
		return 1
	case Mono16:
		return 2
	case RGB8:
		return 3
	default:
		return 0
	}
}

func ParsePixelFormat(s string) (PixelFormat, error) {
	for p, n := range pixelFormatNames {
		if strings.EqualFold(n, s) {
			return p, nil
		}
	}
	return 0, xerror.Errorf("unsupported pixel format: %s", s)
}

// Geometry is fixed for the lifetime of an acquisition session.
type Geometry struct {
	Dimensions
	PixelFormat PixelFormat
}

func (g Geometry) PayloadSize() int {
	return g.Pixels() * g.PixelFormat.BytesPerPixel()
}

func (g Geometry) String() string {
	return fmt.Sprintf("%dx%d %s", g.W, g.H, g.PixelFormat)
}

// Frame is one captured image plus its delivery metadata. The payload
// is only valid until Close, which hands the underlying buffer back
// to its pool. Close must be called exactly once by the final owner.
type Frame interface {
	ID() uint64
	Status() Status
	Dimensions() Dimensions
	PixelFormat() PixelFormat
	Payload() []byte
	Close()
}
