package analysis

import (
	"encoding/binary"
	"math"

	"github.com/tauraamui/framegrab/pkg/frame"
	"github.com/tauraamui/xerror"
)

var ErrEmptyFrame = xerror.New("frame has no pixels")

// Exposure is the camera setting a frame was taken with. Time is in
// microseconds, Gain in dB.
type Exposure struct {
	Time float64
	Gain float64
}

type Stats struct {
	FrameID      uint64
	Status       frame.Status
	Dimensions   frame.Dimensions
	Sum          float64
	Average      float64
	OpticalPower float64
}

// Measure sums every sample of the frame payload. For multi channel
// formats each channel counts towards the sum while the average and
// optical power are per pixel.
func Measure(f frame.Frame, exp Exposure) (Stats, error) {
	dim := f.Dimensions()
	stats := Stats{FrameID: f.ID(), Status: f.Status(), Dimensions: dim}
	pixels := dim.Pixels()
	if pixels == 0 {
		return stats, ErrEmptyFrame
	}

	sum, err := sumSamples(f.Payload(), f.PixelFormat())
	if err != nil {
		return stats, err
	}
	stats.Sum = sum
	stats.Average = sum / float64(pixels)
	stats.OpticalPower = OpticalPower(sum, pixels, exp)
	return stats, nil
}

// OpticalPower is in readout units per microsecond. A non positive
// exposure time yields zero.
func OpticalPower(sum float64, pixels int, exp Exposure) float64 {
	if pixels <= 0 || exp.Time <= 0 {
		return 0
	}
	return sum / (float64(pixels) * exp.Time * math.Pow(10, exp.Gain/20))
}

func sumSamples(payload []byte, pf frame.PixelFormat) (float64, error) {
	var sum uint64
	switch pf {
	case frame.Mono8, frame.RGB8:
		for _, b := range payload {
			sum += uint64(b)
		}
	case frame.Mono16:
		if len(payload)%2 != 0 {
			return 0, xerror.Errorf("mono16 payload of odd length %d", len(payload))
		}
		for i := 0; i < len(payload); i += 2 {
			sum += uint64(binary.LittleEndian.Uint16(payload[i:]))
		}
	default:
		return 0, xerror.Errorf("unsupported pixel format %s", pf)
	}
	return float64(sum), nil
}
