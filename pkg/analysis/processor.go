package analysis

import (
	"github.com/tauraamui/framegrab/pkg/frame"
	"github.com/tauraamui/framegrab/pkg/log"
)

// Processor measures every frame it is handed and passes the result on.
// It plugs into capture.Consume as a capture.Processor.
type Processor struct {
	exposure Exposure
	onResult func(Stats)
}

func NewProcessor(exp Exposure, onResult func(Stats)) *Processor {
	return &Processor{exposure: exp, onResult: onResult}
}

func (p *Processor) Process(f frame.Frame) error {
	stats, err := Measure(f, p.exposure)
	if err != nil {
		return err
	}
	log.Debug("Frame [%d] %dx%d sum: %.0f", stats.FrameID, stats.Dimensions.W, stats.Dimensions.H, stats.Sum)
	if p.onResult != nil {
		p.onResult(stats)
	}
	return nil
}
