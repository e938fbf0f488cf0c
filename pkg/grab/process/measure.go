package process

import (
	"github.com/tauraamui/framegrab/pkg/analysis"
	"github.com/tauraamui/framegrab/pkg/database/models"
	"github.com/tauraamui/framegrab/pkg/frame"
	"github.com/tauraamui/framegrab/pkg/log"
	"github.com/tauraamui/xerror"
)

// Recorder persists measurements, repos.MeasurementRepository is the
// production implementation.
type Recorder interface {
	Create(*models.Measurement) error
}

type measureFrames struct {
	title       string
	cameraID    string
	sessionUUID string
	exposure    analysis.Exposure
	recorder    Recorder
}

func (m *measureFrames) Process(f frame.Frame) error {
	stats, err := analysis.Measure(f, m.exposure)
	if err != nil {
		return err
	}

	log.Info(
		"[%s] frame [%d] %dx%d sum: %.0f average: %.3f optical power: %.6f",
		m.title, stats.FrameID, stats.Dimensions.W, stats.Dimensions.H,
		stats.Sum, stats.Average, stats.OpticalPower,
	)

	if m.recorder == nil {
		return nil
	}

	measurement := models.Measurement{
		SessionUUID:   m.sessionUUID,
		CameraID:      m.cameraID,
		FrameID:       stats.FrameID,
		Status:        stats.Status.String(),
		Width:         stats.Dimensions.W,
		Height:        stats.Dimensions.H,
		PixelFormat:   f.PixelFormat().String(),
		Sum:           stats.Sum,
		Average:       stats.Average,
		OpticalPower:  stats.OpticalPower,
		ExposureTime:  m.exposure.Time,
		Gain:          m.exposure.Gain,
		PayloadDigest: models.Digest(f.Payload()),
	}
	if err := m.recorder.Create(&measurement); err != nil {
		return xerror.Errorf("unable to record measurement of frame [%d]: %w", stats.FrameID, err)
	}
	return nil
}
