package camera

import (
	"github.com/tauraamui/framegrab/pkg/capture"
	"github.com/tauraamui/framegrab/pkg/config/schedule"
	"github.com/tauraamui/framegrab/pkg/configdef"
)

type Settings struct {
	AllocationMode     capture.AllocationMode
	BufferCount        int
	QueueCapacity      int
	ExposureTime       float64
	Gain               float64
	PixelFormat        string
	SnapshotDir        string
	SnapshotInterval   int
	RecordMeasurements bool
	Schedule           schedule.Week
}

// SettingsFrom converts a validated camera config entry.
func SettingsFrom(cam configdef.Camera) (Settings, error) {
	mode, err := capture.ParseAllocationMode(cam.AllocationMode)
	if err != nil {
		return Settings{}, err
	}
	return Settings{
		AllocationMode:     mode,
		BufferCount:        cam.BufferCount,
		QueueCapacity:      cam.QueueCapacity,
		ExposureTime:       cam.ExposureTime,
		Gain:               cam.Gain,
		PixelFormat:        cam.PixelFormat,
		SnapshotDir:        cam.SnapshotDir,
		SnapshotInterval:   cam.SnapshotInterval,
		RecordMeasurements: cam.RecordMeasurements,
		Schedule:           cam.Schedule,
	}, nil
}
