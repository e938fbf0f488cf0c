package configdef

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tauraamui/framegrab/pkg/config/schedule"
	"github.com/tauraamui/framegrab/pkg/frame"
	"gopkg.in/dealancer/validate.v2"
)

type Camera struct {
	Title              string        `json:"title" validate:"empty=false"`
	CameraID           string        `json:"camera_id"`
	AllocationMode     string        `json:"allocation_mode" validate:"one_of=announce,alloc_and_announce"`
	BufferCount        int           `json:"buffer_count" validate:"gte=1 & lte=64"`
	QueueCapacity      int           `json:"queue_capacity" validate:"gte=1 & lte=64"`
	ExposureTime       float64       `json:"exposure_time" validate:"gte=0"`
	Gain               float64       `json:"gain" validate:"gte=0"`
	PixelFormat        string        `json:"pixel_format"`
	Disabled           bool          `json:"disabled"`
	SnapshotDir        string        `json:"snapshot_dir"`
	SnapshotInterval   int           `json:"snapshot_interval" validate:"gte=0"`
	RecordMeasurements bool          `json:"record_measurements"`
	Schedule           schedule.Week `json:"schedule"`
}

type Values struct {
	Debug   bool     `json:"debug"`
	Backend string   `json:"backend"`
	Cameras []Camera `json:"cameras"`
}

func (v Values) RunValidate() error {
	if err := validate.Validate(&v); err != nil {
		return err
	}
	return v.Validate()
}

func (v Values) Validate() error {
	const validationErrorHeader = "validation failed: %w"
	if hasDupCameraTitles(v.Cameras) {
		return fmt.Errorf(validationErrorHeader, errors.New("camera titles must be unique"))
	}
	for _, cam := range v.Cameras {
		if len(cam.PixelFormat) == 0 {
			continue
		}
		if _, err := frame.ParsePixelFormat(cam.PixelFormat); err != nil {
			return fmt.Errorf(validationErrorHeader, fmt.Errorf("camera %s: %v", cam.Title, err))
		}
	}
	return nil
}

// Enabled returns the cameras which are not disabled.
func (v Values) Enabled() []Camera {
	enabled := []Camera{}
	for _, cam := range v.Cameras {
		if !cam.Disabled {
			enabled = append(enabled, cam)
		}
	}
	return enabled
}

func hasDupCameraTitles(cameras []Camera) (hasDup bool) {
	hasDup = false
	if len(cameras) == 0 {
		return
	}

	seen := map[string]struct{}{}
	for _, cam := range cameras {
		title := strings.TrimSpace(cam.Title)
		if _, ok := seen[title]; ok {
			hasDup = true
			return
		}
		seen[title] = struct{}{}
	}
	return
}
