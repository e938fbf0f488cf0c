package capture

import (
	"errors"

	"github.com/tauraamui/framegrab/pkg/frame"
)

var (
	ErrAllocationFailed   = frame.ErrAllocationFailed
	ErrDeviceRejected     = errors.New("device rejected announced buffers")
	ErrInvalidBufferCount = errors.New("buffer count must be at least 1")
	ErrTimeout            = errors.New("timed out waiting for frame")
	ErrDeviceStopped      = errors.New("device stopped, frame queue is closed")
	ErrEndOfStream        = errors.New("end of frame stream")
	ErrInvalidState       = errors.New("invalid session state")
	ErrMixedDriveMode     = errors.New("session already driven by the other acquisition mode")
)
