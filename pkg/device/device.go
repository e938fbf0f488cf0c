package device

import (
	"context"
	"errors"

	"github.com/tauraamui/framegrab/pkg/frame"
)

var (
	ErrCameraNotFound     = errors.New("camera not found")
	ErrCameraClosed       = errors.New("camera is closed")
	ErrDisconnected       = errors.New("camera disconnected")
	ErrBufferNotAnnounced = errors.New("buffer has not been announced")
	ErrBufferTooSmall     = errors.New("buffer is smaller than the frame payload")
	ErrTooManyBuffers     = errors.New("announced buffer limit reached")
	ErrAcquisitionRunning = errors.New("acquisition is running")
	ErrFeatureNotFound    = errors.New("feature not found")
	ErrFeatureLocked      = errors.New("feature is locked while buffers are announced")
)

type TransportType string

const (
	TransportGEV TransportType = "GEV"
	TransportU3V TransportType = "U3V"
)

const (
	FeatureWidth            = "Width"
	FeatureHeight           = "Height"
	FeaturePixelFormat      = "PixelFormat"
	FeatureExposureTimeAbs  = "ExposureTimeAbs"
	FeatureGain             = "Gain"
	CommandAdjustPacketSize = "GVSPAdjustPacketSize"
)

// Delivery is a single frame completion handed to a camera's frame
// handler. A delivery carrying Err is terminal, no further deliveries
// follow it and Buffer is nil.
type Delivery struct {
	ID     uint64
	Status frame.Status
	Buffer *frame.Buffer
	Err    error
}

type System interface {
	ListCameras() ([]string, error)
	Open(context.Context, string) (Camera, error)
	Close() error
}

// Camera is an opened device handle. The frame handler is invoked from
// a driver owned goroutine, one delivery at a time, in completion order.
type Camera interface {
	ID() string
	TransportType() TransportType
	Features() Features
	AnnounceBuffer(*frame.Buffer) error
	AllocAndAnnounceBuffer(size int) (*frame.Buffer, error)
	RevokeBuffer(*frame.Buffer) error
	QueueBuffer(*frame.Buffer) error
	StartAcquisition() error
	// StopAcquisition returns once no handler invocation is in progress.
	StopAcquisition() error
	// OnFrameReceived replaces the frame handler, nil detaches it.
	OnFrameReceived(func(Delivery))
	Close() error
}

type Features interface {
	Has(string) bool
	Get(string) (interface{}, error)
	Set(string, interface{}) error
	EnumEntries(string) ([]string, error)
	Run(context.Context, string) error
}

func Default() System {
	return Sim(SimSettings{})
}

func Resolve(t string) System {
	switch t {
	case "sim":
		return Sim(SimSettings{})
	default:
		return Default()
	}
}

// ReadGeometry reads the current capture geometry from a camera's features.
func ReadGeometry(f Features) (frame.Geometry, error) {
	w, err := Int(f, FeatureWidth)
	if err != nil {
		return frame.Geometry{}, err
	}
	h, err := Int(f, FeatureHeight)
	if err != nil {
		return frame.Geometry{}, err
	}
	pf, err := String(f, FeaturePixelFormat)
	if err != nil {
		return frame.Geometry{}, err
	}
	format, err := frame.ParsePixelFormat(pf)
	if err != nil {
		return frame.Geometry{}, err
	}
	return frame.Geometry{Dimensions: frame.Dimensions{W: w, H: h}, PixelFormat: format}, nil
}
