package device

import (
	"context"
	"sync"
	"time"

	"github.com/tauraamui/framegrab/pkg/frame"
	"github.com/tauraamui/xerror"
)

// SimSettings tunes the simulated transport layer. Zero values fall back
// to a single 640x480 Mono8 GigE camera delivering a frame every 10ms.
type SimSettings struct {
	CameraIDs     []string
	Transport     TransportType
	Geometry      frame.Geometry
	FrameInterval time.Duration
	MaxAnnounced  int
	// StatusFor decides the delivery status of a frame id.
	StatusFor func(id uint64) frame.Status
	// SkipEvery drops every nth frame id, leaving gaps in delivered ids.
	SkipEvery int
	// DisconnectAfter emits a terminal disconnect after n deliveries.
	DisconnectAfter int
}

func (s SimSettings) withDefaults() SimSettings {
	if len(s.CameraIDs) == 0 {
		s.CameraIDs = []string{"DEV_SIM_0001"}
	}
	if len(s.Transport) == 0 {
		s.Transport = TransportGEV
	}
	if s.Geometry.W <= 0 || s.Geometry.H <= 0 {
		s.Geometry = frame.Geometry{Dimensions: frame.Dimensions{W: 640, H: 480}, PixelFormat: frame.Mono8}
	}
	if s.FrameInterval <= 0 {
		s.FrameInterval = 10 * time.Millisecond
	}
	if s.MaxAnnounced <= 0 {
		s.MaxAnnounced = 64
	}
	if s.StatusFor == nil {
		s.StatusFor = func(uint64) frame.Status { return frame.Completed }
	}
	return s
}

func Sim(settings SimSettings) System {
	return &simSystem{settings: settings.withDefaults(), open: map[string]*simCamera{}}
}

type simSystem struct {
	settings SimSettings
	mu       sync.Mutex
	open     map[string]*simCamera
	closed   bool
}

func (s *simSystem) ListCameras() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, xerror.New("transport layer has been shut down")
	}
	return append([]string{}, s.settings.CameraIDs...), nil
}

func (s *simSystem) Open(ctx context.Context, id string) (Camera, error) {
	select {
	case <-ctx.Done():
		return nil, xerror.Errorf("opening camera [%s] cancelled: %w", id, ctx.Err())
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, xerror.New("transport layer has been shut down")
	}
	if !contains(s.settings.CameraIDs, id) {
		return nil, xerror.Errorf("%w: %s", ErrCameraNotFound, id)
	}
	if cam, ok := s.open[id]; ok && !cam.isClosed() {
		return nil, xerror.Errorf("camera [%s] is already open", id)
	}
	cam := newSimCamera(id, s.settings)
	s.open[id] = cam
	return cam, nil
}

// Close closes any camera still open, mirroring a transport layer shutdown.
func (s *simSystem) Close() error {
	s.mu.Lock()
	cams := make([]*simCamera, 0, len(s.open))
	for _, cam := range s.open {
		cams = append(cams, cam)
	}
	s.open = map[string]*simCamera{}
	s.closed = true
	s.mu.Unlock()

	var firstErr error
	for _, cam := range cams {
		if err := cam.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
