package grab

import (
	"context"
	"sync"

	"github.com/tauraamui/framegrab/pkg/camera"
	"github.com/tauraamui/framegrab/pkg/configdef"
	"github.com/tauraamui/framegrab/pkg/device"
	"github.com/tauraamui/framegrab/pkg/grab/process"
	"github.com/tauraamui/framegrab/pkg/log"
	"github.com/tauraamui/xerror"
)

type Server struct {
	shutdownDone         chan interface{}
	shutdownOnce         sync.Once
	processesDone        chan struct{}
	watchOnce            sync.Once
	config               configdef.Values
	sys                  device.System
	recorder             process.Recorder
	mu                   sync.Mutex
	shuttingDown         bool
	cameras              []camera.Connection
	acquisitionProcesses []process.Process
}

func NewServer(cr configdef.Resolver, sys device.System) (*Server, error) {
	config, err := cr.Resolve()
	if err != nil {
		return nil, xerror.Errorf("unable to resolve config: %w", err)
	}
	return &Server{config: config, sys: sys, shutdownDone: make(chan interface{}), processesDone: make(chan struct{})}, nil
}

// RecordTo sets where measurements of cameras with recording enabled go.
func (s *Server) RecordTo(rec process.Recorder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recorder = rec
}

func (s *Server) Connect() []error {
	return s.connect(context.Background())
}

func (s *Server) ConnectWithCancel(cancel context.Context) []error {
	return s.connect(cancel)
}

func (s *Server) connect(cancel context.Context) []error {
	var errs []error

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.shuttingDown {
		return errs
	}
	for _, cam := range s.config.Cameras {
		select {
		case <-cancel.Done():
			return errs
		default:
			if cam.Disabled {
				log.Warn("Camera [%s] is disabled... skipping...", cam.Title)
				continue
			}
			settings, err := camera.SettingsFrom(cam)
			if err != nil {
				errs = append(errs, xerror.Errorf("camera [%s] settings: %w", cam.Title, err))
				continue
			}
			conn, err := connectToCamera(cancel, s.sys, cam.Title, cam.CameraID, settings)
			if err != nil {
				errs = append(errs, err)
			}

			if conn != nil {
				log.Info("Connected successfully to camera: [%s]", cam.Title)
				s.cameras = append(s.cameras, conn)
			}
		}
	}
	return errs
}

func connectToCamera(ctx context.Context, sys device.System, title, id string, sett camera.Settings) (camera.Connection, error) {
	log.Info("Connecting to camera: [%s]...", title)
	return camera.ConnectWithCancel(ctx, sys, title, id, sett)
}

func (s *Server) Cameras() []camera.Connection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]camera.Connection{}, s.cameras...)
}

func (s *Server) shutdown() {
	s.mu.Lock()
	s.shuttingDown = true
	s.mu.Unlock()

	s.shutdownProcesses()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cam := range s.cameras {
		log.Warn("Closing camera connection: [%s]...", cam.Title())
		if err := cam.Close(); err != nil {
			log.Error("Unable to close camera [%s]: %v", cam.Title(), err)
		}
	}
	close(s.shutdownDone)
}

// Shutdown stops every acquisition process and closes the cameras, the
// returned channel closes once that is done.
func (s *Server) Shutdown() chan interface{} {
	s.shutdownOnce.Do(func() { go s.shutdown() })
	return s.shutdownDone
}
