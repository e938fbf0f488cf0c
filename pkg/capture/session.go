package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tauraamui/framegrab/pkg/device"
	"github.com/tauraamui/framegrab/pkg/frame"
	"github.com/tauraamui/framegrab/pkg/log"
	"github.com/tauraamui/xerror"
)

const DefaultStopTimeout = 5 * time.Second

type State int

const (
	Idle State = iota
	Prepared
	Running
	Stopping
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Prepared:
		return "Prepared"
	case Running:
		return "Running"
	case Stopping:
		return "Stopping"
	case Stopped:
		return "Stopped"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type driveMode int

const (
	driveUnset driveMode = iota
	driveStreaming
	drivePolling
)

type Options struct {
	QueueCapacity int
}

type Stats struct {
	Delivered int
	Released  int
	Requeued  int
	Discarded int
}

// Session brackets one acquisition stream of a camera. Frames are
// either pulled with Next, from a consumer running alongside the
// device's frame handler, or with WaitForFrame. A session sticks to
// whichever of the two it is first driven with.
type Session struct {
	uuid          string
	cam           device.Camera
	queueCapacity int

	mu          sync.Mutex
	state       State
	pool        *Pool
	queue       *Queue
	drive       driveMode
	inflight    int
	outstanding int
	reclaimed   chan struct{}
	stopDone    chan struct{}
	deviceErr   error
	stats       Stats
}

func NewSession(cam device.Camera, opts Options) *Session {
	if opts.QueueCapacity < 1 {
		opts.QueueCapacity = DefaultQueueCapacity
	}
	return &Session{
		uuid:          uuid.NewString(),
		cam:           cam,
		queueCapacity: opts.QueueCapacity,
		state:         Idle,
	}
}

func (s *Session) UUID() string { return s.uuid }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Geometry is only known once the session has been prepared.
func (s *Session) Geometry() frame.Geometry {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pool == nil {
		return frame.Geometry{}
	}
	return s.pool.Geometry()
}

func (s *Session) Prepare(mode AllocationMode, bufferCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Idle {
		return xerror.Errorf("%w: cannot prepare from %s", ErrInvalidState, s.state)
	}

	pool, err := Prepare(s.cam, mode, bufferCount)
	if err != nil {
		return err
	}
	s.pool = pool
	s.state = Prepared
	return nil
}

// Start queues every buffer to the camera, attaches the frame handler
// and begins acquisition. A failed start rolls back to Prepared.
func (s *Session) Start() error {
	s.mu.Lock()
	if s.state != Prepared {
		defer s.mu.Unlock()
		return xerror.Errorf("%w: cannot start from %s", ErrInvalidState, s.state)
	}
	s.queue = NewQueue(s.queueCapacity)
	s.reclaimed = make(chan struct{})
	s.drive = driveUnset
	s.deviceErr = nil
	s.state = Running
	pool, queue := s.pool, s.queue
	s.mu.Unlock()

	if err := s.start(pool); err != nil {
		s.mu.Lock()
		s.state = Prepared
		s.mu.Unlock()

		s.cam.OnFrameReceived(nil)
		if stopErr := s.cam.StopAcquisition(); stopErr != nil {
			log.Debug("Stopping acquisition after failed start on camera [%s]: %v", s.cam.ID(), stopErr)
		}
		queue.Close()
		queue.drain(func(f frame.Frame) { f.Close() })
		return err
	}

	log.Info("Started acquisition on camera [%s] with %d buffers", s.cam.ID(), pool.Len())
	return nil
}

func (s *Session) start(pool *Pool) error {
	for _, buf := range pool.Buffers() {
		if err := s.cam.QueueBuffer(buf); err != nil {
			return xerror.Errorf("unable to queue buffer [%d]: %w", buf.Index(), err)
		}
	}
	s.cam.OnFrameReceived(s.onFrameReceived)
	if err := s.cam.StartAcquisition(); err != nil {
		return xerror.Errorf("unable to start acquisition: %w", err)
	}
	return nil
}

// onFrameReceived runs on the camera's delivery goroutine. It only wraps
// the delivery and hands it to the queue.
func (s *Session) onFrameReceived(d device.Delivery) {
	s.mu.Lock()
	if d.Err != nil {
		if s.deviceErr == nil {
			s.deviceErr = d.Err
		}
		if s.state == Running {
			s.state = Stopping
		}
		queue := s.queue
		s.checkReclaimedLocked()
		s.mu.Unlock()

		log.Error("Camera [%s] stream terminated: %v", s.cam.ID(), d.Err)
		if queue != nil {
			queue.Close()
		}
		return
	}

	if s.state != Running || d.Buffer == nil {
		s.stats.Discarded++
		s.mu.Unlock()
		return
	}
	s.inflight++
	s.outstanding++
	s.stats.Delivered++
	queue, geometry := s.queue, s.pool.Geometry()
	s.mu.Unlock()

	f := &deliveredFrame{id: d.ID, status: d.Status, geometry: geometry, buf: d.Buffer, release: s.release}
	if err := queue.Push(f); err != nil {
		log.Debug("Frame [%d] not queued: %v", d.ID, err)
		f.Close()
	}

	s.mu.Lock()
	s.inflight--
	s.checkReclaimedLocked()
	s.mu.Unlock()
}

// release hands a frame's buffer back, re-queueing it to the camera
// while the session is still running.
func (s *Session) release(buf *frame.Buffer) {
	s.mu.Lock()
	requeue := s.state == Running
	s.mu.Unlock()

	requeued := false
	if requeue {
		if err := s.cam.QueueBuffer(buf); err != nil {
			log.Warn("Unable to re-queue buffer [%d] to camera [%s]: %v", buf.Index(), s.cam.ID(), err)
		} else {
			requeued = true
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.outstanding--
	s.stats.Released++
	if requeued {
		s.stats.Requeued++
	}
	s.checkReclaimedLocked()
}

func (s *Session) heldFrames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.outstanding
}

func (s *Session) checkReclaimedLocked() {
	if s.state != Stopping || s.inflight > 0 || s.outstanding > 0 || s.reclaimed == nil {
		return
	}
	select {
	case <-s.reclaimed:
	default:
		close(s.reclaimed)
	}
}

func (s *Session) claimDrive(mode driveMode) (*Queue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.queue == nil {
		return nil, xerror.Errorf("%w: acquisition has not been started", ErrInvalidState)
	}
	if s.drive == driveUnset {
		s.drive = mode
	}
	if s.drive != mode {
		return nil, ErrMixedDriveMode
	}
	return s.queue, nil
}

func (s *Session) endOfStream(err error) error {
	if !errors.Is(err, ErrEndOfStream) {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deviceErr != nil {
		return s.deviceErr
	}
	return err
}

// Next blocks until the next frame arrives. Once the session stops it
// returns ErrEndOfStream, or the device error that ended the stream.
func (s *Session) Next() (frame.Frame, error) {
	queue, err := s.claimDrive(driveStreaming)
	if err != nil {
		return nil, err
	}
	f, err := queue.Pop()
	if err != nil {
		return nil, s.endOfStream(err)
	}
	return f, nil
}

// WaitForFrame returns ErrTimeout if no frame arrived within timeout,
// the caller may simply try again.
func (s *Session) WaitForFrame(timeout time.Duration) (frame.Frame, error) {
	queue, err := s.claimDrive(drivePolling)
	if err != nil {
		return nil, err
	}
	f, err := queue.PopTimeout(timeout)
	if err != nil {
		return nil, s.endOfStream(err)
	}
	return f, nil
}

// Stop ends acquisition and gives every buffer back. Frames still queued
// are left to the consumer, unless nothing drives the session as a
// consumer or ctx expires, in which case they are released here.
// Frames already handed out by Next or WaitForFrame are never taken back,
// Stop blocks until each of them is closed, even past ctx.
func (s *Session) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.stopDone != nil {
		done := s.stopDone
		s.mu.Unlock()
		<-done
		return nil
	}

	switch s.state {
	case Idle, Stopped:
		s.state = Stopped
		s.mu.Unlock()
		return nil
	case Prepared:
		defer s.mu.Unlock()
		if err := s.pool.Release(); err != nil {
			return err
		}
		s.state = Stopped
		return nil
	}

	s.state = Stopping
	s.stopDone = make(chan struct{})
	done, queue, pool, drive, reclaimed := s.stopDone, s.queue, s.pool, s.drive, s.reclaimed
	s.checkReclaimedLocked()
	s.mu.Unlock()
	defer close(done)

	log.Info("Stopping acquisition on camera [%s]...", s.cam.ID())
	s.cam.OnFrameReceived(nil)
	queue.Close()

	var stopErr error
	if err := s.cam.StopAcquisition(); err != nil {
		stopErr = xerror.Errorf("unable to stop acquisition: %w", err)
	}

	if drive != driveStreaming {
		queue.drain(func(f frame.Frame) { f.Close() })
	}

	select {
	case <-reclaimed:
	case <-ctx.Done():
		log.Warn("Frames from camera [%s] not drained in time, reclaiming them...", s.cam.ID())
		queue.drain(func(f frame.Frame) { f.Close() })
		select {
		case <-reclaimed:
		default:
			log.Warn("Waiting on %d frame(s) from camera [%s] still held open...", s.heldFrames(), s.cam.ID())
			<-reclaimed
		}
	}

	releaseErr := pool.Release()

	s.mu.Lock()
	s.state = Stopped
	deviceErr := s.deviceErr
	s.mu.Unlock()
	log.Info("Acquisition on camera [%s] stopped", s.cam.ID())

	switch {
	case deviceErr != nil:
		return xerror.Errorf("acquisition ended by device: %w", deviceErr)
	case stopErr != nil:
		return stopErr
	}
	return releaseErr
}

// Close stops the session if needed, it is meant to be deferred right
// after creating a session.
func (s *Session) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultStopTimeout)
	defer cancel()
	return s.Stop(ctx)
}
