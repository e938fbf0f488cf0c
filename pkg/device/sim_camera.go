package device

import (
	"context"
	"sync"
	"time"

	"github.com/tauraamui/framegrab/pkg/frame"
	"github.com/tauraamui/framegrab/pkg/log"
	"github.com/tauraamui/xerror"
)

type simCamera struct {
	id       string
	settings SimSettings
	features *featureSet
	pattern  *testPattern

	mu           sync.Mutex
	handler      func(Delivery)
	announced    []*frame.Buffer
	queued       []*frame.Buffer
	acquiring    bool
	closed       bool
	disconnected bool
	nextID       uint64
	delivered    int
	stop         chan struct{}
	done         chan struct{}
}

func newSimCamera(id string, settings SimSettings) *simCamera {
	cam := &simCamera{id: id, settings: settings, features: newFeatureSet(), pattern: &testPattern{label: id}}

	fs := cam.features
	fs.values[FeatureWidth] = settings.Geometry.W
	fs.values[FeatureHeight] = settings.Geometry.H
	fs.values[FeaturePixelFormat] = settings.Geometry.PixelFormat.String()
	fs.enums[FeaturePixelFormat] = []string{frame.Mono8.String(), frame.Mono16.String(), frame.RGB8.String()}
	fs.values[FeatureExposureTimeAbs] = 5000.0
	fs.values[FeatureGain] = 0.0
	fs.locked[FeatureWidth] = true
	fs.locked[FeatureHeight] = true
	fs.locked[FeaturePixelFormat] = true
	fs.isLocked = cam.hasAnnounced
	if settings.Transport == TransportGEV {
		fs.commands[CommandAdjustPacketSize] = func(ctx context.Context) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Millisecond):
				return nil
			}
		}
	}
	return cam
}

func (c *simCamera) ID() string { return c.id }

func (c *simCamera) TransportType() TransportType { return c.settings.Transport }

func (c *simCamera) Features() Features { return c.features }

func (c *simCamera) hasAnnounced() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.announced) > 0
}

func (c *simCamera) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *simCamera) payloadSize() (int, error) {
	g, err := ReadGeometry(c.features)
	if err != nil {
		return 0, err
	}
	return g.PayloadSize(), nil
}

func (c *simCamera) AnnounceBuffer(buf *frame.Buffer) error {
	size, err := c.payloadSize()
	if err != nil {
		return err
	}
	if buf.Len() < size {
		return xerror.Errorf("%w: %d < %d", ErrBufferTooSmall, buf.Len(), size)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.usableLocked(); err != nil {
		return err
	}
	if len(c.announced) >= c.settings.MaxAnnounced {
		return xerror.Errorf("%w: %d", ErrTooManyBuffers, c.settings.MaxAnnounced)
	}
	buf.SetIndex(len(c.announced))
	c.announced = append(c.announced, buf)
	return nil
}

func (c *simCamera) AllocAndAnnounceBuffer(size int) (*frame.Buffer, error) {
	buf, err := frame.NewBuffer(size, frame.Transport)
	if err != nil {
		return nil, err
	}
	if err := c.AnnounceBuffer(buf); err != nil {
		buf.Free()
		return nil, err
	}
	return buf, nil
}

func (c *simCamera) RevokeBuffer(buf *frame.Buffer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.acquiring {
		return ErrAcquisitionRunning
	}
	i := indexOf(c.announced, buf)
	if i < 0 {
		return ErrBufferNotAnnounced
	}
	c.announced = append(c.announced[:i], c.announced[i+1:]...)
	if q := indexOf(c.queued, buf); q >= 0 {
		c.queued = append(c.queued[:q], c.queued[q+1:]...)
	}
	if buf.Origin() == frame.Transport {
		buf.Free()
	}
	return nil
}

func (c *simCamera) QueueBuffer(buf *frame.Buffer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.usableLocked(); err != nil {
		return err
	}
	if indexOf(c.announced, buf) < 0 {
		return ErrBufferNotAnnounced
	}
	if indexOf(c.queued, buf) >= 0 {
		return nil
	}
	c.queued = append(c.queued, buf)
	return nil
}

func (c *simCamera) OnFrameReceived(h func(Delivery)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = h
}

func (c *simCamera) StartAcquisition() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.usableLocked(); err != nil {
		return err
	}
	if c.acquiring {
		return nil
	}
	if len(c.announced) == 0 {
		return xerror.New("no buffers announced, unable to start acquisition")
	}
	c.acquiring = true
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	go c.run(c.stop, c.done)
	return nil
}

func (c *simCamera) StopAcquisition() error {
	c.mu.Lock()
	if !c.acquiring {
		disconnected := c.disconnected
		c.mu.Unlock()
		if disconnected {
			return ErrDisconnected
		}
		return nil
	}
	stop, done := c.stop, c.done
	c.mu.Unlock()

	close(stop)
	<-done

	c.mu.Lock()
	defer c.mu.Unlock()
	c.acquiring = false
	if c.disconnected {
		return ErrDisconnected
	}
	return nil
}

func (c *simCamera) Close() error {
	if c.isClosed() {
		return nil
	}
	if err := c.StopAcquisition(); err != nil {
		log.Debug("Camera [%s] stop on close: %v", c.id, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, buf := range c.announced {
		if buf.Origin() == frame.Transport {
			buf.Free()
		}
	}
	c.announced = nil
	c.queued = nil
	c.handler = nil
	c.closed = true
	return nil
}

func (c *simCamera) usableLocked() error {
	if c.closed {
		return ErrCameraClosed
	}
	if c.disconnected {
		return ErrDisconnected
	}
	return nil
}

func (c *simCamera) run(stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(c.settings.FrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		d, handler, ok := c.capture()
		if !ok {
			continue
		}
		if handler == nil {
			if d.Buffer != nil {
				// nobody listening, the driver takes the buffer straight back
				c.requeue(d.Buffer)
			}
		} else {
			handler(d)
		}
		if d.Err != nil {
			return
		}
	}
}

// capture fills the next queued buffer, it reports false when no
// buffer was available and the frame was lost.
func (c *simCamera) capture() (Delivery, func(Delivery), bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.settings.DisconnectAfter > 0 && c.delivered >= c.settings.DisconnectAfter {
		c.disconnected = true
		return Delivery{Err: xerror.Errorf("%w: [%s]", ErrDisconnected, c.id)}, c.handler, true
	}

	c.nextID++
	if c.settings.SkipEvery > 0 && c.nextID%uint64(c.settings.SkipEvery) == 0 {
		c.nextID++
	}
	if len(c.queued) == 0 {
		return Delivery{}, nil, false
	}
	buf := c.queued[0]
	c.queued = c.queued[1:]

	id := c.nextID
	status := c.settings.StatusFor(id)
	g, err := ReadGeometry(c.features)
	if err != nil {
		status = frame.Aborted
	} else {
		c.pattern.fill(buf.Bytes(), g, id, status)
	}
	c.delivered++
	return Delivery{ID: id, Status: status, Buffer: buf}, c.handler, true
}

func (c *simCamera) requeue(buf *frame.Buffer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if indexOf(c.announced, buf) >= 0 && indexOf(c.queued, buf) < 0 {
		c.queued = append(c.queued, buf)
	}
}

func indexOf(bufs []*frame.Buffer, buf *frame.Buffer) int {
	for i, b := range bufs {
		if b == buf {
			return i
		}
	}
	return -1
}
