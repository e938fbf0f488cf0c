package capture_test

import (
	"context"
	"errors"
	"sync"

	"github.com/tauraamui/framegrab/pkg/device"
	"github.com/tauraamui/framegrab/pkg/frame"
)

type mockFeatures struct {
	mu     sync.Mutex
	values map[string]interface{}
}

func newMockFeatures(g frame.Geometry) *mockFeatures {
	return &mockFeatures{values: map[string]interface{}{
		device.FeatureWidth:       g.W,
		device.FeatureHeight:      g.H,
		device.FeaturePixelFormat: g.PixelFormat.String(),
	}}
}

func (m *mockFeatures) Has(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.values[name]
	return ok
}

func (m *mockFeatures) Get(name string) (interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[name]
	if !ok {
		return nil, device.ErrFeatureNotFound
	}
	return v, nil
}

func (m *mockFeatures) Set(name string, v interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[name] = v
	return nil
}

func (m *mockFeatures) EnumEntries(string) ([]string, error) { return nil, nil }

func (m *mockFeatures) Run(context.Context, string) error { return nil }

// mockCamera never delivers on its own, tests call deliver from
// whichever goroutine plays the driver.
type mockCamera struct {
	features *mockFeatures

	mu            sync.Mutex
	idle          *sync.Cond
	handler       func(device.Delivery)
	announced     []*frame.Buffer
	queued        []*frame.Buffer
	acquiring     bool
	delivering    int
	nextID        uint64
	announceLimit int
	startErr      error
	revokeCalls   int
	queueCalls    int
}

func newMockCamera(g frame.Geometry) *mockCamera {
	cam := &mockCamera{features: newMockFeatures(g)}
	cam.idle = sync.NewCond(&cam.mu)
	return cam
}

func (c *mockCamera) ID() string { return "DEV_MOCK" }

func (c *mockCamera) TransportType() device.TransportType { return device.TransportU3V }

func (c *mockCamera) Features() device.Features { return c.features }

func (c *mockCamera) AnnounceBuffer(buf *frame.Buffer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.announceLimit > 0 && len(c.announced) >= c.announceLimit {
		return device.ErrTooManyBuffers
	}
	buf.SetIndex(len(c.announced))
	c.announced = append(c.announced, buf)
	return nil
}

func (c *mockCamera) AllocAndAnnounceBuffer(size int) (*frame.Buffer, error) {
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

func (c *mockCamera) RevokeBuffer(buf *frame.Buffer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.revokeCalls++
	if c.acquiring {
		return device.ErrAcquisitionRunning
	}
	for i, b := range c.announced {
		if b == buf {
			c.announced = append(c.announced[:i], c.announced[i+1:]...)
			if buf.Origin() == frame.Transport {
				buf.Free()
			}
			return nil
		}
	}
	return device.ErrBufferNotAnnounced
}

func (c *mockCamera) QueueBuffer(buf *frame.Buffer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queueCalls++
	c.queued = append(c.queued, buf)
	return nil
}

func (c *mockCamera) StartAcquisition() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.startErr != nil {
		return c.startErr
	}
	c.acquiring = true
	return nil
}

func (c *mockCamera) StopAcquisition() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.acquiring = false
	for c.delivering > 0 {
		c.idle.Wait()
	}
	return nil
}

func (c *mockCamera) OnFrameReceived(h func(device.Delivery)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = h
}

func (c *mockCamera) Close() error { return nil }

func (c *mockCamera) announcedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.announced)
}

var errNothingQueued = errors.New("no buffer queued")

// deliver fills the oldest queued buffer and runs the frame handler
// with it on the calling goroutine.
func (c *mockCamera) deliver(status frame.Status) error {
	c.mu.Lock()
	if !c.acquiring || c.handler == nil {
		c.mu.Unlock()
		return errors.New("not acquiring")
	}
	if len(c.queued) == 0 {
		c.mu.Unlock()
		return errNothingQueued
	}
	buf := c.queued[0]
	c.queued = c.queued[1:]
	c.nextID++
	id, handler := c.nextID, c.handler
	c.delivering++
	c.mu.Unlock()

	if data := buf.Bytes(); len(data) > 0 {
		for i := range data {
			data[i] = byte(id)
		}
	}
	handler(device.Delivery{ID: id, Status: status, Buffer: buf})

	c.mu.Lock()
	c.delivering--
	c.idle.Broadcast()
	c.mu.Unlock()
	return nil
}

func (c *mockCamera) fail(err error) {
	c.mu.Lock()
	handler := c.handler
	c.mu.Unlock()
	if handler != nil {
		handler(device.Delivery{Err: err})
	}
}

type mockFrame struct {
	id      uint64
	status  frame.Status
	data    []byte
	onClose func()
}

func (m *mockFrame) ID() uint64 { return m.id }

func (m *mockFrame) Status() frame.Status { return m.status }

func (m *mockFrame) Dimensions() frame.Dimensions { return frame.Dimensions{W: len(m.data), H: 1} }

func (m *mockFrame) PixelFormat() frame.PixelFormat { return frame.Mono8 }

func (m *mockFrame) Payload() []byte { return m.data }

func (m *mockFrame) Close() {
	if m.onClose != nil {
		m.onClose()
	}
}
