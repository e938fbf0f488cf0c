package capture

import (
	"errors"
	"strings"
	"sync"

	"github.com/tauraamui/framegrab/pkg/device"
	"github.com/tauraamui/framegrab/pkg/frame"
	"github.com/tauraamui/framegrab/pkg/log"
	"github.com/tauraamui/xerror"
)

const DefaultBufferCount = 5

type AllocationMode int

const (
	// ApplicationAnnounced buffers are allocated here and announced to the
	// driver up front, they stay the same for the whole session.
	ApplicationAnnounced AllocationMode = iota
	// TransportAllocated buffers are allocated by the transport layer.
	TransportAllocated
)

func (m AllocationMode) String() string {
	if m == TransportAllocated {
		return "alloc_and_announce"
	}
	return "announce"
}

func ParseAllocationMode(s string) (AllocationMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "announce":
		return ApplicationAnnounced, nil
	case "alloc_and_announce":
		return TransportAllocated, nil
	}
	return 0, xerror.Errorf("unknown allocation mode: %s", s)
}

var allocateBuffer = frame.NewBuffer

// Pool owns the buffers announced to a camera for one session.
type Pool struct {
	cam      device.Camera
	mode     AllocationMode
	geometry frame.Geometry
	mu       sync.Mutex
	buffers  []*frame.Buffer
	released bool
}

// Prepare allocates and announces bufferCount buffers sized from the
// camera's current geometry. On failure nothing stays announced or allocated.
func Prepare(cam device.Camera, mode AllocationMode, bufferCount int) (*Pool, error) {
	if bufferCount < 1 {
		return nil, xerror.Errorf("%w: %d", ErrInvalidBufferCount, bufferCount)
	}

	geometry, err := device.ReadGeometry(cam.Features())
	if err != nil {
		return nil, xerror.Errorf("unable to resolve capture geometry: %w", err)
	}

	p := &Pool{cam: cam, mode: mode, geometry: geometry}
	for i := 0; i < bufferCount; i++ {
		buf, err := p.announce(geometry.PayloadSize())
		if err != nil {
			if releaseErr := p.Release(); releaseErr != nil {
				log.Error("unable to release partially prepared pool: %v", releaseErr)
			}
			return nil, err
		}
		p.buffers = append(p.buffers, buf)
	}

	log.Debug("Announced %d %s buffers of %d bytes to camera [%s]", bufferCount, mode, geometry.PayloadSize(), cam.ID())
	return p, nil
}

func (p *Pool) announce(size int) (*frame.Buffer, error) {
	if p.mode == TransportAllocated {
		buf, err := p.cam.AllocAndAnnounceBuffer(size)
		if err != nil {
			if errors.Is(err, frame.ErrAllocationFailed) {
				return nil, xerror.Errorf("transport layer: %w", err)
			}
			return nil, xerror.Errorf("%w: %v", ErrDeviceRejected, err)
		}
		return buf, nil
	}

	buf, err := allocateBuffer(size, frame.Application)
	if err != nil {
		return nil, xerror.Errorf("%w: %d bytes", ErrAllocationFailed, size)
	}
	if err := p.cam.AnnounceBuffer(buf); err != nil {
		buf.Free()
		return nil, xerror.Errorf("%w: %v", ErrDeviceRejected, err)
	}
	return buf, nil
}

func (p *Pool) Mode() AllocationMode { return p.mode }

func (p *Pool) Geometry() frame.Geometry { return p.geometry }

func (p *Pool) Buffers() []*frame.Buffer {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*frame.Buffer{}, p.buffers...)
}

func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buffers)
}

func (p *Pool) Released() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.released
}

// Release revokes every buffer from the camera and frees the ones this
// pool allocated. It must only run once acquisition has stopped. A buffer
// the camera refuses to give back while acquiring is kept, not freed.
func (p *Pool) Release() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.released {
		return nil
	}

	var kept []*frame.Buffer
	var firstErr error
	for _, buf := range p.buffers {
		err := p.cam.RevokeBuffer(buf)
		if errors.Is(err, device.ErrAcquisitionRunning) {
			kept = append(kept, buf)
			if firstErr == nil {
				firstErr = xerror.Errorf("unable to revoke buffer [%d]: %w", buf.Index(), err)
			}
			continue
		}
		if err != nil {
			log.Debug("Revoking buffer [%d] from camera [%s]: %v", buf.Index(), p.cam.ID(), err)
		}
		if buf.Origin() == frame.Application {
			buf.Free()
		}
	}

	p.buffers = kept
	p.released = len(kept) == 0
	return firstErr
}
