package capture

import (
	"sync"

	"github.com/tauraamui/framegrab/pkg/frame"
)

type deliveredFrame struct {
	id       uint64
	status   frame.Status
	geometry frame.Geometry
	buf      *frame.Buffer
	once     sync.Once
	release  func(*frame.Buffer)
}

func (f *deliveredFrame) ID() uint64 { return f.id }

func (f *deliveredFrame) Status() frame.Status { return f.status }

func (f *deliveredFrame) Dimensions() frame.Dimensions { return f.geometry.Dimensions }

func (f *deliveredFrame) PixelFormat() frame.PixelFormat { return f.geometry.PixelFormat }

func (f *deliveredFrame) Payload() []byte {
	b := f.buf.Bytes()
	if n := f.geometry.PayloadSize(); n < len(b) {
		return b[:n]
	}
	return b
}

func (f *deliveredFrame) Close() {
	f.once.Do(func() {
		if f.release != nil {
			f.release(f.buf)
		}
	})
}
