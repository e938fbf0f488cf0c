package capture

import "github.com/tauraamui/framegrab/pkg/frame"

func OverloadAllocateBuffer(overload func(int, frame.Origin) (*frame.Buffer, error)) func() {
	allocateBufferRef := allocateBuffer
	allocateBuffer = overload
	return func() { allocateBuffer = allocateBufferRef }
}
