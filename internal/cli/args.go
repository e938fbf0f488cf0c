package cli

import (
	"strconv"

	"github.com/tauraamui/framegrab/pkg/capture"
	"github.com/tauraamui/xerror"
)

// ErrUsage means the arguments were invalid or help was asked for, the
// caller prints the usage text and exits without doing anything.
var ErrUsage = xerror.New("usage requested")

type Args struct {
	AllocationMode capture.AllocationMode
	CameraID       string
	FrameCount     int
}

const AsyncUsage = `Usage:
  asyncgrab [ -x ] [cameraId]
  asyncgrab [ -h ]

Parameters:
  [ -x ]      If present, frame buffers are allocated by the transport layer
  cameraId    ID of the camera to use (using the first camera found if not specified)
  [ -h ]      Display this usage information
`

const SyncUsage = `Usage:
  syncgrab [ -x ] [cameraId] -fc frameCount
  syncgrab [ -h ]

Parameters:
  [ -x ]      If present, frame buffers are allocated by the transport layer
  cameraId    ID of the camera to use (using the first camera found if not specified)
  frameCount  Number of frames to capture
  [ -h ]      Display this usage information
`

// ParseAsyncArgs accepts an optional -x followed by an optional camera id.
func ParseAsyncArgs(args []string) (Args, error) {
	parsed := Args{AllocationMode: capture.ApplicationAnnounced}
	if len(args) > 2 {
		return Args{}, ErrUsage
	}
	if len(args) > 0 && args[0] == "-x" {
		parsed.AllocationMode = capture.TransportAllocated
		args = args[1:]
	}
	switch len(args) {
	case 0:
		return parsed, nil
	case 1:
		if isFlag(args[0]) {
			return Args{}, ErrUsage
		}
		parsed.CameraID = args[0]
		return parsed, nil
	}
	return Args{}, ErrUsage
}

// ParseSyncArgs accepts the async arguments followed by a mandatory
// -fc frameCount pair.
func ParseSyncArgs(args []string) (Args, error) {
	fc := -1
	for i, arg := range args {
		if arg == "-fc" {
			fc = i
			break
		}
	}
	if fc < 0 || fc+2 != len(args) {
		return Args{}, ErrUsage
	}

	count, err := strconv.Atoi(args[fc+1])
	if err != nil || count < 1 {
		return Args{}, ErrUsage
	}

	parsed, err := ParseAsyncArgs(args[:fc])
	if err != nil {
		return Args{}, err
	}
	parsed.FrameCount = count
	return parsed, nil
}

func isFlag(arg string) bool {
	return len(arg) > 0 && arg[0] == '-'
}
