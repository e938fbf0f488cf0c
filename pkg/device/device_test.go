package device_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/tauraamui/framegrab/pkg/device"
	"github.com/tauraamui/framegrab/pkg/frame"
)

var smallGeometry = frame.Geometry{Dimensions: frame.Dimensions{W: 16, H: 8}, PixelFormat: frame.Mono8}

func openSimCamera(t *testing.T, settings device.SimSettings) (device.System, device.Camera) {
	t.Helper()
	is := is.New(t)
	if settings.Geometry.W == 0 {
		settings.Geometry = smallGeometry
	}
	if settings.FrameInterval == 0 {
		settings.FrameInterval = time.Millisecond
	}
	sys := device.Sim(settings)
	ids, err := sys.ListCameras()
	is.NoErr(err)
	is.True(len(ids) > 0)
	cam, err := sys.Open(context.Background(), ids[0])
	is.NoErr(err)
	return sys, cam
}

func announce(t *testing.T, cam device.Camera, count int) []*frame.Buffer {
	t.Helper()
	is := is.New(t)
	g, err := device.ReadGeometry(cam.Features())
	is.NoErr(err)
	bufs := []*frame.Buffer{}
	for i := 0; i < count; i++ {
		buf, err := frame.NewBuffer(g.PayloadSize(), frame.Application)
		is.NoErr(err)
		is.NoErr(cam.AnnounceBuffer(buf))
		is.NoErr(cam.QueueBuffer(buf))
		bufs = append(bufs, buf)
	}
	return bufs
}

func TestResolveReturnsSimBackend(t *testing.T) {
	is := is.New(t)
	is.True(device.Resolve("sim") != nil)
	is.True(device.Resolve("") != nil)
	is.True(device.Default() != nil)
}

func TestOpenUnknownCameraFails(t *testing.T) {
	is := is.New(t)
	sys := device.Sim(device.SimSettings{})
	cam, err := sys.Open(context.Background(), "DEV_DOES_NOT_EXIST")
	is.True(cam == nil)
	is.True(errors.Is(err, device.ErrCameraNotFound))
}

func TestOpenWithCancelledContextFails(t *testing.T) {
	is := is.New(t)
	sys := device.Sim(device.SimSettings{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := sys.Open(ctx, "DEV_SIM_0001")
	is.True(errors.Is(err, context.Canceled))
}

func TestReadGeometryFromSimFeatures(t *testing.T) {
	is := is.New(t)
	sys, cam := openSimCamera(t, device.SimSettings{})
	defer sys.Close()

	g, err := device.ReadGeometry(cam.Features())
	is.NoErr(err)
	is.Equal(g, smallGeometry)
}

func TestAnnounceRejectsUndersizedBuffer(t *testing.T) {
	is := is.New(t)
	sys, cam := openSimCamera(t, device.SimSettings{})
	defer sys.Close()

	buf, err := frame.NewBuffer(4, frame.Application)
	is.NoErr(err)
	defer buf.Free()
	is.True(errors.Is(cam.AnnounceBuffer(buf), device.ErrBufferTooSmall))
}

func TestGeometryFeaturesLockWhileBuffersAnnounced(t *testing.T) {
	is := is.New(t)
	sys, cam := openSimCamera(t, device.SimSettings{})
	defer sys.Close()

	bufs := announce(t, cam, 2)
	err := cam.Features().Set(device.FeatureWidth, 32)
	is.True(errors.Is(err, device.ErrFeatureLocked))

	// non geometry features stay writable
	is.NoErr(cam.Features().Set(device.FeatureGain, 3.0))

	for _, b := range bufs {
		is.NoErr(cam.RevokeBuffer(b))
		b.Free()
	}
	is.NoErr(cam.Features().Set(device.FeatureWidth, 32))
}

func TestSimDeliversFramesInCompletionOrder(t *testing.T) {
	is := is.New(t)
	sys, cam := openSimCamera(t, device.SimSettings{SkipEvery: 3})
	defer sys.Close()
	announce(t, cam, 3)

	mu := sync.Mutex{}
	ids := []uint64{}
	got := make(chan struct{})
	cam.OnFrameReceived(func(d device.Delivery) {
		mu.Lock()
		defer mu.Unlock()
		ids = append(ids, d.ID)
		if len(ids) == 8 {
			close(got)
		}
		if len(ids) <= 8 {
			_ = cam.QueueBuffer(d.Buffer)
		}
	})
	is.NoErr(cam.StartAcquisition())

	select {
	case <-got:
	case <-time.After(3 * time.Second):
		t.Fatal("test timeout 3s limit exceeded")
	}
	is.NoErr(cam.StopAcquisition())

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(ids); i++ {
		is.True(ids[i] > ids[i-1])
		is.True(ids[i]%3 != 0)
	}
}

func TestSimDisconnectIsTerminal(t *testing.T) {
	is := is.New(t)
	sys, cam := openSimCamera(t, device.SimSettings{DisconnectAfter: 2})
	defer sys.Close()
	announce(t, cam, 4)

	errs := make(chan error, 1)
	cam.OnFrameReceived(func(d device.Delivery) {
		if d.Err != nil {
			errs <- d.Err
		}
	})
	is.NoErr(cam.StartAcquisition())

	select {
	case err := <-errs:
		is.True(errors.Is(err, device.ErrDisconnected))
	case <-time.After(3 * time.Second):
		t.Fatal("test timeout 3s limit exceeded")
	}
	is.True(errors.Is(cam.StopAcquisition(), device.ErrDisconnected))
}

func TestTransportBuffersFreedOnClose(t *testing.T) {
	is := is.New(t)
	baseline := frame.LiveBuffers()
	sys, cam := openSimCamera(t, device.SimSettings{})

	for i := 0; i < 5; i++ {
		_, err := cam.AllocAndAnnounceBuffer(smallGeometry.PayloadSize())
		is.NoErr(err)
	}
	is.Equal(frame.LiveBuffers(), baseline+5)

	is.NoErr(cam.Close())
	is.NoErr(sys.Close())
	is.Equal(frame.LiveBuffers(), baseline)
}

func TestPacketSizeCommandOnlyOnGigE(t *testing.T) {
	is := is.New(t)
	sys, cam := openSimCamera(t, device.SimSettings{Transport: device.TransportGEV})
	defer sys.Close()
	is.True(cam.Features().Has(device.CommandAdjustPacketSize))
	is.NoErr(cam.Features().Run(context.Background(), device.CommandAdjustPacketSize))

	usbSys, usbCam := openSimCamera(t, device.SimSettings{Transport: device.TransportU3V})
	defer usbSys.Close()
	is.True(!usbCam.Features().Has(device.CommandAdjustPacketSize))
}
