package camera

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tauraamui/framegrab/pkg/analysis"
	"github.com/tauraamui/framegrab/pkg/device"
	"github.com/tauraamui/framegrab/pkg/frame"
	"github.com/tauraamui/framegrab/pkg/log"
	"github.com/tauraamui/xerror"
)

var ErrNoCameras = xerror.New("no cameras found")

const packetSizeTimeout = time.Second

type Connection interface {
	UUID() string
	Title() string
	Camera() device.Camera
	Settings() Settings
	Exposure() analysis.Exposure
	IsClosing() bool
	Close() error
}

type connection struct {
	uuid      string
	title     string
	sett      Settings
	mu        sync.Mutex
	isClosing bool
	cam       device.Camera
	exposure  analysis.Exposure
}

func (c *connection) UUID() string {
	return c.uuid
}

func (c *connection) Title() string {
	return c.title
}

func (c *connection) Camera() device.Camera {
	return c.cam
}

func (c *connection) Settings() Settings {
	return c.sett
}

func (c *connection) Exposure() analysis.Exposure {
	return c.exposure
}

func (c *connection) IsClosing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isClosing
}

func (c *connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isClosing = true
	return c.cam.Close()
}

// Select resolves which camera to open. An empty id picks the first
// camera the system lists.
func Select(sys device.System, id string) (string, error) {
	if len(id) > 0 {
		return id, nil
	}
	ids, err := sys.ListCameras()
	if err != nil {
		return "", xerror.Errorf("unable to list cameras: %w", err)
	}
	if len(ids) == 0 {
		return "", ErrNoCameras
	}
	return ids[0], nil
}

func connect(ctx context.Context, sys device.System, title, id string, settings Settings) (Connection, error) {
	id, err := Select(sys, id)
	if err != nil {
		return nil, err
	}

	cam, err := sys.Open(ctx, id)
	if err != nil {
		return nil, xerror.Errorf("Unable to connect to camera [%s]: %w", title, err)
	}

	if err := Configure(ctx, cam, settings); err != nil {
		cam.Close()
		return nil, xerror.Errorf("Unable to configure camera [%s]: %w", title, err)
	}

	return &connection{
		uuid:     uuid.NewString(),
		title:    title,
		cam:      cam,
		sett:     settings,
		exposure: ReadExposure(cam.Features()),
	}, nil
}

func Connect(sys device.System, title, id string, settings Settings) (Connection, error) {
	return connect(context.Background(), sys, title, id, settings)
}

func ConnectWithCancel(cancel context.Context, sys device.System, title, id string, settings Settings) (Connection, error) {
	return connect(cancel, sys, title, id, settings)
}

// Configure applies exposure, gain and pixel format, then lets GigE
// cameras negotiate their packet size. Must run before buffers are
// announced.
func Configure(ctx context.Context, cam device.Camera, settings Settings) error {
	features := cam.Features()

	if settings.ExposureTime > 0 && features.Has(device.FeatureExposureTimeAbs) {
		if err := features.Set(device.FeatureExposureTimeAbs, settings.ExposureTime); err != nil {
			return xerror.Errorf("unable to set exposure time: %w", err)
		}
	}

	if features.Has(device.FeatureGain) {
		if err := features.Set(device.FeatureGain, settings.Gain); err != nil {
			return xerror.Errorf("unable to set gain: %w", err)
		}
	}

	if err := setPixelFormat(features, settings.PixelFormat); err != nil {
		return err
	}

	if cam.TransportType() == device.TransportGEV && features.Has(device.CommandAdjustPacketSize) {
		log.Debug("Adjusting packet size of camera [%s]...", cam.ID())
		pctx, cancel := context.WithTimeout(ctx, packetSizeTimeout)
		defer cancel()
		if err := features.Run(pctx, device.CommandAdjustPacketSize); err != nil {
			log.Warn("Unable to adjust packet size of camera [%s]: %v", cam.ID(), err)
		}
	}
	return nil
}

// setPixelFormat uses the configured format, otherwise RGB8 when the
// camera offers it and Mono8 if not.
func setPixelFormat(features device.Features, configured string) error {
	if !features.Has(device.FeaturePixelFormat) {
		return nil
	}

	if len(configured) > 0 {
		pf, err := frame.ParsePixelFormat(configured)
		if err != nil {
			return err
		}
		if err := features.Set(device.FeaturePixelFormat, pf.String()); err != nil {
			return xerror.Errorf("unable to set pixel format %s: %w", pf, err)
		}
		return nil
	}

	entries, err := features.EnumEntries(device.FeaturePixelFormat)
	if err != nil && !errors.Is(err, device.ErrFeatureNotFound) {
		return xerror.Errorf("unable to list pixel formats: %w", err)
	}
	pf := frame.Mono8
	for _, e := range entries {
		if e == frame.RGB8.String() {
			pf = frame.RGB8
			break
		}
	}
	if err := features.Set(device.FeaturePixelFormat, pf.String()); err != nil {
		return xerror.Errorf("unable to set pixel format %s: %w", pf, err)
	}
	return nil
}

// ReadExposure reads back the exposure a camera will actually use,
// missing features read as zero.
func ReadExposure(features device.Features) analysis.Exposure {
	exp := analysis.Exposure{}
	if v, err := device.Float(features, device.FeatureExposureTimeAbs); err == nil {
		exp.Time = v
	}
	if v, err := device.Float(features, device.FeatureGain); err == nil {
		exp.Gain = v
	}
	return exp
}
