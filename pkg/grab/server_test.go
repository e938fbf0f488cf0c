package grab_test

import (
	"errors"
	"testing"

	"github.com/matryer/is"
	"github.com/tauraamui/framegrab/pkg/configdef"
	"github.com/tauraamui/framegrab/pkg/device"
	"github.com/tauraamui/framegrab/pkg/grab"
)

type testConfigResolver struct {
	resolveConfigs func() configdef.Values
	err            error
}

func (tcc testConfigResolver) Resolve() (configdef.Values, error) {
	if tcc.err != nil {
		return configdef.Values{}, tcc.err
	}
	if tcc.resolveConfigs != nil {
		return tcc.resolveConfigs(), nil
	}
	return configdef.Values{}, nil
}

func TestNewServer(t *testing.T) {
	is := is.New(t)
	s, err := grab.NewServer(testConfigResolver{}, device.Sim(device.SimSettings{}))
	is.NoErr(err)
	is.True(s != nil)
}

func TestNewServerFailsOnConfigError(t *testing.T) {
	is := is.New(t)
	s, err := grab.NewServer(testConfigResolver{err: errors.New("bad config")}, device.Sim(device.SimSettings{}))
	is.True(err != nil)
	is.True(s == nil)
}
