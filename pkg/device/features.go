package device

import (
	"context"
	"sync"

	"github.com/tauraamui/xerror"
)

func Int(f Features, name string) (int, error) {
	v, err := f.Get(name)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	}
	return 0, xerror.Errorf("feature %s is not an integer: %v", name, v)
}

func Float(f Features, name string) (float64, error) {
	v, err := f.Get(name)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	}
	return 0, xerror.Errorf("feature %s is not a float: %v", name, v)
}

func String(f Features, name string) (string, error) {
	v, err := f.Get(name)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", xerror.Errorf("feature %s is not a string: %v", name, v)
	}
	return s, nil
}

type featureSet struct {
	mu       sync.Mutex
	values   map[string]interface{}
	enums    map[string][]string
	commands map[string]func(context.Context) error
	locked   map[string]bool
	isLocked func() bool
}

func newFeatureSet() *featureSet {
	return &featureSet{
		values:   map[string]interface{}{},
		enums:    map[string][]string{},
		commands: map[string]func(context.Context) error{},
		locked:   map[string]bool{},
	}
}

func (fs *featureSet) Has(name string) bool {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if _, ok := fs.values[name]; ok {
		return true
	}
	_, ok := fs.commands[name]
	return ok
}

func (fs *featureSet) Get(name string) (interface{}, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	v, ok := fs.values[name]
	if !ok {
		return nil, xerror.Errorf("%w: %s", ErrFeatureNotFound, name)
	}
	return v, nil
}

func (fs *featureSet) Set(name string, v interface{}) error {
	fs.mu.Lock()
	lockable, isLocked := fs.locked[name], fs.isLocked
	fs.mu.Unlock()
	// isLocked takes the camera lock, it must never run under fs.mu
	if lockable && isLocked != nil && isLocked() {
		return xerror.Errorf("%w: %s", ErrFeatureLocked, name)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	current, ok := fs.values[name]
	if !ok {
		return xerror.Errorf("%w: %s", ErrFeatureNotFound, name)
	}

	if entries, isEnum := fs.enums[name]; isEnum {
		s, ok := v.(string)
		if !ok || !contains(entries, s) {
			return xerror.Errorf("invalid value %v for enum feature %s", v, name)
		}
		fs.values[name] = s
		return nil
	}

	switch current.(type) {
	case int:
		n, ok := v.(int)
		if !ok {
			return xerror.Errorf("feature %s expects an integer, got %T", name, v)
		}
		fs.values[name] = n
	case float64:
		switch n := v.(type) {
		case float64:
			fs.values[name] = n
		case int:
			fs.values[name] = float64(n)
		default:
			return xerror.Errorf("feature %s expects a float, got %T", name, v)
		}
	default:
		fs.values[name] = v
	}
	return nil
}

func (fs *featureSet) EnumEntries(name string) ([]string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	entries, ok := fs.enums[name]
	if !ok {
		return nil, xerror.Errorf("%w: %s", ErrFeatureNotFound, name)
	}
	return append([]string{}, entries...), nil
}

func (fs *featureSet) Run(ctx context.Context, command string) error {
	fs.mu.Lock()
	cmd, ok := fs.commands[command]
	fs.mu.Unlock()
	if !ok {
		return xerror.Errorf("%w: %s", ErrFeatureNotFound, command)
	}
	return cmd(ctx)
}

func contains(entries []string, s string) bool {
	for _, e := range entries {
		if e == s {
			return true
		}
	}
	return false
}
