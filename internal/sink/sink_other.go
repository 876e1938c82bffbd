//go:build !windows && !linux

package sink

func newNative(cfg Config) (Device, error) {
	return nil, ErrNotAvailable
}
