//go:build !windows && !linux

package gamepad

func newPlatformSource(cfg SourceConfig) (Source, error) {
	return nil, ErrNotAvailable
}
