//go:build !windows && !linux

package repeat

// QuerySettings is not available on this platform.
func QuerySettings() (Settings, error) {
	return Settings{}, ErrNotSupported
}
