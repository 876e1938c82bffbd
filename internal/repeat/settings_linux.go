//go:build linux

package repeat

import (
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"
)

// The desktop portal exposes the GNOME keyboard schema read-only to
// unprivileged clients, which avoids linking against dconf.
const (
	portalDest      = "org.freedesktop.portal.Desktop"
	portalPath      = dbus.ObjectPath("/org/freedesktop/portal/desktop")
	portalRead      = "org.freedesktop.portal.Settings.Read"
	keyboardSchema  = "org.gnome.desktop.peripherals.keyboard"
	keyDelay        = "delay"
	keyRepeatPeriod = "repeat-interval"
)

// QuerySettings reads the GNOME keyboard repeat delay and interval over the
// session bus and maps them to the nearest delay/speed settings.
func QuerySettings() (Settings, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return Settings{}, fmt.Errorf("connect session bus: %w", err)
	}
	obj := conn.Object(portalDest, portalPath)

	delay, err := readUint(obj, keyDelay)
	if err != nil {
		return Settings{}, err
	}
	interval, err := readUint(obj, keyRepeatPeriod)
	if err != nil {
		return Settings{}, err
	}

	return SettingsForDurations(
		time.Duration(delay)*time.Millisecond,
		time.Duration(interval)*time.Millisecond,
	), nil
}

func readUint(obj dbus.BusObject, key string) (uint32, error) {
	var v dbus.Variant
	if err := obj.Call(portalRead, 0, keyboardSchema, key).Store(&v); err != nil {
		return 0, fmt.Errorf("read %s.%s: %w", keyboardSchema, key, err)
	}

	// Read wraps the value in one or two variants depending on portal version.
	value := v.Value()
	for {
		inner, ok := value.(dbus.Variant)
		if !ok {
			break
		}
		value = inner.Value()
	}

	switch n := value.(type) {
	case uint32:
		return n, nil
	case int32:
		if n < 0 {
			return 0, fmt.Errorf("read %s.%s: negative value %d", keyboardSchema, key, n)
		}
		return uint32(n), nil
	default:
		return 0, fmt.Errorf("read %s.%s: unexpected type %T", keyboardSchema, key, value)
	}
}
