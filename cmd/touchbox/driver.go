package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strconv"
	"time"

	"touchbox/internal/config"
	"touchbox/internal/gamepad"
	"touchbox/internal/logging"
	"touchbox/internal/mapper"
	"touchbox/internal/metrics"
)

// Shutdown reasons.
const (
	reasonSignal = "signal"
	reasonQuit   = "quit"
	reasonError  = "error"
)

// driver owns the single-threaded poll loop: read and map every pad, tick
// key repeat, apply pending reloads, sleep.
type driver struct {
	reader   *gamepad.Reader
	mapper   *mapper.Mapper
	interval time.Duration
	cfg      *config.Config

	// reloads delivers validated configurations from the watcher.
	reloads <-chan *config.Config

	// setLevel applies a reloaded log level. May be nil.
	setLevel func(logging.Level)

	metrics *metrics.Metrics
	audit   *logging.AuditLogger
	logger  *slog.Logger

	connected [gamepad.MaxUsers]bool
	sleep     func(ctx context.Context, d time.Duration)
}

func sleepContext(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// run loops until ctx is canceled, the quit button is pressed or mapping
// fails. It returns the shutdown reason.
func (d *driver) run(ctx context.Context) (string, error) {
	if d.sleep == nil {
		d.sleep = sleepContext
	}

	for {
		select {
		case <-ctx.Done():
			return reasonSignal, nil
		case cfg := <-d.reloads:
			d.apply(cfg)
		default:
		}

		start := time.Now()
		if err := d.reader.Read(d.mapper); err != nil {
			if errors.Is(err, mapper.ErrQuit) {
				return reasonQuit, nil
			}
			return reasonError, err
		}
		repeats := d.mapper.KeyRepeat()
		d.trackPads()

		if d.metrics != nil {
			d.metrics.Repeated(repeats)
			d.metrics.LoopDuration.Observe(time.Since(start).Seconds())
		}

		d.sleep(ctx, d.interval)
	}
}

// shutdown releases every held key and records why the loop ended. cause
// is the error that stopped the loop, if any.
func (d *driver) shutdown(reason string, cause error) int {
	released := d.mapper.ReleaseAll()
	d.logger.Info("shutting down", "reason", reason, "released", released)
	if d.audit != nil {
		if cause != nil {
			if err := d.audit.LogError("poll", cause); err != nil {
				d.logger.Warn("audit error", "error", err)
			}
		}
		if err := d.audit.LogShutdown(reason, released); err != nil {
			d.logger.Warn("audit shutdown", "error", err)
		}
	}
	return released
}

func (d *driver) trackPads() {
	n := 0
	for user := range d.connected {
		now := d.reader.Connected(user)
		if now {
			n++
		}
		if now == d.connected[user] {
			continue
		}
		d.connected[user] = now
		if d.audit != nil {
			if err := d.audit.LogPad(user, now); err != nil {
				d.logger.Warn("audit pad", "user", user, "error", err)
			}
		}
	}
	if d.metrics != nil {
		d.metrics.PadsConnected.Set(float64(n))
	}
}

// apply installs a reloaded configuration. Thresholds, bindings, poll
// interval and log level take effect immediately; repeat timing, sink,
// audit and metrics settings need a restart.
func (d *driver) apply(cfg *config.Config) {
	table, err := cfg.BindingTable()
	if err != nil {
		// The loader validates before delivering, so this is unexpected.
		d.logger.Error("reload bindings", "error", err)
		if d.metrics != nil {
			d.metrics.Reloaded(err)
		}
		return
	}

	old := d.cfg
	d.reader.SetThresholds(cfg.Input.Thresholds())
	d.mapper.Rebind(table)
	d.interval = cfg.Input.PollInterval()
	if d.setLevel != nil {
		if level, err := logging.ParseLevel(cfg.Logging.Level); err == nil {
			d.setLevel(level)
		}
	}
	d.cfg = cfg

	changes := configChanges(old, cfg)
	for _, c := range changes {
		d.logger.Info("config changed", "setting", c.setting, "old", c.old, "new", c.cur)
		if d.audit != nil {
			if err := d.audit.LogConfigChange(c.setting, c.old, c.cur); err != nil {
				d.logger.Warn("audit config change", "error", err)
			}
		}
	}
	if old != nil && restartRequired(old, cfg) {
		d.logger.Warn("repeat, sink, audit and metrics settings apply after restart")
	}
	if d.metrics != nil {
		d.metrics.Reloaded(nil)
	}
}

type change struct {
	setting, old, cur string
}

func configChanges(old, cur *config.Config) []change {
	if old == nil {
		return nil
	}
	var out []change
	add := func(setting string, a, b any) {
		as, bs := fmt.Sprint(a), fmt.Sprint(b)
		if as != bs {
			out = append(out, change{setting, as, bs})
		}
	}

	add("input.poll_interval_ms", old.Input.PollIntervalMs, cur.Input.PollIntervalMs)
	add("input.left_deadzone", old.Input.LeftDeadzone, cur.Input.LeftDeadzone)
	add("input.right_deadzone", old.Input.RightDeadzone, cur.Input.RightDeadzone)
	add("input.trigger_threshold", old.Input.TriggerThreshold, cur.Input.TriggerThreshold)
	add("repeat.initial_delay_ms", old.Repeat.InitialDelayMs, cur.Repeat.InitialDelayMs)
	add("repeat.repeat_interval_ms", old.Repeat.RepeatIntervalMs, cur.Repeat.RepeatIntervalMs)
	add("logging.level", old.Logging.Level, cur.Logging.Level)

	for _, b := range gamepad.Buttons {
		name := b.String()
		add("bindings."+name, bindingOf(old, b), bindingOf(cur, b))
	}
	return out
}

func bindingOf(cfg *config.Config, b gamepad.Button) string {
	table, err := cfg.BindingTable()
	if err != nil {
		return "invalid"
	}
	if a, ok := table.Lookup(b); ok {
		return a.String()
	}
	return "none"
}

func restartRequired(old, cur *config.Config) bool {
	return old.Repeat != cur.Repeat ||
		old.Sink != cur.Sink ||
		old.Audit != cur.Audit ||
		old.Metrics != cur.Metrics ||
		old.Input.MaxPads != cur.Input.MaxPads ||
		!reflect.DeepEqual(old.Input.Devices, cur.Input.Devices)
}

// forward sends cfg on ch, replacing a reload the driver has not picked up
// yet.
func forward(ch chan *config.Config, cfg *config.Config) {
	for {
		select {
		case ch <- cfg:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func formatMs(ms int) string {
	if ms == 0 {
		return "system"
	}
	return strconv.Itoa(ms) + "ms"
}
