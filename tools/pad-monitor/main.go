// Command pad-monitor is a manual testing tool for controller input.
//
// It polls the controllers the same way touchbox does and prints every
// state change along with the scancode each trigger and shoulder would
// type, without injecting any keys.
//
// Usage:
//
//	go build -o pad-monitor ./tools/pad-monitor
//	./pad-monitor [-config path] [-users n] [-interval 4ms]
//
// Requirements:
//   - Windows: an XInput controller
//   - Linux: read access to the controller's /dev/input/event* node
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"touchbox/internal/analog"
	"touchbox/internal/config"
	"touchbox/internal/gamepad"
)

// monitor prints every callback it receives.
type monitor struct {
	start   time.Time
	updates int
}

func (m *monitor) stamp() string {
	return fmt.Sprintf("%10s", time.Since(m.start).Truncate(time.Millisecond))
}

func (m *monitor) ButtonsChanged(user int, old, cur gamepad.State) error {
	m.updates++
	edges := gamepad.Diff(old.Buttons, cur.Buttons)
	for _, b := range gamepad.Buttons {
		switch {
		case edges.Pressed(b):
			fmt.Printf("%s pad%d packet %-6d %-10s down\n", m.stamp(), user, cur.Packet, b)
		case edges.Released(b):
			fmt.Printf("%s pad%d packet %-6d %-10s up\n", m.stamp(), user, cur.Packet, b)
		}
	}
	return nil
}

func (m *monitor) LeftZoneChanged(user int, old, cur gamepad.State) error {
	m.updates++
	m.zone(user, analog.Left, old.Left, cur.Left)
	return nil
}

func (m *monitor) RightZoneChanged(user int, old, cur gamepad.State) error {
	m.updates++
	m.zone(user, analog.Right, old.Right, cur.Right)
	return nil
}

func (m *monitor) zone(user int, side analog.Side, old, cur analog.Zone) {
	trigger := analog.Scancode(side, -int(cur.Y), int(cur.X))
	shoulder := analog.Scancode(side, -int(cur.Y), 2*int(cur.X))
	fmt.Printf("%s pad%d %-5s stick %s -> %s  trigger 0x%02x  shoulder 0x%02x\n",
		m.stamp(), user, side, old, cur, trigger, shoulder)
}

func (m *monitor) LeftTriggerChanged(user int, cur gamepad.State) error {
	m.updates++
	m.trigger(user, analog.Left, cur.LeftTrigger)
	return nil
}

func (m *monitor) RightTriggerChanged(user int, cur gamepad.State) error {
	m.updates++
	m.trigger(user, analog.Right, cur.RightTrigger)
	return nil
}

func (m *monitor) trigger(user int, side analog.Side, pulled bool) {
	state := "released"
	if pulled {
		state = "pulled"
	}
	fmt.Printf("%s pad%d %-5s trigger %s\n", m.stamp(), user, side, state)
}

func main() {
	configPath := flag.String("config", "", "Config file for thresholds and devices")
	users := flag.Int("users", gamepad.MaxUsers, "Controller slots to poll")
	interval := flag.Duration("interval", 4*time.Millisecond, "Poll interval")
	flag.Parse()

	path := *configPath
	if path == "" {
		path = config.FindConfigFile()
	}
	cfg := config.DefaultConfig()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			fmt.Printf("ERROR: load config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	fmt.Println("Controller Monitor")
	fmt.Println("==================")
	fmt.Println()
	t := cfg.Input.Thresholds()
	fmt.Printf("Deadzones: left %d, right %d; trigger threshold %d\n",
		t.LeftDeadzone, t.RightDeadzone, t.TriggerThreshold)

	fmt.Print("Opening controllers... ")
	src, err := gamepad.Open(gamepad.SourceConfig{Devices: cfg.Input.Devices})
	if err != nil {
		fmt.Printf("FAILED: %v\n", err)
		os.Exit(1)
	}
	defer src.Close()
	fmt.Println("OK")
	fmt.Println()
	fmt.Println("Move sticks and press buttons. Press Ctrl+C to stop.")
	fmt.Println()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reader := gamepad.NewReader(src, gamepad.ReaderConfig{Thresholds: t, Users: *users})
	mon := &monitor{start: time.Now()}
	connected := make([]bool, gamepad.MaxUsers)

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			fmt.Println()
			fmt.Printf("Updates: %d in %s\n", mon.updates, time.Since(mon.start).Truncate(time.Millisecond))
			return
		case <-ticker.C:
			if err := reader.Read(mon); err != nil {
				fmt.Printf("ERROR: %v\n", err)
				os.Exit(1)
			}
			for user := range connected {
				if now := reader.Connected(user); now != connected[user] {
					connected[user] = now
					fmt.Printf("%s pad%d connected=%v\n", mon.stamp(), user, now)
				}
			}
		}
	}
}
