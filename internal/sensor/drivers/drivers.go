// Package drivers provides the concrete sensor devices of a meteo station.
//
//	board_temperature  SoC temperature from `vcgencmd measure_temp`
//	ds18b20            1-wire temperature probes under /sys/bus/w1/devices
//	wifi_presence      people present, counted from an arp-scan of the LAN
//	static             fixed values, for bench setups and tests
package drivers

import (
	"context"
	"fmt"
	"os/exec"
	"sort"
	"strings"

	"github.com/nerrad567/meteo-core/internal/sensor"
)

// Driver names accepted in the readers section of config.yaml.
const (
	DriverBoardTemperature = "board_temperature"
	DriverDS18B20          = "ds18b20"
	DriverWifiPresence     = "wifi_presence"
	DriverStatic           = "static"
)

type constructor func(options map[string]string) (sensor.Device, error)

var constructors = map[string]constructor{
	DriverBoardTemperature: func(o map[string]string) (sensor.Device, error) { return NewBoardTemperature(o), nil },
	DriverDS18B20:          func(o map[string]string) (sensor.Device, error) { return NewDS18B20(o), nil },
	DriverWifiPresence:     func(o map[string]string) (sensor.Device, error) { return NewWifiPresence(o) },
	DriverStatic:           func(o map[string]string) (sensor.Device, error) { return NewStatic(o) },
}

// Open builds the device for driver. It satisfies sensor.Opener.
func Open(driver string, options map[string]string) (sensor.Device, error) {
	ctor, ok := constructors[driver]
	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %s)", sensor.ErrUnknownDriver, driver, strings.Join(Names(), ", "))
	}
	return ctor(options)
}

// Names lists the registered driver names, sorted.
func Names() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// runFunc executes an external command and returns its standard output.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		return nil, fmt.Errorf("running %s: %w", name, err)
	}
	return out, nil
}

func option(options map[string]string, key, fallback string) string {
	if v, ok := options[key]; ok && v != "" {
		return v
	}
	return fallback
}
