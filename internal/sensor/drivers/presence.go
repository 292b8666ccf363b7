package drivers

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/meteo-core/internal/metric"
	"github.com/nerrad567/meteo-core/internal/sensor"
)

var arpLinePattern = regexp.MustCompile(`(?m)^(\d+\.\d+\.\d+\.\d+)\s+(\w+:\w+:\w+:\w+:\w+:\w+)(?:\s|$)`)

// WifiPresence estimates how many people are home from the devices
// answering an arp-scan of the local network.
//
// Known devices map a MAC address to a person id; several devices may
// share an id. A MAC seen for the first time gets a fresh id for the rest
// of the process lifetime. Id 0 marks infrastructure (routers, printers)
// and is never counted.
//
// Options:
//   - known_devices: YAML file mapping lower-case MAC to person id
//   - interface: network interface to scan (default wlan0)
//   - command: path to arp-scan (default arp-scan)
type WifiPresence struct {
	iface   string
	command string
	run     runFunc

	mu    sync.Mutex
	known map[string]int
}

// NewWifiPresence creates the device, loading the known devices file if set.
func NewWifiPresence(options map[string]string) (*WifiPresence, error) {
	w := &WifiPresence{
		iface:   option(options, "interface", "wlan0"),
		command: option(options, "command", "arp-scan"),
		run:     runCommand,
		known:   make(map[string]int),
	}

	if path := options["known_devices"]; path != "" {
		known, err := loadKnownDevices(path)
		if err != nil {
			return nil, err
		}
		w.known = known
	}
	return w, nil
}

func loadKnownDevices(path string) (map[string]int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading known devices: %w", err)
	}

	var raw map[string]int
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing known devices %s: %w", path, err)
	}

	known := make(map[string]int, len(raw))
	for mac, id := range raw {
		known[strings.ToLower(mac)] = id
	}
	return known, nil
}

// Fields implements sensor.Device.
func (w *WifiPresence) Fields() map[sensor.Field]sensor.Capability {
	return map[sensor.Field]sensor.Capability{
		"count": {
			Read:     w.readCount,
			Datatype: metric.Integer,
			Kind:     "presence",
			Unit:     "people",
		},
	}
}

func (w *WifiPresence) readCount(ctx context.Context, _ []string) (any, error) {
	out, err := w.run(ctx, w.command, "--interface="+w.iface, "--localnet", "--quiet")
	if err != nil {
		return nil, err
	}
	return int64(w.countPresent(parseArpScan(string(out)))), nil
}

// parseArpScan returns the lower-cased MAC addresses in arp-scan output.
func parseArpScan(out string) []string {
	matches := arpLinePattern.FindAllStringSubmatch(out, -1)
	macs := make([]string, 0, len(matches))
	for _, m := range matches {
		macs = append(macs, strings.ToLower(m[2]))
	}
	return macs
}

// countPresent maps MACs to person ids and counts distinct non-zero ids.
func (w *WifiPresence) countPresent(macs []string) int {
	w.mu.Lock()
	defer w.mu.Unlock()

	present := make(map[int]struct{})
	for _, mac := range macs {
		id, ok := w.known[mac]
		if !ok {
			id = w.nextID()
			w.known[mac] = id
		}
		if id != 0 {
			present[id] = struct{}{}
		}
	}
	return len(present)
}

// nextID returns one past the highest id in use. Caller holds mu.
func (w *WifiPresence) nextID() int {
	highest := 0
	for _, id := range w.known {
		highest = max(highest, id)
	}
	return highest + 1
}
