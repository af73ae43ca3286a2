package osc

import (
	"fmt"

	"github.com/grandcat/zeroconf"
)

// ServiceType is the mDNS service TouchOSC browses for.
const ServiceType = "_osc._udp"

// Advertise publishes the OSC listener over mDNS so the panel can find the
// bridge host. The returned func withdraws the record.
func Advertise(instance string, port int, txt []string) (func(), error) {
	server, err := zeroconf.Register(instance, ServiceType, "local.", port, txt, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mdns service: %w", err)
	}
	return server.Shutdown, nil
}
