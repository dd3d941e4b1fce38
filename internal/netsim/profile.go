// Package netsim implements the simulated-latency transport the
// participants communicate over: a per-link LatencyShaper wrapping a
// MessageBus of point-to-point async channels.
package netsim

import "time"

// Profile describes the per-link network characteristics the shaper
// injects. BandwidthBps of zero means unlimited bandwidth.
type Profile struct {
	OneWayDelay     time.Duration
	BandwidthBps    int64
	LossProbability float64
}

// Unlimited is a zero-latency, zero-loss, unbounded-bandwidth profile,
// used as the default for local/LAN-equivalent runs.
var Unlimited = Profile{}

// LAN is a representative same-datacenter profile.
var LAN = Profile{OneWayDelay: 1 * time.Millisecond}

// WAN is a representative cross-region profile.
var WAN = Profile{OneWayDelay: 100 * time.Millisecond}
