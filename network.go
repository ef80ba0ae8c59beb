package cmccl

// network.go wraps a topology with the mutable simulation state shared by
// the transmission scheduler and the per-device forwarding engines

import (
	"github.com/iti/rngstream"
	"github.com/sirupsen/logrus"
)

// DefaultLatency is the per-hop propagation delay, in seconds, applied when
// no latency is configured
const DefaultLatency float64 = 10e-6

// NetParams carries the link model configuration.  The reference behavior
// is a constant propagation delay per hop; setting Bndwdth adds a
// serialization term, and Jitter perturbs the latency with draws from a
// seeded rngstream (reproducible for a given seed name).
type NetParams struct {
	Latency float64 // propagation delay per hop, seconds
	Bndwdth float64 // link rate in Mbits/s; 0 disables serialization delay
	Jitter  bool    // perturb latency by up to 10%
}

// Network binds a topology to an event-driven packet fabric.  The only
// mutable state during a run is per-device (sequence counters, sinks,
// visit counts) plus the drop counter here; forwarding tables are read-only.
type Network struct {
	Topo   *Topology
	params NetParams
	log    *logrus.Logger

	rng    *rngstream.RngStream
	evtPri int64 // tie-break priority counter for same-instant events
	drops  int   // unicast packets dropped for want of a flow-table entry
}

// CreateNetwork is a constructor.  The logger is owned by the caller and may
// be nil, which silences diagnostics; it is not stored anywhere global.
func CreateNetwork(topo *Topology, params NetParams, log *logrus.Logger) *Network {
	net := new(Network)
	net.Topo = topo
	net.params = params
	if !(net.params.Latency > 0.0) {
		net.params.Latency = DefaultLatency
	}
	net.log = log
	net.rng = rngstream.New("net-" + topo.Name)

	for _, dev := range topo.DevByID {
		dev.net = net
	}
	return net
}

// nxtPri returns a monotonically increasing event priority.  Events that
// share a virtual-time tick are ordered by this priority, which pins the
// processing order at ties to the order the events were issued in.
func (net *Network) nxtPri() int64 {
	net.evtPri += 1
	return net.evtPri
}

// hopDelay computes the time for one hop: fixed propagation latency plus,
// when a bandwidth is configured, the serialization time of the payload
func (net *Network) hopDelay(msgLen int) float64 {
	delay := net.params.Latency
	if net.params.Jitter {
		delay += net.params.Latency * 0.1 * net.rng.RandU01()
	}
	if net.params.Bndwdth > 0.0 {
		delay += float64(msgLen*8) / (net.params.Bndwdth * 1e6)
	}
	return delay
}

// Drops reports how many unicast packets were abandoned in the fabric
// because a device had no flow-table entry for them
func (net *Network) Drops() int {
	return net.drops
}

// logFields emits a per-packet diagnostic at debug level if a logger is
// attached; the cmccl driver only attaches one in verbose mode
func (net *Network) logFields(fields logrus.Fields, msg string) {
	if net.log == nil {
		return
	}
	net.log.WithFields(fields).Debug(msg)
}

// logWarn emits a structured warning if a logger is attached
func (net *Network) logWarn(fields logrus.Fields, msg string) {
	if net.log == nil {
		return
	}
	net.log.WithFields(fields).Warn(msg)
}
