package cmccl

// topo.go builds the node/link graphs the simulator runs over.  Two shapes
// are supported: a star (one central switch fanned out to hosts) and a
// k-ary fat-tree (core/aggregation/edge/host layers organized into pods).
// Device names are deterministic functions of layer and position so that
// identity is reproducible across builds with the same parameters.

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"
)

// DevCode is the role a device plays in the topology
type DevCode int

const (
	HostCode DevCode = iota
	EdgeCode
	AggrCode
	CoreCode
	CentralCode
)

// DevCodeToStr returns a string corresponding to the device role
func DevCodeToStr(code DevCode) string {
	switch code {
	case HostCode:
		return "host"
	case EdgeCode:
		return "edge-switch"
	case AggrCode:
		return "aggregation-switch"
	case CoreCode:
		return "core-switch"
	case CentralCode:
		return "central-switch"
	default:
		return "unknown"
	}
}

// portStruct is one directed half of an undirected link.  The topology owns
// all ports; a port never outlives the devices it connects.
type portStruct struct {
	Number int     // position in the owning device's port list
	Device *netDev // device the port is mounted on
	Peer   *netDev // device at the far end, nil if unwired
}

// netDev is a topology device, host or switch.  The forwarding and flow
// tables are populated right after construction and are immutable during
// simulation; the sequence counter and sink are the only mutable state.
type netDev struct {
	devID   int
	devName string
	role    DevCode
	pod     int // pod index for fat-tree devices, 0 for star, -1 for core

	ports      []*portStruct
	portByPeer map[int]int // neighbor dev id -> local port index
	flowToPort map[int]int // flow id -> local port index, sinkPort at the flow's destination

	seqNum int       // per-source packet sequence counter
	sink   *pcktSink // terminates packets addressed to (or flooded at) this host
	visits int       // number of broadcast instances this device processed

	net *Network // set when a Network is created over the topology
}

// sinkPort marks a flow-table entry whose packets terminate at the local sink
const sinkPort int = -1

// nxtSeq increments and returns the device's outgoing packet sequence number
func (dev *netDev) nxtSeq() int {
	dev.seqNum += 1
	return dev.seqNum
}

// isHost tells whether the device terminates traffic rather than forwarding it
func (dev *netDev) isHost() bool {
	return dev.role == HostCode
}

// pcktSink accumulates statistics about packets that terminate at a host
type pcktSink struct {
	received    int
	totalBytes  int
	lastArrival float64
}

// put absorbs a packet at the sink
func (sink *pcktSink) put(now float64, pckt Packet) {
	sink.received += 1
	sink.totalBytes += pckt.MsgLen
	sink.lastArrival = now
}

// Topology owns every device and the port wiring between them, plus the
// flows and forwarding tables derived at build time.
type Topology struct {
	Name string

	DevByID   map[int]*netDev
	DevByName map[string]*netDev

	hosts []*netDev // hosts sorted by name

	topoGraph map[int][]int // adjacency by device id, neighbor lists sorted

	FlowByID     map[int]*Flow
	flowBySrcDst map[intPair]int

	numIDs int
}

// createTopology initializes the lookup structures for a named topology
func createTopology(name string) *Topology {
	topo := new(Topology)
	topo.Name = name
	topo.DevByID = make(map[int]*netDev)
	topo.DevByName = make(map[string]*netDev)
	topo.hosts = make([]*netDev, 0)
	topo.topoGraph = make(map[int][]int)
	topo.FlowByID = make(map[int]*Flow)
	topo.flowBySrcDst = make(map[intPair]int)
	return topo
}

// nxtID creates a device id unique within the topology
func (topo *Topology) nxtID() int {
	id := topo.numIDs
	topo.numIDs += 1
	return id
}

// createNetDev constructs a device, registers it for lookup by id and name,
// and remembers hosts for participant-set derivation
func (topo *Topology) createNetDev(name string, role DevCode, pod int) *netDev {
	_, present := topo.DevByName[name]
	if present {
		panic(fmt.Sprintf("device name %s over-used in topology %s", name, topo.Name))
	}

	dev := new(netDev)
	dev.devID = topo.nxtID()
	dev.devName = name
	dev.role = role
	dev.pod = pod
	dev.ports = make([]*portStruct, 0)
	dev.portByPeer = make(map[int]int)
	dev.flowToPort = make(map[int]int)
	if role == HostCode {
		dev.sink = new(pcktSink)
	}

	topo.DevByID[dev.devID] = dev
	topo.DevByName[name] = dev
	topo.topoGraph[dev.devID] = make([]int, 0)
	if role == HostCode {
		topo.hosts = append(topo.hosts, dev)
	}
	return dev
}

// connectDevs wires an undirected link between two devices, creating one
// port on each end and recording the adjacency in the topology graph.
// The physical adjacency order of a device's ports is the order in which
// its links were created, which is deterministic for both builders.
func (topo *Topology) connectDevs(dev1, dev2 *netDev) {
	if dev1.devID == dev2.devID {
		return
	}

	port1 := &portStruct{Number: len(dev1.ports), Device: dev1, Peer: dev2}
	dev1.ports = append(dev1.ports, port1)
	dev1.portByPeer[dev2.devID] = port1.Number

	port2 := &portStruct{Number: len(dev2.ports), Device: dev2, Peer: dev1}
	dev2.ports = append(dev2.ports, port2)
	dev2.portByPeer[dev1.devID] = port2.Number

	topo.topoGraph[dev1.devID] = append(topo.topoGraph[dev1.devID], dev2.devID)
	topo.topoGraph[dev2.devID] = append(topo.topoGraph[dev2.devID], dev1.devID)
}

// HostNames returns the names of all hosts in the topology, sorted, which is
// the participant order the collective engine uses
func (topo *Topology) HostNames() []string {
	names := make([]string, 0, len(topo.hosts))
	for _, host := range topo.hosts {
		names = append(names, host.devName)
	}
	return names
}

// NumDevs returns the number of devices (hosts and switches) in the topology
func (topo *Topology) NumDevs() int {
	return len(topo.DevByID)
}

// sortHosts puts the host list in name order after construction
func (topo *Topology) sortHosts() {
	sort.Slice(topo.hosts, func(i, j int) bool {
		return topo.hosts[i].devName < topo.hosts[j].devName
	})
}

// BuildStar creates a topology with one central switch connected to
// numHosts hosts.  Hosts are named h0_0 .. h0_{n-1}; the single pod label
// keeps the pod naming convention valid on star topologies too.
func BuildStar(numHosts int) (*Topology, error) {
	if numHosts < 1 {
		return nil, errors.Wrapf(ErrInvalidTopoParam, "star requires at least 1 host, got %d", numHosts)
	}

	topo := createTopology(fmt.Sprintf("star-%d", numHosts))
	central := topo.createNetDev("switch0", CentralCode, 0)

	for idx := 0; idx < numHosts; idx++ {
		host := topo.createNetDev(fmt.Sprintf("h0_%d", idx), HostCode, 0)
		topo.connectDevs(central, host)
	}

	topo.sortHosts()
	topo.buildRoutes()
	return topo, nil
}

// BuildFatTree creates a 4-layer k-ary fat-tree for even k >= 2:
// (k/2)^2 core switches, k*(k/2) aggregation and edge switches, and
// k^3/4 hosts organized into k pods.  Each pod's k/2 edge switches
// connect to k/2 hosts and to all k/2 aggregation switches in the pod;
// aggregation switch a of every pod connects to core switches
// a*(k/2) .. a*(k/2)+k/2-1, so every pod reaches every core switch.
func BuildFatTree(k int) (*Topology, error) {
	if k < 2 || k%2 != 0 {
		return nil, errors.Wrapf(ErrInvalidTopoParam, "fat-tree requires even k >= 2, got %d", k)
	}

	topo := createTopology(fmt.Sprintf("fat-tree-%d", k))
	half := k / 2

	cores := make([]*netDev, half*half)
	for idx := 0; idx < half*half; idx++ {
		cores[idx] = topo.createNetDev(fmt.Sprintf("core%d", idx), CoreCode, -1)
	}

	aggrs := make([][]*netDev, k)
	for pod := 0; pod < k; pod++ {
		aggrs[pod] = make([]*netDev, half)
		for idx := 0; idx < half; idx++ {
			aggrs[pod][idx] = topo.createNetDev(fmt.Sprintf("aggr%d_%d", pod, idx), AggrCode, pod)
		}
	}

	edges := make([][]*netDev, k)
	for pod := 0; pod < k; pod++ {
		edges[pod] = make([]*netDev, half)
		for idx := 0; idx < half; idx++ {
			edges[pod][idx] = topo.createNetDev(fmt.Sprintf("edge%d_%d", pod, idx), EdgeCode, pod)
		}
	}

	// hosts hang off edge switches, k/2 per edge switch
	for pod := 0; pod < k; pod++ {
		for e := 0; e < half; e++ {
			for h := 0; h < half; h++ {
				hostName := fmt.Sprintf("h%d_%d", pod, e*half+h)
				host := topo.createNetDev(hostName, HostCode, pod)
				topo.connectDevs(host, edges[pod][e])
			}
		}
	}

	// every edge switch reaches every aggregation switch in its pod
	for pod := 0; pod < k; pod++ {
		for e := 0; e < half; e++ {
			for a := 0; a < half; a++ {
				topo.connectDevs(edges[pod][e], aggrs[pod][a])
			}
		}
	}

	// aggregation switch a serves core switches a*half .. a*half+half-1
	for pod := 0; pod < k; pod++ {
		for a := 0; a < half; a++ {
			for j := 0; j < half; j++ {
				topo.connectDevs(aggrs[pod][a], cores[a*half+j])
			}
		}
	}

	topo.sortHosts()
	topo.buildRoutes()
	return topo, nil
}
