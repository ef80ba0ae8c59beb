package cmccl

// device.go implements per-device packet processing.  A unicast packet is
// forwarded hop by hop through flow-table lookups until it terminates at
// the destination host's sink.  A broadcast packet is flooded out every
// port except the one it arrived on, with a visited set shared by the
// broadcast instance suppressing duplicates so the flood stays loop-free
// on graphs with redundant paths (fat-tree).

import (
	"github.com/iti/evt/evtm"
	"github.com/iti/evt/vrtime"
	"github.com/sirupsen/logrus"
)

// enterDev is the event handler for the arrival of a packet at a device.
// The context is the device, the data is the packet, carried by value.
func enterDev(evtMgr *evtm.EventManager, context any, data any) any {
	dev := context.(*netDev)
	pckt := data.(Packet)

	if pckt.isBrdcst() {
		dev.floodBrdcst(evtMgr, pckt)
		return nil
	}
	dev.forwardUnicast(evtMgr, pckt)
	return nil
}

// forwardUnicast advances a flow-routed packet one hop, or terminates it at
// the local sink when this device is the flow's destination.  A missing
// flow-table entry drops the packet and reports NoRouteFound; the condition
// is non-fatal and the simulation keeps advancing.
func (dev *netDev) forwardUnicast(evtMgr *evtm.EventManager, pckt Packet) {
	net := dev.net
	now := evtMgr.CurrentSeconds()

	if dev.devID == pckt.DstID {
		dev.sink.put(now, pckt)
		net.logFields(logrus.Fields{
			"dev":  dev.devName,
			"role": DevCodeToStr(dev.role),
			"flow": pckt.FlowID,
			"seq":  pckt.SeqNum,
		}, "packet delivered")
		return
	}

	port, present := dev.flowToPort[pckt.FlowID]
	if !present || port == sinkPort {
		net.drops += 1
		net.logWarn(logrus.Fields{
			"dev":  dev.devName,
			"role": DevCodeToStr(dev.role),
			"src":  pckt.SrcID,
			"dst":  pckt.DstID,
			"flow": pckt.FlowID,
			"seq":  pckt.SeqNum,
		}, "no route found, packet dropped")
		return
	}

	peer := dev.ports[port].Peer
	pckt.LastHop = dev.devID
	evtMgr.Schedule(peer, pckt, enterDev,
		vrtime.SecondsToTimePri(net.hopDelay(pckt.MsgLen), net.nxtPri()))
}

// floodBrdcst processes one broadcast instance at this device.  The device
// records itself in the packet's visited set before any forwarding, which
// guarantees it handles a given instance at most once.  A host that is not
// the origin terminates the packet at its sink; every other device fans an
// independent copy out each wired port except the arrival port.  At the
// origin the arrival port is the device itself, so the first hop floods
// all ports.
func (dev *netDev) floodBrdcst(evtMgr *evtm.EventManager, pckt Packet) {
	net := dev.net
	now := evtMgr.CurrentSeconds()

	if pckt.Visited.visited(dev.devID) {
		// duplicate instance arriving over a redundant path
		return
	}
	dev.visits += 1
	pckt.Visited.record(dev.devID)

	if dev.isHost() && pckt.SrcID != dev.devID {
		dev.sink.put(now, pckt)
		net.logFields(logrus.Fields{
			"dev":  dev.devName,
			"role": DevCodeToStr(dev.role),
			"src":  pckt.SrcID,
			"seq":  pckt.SeqNum,
		}, "broadcast delivered")
		return
	}

	arrivedFrom := pckt.LastHop
	for _, port := range dev.ports {
		if port.Peer == nil {
			continue
		}
		// skip the port the packet arrived through, unless the packet was
		// self-delivered at its origin
		if arrivedFrom != dev.devID && port.Peer.devID == arrivedFrom {
			continue
		}
		cp := pckt.fanOutCopy(dev.devID)
		evtMgr.Schedule(port.Peer, cp, enterDev,
			vrtime.SecondsToTimePri(net.hopDelay(pckt.MsgLen), net.nxtPri()))
	}
}

// sinkStats returns the delivery count, byte total, and last arrival time
// recorded at a host's sink
func (topo *Topology) sinkStats(hostName string) (int, int, float64) {
	dev, present := topo.DevByName[hostName]
	if !present || dev.sink == nil {
		return 0, 0, 0.0
	}
	return dev.sink.received, dev.sink.totalBytes, dev.sink.lastArrival
}
