package cmccl

// transmit.go converts logical send requests into timed deliveries.  A send
// constructs a packet, waits out the computed delay on the virtual clock,
// and hands the packet to the source device's forwarding engine.  The
// caller's completion signal fires at that hand-off, not at end-to-end
// delivery; algorithms that need end-to-end completion gate on their own
// phase barriers.

import (
	"github.com/iti/evt/evtm"
	"github.com/iti/evt/vrtime"
	"github.com/pkg/errors"
)

// Send issues a unicast transfer of msgLen bytes between two named hosts.
// When the initial hand-off to the source device has occurred, rtnFunc is
// scheduled with rtnCxt as its context and the packet as its data.  A pair
// with no flow (including src == dst) returns ErrNoRouteFound and issues
// nothing.
func (net *Network) Send(evtMgr *evtm.EventManager, srcName, dstName string,
	msgLen int, rtnCxt any, rtnFunc evtm.EventHandlerFunction) error {

	src, present := net.Topo.DevByName[srcName]
	if !present {
		return errors.Wrapf(ErrNoRouteFound, "unknown source %s", srcName)
	}
	dst, present := net.Topo.DevByName[dstName]
	if !present {
		return errors.Wrapf(ErrNoRouteFound, "unknown destination %s", dstName)
	}

	flowID, present := net.Topo.findFlow(src.devID, dst.devID)
	if !present {
		return errors.Wrapf(ErrNoRouteFound, "no flow from %s to %s", srcName, dstName)
	}

	pckt := Packet{
		SeqNum:     src.nxtSeq(),
		SrcID:      src.devID,
		DstID:      dst.devID,
		FlowID:     flowID,
		MsgLen:     msgLen,
		CreateTime: evtMgr.CurrentSeconds(),
		LastHop:    src.devID,
	}
	net.schedule(evtMgr, src, pckt, rtnCxt, rtnFunc)
	return nil
}

// SendBrdcst issues a flood-based broadcast of msgLen bytes from a named
// host.  The completion signal semantics match Send: rtnFunc fires at the
// hand-off to the source device, after which the flood propagates on its own.
func (net *Network) SendBrdcst(evtMgr *evtm.EventManager, srcName string,
	msgLen int, rtnCxt any, rtnFunc evtm.EventHandlerFunction) error {

	src, present := net.Topo.DevByName[srcName]
	if !present {
		return errors.Wrapf(ErrNoRouteFound, "unknown source %s", srcName)
	}

	pckt := Packet{
		SeqNum:     src.nxtSeq(),
		SrcID:      src.devID,
		DstID:      BrdcstDst,
		FlowID:     BrdcstFlowID,
		MsgLen:     msgLen,
		CreateTime: evtMgr.CurrentSeconds(),
		LastHop:    src.devID,
		Visited:    newVisitHistory(),
	}
	net.schedule(evtMgr, src, pckt, rtnCxt, rtnFunc)
	return nil
}

// schedule delays the packet by one hop's worth of transmission time, then
// delivers it to the source device and fires the hand-off signal.  The
// signal is scheduled at the same instant but with a later tie-break
// priority, so a barrier never observes a hand-off before it happens.
func (net *Network) schedule(evtMgr *evtm.EventManager, src *netDev, pckt Packet,
	rtnCxt any, rtnFunc evtm.EventHandlerFunction) {

	delay := net.hopDelay(pckt.MsgLen)
	evtMgr.Schedule(src, pckt, enterDev, vrtime.SecondsToTimePri(delay, net.nxtPri()))
	if rtnFunc != nil {
		evtMgr.Schedule(rtnCxt, pckt, rtnFunc, vrtime.SecondsToTimePri(delay, net.nxtPri()))
	}
}
