package cmccl

// packet.go defines the transport unit moved by the simulated fabric

// BrdcstDst is the broadcast destination sentinel, distinct from any
// real device id
const BrdcstDst int = -1

// BrdcstFlowID marks a packet that is flooded rather than routed by flow
const BrdcstFlowID int = -1

// visitHistory is the loop-suppression record of one broadcast instance.
// It is shared by every fan-out copy of that instance, which is what makes
// a device process the instance at most once even when redundant paths
// deliver several copies.
type visitHistory struct {
	seen map[int]bool
}

func newVisitHistory() *visitHistory {
	return &visitHistory{seen: make(map[int]bool)}
}

func (vh *visitHistory) visited(devID int) bool {
	return vh.seen[devID]
}

func (vh *visitHistory) record(devID int) {
	vh.seen[devID] = true
}

// Packet is the unit the fabric forwards.  Packets move through event data
// as values: every fan-out copy of a broadcast owns its forwarding fields
// independently, so setting one copy's last hop is never observable from
// another port's copy.  Only the instance-scoped visit history is shared.
type Packet struct {
	SeqNum     int     // per-source sequence number
	SrcID      int     // originating device id
	DstID      int     // destination device id, or BrdcstDst
	FlowID     int     // routed flow, or BrdcstFlowID
	MsgLen     int     // payload size in bytes
	CreateTime float64 // virtual time the send was issued
	LastHop    int     // device id of the previous hop

	Visited *visitHistory // nil except on broadcast packets
}

// isBrdcst tells whether the packet is flooded rather than flow-routed
func (pckt *Packet) isBrdcst() bool {
	return pckt.DstID == BrdcstDst
}

// fanOutCopy returns an independently owned copy of the packet for one
// outgoing port, with the forwarding device recorded as the last hop
func (pckt Packet) fanOutCopy(devID int) Packet {
	cp := pckt
	cp.LastHop = devID
	return cp
}
