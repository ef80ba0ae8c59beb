package cmccl

// routes.go derives the routing fabric from the topology graph: one flow
// (a precomputed shortest path) for every ordered pair of distinct hosts,
// and per-device forwarding tables so that packet forwarding is an O(1)
// table lookup with no path computation during simulation.
//
// The device graph is converted into the gonum graph representation and
// paths are discovered with breadth-first search over the unweighted graph.
// Neighbor lists are visited in ascending device-id order so that
// equal-length paths are always resolved the same way and flows are
// reproducible across builds.

import (
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
)

// Flow identifies the unicast path between one ordered (source, destination)
// host pair.  Flows are derived once at topology build time and never change.
type Flow struct {
	FlowID int
	SrcID  int
	DstID  int
	Path   []int // device ids from source to destination, inclusive
}

// buildConnGraph returns the gonum representation of the topology graph
func (topo *Topology) buildConnGraph() *simple.UndirectedGraph {
	connGraph := simple.NewUndirectedGraph()

	for devID := range topo.topoGraph {
		connGraph.AddNode(simple.Node(devID))
	}

	for devID, nbrs := range topo.topoGraph {
		for _, nbrID := range nbrs {
			// each undirected edge is added once; SetEdge panics on self loops
			if devID < nbrID {
				connGraph.SetEdge(simple.Edge{F: simple.Node(devID), T: simple.Node(nbrID)})
			}
		}
	}
	return connGraph
}

// sortedNbrs extracts a node's neighbor ids from the gonum graph in
// ascending order, the fixed iteration order that makes BFS deterministic
func sortedNbrs(connGraph *simple.UndirectedGraph, devID int) []int {
	nbrNodes := graph.NodesOf(connGraph.From(int64(devID)))
	nbrs := make([]int, 0, len(nbrNodes))
	for _, nbr := range nbrNodes {
		nbrs = append(nbrs, int(nbr.ID()))
	}
	sort.Ints(nbrs)
	return nbrs
}

// bfsTree computes the breadth-first search tree rooted at srcID and returns
// it as a child -> parent map covering every reachable device
func bfsTree(connGraph *simple.UndirectedGraph, srcID int) map[int]int {
	thru := make(map[int]int)
	thru[srcID] = srcID

	frontier := []int{srcID}
	for len(frontier) > 0 {
		nxtFrontier := make([]int, 0)
		for _, devID := range frontier {
			for _, nbrID := range sortedNbrs(connGraph, devID) {
				_, seen := thru[nbrID]
				if seen {
					continue
				}
				thru[nbrID] = devID
				nxtFrontier = append(nxtFrontier, nbrID)
			}
		}
		frontier = nxtFrontier
	}
	return thru
}

// pathFromTree walks the BFS tree backwards from dstID and returns the
// path src..dst, or nil if dst was not reached
func pathFromTree(thru map[int]int, srcID, dstID int) []int {
	_, reached := thru[dstID]
	if !reached {
		return nil
	}

	rev := []int{dstID}
	here := dstID
	for here != srcID {
		here = thru[here]
		rev = append(rev, here)
	}

	path := make([]int, 0, len(rev))
	for idx := len(rev) - 1; idx >= 0; idx-- {
		path = append(path, rev[idx])
	}
	return path
}

// computeFlows creates one flow per ordered pair of distinct hosts.  Flow
// ids are assigned in sorted host-pair order, so they too are reproducible.
func (topo *Topology) computeFlows(connGraph *simple.UndirectedGraph) {
	flowID := 0
	for _, src := range topo.hosts {
		thru := bfsTree(connGraph, src.devID)
		for _, dst := range topo.hosts {
			if src.devID == dst.devID {
				continue
			}
			path := pathFromTree(thru, src.devID, dst.devID)
			if path == nil {
				// disconnected host pair; no flow, sends report NoRouteFound
				continue
			}
			flow := &Flow{FlowID: flowID, SrcID: src.devID, DstID: dst.devID, Path: path}
			topo.FlowByID[flowID] = flow
			topo.flowBySrcDst[intPair{i: src.devID, j: dst.devID}] = flowID
			flowID += 1
		}
	}
}

// buildForwardingTables populates, for every device on a flow's path, the
// flow-id -> port entry toward the next node on that path.  At the flow's
// destination the entry points at the local sink.  The neighbor -> port
// table is already maintained by connectDevs.
func (topo *Topology) buildForwardingTables() {
	flowIDs := make([]int, 0, len(topo.FlowByID))
	for flowID := range topo.FlowByID {
		flowIDs = append(flowIDs, flowID)
	}
	sort.Ints(flowIDs)

	for _, flowID := range flowIDs {
		flow := topo.FlowByID[flowID]
		for idx, devID := range flow.Path {
			dev := topo.DevByID[devID]
			if idx == len(flow.Path)-1 {
				dev.flowToPort[flowID] = sinkPort
				continue
			}
			nxtID := flow.Path[idx+1]
			port, present := dev.portByPeer[nxtID]
			if !present {
				panic("flow path step without a wired port")
			}
			dev.flowToPort[flowID] = port
		}
	}
}

// buildRoutes is called at the end of topology construction; after it
// returns, all tables are immutable
func (topo *Topology) buildRoutes() {
	connGraph := topo.buildConnGraph()
	topo.computeFlows(connGraph)
	topo.buildForwardingTables()
}

// findFlow looks up the flow id for an ordered host pair
func (topo *Topology) findFlow(srcID, dstID int) (int, bool) {
	flowID, present := topo.flowBySrcDst[intPair{i: srcID, j: dstID}]
	return flowID, present
}
