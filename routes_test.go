package cmccl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlowsCoverAllHostPairs(t *testing.T) {
	topo, err := BuildStar(4)
	require.NoError(t, err)

	n := len(topo.HostNames())
	assert.Len(t, topo.FlowByID, n*(n-1))

	for _, src := range topo.HostNames() {
		for _, dst := range topo.HostNames() {
			srcID := topo.DevByName[src].devID
			dstID := topo.DevByName[dst].devID
			flowID, present := topo.findFlow(srcID, dstID)
			if src == dst {
				assert.False(t, present)
				continue
			}
			require.True(t, present, "%s->%s", src, dst)
			flow := topo.FlowByID[flowID]
			assert.Equal(t, srcID, flow.Path[0])
			assert.Equal(t, dstID, flow.Path[len(flow.Path)-1])
		}
	}
}

func TestFlowPathsSimpleAndAdjacent(t *testing.T) {
	topo, err := BuildFatTree(4)
	require.NoError(t, err)

	for _, flow := range topo.FlowByID {
		path := flow.Path
		require.GreaterOrEqual(t, len(path), 3)

		seen := make(map[int]bool)
		for idx, devID := range path {
			assert.False(t, seen[devID], "flow %d revisits device %d", flow.FlowID, devID)
			seen[devID] = true
			if idx == 0 {
				continue
			}
			prev := topo.DevByID[path[idx-1]]
			_, wired := prev.portByPeer[devID]
			assert.True(t, wired, "flow %d hop %d->%d not wired", flow.FlowID, path[idx-1], devID)
		}

		// shortest paths in a fat-tree are 3 (same edge), 5 (same pod),
		// or 7 (across cores) devices long
		assert.Contains(t, []int{3, 5, 7}, len(path))
	}
}

func TestFlowPathsReproducible(t *testing.T) {
	topoA, err := BuildFatTree(4)
	require.NoError(t, err)
	topoB, err := BuildFatTree(4)
	require.NoError(t, err)

	require.Equal(t, len(topoA.FlowByID), len(topoB.FlowByID))
	for flowID, flowA := range topoA.FlowByID {
		flowB := topoB.FlowByID[flowID]
		require.NotNil(t, flowB)
		assert.Equal(t, flowA.Path, flowB.Path, "flow %d", flowID)
	}
}

func TestForwardingTablesTotal(t *testing.T) {
	topo, err := BuildFatTree(4)
	require.NoError(t, err)

	for _, flow := range topo.FlowByID {
		for idx, devID := range flow.Path {
			dev := topo.DevByID[devID]
			port, present := dev.flowToPort[flow.FlowID]
			require.True(t, present, "device %d missing entry for flow %d", devID, flow.FlowID)
			if idx == len(flow.Path)-1 {
				assert.Equal(t, sinkPort, port)
			} else {
				assert.Equal(t, flow.Path[idx+1], dev.ports[port].Peer.devID)
			}
		}
	}
}
