package cmccl

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildLogicalTreeShape(t *testing.T) {
	for _, n := range []int{1, 2, 3, 7, 10, 16} {
		workers := make([]string, n)
		for i := range workers {
			workers[i] = fmt.Sprintf("h0_%02d", i)
		}
		lt := buildLogicalTree(workers, 2)

		assert.Equal(t, workers[0], lt.root, "n=%d", n)
		_, rootHasParent := lt.parent[lt.root]
		assert.False(t, rootHasParent)

		for idx, w := range workers {
			if idx == 0 {
				continue
			}
			// every non-root node has exactly one parent
			par, present := lt.parent[w]
			require.True(t, present, "n=%d worker %s", n, w)
			assert.Equal(t, workers[(idx-1)/2], par)
		}
		for _, children := range lt.children {
			assert.LessOrEqual(t, len(children), 2, "n=%d", n)
		}

		// levels partition the participant set
		total := 0
		for _, level := range lt.levels {
			total += len(level)
		}
		assert.Equal(t, n, total, "n=%d", n)
	}
}

func TestTreeAllReduceLevels(t *testing.T) {
	topo, err := BuildStar(8)
	require.NoError(t, err)
	net := CreateNetwork(topo, NetParams{}, nil)
	rpt := CreateReporter(nil)

	sess, err := RunCollective(net, TreeAlg, topo.HostNames(), 1000, rpt)
	require.NoError(t, err)
	assert.True(t, sess.Done)

	// 8 participants form a 4-level heap: 3 reduce levels up,
	// 3 broadcast levels down
	require.Len(t, rpt.Records, 6)
	for idx, rcd := range rpt.Records {
		if idx < 3 {
			assert.Equal(t, reducePhase, rcd.Phase)
			assert.Equal(t, 3-idx, rcd.Step)
		} else {
			assert.Equal(t, broadcastPhase, rcd.Phase)
			assert.Equal(t, idx-3, rcd.Step)
		}
	}

	// 7 sends up, 7 sends down, full payload each
	assert.Equal(t, 14*1000, sess.BytesMoved)
}

func TestBinaryTreeAllReduce(t *testing.T) {
	topo, err := BuildStar(6)
	require.NoError(t, err)
	net := CreateNetwork(topo, NetParams{}, nil)
	rpt := CreateReporter(nil)

	sess, err := RunCollective(net, BinaryTreeAlg, topo.HostNames(), 500, rpt)
	require.NoError(t, err)
	assert.True(t, sess.Done)
	assert.Equal(t, 10*500, sess.BytesMoved)
}

func TestBroadcastTreeAllReduce(t *testing.T) {
	topo, err := BuildFatTree(4)
	require.NoError(t, err)
	net := CreateNetwork(topo, NetParams{}, nil)
	rpt := CreateReporter(nil)

	dataSize := 1000000
	sess, err := RunCollective(net, BrdcstTreeAlg, topo.HostNames(), dataSize, rpt)
	require.NoError(t, err)
	assert.True(t, sess.Done)

	// 16 participants: ceil(log2(16)) = 4 reduce levels, then one flood
	require.Len(t, rpt.Records, 5)
	for idx, rcd := range rpt.Records {
		if idx < 4 {
			assert.Equal(t, reducePhase, rcd.Phase)
		} else {
			assert.Equal(t, broadcastPhase, rcd.Phase)
		}
	}

	// the flood from the root reaches all 15 other hosts exactly once
	root := topo.HostNames()[0]
	lt := buildLogicalTree(topo.HostNames(), 0)
	floodCopies := 0
	for _, name := range topo.HostNames() {
		if name == root {
			continue
		}
		// each non-root host receives its reduce-phase unicasts from its
		// children plus exactly one flood copy
		rcvd, _, _ := topo.sinkStats(name)
		assert.Equal(t, len(lt.children[name])+1, rcvd, name)
		floodCopies += 1
	}
	assert.Equal(t, 15, floodCopies)
}
