package cmccl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupPods(t *testing.T) {
	pods, keys, err := groupPods([]string{"h0_0", "h0_1", "h1_0", "h1_1", "h2_0"})
	require.NoError(t, err)

	assert.Equal(t, []string{"h0", "h1", "h2"}, keys)
	assert.Equal(t, []string{"h0_0", "h0_1"}, pods["h0"])
	assert.Equal(t, []string{"h2_0"}, pods["h2"])
}

func TestGroupPodsRejectsBadNames(t *testing.T) {
	_, _, err := groupPods([]string{"h0_0", "alpha"})
	assert.ErrorIs(t, err, ErrInvalidCollectiveConfig)

	_, _, err = groupPods([]string{"_0"})
	assert.ErrorIs(t, err, ErrInvalidCollectiveConfig)
}

func TestHierarchicalRingAllReduce(t *testing.T) {
	topo, err := BuildFatTree(4)
	require.NoError(t, err)
	net := CreateNetwork(topo, NetParams{}, nil)
	rpt := CreateReporter(nil)

	dataSize := 1 << 20
	sess, err := RunCollective(net, HierRingAlg, topo.HostNames(), dataSize, rpt)
	require.NoError(t, err)
	assert.True(t, sess.Done)

	// 4 pods of 4 hosts: 3 intra-pod reduce steps, 3 inter-pod steps
	// over the leaders, 3 intra-pod broadcast steps
	require.Len(t, rpt.Records, 9)
	for idx, rcd := range rpt.Records {
		switch {
		case idx < 3:
			assert.Equal(t, intraReducePhase, rcd.Phase)
		case idx < 6:
			assert.Equal(t, interReducePhase, rcd.Phase)
		default:
			assert.Equal(t, intraBroadcastPhase, rcd.Phase)
		}
		assert.Equal(t, idx%3, rcd.Step)
	}

	// intra phases move 16 chunks per step, the leader ring 4 per step
	chunk := dataSize / (4 * 16)
	assert.Equal(t, (3*16+3*4+3*16)*chunk, sess.BytesMoved)
}

func TestHierarchicalRingRejectsBadNaming(t *testing.T) {
	topo, err := BuildStar(3)
	require.NoError(t, err)
	net := CreateNetwork(topo, NetParams{}, nil)

	// rename checking happens before any send
	_, err = RunCollective(net, HierRingAlg, []string{"h0_0", "noDelim"}, 1000, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidCollectiveConfig)
	for _, name := range topo.HostNames() {
		rcvd, _, _ := topo.sinkStats(name)
		assert.Zero(t, rcvd)
	}
}

func TestHierarchicalRingSinglePodFallsBack(t *testing.T) {
	topo, err := BuildStar(4)
	require.NoError(t, err)
	net := CreateNetwork(topo, NetParams{}, nil)
	rpt := CreateReporter(nil)

	// one pod: only the intra-pod phases run
	sess, err := RunCollective(net, HierRingAlg, topo.HostNames(), 4096, rpt)
	require.NoError(t, err)
	assert.True(t, sess.Done)

	require.Len(t, rpt.Records, 6)
	for idx, rcd := range rpt.Records {
		if idx < 3 {
			assert.Equal(t, intraReducePhase, rcd.Phase)
		} else {
			assert.Equal(t, intraBroadcastPhase, rcd.Phase)
		}
	}
}
