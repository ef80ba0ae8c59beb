package cmccl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartCollectiveValidation(t *testing.T) {
	topo, err := BuildStar(3)
	require.NoError(t, err)
	net := CreateNetwork(topo, NetParams{}, nil)

	_, err = RunCollective(net, RingAlg, []string{}, 1000, nil)
	assert.ErrorIs(t, err, ErrInvalidCollectiveConfig)

	_, err = RunCollective(net, "no-such-algorithm", topo.HostNames(), 1000, nil)
	assert.ErrorIs(t, err, ErrInvalidCollectiveConfig)

	_, err = RunCollective(net, RingAlg, []string{"h0_0", "ghost"}, 1000, nil)
	assert.ErrorIs(t, err, ErrInvalidCollectiveConfig)

	// switches cannot participate
	_, err = RunCollective(net, RingAlg, []string{"h0_0", "switch0"}, 1000, nil)
	assert.ErrorIs(t, err, ErrInvalidCollectiveConfig)
}

func TestParticipantsSortedIntoRing(t *testing.T) {
	topo, err := BuildStar(3)
	require.NoError(t, err)
	net := CreateNetwork(topo, NetParams{}, nil)

	// order of the caller's slice does not matter
	sess, err := RunCollective(net, RingAlg, []string{"h0_2", "h0_0", "h0_1"}, 300, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"h0_0", "h0_1", "h0_2"}, sess.Workers())
}

func TestReporterSummary(t *testing.T) {
	topo, err := BuildStar(4)
	require.NoError(t, err)
	net := CreateNetwork(topo, NetParams{}, nil)
	rpt := CreateReporter(nil)

	sess, err := RunCollective(net, RingAlg, topo.HostNames(), 4096, rpt)
	require.NoError(t, err)

	sum := rpt.Summarize(sess)
	assert.Equal(t, rpt.RunID, sum.RunID)
	assert.Equal(t, RingAlg, sum.Algorithm)
	assert.Equal(t, 4, sum.Workers)
	assert.Equal(t, sess.BytesMoved, sum.BytesMoved)
	assert.Greater(t, sum.EffectiveBw, 0.0)
	assert.Greater(t, sum.MeanStep, 0.0)
}
