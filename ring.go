package cmccl

// ring.go implements the ring AllReduce variant.  Participants form a
// logical ring in name sort order; the payload is cut into one chunk per
// participant and rotated around the ring through a scatter-reduce phase
// followed by an allgather phase, each of n-1 steps.

import (
	"github.com/iti/evt/evtm"
)

const (
	scatterReducePhase = "scatter-reduce"
	allGatherPhase     = "allgather"
)

type ringState struct {
	phase  string
	step   int
	nsteps int
	chunk  int
}

func startRing(evtMgr *evtm.EventManager, sess *Session) error {
	n := len(sess.workers)
	if n == 1 {
		sess.complete(evtMgr)
		return nil
	}
	sess.state = &ringState{
		phase:  scatterReducePhase,
		nsteps: n - 1,
		chunk:  sess.dataSize / n,
	}
	issueRingStep(evtMgr, sess)
	return nil
}

// issueRingStep starts every participant's send to its ring successor and
// arms the step barrier
func issueRingStep(evtMgr *evtm.EventManager, sess *Session) {
	st := sess.state.(*ringState)
	pb := sess.newBarrier(evtMgr, st.phase, st.step, ringStepDone)
	issued := 0
	for _, w := range sess.workers {
		if sess.sendGated(evtMgr, w, ringSuccessor(sess.workers, w), st.chunk, pb) {
			issued += 1
		}
	}
	pb.arm(evtMgr, issued)
}

// ringStepDone advances to the next step, flips scatter-reduce into
// allgather after the last step, and completes the run after both phases
func ringStepDone(evtMgr *evtm.EventManager, context any, data any) any {
	sess := context.(*Session)
	st := sess.state.(*ringState)
	st.step += 1
	if st.step < st.nsteps {
		issueRingStep(evtMgr, sess)
		return nil
	}
	if st.phase == scatterReducePhase {
		st.phase = allGatherPhase
		st.step = 0
		issueRingStep(evtMgr, sess)
		return nil
	}
	sess.complete(evtMgr)
	return nil
}
