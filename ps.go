package cmccl

// ps.go implements the parameter-server AllReduce variants.  The first
// participant in sort order acts as the server: every other participant
// sends it the full payload, and once all gathers land the server pushes
// the result back out, either as one unicast per participant or as a
// single switch flood.

import (
	"github.com/iti/evt/evtm"
)

type psState struct {
	server string
	flood  bool
}

func startPS(evtMgr *evtm.EventManager, sess *Session) error {
	return startPSVariant(evtMgr, sess, false)
}

func startBrdcstPS(evtMgr *evtm.EventManager, sess *Session) error {
	return startPSVariant(evtMgr, sess, true)
}

func startPSVariant(evtMgr *evtm.EventManager, sess *Session, flood bool) error {
	if len(sess.workers) == 1 {
		sess.complete(evtMgr)
		return nil
	}
	sess.state = &psState{server: sess.workers[0], flood: flood}
	issuePSGather(evtMgr, sess)
	return nil
}

// issuePSGather sends every non-server participant's payload to the server
// and arms the gather barrier
func issuePSGather(evtMgr *evtm.EventManager, sess *Session) {
	st := sess.state.(*psState)
	pb := sess.newBarrier(evtMgr, reducePhase, 0, psGatherDone)
	issued := 0
	for _, w := range sess.workers {
		if w == st.server {
			continue
		}
		if sess.sendGated(evtMgr, w, st.server, sess.dataSize, pb) {
			issued += 1
		}
	}
	pb.arm(evtMgr, issued)
}

// psGatherDone starts the scatter once the last gather has landed
func psGatherDone(evtMgr *evtm.EventManager, context any, data any) any {
	sess := context.(*Session)
	st := sess.state.(*psState)
	pb := sess.newBarrier(evtMgr, broadcastPhase, 0, sessionComplete)
	issued := 0
	if st.flood {
		if sess.sendBrdcstGated(evtMgr, st.server, sess.dataSize, pb) {
			issued += 1
		}
	} else {
		for _, w := range sess.workers {
			if w == st.server {
				continue
			}
			if sess.sendGated(evtMgr, st.server, w, sess.dataSize, pb) {
				issued += 1
			}
		}
	}
	pb.arm(evtMgr, issued)
	return nil
}
