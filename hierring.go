package cmccl

// hierring.go implements the fat-tree aware hierarchical ring AllReduce.
// Participants are grouped into pods by the h{pod}_{idx} naming
// convention.  Each pod runs a ring scatter-reduce internally, the pod
// leaders run an inter-pod ring reduce gated by a barrier every
// participant waits on, and a ring-structured broadcast pushes the result
// back out within each pod.

import (
	"strings"

	"github.com/iti/evt/evtm"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

const (
	intraReducePhase    = "intra-pod-reduce"
	interReducePhase    = "inter-pod-reduce"
	intraBroadcastPhase = "intra-pod-broadcast"
)

type hierRingState struct {
	pods    map[string][]string // pod key to sorted members
	podKeys []string            // sorted pod keys
	leaders []string            // pod leaders in podKeys order
	chunk   map[string]int      // pod key to per-send chunk size
	maxPod  int                 // size of the largest pod

	phase string
	step  int
}

// groupPods splits the sorted participant list into pods keyed by the name
// prefix before the first underscore
func groupPods(workers []string) (map[string][]string, []string, error) {
	pods := make(map[string][]string)
	var keys []string
	for _, w := range workers {
		cut := strings.Index(w, "_")
		if cut <= 0 {
			return nil, nil, errors.Wrapf(ErrInvalidCollectiveConfig,
				"participant %s does not follow the pod naming convention", w)
		}
		key := w[:cut]
		if _, present := pods[key]; !present {
			keys = append(keys, key)
		}
		pods[key] = append(pods[key], w)
	}
	slices.Sort(keys)
	return pods, keys, nil
}

func startHierRing(evtMgr *evtm.EventManager, sess *Session) error {
	pods, keys, err := groupPods(sess.workers)
	if err != nil {
		return err
	}
	st := &hierRingState{
		pods:    pods,
		podKeys: keys,
		chunk:   make(map[string]int),
		phase:   intraReducePhase,
	}
	n := len(sess.workers)
	for _, key := range keys {
		st.leaders = append(st.leaders, pods[key][0])
		st.chunk[key] = sess.dataSize / (len(pods[key]) * n)
		if len(pods[key]) > st.maxPod {
			st.maxPod = len(pods[key])
		}
	}
	sess.state = st

	if st.maxPod > 1 {
		issueHierIntraStep(evtMgr, sess)
		return nil
	}
	hierStartInter(evtMgr, sess)
	return nil
}

// issueHierIntraStep runs one step of every pod's internal ring; a pod that
// has already rotated all its chunks sits the step out
func issueHierIntraStep(evtMgr *evtm.EventManager, sess *Session) {
	st := sess.state.(*hierRingState)
	pb := sess.newBarrier(evtMgr, st.phase, st.step, hierStepDone)
	issued := 0
	for _, key := range st.podKeys {
		pod := st.pods[key]
		if st.step >= len(pod)-1 {
			continue
		}
		for _, w := range pod {
			if sess.sendGated(evtMgr, w, ringSuccessor(pod, w), st.chunk[key], pb) {
				issued += 1
			}
		}
	}
	pb.arm(evtMgr, issued)
}

// issueHierInterStep runs one step of the leaders' ring
func issueHierInterStep(evtMgr *evtm.EventManager, sess *Session) {
	st := sess.state.(*hierRingState)
	pb := sess.newBarrier(evtMgr, interReducePhase, st.step, hierStepDone)
	issued := 0
	for idx, leader := range st.leaders {
		if sess.sendGated(evtMgr, leader, ringSuccessor(st.leaders, leader),
			st.chunk[st.podKeys[idx]], pb) {
			issued += 1
		}
	}
	pb.arm(evtMgr, issued)
}

func hierStartInter(evtMgr *evtm.EventManager, sess *Session) {
	st := sess.state.(*hierRingState)
	st.phase = interReducePhase
	st.step = 0
	if len(st.leaders) > 1 {
		issueHierInterStep(evtMgr, sess)
		return
	}
	hierStartBroadcast(evtMgr, sess)
}

func hierStartBroadcast(evtMgr *evtm.EventManager, sess *Session) {
	st := sess.state.(*hierRingState)
	st.phase = intraBroadcastPhase
	st.step = 0
	if st.maxPod > 1 {
		issueHierIntraStep(evtMgr, sess)
		return
	}
	sess.complete(evtMgr)
}

// hierStepDone drives the three-phase progression: intra-pod reduce, then
// the leaders-only inter-pod reduce, then intra-pod broadcast
func hierStepDone(evtMgr *evtm.EventManager, context any, data any) any {
	sess := context.(*Session)
	st := sess.state.(*hierRingState)
	st.step += 1
	switch st.phase {
	case intraReducePhase:
		if st.step < st.maxPod-1 {
			issueHierIntraStep(evtMgr, sess)
			return nil
		}
		hierStartInter(evtMgr, sess)
	case interReducePhase:
		if st.step < len(st.leaders)-1 {
			issueHierInterStep(evtMgr, sess)
			return nil
		}
		hierStartBroadcast(evtMgr, sess)
	case intraBroadcastPhase:
		if st.step < st.maxPod-1 {
			issueHierIntraStep(evtMgr, sess)
			return nil
		}
		sess.complete(evtMgr)
	}
	return nil
}
