package cmccl

// tree.go implements the tree AllReduce variants.  Participants form a
// logical heap over the sorted name list, reduce level by level toward the
// root, then push the result back down either level by level or, for the
// broadcast-tree variant, as a single switch flood from the root.  Every
// send carries the full payload.

import (
	"github.com/iti/evt/evtm"
)

const (
	reducePhase    = "reduce"
	broadcastPhase = "broadcast"
)

// logicalTree is the overlay the tree variants route over.  A participant
// past its parent's child cap keeps the parent pointer but is left out of
// the parent's child list, and so out of every level below the root's.
type logicalTree struct {
	root     string
	parent   map[string]string
	children map[string][]string
	levels   [][]string
}

// buildLogicalTree shapes the sorted participant list into a heap: the
// parent of participant i is participant (i-1)/2.  maxChildren <= 0 leaves
// the child lists uncapped.
func buildLogicalTree(workers []string, maxChildren int) *logicalTree {
	lt := &logicalTree{
		root:     workers[0],
		parent:   make(map[string]string),
		children: make(map[string][]string),
	}
	for idx, w := range workers {
		if idx == 0 {
			continue
		}
		par := workers[(idx-1)/2]
		lt.parent[w] = par
		if maxChildren <= 0 || len(lt.children[par]) < maxChildren {
			lt.children[par] = append(lt.children[par], w)
		}
	}
	level := []string{lt.root}
	for len(level) > 0 {
		lt.levels = append(lt.levels, level)
		var next []string
		for _, w := range level {
			next = append(next, lt.children[w]...)
		}
		level = next
	}
	return lt
}

type treeState struct {
	tree     *logicalTree
	phase    string
	levelIdx int
	flood    bool // push the result down as one flood instead of per level
}

func startTree(evtMgr *evtm.EventManager, sess *Session) error {
	return startTreeVariant(evtMgr, sess, 0, false)
}

func startBinaryTree(evtMgr *evtm.EventManager, sess *Session) error {
	return startTreeVariant(evtMgr, sess, 2, false)
}

func startBrdcstTree(evtMgr *evtm.EventManager, sess *Session) error {
	return startTreeVariant(evtMgr, sess, 0, true)
}

func startTreeVariant(evtMgr *evtm.EventManager, sess *Session,
	maxChildren int, flood bool) error {

	if len(sess.workers) == 1 {
		sess.complete(evtMgr)
		return nil
	}
	st := &treeState{
		tree:  buildLogicalTree(sess.workers, maxChildren),
		phase: reducePhase,
		flood: flood,
	}
	st.levelIdx = len(st.tree.levels) - 1
	sess.state = st
	issueTreeReduceLevel(evtMgr, sess)
	return nil
}

// issueTreeReduceLevel sends every member of the current level to its
// parent and arms the level barrier
func issueTreeReduceLevel(evtMgr *evtm.EventManager, sess *Session) {
	st := sess.state.(*treeState)
	pb := sess.newBarrier(evtMgr, reducePhase, st.levelIdx, treeLevelDone)
	issued := 0
	for _, w := range st.tree.levels[st.levelIdx] {
		if sess.sendGated(evtMgr, w, st.tree.parent[w], sess.dataSize, pb) {
			issued += 1
		}
	}
	pb.arm(evtMgr, issued)
}

// issueTreeBrdcstLevel sends from every member of the current level to each
// of its children and arms the level barrier
func issueTreeBrdcstLevel(evtMgr *evtm.EventManager, sess *Session) {
	st := sess.state.(*treeState)
	pb := sess.newBarrier(evtMgr, broadcastPhase, st.levelIdx, treeLevelDone)
	issued := 0
	for _, w := range st.tree.levels[st.levelIdx] {
		for _, child := range st.tree.children[w] {
			if sess.sendGated(evtMgr, w, child, sess.dataSize, pb) {
				issued += 1
			}
		}
	}
	pb.arm(evtMgr, issued)
}

// issueTreeFlood pushes the reduced result down in one flood from the root
func issueTreeFlood(evtMgr *evtm.EventManager, sess *Session) {
	st := sess.state.(*treeState)
	pb := sess.newBarrier(evtMgr, broadcastPhase, 0, sessionComplete)
	issued := 0
	if sess.sendBrdcstGated(evtMgr, st.tree.root, sess.dataSize, pb) {
		issued += 1
	}
	pb.arm(evtMgr, issued)
}

// treeLevelDone walks the reduce levels bottom-up, flips into the
// broadcast phase at the root, walks the broadcast levels top-down, and
// completes the run after the deepest one
func treeLevelDone(evtMgr *evtm.EventManager, context any, data any) any {
	sess := context.(*Session)
	st := sess.state.(*treeState)
	if st.phase == reducePhase {
		st.levelIdx -= 1
		if st.levelIdx >= 1 {
			issueTreeReduceLevel(evtMgr, sess)
			return nil
		}
		if st.flood {
			issueTreeFlood(evtMgr, sess)
			return nil
		}
		st.phase = broadcastPhase
		st.levelIdx = 0
		issueTreeBrdcstLevel(evtMgr, sess)
		return nil
	}
	st.levelIdx += 1
	if st.levelIdx <= len(st.tree.levels)-2 {
		issueTreeBrdcstLevel(evtMgr, sess)
		return nil
	}
	sess.complete(evtMgr)
	return nil
}
