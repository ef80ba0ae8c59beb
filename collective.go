package cmccl

// collective.go holds the machinery shared by every collective algorithm:
// session state for one run, phase barriers over hand-off signals, and the
// configuration-selected dispatch into the algorithm variants.  All four
// algorithm families run in the single-coordinator shape: the engine issues
// each phase's sends in participant sort order, joins their hand-off
// signals in a barrier, and only then issues the next phase.

import (
	"github.com/iti/evt/evtm"
	"github.com/iti/evt/vrtime"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
)

// Algorithm kind names accepted by StartCollective
const (
	RingAlg       = "ring"
	TreeAlg       = "tree"
	BinaryTreeAlg = "binary-tree"
	BrdcstTreeAlg = "broadcast-tree"
	HierRingAlg   = "hierarchical-ring"
	PSAlg         = "parameter-server"
	BrdcstPSAlg   = "broadcast-parameter-server"
)

// virtual-time horizon for RunCollective; must stay representable on
// vrtime's int64 tick clock, and the queue drains long before it
const runLimitSecs = 1e5

// collectiveStarters selects an algorithm variant by configuration string
var collectiveStarters = map[string]func(*evtm.EventManager, *Session) error{
	RingAlg:       startRing,
	TreeAlg:       startTree,
	BinaryTreeAlg: startBinaryTree,
	BrdcstTreeAlg: startBrdcstTree,
	HierRingAlg:   startHierRing,
	PSAlg:         startPS,
	BrdcstPSAlg:   startBrdcstPS,
}

// Session is the per-run state of one collective.  It is created when the
// run starts, mutated only by the engine driving that run, and discarded
// when the run completes.
type Session struct {
	Alg      string
	net      *Network
	workers  []string // participant names, sorted
	dataSize int
	rpt      *Reporter

	start      float64
	Elapsed    float64 // set when the run's last phase barrier completes
	Done       bool
	BytesMoved int // payload bytes handed to the fabric across all sends

	state any // per-algorithm phase state
}

// StartCollective validates the participant set, builds the session, and
// issues the first phase's sends.  The caller drives the event manager to
// completion afterwards; RunCollective bundles both steps.
func StartCollective(evtMgr *evtm.EventManager, net *Network, alg string,
	participants []string, dataSize int, rpt *Reporter) (*Session, error) {

	if len(participants) == 0 {
		return nil, errors.Wrap(ErrInvalidCollectiveConfig, "empty participant set")
	}
	starter, present := collectiveStarters[alg]
	if !present {
		return nil, errors.Wrapf(ErrInvalidCollectiveConfig, "unknown algorithm %s", alg)
	}

	workers := slices.Clone(participants)
	slices.Sort(workers)
	for _, w := range workers {
		dev, known := net.Topo.DevByName[w]
		if !known || !dev.isHost() {
			return nil, errors.Wrapf(ErrInvalidCollectiveConfig, "participant %s is not a host", w)
		}
	}

	if rpt == nil {
		rpt = CreateReporter(nil)
	}

	sess := &Session{
		Alg:      alg,
		net:      net,
		workers:  workers,
		dataSize: dataSize,
		rpt:      rpt,
		start:    evtMgr.CurrentSeconds(),
	}

	err := starter(evtMgr, sess)
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// RunCollective builds a fresh event manager, starts the collective, and
// drives the virtual clock until the fabric drains.  The returned session's
// Elapsed is fixed when its final phase barrier completes; running the
// queue dry afterwards only flushes in-flight deliveries.
func RunCollective(net *Network, alg string, participants []string,
	dataSize int, rpt *Reporter) (*Session, error) {

	evtMgr := evtm.New()
	sess, err := StartCollective(evtMgr, net, alg, participants, dataSize, rpt)
	if err != nil {
		return nil, err
	}
	evtMgr.Run(runLimitSecs)
	return sess, nil
}

// Workers returns the sorted participant set of the session
func (sess *Session) Workers() []string {
	return slices.Clone(sess.workers)
}

// phaseBarrier joins the fixed set of hand-off signals for the sends of one
// phase step.  Partial completion never advances the phase: the
// continuation runs only after every awaited signal has fired.
type phaseBarrier struct {
	sess  *Session
	phase string
	step  int
	start float64

	need  int
	got   int
	armed bool

	cont evtm.EventHandlerFunction // continuation, run with the session as context
}

// newBarrier creates the barrier for one phase step; the continuation is
// scheduled (at zero delay) once the barrier completes
func (sess *Session) newBarrier(evtMgr *evtm.EventManager, phase string, step int,
	cont evtm.EventHandlerFunction) *phaseBarrier {

	return &phaseBarrier{
		sess:  sess,
		phase: phase,
		step:  step,
		start: evtMgr.CurrentSeconds(),
		cont:  cont,
	}
}

// arm fixes the number of signals the barrier waits for.  The send-issuing
// loop runs synchronously before any signal event can fire, so arming after
// the loop is race-free on the single-threaded event manager.  A step whose
// sends were all skipped completes immediately.
func (pb *phaseBarrier) arm(evtMgr *evtm.EventManager, issued int) {
	pb.need = issued
	pb.armed = true
	if pb.got >= pb.need {
		pb.finish(evtMgr)
	}
}

// barrierSignal is the hand-off completion handler joined by every send of
// a phase step; the context is the barrier, the data the handed-off packet
func barrierSignal(evtMgr *evtm.EventManager, context any, data any) any {
	pb := context.(*phaseBarrier)
	pb.got += 1
	if pb.armed && pb.got >= pb.need {
		pb.finish(evtMgr)
	}
	return nil
}

// finish records the phase step and schedules the continuation
func (pb *phaseBarrier) finish(evtMgr *evtm.EventManager) {
	now := evtMgr.CurrentSeconds()
	pb.sess.rpt.AddPhase(pb.sess.Alg, pb.phase, pb.step, pb.start, now)
	if pb.cont != nil {
		evtMgr.Schedule(pb.sess, nil, pb.cont, vrtime.SecondsToTime(0.0))
	}
}

// sendGated issues one unicast send joined to the barrier and returns
// whether it was accepted by the fabric.  A send with no route is skipped
// and logged; the current run does not retry it.
func (sess *Session) sendGated(evtMgr *evtm.EventManager, src, dst string,
	msgLen int, pb *phaseBarrier) bool {

	err := sess.net.Send(evtMgr, src, dst, msgLen, pb, barrierSignal)
	if err != nil {
		sess.net.logWarn(logrus.Fields{
			"algorithm": sess.Alg,
			"phase":     pb.phase,
			"step":      pb.step,
			"src":       src,
			"dst":       dst,
		}, "send skipped: "+err.Error())
		return false
	}
	sess.BytesMoved += msgLen
	return true
}

// sendBrdcstGated issues one flood broadcast joined to the barrier
func (sess *Session) sendBrdcstGated(evtMgr *evtm.EventManager, src string,
	msgLen int, pb *phaseBarrier) bool {

	err := sess.net.SendBrdcst(evtMgr, src, msgLen, pb, barrierSignal)
	if err != nil {
		sess.net.logWarn(logrus.Fields{
			"algorithm": sess.Alg,
			"phase":     pb.phase,
			"step":      pb.step,
			"src":       src,
		}, "broadcast skipped: "+err.Error())
		return false
	}
	sess.BytesMoved += msgLen
	return true
}

// complete marks the run finished at the current virtual time
func (sess *Session) complete(evtMgr *evtm.EventManager) {
	sess.Elapsed = evtMgr.CurrentSeconds() - sess.start
	sess.Done = true
}

// sessionComplete is the continuation scheduled after a run's final barrier
func sessionComplete(evtMgr *evtm.EventManager, context any, data any) any {
	sess := context.(*Session)
	sess.complete(evtMgr)
	return nil
}

// ringSuccessor locates a participant in a sorted ring and returns the next
// member, wrapping at the end
func ringSuccessor(ring []string, w string) string {
	idx := slices.Index(ring, w)
	return ring[(idx+1)%len(ring)]
}

// ringPredecessor is the inverse of ringSuccessor
func ringPredecessor(ring []string, w string) string {
	idx := slices.Index(ring, w)
	return ring[(idx-1+len(ring))%len(ring)]
}
