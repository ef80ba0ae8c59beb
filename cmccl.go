// Package cmccl simulates collective-communication primitives (AllReduce
// variants used in distributed training) mapped onto datacenter network
// topologies.  A topology of hosts and switches is built once, shortest-path
// flows and per-device forwarding tables are derived from it, and a
// discrete-event virtual clock (github.com/iti/evt) carries packets
// hop-by-hop across the fabric, either by flow-table unicast or by
// loop-suppressed broadcast flooding.  The collective engine issues the sends
// of Ring, Tree, Hierarchical-Ring, and Parameter-Server AllReduce in
// explicit phases gated by barriers over the sends' hand-off signals.
package cmccl

// intPair groups two related integers, typically (src id, dst id)
type intPair struct {
	i, j int
}
