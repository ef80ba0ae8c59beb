package cmccl

// errors.go defines the error taxonomy shared by the topology builder,
// the transmission scheduler, and the collective engine

import (
	"github.com/pkg/errors"
)

// ErrInvalidTopoParam flags a malformed build request (odd fat-tree k,
// non-positive host count).  Raised before any device is created.
var ErrInvalidTopoParam = errors.New("invalid topology parameter")

// ErrNoRouteFound flags a unicast send with no corresponding flow.  The
// send is abandoned and logged; the issuing collective phase proceeds
// without waiting on it.
var ErrNoRouteFound = errors.New("no route found")

// ErrInvalidCollectiveConfig flags an empty or malformed participant set,
// or a pod-naming violation in hierarchical ring.  Fatal for the run,
// raised before any send is issued.
var ErrInvalidCollectiveConfig = errors.New("invalid collective configuration")
