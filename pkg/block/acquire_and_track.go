package block

import (
	"errors"
	"fmt"

	"github.com/softnav/gnssdr/pkg/gnss"
)

// AcquireAndTrack supervises the common acquire-then-track pattern: while
// awaiting acquisition, inputs go to the acquisition block; a successful
// acquisition becomes the control value that initializes the tracker, and
// inputs go to the tracker from then on. A tracker reporting loss of lock
// demotes the pair back to acquisition without disturbing anything else.
type AcquireAndTrack[T, U, V any, A Functionality[Unit, Unit, T, U], B Functionality[U, Unit, T, V]] struct {
	Acq         A
	Trk         B
	AwaitingAcq bool
}

// NewAcquireAndTrack pairs an acquisition block with a tracker
func NewAcquireAndTrack[T, U, V any, A Functionality[Unit, Unit, T, U], B Functionality[U, Unit, T, V]](acq A, trk B) *AcquireAndTrack[T, U, V, A, B] {
	return &AcquireAndTrack[T, U, V, A, B]{Acq: acq, Trk: trk, AwaitingAcq: true}
}

// Control reports whether the pair is actively tracking
func (a *AcquireAndTrack[T, U, V, A, B]) Control(_ Unit) (bool, error) {
	return !a.AwaitingAcq, nil
}

// Apply routes the input to the acquisition block or the tracker depending
// on the current mode.
func (a *AcquireAndTrack[T, U, V, A, B]) Apply(t T) Result[V] {
	if a.AwaitingAcq {
		res := a.Acq.Apply(t)
		switch {
		case res.Err() != nil:
			return Fail[V](res.Err())
		case res.IsReady():
			// Successful acquisition: hand the result to the tracker and
			// switch over
			if _, err := a.Trk.Control(res.Value()); err != nil {
				return Fail[V](fmt.Errorf("initializing tracker from acquisition: %w", err))
			}
			a.AwaitingAcq = false
			return NotReady[V]()
		default:
			return NotReady[V]()
		}
	}

	res := a.Trk.Apply(t)
	if err := res.Err(); err != nil {
		if errors.Is(err, gnss.ErrLossOfLock) {
			// Loss of lock is a channel-local event: fall back to
			// acquisition and swallow the error
			a.AwaitingAcq = true
			return NotReady[V]()
		}
		// Anything else from a tracker indicates a real fault
		return Fail[V](err)
	}
	return res
}
