package overlay

import "errors"

// Overlay errors. All of them are local to the calling overlay and never
// abort the simulation.
var (
	// ErrOverlayStopped is returned when a stopped overlay attempts to send
	// a message or schedule a task.
	ErrOverlayStopped = errors.New("overlay is stopped")

	// ErrDuplicateHandler is returned when two handlers register the same
	// message type on one runtime.
	ErrDuplicateHandler = errors.New("handler for message type already registered")

	// ErrUnhandledMessageType is reported when a delivered message has no
	// handler on the recipient. The delivery is dropped.
	ErrUnhandledMessageType = errors.New("no handler for message type")

	// ErrPeerNotVerified is returned when sending to an address outside the
	// sender's verified set.
	ErrPeerNotVerified = errors.New("recipient is not a verified peer")

	// ErrDuplicateRoute is returned when two runtimes attach for the same
	// (peer, overlay) pair.
	ErrDuplicateRoute = errors.New("route already attached")
)
