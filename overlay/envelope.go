// Package overlay runs message-passing protocols on simulated peers. A
// protocol talks to the engine only through its Runtime, which supplies the
// send, task, and peer-discovery capabilities, and the Dispatcher turns
// sends into delivery events on the virtual clock.
package overlay

import (
	"github.com/grimadas/asci-a27/network"
	"github.com/grimadas/asci-a27/sim"
	"github.com/grimadas/asci-a27/wire"
)

// An Envelope carries one serialized message from sender to recipient. It is
// created at send time and discarded after delivery.
type Envelope struct {
	ID      string
	Overlay string
	Type    wire.MsgType
	From    network.Address
	To      network.Address
	Payload []byte

	SentAt    sim.VTimeInSec
	DeliverAt sim.VTimeInSec
}
