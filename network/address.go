// Package network keeps the simulated peers, the links between them, and the
// latency models that shape message travel time. Peer identity and transport
// live outside the engine; an Address is just an opaque comparable token.
package network

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
)

// An Address identifies a peer. It holds the raw identifier bytes and is
// comparable, so it can key maps directly.
type Address string

// String returns the address in hex.
func (a Address) String() string {
	return hex.EncodeToString([]byte(a))
}

// Short returns an abbreviated hex form for logs and traces.
func (a Address) Short() string {
	s := a.String()
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

// DefaultAddresses derives n 20-byte addresses from a counter. Repeated runs
// with the same peer count see the same addresses, which keeps simulations
// repeatable when no external identity layer is plugged in.
func DefaultAddresses(n int) []Address {
	addrs := make([]Address, 0, n)
	for i := 0; i < n; i++ {
		sum := sha1.Sum([]byte(fmt.Sprintf("peer-%d", i)))
		addrs = append(addrs, Address(sum[:]))
	}
	return addrs
}
