package network

// A Peer is one simulated node. It keeps the ordered set of addresses it
// considers verified, which are the peers it may send messages to. The set
// preserves insertion order so that iteration is deterministic across
// repeated runs.
type Peer struct {
	addr        Address
	verified    []Address
	verifiedSet map[Address]struct{}
}

func newPeer(addr Address) *Peer {
	return &Peer{
		addr:        addr,
		verifiedSet: make(map[Address]struct{}),
	}
}

// Address returns the address of the peer.
func (p *Peer) Address() Address {
	return p.addr
}

// AddVerified adds an address to the verified set. Adding the peer's own
// address or an already-known address is a no-op and returns false.
func (p *Peer) AddVerified(addr Address) bool {
	if addr == p.addr {
		return false
	}

	if _, found := p.verifiedSet[addr]; found {
		return false
	}

	p.verified = append(p.verified, addr)
	p.verifiedSet[addr] = struct{}{}

	return true
}

// Knows tells if the address is in the verified set.
func (p *Peer) Knows(addr Address) bool {
	_, found := p.verifiedSet[addr]
	return found
}

// VerifiedPeers returns the verified addresses in insertion order. The
// returned slice is a copy.
func (p *Peer) VerifiedPeers() []Address {
	out := make([]Address, len(p.verified))
	copy(out, p.verified)
	return out
}

// NumVerified returns the size of the verified set.
func (p *Peer) NumVerified() int {
	return len(p.verified)
}
