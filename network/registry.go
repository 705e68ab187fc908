package network

import (
	"errors"
	"fmt"
)

// Registry errors. They surface during simulation setup and abort the run
// before any event is processed.
var (
	// ErrDuplicatePeer is returned when a peer address is created twice.
	ErrDuplicatePeer = errors.New("peer already exists")

	// ErrUnknownPeer is returned when a topology names an address that no
	// peer carries.
	ErrUnknownPeer = errors.New("peer does not exist")
)

// A Registry owns the peers of one simulation. Peers are created before the
// run, wired once from a topology, and addressed by reference afterwards.
type Registry struct {
	peers []*Peer
	index map[Address]*Peer
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		index: make(map[Address]*Peer),
	}
}

// CreatePeer allocates a peer with an empty verified set.
func (r *Registry) CreatePeer(addr Address) (*Peer, error) {
	if _, found := r.index[addr]; found {
		return nil, fmt.Errorf("%w: %s", ErrDuplicatePeer, addr.Short())
	}

	p := newPeer(addr)
	r.peers = append(r.peers, p)
	r.index[addr] = p

	return p, nil
}

// Peer returns the peer with the given address.
func (r *Registry) Peer(addr Address) (*Peer, bool) {
	p, found := r.index[addr]
	return p, found
}

// Peers returns all the peers in creation order.
func (r *Registry) Peers() []*Peer {
	out := make([]*Peer, len(r.peers))
	copy(out, r.peers)
	return out
}

// NumPeers returns the number of peers created so far.
func (r *Registry) NumPeers() int {
	return len(r.peers)
}

// Wire applies a topology, growing each peer's verified set with its
// neighbors. Peers are wired in creation order and neighbors in the order
// the topology lists them, so the resulting verified sets are deterministic.
// Wire is the only bulk mutation of verified sets; afterwards only the
// owning overlay may grow its own peer's set.
func (r *Registry) Wire(t Topology) error {
	for addr := range t {
		if _, found := r.index[addr]; !found {
			return fmt.Errorf("%w: topology source %s",
				ErrUnknownPeer, addr.Short())
		}
	}

	for _, p := range r.peers {
		for _, neighbor := range t[p.addr] {
			if _, found := r.index[neighbor]; !found {
				return fmt.Errorf("%w: topology target %s",
					ErrUnknownPeer, neighbor.Short())
			}

			p.AddVerified(neighbor)
		}
	}

	return nil
}
