package network

import "math/rand"

// A Topology maps each peer address to the addresses it is connected to.
// Links are directed; symmetric topologies simply list every link twice.
type Topology map[Address][]Address

// A Generator builds a topology for a set of peer addresses. Generators are
// pure functions of their inputs so that runs are repeatable.
type Generator func(addrs []Address) Topology

// FullyConnected links every peer to every other peer.
func FullyConnected(addrs []Address) Topology {
	t := make(Topology, len(addrs))
	for _, src := range addrs {
		for _, dst := range addrs {
			if src == dst {
				continue
			}
			t[src] = append(t[src], dst)
		}
	}
	return t
}

// Ring links the peers into a bidirectional ring in address-slice order.
func Ring(addrs []Address) Topology {
	t := make(Topology, len(addrs))
	n := len(addrs)
	if n < 2 {
		return t
	}

	for i, src := range addrs {
		next := addrs[(i+1)%n]
		prev := addrs[(i+n-1)%n]
		t[src] = append(t[src], next)
		if prev != next {
			t[src] = append(t[src], prev)
		}
	}

	return t
}

// Star links the first address to every other peer and back.
func Star(addrs []Address) Topology {
	t := make(Topology, len(addrs))
	if len(addrs) < 2 {
		return t
	}

	hub := addrs[0]
	for _, leaf := range addrs[1:] {
		t[hub] = append(t[hub], leaf)
		t[leaf] = append(t[leaf], hub)
	}

	return t
}

// RandomGraph returns a generator where every peer picks the given number of
// distinct neighbors, with links added in both directions. The same seed
// always produces the same graph. A degree below 1 yields a topology with no
// links; callers that treat that as a mistake must validate the degree
// themselves.
func RandomGraph(degree int, seed int64) Generator {
	return func(addrs []Address) Topology {
		t := make(Topology, len(addrs))
		n := len(addrs)
		if n < 2 {
			return t
		}

		d := degree
		if d > n-1 {
			d = n - 1
		}

		rng := rand.New(rand.NewSource(seed))
		for i, src := range addrs {
			picked := make(map[int]struct{})
			for len(picked) < d {
				j := rng.Intn(n)
				if j == i {
					continue
				}
				if _, dup := picked[j]; dup {
					continue
				}
				picked[j] = struct{}{}

				dst := addrs[j]
				t[src] = append(t[src], dst)
				t[dst] = append(t[dst], src)
			}
		}

		return t
	}
}
