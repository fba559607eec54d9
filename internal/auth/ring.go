package auth

import (
	"hash/fnv"
	"sort"
	"strconv"
	"sync"
)

// Ring maps cache keys onto a fixed set of cache nodes with consistent
// hashing, so adding a node only remaps a small share of tokens.
type Ring struct {
	mu       sync.RWMutex
	replicas int
	points   []uint32
	owners   map[uint32]string
	nodes    map[string]struct{}
}

// NewRing builds a ring over the given nodes. An empty node list gets a
// single default node so lookups always resolve.
func NewRing(nodes []string, replicas int) *Ring {
	if replicas <= 0 {
		replicas = 50
	}
	if len(nodes) == 0 {
		nodes = []string{"authcache-default"}
	}
	r := &Ring{
		replicas: replicas,
		owners:   make(map[uint32]string),
		nodes:    make(map[string]struct{}),
	}
	r.Add(nodes...)
	return r
}

func hashPoint(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}

// Add places nodes (and their virtual replicas) on the ring.
func (r *Ring) Add(nodes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, node := range nodes {
		if _, exists := r.nodes[node]; exists {
			continue
		}
		r.nodes[node] = struct{}{}
		for i := 0; i < r.replicas; i++ {
			p := hashPoint(node + "#" + strconv.Itoa(i))
			r.points = append(r.points, p)
			r.owners[p] = node
		}
	}
	sort.Slice(r.points, func(i, j int) bool { return r.points[i] < r.points[j] })
}

// Lookup returns the node owning the key.
func (r *Ring) Lookup(key string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.points) == 0 {
		return ""
	}
	h := hashPoint(key)
	idx := sort.Search(len(r.points), func(i int) bool { return r.points[i] >= h })
	if idx == len(r.points) {
		idx = 0
	}
	return r.owners[r.points[idx]]
}
