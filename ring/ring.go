// Copyright (c) Facebook, Inc. and its affiliates. All Rights Reserved

// Package ring implements a consistent hashing ring: a circular
// doubly-linked sequence of nodes ordered ascending by position, each
// owning a mapping of resource keys routed to it by forward modular
// distance. Node positions are plain integers, not virtual nodes or
// hash-ring replicas - callers add real nodes at real positions.
package ring

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"
)

// ErrOutOfRange reports a position outside [0, 2^k-1].
var ErrOutOfRange = errors.New("ring: position out of range")

// ErrDuplicatePosition reports an add_node call at a position a node
// already occupies. The spec left this case an open question; this
// implementation rejects it rather than silently reinserting or
// replacing the existing node, so a caller never loses a node's
// resource mapping by accident.
var ErrDuplicatePosition = errors.New("ring: a node already exists at this position")

// ErrNodeNotFound reports a move_resource endpoint that does not
// exist; unlike remove_node on a missing position, this is a
// programmer error per the spec's failure taxonomy.
var ErrNodeNotFound = errors.New("ring: node not found")

// Node is a single position on the ring. Resources is keyed by
// resource value; the spec stores (r, r) so key and value coincide.
type Node struct {
	Value     uint64
	Resources map[uint64]uint64
	next      *Node
	prev      *Node
}

// ResourceCount reports how many resources this node currently owns.
func (n *Node) ResourceCount() int {
	return len(n.Resources)
}

// Ring is a circular doubly-linked list of Nodes ordered ascending by
// Value, spanning positions [0, 2^k-1]. It is not safe for concurrent
// use; callers serialize their own mutations. Every mutator acquires
// its node handles in a fixed order - predecessor, self, successor -
// so that a future caller adding fine-grained locking has a
// well-defined lock order to follow.
type Ring struct {
	k      uint
	bound  uint64 // 2^k
	head   *Node
	count  int
	logger hclog.Logger
}

// Option configures a Ring at construction time.
type Option func(*Ring)

// WithLogger attaches a logger for add/remove/move notifications. The
// ring operates correctly with none attached; New installs a no-op
// logger by default.
func WithLogger(l hclog.Logger) Option {
	return func(r *Ring) {
		if l != nil {
			r.logger = l
		}
	}
}

// New allocates an empty ring over [0, 2^k-1]. k must leave room for
// positions to fit a signed machine word (k <= 62, per the library's
// numeric range contract), matching the Quotient Filter's own
// q+r <= 64 bound in spirit.
func New(k uint, opts ...Option) (*Ring, error) {
	if k == 0 || k > 62 {
		return nil, fmt.Errorf("ring: k must be in [1, 62], got %d", k)
	}
	r := &Ring{
		k:      k,
		bound:  uint64(1) << k,
		logger: hclog.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// K reports the ring's key width.
func (r *Ring) K() uint { return r.k }

// Len reports the number of nodes currently on the ring.
func (r *Ring) Len() int { return r.count }

func (r *Ring) inRange(h uint64) bool {
	return h < r.bound
}

// Distance is the forward modular distance from a to b on a ring of
// width k: b-a if a<=b, else 2^k+(b-a). Distance(a, a) is 0.
func Distance(a, b uint64, k uint) uint64 {
	bound := uint64(1) << k
	if a <= b {
		return b - a
	}
	return bound + (b - a)
}

func (r *Ring) dist(a, b uint64) uint64 {
	return Distance(a, b, r.k)
}

// Nodes returns ring positions in ascending order, starting at head.
func (r *Ring) Nodes() []uint64 {
	if r.head == nil {
		return nil
	}
	out := make([]uint64, 0, r.count)
	n := r.head
	for {
		out = append(out, n.Value)
		n = n.next
		if n == r.head {
			break
		}
	}
	return out
}

// ResourceCount reports how many resources the node at position h
// owns, and whether a node exists there at all.
func (r *Ring) ResourceCount(h uint64) (int, bool) {
	n := r.find(h)
	if n == nil || n.Value != h {
		return 0, false
	}
	return n.ResourceCount(), true
}

// find returns the node that owns position h: the node with the
// smallest value >= h, or head if no such node exists (h falls past
// every node and wraps around). An exact match at h is returned as
// soon as it's reached, since it's trivially the smallest value >= h.
// It returns nil on an empty ring. find is the shared successor-lookup
// primitive behind Lookup/AddNode/RemoveNode/ResourceCount/
// MoveResource, so it's the single place that logs "successor found".
func (r *Ring) find(h uint64) *Node {
	if r.head == nil {
		return nil
	}
	n := r.head
	for {
		if n.Value >= h {
			r.logger.Debug("successor found", "position", h, "successor", n.Value)
			return n
		}
		n = n.next
		if n == r.head {
			r.logger.Debug("successor found", "position", h, "successor", n.Value, "wrapped", true)
			return r.head
		}
	}
}

// AddNode inserts a node at position h. Resources are migrated from
// h's successor: each resource r owned by the successor moves to the
// new node iff d(r, h) < d(r, successor). head is reassigned if h is
// now the minimum position on the ring.
func (r *Ring) AddNode(h uint64) error {
	if !r.inRange(h) {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrOutOfRange, h, r.bound-1)
	}

	if r.head == nil {
		n := &Node{Value: h, Resources: map[uint64]uint64{}}
		n.next, n.prev = n, n
		r.head = n
		r.count = 1
		r.logger.Info("node added", "position", h, "ring_size", r.count)
		return nil
	}

	successor := r.find(h)
	if successor.Value == h {
		return fmt.Errorf("%w: %d", ErrDuplicatePosition, h)
	}

	n := &Node{Value: h, Resources: map[uint64]uint64{}}
	pred := successor.prev
	pred.next, n.prev = n, pred
	n.next, successor.prev = successor, n
	r.count++

	for res, val := range successor.Resources {
		if r.dist(res, h) < r.dist(res, successor.Value) {
			delete(successor.Resources, res)
			n.Resources[res] = val
		}
	}

	if h < r.head.Value {
		r.head = n
	}

	r.logger.Info("node added", "position", h, "ring_size", r.count, "migrated_from", successor.Value)
	return nil
}

// RemoveNode deletes the node at position h, moving all of its
// resources unconditionally to its successor. A missing node is
// recoverable: it is logged as a warning and the call returns
// normally, per the spec's absence-is-not-an-error rule.
func (r *Ring) RemoveNode(h uint64) {
	n := r.find(h)
	if n == nil || n.Value != h {
		r.logger.Warn("remove_node: no node at position", "position", h)
		return
	}

	successor := n.next
	if successor != n {
		for res, val := range n.Resources {
			successor.Resources[res] = val
		}
	}

	if n.next == n {
		r.head = nil
	} else {
		n.prev.next = n.next
		n.next.prev = n.prev
		if r.head == n {
			r.head = n.next
		}
	}
	r.count--
	r.logger.Info("node removed", "position", h, "ring_size", r.count)
}

// Lookup returns the node owning position h: an exact match if one
// exists at h, otherwise the node with the smallest value >= h
// modulo the ring. ok is false only when the ring is empty.
func (r *Ring) Lookup(h uint64) (n *Node, ok bool) {
	n = r.find(h)
	return n, n != nil
}

// AddResource routes r to the node lookup(r) selects and records it
// there as (r, r).
func (r *Ring) AddResource(resource uint64) error {
	if !r.inRange(resource) {
		return fmt.Errorf("%w: resource %d not in [0, %d]", ErrOutOfRange, resource, r.bound-1)
	}
	owner, ok := r.Lookup(resource)
	if !ok {
		return fmt.Errorf("ring: cannot add resource %d, ring has no nodes", resource)
	}
	owner.Resources[resource] = resource
	return nil
}

// MoveResource moves every resource on src to dst. Without force, a
// resource only moves if dst is strictly closer to it than src is;
// with force, every resource on src moves unconditionally. Both dst
// and src must already exist.
func (r *Ring) MoveResource(dst, src uint64, force bool) error {
	dstNode := r.find(dst)
	if dstNode == nil || dstNode.Value != dst {
		return fmt.Errorf("%w: dst %d", ErrNodeNotFound, dst)
	}
	srcNode := r.find(src)
	if srcNode == nil || srcNode.Value != src {
		return fmt.Errorf("%w: src %d", ErrNodeNotFound, src)
	}

	for res, val := range srcNode.Resources {
		if force || r.dist(res, dst) < r.dist(res, src) {
			delete(srcNode.Resources, res)
			dstNode.Resources[res] = val
		}
	}
	r.logger.Info("resources moved", "dst", dst, "src", src, "force", force)
	return nil
}
