package wcerr

import (
	"fmt"
	"strings"
)

// Node is one link in a Chain: either a trace link (a pure breadcrumb
// carrying only a source location) or a real error (carrying a code and
// message).
type Node struct {
	// Trace is true when this node carries no message of its own, only
	// a source location, per §4.6's distinction.
	Trace bool

	// Code identifies the error kind. Empty for pure trace links.
	Code string

	// Message is the human-readable text for this node. Empty for trace
	// links.
	Message string

	// File and Line are the optional source-location metadata recorded
	// at the point the node was created.
	File string
	Line int

	refcount int
}

// Chain is a singly-linked, shared-ownership chain of Nodes from
// outermost (index 0) to innermost cause. It is the concrete type the
// editor builds while propagating an error up the callback stack and
// converting it into the public exception type at the boundary.
type Chain struct {
	nodes []*Node
}

// NewChain starts a chain with one real-error node.
func NewChain(code, message string) *Chain {
	return &Chain{nodes: []*Node{{Code: code, Message: message, refcount: 1}}}
}

// Trace appends a trace-link breadcrumb recording only a source
// location, as emitted at each frame an error passes through without
// being re-described.
func (c *Chain) Trace(file string, line int) *Chain {
	c.nodes = append(c.nodes, &Node{Trace: true, File: file, Line: line, refcount: 1})
	return c
}

// Wrap returns a new chain whose first (outermost) node is a new
// real-error node, layered on top of whatever the chain already held.
// The existing chain's nodes are shared, each with its reference count
// bumped, rather than copied,
// matching the shared-ownership model: multiple outer errors may point
// at the same inner cause chain.
func (c *Chain) Wrap(code, message string) *Chain {
	wrapped := &Chain{nodes: append([]*Node{{Code: code, Message: message, refcount: 1}}, c.nodes...)}
	for _, n := range c.nodes {
		n.refcount++
	}
	return wrapped
}

// Error implements the error interface as Render(false): trace-link
// nodes contribute nothing, and a real-error node whose code was already
// rendered by an earlier node is suppressed.
func (c *Chain) Error() string {
	return c.Render(false)
}

// Render formats the chain. When withTrace is true, every trace-link
// node contributes a "file:line" breadcrumb line; real-error nodes
// always contribute their message, but only the first occurrence of a
// given code across the chain is kept.
func (c *Chain) Render(withTrace bool) string {
	var b strings.Builder
	seen := make(map[string]bool)

	for _, n := range c.nodes {
		if n.Trace {
			if withTrace {
				fmt.Fprintf(&b, "  at %s:%d\n", n.File, n.Line)
			}
			continue
		}
		if n.Code != "" && seen[n.Code] {
			continue
		}
		if n.Code != "" {
			seen[n.Code] = true
		}
		if b.Len() > 0 {
			b.WriteString(": ")
		}
		b.WriteString(n.Message)
	}
	return b.String()
}

// Nodes returns the chain's nodes, outermost first. The slice is a copy;
// callers must not mutate the returned Nodes' shared state directly.
func (c *Chain) Nodes() []*Node {
	out := make([]*Node, len(c.nodes))
	copy(out, c.nodes)
	return out
}

// Release decrements every node's reference count. This mirrors the
// two-pass construction the editor's public-exception conversion uses:
// each node's description is pre-allocated with a post-increment
// refcount during construction, so that if construction fails partway
// through, the already-allocated descriptions can be unwound by
// releasing each exactly once. Nodes whose count reaches zero are
// considered free; Release is idempotent-safe to call more than once
// only because construction never double-increments a given node.
func (c *Chain) Release() {
	for _, n := range c.nodes {
		if n.refcount > 0 {
			n.refcount--
		}
	}
}

// Refcount reports a node's current reference count, exposed for tests
// that assert the two-pass construction/unwind invariant.
func (n *Node) Refcount() int {
	return n.refcount
}
