package internal

import "unsafe"

const pathCap = 1 << 2

// PathStack records the last few predecessors visited during a list
// traversal so a writer can backtrack past a freshly deleted node instead of
// restarting from the bucket sentinel. Pushing past capacity silently drops
// the oldest entry; popping an empty stack yields nil, which callers treat
// as "fall back to the sentinel".
type PathStack struct {
	vs         [pathCap]unsafe.Pointer
	head, tail byte
}

func (ps *PathStack) Push(v unsafe.Pointer) {
	ps.vs[ps.head&(pathCap-1)] = v
	ps.head++
	if ps.head-ps.tail > pathCap {
		ps.tail++
	}
}

func (ps *PathStack) Pop() unsafe.Pointer {
	if ps.tail == ps.head {
		return nil
	}
	ps.head--
	return ps.vs[ps.head&(pathCap-1)]
}

func (ps *PathStack) Empty() bool {
	return ps.head == ps.tail
}

// Clear drops everything recorded so far. Used when a traversal restarts
// from a different sentinel.
func (ps *PathStack) Clear() {
	ps.head, ps.tail = 0, 0
}
