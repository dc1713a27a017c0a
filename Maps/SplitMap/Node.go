package SplitMap

import (
	"fmt"
	"github.com/g-m-twostay/split-order/Maps"
	"github.com/g-m-twostay/split-order/Maps/internal"
	"sync/atomic"
	"unsafe"
)

const (
	deletedMask uintptr = 1
	_                   = uint(unsafe.Alignof(node{}.next) - 2) //assert the low bit of next is free for tagging.
)

// node is a sentinel entry of the split-ordered list. Regular entries embed
// it as their first field, so any *node loaded from a next pointer can be
// recast to *kvNode once Maps.Regular(order) says so; sentinel order keys
// are even, regular ones odd, and the list is sorted by order ascending.
type node struct {
	order uint
	next  unsafe.Pointer //low bit set means this node is logically deleted.
}

type kvNode[K comparable] struct {
	node
	val unsafe.Pointer
	key K
}

// mark logically deletes n by raising the deleted bit on its next pointer.
// This is the linearization point of a removal; it returns false if another
// deleter already won. The successor bits stay intact so concurrent
// traversals keep terminating, and physical unlinking is left to whichever
// walk or crawl passes by next.
func (n *node) mark() bool {
	return atomic.OrUintptr((*uintptr)(unsafe.Pointer(&n.next)), deletedMask)&deletedMask == 0
}

// tryLink publishes a new successor: CAS n.next from the raw old pointer to
// newRight. Fails if n was marked or a competing link/unlink changed next.
func (n *node) tryLink(old *node, newRight unsafe.Pointer) bool {
	return atomic.CompareAndSwapPointer(&n.next, unsafe.Pointer(old), newRight)
}

// walk returns the first live node after left, or nil at the end of the
// list. When it sees a logically deleted successor it chases the deleted run
// to its first live survivor and helps unlink the run with a single CAS;
// whether or not that CAS wins, the survivor is returned, so readers never
// wait on deleters.
func (left *node) walk() *node {
	right := atomic.LoadPointer(&left.next)
	if uintptr(right) <= deletedMask { //nil next; a set deleted bit here belongs to left, not right.
		return nil
	}
	rightAddr := (*node)(unsafe.Pointer(uintptr(right) &^ deletedMask))
	if right2 := atomic.LoadUintptr((*uintptr)(unsafe.Pointer(&rightAddr.next))); right2&deletedMask == 0 {
		return rightAddr
	} else {
		for right2 &^= deletedMask; right2 != 0; { //find the first successor that isn't deleted.
			right3 := atomic.LoadUintptr((*uintptr)(unsafe.Pointer(&(*node)(unsafe.Pointer(right2)).next)))
			if right3&deletedMask == 0 {
				break
			}
			right2 = right3 &^ deletedMask
		}
		atomic.CompareAndSwapUintptr((*uintptr)(unsafe.Pointer(&left.next)), uintptr(right)&^deletedMask, right2) //only helps when left itself is still live.
		return (*node)(unsafe.Pointer(right2))
	}
}

// crawl gives two consecutive live nodes (left, right), right being nil at
// the end of the list. Unlike walk it must leave left valid for a subsequent
// tryLink, so when left turns out to be deleted it backtracks through path
// and finally through fb. Deleted successors are unlinked before being
// stepped over; a failed unlink CAS just reloads. Writers call this in a
// retry loop, pushing each node they step past onto path.
func (left *node) crawl(path *internal.PathStack, fb func() *node) (*node, *node) {
retry:
	right := atomic.LoadPointer(&left.next)
	if uintptr(right)&deletedMask != 0 { //left got deleted under us; back up to a live predecessor.
		if left = (*node)(path.Pop()); left == nil {
			left = fb()
		}
		goto retry
	}
	if right == nil {
		return left, nil
	}
	if right2 := atomic.LoadUintptr((*uintptr)(unsafe.Pointer(&(*node)(right).next))); right2&deletedMask == 0 {
		return left, (*node)(right)
	} else {
		for right2 &^= deletedMask; right2 != 0; {
			right3 := atomic.LoadUintptr((*uintptr)(unsafe.Pointer(&(*node)(unsafe.Pointer(right2)).next)))
			if right3&deletedMask == 0 {
				break
			}
			right2 = right3 &^ deletedMask
		}
		if atomic.CompareAndSwapUintptr((*uintptr)(unsafe.Pointer(&left.next)), uintptr(right), right2) {
			return left, (*node)(unsafe.Pointer(right2))
		}
		goto retry
	}
}

func (n *kvNode[K]) get() unsafe.Pointer {
	return atomic.LoadPointer(&n.val)
}

func (n *kvNode[K]) set(v unsafe.Pointer) {
	atomic.StorePointer(&n.val, v)
}

func (n *node) String() string {
	nx := atomic.LoadUintptr((*uintptr)(unsafe.Pointer(&n.next)))
	return fmt.Sprintf("order: %b; sentinel: %t; del: %t", n.order, !Maps.Regular(n.order), nx&deletedMask != 0)
}
