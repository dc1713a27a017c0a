package SplitMap

import (
	Split_Order "github.com/g-m-twostay/split-order"
	"github.com/g-m-twostay/split-order/Maps"
	"github.com/g-m-twostay/split-order/Maps/internal"
	"golang.org/x/sys/cpu"
	"unsafe"
)

/*
SplitMap is a lock-free hash map built on a split-ordered list: every entry,
sentinel or regular, lives in one singly linked list sorted by bit-reversed
hash, and the bucket directory only holds shortcuts into that list. Doubling
the bucket count therefore never rehashes nor moves anything; new sentinels
are spliced between existing entries.

Linearizability: every call's effect collapses to one CAS (or atomic load),
except Size and Range, which are only eventually consistent.
All structure is mutated through CAS; failed CASes retry without blocking,
so no operation ever waits on another goroutine's progress. Reclamation of
unlinked entries is the garbage collector's job: a deleted node keeps its
successor pointer, and its memory can't be reused while any traversal still
references it.
*/
type SplitMap[K comparable, V any] struct {
	hashF      func(K) uint
	loadFactor float32
	head       node //sentinel of bucket 0, order 0; the list's origin.
	buckets    dir
	_          cpu.CacheLinePad //keep the write-hot counters off the read path's line.
	bucketN    Split_Order.AtomicUint
	count      Split_Order.AtomicUint
}

// New creates a table with the given bucket count (a power of 2) and load
// factor threshold (positive); the bucket count doubles whenever
// count > loadFactor * buckets and never shrinks. hashF should spread keys
// over the full uint range; see Maps.UintHash and Maps.StringHash.
func New[K comparable, V any](initialBuckets uint, loadFactor float32, hashF func(K) uint) *SplitMap[K, V] {
	if initialBuckets == 0 || initialBuckets&(initialBuckets-1) != 0 || initialBuckets > Maps.MaxBuckets {
		panic("SplitMap: initial bucket count must be a power of 2")
	}
	if loadFactor <= 0 {
		panic("SplitMap: load factor threshold must be positive")
	}
	u := new(SplitMap[K, V])
	u.hashF, u.loadFactor = hashF, loadFactor
	u.buckets.base = initialBuckets
	u.bucketN.Store(initialBuckets)
	u.buckets.tryWire(0, &u.head) //bucket 0 exists for the table's whole lifetime.
	return u
}

// Size is the approximate live entry count. It reads a relaxed counter, so
// concurrent writers can make it transiently off by the number of in-flight
// operations.
func (u *SplitMap[K, V]) Size() uint {
	return u.count.Load()
}

// ensureBucket returns bucket b's sentinel, materializing it on demand. A
// missing bucket first ensures its parent (b with the top set bit cleared)
// recursively, then splices its own sentinel in somewhere after the
// parent's; the recursion bottoms out at bucket 0, which New wires. Racing
// initializers agree on one sentinel because insertSentinel treats an
// equal-order hit as success and directory entries are write-once.
func (u *SplitMap[K, V]) ensureBucket(b uint) *node {
	if sen := u.buckets.get(b); sen != nil {
		return sen
	}
	parent := u.ensureBucket(Maps.ParentBucket(b))
	sen := u.insertSentinel(parent, Maps.SentinelOrder(b))
	u.buckets.tryWire(b, sen) //losing the race means a competitor wired this same node.
	return sen
}

func (u *SplitMap[K, V]) insertSentinel(start *node, order uint) *node {
	var fresh *node
	path, fb := internal.PathStack{}, func() *node { return start } //sentinels are never deleted, so start stays valid.
	for left, right := start.crawl(&path, fb); ; left, right = left.crawl(&path, fb) {
		if right == nil || order < right.order {
			if fresh == nil {
				fresh = &node{order: order}
			}
			if fresh.next = unsafe.Pointer(right); left.tryLink(right, unsafe.Pointer(fresh)) {
				return fresh
			}
		} else if right.order == order { //a competitor already linked this bucket's sentinel.
			return right
		} else {
			path.Push(unsafe.Pointer(right))
			left = right
		}
	}
}

// searchStart resolves a hash to the sentinel the read path begins at.
// Reads never materialize buckets: when the bucket picked by the current
// bucket count is uninitialized, the search falls back to its nearest
// initialized ancestor, whose sentinel precedes the bucket's whole region in
// split order. Anything the missing sentinels would have skipped is walked
// over instead.
func (u *SplitMap[K, V]) searchStart(hash uint) *node {
	for b := hash & (u.bucketN.Load() - 1); ; b = Maps.ParentBucket(b) {
		if sen := u.buckets.get(b); sen != nil {
			return sen
		}
	}
}

// grew bumps the entry count after a successful insert and, past the load
// factor threshold, tries to double the bucket count. The CAS makes
// concurrent doublers redundant rather than harmful; the directory segment
// backing the new index range is published here so later tryWires only CAS
// entries.
func (u *SplitMap[K, V]) grew() {
	c := u.count.Add(1)
	if n := u.bucketN.Load(); n < Maps.MaxBuckets && float32(c) > u.loadFactor*float32(n) {
		if u.bucketN.CompareAndSwap(n, n<<1) {
			u.buckets.grow(n)
		}
	}
}

// LoadOrStorePtr returns the present value's pointer if key already exists,
// otherwise links a new entry holding val and returns nil. This is the
// paper's reject-on-duplicate insert; exactly one of any number of
// concurrent inserters of the same key gets nil back.
func (u *SplitMap[K, V]) LoadOrStorePtr(key K, val *V) *V {
	hash := u.hashF(key)
	order := Maps.RegularOrder(hash)
	start := u.ensureBucket(hash & (u.bucketN.Load() - 1))
	var fresh *kvNode[K]
	path, fb := internal.PathStack{}, func() *node { return start }
	for left, right := start.crawl(&path, fb); ; left, right = left.crawl(&path, fb) {
		if right == nil || order < right.order {
			if fresh == nil { //allocate once; a failed tryLink reuses it.
				fresh = &kvNode[K]{node{order: order}, unsafe.Pointer(val), key}
			}
			if fresh.next = unsafe.Pointer(right); left.tryLink(right, unsafe.Pointer(fresh)) {
				u.grew()
				return nil
			}
		} else if right.order == order { //odd order, so right is regular; equal orders may still be distinct keys.
			if r := (*kvNode[K])(unsafe.Pointer(right)); r.key == key {
				return (*V)(r.get())
			}
			path.Push(unsafe.Pointer(right))
			left = right
		} else {
			path.Push(unsafe.Pointer(right))
			left = right
		}
	}
}

// LoadOrStore returns the existing value for key if present; otherwise it
// stores val. loaded tells which happened.
func (u *SplitMap[K, V]) LoadOrStore(key K, val V) (v V, loaded bool) {
	if a := u.LoadOrStorePtr(key, &val); a != nil {
		return *a, true
	}
	return val, false
}

// Insert stores val iff key isn't present, reporting whether it did.
func (u *SplitMap[K, V]) Insert(key K, val V) bool {
	return u.LoadOrStorePtr(key, &val) == nil
}

// StorePtr is the upsert: existing keys get their value pointer swapped in
// place (no structural change), absent keys are inserted. Reports whether a
// new entry was created.
func (u *SplitMap[K, V]) StorePtr(key K, val *V) bool {
	hash := u.hashF(key)
	order := Maps.RegularOrder(hash)
	start := u.ensureBucket(hash & (u.bucketN.Load() - 1))
	var fresh *kvNode[K]
	path, fb := internal.PathStack{}, func() *node { return start }
	for left, right := start.crawl(&path, fb); ; left, right = left.crawl(&path, fb) {
		if right == nil || order < right.order {
			if fresh == nil {
				fresh = &kvNode[K]{node{order: order}, unsafe.Pointer(val), key}
			}
			if fresh.next = unsafe.Pointer(right); left.tryLink(right, unsafe.Pointer(fresh)) {
				u.grew()
				return true
			}
		} else if right.order == order {
			if r := (*kvNode[K])(unsafe.Pointer(right)); r.key == key {
				r.set(unsafe.Pointer(val))
				return false
			}
			path.Push(unsafe.Pointer(right))
			left = right
		} else {
			path.Push(unsafe.Pointer(right))
			left = right
		}
	}
}

// Store sets key to val regardless of whether it's already present.
func (u *SplitMap[K, V]) Store(key K, val V) {
	u.StorePtr(key, &val)
}

// LoadPtr returns a pointer to key's value, or nil when absent.
func (u *SplitMap[K, V]) LoadPtr(key K) *V {
	hash := u.hashF(key)
	order := Maps.RegularOrder(hash)
	for cur := u.searchStart(hash).walk(); cur != nil && cur.order <= order; cur = cur.walk() {
		if cur.order == order {
			if r := (*kvNode[K])(unsafe.Pointer(cur)); r.key == key {
				return (*V)(r.get())
			}
		}
	}
	return nil
}

func (u *SplitMap[K, V]) Load(key K) (v V, ok bool) {
	if a := u.LoadPtr(key); a != nil {
		return *a, true
	}
	return
}

func (u *SplitMap[K, V]) HasKey(key K) bool {
	return u.LoadPtr(key) != nil
}

// LoadPtrAndDelete removes key, returning its value pointer, or nil when
// key was absent (including lost races against other deleters). The mark
// CAS inside is the removal's linearization point; the node is physically
// unlinked by whichever traversal passes it next.
func (u *SplitMap[K, V]) LoadPtrAndDelete(key K) *V {
	hash := u.hashF(key)
	order := Maps.RegularOrder(hash)
	for cur := u.searchStart(hash).walk(); cur != nil && cur.order <= order; cur = cur.walk() {
		if cur.order == order {
			if r := (*kvNode[K])(unsafe.Pointer(cur)); r.key == key {
				if cur.mark() {
					u.count.Add(^uint(0))
					return (*V)(r.get())
				}
				return nil
			}
		}
	}
	return nil
}

func (u *SplitMap[K, V]) LoadAndDelete(key K) (v V, loaded bool) {
	if a := u.LoadPtrAndDelete(key); a != nil {
		return *a, true
	}
	return
}

func (u *SplitMap[K, V]) Delete(key K) {
	u.LoadPtrAndDelete(key)
}

// RangePtr walks the whole list from the head sentinel, yielding every live
// regular entry in split order. Entries stored or deleted concurrently may
// or may not be seen; an entry present for the call's whole duration is
// yielded exactly once.
func (u *SplitMap[K, V]) RangePtr(yield func(K, *V) bool) {
	for cur := u.head.walk(); cur != nil; cur = cur.walk() {
		if Maps.Regular(cur.order) {
			if r := (*kvNode[K])(unsafe.Pointer(cur)); !yield(r.key, (*V)(r.get())) {
				break
			}
		}
	}
}

func (u *SplitMap[K, V]) Range(yield func(K, V) bool) {
	u.RangePtr(func(k K, v *V) bool {
		return yield(k, *v)
	})
}
