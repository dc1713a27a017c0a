package Maps

import (
	Split_Order "github.com/g-m-twostay/split-order"
	"golang.org/x/exp/constraints"
	"unsafe"
)

// UintHash returns a hash function over any integer key type, seeded by h.
func UintHash[K constraints.Integer](h Split_Order.Hasher) func(K) uint {
	return func(v K) uint {
		return h.HashMem(unsafe.Pointer(&v), unsafe.Sizeof(v))
	}
}

// StringHash returns a hash function over string keys, seeded by h.
func StringHash(h Split_Order.Hasher) func(string) uint {
	return func(v string) uint {
		return h.HashString(v)
	}
}
