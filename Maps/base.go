package Maps

import "math/bits"

const (
	// regularBit is forced onto every hash before reversal, making regular
	// order keys odd and sentinel order keys even so the two can never
	// collide.
	regularBit uint = 1 << (bits.UintSize - 1)
	// MaxBuckets is the largest bucket count a table may double to. Bucket
	// indexes stay below it, so they reverse to even order keys.
	MaxBuckets uint = 1 << (bits.UintSize - 1)
)

// RegularOrder maps a key's hash to its position in the split-ordered list.
// The result is always odd.
func RegularOrder(hash uint) uint {
	return bits.Reverse(hash | regularBit)
}

// SentinelOrder maps a bucket index to its sentinel's position in the
// split-ordered list. The result is always even, and for any hash landing in
// bucket b it's the greatest sentinel order <= RegularOrder(hash). This is
// what lets buckets 2b and 2b+1 splice between existing entries when the
// table doubles without moving anything.
func SentinelOrder(bucket uint) uint {
	return bits.Reverse(bucket)
}

// Regular reports whether an order key belongs to a regular entry rather
// than a sentinel.
func Regular(order uint) bool {
	return order&1 != 0
}

// ParentBucket clears the highest set bit of bucket, giving the bucket whose
// sentinel must exist before bucket's own sentinel can be linked. bucket must
// be nonzero; 0 is the recursion's base case and has no parent.
func ParentBucket(bucket uint) uint {
	return bucket &^ (1 << (bits.Len(bucket) - 1))
}
