package Maps

import (
	"testing"
)

func TestOrderParity(t *testing.T) {
	for i := uint(0); i < 1<<12; i++ {
		if !Regular(RegularOrder(i)) {
			t.Fatalf("regular order of %d is even", i)
		}
		if Regular(SentinelOrder(i)) {
			t.Fatalf("sentinel order of %d is odd", i)
		}
	}
}

func TestParentBucket(t *testing.T) {
	cases := [][2]uint{{1, 0}, {2, 0}, {3, 1}, {4, 0}, {5, 1}, {6, 2}, {7, 3}, {8, 0}, {12, 4}, {1<<20 | 3, 3}}
	for _, c := range cases {
		if a := ParentBucket(c[0]); a != c[1] {
			t.Errorf("parent of %d: got %d, expected %d", c[0], a, c[1])
		}
	}
}

// every hash's regular order must fall in the region owned by its bucket's
// sentinel: the owning sentinel's order is the greatest sentinel order not
// exceeding the hash's order.
func TestSentinelOwnsBucket(t *testing.T) {
	const buckets = 16
	for hash := uint(0); hash < 1<<12; hash++ {
		ro, owner := RegularOrder(hash), SentinelOrder(hash%buckets)
		if owner > ro {
			t.Fatalf("sentinel %d sorts after hash %d", hash%buckets, hash)
		}
		for b := uint(0); b < buckets; b++ {
			if so := SentinelOrder(b); so > owner && so < ro {
				t.Fatalf("sentinel %d cuts between sentinel %d and hash %d", b, hash%buckets, hash)
			}
		}
	}
}

// doubling the bucket count must keep every old sentinel in place: bucket b's
// sentinel under n buckets is still bucket b's sentinel under 2n, and the new
// sentinel b+n lands strictly inside b's old region.
func TestSplitRegions(t *testing.T) {
	for n := uint(1); n <= 64; n <<= 1 {
		for b := uint(0); b < n; b++ {
			lo, hi := SentinelOrder(b), SentinelOrder(b+n)
			if lo >= hi {
				t.Fatalf("child sentinel %d doesn't follow parent %d at size %d", b+n, b, n)
			}
			if ParentBucket(b+n) != b {
				t.Fatalf("bucket %d's parent isn't %d", b+n, b)
			}
		}
	}
}
