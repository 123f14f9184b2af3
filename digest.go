package bigsort

import "github.com/zeebo/xxh3"

// lineDigest is an order-independent fingerprint of a multiset of lines:
// the line count plus the wrapping sum of each line's xxh3 hash. The sort
// stage folds every line it reads and the final merge pass every line it
// writes; equal digests mean no line was lost or duplicated in between.
type lineDigest struct {
	count uint64
	sum   uint64
}

func (d *lineDigest) add(line string) {
	d.count++
	d.sum += xxh3.HashString(line)
}

// combine folds another digest into d. Digests combine in any order.
func (d *lineDigest) combine(o lineDigest) {
	d.count += o.count
	d.sum += o.sum
}
