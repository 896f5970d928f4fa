package order

// BucketKey identifies a dropshipper bucket: all orders sharing a partner
// code and an export destination folder.
type BucketKey struct {
	PartnerCode  string
	ExportFolder string
}

// DropshipperBucket owns the export layout name and an ordered collection
// of orders headed to the same destination folder.
type DropshipperBucket struct {
	Key    BucketKey
	Layout string
	Orders []*Order
}

// BucketSet is an insertion-ordered collection of buckets. Iteration order
// is the order buckets were first seen, matching the source row order.
type BucketSet struct {
	keys    []BucketKey
	buckets map[BucketKey]*DropshipperBucket
}

// NewBucketSet creates an empty bucket set.
func NewBucketSet() *BucketSet {
	return &BucketSet{buckets: make(map[BucketKey]*DropshipperBucket)}
}

// Get returns the bucket for the key, or nil if absent.
func (s *BucketSet) Get(key BucketKey) *DropshipperBucket {
	return s.buckets[key]
}

// Add appends the bucket, or merges its orders into an existing bucket
// with the same key.
func (s *BucketSet) Add(b *DropshipperBucket) {
	if existing, ok := s.buckets[b.Key]; ok {
		existing.Orders = append(existing.Orders, b.Orders...)
		return
	}
	s.keys = append(s.keys, b.Key)
	s.buckets[b.Key] = b
}

// Remove deletes the bucket with the given key. Buckets emptied by
// reconciliation must be removed so they are never rendered or delivered.
func (s *BucketSet) Remove(key BucketKey) {
	if _, ok := s.buckets[key]; !ok {
		return
	}
	delete(s.buckets, key)
	for i, k := range s.keys {
		if k == key {
			s.keys = append(s.keys[:i], s.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the bucket keys in insertion order. The returned slice is a
// copy; removing buckets while ranging over it is safe.
func (s *BucketSet) Keys() []BucketKey {
	keys := make([]BucketKey, len(s.keys))
	copy(keys, s.keys)
	return keys
}

// Len returns the number of buckets.
func (s *BucketSet) Len() int {
	return len(s.keys)
}

// OrderCount returns the total number of orders across all buckets.
func (s *BucketSet) OrderCount() int {
	n := 0
	for _, b := range s.buckets {
		n += len(b.Orders)
	}
	return n
}
