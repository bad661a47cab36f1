package algo

// Group is a set of records sharing a key.
type Group[K comparable, T any] struct {
	Key     K
	Records []T
}

// GroupBy partitions records by key. Groups are returned in the order their
// key first appears and records keep their input order within a group.
func GroupBy[K comparable, T any](records []T, keyOf func(T) K) []Group[K, T] {
	index := make(map[K]int)
	var groups []Group[K, T]
	for _, rec := range records {
		k := keyOf(rec)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, Group[K, T]{Key: k})
		}
		groups[i].Records = append(groups[i].Records, rec)
	}
	return groups
}
