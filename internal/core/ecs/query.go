package ecs

// Each2 visits handles present in both stores, ranging over the smaller one.
func Each2[A, B any](sa *Store[A], sb *Store[B], fn func(Handle, *A, *B)) {
	if sa.Len() <= sb.Len() {
		for h, a := range sa.data {
			if b, ok := sb.data[h]; ok {
				fn(h, a, b)
			}
		}
		return
	}
	for h, b := range sb.data {
		if a, ok := sa.data[h]; ok {
			fn(h, a, b)
		}
	}
}
