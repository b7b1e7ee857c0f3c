package registry

// readTable decodes exactly n elements with elem.
// Counts always come from fields read earlier; the table itself has no framing.
// An empty table is nil, and a table cut short by an error is discarded.
func readTable[T any](d *Decoder, n uint32, elem func(*Decoder) T) []T {
	if n == 0 || d.err != nil {
		return nil
	}

	table := make([]T, 0, reserve(n))
	for i := uint32(0); i < n; i++ {
		v := elem(d)
		if d.err != nil {
			return nil
		}
		table = append(table, v)
	}
	return table
}

// writeTable encodes every element of table with elem, in order.
func writeTable[T any](e *Encoder, table []T, elem func(*Encoder, T)) {
	for _, v := range table {
		if e.err != nil {
			return
		}
		elem(e, v)
	}
}

// reserve caps the capacity taken on trust from a decoded count,
// so a corrupt count runs into a truncation error before a huge allocation.
func reserve(n uint32) int {
	if n > maxReserve {
		return maxReserve
	}
	return int(n)
}

const maxReserve = 1 << 16
