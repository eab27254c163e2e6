package analysis

// Bucket is one aligned time slot and the indices of the samples inside it.
type Bucket struct {
	Indices   []int
	StartTime int64
	EndTime   int64
}

// TimeSeriesResampler groups timestamps into fixed-width buckets aligned to
// multiples of the bucket width.
type TimeSeriesResampler struct{}

// -----------------------------------------------------------------------------

// ResampleIndices returns the non-empty buckets in time order. timestamps must
// be sorted ascending.
func (r *TimeSeriesResampler) ResampleIndices(timestamps []int64, bucketSeconds int64) []Bucket {
	if len(timestamps) == 0 || bucketSeconds <= 0 {
		return []Bucket{}
	}

	// walk the samples, not the slots, so narrow buckets over long spans stay
	// linear in the number of points
	var results []Bucket
	for i := 0; i < len(timestamps); {
		start := timestamps[i] - mod(timestamps[i], bucketSeconds)
		end := start + bucketSeconds

		j := i
		for j < len(timestamps) && timestamps[j] < end {
			j++
		}

		indices := make([]int, j-i)
		for idx := i; idx < j; idx++ {
			indices[idx-i] = idx
		}
		results = append(results, Bucket{Indices: indices, StartTime: start, EndTime: end})
		i = j
	}

	return results
}

// -----------------------------------------------------------------------------

func mod(a, b int64) int64 {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
