package cache

// Stats contains cache statistics.
type Stats struct {
	Size            int   // Current number of entries
	MaxSize         int   // Configured MaxEntries
	MemoryUsedBytes int64 // Estimated bytes held
	MaxMemoryBytes  int64
	Hits            int64
	Misses          int64
	Evictions       int64
}

// HitRate returns hits/(hits+misses), or 0 when there were no lookups.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
