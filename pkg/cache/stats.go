package cache

// Statistics is a point-in-time snapshot of cache activity.
type Statistics struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// HitRate returns the fraction of lookups served from the cache.
func (s Statistics) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// statistics is the mutable counter set, guarded by the cache mutex.
type statistics struct {
	hits      uint64
	misses    uint64
	evictions uint64
}

func (s *statistics) hit()  { s.hits++ }
func (s *statistics) miss() { s.misses++ }

func (s *statistics) snapshot() Statistics {
	return Statistics{Hits: s.hits, Misses: s.misses, Evictions: s.evictions}
}
