package format

// Scanner produces classification candidates lazily, most-likely-correct
// first. Laziness matters: the magic tier costs a subprocess, so it only
// runs when every cheaper candidate has already failed extraction.
//
// Duplicate (kind, encoding) pairs across tiers are skipped.
type Scanner struct {
	filename string
	probe    Prober
	tier     int
	queue    []Candidate
	tried    map[Descriptor]bool
}

// NewScanner returns a Scanner over the cascade for filename.
func NewScanner(filename string, probe Prober) *Scanner {
	return &Scanner{
		filename: filename,
		probe:    probe,
		tried:    map[Descriptor]bool{},
	}
}

// Next returns the next untried candidate, advancing through the cascade
// tiers as each drains. The second result is false when all tiers are
// exhausted.
func (s *Scanner) Next() (Candidate, bool) {
	for {
		for len(s.queue) > 0 {
			candidate := s.queue[0]
			s.queue = s.queue[1:]
			if s.tried[candidate.Descriptor] {
				continue
			}
			s.tried[candidate.Descriptor] = true
			return candidate, true
		}

		switch s.tier {
		case 0:
			s.queue = ByMimetype(s.filename)
		case 1:
			s.queue = ByExtension(s.filename)
		case 2:
			s.queue = ByMagic(s.filename, s.probe)
		default:
			return Candidate{}, false
		}
		s.tier++
	}
}
