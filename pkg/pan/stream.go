// Package pan finds payment card numbers in a byte stream.
//
// A Stream consumes bytes one at a time and keeps the run of digits seen
// since the last breaking byte. NUL, CR, LF and '-' are noise and leave the
// run intact; any other non-digit clears it. Once the run holds 13 to 16
// digits the candidate is checked with Luhn and classified against an issuer
// rule table. A run that reaches 17 digits drops its oldest digit and every
// length from 13 to 16 is retried.
//
// Matches need up to three bytes of lookahead for the adjacency and track
// checks, so a match is returned from the Feed call that completes its
// lookahead, or from Finish.
//
// A Stream is not safe for concurrent use. Scan independent inputs with
// independent Streams.
package pan

// Config selects the rule table and the optional track checks.
type Config struct {
	// Classifier holds the issuer table. A nil Classifier never matches.
	Classifier *Classifier

	// Track1 tags matches framed as %B<pan>^NAME.
	Track1 bool

	// Track2 tags matches framed as ;<pan>=YYMM.
	Track2 bool
}

// Match is one classified card number. A run that satisfies several rules
// produces one Match per rule.
type Match struct {
	RuleID string
	Brand  string
	Digits string
	Length int

	// Offset is the absolute offset of the first digit; End is one past the
	// last digit. Noise inside the number makes End-Offset exceed Length.
	Offset int64
	End    int64

	// Track is types.Track1, types.Track2 or empty.
	Track string

	// PrecededByDigit is set when the nearest non-noise byte before the
	// number is a digit. FollowedByDigit is set when the byte right after
	// the last digit is a digit.
	PrecededByDigit bool
	FollowedByDigit bool
}

type pending struct {
	match Match
	first int64
	last  int64
}

// Stream is the scan state of one input.
type Stream struct {
	cfg Config

	win         digitWindow
	ctx         contextBuffer
	ignoreCount int
	pending     []pending

	matches   int64
	trackHits int64
}

// NewStream returns a fresh stream.
func NewStream(cfg Config) *Stream {
	return &Stream{cfg: cfg}
}

// Reset returns the stream to its initial state so it can scan a new input.
func (s *Stream) Reset() {
	s.win.reset()
	s.ctx = contextBuffer{}
	s.ignoreCount = 0
	s.pending = s.pending[:0]
	s.matches = 0
	s.trackHits = 0
}

// Offset is the number of bytes fed since the last Reset.
func (s *Stream) Offset() int64 {
	return s.ctx.next
}

// RunLength is the number of digits in the current run.
func (s *Stream) RunLength() int {
	return s.win.n
}

// IgnoreCount is the number of noise bytes seen since the run last reset.
func (s *Stream) IgnoreCount() int {
	return s.ignoreCount
}

// Matches is the number of matches returned so far.
func (s *Stream) Matches() int64 {
	return s.matches
}

// TrackHits is the number of matches tagged as track data.
func (s *Stream) TrackHits() int64 {
	return s.trackHits
}

// Horizon is the lowest offset at which a match not yet returned can start.
// Bytes before it are no longer needed to place future matches.
func (s *Stream) Horizon() int64 {
	h := s.ctx.next
	if s.win.n > 0 {
		h = s.win.offsets[0]
	}
	for _, p := range s.pending {
		if p.first < h {
			h = p.first
		}
	}
	return h
}

// Feed consumes one byte and returns the matches whose lookahead it
// completed.
func (s *Stream) Feed(b byte) []Match {
	off := s.ctx.next
	s.ctx.push(b)

	switch {
	case isDigit(b):
		s.win.push(b-'0', off)
		if s.win.full() {
			s.win.shift()
			for n := minCandidate; n <= maxCandidate; n++ {
				s.candidate(n)
			}
		} else if s.win.n >= minCandidate {
			s.candidate(s.win.n)
		}
	case isNoise(b):
		s.ignoreCount++
	default:
		s.win.reset()
		s.ignoreCount = 0
	}

	if len(s.pending) == 0 {
		return nil
	}
	return s.resolve(nil, false)
}

// Write feeds every byte of p.
func (s *Stream) Write(p []byte) []Match {
	var out []Match
	for _, b := range p {
		if m := s.Feed(b); len(m) > 0 {
			out = append(out, m...)
		}
	}
	return out
}

// Finish ends the input. A run shorter than 13 digits is dropped. Matches
// still waiting for lookahead are returned with the missing bytes treated as
// absent. Counters stay readable until Reset.
func (s *Stream) Finish() []Match {
	out := s.resolve(nil, true)
	s.win.reset()
	s.ignoreCount = 0
	return out
}

// candidate validates the first n digits of the window.
func (s *Stream) candidate(n int) {
	digits := s.win.digits[:n]
	if !LuhnValid(digits) {
		return
	}

	rules := s.cfg.Classifier.Classify(digits)
	if len(rules) == 0 {
		return
	}

	first := s.win.offsets[0]
	last := s.win.offsets[n-1]
	text := FormatDigits(digits)
	for _, r := range rules {
		s.pending = append(s.pending, pending{
			match: Match{
				RuleID: r.ID,
				Brand:  r.Brand,
				Digits: text,
				Length: n,
				Offset: first,
				End:    last + 1,
			},
			first: first,
			last:  last,
		})
	}
}

// resolve emits pending matches whose lookahead is available, in the order
// they were confirmed. At end of stream every pending match is emitted.
func (s *Stream) resolve(out []Match, eof bool) []Match {
	kept := s.pending[:0]
	for _, p := range s.pending {
		if !eof && s.ctx.next <= p.last+lookahead {
			kept = append(kept, p)
			continue
		}
		out = append(out, s.finalize(p))
	}
	s.pending = kept
	return out
}

func (s *Stream) finalize(p pending) Match {
	m := p.match

	for off := p.first - 1; ; off-- {
		b, ok := s.ctx.at(off)
		if !ok {
			break
		}
		if isNoise(b) {
			continue
		}
		m.PrecededByDigit = isDigit(b)
		break
	}

	if b, ok := s.ctx.at(p.last + 1); ok {
		m.FollowedByDigit = isDigit(b)
	}

	m.Track = s.trackCheck(p.first, p.last)
	if m.Track != "" {
		s.trackHits++
	}
	s.matches++
	return m
}
