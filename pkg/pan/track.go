package pan

import "github.com/praetorian-inc/panscan/pkg/types"

// trackCheck tags a confirmed match that sits inside magnetic-stripe data.
// first and last are the absolute offsets of the first and last digit.
func (s *Stream) trackCheck(first, last int64) string {
	if s.cfg.Track1 && s.track1(first, last) {
		return types.Track1
	}
	if s.cfg.Track2 && s.track2(first, last) {
		return types.Track2
	}
	return ""
}

// track1 matches %B<pan>^<NAME: format code 'B' before the number, '^' after
// it, and an uppercase name field.
func (s *Stream) track1(first, last int64) bool {
	sep, ok := s.ctx.at(last + 1)
	if !ok || sep != '^' {
		return false
	}
	code, ok := s.ctx.at(first - 1)
	if !ok || code != 'B' {
		return false
	}
	name, ok := s.ctx.at(last + 2)
	return ok && name >= 'A' && name <= 'Z'
}

// track2 matches ;<pan>=YYMM: a non-digit sentinel before the number, '='
// or 'D' after it, and two digits of expiry.
func (s *Stream) track2(first, last int64) bool {
	sep, ok := s.ctx.at(last + 1)
	if !ok || (sep != '=' && sep != 'D') {
		return false
	}
	sentinel, ok := s.ctx.at(first - 1)
	if !ok || (sentinel != ';' && isDigit(sentinel)) {
		return false
	}
	yy, ok := s.ctx.at(last + 2)
	if !ok || !isDigit(yy) {
		return false
	}
	mm, ok := s.ctx.at(last + 3)
	return ok && isDigit(mm)
}
