package logger

import (
	"strconv"
	"strings"
	"sync/atomic"
)

// ratioSampler passes the first `pass` events of every `window` events,
// cycling. A zeroed sampler passes everything.
type ratioSampler struct {
	// packed holds pass<<32|window so Set and Allow never tear.
	packed atomic.Uint64
	seq    atomic.Uint64
}

func newRatioSampler(pass, window int) *ratioSampler {
	s := &ratioSampler{}
	s.Set(pass, window)
	return s
}

// Set replaces the sampling ratio and restarts the window.
func (s *ratioSampler) Set(pass, window int) {
	if pass <= 0 || window <= 0 {
		s.packed.Store(0)
		s.seq.Store(0)
		return
	}
	if pass > window {
		pass = window
	}
	s.packed.Store(uint64(pass)<<32 | uint64(uint32(window)))
	s.seq.Store(0)
}

// Allow reports whether the next event falls inside the sampled share
// of the current window.
func (s *ratioSampler) Allow() bool {
	packed := s.packed.Load()
	if packed == 0 {
		return true
	}
	pass := packed >> 32
	window := packed & 0xffffffff
	n := s.seq.Add(1) - 1
	return n%window < pass
}

// parseRatioSpec understands "n/m" ratios and bare "m" shorthands
// (meaning 1/m). Zero or unparsable input disables sampling.
func parseRatioSpec(spec string) (int, int) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return 0, 0
	}
	if numStr, denStr, ok := strings.Cut(spec, "/"); ok {
		num, errN := strconv.Atoi(strings.TrimSpace(numStr))
		den, errD := strconv.Atoi(strings.TrimSpace(denStr))
		if errN == nil && errD == nil {
			return num, den
		}
		return 0, 0
	}
	den, err := strconv.Atoi(spec)
	if err != nil || den <= 0 {
		return 0, 0
	}
	return 1, den
}
