package domain

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrVersionConflict is returned when the settings record changed since it was read.
	ErrVersionConflict = errors.New("settings version conflict")
	// ErrInvalidChannel is returned for identifiers that are neither @username nor a numeric chat id.
	ErrInvalidChannel = errors.New("invalid channel identifier")
)

// Settings is the single versioned settings record. Version increases by one on every write.
type Settings struct {
	RequiredChannels []string
	Version          int64
	UpdatedAt        time.Time
}

// NormalizeChannel trims raw and validates it as @username or a non-zero numeric chat id.
func NormalizeChannel(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "@") {
		if len(s) < 2 || strings.ContainsAny(s, " \t\n,") {
			return "", ErrInvalidChannel
		}
		return s, nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id == 0 {
		return "", ErrInvalidChannel
	}
	return strconv.FormatInt(id, 10), nil
}

// Has reports whether channel is in the required set.
func (s *Settings) Has(channel string) bool {
	if s == nil {
		return false
	}
	for _, c := range s.RequiredChannels {
		if c == channel {
			return true
		}
	}
	return false
}

// WithChannel returns the channel list with channel appended, and whether it changed.
func (s *Settings) WithChannel(channel string) ([]string, bool) {
	cur := s.channels()
	if s.Has(channel) {
		return cur, false
	}
	return append(cur, channel), true
}

// WithoutChannel returns the channel list with channel removed, and whether it changed.
func (s *Settings) WithoutChannel(channel string) ([]string, bool) {
	cur := s.channels()
	out := cur[:0]
	changed := false
	for _, c := range cur {
		if c == channel {
			changed = true
			continue
		}
		out = append(out, c)
	}
	return out, changed
}

func (s *Settings) channels() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.RequiredChannels...)
}
