// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"strconv"
	"strings"
)

// DefaultMunicipalityWidth is the width of an IBGE municipality code.
const DefaultMunicipalityWidth = 7

// MunicipalityKey returns the canonical join key for a municipality code.
//
// Numeric codes lose any integral float suffix ("3550308.0") and leading
// zeros, then are left-padded with zeros to width. Width <= 0 disables
// padding. Non-numeric codes are only trimmed and upper-cased. Blank or
// all-zero codes yield "", which never joins.
func MunicipalityKey(raw string, width int) string {
	s := integralText(raw)
	if s == "" {
		return ""
	}
	if !isDigits(s) {
		return strings.ToUpper(s)
	}
	s = strings.TrimLeft(s, "0")
	if s == "" {
		return ""
	}
	if width > 0 && len(s) < width {
		s = strings.Repeat("0", width-len(s)) + s
	}
	return s
}

// SchoolKey returns the canonical identity of a school code within its
// municipality.
func SchoolKey(raw string) string {
	s := integralText(raw)
	if isDigits(s) {
		if t := strings.TrimLeft(s, "0"); t != "" {
			return t
		}
		return ""
	}
	return strings.ToUpper(s)
}

// integralText trims raw and reduces integral float renderings, as produced
// by spreadsheets and JSON encoders, to their integer digits.
func integralText(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if strings.ContainsAny(s, "eE") {
		if f, err := strconv.ParseFloat(s, 64); err == nil && f == float64(int64(f)) {
			return strconv.FormatInt(int64(f), 10)
		}
		return s
	}
	if i := strings.IndexByte(s, '.'); i > 0 && isDigits(s[:i]) {
		frac := s[i+1:]
		if strings.Trim(frac, "0") == "" {
			return s[:i]
		}
	}
	return s
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
