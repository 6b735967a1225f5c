package bondfinder

import (
	"fmt"
	"strings"

	"github.com/markdave123-py/filingscope/internal/core"
)

// MoodyRating is a Moody's long-term rating. Values are ordered from the
// strongest credit (Aaa) to the weakest (C), then not rated and withdrawn.
type MoodyRating int

const (
	Aaa MoodyRating = iota + 1
	Aa1
	Aa2
	Aa3
	A1
	A2
	A3
	Baa1
	Baa2
	Baa3
	Ba1
	Ba2
	Ba3
	B1
	B2
	B3
	Caa1
	Caa2
	Caa3
	Ca
	C
	NR
	WR
)

var ratingNames = [...]string{
	"", "Aaa", "Aa1", "Aa2", "Aa3", "A1", "A2", "A3",
	"Baa1", "Baa2", "Baa3", "Ba1", "Ba2", "Ba3", "B1", "B2", "B3",
	"Caa1", "Caa2", "Caa3", "Ca", "C", "NR", "WR",
}

// AllRatings lists every rating in rank order.
func AllRatings() []MoodyRating {
	out := make([]MoodyRating, 0, int(WR))
	for r := Aaa; r <= WR; r++ {
		out = append(out, r)
	}
	return out
}

func (r MoodyRating) Valid() bool {
	return r >= Aaa && r <= WR
}

func (r MoodyRating) String() string {
	if !r.Valid() {
		return fmt.Sprintf("MoodyRating(%d)", int(r))
	}
	return ratingNames[r]
}

// Less reports whether r ranks ahead of (is a stronger credit than) other.
func (r MoodyRating) Less(other MoodyRating) bool {
	return r < other
}

// AtOrBelow reports whether r is floor or any weaker rating.
func (r MoodyRating) AtOrBelow(floor MoodyRating) bool {
	return r >= floor
}

// ParseMoodyRating accepts a rating name case-insensitively.
func ParseMoodyRating(s string) (MoodyRating, error) {
	s = strings.TrimSpace(s)
	for r := Aaa; r <= WR; r++ {
		if strings.EqualFold(ratingNames[r], s) {
			return r, nil
		}
	}
	return 0, core.NewError("bondfinder.parse_rating", core.KindInvalidInput, fmt.Sprintf("unknown Moody's rating %q", s), nil)
}

// RatingsFrom returns floor and every weaker rating, in rank order.
func RatingsFrom(floor MoodyRating) []MoodyRating {
	var out []MoodyRating
	for _, r := range AllRatings() {
		if r.AtOrBelow(floor) {
			out = append(out, r)
		}
	}
	return out
}

// Maturity is the finder's remaining-term bucket.
type Maturity string

const (
	ShortTerm Maturity = "shortterm"
	MidTerm   Maturity = "midterm"
	LongTerm  Maturity = "longterm"
)

var AllMaturities = []Maturity{ShortTerm, MidTerm, LongTerm}

func ParseMaturity(s string) (Maturity, error) {
	for _, m := range AllMaturities {
		if strings.EqualFold(string(m), strings.TrimSpace(s)) {
			return m, nil
		}
	}
	return "", core.NewError("bondfinder.parse_maturity", core.KindInvalidInput, fmt.Sprintf("unknown maturity %q", s), nil)
}

// YieldBand is the finder's minimum-yield filter in percent.
type YieldBand string

const (
	YieldZero   YieldBand = "0"
	YieldFive   YieldBand = "5"
	YieldTen    YieldBand = "10"
	YieldTwenty YieldBand = "20"
)

var AllYieldBands = []YieldBand{YieldZero, YieldFive, YieldTen, YieldTwenty}

func ParseYieldBand(s string) (YieldBand, error) {
	for _, y := range AllYieldBands {
		if string(y) == strings.TrimSpace(s) {
			return y, nil
		}
	}
	return "", core.NewError("bondfinder.parse_yield", core.KindInvalidInput, fmt.Sprintf("unknown yield band %q", s), nil)
}
