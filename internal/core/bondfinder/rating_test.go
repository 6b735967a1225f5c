package bondfinder

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/filingscope/internal/core"
)

func TestMoodyRatingOrderFollowsRankNotName(t *testing.T) {
	assert.True(t, Aaa.Less(Aa1))
	assert.True(t, Baa3.Less(Ba1))
	assert.True(t, C.Less(NR))
	assert.False(t, Ba1.Less(Baa3))

	// "B1" < "Baa1" as strings, but B1 is the weaker credit
	assert.True(t, Baa1.Less(B1))

	ratings := []MoodyRating{B1, Aaa, Caa2, Baa1, A3}
	sort.Slice(ratings, func(i, j int) bool { return ratings[i].Less(ratings[j]) })
	assert.Equal(t, []MoodyRating{Aaa, A3, Baa1, B1, Caa2}, ratings)
}

func TestParseMoodyRating(t *testing.T) {
	for _, r := range AllRatings() {
		got, err := ParseMoodyRating(r.String())
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}

	got, err := ParseMoodyRating(" baa3 ")
	require.NoError(t, err)
	assert.Equal(t, Baa3, got)

	_, err = ParseMoodyRating("AAA+")
	assert.True(t, core.IsKind(err, core.KindInvalidInput))
}

func TestRatingsFrom(t *testing.T) {
	got := RatingsFrom(Caa3)
	assert.Equal(t, []MoodyRating{Caa3, Ca, C, NR, WR}, got)
	assert.Len(t, RatingsFrom(Aaa), 23)
	assert.Len(t, RatingsFrom(Baa3), 14)
}

func TestMoodyRatingString(t *testing.T) {
	assert.Equal(t, "Baa3", Baa3.String())
	assert.Equal(t, "MoodyRating(0)", MoodyRating(0).String())
	assert.False(t, MoodyRating(24).Valid())
}

func TestParseCriteria(t *testing.T) {
	m, err := ParseMaturity("LongTerm")
	require.NoError(t, err)
	assert.Equal(t, LongTerm, m)

	_, err = ParseMaturity("forever")
	assert.Error(t, err)

	y, err := ParseYieldBand("10")
	require.NoError(t, err)
	assert.Equal(t, YieldTen, y)

	_, err = ParseYieldBand("7")
	assert.Error(t, err)
}
