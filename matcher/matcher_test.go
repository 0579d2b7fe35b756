package matcher

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"kolekta/objects"
)

func makePost(id, userID int64, lat, lon float64, giveAmount int, createdAt time.Time) *objects.ExchangePost {
	post := objects.NewExchangePost(userID, giveAmount, objects.CashKindBill, giveAmount, objects.CashKindCoin, lat, lon, "wdw50")
	post.ID = id
	post.CreatedAt = createdAt
	post.UpdatedAt = createdAt
	return post
}

func TestRankOrdersByDistance(t *testing.T) {
	now := time.Now().UTC()
	posts := []*objects.ExchangePost{
		makePost(1, 10, 14.70, 121.10, 1000, now), // far
		makePost(2, 11, 14.61, 120.99, 500, now),  // near, ~1.5 km
		makePost(3, 12, 14.65, 121.03, 200, now),  // middle
	}

	ranked := Rank(posts, nil, Options{
		RequesterID: 99,
		Lat:         14.60, Lon: 120.98,
		HasLocation: true,
	})

	assert.Len(t, ranked, 3)
	assert.Equal(t, int64(2), ranked[0].Post.ID)
	assert.Equal(t, int64(3), ranked[1].Post.ID)
	assert.Equal(t, int64(1), ranked[2].Post.ID)

	// Distances come back ascending and are exact haversine values.
	assert.InDelta(t, 1.547, ranked[0].DistanceKm, 0.01)
	assert.True(t, ranked[0].DistanceKm < ranked[1].DistanceKm)
	assert.True(t, ranked[1].DistanceKm < ranked[2].DistanceKm)
}

func TestRankDistanceTiesBreakByRecency(t *testing.T) {
	now := time.Now().UTC()
	older := makePost(1, 10, 14.61, 120.99, 1000, now.Add(-time.Hour))
	newer := makePost(2, 11, 14.61, 120.99, 500, now)

	ranked := Rank([]*objects.ExchangePost{older, newer}, nil, Options{
		RequesterID: 99,
		Lat:         14.60, Lon: 120.98,
		HasLocation: true,
	})

	assert.Len(t, ranked, 2)
	assert.Equal(t, int64(2), ranked[0].Post.ID, "same distance: most recent first")
	assert.Equal(t, int64(1), ranked[1].Post.ID)
}

func TestRankExcludesOwnAndInactivePosts(t *testing.T) {
	now := time.Now().UTC()
	own := makePost(1, 99, 14.61, 120.99, 1000, now)
	matched := makePost(2, 10, 14.61, 120.99, 1000, now)
	matched.Status = objects.PostStatusMatched
	closed := makePost(3, 11, 14.61, 120.99, 1000, now)
	closed.Status = objects.PostStatusClosed
	good := makePost(4, 12, 14.61, 120.99, 1000, now)

	ranked := Rank([]*objects.ExchangePost{own, matched, closed, good}, nil, Options{
		RequesterID: 99,
		Lat:         14.60, Lon: 120.98,
		HasLocation: true,
	})

	assert.Len(t, ranked, 1)
	assert.Equal(t, int64(4), ranked[0].Post.ID)
}

func TestRankRadiusFilter(t *testing.T) {
	now := time.Now().UTC()
	posts := []*objects.ExchangePost{
		makePost(1, 10, 14.61, 120.99, 1000, now), // ~1.5 km
		makePost(2, 11, 15.60, 121.98, 1000, now), // ~150 km
	}

	// No radius: all known posts are surfaced.
	all := Rank(posts, nil, Options{RequesterID: 99, Lat: 14.60, Lon: 120.98, HasLocation: true})
	assert.Len(t, all, 2)

	// Explicit radius cuts the far one.
	near := Rank(posts, nil, Options{RequesterID: 99, Lat: 14.60, Lon: 120.98, HasLocation: true, RadiusKm: 10})
	assert.Len(t, near, 1)
	assert.Equal(t, int64(1), near[0].Post.ID)
}

func TestRankWithoutLocationDisablesProximity(t *testing.T) {
	now := time.Now().UTC()
	posts := []*objects.ExchangePost{
		makePost(1, 10, 14.61, 120.99, 1000, now.Add(-time.Minute)),
		makePost(2, 11, 15.60, 121.98, 1000, now),
	}

	// No location: radius is ignored, everything surfaces, distance is 0,
	// and ordering falls back to recency.
	ranked := Rank(posts, nil, Options{RequesterID: 99, RadiusKm: 5})
	assert.Len(t, ranked, 2)
	assert.Equal(t, int64(2), ranked[0].Post.ID)
	assert.Equal(t, 0.0, ranked[0].DistanceKm)
	assert.Equal(t, 0.0, ranked[1].DistanceKm)
}

func TestRankIdempotentUnderDuplicateSnapshot(t *testing.T) {
	now := time.Now().UTC()
	post := makePost(1, 10, 14.61, 120.99, 1000, now)

	// The same snapshot delivered twice, concatenated: no duplicate entries.
	snapshot := []*objects.ExchangePost{post, post}
	ranked := Rank(snapshot, nil, Options{RequesterID: 99, Lat: 14.60, Lon: 120.98, HasLocation: true})
	assert.Len(t, ranked, 1)

	// Re-ranking an identical snapshot produces an identical output.
	again := Rank(snapshot, nil, Options{RequesterID: 99, Lat: 14.60, Lon: 120.98, HasLocation: true})
	assert.Equal(t, ranked, again)
}

func TestRankSearchModeSortKeys(t *testing.T) {
	now := time.Now().UTC()
	posts := []*objects.ExchangePost{
		makePost(1, 10, 14.61, 120.99, 100, now.Add(-2*time.Hour)), // nearest, small, old
		makePost(2, 11, 14.65, 121.03, 1000, now.Add(-time.Hour)),  // middle, big
		makePost(3, 12, 14.70, 121.10, 500, now),                   // far, newest
	}
	ratings := map[int64]float64{10: 3.5, 11: 5.0, 12: 4.2}

	base := Options{RequesterID: 99, Lat: 14.60, Lon: 120.98, HasLocation: true}

	byAmount := base
	byAmount.SortBy = SortByAmount
	ranked := Rank(posts, ratings, byAmount)
	assert.Equal(t, []int64{2, 3, 1}, ids(ranked))

	byRating := base
	byRating.SortBy = SortByRating
	ranked = Rank(posts, ratings, byRating)
	assert.Equal(t, []int64{2, 3, 1}, ids(ranked))
	assert.Equal(t, 5.0, ranked[0].OwnerRating)

	byRecency := base
	byRecency.SortBy = SortByRecency
	ranked = Rank(posts, ratings, byRecency)
	assert.Equal(t, []int64{3, 2, 1}, ids(ranked))
}

func TestRankHardCompatibilityFilter(t *testing.T) {
	now := time.Now().UTC()

	// Post 1 gives bill, needs coin. Post 2 gives coin, needs bill.
	billForCoins := makePost(1, 10, 14.61, 120.99, 1000, now)
	coinsForBill := objects.NewExchangePost(11, 1000, objects.CashKindCoin, 1000, objects.CashKindBill, 14.61, 120.99, "wdw50")
	coinsForBill.ID = 2
	coinsForBill.CreatedAt = now

	posts := []*objects.ExchangePost{billForCoins, coinsForBill}

	// Requester offers coins and wants a bill: only post 1 is complementary.
	ranked := Rank(posts, nil, Options{
		RequesterID: 99,
		Lat:         14.60, Lon: 120.98,
		HasLocation: true,
		OfferKind:   objects.CashKindCoin,
		WantKind:    objects.CashKindBill,
	})
	assert.Equal(t, []int64{1}, ids(ranked))
}

func TestRankDoesNotMutateInput(t *testing.T) {
	now := time.Now().UTC()
	posts := []*objects.ExchangePost{
		makePost(2, 11, 14.70, 121.10, 1000, now),
		makePost(1, 10, 14.61, 120.99, 1000, now),
	}

	Rank(posts, nil, Options{RequesterID: 99, Lat: 14.60, Lon: 120.98, HasLocation: true})

	assert.Equal(t, int64(2), posts[0].ID, "input slice order untouched")
	assert.Equal(t, objects.PostStatusActive, posts[0].Status)
}

func ids(candidates []Candidate) []int64 {
	out := make([]int64, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.Post.ID)
	}
	return out
}
