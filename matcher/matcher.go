// Package matcher ranks candidate exchange posts around a requester's
// location. It is pure: it never mutates its inputs and re-ranking the same
// snapshot yields the same output, so duplicate snapshot delivery from the
// feed is harmless.
package matcher

import (
	"log"
	"sort"

	"kolekta/geo"
	"kolekta/objects"
)

// SortKey selects the ranking for search mode. The base feed always ranks
// by distance.
type SortKey string

const (
	SortByDistance SortKey = "distance"
	SortByAmount   SortKey = "amount"  // give amount, descending
	SortByRating   SortKey = "rating"  // owner aggregate rating, descending
	SortByRecency  SortKey = "recency" // newest first
)

// Candidate is one ranked feed entry.
type Candidate struct {
	Post        *objects.ExchangePost
	DistanceKm  float64
	OwnerRating float64
}

// Options controls one ranking pass.
type Options struct {
	RequesterID int64
	Lat, Lon    float64
	HasLocation bool    // false disables proximity: distance is 0 for all
	RadiusKm    float64 // 0 means unlimited ("all known posts")
	SortBy      SortKey

	// Optional hard compatibility filter: only posts whose need can be
	// satisfied by OfferKind and whose give matches WantKind survive. The
	// default feed is lenient and leaves both empty.
	OfferKind string
	WantKind  string
}

// Rank filters and orders the candidate set. ownerRatings maps post owner
// ids to their aggregate average rating; missing owners rank as 0.
func Rank(posts []*objects.ExchangePost, ownerRatings map[int64]float64, opts Options) []Candidate {
	log.Printf("[MATCHER] Ranking %d posts for user %d (sort: %s, radius: %.1f km)",
		len(posts), opts.RequesterID, sortKeyOrDefault(opts.SortBy), opts.RadiusKm)

	seen := make(map[int64]bool, len(posts))
	candidates := make([]Candidate, 0, len(posts))

	for _, post := range posts {
		if post == nil || !post.IsActive() {
			continue
		}
		// Never surface the requester's own posts.
		if post.UserID == opts.RequesterID {
			continue
		}
		// A duplicated snapshot must not produce duplicate entries.
		if seen[post.ID] {
			continue
		}
		seen[post.ID] = true

		if opts.OfferKind != "" && opts.WantKind != "" &&
			!post.ComplementaryKinds(opts.OfferKind, opts.WantKind) {
			continue
		}

		var distance float64
		if opts.HasLocation {
			distance = geo.DistanceKm(opts.Lat, opts.Lon, post.Lat, post.Lon)
			if opts.RadiusKm > 0 && distance > opts.RadiusKm {
				continue
			}
		}

		candidates = append(candidates, Candidate{
			Post:        post,
			DistanceKm:  distance,
			OwnerRating: ownerRatings[post.UserID],
		})
	}

	sortCandidates(candidates, sortKeyOrDefault(opts.SortBy))

	log.Printf("[MATCHER] Ranked %d candidates for user %d", len(candidates), opts.RequesterID)
	return candidates
}

func sortKeyOrDefault(key SortKey) SortKey {
	if key == "" {
		return SortByDistance
	}
	return key
}

func sortCandidates(candidates []Candidate, key SortKey) {
	newerFirst := func(a, b Candidate) bool {
		return a.Post.CreatedAt.After(b.Post.CreatedAt)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		switch key {
		case SortByAmount:
			if a.Post.GiveAmount != b.Post.GiveAmount {
				return a.Post.GiveAmount > b.Post.GiveAmount
			}
		case SortByRating:
			if a.OwnerRating != b.OwnerRating {
				return a.OwnerRating > b.OwnerRating
			}
		case SortByRecency:
			return newerFirst(a, b)
		default: // SortByDistance
			if a.DistanceKm != b.DistanceKm {
				return a.DistanceKm < b.DistanceKm
			}
		}
		// Ties break by recency, most recent first.
		return newerFirst(a, b)
	})
}
