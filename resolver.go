package main

import (
	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
)

// matchCutoff is the minimum token-sort similarity (0-100) for a catalog dish
// to count as a match for the user's query.
const matchCutoff = 90

// DishMatch is the outcome of resolving a free-text query against the
// catalog: the concrete dish to order and the restaurant that serves it.
type DishMatch struct {
	Query      string
	Dish       string
	Restaurant string
	Score      int
}

// resolveDish fuzzy-matches query against every dish in the catalog using a
// token-order-insensitive ratio, so "chicken tikka piza" still finds
// "Chicken Tikka Pizza". Returns DishNotAvailableError when nothing scores
// at or above the cutoff. Ties on score go to the dish seen first in catalog
// insertion order, which keeps resolution deterministic when the same dish
// name appears in several restaurants.
func resolveDish(query string, catalog Catalog) (DishMatch, error) {
	best := DishMatch{Query: query, Score: -1}

	for _, entry := range catalog.entries() {
		score := fuzzy.TokenSortRatio(query, entry.Dish)
		if score > best.Score {
			best.Dish = entry.Dish
			best.Restaurant = entry.Restaurant
			best.Score = score
		}
	}

	if best.Score < matchCutoff {
		return DishMatch{}, &DishNotAvailableError{Query: query}
	}
	return best, nil
}
