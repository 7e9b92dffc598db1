package main

import (
	"errors"
	"testing"
)

func sampleCatalog() Catalog {
	return Catalog{
		{Restaurant: "Beijing Bites", Dishes: []string{"Chicken Schezwan Fried rice", "Honey Chilli Chicken"}},
		{Restaurant: "Quattro - The Leela Bhartiya City Bengaluru", Dishes: []string{"Paneer Tikka", "Chicken Tikka Pizza"}},
		{Restaurant: "Chung Wah", Dishes: []string{"Spring Rolls", "Chicken Lung Fung Soup"}},
		{Restaurant: "Pizza Hut", Dishes: []string{"Margherita Pizza"}},
	}
}

func TestCatalogEntriesPreserveOrder(t *testing.T) {
	entries := sampleCatalog().entries()

	if len(entries) != 7 {
		t.Fatalf("Expected 7 entries, got %d", len(entries))
	}
	if entries[0].Dish != "Chicken Schezwan Fried rice" || entries[0].Restaurant != "Beijing Bites" {
		t.Errorf("Expected first entry from Beijing Bites, got %+v", entries[0])
	}
	if entries[6].Dish != "Margherita Pizza" || entries[6].Restaurant != "Pizza Hut" {
		t.Errorf("Expected last entry from Pizza Hut, got %+v", entries[6])
	}
}

func TestResolveDishTypoTolerance(t *testing.T) {
	// Word-order swaps and minor typos must still resolve.
	match, err := resolveDish("chicken tikka piza", sampleCatalog())
	if err != nil {
		t.Fatalf("Expected a match, got error: %v", err)
	}

	if match.Dish != "Chicken Tikka Pizza" {
		t.Errorf("Expected dish 'Chicken Tikka Pizza', got '%s'", match.Dish)
	}
	if match.Restaurant != "Quattro - The Leela Bhartiya City Bengaluru" {
		t.Errorf("Expected restaurant 'Quattro - The Leela Bhartiya City Bengaluru', got '%s'", match.Restaurant)
	}
	if match.Score < matchCutoff {
		t.Errorf("Expected score >= %d, got %d", matchCutoff, match.Score)
	}
}

func TestResolveDishExactAndCaseInsensitive(t *testing.T) {
	tests := []struct {
		query      string
		dish       string
		restaurant string
	}{
		{"Paneer Tikka", "Paneer Tikka", "Quattro - The Leela Bhartiya City Bengaluru"},
		{"paneer tikka", "Paneer Tikka", "Quattro - The Leela Bhartiya City Bengaluru"},
		{"spring rolls", "Spring Rolls", "Chung Wah"},
		{"margherita pizza", "Margherita Pizza", "Pizza Hut"},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			match, err := resolveDish(tt.query, sampleCatalog())
			if err != nil {
				t.Fatalf("Expected a match for '%s', got error: %v", tt.query, err)
			}
			if match.Dish != tt.dish {
				t.Errorf("Expected dish '%s', got '%s'", tt.dish, match.Dish)
			}
			if match.Restaurant != tt.restaurant {
				t.Errorf("Expected restaurant '%s', got '%s'", tt.restaurant, match.Restaurant)
			}
		})
	}
}

func TestResolveDishNotAvailable(t *testing.T) {
	_, err := resolveDish("Biryani", sampleCatalog())
	if err == nil {
		t.Fatal("Expected an error for a dish absent from the catalog")
	}

	var notAvailable *DishNotAvailableError
	if !errors.As(err, &notAvailable) {
		t.Fatalf("Expected DishNotAvailableError, got %T", err)
	}

	want := "Sorry, the dish 'Biryani' is not available. Please suggest another dish."
	if err.Error() != want {
		t.Errorf("Expected error message %q, got %q", want, err.Error())
	}
}

func TestResolveDishTieBreakByInsertionOrder(t *testing.T) {
	// The same dish name in two restaurants scores identically; the
	// restaurant seen first in catalog order must win, deterministically.
	catalog := Catalog{
		{Restaurant: "First House", Dishes: []string{"Margherita Pizza"}},
		{Restaurant: "Second House", Dishes: []string{"Margherita Pizza"}},
	}

	for i := 0; i < 10; i++ {
		match, err := resolveDish("Margherita Pizza", catalog)
		if err != nil {
			t.Fatalf("Expected a match, got error: %v", err)
		}
		if match.Restaurant != "First House" {
			t.Fatalf("Expected tie to break to 'First House', got '%s'", match.Restaurant)
		}
	}
}

func TestResolveDishPureFunction(t *testing.T) {
	catalog := sampleCatalog()

	first, err := resolveDish("Honey Chilli Chicken", catalog)
	if err != nil {
		t.Fatalf("Expected a match, got error: %v", err)
	}
	second, err := resolveDish("Honey Chilli Chicken", catalog)
	if err != nil {
		t.Fatalf("Expected a match, got error: %v", err)
	}

	if first != second {
		t.Errorf("Expected identical results for identical inputs, got %+v and %+v", first, second)
	}
}
