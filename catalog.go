package main

// RestaurantMenu is one restaurant's ordered dish list as it appears in the
// config file.
type RestaurantMenu struct {
	Restaurant string   `yaml:"restaurant"`
	Dishes     []string `yaml:"dishes"`
}

// Catalog is the static restaurant→dishes mapping, loaded once at startup and
// read-only afterwards. Dish names need not be unique across restaurants;
// everything downstream relies on insertion order staying stable, which is
// why this is a slice and not a map.
type Catalog []RestaurantMenu

type menuEntry struct {
	Dish       string
	Restaurant string
}

// entries flattens the catalog into (dish, restaurant) pairs, preserving
// catalog insertion order.
func (c Catalog) entries() []menuEntry {
	var out []menuEntry
	for _, menu := range c {
		for _, dish := range menu.Dishes {
			out = append(out, menuEntry{Dish: dish, Restaurant: menu.Restaurant})
		}
	}
	return out
}
