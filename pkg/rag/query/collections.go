package query

import "sarathi-be/pkg/store"

// lifeAreaCollections restricts which source collections fit a life
// area. Unknown areas fall back to the default set.
var lifeAreaCollections = map[string][]string{
	"work":          {"Bhagavad Gita", "Mahabharata"},
	"career":        {"Bhagavad Gita", "Mahabharata"},
	"family":        {"Ramayana", "Mahabharata", "Bhagavad Gita"},
	"relationships": {"Ramayana", "Bhagavad Gita"},
	"health":        {"Sanatan Scriptures", "Bhagavad Gita"},
	"spiritual":     {"Bhagavad Gita", "Sanatan Scriptures"},
	"financial":     {"Mahabharata", "Bhagavad Gita"},
}

var defaultCollections = []string{"Bhagavad Gita", "Ramayana", "Mahabharata"}

// AllowedCollections derives the collection allow-list from the
// session signals.
func AllowedCollections(signals map[string]store.Signal) []string {
	if area, ok := signals[store.SignalLifeArea]; ok {
		if cols, found := lifeAreaCollections[area.Value]; found {
			return cols
		}
	}
	return defaultCollections
}
