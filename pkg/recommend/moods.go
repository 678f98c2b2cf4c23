// Package recommend maps a traveller's mood to the place categories worth
// searching for. It is pure data.
package recommend

type Mood string

const (
	Relaxed     Mood = "relaxed"
	Adventurous Mood = "adventurous"
	Romantic    Mood = "romantic"
	Hungry      Mood = "hungry"
	Cultural    Mood = "cultural"
	Family      Mood = "family"
)

// Category is one place search, by provider type and free-text keyword.
type Category struct {
	Type    string `json:"type"`
	Keyword string `json:"keyword,omitempty"`
}

var table = map[Mood][]Category{
	Relaxed: {
		{Type: "spa"},
		{Type: "park", Keyword: "garden"},
		{Type: "cafe", Keyword: "quiet"},
		{Type: "beach"},
	},
	Adventurous: {
		{Type: "tourist_attraction", Keyword: "hiking"},
		{Type: "amusement_park"},
		{Type: "natural_feature"},
		{Type: "gym", Keyword: "climbing"},
	},
	Romantic: {
		{Type: "restaurant", Keyword: "romantic"},
		{Type: "bar", Keyword: "wine"},
		{Type: "park", Keyword: "sunset"},
	},
	Hungry: {
		{Type: "restaurant"},
		{Type: "meal_takeaway"},
		{Type: "bakery"},
		{Type: "cafe"},
	},
	Cultural: {
		{Type: "museum"},
		{Type: "art_gallery"},
		{Type: "church", Keyword: "historic"},
		{Type: "library"},
	},
	Family: {
		{Type: "zoo"},
		{Type: "aquarium"},
		{Type: "park", Keyword: "playground"},
		{Type: "amusement_park"},
	},
}

// Moods lists the known moods in a stable order.
func Moods() []string {
	return []string{
		string(Relaxed),
		string(Adventurous),
		string(Romantic),
		string(Hungry),
		string(Cultural),
		string(Family),
	}
}

// Lookup returns a copy of the categories for mood, most relevant first.
func Lookup(mood Mood) ([]Category, bool) {
	categories, ok := table[mood]
	if !ok {
		return nil, false
	}
	out := make([]Category, len(categories))
	copy(out, categories)
	return out, true
}
