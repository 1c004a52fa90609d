package emotion

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Category is the coarse sentiment bucket an emotion label falls into.
type Category string

const (
	Positive Category = "positive"
	Neutral  Category = "neutral"
	Negative Category = "negative"
)

// ParseCategory accepts a category name in any casing.
func ParseCategory(s string) (Category, bool) {
	switch Category(strings.ToLower(strings.TrimSpace(s))) {
	case Positive:
		return Positive, true
	case Neutral:
		return Neutral, true
	case Negative:
		return Negative, true
	default:
		return "", false
	}
}

var positiveLabels = []string{
	"admiration", "adoration", "aesthetic appreciation", "amusement", "awe",
	"contentment", "desire", "determination", "ecstasy", "entrancement",
	"excitement", "gratitude", "interest", "joy", "love", "pride", "relief",
	"romance", "satisfaction", "surprise (positive)", "sympathy", "triumph",
}

var negativeLabels = []string{
	"anger", "anxiety", "awkwardness", "boredom", "contempt", "disappointment",
	"disgust", "distress", "doubt", "embarrassment", "empathic pain", "envy",
	"fear", "guilt", "horror", "pain", "sadness", "shame", "surprise (negative)",
	"tiredness",
}

var neutralLabels = []string{
	"calmness", "concentration", "confusion", "contemplation", "craving",
	"nostalgia", "realization", "neutral",
}

// Taxonomy maps raw emotion labels to categories. Lookups are case-insensitive
// and total: anything unknown falls back to the default category.
type Taxonomy struct {
	table map[string]Category
	def   Category
}

// DefaultTaxonomy returns the built-in table with neutral as the default.
func DefaultTaxonomy() *Taxonomy {
	t := &Taxonomy{table: make(map[string]Category), def: Neutral}
	for _, l := range positiveLabels {
		t.table[l] = Positive
	}
	for _, l := range negativeLabels {
		t.table[l] = Negative
	}
	for _, l := range neutralLabels {
		t.table[l] = Neutral
	}
	return t
}

// Categorize returns the category for name. An empty name is the null label.
func (t *Taxonomy) Categorize(name string) Category {
	key := normalize(name)
	if key == "" {
		return t.def
	}
	if c, ok := t.table[key]; ok {
		return c
	}
	return t.def
}

// Default returns the category used for unknown and empty labels.
func (t *Taxonomy) Default() Category {
	return t.def
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// taxonomyFile is the YAML layout accepted by LoadTaxonomy.
type taxonomyFile struct {
	Default  string   `yaml:"default"`
	Positive []string `yaml:"positive"`
	Neutral  []string `yaml:"neutral"`
	Negative []string `yaml:"negative"`
}

// LoadTaxonomy reads a YAML override file on top of the built-in table.
// Labels listed in the file replace the built-in assignment for that label.
func LoadTaxonomy(path string) (*Taxonomy, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open taxonomy: %w", err)
	}
	defer f.Close()

	var tf taxonomyFile
	if err := yaml.NewDecoder(f).Decode(&tf); err != nil {
		return nil, fmt.Errorf("decode taxonomy: %w", err)
	}

	t := DefaultTaxonomy()
	if tf.Default != "" {
		c, ok := ParseCategory(tf.Default)
		if !ok {
			return nil, fmt.Errorf("taxonomy default %q is not a category", tf.Default)
		}
		t.def = c
	}
	for _, l := range tf.Positive {
		t.table[normalize(l)] = Positive
	}
	for _, l := range tf.Neutral {
		t.table[normalize(l)] = Neutral
	}
	for _, l := range tf.Negative {
		t.table[normalize(l)] = Negative
	}
	return t, nil
}
