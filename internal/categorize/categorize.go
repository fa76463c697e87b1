// Package categorize maps merchant names to spending categories with an
// ordered keyword table. Matching is substring based and case insensitive.
package categorize

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/rico-rbls/smart-budget-tracker/constants"
	"github.com/rico-rbls/smart-budget-tracker/internal/common"
)

// rule pairs one category with its keyword list. Rules are evaluated in
// slice order, so earlier categories shadow later ones on overlap.
type rule struct {
	category constants.Category
	keywords []string
}

// Suggestion is one scored candidate from Suggestions, confidence capped
// at 100.
type Suggestion struct {
	Category   constants.Category `json:"category"`
	Confidence int                `json:"confidence"`
}

// Categorizer holds a mutable keyword table. Each instance owns its table;
// AddKeyword on one instance never leaks into another.
type Categorizer struct {
	mu     sync.RWMutex
	rules  []rule
	logger *slog.Logger
}

// NewCategorizer returns a categorizer seeded with the built-in keyword
// table. Pass nil to fall back to slog.Default.
func NewCategorizer(logger *slog.Logger) *Categorizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Categorizer{rules: defaultRules(), logger: logger}
}

func defaultRules() []rule {
	return []rule{
		{constants.Groceries, []string{
			"walmart", "target", "kroger", "safeway", "whole foods",
			"trader joe", "aldi", "costco", "sam's club", "publix",
			"wegmans", "albertsons", "food lion", "giant", "stop & shop",
			"harris teeter", "sprouts", "fresh market", "grocery",
			"supermarket", "market",
		}},
		{constants.Dining, []string{
			"mcdonald", "burger king", "wendy", "taco bell", "chipotle",
			"subway", "starbucks", "dunkin", "panera", "chick-fil-a",
			"kfc", "pizza hut", "domino", "papa john", "olive garden",
			"applebee", "chili", "red lobster", "outback",
			"texas roadhouse", "restaurant", "cafe", "coffee", "diner",
			"bistro", "grill", "bar & grill", "eatery", "food court",
		}},
		{constants.Transportation, []string{
			"shell", "exxon", "chevron", "bp", "mobil", "texaco",
			"citgo", "sunoco", "uber", "lyft", "taxi", "metro",
			"transit", "parking", "gas station", "fuel", "auto",
			"car wash", "toll", "bus", "train", "subway",
		}},
		{constants.Entertainment, []string{
			"netflix", "hulu", "disney", "spotify", "apple music",
			"amazon prime", "hbo", "cinema", "theater", "amc", "regal",
			"movie", "concert", "ticketmaster", "steam", "playstation",
			"xbox", "nintendo", "game", "entertainment", "museum",
			"zoo", "aquarium", "park",
		}},
		{constants.Shopping, []string{
			"amazon", "ebay", "etsy", "best buy", "apple store",
			"microsoft store", "macy", "nordstrom", "kohl", "jcpenney",
			"tj maxx", "marshalls", "ross", "gap", "old navy", "h&m",
			"zara", "forever 21", "victoria's secret", "bath & body",
			"bed bath", "home depot", "lowe", "ikea", "wayfair",
			"clothing", "apparel", "fashion",
		}},
		{constants.Utilities, []string{
			"electric", "power", "gas company", "water", "internet",
			"cable", "phone", "verizon", "at&t", "t-mobile", "sprint",
			"comcast", "spectrum", "utility", "energy", "pg&e",
			"duke energy", "con edison",
		}},
		{constants.Healthcare, []string{
			"cvs", "walgreens", "rite aid", "pharmacy", "hospital",
			"clinic", "medical", "doctor", "dentist", "dental", "health",
			"urgent care", "lab", "imaging", "prescription", "medicine",
		}},
	}
}

// Categorize returns the first category whose keyword list matches the
// merchant name, or Other when nothing does.
func (c *Categorizer) Categorize(merchant string) constants.Category {
	name := strings.ToLower(strings.TrimSpace(merchant))
	if name == "" {
		return constants.Other
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, r := range c.rules {
		for _, kw := range r.keywords {
			if strings.Contains(name, kw) {
				return r.category
			}
		}
	}
	return constants.Other
}

// Suggestions scores every category with at least one keyword hit:
// 30 points per matched keyword plus 5 per character of the longest matched
// keyword, capped at 100. Results come back highest first; equal scores keep
// table order.
func (c *Categorizer) Suggestions(merchant string) []Suggestion {
	name := strings.ToLower(strings.TrimSpace(merchant))
	if name == "" {
		return nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []Suggestion
	for _, r := range c.rules {
		matches := 0
		longest := 0
		for _, kw := range r.keywords {
			if strings.Contains(name, kw) {
				matches++
				if len(kw) > longest {
					longest = len(kw)
				}
			}
		}
		if matches == 0 {
			continue
		}
		score := matches*30 + longest*5
		if score > 100 {
			score = 100
		}
		out = append(out, Suggestion{Category: r.category, Confidence: score})
	}

	// Insertion sort keeps ties in table order.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Confidence > out[j-1].Confidence; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// AddKeyword registers a keyword for a category at runtime. The keyword is
// lowercased and trimmed; duplicates are ignored. A category without a rule
// yet (Other, or one absent from a config file) gets a fresh bucket appended
// to the end of the table.
func (c *Categorizer) AddKeyword(category constants.Category, keyword string) error {
	kw := normalizeKeyword(keyword)
	if kw == "" {
		return common.NewAppError("INVALID_KEYWORD", "keyword must not be empty", common.ErrInvalidInput)
	}
	if _, ok := constants.Canonicalize(string(category)); !ok {
		return common.NewAppError("UNKNOWN_CATEGORY",
			fmt.Sprintf("unknown category %q", category), common.ErrInvalidInput)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.rules {
		if c.rules[i].category != category {
			continue
		}
		for _, existing := range c.rules[i].keywords {
			if existing == kw {
				return nil
			}
		}
		c.rules[i].keywords = append(c.rules[i].keywords, kw)
		c.logger.Info("keyword added", "category", category, "keyword", kw)
		return nil
	}
	c.rules = append(c.rules, rule{category: category, keywords: []string{kw}})
	c.logger.Info("keyword added", "category", category, "keyword", kw)
	return nil
}

func normalizeKeyword(kw string) string {
	return strings.ToLower(strings.TrimSpace(kw))
}

// Keywords returns a copy of the keyword list for one category.
func (c *Categorizer) Keywords(category constants.Category) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, r := range c.rules {
		if r.category == category {
			out := make([]string, len(r.keywords))
			copy(out, r.keywords)
			return out
		}
	}
	return nil
}
