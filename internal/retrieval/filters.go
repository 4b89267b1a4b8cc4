package retrieval

import (
	"regexp"
	"strings"

	"github.com/partdeck/partdeck/internal/index"
)

var (
	partIDPattern = regexp.MustCompile(`(?i)PS\d+`)
	mpnPattern    = regexp.MustCompile(`(?i)(?:MPN|Part Number|Part|#)[\s:]+([A-Z0-9-]+)`)

	knownBrands         = []string{"whirlpool", "ge", "samsung", "lg", "maytag"}
	applianceTypes      = []string{"refrigerator", "dishwasher", "washer", "dryer"}
	installDifficulties = []string{"easy", "moderate", "difficult", "professional"}

	// Words that signal the user is describing a fault rather than naming a
	// part. Matched as whole words.
	partSymptomIndicators = []string{"not", "broken", "leaking", "noisy", "won't", "doesn't"}

	repairSymptoms = []string{
		"noisy", "leaking", "not starting", "not making ice",
		"too warm", "not dispensing", "sweating", "not working",
		"too cold", "runs too long", "not cleaning", "not draining",
		"not filling", "not dispensing detergent", "not drying",
	}
	repairNegatives    = []string{"won't", "not", "doesn't", "isn't", "stopped"}
	repairActions      = []string{"start", "run", "work", "clean", "drain", "fill", "dry", "dispense"}
	repairDifficulties = []string{"REALLY EASY", "EASY", "MODERATE", "DIFFICULT"}
)

// ExtractPartID returns the first catalog id (PS followed by digits) in the
// query, uppercased.
func ExtractPartID(text string) string {
	return strings.ToUpper(partIDPattern.FindString(text))
}

// ExtractMPN returns the first labeled manufacturer part number in the query,
// uppercased. Bare alphanumerics without a label are ignored.
func ExtractMPN(text string) string {
	groups := mpnPattern.FindStringSubmatch(text)
	if len(groups) < 2 {
		return ""
	}
	return strings.ToUpper(groups[1])
}

// matchWord returns the first vocabulary entry appearing as a whole word in
// the text, or "".
func matchWord(text string, vocab []string) string {
	words := wordSet(text)
	for _, entry := range vocab {
		if words[entry] {
			return entry
		}
	}
	return ""
}

func wordSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		set[word] = true
	}
	return set
}

// titleWord capitalizes a single lowercase vocabulary word.
func titleWord(word string) string {
	if word == "" {
		return ""
	}
	return strings.ToUpper(word[:1]) + word[1:]
}

// PartsFilter derives metadata predicates for the parts domain from the raw
// user query. Absent signals produce no predicate; an empty filter means the
// query runs unfiltered.
func PartsFilter(query string) index.Filter {
	filter := index.Filter{}

	if partID := ExtractPartID(query); partID != "" {
		filter["part_id"] = index.Eq(partID)
	}
	if mpn := ExtractMPN(query); mpn != "" {
		filter["mpn"] = index.Eq(mpn)
	}
	if brand := matchWord(query, knownBrands); brand != "" {
		filter["brand"] = index.Eq(titleWord(brand))
	}
	if appliance := matchWord(query, applianceTypes); appliance != "" {
		filter["appliance_type"] = index.Eq(titleWord(appliance))
	}
	if difficulty := matchWord(query, installDifficulties); difficulty != "" {
		filter["install_difficulty"] = index.Eq(titleWord(difficulty))
	}
	if symptoms := partSymptoms(query); len(symptoms) > 0 {
		filter["symptoms"] = index.In(symptoms...)
	}

	if len(filter) == 0 {
		return nil
	}
	return filter
}

func partSymptoms(query string) []string {
	words := wordSet(query)
	var found []string
	for _, indicator := range partSymptomIndicators {
		if words[indicator] {
			found = append(found, indicator)
		}
	}
	return found
}

// RepairsFilter derives metadata predicates for the repairs domain.
func RepairsFilter(query string) index.Filter {
	filter := index.Filter{}

	if appliance := matchWord(query, applianceTypes); appliance != "" {
		filter["appliance_type"] = index.Eq(titleWord(appliance))
	}
	if symptoms := RepairSymptoms(query); len(symptoms) > 0 {
		filter["symptom"] = index.In(symptoms...)
	}
	if difficulty := repairDifficulty(query); difficulty != "" {
		filter["difficulty"] = index.Eq(difficulty)
	}

	if len(filter) == 0 {
		return nil
	}
	return filter
}

// RepairSymptoms finds known symptom phrases in the query, plus symptoms
// reconstructed from negative constructions ("won't start" becomes
// "not start").
func RepairSymptoms(query string) []string {
	textLower := strings.ToLower(query)
	var found []string

	for _, symptom := range repairSymptoms {
		if strings.Contains(textLower, symptom) {
			found = append(found, symptom)
		}
	}

	words := strings.Fields(textLower)
	actions := make(map[string]bool, len(repairActions))
	for _, action := range repairActions {
		actions[action] = true
	}
	for _, neg := range repairNegatives {
		idx := indexOf(words, neg)
		if idx >= 0 && idx+1 < len(words) && actions[words[idx+1]] {
			found = append(found, "not "+words[idx+1])
		}
	}

	return found
}

func indexOf(words []string, target string) int {
	for i, word := range words {
		if word == target {
			return i
		}
	}
	return -1
}

func repairDifficulty(query string) string {
	words := make(map[string]bool)
	for _, word := range strings.Fields(strings.ToUpper(query)) {
		words[word] = true
	}
	for _, difficulty := range repairDifficulties {
		if words[difficulty] {
			return difficulty
		}
	}
	return ""
}
