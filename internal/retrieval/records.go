// Package retrieval implements filtered semantic search over the three
// knowledge domains (parts, repairs, support policies) and renders matches
// into the fixed text blocks the assistant consumes as tool results.
package retrieval

import (
	"fmt"
	"strings"
)

// Part is one catalog entry in the parts domain.
type Part struct {
	PartID            string
	MPN               string
	Name              string
	Price             string
	Brand             string
	ApplianceType     string
	Availability      string
	URL               string
	InstallDifficulty string
	InstallTime       string
	Symptoms          string
	ReplaceParts      string
	InstallVideoURL   string
}

// SearchableText renders the part into the text that gets embedded.
func (p Part) SearchableText() string {
	return fmt.Sprintf(`Product: %s
Part ID: %s
MPN: %s
Price: $%s
Brand: %s
Type: %s
Installation:
- Difficulty: %s
- Time: %s
- Video Guide: %s
Common Symptoms: %s
Related Parts: %s
Status: %s`,
		p.Name, p.PartID, p.MPN, p.Price, p.Brand, p.ApplianceType,
		p.InstallDifficulty, p.InstallTime, p.InstallVideoURL,
		p.Symptoms, p.ReplaceParts, p.Availability)
}

// Metadata returns the filterable attribute map stored alongside the vector.
func (p Part) Metadata() map[string]any {
	return map[string]any{
		"part_id":            p.PartID,
		"mpn":                p.MPN,
		"part_name":          p.Name,
		"price":              p.Price,
		"brand":              p.Brand,
		"appliance_type":     p.ApplianceType,
		"availability":       p.Availability,
		"url":                p.URL,
		"install_difficulty": p.InstallDifficulty,
		"install_time":       p.InstallTime,
		"symptoms":           p.Symptoms,
		"replace_parts":      p.ReplaceParts,
		"install_video_url":  p.InstallVideoURL,
	}
}

// RepairCase is one entry in the repairs domain.
type RepairCase struct {
	ApplianceType string
	Symptom       string
	Description   string
	Frequency     string
	PartsNeeded   []string
	SymptomURL    string
	Difficulty    string
	RepairVideo   string
}

// SearchableText renders the repair case into the text that gets embedded.
func (r RepairCase) SearchableText() string {
	return fmt.Sprintf(`Appliance: %s
Problem: %s
Description: %s
Frequency: This issue affects %s%% of %ss
Required Parts: %s
Repair Difficulty: %s`,
		r.ApplianceType, r.Symptom, r.Description, r.Frequency,
		r.ApplianceType, strings.Join(r.PartsNeeded, ", "), r.Difficulty)
}

// Metadata returns the filterable attribute map stored alongside the vector.
func (r RepairCase) Metadata() map[string]any {
	parts := make([]any, 0, len(r.PartsNeeded))
	for _, p := range r.PartsNeeded {
		parts = append(parts, p)
	}
	return map[string]any{
		"appliance_type": r.ApplianceType,
		"symptom":        r.Symptom,
		"description":    r.Description,
		"frequency":      r.Frequency,
		"parts_needed":   parts,
		"symptom_url":    r.SymptomURL,
		"difficulty":     r.Difficulty,
		"repair_video":   r.RepairVideo,
	}
}

// PolicySection is one entry in the support domain.
type PolicySection struct {
	Title   string
	Content string
}

// SearchableText renders the policy into the text that gets embedded.
func (s PolicySection) SearchableText() string {
	return fmt.Sprintf("Policy: %s\nContent: %s", s.Title, s.Content)
}

// ID derives a stable record id from the policy title.
func (s PolicySection) ID() string {
	return "support_" + strings.ReplaceAll(strings.ToLower(s.Title), " ", "_")
}

// Metadata returns the attribute map stored alongside the vector.
func (s PolicySection) Metadata() map[string]any {
	return map[string]any{
		"title":   s.Title,
		"content": s.Content,
	}
}
