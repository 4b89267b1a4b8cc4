package retrieval

import (
	"fmt"
	"strings"

	"github.com/partdeck/partdeck/internal/index"
)

// Free-text metadata fields are capped before formatting so a single verbose
// record cannot flood the model's context.
const maxFieldLen = 500

func truncateField(value string) string {
	if len(value) <= maxFieldLen {
		return value
	}
	return value[:maxFieldLen-3] + "..."
}

func metaString(metadata map[string]any, key string) string {
	if metadata == nil {
		return ""
	}
	if value, ok := metadata[key].(string); ok {
		return value
	}
	return ""
}

func metaStrings(metadata map[string]any, key string) []string {
	if metadata == nil {
		return nil
	}
	raw, ok := metadata[key].([]any)
	if !ok {
		return nil
	}
	values := make([]string, 0, len(raw))
	for _, entry := range raw {
		if s, ok := entry.(string); ok {
			values = append(values, s)
		}
	}
	return values
}

func formatPartMatch(match index.Match) string {
	m := match.Metadata

	video := metaString(m, "install_video_url")
	videoLine := "Installation Video: Not available"
	if video != "" && video != "No video available" {
		videoLine = "Installation Video: " + video
	}

	return fmt.Sprintf(`Part: %s
ID: %s
MPN: %s
Price: $%s
Brand: %s
Type: %s
Installation Difficulty: %s
Installation Time: %s
Common Symptoms: %s
Related Parts: %s
Availability: %s
%s
URL: %s
Relevance Score: %.2f
---`,
		metaString(m, "part_name"),
		metaString(m, "part_id"),
		metaString(m, "mpn"),
		metaString(m, "price"),
		metaString(m, "brand"),
		metaString(m, "appliance_type"),
		metaString(m, "install_difficulty"),
		metaString(m, "install_time"),
		truncateField(metaString(m, "symptoms")),
		truncateField(metaString(m, "replace_parts")),
		metaString(m, "availability"),
		videoLine,
		metaString(m, "url"),
		match.Score)
}

func formatRepairMatch(match index.Match) string {
	m := match.Metadata
	appliance := metaString(m, "appliance_type")

	return fmt.Sprintf(`Problem: %s
Appliance: %s
Description: %s
Frequency: This affects %s%% of %ss
Difficulty: %s
Required Parts: %s
Repair Video: %s
More Info: %s
Relevance Score: %.2f
---`,
		metaString(m, "symptom"),
		appliance,
		truncateField(metaString(m, "description")),
		metaString(m, "frequency"),
		appliance,
		metaString(m, "difficulty"),
		strings.Join(metaStrings(m, "parts_needed"), ", "),
		metaString(m, "repair_video"),
		metaString(m, "symptom_url"),
		match.Score)
}

func formatPolicyMatch(match index.Match) string {
	m := match.Metadata

	return fmt.Sprintf(`Policy: %s
%s

Relevance Score: %.2f
---`,
		metaString(m, "title"),
		truncateField(metaString(m, "content")),
		match.Score)
}

func joinBlocks(blocks []string) string {
	return strings.Join(blocks, "\n")
}
