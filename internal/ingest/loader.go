// Package ingest loads the parts catalog, repair playbook, and support
// policies from their source files, embeds them, and upserts them into the
// vector indexes.
package ingest

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/partdeck/partdeck/internal/retrieval"
)

// partDefaults fills blank catalog cells so every record embeds and renders
// cleanly.
var partDefaults = map[string]string{
	"part_name":          "Unknown Part",
	"part_id":            "NO_ID",
	"mpn_id":             "NO_MPN",
	"part_price":         "0.00",
	"brand":              "Unknown Brand",
	"appliance_types":    "General Appliance",
	"availability":       "Unknown",
	"product_url":        "#",
	"install_difficulty": "Not Specified",
	"install_time":       "Not Specified",
	"symptoms":           "No symptoms listed",
	"replace_parts":      "No related parts listed",
	"install_video_url":  "No video available",
}

// LoadParts reads the parts catalog CSV.
func LoadParts(path string) ([]retrieval.Part, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	parts := make([]retrieval.Part, 0, len(rows))
	for _, row := range rows {
		get := func(column string) string {
			value := strings.TrimSpace(row[column])
			if value == "" {
				return partDefaults[column]
			}
			return value
		}
		parts = append(parts, retrieval.Part{
			Name:              get("part_name"),
			PartID:            get("part_id"),
			MPN:               get("mpn_id"),
			Price:             get("part_price"),
			Brand:             get("brand"),
			ApplianceType:     get("appliance_types"),
			Availability:      get("availability"),
			URL:               get("product_url"),
			InstallDifficulty: get("install_difficulty"),
			InstallTime:       get("install_time"),
			Symptoms:          get("symptoms"),
			ReplaceParts:      get("replace_parts"),
			InstallVideoURL:   get("install_video_url"),
		})
	}
	return parts, nil
}

// LoadRepairs reads the repairs CSV. The parts column is a comma separated
// list.
func LoadRepairs(path string) ([]retrieval.RepairCase, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	repairs := make([]retrieval.RepairCase, 0, len(rows))
	for _, row := range rows {
		var parts []string
		for _, part := range strings.Split(row["parts"], ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				parts = append(parts, part)
			}
		}
		repairs = append(repairs, retrieval.RepairCase{
			ApplianceType: strings.TrimSpace(row["Product"]),
			Symptom:       strings.TrimSpace(row["symptom"]),
			Description:   strings.TrimSpace(row["description"]),
			Frequency:     strings.TrimSpace(row["percentage"]),
			PartsNeeded:   parts,
			SymptomURL:    strings.TrimSpace(row["symptom_detail_url"]),
			Difficulty:    strings.TrimSpace(row["difficulty"]),
			RepairVideo:   strings.TrimSpace(row["repair_video_url"]),
		})
	}
	return repairs, nil
}

type supportFile struct {
	Policies []retrieval.PolicySection `json:"policies"`
}

// LoadSupport reads the support policies JSON file.
func LoadSupport(path string) ([]retrieval.PolicySection, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var file supportFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return file.Policies, nil
}

func readCSV(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read %s header: %w", path, err)
	}

	var rows []map[string]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		row := make(map[string]string, len(header))
		for i, column := range header {
			if i < len(record) {
				row[column] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
