package extract

import (
	"encoding/csv"
	"strings"
)

// flattenCSV renders tabular data as "header: value" lines per record,
// which embeds far better than raw comma-separated rows. Malformed CSV
// falls back to the raw content.
func flattenCSV(content string) string {
	reader := csv.NewReader(strings.NewReader(content))
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil || len(records) == 0 {
		return content
	}
	if len(records) == 1 {
		return strings.Join(records[0], ", ")
	}

	header := records[0]
	var b strings.Builder
	for _, record := range records[1:] {
		pairs := make([]string, 0, len(record))
		for i, field := range record {
			if strings.TrimSpace(field) == "" {
				continue
			}
			if i < len(header) && strings.TrimSpace(header[i]) != "" {
				pairs = append(pairs, header[i]+": "+field)
			} else {
				pairs = append(pairs, field)
			}
		}
		if len(pairs) > 0 {
			b.WriteString(strings.Join(pairs, ", "))
			b.WriteString("\n")
		}
	}
	return b.String()
}
