package gotap

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
)

// decodeResult turns a response body into a Table according to the output
// format that was requested. FITS payloads are never decoded here; callers
// wanting FITS use the raw-download path.
func decodeResult(reader io.Reader, format OutputFormat) (*Table, error) {
	switch format {
	case FormatVOTable, FormatVOTablePlain, "":
		return parseVOTable(reader)
	case FormatCSV:
		return decodeSeparated(reader, ',')
	case FormatTSV:
		return decodeSeparated(reader, '\t')
	case FormatJSON:
		return decodeJSONTable(reader)
	default:
		return nil, &TapError{
			Number:      ErrCodeUnsupportedFormat,
			Message:     "cannot decode output format %v",
			MessageArgs: []interface{}{format},
		}
	}
}

func decodeSeparated(reader io.Reader, comma rune) (*Table, error) {
	r := csv.NewReader(reader)
	r.Comma = comma
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, &TapError{
			Number:      ErrCodeMalformedResponse,
			Message:     "failed to parse separated values: %v",
			MessageArgs: []interface{}{err},
		}
	}
	table := &Table{}
	if len(records) == 0 {
		return table, nil
	}
	for _, name := range records[0] {
		table.Columns = append(table.Columns, Column{Name: name})
	}
	table.Rows = records[1:]
	return table, nil
}

// TAP JSON table format: {"metadata": [...column descriptions...],
// "data": [[...row...], ...]}
type jsonTableDoc struct {
	Metadata []struct {
		Name        string `json:"name"`
		Datatype    string `json:"datatype"`
		Arraysize   string `json:"arraysize"`
		Unit        string `json:"unit"`
		UCD         string `json:"ucd"`
		Description string `json:"description"`
	} `json:"metadata"`
	Data [][]interface{} `json:"data"`
}

func decodeJSONTable(reader io.Reader) (*Table, error) {
	var doc jsonTableDoc
	if err := json.NewDecoder(reader).Decode(&doc); err != nil {
		return nil, &TapError{
			Number:      ErrCodeMalformedResponse,
			Message:     "failed to parse JSON table: %v",
			MessageArgs: []interface{}{err},
		}
	}
	table := &Table{}
	for _, m := range doc.Metadata {
		table.Columns = append(table.Columns, Column{
			Name:        m.Name,
			Datatype:    m.Datatype,
			Arraysize:   m.Arraysize,
			Unit:        m.Unit,
			UCD:         m.UCD,
			Description: m.Description,
		})
	}
	for _, rawRow := range doc.Data {
		row := make([]string, len(rawRow))
		for i, v := range rawRow {
			if v == nil {
				row[i] = ""
				continue
			}
			switch value := v.(type) {
			case string:
				row[i] = value
			case float64:
				row[i] = formatJSONNumber(value)
			case bool:
				if value {
					row[i] = "true"
				} else {
					row[i] = "false"
				}
			default:
				row[i] = fmt.Sprintf("%v", value)
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func formatJSONNumber(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}
