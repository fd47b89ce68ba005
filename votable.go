package gotap

import (
	"encoding/xml"
	"io"
	"strings"
)

// Column describes one FIELD of a VOTable result.
type Column struct {
	ID          string
	Name        string
	Datatype    string
	Arraysize   string
	Unit        string
	UCD         string
	Utype       string
	Description string
}

// Table is an in-memory tabular query result. Values are kept as the
// strings the service serialized; scientific typing is left to the caller.
type Table struct {
	Name     string
	Columns  []Column
	Rows     [][]string
	Overflow bool // MAXREC truncation reported by the service
}

// NumRows returns the number of data rows.
func (t *Table) NumRows() int {
	return len(t.Rows)
}

// NumColumns returns the number of columns.
func (t *Table) NumColumns() int {
	return len(t.Columns)
}

// ColumnIndex returns the position of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if strings.EqualFold(c.Name, name) {
			return i
		}
	}
	return -1
}

const (
	queryStatusOK       = "OK"
	queryStatusError    = "ERROR"
	queryStatusOverflow = "OVERFLOW"
)

// parseVOTable streams a VOTable document into a Table. An INFO element
// with name QUERY_STATUS and value ERROR terminates parsing with a
// *TapError carrying the service message.
func parseVOTable(reader io.Reader) (*Table, error) {
	decoder := xml.NewDecoder(reader)
	table := &Table{}
	var inData, inRow bool
	var cell strings.Builder
	var inCell bool
	var row []string

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &TapError{
				Number:      ErrCodeMalformedResponse,
				Message:     "failed to parse VOTable: %v",
				MessageArgs: []interface{}{err},
			}
		}
		switch elem := tok.(type) {
		case xml.StartElement:
			switch elem.Name.Local {
			case "TABLE":
				table.Name = attrValue(elem, "name")
			case "FIELD":
				table.Columns = append(table.Columns, Column{
					ID:        attrValue(elem, "ID"),
					Name:      attrValue(elem, "name"),
					Datatype:  attrValue(elem, "datatype"),
					Arraysize: attrValue(elem, "arraysize"),
					Unit:      attrValue(elem, "unit"),
					UCD:       attrValue(elem, "ucd"),
					Utype:     attrValue(elem, "utype"),
				})
			case "DESCRIPTION":
				if n := len(table.Columns); n > 0 && !inData {
					var desc string
					if err := decoder.DecodeElement(&desc, &elem); err == nil {
						table.Columns[n-1].Description = strings.TrimSpace(desc)
					}
				}
			case "INFO":
				if attrValue(elem, "name") == "QUERY_STATUS" {
					status := attrValue(elem, "value")
					var message string
					if err := decoder.DecodeElement(&message, &elem); err != nil {
						message = ""
					}
					switch status {
					case queryStatusError:
						return nil, &TapError{
							Number:      ErrCodeQueryStatusError,
							Message:     "query failed: %v",
							MessageArgs: []interface{}{strings.TrimSpace(message)},
						}
					case queryStatusOverflow:
						table.Overflow = true
					}
				}
			case "TABLEDATA":
				inData = true
			case "TR":
				if inData {
					inRow = true
					row = make([]string, 0, len(table.Columns))
				}
			case "TD":
				if inRow {
					inCell = true
					cell.Reset()
				}
			}
		case xml.CharData:
			if inCell {
				cell.Write(elem)
			}
		case xml.EndElement:
			switch elem.Name.Local {
			case "TABLEDATA":
				inData = false
			case "TR":
				if inRow {
					table.Rows = append(table.Rows, row)
					inRow = false
				}
			case "TD":
				if inCell {
					row = append(row, cell.String())
					inCell = false
				}
			}
		}
	}
	return table, nil
}

func attrValue(elem xml.StartElement, name string) string {
	for _, attr := range elem.Attr {
		if attr.Name.Local == name {
			return attr.Value
		}
	}
	return ""
}
