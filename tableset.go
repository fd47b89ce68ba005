package gotap

import (
	"encoding/xml"
	"io"
)

// ColumnMeta is the static description of one column of a remote table,
// as published by the VOSI tables endpoint. Immutable once loaded.
type ColumnMeta struct {
	Name        string `xml:"name"`
	Description string `xml:"description"`
	Unit        string `xml:"unit"`
	UCD         string `xml:"ucd"`
	Utype       string `xml:"utype"`
	Datatype    string `xml:"dataType"`
	Flags       []string `xml:"flag"`
}

// TableMeta is the static schema of a remote table. Immutable once loaded.
type TableMeta struct {
	Schema      string
	Name        string `xml:"name"`
	Description string `xml:"description"`
	Columns     []ColumnMeta `xml:"column"`
}

// QualifiedName returns schema.table, or just the table name when the
// service did not place the table in a schema.
func (tm *TableMeta) QualifiedName() string {
	if tm.Schema == "" {
		return tm.Name
	}
	return tm.Schema + "." + tm.Name
}

type vosiSchema struct {
	Name   string      `xml:"name"`
	Tables []TableMeta `xml:"table"`
}

type vosiTableSet struct {
	XMLName xml.Name     `xml:"tableset"`
	Schemas []vosiSchema `xml:"schema"`
}

func parseTableSet(reader io.Reader) ([]*TableMeta, error) {
	var doc vosiTableSet
	if err := xml.NewDecoder(reader).Decode(&doc); err != nil {
		return nil, &TapError{
			Number:      ErrCodeMalformedResponse,
			Message:     "failed to parse tableset document: %v",
			MessageArgs: []interface{}{err},
		}
	}
	var tables []*TableMeta
	for _, schema := range doc.Schemas {
		for i := range schema.Tables {
			table := schema.Tables[i]
			table.Schema = schema.Name
			tables = append(tables, &table)
		}
	}
	return tables, nil
}

// Capabilities lists what one TAP service supports, from the VOSI
// capabilities endpoint.
type Capabilities struct {
	Languages     []string
	OutputFormats []string
}

type capabilityDoc struct {
	XMLName      xml.Name `xml:"capabilities"`
	Capabilities []struct {
		StandardID string `xml:"standardID,attr"`
		Languages  []struct {
			Name string `xml:"name"`
		} `xml:"language"`
		OutputFormats []struct {
			MIME  string `xml:"mime"`
			Alias string `xml:"alias"`
		} `xml:"outputFormat"`
	} `xml:"capability"`
}

func parseCapabilities(reader io.Reader) (*Capabilities, error) {
	var doc capabilityDoc
	if err := xml.NewDecoder(reader).Decode(&doc); err != nil {
		return nil, &TapError{
			Number:      ErrCodeMalformedResponse,
			Message:     "failed to parse capabilities document: %v",
			MessageArgs: []interface{}{err},
		}
	}
	caps := &Capabilities{}
	for _, c := range doc.Capabilities {
		for _, l := range c.Languages {
			caps.Languages = append(caps.Languages, l.Name)
		}
		for _, f := range c.OutputFormats {
			if f.Alias != "" {
				caps.OutputFormats = append(caps.OutputFormats, f.Alias)
			} else {
				caps.OutputFormats = append(caps.OutputFormats, f.MIME)
			}
		}
	}
	return caps, nil
}
