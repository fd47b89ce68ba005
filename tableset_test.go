package gotap

import (
	"strings"
	"testing"
)

func TestParseTableSet(t *testing.T) {
	tables, err := parseTableSet(openTestData(t, "tableset.xml"))
	assertNilF(t, err)
	assertEqualF(t, len(tables), 3)

	gaia := tables[0]
	assertEqualE(t, gaia.Schema, "gaiadr3")
	assertEqualE(t, gaia.Name, "gaia_source")
	assertEqualE(t, gaia.QualifiedName(), "gaiadr3.gaia_source")
	assertEqualE(t, gaia.Description, "Gaia DR3 main source catalogue")
	assertEqualF(t, len(gaia.Columns), 2)
	assertEqualE(t, gaia.Columns[0].Name, "source_id")
	assertEqualE(t, gaia.Columns[0].Datatype, "BIGINT")
	assertEqualE(t, len(gaia.Columns[0].Flags), 2)
	assertEqualE(t, gaia.Columns[1].Unit, "deg")

	assertEqualE(t, tables[1].QualifiedName(), "gaiadr3.gaia_source_lite")
	assertEqualE(t, tables[2].QualifiedName(), "public.dual")
}

func TestQualifiedNameWithoutSchema(t *testing.T) {
	tm := &TableMeta{Name: "standalone"}
	assertEqualE(t, tm.QualifiedName(), "standalone")
}

func TestParseTableSetMalformed(t *testing.T) {
	_, err := parseTableSet(strings.NewReader("not xml"))
	assertNotNilF(t, err)
	var te *TapError
	assertErrorsAsF(t, err, &te)
	assertEqualE(t, te.Number, ErrCodeMalformedResponse)
}

func TestParseCapabilities(t *testing.T) {
	caps, err := parseCapabilities(openTestData(t, "capabilities.xml"))
	assertNilF(t, err)
	assertEqualF(t, len(caps.Languages), 1)
	assertEqualE(t, caps.Languages[0], "ADQL")
	assertEqualF(t, len(caps.OutputFormats), 4)
	assertEqualE(t, caps.OutputFormats[0], "votable")
	assertEqualE(t, caps.OutputFormats[1], "csv")
	assertEqualE(t, caps.OutputFormats[2], "json")
	// no alias declared; falls back to the mime type
	assertEqualE(t, caps.OutputFormats[3], "application/fits")
}
