package gotap

import (
	"fmt"
	"strconv"
	"strings"
)

// SkyCoord is an ICRS sky position in decimal degrees.
type SkyCoord struct {
	RA  float64
	Dec float64
}

func formatDeg(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// selectList renders the column list, "*" when none given.
func selectList(columns []string) string {
	if len(columns) == 0 {
		return "*"
	}
	return strings.Join(columns, ",")
}

// ConeSearchADQL builds an ADQL cone-search query: all rows of table whose
// (raCol, decCol) position falls within radiusDeg of center.
func ConeSearchADQL(table, raCol, decCol string, columns []string, center SkyCoord, radiusDeg float64) string {
	return fmt.Sprintf(
		"SELECT %s FROM %s WHERE 1=CONTAINS(POINT('ICRS',%s,%s),CIRCLE('ICRS',%s,%s,%s))",
		selectList(columns), table, raCol, decCol,
		formatDeg(center.RA), formatDeg(center.Dec), formatDeg(radiusDeg))
}

// BoxSearchADQL builds an ADQL box-search query centered on center with
// the given widths in degrees.
func BoxSearchADQL(table, raCol, decCol string, columns []string, center SkyCoord, widthDeg, heightDeg float64) string {
	return fmt.Sprintf(
		"SELECT %s FROM %s WHERE 1=CONTAINS(POINT('ICRS',%s,%s),BOX('ICRS',%s,%s,%s,%s))",
		selectList(columns), table, raCol, decCol,
		formatDeg(center.RA), formatDeg(center.Dec),
		formatDeg(widthDeg), formatDeg(heightDeg))
}

// ConeSearchSortedADQL is ConeSearchADQL with results ordered by angular
// distance from the center, nearest first.
func ConeSearchSortedADQL(table, raCol, decCol string, columns []string, center SkyCoord, radiusDeg float64) string {
	dist := fmt.Sprintf("DISTANCE(POINT('ICRS',%s,%s),POINT('ICRS',%s,%s)) AS dist",
		raCol, decCol, formatDeg(center.RA), formatDeg(center.Dec))
	cols := selectList(columns)
	return fmt.Sprintf(
		"SELECT %s,%s FROM %s WHERE 1=CONTAINS(POINT('ICRS',%s,%s),CIRCLE('ICRS',%s,%s,%s)) ORDER BY dist ASC",
		cols, dist, table, raCol, decCol,
		formatDeg(center.RA), formatDeg(center.Dec), formatDeg(radiusDeg))
}

// QuoteString escapes a string literal for inclusion in ADQL.
func QuoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
