// Package jwst is a thin facade over the ESA JWST archive TAP service.
// It validates instrument and calibration-level filters locally and
// delegates the protocol work to the generic TAP client.
package jwst

import (
	"context"
	"fmt"
	"strings"

	gotap "github.com/astropy/astroquery-sub004"
)

// Connection defaults for the eJWST archive.
const (
	DefaultHost          = "jwst.esac.esa.int"
	DefaultServerContext = "server"

	// ObservationTable is the archive's observation catalog.
	ObservationTable = "jwst.main"

	raColumn  = "target_ra"
	decColumn = "target_dec"
)

// Instrument names the archive recognizes.
var validInstruments = map[string]bool{
	"NIRCAM":  true,
	"NIRSPEC": true,
	"MIRI":    true,
	"NIRISS":  true,
	"FGS":     true,
}

// ValidateInstrument rejects instrument names the archive does not know.
func ValidateInstrument(name string) error {
	if !validInstruments[strings.ToUpper(name)] {
		return fmt.Errorf("unknown JWST instrument: %v", name)
	}
	return nil
}

// ValidateCalibrationLevel rejects levels outside the 0-3 range the
// archive defines.
func ValidateCalibrationLevel(level int) error {
	if level < 0 || level > 3 {
		return fmt.Errorf("calibration level must be between 0 and 3, got %d", level)
	}
	return nil
}

// ObservationFilter narrows an observation query. Zero values are not
// applied.
type ObservationFilter struct {
	Instrument       string
	CalibrationLevel *int // nil leaves the level unconstrained
	TargetName       string
}

// Client queries the eJWST archive.
type Client struct {
	Conn *gotap.Conn
}

// New opens a connection to the public eJWST archive.
func New() (*Client, error) {
	conn, err := gotap.OpenWithConfig(&gotap.Config{
		Host:          DefaultHost,
		ServerContext: DefaultServerContext,
	})
	if err != nil {
		return nil, err
	}
	return &Client{Conn: conn}, nil
}

// NewWithConn wraps an existing connection.
func NewWithConn(conn *gotap.Conn) *Client {
	return &Client{Conn: conn}
}

func buildFilterClause(filter *ObservationFilter) (string, error) {
	if filter == nil {
		return "", nil
	}
	var clauses []string
	if filter.Instrument != "" {
		if err := ValidateInstrument(filter.Instrument); err != nil {
			return "", err
		}
		clauses = append(clauses, fmt.Sprintf("instrument_name=%s",
			gotap.QuoteString(strings.ToUpper(filter.Instrument))))
	}
	if filter.CalibrationLevel != nil {
		if err := ValidateCalibrationLevel(*filter.CalibrationLevel); err != nil {
			return "", err
		}
		clauses = append(clauses, fmt.Sprintf("calibrationlevel=%d", *filter.CalibrationLevel))
	}
	if filter.TargetName != "" {
		clauses = append(clauses, fmt.Sprintf("target_name=%s", gotap.QuoteString(filter.TargetName)))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " AND " + strings.Join(clauses, " AND "), nil
}

// ConeSearchObservations finds observations whose target position falls
// within radiusDeg of center, optionally filtered.
func (c *Client) ConeSearchObservations(ctx context.Context, center gotap.SkyCoord, radiusDeg float64, filter *ObservationFilter, opts *gotap.QueryOptions) (*gotap.Table, error) {
	clause, err := buildFilterClause(filter)
	if err != nil {
		return nil, err
	}
	query := gotap.ConeSearchADQL(ObservationTable, raColumn, decColumn, nil, center, radiusDeg) + clause
	return c.Conn.Query(ctx, query, opts)
}

// QueryTarget finds observations of a named target, optionally filtered.
func (c *Client) QueryTarget(ctx context.Context, targetName string, filter *ObservationFilter, opts *gotap.QueryOptions) (*gotap.Table, error) {
	f := ObservationFilter{TargetName: targetName}
	if filter != nil {
		f.Instrument = filter.Instrument
		f.CalibrationLevel = filter.CalibrationLevel
	}
	clause, err := buildFilterClause(&f)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf("SELECT * FROM %s WHERE 1=1%s", ObservationTable, clause)
	return c.Conn.Query(ctx, query, opts)
}

// ProductList fetches the data products belonging to one observation.
func (c *Client) ProductList(ctx context.Context, observationID string) (*gotap.Table, error) {
	query := fmt.Sprintf(
		"SELECT * FROM jwst.artifact WHERE obsid IN (SELECT obsid FROM %s WHERE observationid=%s)",
		ObservationTable, gotap.QuoteString(observationID))
	return c.Conn.Query(ctx, query, nil)
}
