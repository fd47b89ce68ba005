// Package gaia is a thin facade over the ESA Gaia archive TAP service.
// It builds ADQL from sky-search parameters and delegates the protocol
// work to the generic TAP client.
package gaia

import (
	"context"
	"fmt"
	"strings"

	gotap "github.com/astropy/astroquery-sub004"
)

// Connection defaults for the Gaia archive.
const (
	DefaultHost          = "gea.esac.esa.int"
	DefaultServerContext = "tap-server"

	// MainTable is the source catalog of the default data release.
	MainTable = "gaiadr3.gaia_source"

	raColumn  = "ra"
	decColumn = "dec"
)

// Data releases the archive serves.
var validReleases = map[string]bool{
	"gaiadr1": true,
	"gaiadr2": true,
	"gaiaedr3": true,
	"gaiadr3": true,
}

// ValidateRelease rejects data release names the archive does not know.
func ValidateRelease(release string) error {
	if !validReleases[strings.ToLower(release)] {
		return fmt.Errorf("unknown Gaia data release: %v", release)
	}
	return nil
}

// Client queries the Gaia archive.
type Client struct {
	Conn  *gotap.Conn
	Table string // defaults to MainTable
}

// New opens a connection to the public Gaia archive.
func New() (*Client, error) {
	conn, err := gotap.OpenWithConfig(&gotap.Config{
		Host:          DefaultHost,
		ServerContext: DefaultServerContext,
	})
	if err != nil {
		return nil, err
	}
	return &Client{Conn: conn, Table: MainTable}, nil
}

// NewWithConn wraps an existing connection, e.g. one pointed at a mirror.
func NewWithConn(conn *gotap.Conn) *Client {
	return &Client{Conn: conn, Table: MainTable}
}

func (c *Client) table() string {
	if c.Table != "" {
		return c.Table
	}
	return MainTable
}

// ConeSearch runs a synchronous cone search around center, sorted by
// angular distance.
func (c *Client) ConeSearch(ctx context.Context, center gotap.SkyCoord, radiusDeg float64, opts *gotap.QueryOptions) (*gotap.Table, error) {
	query := gotap.ConeSearchSortedADQL(c.table(), raColumn, decColumn, nil, center, radiusDeg)
	return c.Conn.Query(ctx, query, opts)
}

// ConeSearchAsync submits the cone search as an asynchronous job, for
// radii too large for the synchronous endpoint.
func (c *Client) ConeSearchAsync(ctx context.Context, center gotap.SkyCoord, radiusDeg float64, opts *gotap.QueryOptions) (*gotap.Job, error) {
	query := gotap.ConeSearchSortedADQL(c.table(), raColumn, decColumn, nil, center, radiusDeg)
	return c.Conn.QueryAsync(ctx, query, opts)
}

// BoxSearch runs a synchronous box search centered on center.
func (c *Client) BoxSearch(ctx context.Context, center gotap.SkyCoord, widthDeg, heightDeg float64, opts *gotap.QueryOptions) (*gotap.Table, error) {
	query := gotap.BoxSearchADQL(c.table(), raColumn, decColumn, nil, center, widthDeg, heightDeg)
	return c.Conn.Query(ctx, query, opts)
}

// CrossMatch submits a positional cross-match between two tables as an
// asynchronous job. radiusArcsec is the match radius.
func (c *Client) CrossMatch(ctx context.Context, tableA, tableB string, radiusArcsec float64, opts *gotap.QueryOptions) (*gotap.Job, error) {
	if radiusArcsec <= 0 || radiusArcsec > 10 {
		return nil, fmt.Errorf("cross-match radius must be in (0, 10] arcsec, got %v", radiusArcsec)
	}
	query := fmt.Sprintf(
		"SELECT a.*, b.*, DISTANCE(POINT('ICRS',a.ra,a.dec),POINT('ICRS',b.ra,b.dec)) AS separation "+
			"FROM %s AS a JOIN %s AS b "+
			"ON 1=CONTAINS(POINT('ICRS',a.ra,a.dec),CIRCLE('ICRS',b.ra,b.dec,%g))",
		tableA, tableB, radiusArcsec/3600.0)
	return c.Conn.QueryAsync(ctx, query, opts)
}

// SourceByID fetches one source row by its catalog identifier.
func (c *Client) SourceByID(ctx context.Context, sourceID int64) (*gotap.Table, error) {
	query := fmt.Sprintf("SELECT * FROM %s WHERE source_id=%d", c.table(), sourceID)
	return c.Conn.Query(ctx, query, nil)
}
