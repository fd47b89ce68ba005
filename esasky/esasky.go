// Package esasky is a thin facade over the ESASky TAP service: listing
// the published catalog and observation maps and cone-searching them.
package esasky

import (
	"context"
	"fmt"
	"strings"

	gotap "github.com/astropy/astroquery-sub004"
)

// Connection defaults for ESASky.
const (
	DefaultHost          = "sky.esa.int"
	DefaultServerContext = "esasky-tap"

	catalogsTable     = "alerts.mv_v_catalog"
	observationsTable = "alerts.mv_v_observation"
)

// Client queries ESASky.
type Client struct {
	Conn *gotap.Conn
}

// New opens a connection to the public ESASky service.
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

// ListCatalogs lists the catalog maps ESASky publishes.
func (c *Client) ListCatalogs(ctx context.Context) (*gotap.Table, error) {
	query := fmt.Sprintf("SELECT * FROM %s", catalogsTable)
	return c.Conn.Query(ctx, query, nil)
}

// ListObservationMaps lists the observation maps ESASky publishes.
func (c *Client) ListObservationMaps(ctx context.Context) (*gotap.Table, error) {
	query := fmt.Sprintf("SELECT * FROM %s", observationsTable)
	return c.Conn.Query(ctx, query, nil)
}

// ConeSearchCatalog cone-searches one published catalog table. The
// catalog's tap table, ra and dec column names come from the catalog map
// listing.
func (c *Client) ConeSearchCatalog(ctx context.Context, tapTable, raCol, decCol string, center gotap.SkyCoord, radiusDeg float64, opts *gotap.QueryOptions) (*gotap.Table, error) {
	if strings.TrimSpace(tapTable) == "" {
		return nil, fmt.Errorf("catalog table name is empty")
	}
	query := gotap.ConeSearchADQL(tapTable, raCol, decCol, nil, center, radiusDeg)
	return c.Conn.Query(ctx, query, opts)
}

// MapCount returns the row counts of a published map inside a cone. The
// service maintains per-map counts at HEALPix norder 3..6 granularity;
// the norder argument selects the granularity column.
func (c *Client) MapCount(ctx context.Context, tapTable string, norder int) (*gotap.Table, error) {
	if norder < 3 || norder > 6 {
		return nil, fmt.Errorf("norder must be between 3 and 6, got %d", norder)
	}
	query := fmt.Sprintf("SELECT count_norder%d AS n FROM %s", norder, tapTable)
	return c.Conn.Query(ctx, query, nil)
}
