// Package mocserver is a client for the CDS MOCServer: it finds the
// datasets whose Multi-Order Coverage map intersects a sky region. The
// MOCServer is a plain HTTP/JSON service, not a TAP endpoint, so this
// package carries its own small client.
package mocserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is the public MOCServer instance operated by CDS.
const DefaultBaseURL = "http://alasky.unistra.fr/MocServer/query"

// Sentinel errors for MOCServer failures.
var (
	ErrUnreachable = errors.New("mocserver unreachable")
	ErrQueryError  = errors.New("mocserver query error")
)

// Record is one dataset description. The MOCServer's record schema is
// open-ended, so properties are kept as a flat map.
type Record map[string]string

// ID returns the dataset identifier property.
func (r Record) ID() string {
	return r["ID"]
}

// Region is the sky region constraint of a query. Exactly one shape is
// used: a cone when RadiusDeg > 0, otherwise a box when WidthDeg > 0,
// otherwise an explicit STC-S string.
type Region struct {
	RADeg     float64
	DecDeg    float64
	RadiusDeg float64
	WidthDeg  float64
	HeightDeg float64
	STCS      string
}

// Query narrows the dataset listing.
type Query struct {
	Region     *Region
	Expr       string   // MOCServer property expression, e.g. dataproduct_type=image
	Fields     []string // record properties to return; empty returns all
	Limit      int
	CaseSensitive bool
}

// Client queries one MOCServer instance.
type Client struct {
	baseURL string
	client  *http.Client
}

// New returns a client for the default public instance.
func New() *Client {
	return NewWithBaseURL(DefaultBaseURL, 60*time.Second)
}

// NewWithBaseURL returns a client for a specific instance.
func NewWithBaseURL(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (q *Query) values() (url.Values, error) {
	params := url.Values{}
	params.Set("get", "record")
	params.Set("fmt", "json")
	if q.Region != nil {
		r := q.Region
		switch {
		case r.STCS != "":
			params.Set("stc", r.STCS)
		case r.RadiusDeg > 0:
			params.Set("RA", formatDeg(r.RADeg))
			params.Set("DEC", formatDeg(r.DecDeg))
			params.Set("SR", formatDeg(r.RadiusDeg))
		case r.WidthDeg > 0:
			height := r.HeightDeg
			if height == 0 {
				height = r.WidthDeg
			}
			stcs := fmt.Sprintf("Box %s %s %s %s",
				formatDeg(r.RADeg), formatDeg(r.DecDeg),
				formatDeg(r.WidthDeg), formatDeg(height))
			params.Set("stc", stcs)
		default:
			return nil, fmt.Errorf("region has no shape: set STCS, RadiusDeg or WidthDeg")
		}
		params.Set("intersect", "overlaps")
	}
	if q.Expr != "" {
		params.Set("expr", q.Expr)
	}
	if len(q.Fields) > 0 {
		params.Set("fields", strings.Join(q.Fields, ","))
	}
	if q.Limit > 0 {
		params.Set("MAXREC", strconv.Itoa(q.Limit))
	}
	if q.CaseSensitive {
		params.Set("casesensitive", "true")
	}
	return params, nil
}

// Find lists the datasets matching the query.
func (c *Client) Find(ctx context.Context, query *Query) ([]Record, error) {
	params, err := query.values()
	if err != nil {
		return nil, err
	}
	u := fmt.Sprintf("%s?%s", c.baseURL, params.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrQueryError, resp.StatusCode)
	}

	// records arrive as a JSON array of flat property objects with mixed
	// string/number values
	var raw []map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding mocserver response: %w", err)
	}
	records := make([]Record, 0, len(raw))
	for _, props := range raw {
		record := Record{}
		for k, v := range props {
			switch value := v.(type) {
			case string:
				record[k] = value
			case float64:
				record[k] = strconv.FormatFloat(value, 'f', -1, 64)
			case bool:
				record[k] = strconv.FormatBool(value)
			default:
				record[k] = fmt.Sprintf("%v", value)
			}
		}
		records = append(records, record)
	}
	return records, nil
}

// FindIDs lists only the identifiers of the matching datasets.
func (c *Client) FindIDs(ctx context.Context, query *Query) ([]string, error) {
	q := *query
	q.Fields = []string{"ID"}
	records, err := c.Find(ctx, &q)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID())
	}
	return ids, nil
}

func formatDeg(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
