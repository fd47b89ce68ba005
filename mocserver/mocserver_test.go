package mocserver

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const recordsJSON = `[
	{"ID": "CDS/P/DSS2/color", "dataproduct_type": "image", "moc_sky_fraction": 1},
	{"ID": "ESAVO/P/JWST/NIRCam", "dataproduct_type": "image", "obs_public": true}
]`

func newTestServer(t *testing.T, body string, status int) (*Client, *url.Values) {
	var lastParams url.Values
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lastParams = r.URL.Query()
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)
	return NewWithBaseURL(server.URL, 5*time.Second), &lastParams
}

func TestFind(t *testing.T) {
	client, lastParams := newTestServer(t, recordsJSON, http.StatusOK)
	records, err := client.Find(context.Background(), &Query{
		Region: &Region{RADeg: 10.68, DecDeg: 41.27, RadiusDeg: 1.5},
		Expr:   "dataproduct_type=image",
		Limit:  100,
	})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "CDS/P/DSS2/color", records[0].ID())
	assert.Equal(t, "image", records[0]["dataproduct_type"])
	// numeric and boolean properties are flattened to strings
	assert.Equal(t, "1", records[0]["moc_sky_fraction"])
	assert.Equal(t, "true", records[1]["obs_public"])

	assert.Equal(t, "record", lastParams.Get("get"))
	assert.Equal(t, "json", lastParams.Get("fmt"))
	assert.Equal(t, "10.68", lastParams.Get("RA"))
	assert.Equal(t, "41.27", lastParams.Get("DEC"))
	assert.Equal(t, "1.5", lastParams.Get("SR"))
	assert.Equal(t, "overlaps", lastParams.Get("intersect"))
	assert.Equal(t, "dataproduct_type=image", lastParams.Get("expr"))
	assert.Equal(t, "100", lastParams.Get("MAXREC"))
}

func TestFindBoxRegion(t *testing.T) {
	client, lastParams := newTestServer(t, "[]", http.StatusOK)
	_, err := client.Find(context.Background(), &Query{
		Region: &Region{RADeg: 180, DecDeg: 0, WidthDeg: 2},
	})
	require.NoError(t, err)
	// a square box; the height defaults to the width
	assert.Equal(t, "Box 180 0 2 2", lastParams.Get("stc"))
}

func TestFindSTCSRegion(t *testing.T) {
	client, lastParams := newTestServer(t, "[]", http.StatusOK)
	_, err := client.Find(context.Background(), &Query{
		Region: &Region{STCS: "Polygon 10 10 20 10 20 20"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Polygon 10 10 20 10 20 20", lastParams.Get("stc"))
}

func TestFindShapelessRegion(t *testing.T) {
	client, _ := newTestServer(t, "[]", http.StatusOK)
	_, err := client.Find(context.Background(), &Query{Region: &Region{}})
	assert.ErrorContains(t, err, "region has no shape")
}

func TestFindWithoutRegion(t *testing.T) {
	client, lastParams := newTestServer(t, recordsJSON, http.StatusOK)
	_, err := client.Find(context.Background(), &Query{Expr: "ID=CDS/*"})
	require.NoError(t, err)
	assert.Empty(t, lastParams.Get("intersect"))
}

func TestFindServiceError(t *testing.T) {
	client, _ := newTestServer(t, "boom", http.StatusInternalServerError)
	_, err := client.Find(context.Background(), &Query{})
	assert.ErrorIs(t, err, ErrQueryError)
}

func TestFindUnreachable(t *testing.T) {
	client := NewWithBaseURL("http://127.0.0.1:1/MocServer/query", 200*time.Millisecond)
	_, err := client.Find(context.Background(), &Query{})
	assert.ErrorIs(t, err, ErrUnreachable)
}

func TestFindMalformedResponse(t *testing.T) {
	client, _ := newTestServer(t, "{not json", http.StatusOK)
	_, err := client.Find(context.Background(), &Query{})
	assert.ErrorContains(t, err, "decoding mocserver response")
}

func TestFindIDs(t *testing.T) {
	client, lastParams := newTestServer(t, `[{"ID": "CDS/P/DSS2/color"}]`, http.StatusOK)
	ids, err := client.FindIDs(context.Background(), &Query{Expr: "dataproduct_type=image"})
	require.NoError(t, err)
	assert.Equal(t, []string{"CDS/P/DSS2/color"}, ids)
	assert.Equal(t, "ID", lastParams.Get("fields"))
}

func TestCaseSensitiveFlag(t *testing.T) {
	client, lastParams := newTestServer(t, "[]", http.StatusOK)
	_, err := client.Find(context.Background(), &Query{CaseSensitive: true})
	require.NoError(t, err)
	assert.Equal(t, "true", lastParams.Get("casesensitive"))
}
