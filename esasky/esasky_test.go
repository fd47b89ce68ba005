package esasky

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gotap "github.com/astropy/astroquery-sub004"
)

const resultDoc = `<?xml version="1.0"?>
<VOTABLE><RESOURCE>
<INFO name="QUERY_STATUS" value="OK"/>
<TABLE>
<FIELD name="tap_table" datatype="char"/>
<FIELD name="ra_col" datatype="char"/>
<FIELD name="dec_col" datatype="char"/>
<DATA><TABLEDATA>
<TR><TD>gaiadr3.gaia_source</TD><TD>ra</TD><TD>dec</TD></TR>
</TABLEDATA></DATA>
</TABLE></RESOURCE></VOTABLE>`

func newTestService(t *testing.T) (*Client, *string) {
	var lastQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		lastQuery = r.PostForm.Get("QUERY")
		fmt.Fprint(w, resultDoc)
	}))
	t.Cleanup(server.Close)

	u, err := url.Parse(server.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	conn, err := gotap.OpenWithConfig(&gotap.Config{
		Protocol:      "http",
		Host:          u.Hostname(),
		Port:          port,
		ServerContext: DefaultServerContext,
	})
	require.NoError(t, err)
	return NewWithConn(conn), &lastQuery
}

func TestListCatalogs(t *testing.T) {
	client, lastQuery := newTestService(t)
	table, err := client.ListCatalogs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, table.NumRows())
	assert.Equal(t, "SELECT * FROM alerts.mv_v_catalog", *lastQuery)
}

func TestListObservationMaps(t *testing.T) {
	client, lastQuery := newTestService(t)
	_, err := client.ListObservationMaps(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "SELECT * FROM alerts.mv_v_observation", *lastQuery)
}

func TestConeSearchCatalog(t *testing.T) {
	client, lastQuery := newTestService(t)
	_, err := client.ConeSearchCatalog(context.Background(),
		"gaiadr3.gaia_source", "ra", "dec",
		gotap.SkyCoord{RA: 10.68, Dec: 41.27}, 0.1, nil)
	require.NoError(t, err)
	assert.Contains(t, *lastQuery, "FROM gaiadr3.gaia_source")
	assert.Contains(t, *lastQuery, "CIRCLE('ICRS',10.68,41.27,0.1)")
}

func TestConeSearchCatalogEmptyTable(t *testing.T) {
	client, _ := newTestService(t)
	_, err := client.ConeSearchCatalog(context.Background(),
		"  ", "ra", "dec", gotap.SkyCoord{}, 0.1, nil)
	assert.ErrorContains(t, err, "catalog table name is empty")
}

func TestMapCount(t *testing.T) {
	client, lastQuery := newTestService(t)
	_, err := client.MapCount(context.Background(), "observations.mv_xmm", 4)
	require.NoError(t, err)
	assert.Equal(t, "SELECT count_norder4 AS n FROM observations.mv_xmm", *lastQuery)
}

func TestMapCountNorderValidation(t *testing.T) {
	client, _ := newTestService(t)
	for _, norder := range []int{2, 7, -1} {
		_, err := client.MapCount(context.Background(), "observations.mv_xmm", norder)
		assert.ErrorContains(t, err, "norder", strconv.Itoa(norder))
	}
}
