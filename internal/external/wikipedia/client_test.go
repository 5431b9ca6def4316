package wikipedia

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/rsrank/internal/contracts"
	"github.com/wonny/rsrank/pkg/config"
	"github.com/wonny/rsrank/pkg/httputil"
	"github.com/wonny/rsrank/pkg/logger"
)

const sp500HTML = `<html><body>
<table class="wikitable sortable" id="constituents">
<tbody>
<tr><th>Symbol</th><th>Security</th><th>GICS Sector</th><th>GICS Sub-Industry</th><th>Headquarters Location</th></tr>
<tr><td><a href="/x">MMM</a></td><td>3M</td><td>Industrials</td><td>Industrial Conglomerates</td><td>Saint Paul, Minnesota</td></tr>
<tr><td><a href="/x">BRK.B</a></td><td>Berkshire Hathaway</td><td>Financials</td><td>Multi-Sector Holdings</td><td>Omaha, Nebraska</td></tr>
<tr><td>AAPL</td><td>Apple Inc.</td><td>Information Technology</td><td>Technology Hardware</td><td>Cupertino, California</td></tr>
<tr><td>AAPL</td><td>Apple Inc.</td><td>Information Technology</td><td>Technology Hardware</td><td>Cupertino, California</td></tr>
</tbody>
</table>
<table class="wikitable"><tr><th>Date</th><th>Added</th></tr><tr><td>2024</td><td>X</td></tr></table>
</body></html>`

// Nasdaq-100 article: 구성종목 표 앞에 다른 wikitable 이 있음
const nq100HTML = `<html><body>
<table class="wikitable"><tr><th>Year</th><th>Closing level</th></tr><tr><td>2023</td><td>16825</td></tr></table>
<table class="wikitable sortable" id="constituents">
<tr><th>Company</th><th>Ticker</th><th>GICS Sector</th><th>GICS Sub-Industry</th></tr>
<tr><td>Adobe Inc.</td><td>ADBE</td><td>Information Technology</td><td>Application Software</td></tr>
<tr><td>Nvidia</td><td>NVDA</td><td>Information Technology</td><td>Semiconductors</td></tr>
</table>
</body></html>`

func TestParseConstituents_SP500(t *testing.T) {
	members, err := ParseConstituents(strings.NewReader(sp500HTML), contracts.IndexSP500)
	require.NoError(t, err)

	require.Len(t, members, 3)
	assert.Equal(t, contracts.Constituent{
		Symbol:   "AAPL",
		Name:     "Apple Inc.",
		Sector:   "Information Technology",
		Industry: "Technology Hardware",
		Index:    contracts.IndexSP500,
	}, members[0])
	assert.Equal(t, "BRK-B", members[1].Symbol)
	assert.Equal(t, "MMM", members[2].Symbol)
}

func TestParseConstituents_TickerColumn(t *testing.T) {
	members, err := ParseConstituents(strings.NewReader(nq100HTML), contracts.IndexNQ100)
	require.NoError(t, err)

	require.Len(t, members, 2)
	assert.Equal(t, "ADBE", members[0].Symbol)
	assert.Equal(t, "Adobe Inc.", members[0].Name)
	assert.Equal(t, "Semiconductors", members[1].Industry)
}

func TestParseConstituents_NoTable(t *testing.T) {
	_, err := ParseConstituents(strings.NewReader(`<html><p>Russell 2000</p></html>`), contracts.IndexR2000)
	assert.Error(t, err)
}

func TestClient_Constituents(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wiki/List_of_S&P_500_companies", r.URL.Path)
		assert.Contains(t, r.Header.Get("User-Agent"), "Mozilla")
		w.Write([]byte(sp500HTML))
	}))
	defer srv.Close()

	client := NewClient(httputil.New(logger.Nop()).DisableRetry(), config.WikipediaConfig{BaseURL: srv.URL + "/"}, logger.Nop())

	members, err := client.Constituents(context.Background(), contracts.IndexSP500)
	require.NoError(t, err)
	assert.Len(t, members, 3)
}
