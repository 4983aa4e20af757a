package tracking

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/maheshrc27/autopost/internal/content"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchPage = `<html><body>
<a class="api_link_all" href="https://other.example.com/1">x</a>
<a class="nav" href="https://blog.example.com/p/1">skip</a>
<a class="link_tit" href="https://other.example.com/2">x</a>
<div><a class="total_tit extra" href="https://blog.example.com/p/1?from=search">mine</a></div>
</body></html>`

func serve(t *testing.T, status int, body string) (*NaverRank, *string) {
	t.Helper()
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query().Get("query")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	n := NewNaverRank(srv.Client(), 0)
	n.SearchURL = srv.URL
	return n, &query
}

func TestNaverRank_Found(t *testing.T) {
	n, query := serve(t, http.StatusOK, searchPage)

	res, err := n.Rank(context.Background(), "서울 카페", "https://blog.example.com/p/1")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Rank)
	assert.Equal(t, StatusFound, res.Status)
	assert.Equal(t, "서울 카페", *query)
}

func TestNaverRank_NotFound(t *testing.T) {
	n, _ := serve(t, http.StatusOK, searchPage)

	res, err := n.Rank(context.Background(), "kw", "https://missing.example.com")
	require.NoError(t, err)
	assert.Equal(t, content.RankNotFound, res.Rank)
	assert.Equal(t, StatusNotFound, res.Status)
}

func TestNaverRank_Blocked(t *testing.T) {
	n, _ := serve(t, http.StatusForbidden, "")

	res, err := n.Rank(context.Background(), "kw", "https://blog.example.com/p/1")
	assert.Error(t, err)
	assert.Equal(t, content.RankError, res.Rank)
	assert.Equal(t, StatusBlocked, res.Status)
}

func TestNaverRank_InvalidInput(t *testing.T) {
	n := NewNaverRank(nil, 0)
	res, err := n.Rank(context.Background(), " ", "https://blog.example.com")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, content.RankError, res.Rank)
}
