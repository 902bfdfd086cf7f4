package searchapi

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeSearcher struct {
	numDocs  int32
	postings map[string][]int32
}

func (f *fakeSearcher) NumDocs() int32 { return f.numDocs }
func (f *fakeSearcher) Postings(field, term string) []int32 {
	return f.postings[field+"\x00"+term]
}

func doSearch(t *testing.T, idx Searcher, req SearchRequest) (int, SearchResponse) {
	t.Helper()
	router := NewRouter(idx)
	body, err := json.Marshal(req)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	httpReq := httptest.NewRequest("POST", "/search", bytes.NewReader(body))
	httpReq.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, httpReq)

	var resp SearchResponse
	if w.Code == 200 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w.Code, resp
}

func TestSearchMatchAll(t *testing.T) {
	idx := &fakeSearcher{numDocs: 3}
	code, resp := doSearch(t, idx, SearchRequest{Query: QueryNode{MatchAll: true}, K: 10})
	assert.Equal(t, 200, code)
	assert.Equal(t, 3, resp.TotalHits)
	assert.Len(t, resp.Hits, 3)
}

func TestSearchTermQuery(t *testing.T) {
	idx := &fakeSearcher{
		numDocs: 5,
		postings: map[string][]int32{
			"body\x00hello": {1, 3, 4},
		},
	}
	code, resp := doSearch(t, idx, SearchRequest{Query: QueryNode{Term: &TermQuery{Field: "body", Term: "hello"}}, K: 10})
	assert.Equal(t, 200, code)
	assert.Equal(t, 3, resp.TotalHits)
	var docIDs []int32
	for _, h := range resp.Hits {
		docIDs = append(docIDs, h.DocID)
	}
	assert.ElementsMatch(t, []int32{1, 3, 4}, docIDs)
}

func TestSearchBoolMustIntersects(t *testing.T) {
	idx := &fakeSearcher{
		numDocs: 10,
		postings: map[string][]int32{
			"body\x00alpha": {1, 2, 3, 4},
			"body\x00beta":  {2, 4, 6},
		},
	}
	req := SearchRequest{
		Query: QueryNode{Bool: &BoolQuery{Must: []QueryNode{
			{Term: &TermQuery{Field: "body", Term: "alpha"}},
			{Term: &TermQuery{Field: "body", Term: "beta"}},
		}}},
		K: 10,
	}
	code, resp := doSearch(t, idx, req)
	assert.Equal(t, 200, code)
	var docIDs []int32
	for _, h := range resp.Hits {
		docIDs = append(docIDs, h.DocID)
	}
	assert.ElementsMatch(t, []int32{2, 4}, docIDs)
}

func TestSearchEmptyQueryNodeBadRequest(t *testing.T) {
	idx := &fakeSearcher{numDocs: 1}
	code, _ := doSearch(t, idx, SearchRequest{Query: QueryNode{}, K: 10})
	assert.Equal(t, 400, code)
}
