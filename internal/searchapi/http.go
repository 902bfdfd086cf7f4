// Package searchapi exposes a thin, illustrative JSON transport over the
// Query/Weight/Collector contract of spec.md §6 — not a query-string
// grammar (explicitly out of scope, spec.md §1) but a structured tree the
// caller builds directly. Grounded on the teacher's gin-gonic HTTP surface
// conventions (internal/proxy's REST handlers use the same
// gin.Context/JSON-binding shape).
package searchapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ivxsearch/ivx/internal/log"
	"github.com/ivxsearch/ivx/internal/search"
	"github.com/ivxsearch/ivx/internal/trace"
)

// QueryNode is a structured query tree node: exactly one of Term, Bool, or
// MatchAll should be set.
type QueryNode struct {
	Term     *TermQuery  `json:"term,omitempty"`
	Bool     *BoolQuery  `json:"bool,omitempty"`
	MatchAll bool        `json:"match_all,omitempty"`
}

// TermQuery matches documents containing Term in Field.
type TermQuery struct {
	Field string `json:"field"`
	Term  string `json:"term"`
}

// BoolQuery conjuncts its children; disjunction/negation are intentionally
// left for a future extension rather than speculatively built here.
type BoolQuery struct {
	Must []QueryNode `json:"must"`
}

// SearchRequest is the POST /search body.
type SearchRequest struct {
	Query QueryNode `json:"query"`
	K     int       `json:"k"`
}

// Hit is one scored result.
type Hit struct {
	DocID int32   `json:"docId"`
	Score float64 `json:"score"`
}

// SearchResponse is the POST /search reply.
type SearchResponse struct {
	TotalHits int   `json:"totalHits"`
	Hits      []Hit `json:"hits"`
}

// Searcher is the capability this handler needs from the index: resolve a
// query tree against a live doc count and a term postings lookup.
type Searcher interface {
	NumDocs() int32
	Postings(field, term string) []int32
}

// NewRouter builds a gin.Engine exposing POST /search over idx.
func NewRouter(idx Searcher) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.POST("/search", handleSearch(idx))
	return r
}

func handleSearch(idx Searcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		span, _ := trace.StartSpanFromContext(c.Request.Context())
		defer span.Finish()

		var req SearchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			trace.LogError(span, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.K <= 0 {
			req.K = 10
		}

		scorer, err := buildScorer(idx, req.Query)
		if err != nil {
			trace.LogError(span, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		collector := search.NewTopDocsCollector(req.K)
		if _, err := search.BulkScorer(scorer, collector, search.AllBits{Len: idx.NumDocs()}, 0, search.NoMoreDocs); err != nil {
			trace.LogError(span, err)
			log.Error("search failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		resp := SearchResponse{TotalHits: collector.TotalHits()}
		for _, d := range collector.TopDocs() {
			resp.Hits = append(resp.Hits, Hit{DocID: d.DocID(), Score: d.Score()})
		}
		c.JSON(http.StatusOK, resp)
	}
}
