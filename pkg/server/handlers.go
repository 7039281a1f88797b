package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/regraft/regraft/pkg/attrs"
	"github.com/regraft/regraft/pkg/cache"
	rerr "github.com/regraft/regraft/pkg/errors"
	"github.com/regraft/regraft/pkg/graph"
	"github.com/regraft/regraft/pkg/hierarchy"
	"github.com/regraft/regraft/pkg/homomorphism"
	"github.com/regraft/regraft/pkg/observability"
	"github.com/regraft/regraft/pkg/rule"
)

// =============================================================================
// Responses
// =============================================================================

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorResponse{
		Error: rerr.UserMessage(err),
		Code:  string(rerr.GetCode(err)),
	})
}

// statusFor maps library error codes to HTTP statuses. Unknown identifiers
// become 404, validation failures 400, everything else 500.
func statusFor(err error) int {
	switch rerr.GetCode(err) {
	case rerr.ErrCodeUnknownID, rerr.ErrCodeMissingNode, rerr.ErrCodeMissingEdge,
		rerr.ErrCodeUnknownRelation:
		return http.StatusNotFound
	case rerr.ErrCodeInternal:
		return http.StatusInternalServerError
	case "":
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// =============================================================================
// Read Endpoints
// =============================================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleHierarchy(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	js, err := hierarchy.ToJSON(s.h)
	s.mu.RUnlock()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, js)
}

func (s *Server) handleGraphs(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	ids := s.h.Graphs()
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, map[string][]string{"graphs": ids})
}

type graphResponse struct {
	ID    string     `json:"id"`
	Graph graph.JSON `json:"graph"`
	Attrs attrs.Dict `json:"attrs,omitempty"`
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.RLock()
	g, err := s.h.Graph(id)
	var a attrs.Dict
	if err == nil {
		a, _ = s.h.GraphAttrs(id)
	}
	s.mu.RUnlock()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, graphResponse{ID: id, Graph: graph.ToJSON(g), Attrs: a})
}

func (s *Server) handleNodeType(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	node := chi.URLParam(r, "node")

	s.mu.RLock()
	types, err := s.h.NodeType(id, node)
	s.mu.RUnlock()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]map[string]string{"types": types})
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	ids := s.h.Rules()
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, map[string][]string{"rules": ids})
}

type ruleResponse struct {
	ID   string    `json:"id"`
	Rule rule.JSON `json:"rule"`
}

func (s *Server) handleRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.RLock()
	rl, err := s.h.Rule(id)
	s.mu.RUnlock()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ruleResponse{ID: id, Rule: rule.ToJSON(rl)})
}

type typingResponse struct {
	From  string               `json:"from"`
	To    string               `json:"to"`
	M     homomorphism.Mapping `json:"mapping"`
	Total bool                 `json:"total"`
}

func (s *Server) handleTypings(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	edges := s.h.Typings()
	out := make([]typingResponse, 0, len(edges))
	for _, e := range edges {
		t, err := s.h.GetTyping(e.From, e.To)
		if err != nil {
			continue
		}
		out = append(out, typingResponse{From: e.From, To: e.To, M: t.M, Total: t.Total})
	}
	s.mu.RUnlock()
	writeJSON(w, http.StatusOK, map[string][]typingResponse{"typings": out})
}

// =============================================================================
// Matching
// =============================================================================

type matchRequest struct {
	Pattern graph.JSON                      `json:"pattern"`
	Typing  map[string]homomorphism.Mapping `json:"typing,omitempty"`
}

type matchResponse struct {
	Matches []homomorphism.Mapping `json:"matches"`
	Count   int                    `json:"count"`
	Cached  bool                   `json:"cached"`
}

func (s *Server) handleMatches(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, rerr.Wrap(rerr.ErrCodeInvalidInput, err, "invalid request body"))
		return
	}
	pattern, err := graph.FromJSON(req.Pattern)
	if err != nil {
		writeError(w, err)
		return
	}
	if s.maxPatternNodes > 0 && pattern.Order() > s.maxPatternNodes {
		writeError(w, rerr.New(rerr.ErrCodeInvalidInput,
			"pattern has %d nodes, limit is %d", pattern.Order(), s.maxPatternNodes))
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	g, err := s.h.Graph(id)
	if err != nil {
		writeError(w, err)
		return
	}

	observability.Match().OnMatchStart(ctx, id, pattern.Order())
	start := time.Now()

	var opts cache.MatchKeyOpts
	var graphHash, patternHash string
	if s.matches != nil {
		graphHash = cache.GraphHash(g)
		patternHash = cache.GraphHash(pattern)
		opts = cache.MatchKeyOpts{TypingHash: cache.TypingHash(req.Typing)}
		if cached, hit := s.matches.Get(ctx, graphHash, patternHash, opts); hit {
			observability.Cache().OnCacheHit(ctx, "match")
			observability.Match().OnMatchComplete(ctx, id, len(cached), time.Since(start), nil)
			writeJSON(w, http.StatusOK, matchResponse{Matches: cached, Count: len(cached), Cached: true})
			return
		}
		observability.Cache().OnCacheMiss(ctx, "match")
	}

	matches, err := s.h.FindMatching(id, pattern, req.Typing)
	observability.Match().OnMatchComplete(ctx, id, len(matches), time.Since(start), err)
	if err != nil {
		writeError(w, err)
		return
	}
	if matches == nil {
		matches = []homomorphism.Mapping{}
	}

	if s.matches != nil {
		if err := s.matches.Put(ctx, graphHash, patternHash, opts, matches); err != nil {
			s.logger.Warn("cannot cache match results", "err", err)
		} else {
			observability.Cache().OnCacheSet(ctx, "match", len(matches))
		}
	}

	writeJSON(w, http.StatusOK, matchResponse{Matches: matches, Count: len(matches)})
}
