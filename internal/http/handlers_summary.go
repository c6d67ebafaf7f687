package http

import (
	"net/http"

	"bilancio/internal/log"
)

// handleSummary materializes the month's recurring rules and returns the
// dashboard aggregate. A failed materialization fails the request.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	user, err := userID(r)
	if err != nil {
		ErrorFrom(r.Context(), err, "summary").Write(w)
		return
	}
	month, err := ParseMonthQuery(r, s.now())
	if err != nil {
		ErrorFrom(r.Context(), err, "summary").Write(w)
		return
	}
	sum, err := s.summary.MonthSummary(r.Context(), user, month)
	if err != nil {
		ErrorFrom(r.Context(), err, "summary").Write(w)
		return
	}
	NewJSONResponse().JSON(newSummaryResponse(sum)).Write(w)
}

func (s *Server) handleMaterialize(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	user, err := userID(r)
	if err != nil {
		ErrorFrom(r.Context(), err, "materialize").Write(w)
		return
	}
	month, err := ParseMonthQuery(r, s.now())
	if err != nil {
		ErrorFrom(r.Context(), err, "materialize").Write(w)
		return
	}
	res, err := s.engine.MaterializeMonth(r.Context(), user, month)
	if err != nil {
		ErrorFrom(r.Context(), err, "materialize").Write(w)
		return
	}
	log.NewStructuredLogger(log.FromContext(r.Context())).
		LogMaterialized(r.Context(), user, month.String(), len(res.Created), res.Skipped, res.Evaluated)
	NewJSONResponse().JSON(newMaterializeResponse(res)).Write(w)
}

func (s *Server) handleYields(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	month, err := ParseMonthQuery(r, s.now())
	if err != nil {
		ErrorFrom(r.Context(), err, "yields").Write(w)
		return
	}
	yields, err := s.yields.Yields(r.Context(), month)
	if err != nil {
		ErrorFrom(r.Context(), err, "yields").Write(w)
		return
	}
	NewJSONResponse().JSON(newYieldsResponse(month, yields)).Write(w)
}
