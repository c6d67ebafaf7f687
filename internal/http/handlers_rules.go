package http

import (
	"net/http"

	"bilancio/internal/log"
)

// handleRules lists rules on GET and creates one on POST.
func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet, http.MethodPost); resp != nil {
		resp.Write(w)
		return
	}
	user, err := userID(r)
	if err != nil {
		ErrorFrom(r.Context(), err, "rules").Write(w)
		return
	}

	if r.Method == http.MethodGet {
		rules, err := s.rules.List(r.Context(), user)
		if err != nil {
			ErrorFrom(r.Context(), err, "list_rules").Write(w)
			return
		}
		out := make([]ruleResponse, 0, len(rules))
		for _, rule := range rules {
			out = append(out, newRuleResponse(rule))
		}
		NewJSONResponse().JSON(out).Write(w)
		return
	}

	var req ruleRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		ErrorFrom(r.Context(), err, "create_rule").Write(w)
		return
	}
	rule, err := req.toRule()
	if err != nil {
		ErrorFrom(r.Context(), err, "create_rule").Write(w)
		return
	}
	created, err := s.rules.Create(r.Context(), user, rule)
	if err != nil {
		ErrorFrom(r.Context(), err, "create_rule").Write(w)
		return
	}

	log.FromContext(r.Context()).InfoContext(r.Context(), "Recurring rule created",
		log.FieldRuleID, created.ID,
		log.FieldUserID, user,
		log.FieldAmountCents, created.Amount.Cents)
	NewJSONResponse().Status(http.StatusCreated).JSON(newRuleResponse(created)).Write(w)
}

func (s *Server) handleRuleUpdate(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	user, id, err := userAndID(r)
	if err != nil {
		ErrorFrom(r.Context(), err, "update_rule").Write(w)
		return
	}
	var req ruleRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		ErrorFrom(r.Context(), err, "update_rule").Write(w)
		return
	}
	rule, err := req.toRule()
	if err != nil {
		ErrorFrom(r.Context(), err, "update_rule").Write(w)
		return
	}
	rule.ID = id
	updated, err := s.rules.Update(r.Context(), user, rule)
	if err != nil {
		ErrorFrom(r.Context(), err, "update_rule").Write(w)
		return
	}
	NewJSONResponse().JSON(newRuleResponse(updated)).Write(w)
}

func (s *Server) handleRuleDeactivate(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	user, id, err := userAndID(r)
	if err != nil {
		ErrorFrom(r.Context(), err, "deactivate_rule").Write(w)
		return
	}
	rule, err := s.rules.Deactivate(r.Context(), user, id)
	if err != nil {
		ErrorFrom(r.Context(), err, "deactivate_rule").Write(w)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Recurring rule deactivated",
		log.FieldRuleID, id,
		log.FieldUserID, user)
	NewJSONResponse().JSON(newRuleResponse(rule)).Write(w)
}

// handleRuleDelete removes a rule that never produced a transaction.
func (s *Server) handleRuleDelete(w http.ResponseWriter, r *http.Request) {
	if resp := RequireDeleteOrPOST(r); resp != nil {
		resp.Write(w)
		return
	}
	user, id, err := userAndID(r)
	if err != nil {
		ErrorFrom(r.Context(), err, "delete_rule").Write(w)
		return
	}
	if err := s.rules.Delete(r.Context(), user, id); err != nil {
		ErrorFrom(r.Context(), err, "delete_rule").Write(w)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Recurring rule deleted",
		log.FieldRuleID, id,
		log.FieldUserID, user)
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
