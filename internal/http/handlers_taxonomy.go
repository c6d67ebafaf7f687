package http

import (
	"net/http"

	"bilancio/internal/log"
)

// activeOrDefault treats an omitted "active" as true.
func activeOrDefault(p *bool) bool {
	return p == nil || *p
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet, http.MethodPost); resp != nil {
		resp.Write(w)
		return
	}
	user, err := userID(r)
	if err != nil {
		ErrorFrom(r.Context(), err, "categories").Write(w)
		return
	}

	if r.Method == http.MethodGet {
		cats, err := s.taxonomy.ListCategories(r.Context(), user)
		if err != nil {
			ErrorFrom(r.Context(), err, "list_categories").Write(w)
			return
		}
		out := make([]categoryResponse, 0, len(cats))
		for _, c := range cats {
			out = append(out, newCategoryResponse(c))
		}
		NewJSONResponse().JSON(out).Write(w)
		return
	}

	var req categoryRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		ErrorFrom(r.Context(), err, "create_category").Write(w)
		return
	}
	c, err := s.taxonomy.CreateCategory(r.Context(), user, sanitizeInput(req.Name), req.Kind)
	if err != nil {
		ErrorFrom(r.Context(), err, "create_category").Write(w)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Category created",
		"category_id", c.ID,
		log.FieldUserID, user)
	NewJSONResponse().Status(http.StatusCreated).JSON(newCategoryResponse(c)).Write(w)
}

func (s *Server) handleCategoryUpdate(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	user, id, err := userAndID(r)
	if err != nil {
		ErrorFrom(r.Context(), err, "update_category").Write(w)
		return
	}
	var req categoryRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		ErrorFrom(r.Context(), err, "update_category").Write(w)
		return
	}
	c, err := s.taxonomy.UpdateCategory(r.Context(), user, id, sanitizeInput(req.Name), activeOrDefault(req.Active))
	if err != nil {
		ErrorFrom(r.Context(), err, "update_category").Write(w)
		return
	}
	NewJSONResponse().JSON(newCategoryResponse(c)).Write(w)
}

func (s *Server) handleCategoryDelete(w http.ResponseWriter, r *http.Request) {
	if resp := RequireDeleteOrPOST(r); resp != nil {
		resp.Write(w)
		return
	}
	user, id, err := userAndID(r)
	if err != nil {
		ErrorFrom(r.Context(), err, "delete_category").Write(w)
		return
	}
	if err := s.taxonomy.DeleteCategory(r.Context(), user, id); err != nil {
		ErrorFrom(r.Context(), err, "delete_category").Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) handlePaymentMethods(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet, http.MethodPost); resp != nil {
		resp.Write(w)
		return
	}
	user, err := userID(r)
	if err != nil {
		ErrorFrom(r.Context(), err, "payment_methods").Write(w)
		return
	}

	if r.Method == http.MethodGet {
		methods, err := s.taxonomy.ListPaymentMethods(r.Context(), user)
		if err != nil {
			ErrorFrom(r.Context(), err, "list_payment_methods").Write(w)
			return
		}
		out := make([]paymentMethodResponse, 0, len(methods))
		for _, p := range methods {
			out = append(out, newPaymentMethodResponse(p))
		}
		NewJSONResponse().JSON(out).Write(w)
		return
	}

	var req paymentMethodRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		ErrorFrom(r.Context(), err, "create_payment_method").Write(w)
		return
	}
	p, err := s.taxonomy.CreatePaymentMethod(r.Context(), user, sanitizeInput(req.Name))
	if err != nil {
		ErrorFrom(r.Context(), err, "create_payment_method").Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusCreated).JSON(newPaymentMethodResponse(p)).Write(w)
}

func (s *Server) handlePaymentMethodUpdate(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	user, id, err := userAndID(r)
	if err != nil {
		ErrorFrom(r.Context(), err, "update_payment_method").Write(w)
		return
	}
	var req paymentMethodRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		ErrorFrom(r.Context(), err, "update_payment_method").Write(w)
		return
	}
	p, err := s.taxonomy.UpdatePaymentMethod(r.Context(), user, id, sanitizeInput(req.Name), activeOrDefault(req.Active))
	if err != nil {
		ErrorFrom(r.Context(), err, "update_payment_method").Write(w)
		return
	}
	NewJSONResponse().JSON(newPaymentMethodResponse(p)).Write(w)
}

func (s *Server) handlePaymentMethodDelete(w http.ResponseWriter, r *http.Request) {
	if resp := RequireDeleteOrPOST(r); resp != nil {
		resp.Write(w)
		return
	}
	user, id, err := userAndID(r)
	if err != nil {
		ErrorFrom(r.Context(), err, "delete_payment_method").Write(w)
		return
	}
	if err := s.taxonomy.DeletePaymentMethod(r.Context(), user, id); err != nil {
		ErrorFrom(r.Context(), err, "delete_payment_method").Write(w)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
