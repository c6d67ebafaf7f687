package http

import (
	"net/http"

	"bilancio/internal/log"
)

// handleTransactions lists a month on GET (month is required) and records
// an ordinary transaction on POST.
func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet, http.MethodPost); resp != nil {
		resp.Write(w)
		return
	}
	user, err := userID(r)
	if err != nil {
		ErrorFrom(r.Context(), err, "transactions").Write(w)
		return
	}

	if r.Method == http.MethodGet {
		month, err := RequireMonthQuery(r)
		if err != nil {
			ErrorFrom(r.Context(), err, "list_transactions").Write(w)
			return
		}
		txs, err := s.transactions.ListMonth(r.Context(), user, month)
		if err != nil {
			ErrorFrom(r.Context(), err, "list_transactions").Write(w)
			return
		}
		NewJSONResponse().JSON(newTransactionResponses(txs)).Write(w)
		return
	}

	var req transactionRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		ErrorFrom(r.Context(), err, "create_transaction").Write(w)
		return
	}
	t, err := req.toTransaction()
	if err != nil {
		ErrorFrom(r.Context(), err, "create_transaction").Write(w)
		return
	}
	created, err := s.transactions.Create(r.Context(), user, t)
	if err != nil {
		ErrorFrom(r.Context(), err, "create_transaction").Write(w)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Transaction created",
		log.FieldTransactionID, created.ID,
		log.FieldUserID, user,
		log.FieldAmountCents, created.Amount.Cents)
	NewJSONResponse().Status(http.StatusCreated).JSON(newTransactionResponse(created)).Write(w)
}

func (s *Server) handleTransactionUpdate(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	user, id, err := userAndID(r)
	if err != nil {
		ErrorFrom(r.Context(), err, "update_transaction").Write(w)
		return
	}
	var req transactionRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		ErrorFrom(r.Context(), err, "update_transaction").Write(w)
		return
	}
	t, err := req.toTransaction()
	if err != nil {
		ErrorFrom(r.Context(), err, "update_transaction").Write(w)
		return
	}
	t.ID = id
	updated, err := s.transactions.Update(r.Context(), user, t)
	if err != nil {
		ErrorFrom(r.Context(), err, "update_transaction").Write(w)
		return
	}
	NewJSONResponse().JSON(newTransactionResponse(updated)).Write(w)
}

// handleTransactionPay marks a transaction paid. Paying twice is fine.
func (s *Server) handleTransactionPay(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	user, id, err := userAndID(r)
	if err != nil {
		ErrorFrom(r.Context(), err, "pay_transaction").Write(w)
		return
	}
	t, err := s.transactions.MarkPaid(r.Context(), user, id)
	if err != nil {
		ErrorFrom(r.Context(), err, "pay_transaction").Write(w)
		return
	}
	NewJSONResponse().JSON(newTransactionResponse(t)).Write(w)
}

func (s *Server) handleTransactionDelete(w http.ResponseWriter, r *http.Request) {
	if resp := RequireDeleteOrPOST(r); resp != nil {
		resp.Write(w)
		return
	}
	user, id, err := userAndID(r)
	if err != nil {
		ErrorFrom(r.Context(), err, "delete_transaction").Write(w)
		return
	}
	if err := s.transactions.Delete(r.Context(), user, id); err != nil {
		ErrorFrom(r.Context(), err, "delete_transaction").Write(w)
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Transaction deleted",
		log.FieldTransactionID, id,
		log.FieldUserID, user)
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}
