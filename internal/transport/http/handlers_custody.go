package httptransport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"watchpost/internal/custody"
	id "watchpost/pkg/domain"
	dErrors "watchpost/pkg/domain-errors"
)

// CustodyHandler exposes the weapon chain-of-custody reads.
type CustodyHandler struct {
	ledger *custody.Ledger
}

func NewCustodyHandler(ledger *custody.Ledger) *CustodyHandler {
	return &CustodyHandler{ledger: ledger}
}

func (h *CustodyHandler) handleWeaponHistory(w http.ResponseWriter, r *http.Request) {
	weaponID, err := id.ParseWeaponID(chi.URLParam(r, "weaponID"))
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid weapon id"))
		return
	}

	entries, err := h.ledger.History(r.Context(), weaponID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": toLogEntries(entries)})
}
