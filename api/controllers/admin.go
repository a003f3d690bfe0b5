package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/miniapp-storefront/api/middleware"
	"github.com/angelmondragon/miniapp-storefront/api/responses"
	"github.com/angelmondragon/miniapp-storefront/api/validators"
	"github.com/angelmondragon/miniapp-storefront/internal/inventory"
	"github.com/angelmondragon/miniapp-storefront/pkg/logger"
)

type loginView struct {
	BackendURL string `json:"backend_url"`
}

type inventoryView struct {
	Rows    []inventory.Row `json:"rows"`
	Saving  bool            `json:"saving"`
	Syncing bool            `json:"syncing"`
}

type syncView struct {
	inventory.SyncResult
	Summary string `json:"summary"`
}

type stockEditRequest struct {
	Stock string `json:"stock" validate:"max=16"`
}

func newInventoryView(ctrl *inventory.Controller) inventoryView {
	return inventoryView{Rows: ctrl.Rows(), Saving: ctrl.Saving(), Syncing: ctrl.Syncing()}
}

// AdminLogin verifies the credential against the backend before the editor opens.
func AdminLogin(backendURL string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine, err := engineFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := engine.Inventory().Login(r.Context(), middleware.AdminCredentialFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, loginView{BackendURL: backendURL})
	}
}

func AdminInventory(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine, err := engineFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newInventoryView(engine.Inventory()))
	}
}

// AdminSetStock records the typed value as a pending edit. Nothing is sent until save.
func AdminSetStock(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine, err := engineFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload stockEditRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ctrl := engine.Inventory()
		if err := ctrl.SetStock(strings.TrimSpace(chi.URLParam(r, "sku")), payload.Stock); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newInventoryView(ctrl))
	}
}

func AdminSave(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine, err := engineFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		res, err := engine.Inventory().Save(r.Context(), middleware.AdminCredentialFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, res)
	}
}

func AdminSync(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine, err := engineFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		res, err := engine.Inventory().Sync(r.Context(), middleware.AdminCredentialFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, syncView{SyncResult: res, Summary: res.Summary()})
	}
}
