package controllers

import (
	"net/http"

	"golang.org/x/text/language"

	"github.com/angelmondragon/miniapp-storefront/api/responses"
	"github.com/angelmondragon/miniapp-storefront/api/validators"
	"github.com/angelmondragon/miniapp-storefront/pkg/logger"
)

// CatalogList renders the sorted storefront listing. With ?refresh=true the shared
// catalog is refetched first; a failed refresh keeps the previous products and is
// reported in catalog_error.
func CatalogList(lang language.Tag, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine, err := engineFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		refresh, err := validators.ParseQueryBool(r, "refresh")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if refresh {
			if err := engine.RefreshCatalog(r.Context()); err != nil && logg != nil {
				logg.Warn(logg.WithField(r.Context(), "error", err.Error()), "catalog.refresh.failed")
			}
		}
		responses.WriteSuccess(w, newCatalogView(lang, engine))
	}
}
