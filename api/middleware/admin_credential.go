package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/miniapp-storefront/api/responses"
	pkgerrors "github.com/angelmondragon/miniapp-storefront/pkg/errors"
	"github.com/angelmondragon/miniapp-storefront/pkg/logger"
)

const basicScheme = "basic "

// MsgCredentialRequired is shown when the admin surface is called without a login.
const MsgCredentialRequired = "Требуется вход администратора."

// AdminCredential extracts the opaque credential from "Authorization: Basic <credential>".
// The credential is forwarded to the backend unchanged and never decoded here.
func AdminCredential(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			credential, ok := basicCredential(r.Header.Get("Authorization"))
			if !ok {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, MsgCredentialRequired))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAdminCredential(r.Context(), credential)))
		})
	}
}

func basicCredential(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if len(header) <= len(basicScheme) || !strings.EqualFold(header[:len(basicScheme)], basicScheme) {
		return "", false
	}
	credential := strings.TrimSpace(header[len(basicScheme):])
	return credential, credential != ""
}
