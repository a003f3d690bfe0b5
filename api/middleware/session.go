package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/miniapp-storefront/api/responses"
	"github.com/angelmondragon/miniapp-storefront/internal/contact"
	"github.com/angelmondragon/miniapp-storefront/internal/storefront"
	"github.com/angelmondragon/miniapp-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/miniapp-storefront/pkg/errors"
	"github.com/angelmondragon/miniapp-storefront/pkg/logger"
	"github.com/angelmondragon/miniapp-storefront/pkg/telegram"
)

const (
	sessionIDHeader   = "X-Session-Id"
	initDataHeader    = "X-Telegram-Init-Data"
	maxSessionIDBytes = 128
)

// EngineSource hands out the engine of a session.
type EngineSource interface {
	GetOrCreate(sessionID string, mode enums.Mode, identity contact.IdentityProvider) (*storefront.Engine, bool, error)
}

// Session resolves the caller's engine for mode and attaches it to the request.
// Sessions without an X-Session-Id get a new id, echoed in the response header.
// Host init data is parsed only when the engine is first built.
func Session(sessions EngineSource, mode enums.Mode, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			sessionID := strings.TrimSpace(r.Header.Get(sessionIDHeader))
			if sessionID == "" || len(sessionID) > maxSessionIDBytes {
				sessionID = uuid.NewString()
			}
			if logg != nil {
				ctx = logg.WithSessionID(ctx, sessionID)
				ctx = logg.WithMode(ctx, mode.String())
			}

			raw := r.Header.Get(initDataHeader)
			identity := contact.IdentityFunc(func() (*contact.Identity, bool) {
				return telegram.ParseInitData(raw).Identity()
			})

			engine, created, err := sessions.GetOrCreate(sessionID, mode, identity)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "session unavailable"))
				return
			}
			if created && logg != nil {
				logg.Info(logg.WithField(ctx, "identified", engine.Identity() != nil), "session.created")
			}

			w.Header().Set(sessionIDHeader, sessionID)
			ctx = WithSessionID(ctx, sessionID)
			ctx = WithEngine(ctx, engine)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
