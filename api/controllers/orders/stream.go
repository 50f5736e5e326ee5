package orders

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/angelmondragon/droppoint-backend/api/middleware"
	"github.com/angelmondragon/droppoint-backend/api/responses"
	"github.com/angelmondragon/droppoint-backend/internal/notifications"
	"github.com/angelmondragon/droppoint-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/droppoint-backend/pkg/errors"
	"github.com/angelmondragon/droppoint-backend/pkg/logger"
	"github.com/angelmondragon/droppoint-backend/pkg/outbox/payloads"
)

const defaultHeartbeat = 25 * time.Second

type liveHub interface {
	Subscribe(userID uuid.UUID, role enums.ActorRole) (*notifications.Session, func())
}

type streamSignals struct {
	OrderEvent *payloads.OrderChangedEvent `json:"orderEvent,omitempty"`
	Effect     notifications.EffectKind    `json:"effect,omitempty"`
	Heartbeat  *time.Time                  `json:"heartbeatAt,omitempty"`
}

// Stream pushes live order changes to the caller over SSE. Customers receive
// their own orders only; operators receive every order. A state the session
// already pushed is not pushed again.
func Stream(hub liveHub, heartbeat time.Duration, logg *logger.Logger) http.HandlerFunc {
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeat
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if hub == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "live stream unavailable"))
			return
		}

		userID, role, err := middleware.CallerFromContext(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, unsubscribe := hub.Subscribe(userID, role)
		defer unsubscribe()

		sse := datastar.NewSSE(w, r)
		if logg != nil {
			logg.Info(r.Context(), "order stream opened")
		}

		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()
		pushed := notifications.NewReducer()

		for {
			select {
			case <-r.Context().Done():
				return
			case event, ok := <-session.Events():
				if !ok {
					return
				}
				effect, fresh := pushed.Observe(event)
				if !fresh {
					continue
				}
				if err := sse.MarshalAndPatchSignals(streamSignals{OrderEvent: &event, Effect: effect.Kind}); err != nil {
					return
				}
			case tick := <-ticker.C:
				at := tick.UTC()
				if err := sse.MarshalAndPatchSignals(streamSignals{Heartbeat: &at}); err != nil {
					return
				}
			}
		}
	}
}
