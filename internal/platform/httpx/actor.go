package httpx

import (
	"net/http"

	"github.com/rgi-trading/procure/internal/shared"
)

// Actor extracts the authenticated actor from the request context. When the
// identity middleware did not attach one, a 401 problem is written and ok
// is false.
func Actor(w http.ResponseWriter, r *http.Request) (shared.Actor, bool) {
	actor := shared.ActorFromContext(r.Context())
	if actor.ID == 0 || !actor.Role.IsValid() {
		Problem(w, http.StatusUnauthorized, "Unauthorized", "missing or invalid actor identity")
		return shared.Actor{}, false
	}
	return actor, true
}
