package systembundle

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"onlab_backend/app/core"
	"onlab_backend/app/websocket"
)

func (c *SystemController) GetWSTicketHandler(w http.ResponseWriter, r *http.Request) {
	ok, user := c.GetUser(w, r)
	if !ok {
		return
	}
	ticket := c.hub.IssueTicket(*user)
	c.SendJSON(w, &ticket, http.StatusOK)
}

// HandleConnections upgrades a request carrying a valid ticket. Tickets are
// single use.
func (c *SystemController) HandleConnections(w http.ResponseWriter, r *http.Request) {
	user, err := c.hub.ConsumeTicket(mux.Vars(r)["ticket"])
	if errors.Is(err, websocket.ErrTicketInvalid) {
		c.HandleUnauthorizedError(err, w)
		return
	}
	if c.HandleError(err, w) {
		return
	}

	if err := c.hub.Serve(w, r, user.ID); err != nil {
		// the upgrader has already answered the request
		core.Logger.Info("websocket upgrade failed", zap.Uint("user_id", user.ID), zap.Error(err))
	}
}
