package signal

import (
	"context"
	"time"

	"github.com/dkeye/confrelay/internal/core"
	"github.com/dkeye/confrelay/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (ctl *ControlWSController) writePump(ctx context.Context, c *WsControlConn) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			c.Close()
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.WriteTimeout)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				c.Close()
				return
			}
			if err := c.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				c.Close()
				return
			}
		}
	}
}

// readPump delivers each message as one record. Only a read error ends it;
// closing the connection unblocks the read.
func (ctl *ControlWSController) readPump(ctx context.Context, id domain.ClientID, c *WsControlConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("client", string(id)).Msg("readPump closing")
		ctl.Handler.Disconnect(id)
		c.Close()
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Str("module", "signal").Str("client", string(id)).Msg("readPump read error")
			}
			return
		}
		ctl.Handler.OnFrame(id, core.Frame(data))
	}
}
