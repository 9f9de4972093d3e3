package handlers

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	httpContracts "github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/http"
	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/insights"
	"github.com/MehKh-Analysis/Beginner-stock-AI-agent/internal/market"
)

const watchWriteTimeout = 10 * time.Second

// localOrigin accepts same-machine browsers and non-browser clients
func localOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1" || strings.EqualFold(u.Host, r.Host)
}

// Watch handles GET /api/v1/watch/{ticker}?interval=. It upgrades to a
// websocket and pushes the ticker's key metrics, refreshed from the
// provider every interval, until the client disconnects.
func (h *Handlers) Watch(w http.ResponseWriter, r *http.Request) {
	ticker, err := market.NormalizeTicker(mux.Vars(r)["ticker"])
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	interval := h.opts.WatchInterval
	if s := r.URL.Query().Get("interval"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d < time.Second {
			h.writeError(w, r, http.StatusBadRequest, "invalid_interval", "interval must be a duration of at least 1s")
			return
		}
		interval = d
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already answered the client
		log.Debug().Err(err).Str("ticker", ticker).Msg("Websocket upgrade failed")
		return
	}

	if h.opts.OnWatch != nil {
		h.opts.OnWatch(1)
		defer h.opts.OnWatch(-1)
	}
	log.Info().Str("ticker", ticker).Dur("interval", interval).Str("request_id", RequestID(r.Context())).Msg("Watch stream opened")

	wt := &watcher{conn: conn, svc: h.svc, ticker: ticker, interval: interval, quit: h.quit}
	wt.run(context.Background())

	log.Info().Str("ticker", ticker).Msg("Watch stream closed")
}

type watcher struct {
	conn     *websocket.Conn
	svc      Service
	ticker   string
	interval time.Duration
	quit     <-chan struct{}
}

func (wt *watcher) run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// the read pump notices client disconnects and discards client frames
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer cancel()
		for {
			if _, _, err := wt.conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
	defer func() {
		wt.conn.Close()
		<-done
	}()

	snap, err := wt.svc.Quote(ctx, wt.ticker)
	if err := wt.send(snap, err); err != nil {
		return
	}

	tick := time.NewTicker(wt.interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-wt.quit:
			wt.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(time.Second))
			return
		case <-tick.C:
			snap, err := wt.svc.Refresh(ctx, wt.ticker)
			if ctx.Err() != nil {
				return
			}
			if err := wt.send(snap, err); err != nil {
				return
			}
		}
	}
}

func (wt *watcher) send(snap *insights.Snapshot, fetchErr error) error {
	msg := httpContracts.WatchMessage{
		Type:      httpContracts.WatchQuote,
		Ticker:    wt.ticker,
		Quote:     snap,
		Timestamp: time.Now().UTC(),
	}
	if fetchErr != nil {
		msg.Type = httpContracts.WatchError
		msg.Quote = nil
		msg.Error = fetchErr.Error()
	}
	wt.conn.SetWriteDeadline(time.Now().Add(watchWriteTimeout))
	if err := wt.conn.WriteJSON(msg); err != nil {
		log.Debug().Err(err).Str("ticker", wt.ticker).Msg("Watch write failed")
		return err
	}
	return nil
}
