package realtime

import (
	"context"
	"time"

	"github.com/lib/pq"

	"github.com/dukasoft/duka-pos/internal/obs"
)

// Listener bridges Postgres NOTIFY events into the local hub, so that writes
// issued by other service instances still trigger this instance's live feeds.
type Listener struct {
	pql *pq.Listener
	hub *Hub
}

// NewListener connects a pq listener for every hub topic. minInterval and
// maxInterval bound the reconnection backoff.
func NewListener(dsn string, hub *Hub, minInterval, maxInterval time.Duration) (*Listener, error) {
	pql := pq.NewListener(dsn, minInterval, maxInterval, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			obs.Logger.Warn("pq listener event", "event", int(ev), "error", err)
		}
	})
	for _, topic := range []Topic{TopicCatalog, TopicSales} {
		if err := pql.Listen(string(topic)); err != nil {
			pql.Close()
			return nil, err
		}
	}
	return &Listener{pql: pql, hub: hub}, nil
}

// Run forwards notifications until ctx is done. Periodic pings keep the
// connection honest across idle stretches; a reconnect is followed by a
// synthetic notify on every topic so mirrors reload anything missed.
func (l *Listener) Run(ctx context.Context) {
	defer l.pql.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-l.pql.Notify:
			if n == nil {
				// Connection was re-established; state may have moved.
				l.hub.Notify(TopicCatalog)
				l.hub.Notify(TopicSales)
				continue
			}
			l.hub.Notify(Topic(n.Channel))
		case <-time.After(90 * time.Second):
			if err := l.pql.Ping(); err != nil {
				obs.Logger.Warn("pq listener ping failed", "error", err)
			}
		}
	}
}
