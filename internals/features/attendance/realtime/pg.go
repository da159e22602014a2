package realtime

import (
	"context"
	"log"
	"time"

	"github.com/bytedance/sonic"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

/* ===============================
   Cross-instance fan-out over LISTEN/NOTIFY
=================================*/

// PGNotifier publishes through pg_notify; every instance's PGBridge relays the
// notification into its local Hub (including the sender's own).
type PGNotifier struct {
	DB      *gorm.DB
	Channel string
}

func (n *PGNotifier) Publish(ctx context.Context, ev Event) {
	payload, err := sonic.Marshal(ev)
	if err != nil {
		log.Printf("[REALTIME] marshal %s: %v", ev.Type, err)
		return
	}
	if err := n.DB.WithContext(ctx).Exec("SELECT pg_notify(?, ?)", n.Channel, string(payload)).Error; err != nil {
		log.Printf("[REALTIME] pg_notify %s: %v", ev.Type, err)
	}
}

type PGBridge struct {
	listener *pq.Listener
	hub      *Hub
	channel  string
}

func NewPGBridge(dsn, channel string, hub *Hub) (*PGBridge, error) {
	report := func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.Printf("[REALTIME] listener event=%d err=%v", ev, err)
		}
	}
	l := pq.NewListener(dsn, 2*time.Second, time.Minute, report)
	if err := l.Listen(channel); err != nil {
		l.Close()
		return nil, err
	}
	return &PGBridge{listener: l, hub: hub, channel: channel}, nil
}

// Run relays notifications until ctx is done.
func (b *PGBridge) Run(ctx context.Context) {
	defer b.listener.Close()
	ping := time.NewTicker(90 * time.Second)
	defer ping.Stop()

	log.Printf("[REALTIME] listening on %q", b.channel)
	for {
		select {
		case <-ctx.Done():
			return
		case n := <-b.listener.Notify:
			// nil after a reconnect; clients refresh on the next event anyway
			if n == nil {
				continue
			}
			var ev Event
			if err := sonic.UnmarshalString(n.Extra, &ev); err != nil {
				log.Printf("[REALTIME] bad payload on %q: %v", n.Channel, err)
				continue
			}
			b.hub.Publish(ctx, ev)
		case <-ping.C:
			go func() {
				if err := b.listener.Ping(); err != nil {
					log.Printf("[REALTIME] listener ping: %v", err)
				}
			}()
		}
	}
}
