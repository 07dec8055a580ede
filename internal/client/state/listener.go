package state

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/taskboard/taskboard/internal/events"
)

const (
	reconnectMin = time.Second
	reconnectMax = 30 * time.Second
)

// Listener keeps a websocket session open against the server's /ws endpoint
// and feeds every broadcast event into the store. It reconnects with
// exponential backoff until the context is cancelled.
type Listener struct {
	URL    string // ws:// or wss:// endpoint, without the token
	Store  *Store
	Logger *logrus.Logger
}

func NewListener(wsURL string, store *Store, logger *logrus.Logger) *Listener {
	return &Listener{URL: wsURL, Store: store, Logger: logger}
}

// Run blocks until ctx is cancelled.
func (l *Listener) Run(ctx context.Context) {
	backoff := reconnectMin
	for {
		if err := l.session(ctx); err != nil && l.Logger != nil {
			l.Logger.WithError(err).Debug("websocket session ended")
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > reconnectMax {
			backoff = reconnectMax
		}
	}
}

func (l *Listener) session(ctx context.Context) error {
	u, err := url.Parse(l.URL)
	if err != nil {
		return err
	}
	q := u.Query()
	q.Set("token", l.Store.Token())
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	// close the connection when ctx is cancelled so ReadMessage unblocks
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var ev events.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			continue
		}
		l.Store.ApplyEvent(ev)
	}
}
