package watcher

import (
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// AppealStatusChannel is the NOTIFY channel written by the appeals table trigger.
const AppealStatusChannel = "appeal_status_changed"

var ErrFeedLost = errors.New("change feed connection lost")

// Feed is a stream of change notifications.
type Feed interface {
	Notifications() <-chan *pq.Notification
	// Errors reports the feed becoming unusable.
	Errors() <-chan error
	Close() error
}

// PQFeed listens on a Postgres NOTIFY channel.
type PQFeed struct {
	listener *pq.Listener
	errs     chan error
}

func NewPQFeed(dbURL, channel string, log *zap.Logger) (*PQFeed, error) {
	f := &PQFeed{errs: make(chan error, 1)}

	f.listener = pq.NewListener(dbURL, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventConnected:
			log.Debug("Change feed connected", zap.String("channel", channel))
		case pq.ListenerEventDisconnected, pq.ListenerEventConnectionAttemptFailed:
			lost := ErrFeedLost
			if err != nil {
				lost = fmt.Errorf("%w: %v", ErrFeedLost, err)
			}
			select {
			case f.errs <- lost:
			default:
			}
		}
	})

	if err := f.listener.Listen(channel); err != nil {
		_ = f.listener.Close()
		return nil, fmt.Errorf("listen on %s: %w", channel, err)
	}
	return f, nil
}

func (f *PQFeed) Notifications() <-chan *pq.Notification {
	return f.listener.Notify
}

func (f *PQFeed) Errors() <-chan error {
	return f.errs
}

func (f *PQFeed) Close() error {
	return f.listener.Close()
}
