package watcher

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"aanganwadi/internal/allocation"
	"aanganwadi/pkg/models"

	"github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var ErrAlreadyRunning = errors.New("appeal watcher already running")

// Event is the payload of one appeal status notification.
type Event struct {
	AppealID      int                 `json:"id"`
	Status        models.AppealStatus `json:"status"`
	StatusVersion int                 `json:"status_version"`
}

type AppealLoader interface {
	Get(ctx context.Context, id int) (*models.Appeal, error)
}

type Allocator interface {
	AllocateForTransition(ctx context.Context, appeal *models.Appeal, trigger allocation.Trigger) (*allocation.Report, error)
}

type Metrics struct {
	Events *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "aanganwadi",
			Subsystem: "watcher",
			Name:      "events_total",
			Help:      "Appeal status notifications handled by the watcher, by result.",
		}, []string{"result"}),
	}
	reg.MustRegister(m.Events)
	return m
}

// AppealWatcher re-runs allocation for approval transitions written by any
// client, including ones that bypass the API. It stops for good when the
// feed fails; a new watcher has to be started to resume.
type AppealWatcher struct {
	feed      Feed
	appeals   AppealLoader
	allocator Allocator
	metrics   *Metrics
	log       *zap.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

func NewAppealWatcher(feed Feed, appeals AppealLoader, allocator Allocator, metrics *Metrics, log *zap.Logger) *AppealWatcher {
	return &AppealWatcher{
		feed:      feed,
		appeals:   appeals,
		allocator: allocator,
		metrics:   metrics,
		log:       log.Named("watcher"),
		done:      make(chan struct{}),
	}
}

func (w *AppealWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return ErrAlreadyRunning
	}
	w.started = true

	ctx, w.cancel = context.WithCancel(ctx)
	go w.run(ctx)

	w.log.Info("Appeal status watcher started", zap.String("channel", AppealStatusChannel))
	return nil
}

// Stop ends the watcher and waits for the event in flight to finish.
func (w *AppealWatcher) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	started := w.started
	w.mu.Unlock()
	if !started {
		return
	}

	cancel()
	<-w.done
}

// Done is closed once the watcher has stopped, on request or after a feed error.
func (w *AppealWatcher) Done() <-chan struct{} {
	return w.done
}

func (w *AppealWatcher) run(ctx context.Context) {
	defer close(w.done)
	defer func() {
		if err := w.feed.Close(); err != nil {
			w.log.Debug("Closing change feed", zap.Error(err))
		}
		w.log.Info("Appeal status watcher stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-w.feed.Errors():
			w.log.Error("Change feed failed, watcher stopping", zap.Error(err))
			return
		case n, ok := <-w.feed.Notifications():
			if !ok || n == nil {
				w.log.Error("Change feed closed, watcher stopping")
				return
			}
			w.handle(ctx, n)
		}
	}
}

func (w *AppealWatcher) handle(ctx context.Context, n *pq.Notification) {
	var ev Event
	if err := json.Unmarshal([]byte(n.Extra), &ev); err != nil {
		w.log.Error("Malformed change notification", zap.String("payload", n.Extra), zap.Error(err))
		w.metrics.Events.WithLabelValues("malformed").Inc()
		return
	}

	log := w.log.With(
		zap.Int("appeal_id", ev.AppealID),
		zap.String("status", string(ev.Status)),
		zap.Int("status_version", ev.StatusVersion),
	)
	log.Info("Appeal status change detected")

	if !ev.Status.IsApproval() {
		w.metrics.Events.WithLabelValues("ignored").Inc()
		return
	}

	appeal, err := w.appeals.Get(ctx, ev.AppealID)
	if err != nil {
		log.Error("Failed to load appeal", zap.Error(err))
		w.metrics.Events.WithLabelValues("error").Inc()
		return
	}
	// a later transition has its own notification
	if appeal.StatusVersion != ev.StatusVersion {
		log.Info("Appeal changed again since notification", zap.Int("current_version", appeal.StatusVersion))
		w.metrics.Events.WithLabelValues("stale").Inc()
		return
	}

	report, err := w.allocator.AllocateForTransition(ctx, appeal, allocation.TriggerWatcher)
	switch {
	case err != nil:
		log.Error("Allocation from change feed failed", zap.Error(err))
		w.metrics.Events.WithLabelValues("error").Inc()
	case report == nil:
		w.metrics.Events.WithLabelValues("duplicate").Inc()
	default:
		w.metrics.Events.WithLabelValues("allocated").Inc()
	}
}
