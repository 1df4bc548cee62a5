package event

import (
	"encoding/json"
	"time"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const (
	SubjectAppInstalled   = "launchpad.app.installed"
	SubjectAppUninstalled = "launchpad.app.uninstalled"
)

// AppEvent is the payload published on app lifecycle changes.
type AppEvent struct {
	AppID     uuid.UUID `json:"app_id"`
	AppName   string    `json:"app_name"`
	UserID    *string   `json:"user_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher emits app lifecycle events to NATS. When no NATS url is
// configured every publish is a no-op, so callers never need to guard.
type Publisher struct {
	conn    *nats.Conn
	enabled bool
}

// NewPublisher connects to NATS at url. An empty url disables publishing.
func NewPublisher(url string) (*Publisher, error) {
	if url == "" {
		glog.Info("NATS url not configured, event publishing disabled")
		return &Publisher{enabled: false}, nil
	}

	conn, err := nats.Connect(url,
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(10),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			glog.Warningf("NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			glog.Infof("NATS reconnected to %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, err
	}

	glog.Infof("connected to NATS at %s", url)
	return &Publisher{conn: conn, enabled: true}, nil
}

func (p *Publisher) AppInstalled(appID uuid.UUID, appName string, userID *string) {
	p.publish(SubjectAppInstalled, appID, appName, userID)
}

func (p *Publisher) AppUninstalled(appID uuid.UUID, appName string) {
	p.publish(SubjectAppUninstalled, appID, appName, nil)
}

func (p *Publisher) publish(subject string, appID uuid.UUID, appName string, userID *string) {
	if !p.enabled {
		return
	}

	payload, err := json.Marshal(AppEvent{
		AppID:     appID,
		AppName:   appName,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		glog.Errorf("failed to marshal %s event: %v", subject, err)
		return
	}

	if err := p.conn.Publish(subject, payload); err != nil {
		glog.Errorf("failed to publish %s event for %s: %v", subject, appID, err)
	}
}

// Close drains the connection. Safe to call when publishing is disabled.
func (p *Publisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}
