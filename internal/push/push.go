package push

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/volunteerhub/volunteerhub/internal/model"

	webpush "github.com/SherClockHolmes/webpush-go"
	"go.uber.org/multierr"
)

// ErrSubscriptionGone is returned when the push service reports an endpoint no
// longer exists (404/410). The subscription must be pruned and never
// re-delivered to.
var ErrSubscriptionGone = errors.New("push subscription gone")

// ErrNoVAPIDKeys is returned by Dispatch when the VAPID key pair is not
// configured. It is dispatch-wide: no endpoints are attempted.
var ErrNoVAPIDKeys = errors.New("VAPID keys not configured")

const defaultTimeout = 10 * time.Second

// Payload is the JSON sent to the push service.
type Payload struct {
	Title              string `json:"title"`
	Body               string `json:"body"`
	URL                string `json:"url,omitempty"`
	Icon               string `json:"icon,omitempty"`
	Badge              string `json:"badge,omitempty"`
	Tag                string `json:"tag,omitempty"`
	Timestamp          string `json:"timestamp,omitempty"`
	RequireInteraction bool   `json:"requireInteraction"`
	Renotify           bool   `json:"renotify"`
}

// withDefaults fills the display fields the original clients expect.
func (p Payload) withDefaults(now time.Time) Payload {
	if p.URL == "" {
		p.URL = "/notifications"
	}
	if p.Icon == "" {
		p.Icon = "/icons/notification-icon.png"
	}
	if p.Badge == "" {
		p.Badge = "/icons/badge-icon.png"
	}
	if p.Tag == "" {
		p.Tag = "event-notification"
	}
	if p.Timestamp == "" {
		p.Timestamp = now.UTC().Format(time.RFC3339)
	}
	p.RequireInteraction = false
	p.Renotify = true
	return p
}

// Config holds VAPID configuration, passed in explicitly at construction.
type Config struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	Subscriber      string        // contact mailto for the push service
	Timeout         time.Duration // per-endpoint delivery timeout
}

// Registry is the subset of the subscription store the dispatcher needs to
// prune gone endpoints.
type Registry interface {
	DeleteByEndpoint(endpoint string) error
}

// Report summarizes one dispatch call.
type Report struct {
	Attempted int
	Sent      int
	Failed    int
	Pruned    int
}

type sendFunc func(ctx context.Context, sub *model.PushSubscription, body []byte) error

// Dispatcher delivers a payload to every stored push endpoint of a user,
// best-effort, pruning endpoints the transport reports gone.
type Dispatcher struct {
	cfg      Config
	registry Registry
	logger   *slog.Logger
	send     sendFunc
}

func NewDispatcher(cfg Config, registry Registry, logger *slog.Logger) *Dispatcher {
	if cfg.Subscriber == "" {
		cfg.Subscriber = "mailto:admin@volunteerhub.app"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	d := &Dispatcher{cfg: cfg, registry: registry, logger: logger}
	d.send = d.sendWebPush
	return d
}

// VAPIDPublicKey returns the public key for client-side subscription.
func (d *Dispatcher) VAPIDPublicKey() string {
	return d.cfg.VAPIDPublicKey
}

// Dispatch attempts delivery to each endpoint independently; one endpoint's
// failure never blocks the others. It only returns an error when the VAPID
// key pair is missing — individual failures are logged and counted.
func (d *Dispatcher) Dispatch(ctx context.Context, subs []model.PushSubscription, payload Payload) (Report, error) {
	if d.cfg.VAPIDPublicKey == "" || d.cfg.VAPIDPrivateKey == "" {
		d.logger.Error("push dispatch aborted", "error", ErrNoVAPIDKeys)
		return Report{}, ErrNoVAPIDKeys
	}

	body, err := json.Marshal(payload.withDefaults(time.Now()))
	if err != nil {
		return Report{}, fmt.Errorf("marshal payload: %w", err)
	}

	report := Report{Attempted: len(subs)}
	var soft error
	for i := range subs {
		sub := &subs[i]

		sendCtx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
		err := d.send(sendCtx, sub, body)
		cancel()

		switch {
		case err == nil:
			report.Sent++
		case errors.Is(err, ErrSubscriptionGone):
			report.Pruned++
			if delErr := d.registry.DeleteByEndpoint(sub.Endpoint); delErr != nil {
				d.logger.Error("prune gone endpoint", "endpoint", sub.Endpoint, "error", delErr)
			} else {
				d.logger.Info("pruned gone endpoint", "endpoint", sub.Endpoint, "user_id", sub.UserID)
			}
		default:
			report.Failed++
			soft = multierr.Append(soft, fmt.Errorf("endpoint %s: %w", sub.Endpoint, err))
		}
	}

	if soft != nil {
		d.logger.Warn("push dispatch partial failure",
			"attempted", report.Attempted, "sent", report.Sent,
			"failed", report.Failed, "pruned", report.Pruned, "error", soft)
	}
	return report, nil
}

func (d *Dispatcher) sendWebPush(ctx context.Context, sub *model.PushSubscription, body []byte) error {
	resp, err := webpush.SendNotificationWithContext(ctx, body, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dhKey,
			Auth:   sub.AuthKey,
		},
	}, &webpush.Options{
		VAPIDPublicKey:  d.cfg.VAPIDPublicKey,
		VAPIDPrivateKey: d.cfg.VAPIDPrivateKey,
		Subscriber:      d.cfg.Subscriber,
		TTL:             86400,
	})
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		return ErrSubscriptionGone
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("push service returned %d", resp.StatusCode)
	}

	return nil
}

// GenerateVAPIDKeys generates a new ECDSA P-256 key pair for VAPID.
func GenerateVAPIDKeys() (publicKey, privateKey string, err error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return "", "", fmt.Errorf("generate ECDSA key: %w", err)
	}

	pubBytes := elliptic.Marshal(elliptic.P256(), key.PublicKey.X, key.PublicKey.Y)
	publicKey = base64.RawURLEncoding.EncodeToString(pubBytes)
	privateKey = base64.RawURLEncoding.EncodeToString(key.D.Bytes())

	return publicKey, privateKey, nil
}
