// Package dispatch turns decoded poll replies into webhook deliveries.
//
// Each poll reply batch becomes at most one Payload per subscribed webhook:
// invalid measurements and non-finite values are filtered out first, and a
// batch with nothing left is not delivered at all.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/openvitals/einstein/intellivue/nomenclature"
	"github.com/openvitals/einstein/intellivue/wire"
	"github.com/openvitals/einstein/models"
)

// SubscriptionSource yields the webhooks subscribed to one monitor.
type SubscriptionSource interface {
	SubscriptionsFor(mac string) []models.Subscription
}

// Config tunes a Dispatcher. Zero values fall back to defaults.
type Config struct {
	// Timeout bounds one webhook POST, connection setup included.
	Timeout time.Duration
	Logger  *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(noopWriter{}, nil))
	}
	return c
}

// noopWriter discards all log output when no logger is provided.
type noopWriter struct{}

func (noopWriter) Write(p []byte) (int, error) { return len(p), nil }

// Dispatcher extracts observations from poll replies and POSTs them to
// subscribed webhooks.
type Dispatcher struct {
	subs   SubscriptionSource
	client *http.Client
	log    *slog.Logger
	now    func() time.Time
}

func New(subs SubscriptionSource, cfg Config) *Dispatcher {
	cfg = cfg.withDefaults()
	return &Dispatcher{
		subs:   subs,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    cfg.Logger,
		now:    time.Now,
	}
}

// Observations flattens a poll reply into the valid numeric measurements it
// carries. Measurements whose state marks them unusable are dropped, as are
// NaN and infinite values (a monitor reports those for unplugged sensors).
func Observations(list *wire.PollInfoList) []models.Observation {
	var out []models.Observation
	for _, scp := range list.Contexts {
		for _, op := range scp.Polls {
			for _, attr := range op.Attributes.Attributes {
				nu, ok := attr.Value.(wire.NuObsValue)
				if !ok {
					continue
				}
				if !nu.MeasurementIsValid() {
					continue
				}
				v := nu.Float()
				if math.IsNaN(v.F) || math.IsInf(v.F, 0) {
					continue
				}
				out = append(out, models.Observation{
					PhysioID: nomenclature.PhysioName(nu.PhysioID),
					State:    nu.State.FlagNames(),
					UnitCode: nomenclature.UnitName(nu.UnitCode),
					Value:    v.F,
				})
			}
		}
	}
	return out
}

// DispatchPoll delivers the valid observations of one poll reply to every
// webhook subscribed to the monitor. Delivery failures are logged, never
// returned: one dead webhook must not stall the session engine or starve
// the other subscribers.
func (d *Dispatcher) DispatchPoll(ctx context.Context, mac string, list *wire.PollInfoList) {
	obs := Observations(list)
	if len(obs) == 0 {
		return
	}
	subs := d.subs.SubscriptionsFor(mac)
	if len(subs) == 0 {
		return
	}
	payload := models.Payload{
		MonitorID:    mac,
		Datetime:     d.now().UTC(),
		Observations: obs,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		d.log.Error("marshal webhook payload", "monitor", mac, "error", err)
		return
	}
	for _, sub := range subs {
		if err := d.post(ctx, sub.URL, body); err != nil {
			d.log.Warn("webhook delivery failed",
				"monitor", mac,
				"subscription", sub.SubscriptionID,
				"url", sub.URL,
				"error", err)
			continue
		}
		d.log.Debug("webhook delivered",
			"monitor", mac,
			"subscription", sub.SubscriptionID,
			"observations", len(obs))
	}
}

func (d *Dispatcher) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned %s", resp.Status)
	}
	return nil
}
