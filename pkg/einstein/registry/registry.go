// Package registry is the shared record of discovered monitors and webhook
// subscriptions. It is the single store behind both the session engine and
// the HTTP control surface, so every method takes and releases its own lock
// and returns copies rather than internal references.
package registry

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/openvitals/einstein/models"
)

// ErrUnknownSubscription reports an unsubscribe for an id that does not
// exist (or was already removed).
var ErrUnknownSubscription = errors.New("registry: unknown subscription")

// Registry tracks monitors keyed by MAC address and subscriptions keyed by
// their generated id. Monitors are also indexed by host so datagrams can be
// attributed to the monitor that sent them.
type Registry struct {
	mu       sync.RWMutex
	monitors map[string]models.Monitor
	byHost   map[string]string
	subs     map[string]models.Subscription
}

func New() *Registry {
	return &Registry{
		monitors: make(map[string]models.Monitor),
		byHost:   make(map[string]string),
		subs:     make(map[string]models.Subscription),
	}
}

// UpsertMonitor records a monitor sighting. The MAC is normalized to lower
// case so beacons and API calls agree on the key. A monitor that moved to a
// new host is re-indexed.
func (r *Registry) UpsertMonitor(mac, host string, port int, seen time.Time) models.Monitor {
	mac = NormalizeMAC(mac)
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.monitors[mac]; ok && old.Host != host {
		delete(r.byHost, old.Host)
	}
	m := models.Monitor{MACAddress: mac, Host: host, Port: port, LastSeen: seen}
	r.monitors[mac] = m
	r.byHost[host] = mac
	return m
}

// Touch refreshes a monitor's last-seen time without changing its address.
func (r *Registry) Touch(mac string, seen time.Time) {
	mac = NormalizeMAC(mac)
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.monitors[mac]; ok {
		m.LastSeen = seen
		r.monitors[mac] = m
	}
}

// Remove forgets a monitor entirely. Its subscriptions stay: they reattach
// if the monitor is discovered again.
func (r *Registry) Remove(mac string) {
	mac = NormalizeMAC(mac)
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.monitors[mac]; ok {
		delete(r.byHost, m.Host)
		delete(r.monitors, mac)
	}
}

// Monitor returns the monitor with the given MAC.
func (r *Registry) Monitor(mac string) (models.Monitor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.monitors[NormalizeMAC(mac)]
	return m, ok
}

// MACForHost returns the MAC of the monitor last seen at host.
func (r *Registry) MACForHost(host string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	mac, ok := r.byHost[host]
	return mac, ok
}

// Monitors returns every known monitor, ordered by MAC for stable API
// output.
func (r *Registry) Monitors() []models.Monitor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Monitor, 0, len(r.monitors))
	for _, m := range r.monitors {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MACAddress < out[j].MACAddress })
	return out
}

// Subscribe registers a webhook for a monitor's observations. The monitor
// does not have to be known yet; subscriptions made before discovery take
// effect as soon as the monitor appears.
func (r *Registry) Subscribe(mac, url string) models.Subscription {
	sub := models.NewSubscription(NormalizeMAC(mac), url)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs[sub.SubscriptionID] = sub
	return sub
}

// Unsubscribe removes a subscription by id.
func (r *Registry) Unsubscribe(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.subs[id]; !ok {
		return ErrUnknownSubscription
	}
	delete(r.subs, id)
	return nil
}

// Subscriptions returns every subscription, ordered by id.
func (r *Registry) Subscriptions() []models.Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Subscription, 0, len(r.subs))
	for _, s := range r.subs {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubscriptionID < out[j].SubscriptionID })
	return out
}

// SubscriptionsFor snapshots the subscriptions targeting one monitor.
// Callers deliver webhooks from the snapshot without holding any lock.
func (r *Registry) SubscriptionsFor(mac string) []models.Subscription {
	mac = NormalizeMAC(mac)
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.Subscription
	for _, s := range r.subs {
		if s.MonitorID == mac {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubscriptionID < out[j].SubscriptionID })
	return out
}

// NormalizeMAC lower-cases a MAC address so map keys are canonical.
func NormalizeMAC(mac string) string {
	return strings.ToLower(mac)
}
