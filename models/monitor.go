// Package models defines the value types shared across all layers of the
// gateway. These are the canonical in-memory (and JSON) forms of everything
// the gateway knows about monitors, subscriptions, and observations; every
// other package depends on this package and nothing here depends on any
// other internal package.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Monitor describes one discovered IntelliVue patient monitor.
//
// The MAC address is the canonical monitor identity — it is an (effectively)
// immutable property of the device. The host address is only the current
// routing handle: monitors are typically on DHCP and the address may change
// between beacons.
type Monitor struct {
	MACAddress string    `json:"mac_address"`
	Host       string    `json:"host"`
	Port       int       `json:"port"`
	LastSeen   time.Time `json:"last_seen"`
}

// Subscription binds a webhook URL to a monitor. Subscriptions are created
// and destroyed by the HTTP surface and consumed read-only by the dispatcher.
type Subscription struct {
	MonitorID      string `json:"monitor_id"` // MAC address
	URL            string `json:"url"`
	SubscriptionID string `json:"subscription_id"`
}

// NewSubscription creates a Subscription with a fresh random ID.
func NewSubscription(monitorID, url string) Subscription {
	return Subscription{
		MonitorID:      monitorID,
		URL:            url,
		SubscriptionID: uuid.NewString(),
	}
}

// Observation is one valid numeric measurement extracted from a poll reply,
// with identifiers already resolved to their symbolic names.
type Observation struct {
	PhysioID string   `json:"physio_id"`         // e.g. "NOM_PULS_OXIM_SAT_O2"
	State    []string `json:"state"`             // set measurement-state flag names
	UnitCode string   `json:"unit_code"`         // e.g. "NOM_DIM_PERCENT"
	Value    float64  `json:"value"`
}

// Payload is the webhook body POSTed to every subscription whose monitor
// matches the batch.
type Payload struct {
	MonitorID    string        `json:"monitor_id"`
	Datetime     time.Time     `json:"datetime"`
	Observations []Observation `json:"observations"`
}
