package registry_test

import (
	"errors"
	"testing"
	"time"

	"github.com/openvitals/einstein/pkg/einstein/registry"
)

func TestUpsertMonitor_NormalizesAndReindexes(t *testing.T) {
	r := registry.New()
	now := time.Now()

	r.UpsertMonitor("06:08:06:08:00:01", "172.31.0.7", 24105, now)
	m, ok := r.Monitor("06:08:06:08:00:01")
	if !ok || m.Host != "172.31.0.7" {
		t.Fatalf("Monitor() = %+v, %v", m, ok)
	}
	if mac, ok := r.MACForHost("172.31.0.7"); !ok || mac != "06:08:06:08:00:01" {
		t.Fatalf("MACForHost() = %q, %v", mac, ok)
	}

	// Same monitor from a new address drops the old host index.
	r.UpsertMonitor("06:08:06:08:00:01", "172.31.0.9", 24105, now)
	if _, ok := r.MACForHost("172.31.0.7"); ok {
		t.Error("old host still indexed")
	}
	if mac, ok := r.MACForHost("172.31.0.9"); !ok || mac != "06:08:06:08:00:01" {
		t.Errorf("new host index = %q, %v", mac, ok)
	}
	if got := len(r.Monitors()); got != 1 {
		t.Errorf("Monitors() length = %d, want 1", got)
	}
}

func TestTouchAndRemove(t *testing.T) {
	r := registry.New()
	t0 := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	r.UpsertMonitor("aa:bb:cc:dd:ee:ff", "10.0.0.5", 24105, t0)

	t1 := t0.Add(5 * time.Second)
	r.Touch("AA:BB:CC:DD:EE:FF", t1)
	if m, _ := r.Monitor("aa:bb:cc:dd:ee:ff"); !m.LastSeen.Equal(t1) {
		t.Errorf("LastSeen = %v, want %v", m.LastSeen, t1)
	}

	r.Remove("aa:bb:cc:dd:ee:ff")
	if _, ok := r.Monitor("aa:bb:cc:dd:ee:ff"); ok {
		t.Error("monitor survived Remove")
	}
	if _, ok := r.MACForHost("10.0.0.5"); ok {
		t.Error("host index survived Remove")
	}
}

func TestSubscriptions(t *testing.T) {
	r := registry.New()
	s1 := r.Subscribe("06:08:06:08:00:01", "http://sink-a/webhook")
	s2 := r.Subscribe("06:08:06:08:00:01", "http://sink-b/webhook")
	r.Subscribe("de:ad:be:ef:00:00", "http://sink-c/webhook")

	if s1.SubscriptionID == s2.SubscriptionID {
		t.Fatal("subscription ids collide")
	}
	got := r.SubscriptionsFor("06:08:06:08:00:01")
	if len(got) != 2 {
		t.Fatalf("SubscriptionsFor = %d entries, want 2", len(got))
	}
	for _, s := range got {
		if s.MonitorID != "06:08:06:08:00:01" {
			t.Errorf("wrong monitor id %q", s.MonitorID)
		}
	}
	if got := len(r.Subscriptions()); got != 3 {
		t.Errorf("Subscriptions() = %d entries, want 3", got)
	}

	if err := r.Unsubscribe(s1.SubscriptionID); err != nil {
		t.Fatalf("Unsubscribe: %v", err)
	}
	if err := r.Unsubscribe(s1.SubscriptionID); !errors.Is(err, registry.ErrUnknownSubscription) {
		t.Errorf("second Unsubscribe error = %v", err)
	}
	if got := len(r.SubscriptionsFor("06:08:06:08:00:01")); got != 1 {
		t.Errorf("after unsubscribe: %d entries, want 1", got)
	}
}

func TestSubscribe_BeforeDiscovery(t *testing.T) {
	r := registry.New()
	sub := r.Subscribe("06:08:06:08:00:01", "http://sink/webhook")
	if sub.MonitorID != "06:08:06:08:00:01" {
		t.Errorf("MonitorID = %q", sub.MonitorID)
	}
	if got := len(r.SubscriptionsFor("06:08:06:08:00:01")); got != 1 {
		t.Errorf("SubscriptionsFor = %d entries, want 1", got)
	}
}
