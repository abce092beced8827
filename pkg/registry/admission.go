package registry

import (
	"context"
	"time"

	"github.com/meshonboard/ec-go/pkg/easyconnect"
)

// opTimeout bounds registry calls made from engine callbacks.
const opTimeout = 2 * time.Second

// Admission connects a Store to the onboarding engine: it answers the
// can-onboard question and records peers as they complete onboarding.
type Admission struct {
	store *Store

	// Max is the number of peers the controller accepts. Zero or less
	// means unlimited.
	Max int
}

// NewAdmission returns an Admission over store.
func NewAdmission(store *Store, max int) *Admission {
	return &Admission{store: store, Max: max}
}

// CanOnboardAdditional reports whether another peer may be onboarded. A
// registry that cannot be read denies admission.
func (a *Admission) CanOnboardAdditional() bool {
	if a.Max <= 0 {
		return true
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	n, err := a.store.Count(ctx)
	if err != nil {
		a.store.debugLog("admission check failed", "error", err)
		return false
	}
	return n < a.Max
}

// Observe is an easyconnect.EventHandler that records onboarded peers.
func (a *Admission) Observe(ev easyconnect.Event) {
	if ev.Type != easyconnect.EventOnboarded || ev.PeerID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	rec := PeerRecord{PeerID: ev.PeerID}
	if !ev.MAC.IsZero() {
		rec.MAC = ev.MAC.String()
	}
	if ev.Config != nil {
		rec.SSID = ev.Config.Discovery.SSID
		rec.AKM = ev.Config.Cred.AKM
	}
	if err := a.store.RecordOnboarded(ctx, rec); err != nil {
		a.store.debugLog("recording onboarded peer failed", "peer", ev.PeerID, "error", err)
	}
}
