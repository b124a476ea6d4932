package testutil

import (
	"context"
	"sync"

	"github.com/flexprice/tiersync/internal/svix"
)

// FakeNotifier records tier updated notifications
type FakeNotifier struct {
	mu       sync.Mutex
	payloads []*svix.TierUpdatedPayload
}

func NewFakeNotifier() *FakeNotifier {
	return &FakeNotifier{}
}

func (n *FakeNotifier) NotifyTierUpdated(_ context.Context, payload *svix.TierUpdatedPayload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := *payload
	n.payloads = append(n.payloads, &c)
	return nil
}

func (n *FakeNotifier) Payloads() []*svix.TierUpdatedPayload {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*svix.TierUpdatedPayload(nil), n.payloads...)
}
