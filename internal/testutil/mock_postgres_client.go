package testutil

import (
	"context"

	"github.com/flexprice/tiersync/internal/postgres"
)

var _ postgres.IClient = (*MockPostgresClient)(nil)

// MockPostgresClient runs WithTx callbacks without a transaction. The
// in-memory stores are not transactional, so a failed callback does not
// roll back writes made before the failure.
type MockPostgresClient struct {
	TxCount int
	PingErr error
}

func NewMockPostgresClient() *MockPostgresClient {
	return &MockPostgresClient{}
}

func (c *MockPostgresClient) WithTx(ctx context.Context, fn func(context.Context) error) error {
	c.TxCount++
	return fn(ctx)
}

func (c *MockPostgresClient) Ping(context.Context) error {
	return c.PingErr
}
