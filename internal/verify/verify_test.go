package verify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDemoProviderAcceptsDemoCode(t *testing.T) {
	ctx := context.Background()
	p := NewDemoProvider(time.Minute)

	assert.ErrorIs(t, p.Check(ctx, "081234567890", DemoCode), ErrNotSent)

	require.NoError(t, p.Send(ctx, "081234567890"))
	assert.ErrorIs(t, p.Check(ctx, "081234567890", "000000"), ErrWrongCode)
	assert.NoError(t, p.Check(ctx, "081234567890", DemoCode))

	// consumed
	assert.ErrorIs(t, p.Check(ctx, "081234567890", DemoCode), ErrNotSent)
	assert.Contains(t, p.Hint(), DemoCode)
}

func TestDemoProviderExpiry(t *testing.T) {
	ctx := context.Background()
	p := NewDemoProvider(time.Minute)
	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return now }

	require.NoError(t, p.Send(ctx, "0812"))
	now = now.Add(2 * time.Minute)
	assert.ErrorIs(t, p.Check(ctx, "0812", DemoCode), ErrExpired)
}
