/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContext(t *testing.T) {
	ctx := context.Background()
	require.Empty(t, GetServiceFromContext(ctx))
	require.Zero(t, GetCostFromContext(ctx))

	ctx = NewContextWithCost(NewContextWithService(ctx, "github"), 3)
	require.Equal(t, "github", GetServiceFromContext(ctx))
	require.Equal(t, 3, GetCostFromContext(ctx))
}
