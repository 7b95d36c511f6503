package telemetry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"litledger/internal/telemetry"
)

func TestInitWithoutEndpointIsNoop(t *testing.T) {
	shutdown, err := telemetry.Init(context.Background(), "", "litledger")
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}
