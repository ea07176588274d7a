package sdk

import (
	"context"
	"testing"

	"github.com/linecard/trainstack/pkg/convention/config"
	"github.com/linecard/trainstack/pkg/convention/training"
	"github.com/linecard/trainstack/pkg/topology"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOffline(t *testing.T) {
	ctx := context.Background()

	api := Offline(config.Offline("123456789012", "us-west-2", ""))

	resolved, err := api.Resolve(ctx)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultStackName, resolved.Graph.Stack)
	assert.Contains(t, resolved.OutputNames(), training.OutputAudioEndpoint)

	assert.ErrorIs(t, api.Online(), topology.ErrInvalidConfiguration)
}

func TestOfflineRequiresAccount(t *testing.T) {
	api := Offline(config.Offline("", "us-west-2", "Stack"))

	_, err := api.Resolve(context.Background())
	assert.ErrorIs(t, err, topology.ErrInvalidConfiguration)
}
