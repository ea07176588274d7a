package mock

import (
	"context"
	"testing"

	"github.com/linecard/trainstack/internal/util"
	"github.com/linecard/trainstack/pkg/convention/config"
	"github.com/linecard/trainstack/pkg/convention/training"
	"github.com/linecard/trainstack/pkg/topology"

	"github.com/stretchr/testify/require"
)

const (
	Account    = "123456789012"
	Region     = "us-east-1"
	CodeBucket = "trainstack-artifacts"
	CodeKey    = "handlers/bundle.zip"
)

// Config describes the fixture account as if discovered, with a handler bundle location set.
func Config() config.Config {
	c := config.Offline(Account, Region, "")
	c.Offline = false
	c.Caller = config.Caller{Arn: "arn:aws:iam::" + Account + ":user/test", Account: Account}
	c.Options.CodeBucket = CodeBucket
	c.Options.CodeKey = CodeKey
	return c
}

func Resolved(t *testing.T, c config.Config) topology.Resolved {
	t.Helper()

	resolved, err := training.Build(context.Background(), c.Env, c.StackName, training.Options{
		BroadTrainingAccess: c.Options.BroadTrainingAccess,
	})

	require.NoError(t, err)
	return resolved
}

// Physical is the logical to physical id mapping a provisioned stack reports. Api ids differ from
// the generated ones the way a live deployment's do.
func Physical(r topology.Resolved) map[string]string {
	physical := map[string]string{}

	for _, id := range r.Graph.Order() {
		kind, _ := r.Graph.Kind(id)
		switch kind {
		case topology.KindSyncApi, topology.KindStreamApi:
			physical[id] = util.Digest("live", id)[:10]
		default:
			name, _ := r.Attribute(id, topology.AttrName)
			physical[id] = name
		}
	}

	return physical
}

// Live is r rebound to Physical(r).
func Live(t *testing.T, r topology.Resolved) topology.Resolved {
	t.Helper()

	live, err := topology.Rebind(r.Graph, Physical(r))
	require.NoError(t, err)
	return live
}
