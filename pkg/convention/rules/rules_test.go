package rules_test

import (
	"testing"

	"github.com/linecard/trainstack/pkg/convention/rules"
	"github.com/linecard/trainstack/pkg/convention/training"
	"github.com/linecard/trainstack/pkg/topology"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ruleNames(violations []rules.Violation) []string {
	var names []string
	for _, v := range violations {
		names = append(names, v.Rule)
	}
	return names
}

func TestRules(t *testing.T) {
	env := topology.NewEnv("123456789012", "us-west-2")

	tests := []struct {
		name     string
		mutate   func(*topology.Graph)
		expected []string
	}{
		{
			name:     "clean topology has no violations",
			mutate:   func(g *topology.Graph) {},
			expected: nil,
		},
		{
			name: "CORS rule missing PUT is rejected",
			mutate: func(g *topology.Graph) {
				g.Containers[0].Cors[0].AllowedMethods = []string{"GET", "POST"}
			},
			expected: []string{"cors-methods"},
		},
		{
			name: "CORS rule allowing DELETE is rejected",
			mutate: func(g *topology.Graph) {
				g.Containers[1].Cors[0].AllowedMethods = []string{"GET", "PUT", "POST", "DELETE"}
			},
			expected: []string{"cors-methods"},
		},
		{
			name: "registry destroyed on stack deletion is flagged",
			mutate: func(g *topology.Graph) {
				g.Repositories[0].DeletionPolicy = topology.Destroy
			},
			expected: []string{"retain-registry"},
		},
		{
			name: "handler bound to a missing identity is flagged",
			mutate: func(g *topology.Graph) {
				g.Handlers[2].Identity = "NoSuchRole"
			},
			expected: []string{"handler-identity"},
		},
		{
			name: "extra REST binding is flagged",
			mutate: func(g *topology.Graph) {
				g.SyncApis[0].Resources[3].Methods = append(g.SyncApis[0].Resources[3].Methods, topology.SyncMethod{
					HTTPMethod: "DELETE",
					Handler:    training.TrainingHandler,
				})
			},
			expected: []string{"sync-bindings"},
		},
		{
			name: "missing disconnect route is flagged",
			mutate: func(g *topology.Graph) {
				g.StreamApis[0].Routes = g.StreamApis[0].Routes[:1]
			},
			expected: []string{"stream-routes"},
		},
		{
			name: "broad managed policy is a warning",
			mutate: func(g *topology.Graph) {
				g.Identities[0].ManagedPolicies = []topology.Value{topology.Lit("arn:aws:iam::aws:policy/AmazonS3FullAccess")}
			},
			expected: []string{"broad-managed-policy"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g, err := training.Declare(env, "TestTrainingStack", training.Options{})
			require.NoError(t, err)

			resolved, err := topology.Resolve(g)
			require.NoError(t, err)

			tc.mutate(resolved.Graph)

			violations := rules.Check(resolved, training.Expectations())
			assert.Equal(t, tc.expected, ruleNames(violations))
		})
	}
}

func TestEnforce(t *testing.T) {
	env := topology.NewEnv("123456789012", "us-west-2")

	g, err := training.Declare(env, "TestTrainingStack", training.Options{BroadTrainingAccess: true})
	require.NoError(t, err)

	resolved, err := topology.Resolve(g)
	require.NoError(t, err)

	assert.NoError(t, rules.Enforce(resolved, training.Expectations()), "warnings must not fail")

	g.Repositories[0].DeletionPolicy = topology.Destroy
	err = rules.Enforce(resolved, training.Expectations())
	assert.ErrorIs(t, err, rules.ErrPolicyViolation)
	assert.Contains(t, err.Error(), "retain-registry")
}
