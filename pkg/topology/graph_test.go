package topology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGraph(t *testing.T) *Graph {
	g, err := NewGraph(NewEnv("123456789012", "us-west-2"), "TestStack")
	require.NoError(t, err)
	return g
}

func TestGraph(t *testing.T) {
	role := ExecutionIdentity{ID: "Role", TrustPrincipal: "lambda.amazonaws.com"}
	handler := Handler{ID: "Fn", Identity: "Role", Environment: map[string]Value{"BUCKET": Attribute("Bucket", AttrName)}}

	tests := []struct {
		name     string
		build    func(*Graph) error
		expected error
	}{
		{
			name: "declaration in dependency order succeeds",
			build: func(g *Graph) error {
				if err := g.AddContainer(BlobContainer{ID: "Bucket"}); err != nil {
					return err
				}
				if err := g.AddIdentity(role); err != nil {
					return err
				}
				return g.AddHandler(handler)
			},
		},
		{
			name: "forward reference is rejected",
			build: func(g *Graph) error {
				if err := g.AddIdentity(role); err != nil {
					return err
				}
				return g.AddHandler(handler)
			},
			expected: ErrUnresolvedReference,
		},
		{
			name: "duplicate logical id is rejected",
			build: func(g *Graph) error {
				if err := g.AddContainer(BlobContainer{ID: "Bucket"}); err != nil {
					return err
				}
				return g.AddIdentity(ExecutionIdentity{ID: "Bucket", TrustPrincipal: "lambda.amazonaws.com"})
			},
			expected: ErrDuplicateResource,
		},
		{
			name: "unsupported attribute is rejected",
			build: func(g *Graph) error {
				if err := g.AddContainer(BlobContainer{ID: "Bucket"}); err != nil {
					return err
				}
				return g.AddIdentity(ExecutionIdentity{
					ID:             "Role",
					TrustPrincipal: "lambda.amazonaws.com",
					Statements: []Statement{
						{Effect: Allow, Actions: []string{"s3:GetObject"}, Resources: []Value{Attribute("Bucket", AttrUri)}},
					},
				})
			},
			expected: ErrUnknownAttribute,
		},
		{
			name: "handler needs an identity",
			build: func(g *Graph) error {
				return g.AddHandler(Handler{ID: "Fn"})
			},
			expected: ErrInvalidConfiguration,
		},
		{
			name: "handler identity must be an identity",
			build: func(g *Graph) error {
				if err := g.AddContainer(BlobContainer{ID: "Bucket"}); err != nil {
					return err
				}
				return g.AddHandler(Handler{ID: "Fn", Identity: "Bucket"})
			},
			expected: ErrInvalidConfiguration,
		},
		{
			name: "grants cannot target an api",
			build: func(g *Graph) error {
				if err := g.AddIdentity(role); err != nil {
					return err
				}
				if err := g.AddHandler(Handler{ID: "Fn", Identity: "Role"}); err != nil {
					return err
				}
				if err := g.AddStreamApi(StreamApi{ID: "Ws", Routes: []StreamRoute{{Key: RouteDefault, Handler: "Fn"}}}); err != nil {
					return err
				}
				return g.Grant("Ws", Statement{Effect: Allow, Actions: []string{"x:Y"}, Resources: []Value{Lit("*")}})
			},
			expected: ErrInvalidConfiguration,
		},
		{
			name: "grant scoped by a later resource succeeds once it exists",
			build: func(g *Graph) error {
				if err := g.AddIdentity(role); err != nil {
					return err
				}
				if err := g.AddHandler(Handler{ID: "Fn", Identity: "Role"}); err != nil {
					return err
				}
				if err := g.AddStreamApi(StreamApi{ID: "Ws", Routes: []StreamRoute{{Key: RouteDefault, Handler: "Fn"}}}); err != nil {
					return err
				}
				return g.Grant("Fn", Statement{
					Effect:    Allow,
					Actions:   []string{"execute-api:ManageConnections"},
					Resources: []Value{Join(Lit("arn:aws:execute-api:us-west-2:123456789012:"), Attribute("Ws", AttrId), Lit("/*"))},
				})
			},
		},
		{
			name: "duplicate route is rejected",
			build: func(g *Graph) error {
				if err := g.AddIdentity(role); err != nil {
					return err
				}
				if err := g.AddHandler(Handler{ID: "Fn", Identity: "Role"}); err != nil {
					return err
				}
				return g.AddStreamApi(StreamApi{ID: "Ws", Routes: []StreamRoute{
					{Key: RouteDefault, Handler: "Fn"},
					{Key: RouteDefault, Handler: "Fn"},
				}})
			},
			expected: ErrDuplicateResource,
		},
		{
			name: "duplicate output name is rejected",
			build: func(g *Graph) error {
				if err := g.AddOutput(Output{Name: "Out", Value: Lit("a")}); err != nil {
					return err
				}
				return g.AddOutput(Output{Name: "Out", Value: Lit("b")})
			},
			expected: ErrDuplicateResource,
		},
		{
			name: "statement without actions is rejected",
			build: func(g *Graph) error {
				return g.AddIdentity(ExecutionIdentity{
					ID:             "Role",
					TrustPrincipal: "lambda.amazonaws.com",
					Statements:     []Statement{{Effect: Allow, Resources: []Value{Lit("*")}}},
				})
			},
			expected: ErrInvalidConfiguration,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.build(newTestGraph(t))
			if tc.expected == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.expected)
		})
	}
}

func TestGraphOrderAndStatements(t *testing.T) {
	g := newTestGraph(t)

	require.NoError(t, g.AddContainer(BlobContainer{ID: "Bucket"}))
	require.NoError(t, g.AddIdentity(ExecutionIdentity{ID: "Role", TrustPrincipal: "lambda.amazonaws.com"}))
	require.NoError(t, g.AddHandler(Handler{ID: "Fn", Identity: "Role"}))
	require.NoError(t, g.Grant("Fn", Statement{Effect: Allow, Actions: []string{"s3:GetObject"}, Resources: []Value{Attribute("Bucket", AttrArn)}}))

	assert.Equal(t, []string{"Bucket", "Role", "Fn"}, g.Order())

	statements := g.Statements()
	assert.Len(t, statements, 1)
	assert.Len(t, statements["Fn"], 1)

	kind, exists := g.Kind("Fn")
	assert.True(t, exists)
	assert.Equal(t, KindHandler, kind)
}

func TestNewGraph(t *testing.T) {
	_, err := NewGraph(NewEnv("123", "us-west-2"), "Stack")
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	_, err = NewGraph(NewEnv("123456789012", ""), "Stack")
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	_, err = NewGraph(NewEnv("123456789012", "us-west-2"), "")
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestNewEnvPartitions(t *testing.T) {
	tests := []struct {
		region    string
		partition string
		suffix    string
	}{
		{"us-west-2", "aws", "amazonaws.com"},
		{"cn-north-1", "aws-cn", "amazonaws.com.cn"},
		{"us-gov-west-1", "aws-us-gov", "amazonaws.com"},
	}

	for _, tc := range tests {
		t.Run(tc.region, func(t *testing.T) {
			env := NewEnv("123456789012", tc.region)
			assert.Equal(t, tc.partition, env.Partition)
			assert.Equal(t, tc.suffix, env.URLSuffix)
		})
	}
}

func TestWithPartition(t *testing.T) {
	env := NewEnv("123456789012", "us-west-2").WithPartition("aws-cn")
	assert.Equal(t, "aws-cn", env.Partition)
	assert.Equal(t, "amazonaws.com.cn", env.URLSuffix)
	assert.Equal(t, "us-west-2", env.Region)

	env = NewEnv("123456789012", "cn-north-1").WithPartition("aws")
	assert.Equal(t, "amazonaws.com", env.URLSuffix)
}
