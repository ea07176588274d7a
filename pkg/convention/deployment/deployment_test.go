package deployment

import (
	"context"
	"fmt"
	"testing"

	"github.com/linecard/trainstack/pkg/convention/template"
	"github.com/linecard/trainstack/pkg/convention/training"
	fixturemock "github.com/linecard/trainstack/pkg/mock/fixture"
	servicemock "github.com/linecard/trainstack/pkg/mock/service"
	"github.com/linecard/trainstack/pkg/service/stack"
	"github.com/linecard/trainstack/pkg/topology"

	"github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestDeployment(t *testing.T) {
	ctx := context.Background()

	cfg := fixturemock.Config()
	resolved := fixturemock.Resolved(t, cfg)
	live := fixturemock.Live(t, resolved)

	deployed := servicemock.MockStack(cfg.StackName, types.StackStatusCreateComplete, live.Outputs)

	tests := []struct {
		name  string
		setup func(*servicemock.MockStackService)
		test  func(*testing.T, Convention, *servicemock.MockStackService)
	}{
		{
			name: "convention.Deploy submits the synthesized template with parameters and tags.",
			setup: func(mss *servicemock.MockStackService) {
				mss.On("PutStack", mock.Anything, cfg.StackName, mock.AnythingOfType("string"), cfg.Parameters(), cfg.Tags()).Return(deployed, nil)
			},
			test: func(t *testing.T, c Convention, mss *servicemock.MockStackService) {
				deployment, err := c.Deploy(ctx, resolved)
				require.NoError(t, err)
				assert.Equal(t, live.Outputs, deployment.Outputs)

				body := mss.Calls[0].Arguments.String(2)

				submitted, err := template.Decode([]byte(body), template.FormatJSON)
				require.NoError(t, err)

				expected, err := template.Synthesize(resolved)
				require.NoError(t, err)
				assert.Equal(t, len(expected.Resources), len(submitted.Resources))
				assert.Contains(t, submitted.Parameters, template.ParamCodeBucket)
			},
		},
		{
			name: "convention.Deploy fails when deployed outputs differ.",
			setup: func(mss *servicemock.MockStackService) {
				partial := servicemock.MockStack(cfg.StackName, types.StackStatusUpdateComplete, map[string]string{
					training.OutputApiEndpoint: live.Outputs[training.OutputApiEndpoint],
				})
				mss.On("PutStack", mock.Anything, cfg.StackName, mock.Anything, mock.Anything, mock.Anything).Return(partial, nil)
			},
			test: func(t *testing.T, c Convention, mss *servicemock.MockStackService) {
				_, err := c.Deploy(ctx, resolved)
				assert.ErrorIs(t, err, ErrOutputMismatch)
			},
		},
		{
			name:  "convention.Deploy requires a handler bundle location.",
			setup: func(mss *servicemock.MockStackService) {},
			test: func(t *testing.T, c Convention, mss *servicemock.MockStackService) {
				c.Config.Options.CodeKey = ""
				_, err := c.Deploy(ctx, resolved)
				assert.ErrorIs(t, err, topology.ErrInvalidConfiguration)
				mss.AssertNotCalled(t, "PutStack", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			},
		},
		{
			name:  "convention.Deploy refuses offline configurations.",
			setup: func(mss *servicemock.MockStackService) {},
			test: func(t *testing.T, c Convention, mss *servicemock.MockStackService) {
				c.Config.Offline = true
				_, err := c.Deploy(ctx, resolved)
				assert.ErrorIs(t, err, topology.ErrInvalidConfiguration)
			},
		},
		{
			name: "convention.Deploy surfaces stack errors.",
			setup: func(mss *servicemock.MockStackService) {
				mss.On("PutStack", mock.Anything, cfg.StackName, mock.Anything, mock.Anything, mock.Anything).Return(types.Stack{}, fmt.Errorf("rollback"))
			},
			test: func(t *testing.T, c Convention, mss *servicemock.MockStackService) {
				_, err := c.Deploy(ctx, resolved)
				assert.EqualError(t, err, "rollback")
			},
		},
		{
			name: "convention.Status returns outputs and events.",
			setup: func(mss *servicemock.MockStackService) {
				mss.On("Describe", mock.Anything, cfg.StackName).Return(deployed, nil)
				mss.On("Events", mock.Anything, cfg.StackName, 5).Return([]types.StackEvent{{}, {}}, nil)
			},
			test: func(t *testing.T, c Convention, mss *servicemock.MockStackService) {
				status, err := c.Status(ctx, 5)
				require.NoError(t, err)
				assert.Len(t, status.Events, 2)
				assert.Equal(t, live.Outputs, status.Outputs)
			},
		},
		{
			name: "convention.Find passes through a missing stack.",
			setup: func(mss *servicemock.MockStackService) {
				mss.On("Describe", mock.Anything, cfg.StackName).Return(types.Stack{}, stack.ErrStackNotFound)
			},
			test: func(t *testing.T, c Convention, mss *servicemock.MockStackService) {
				_, err := c.Find(ctx)
				assert.ErrorIs(t, err, stack.ErrStackNotFound)
			},
		},
		{
			name: "convention.Destroy deletes the stack.",
			setup: func(mss *servicemock.MockStackService) {
				mss.On("DeleteStack", mock.Anything, cfg.StackName).Return(nil)
			},
			test: func(t *testing.T, c Convention, mss *servicemock.MockStackService) {
				assert.NoError(t, c.Destroy(ctx))
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mss := &servicemock.MockStackService{}
			tc.setup(mss)

			c := FromServices(cfg, mss)
			tc.test(t, c, mss)

			mss.AssertExpectations(t)
		})
	}
}
