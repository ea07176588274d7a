package drift

import (
	"context"
	"fmt"
	"maps"
	"testing"

	"github.com/linecard/trainstack/pkg/convention/training"
	fixturemock "github.com/linecard/trainstack/pkg/mock/fixture"
	servicemock "github.com/linecard/trainstack/pkg/mock/service"
	"github.com/linecard/trainstack/pkg/service/bucket"
	"github.com/linecard/trainstack/pkg/service/function"
	"github.com/linecard/trainstack/pkg/service/registry"
	"github.com/linecard/trainstack/pkg/topology"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigatewayv2"
	gwtypes "github.com/aws/aws-sdk-go-v2/service/apigatewayv2/types"
	ecrtypes "github.com/aws/aws-sdk-go-v2/service/ecr/types"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mocks struct {
	stack    *servicemock.MockStackService
	bucket   *servicemock.MockBucketService
	registry *servicemock.MockRegistryService
	function *servicemock.MockFunctionService
	gateway  *servicemock.MockGatewayService
}

// healthy registers optional expectations that describe a stack matching live exactly.
func healthy(t *testing.T, m mocks, stackName string, live topology.Resolved, physical map[string]string) {
	m.stack.On("Resources", mock.Anything, stackName).Return(physical, nil).Maybe()

	for _, c := range live.Graph.Containers {
		settings := bucket.Settings{Versioned: c.Versioned, Algorithms: []string{"AES256"}}
		for _, rule := range c.Cors {
			settings.Cors = append(settings.Cors, s3types.CORSRule{
				AllowedMethods: rule.AllowedMethods,
				AllowedOrigins: rule.AllowedOrigins,
				AllowedHeaders: rule.AllowedHeaders,
			})
		}
		m.bucket.On("Inspect", mock.Anything, physical[c.ID]).Return(settings, nil).Maybe()
	}

	for _, r := range live.Graph.Repositories {
		m.registry.On("Inspect", mock.Anything, r.Name).Return(ecrtypes.Repository{
			RepositoryName:             aws.String(r.Name),
			ImageScanningConfiguration: &ecrtypes.ImageScanningConfiguration{ScanOnPush: r.ScanOnPush},
		}, nil).Maybe()
	}

	for _, i := range live.Graph.Identities {
		policies, err := live.Values(i.ManagedPolicies)
		require.NoError(t, err)

		m.function.On("InspectRole", mock.Anything, physical[i.ID]).Return(iamtypes.Role{RoleName: aws.String(physical[i.ID])}, servicemock.MockTrust(i.TrustPrincipal), nil).Maybe()
		m.function.On("AttachedPolicies", mock.Anything, physical[i.ID]).Return(policies, nil).Maybe()
	}

	for _, h := range live.Graph.Handlers {
		variables := map[string]string{}
		for key, value := range h.EffectiveEnvironment() {
			resolved, err := live.Value(value)
			require.NoError(t, err)
			variables[key] = resolved
		}

		role, _ := live.Attribute(h.Identity, topology.AttrArn)
		m.function.On("Inspect", mock.Anything, physical[h.ID]).Return(&lambda.GetFunctionConfigurationOutput{
			FunctionName: aws.String(physical[h.ID]),
			Timeout:      aws.Int32(int32(h.Timeout.Seconds())),
			MemorySize:   aws.Int32(h.MemoryMB),
			Role:         aws.String(role),
			Environment:  &lambdatypes.EnvironmentResponse{Variables: variables},
		}, nil).Maybe()
	}

	for _, a := range live.Graph.StreamApis {
		var keys []string
		for _, route := range a.Routes {
			keys = append(keys, route.Key)
		}

		m.gateway.On("InspectApi", mock.Anything, physical[a.ID]).Return(&apigatewayv2.GetApiOutput{
			ApiId:                    aws.String(physical[a.ID]),
			ProtocolType:             gwtypes.ProtocolTypeWebsocket,
			RouteSelectionExpression: aws.String(a.RouteSelection),
		}, nil).Maybe()
		m.gateway.On("RouteKeys", mock.Anything, physical[a.ID]).Return(keys, nil).Maybe()
		for _, stage := range a.Stages {
			m.gateway.On("Stage", mock.Anything, physical[a.ID], stage.Name).Return(gwtypes.Stage{
				StageName:  aws.String(stage.Name),
				AutoDeploy: aws.Bool(stage.AutoDeploy),
			}, nil).Maybe()
		}
	}

	m.function.On("Simulate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]function.Decision{}, nil).Maybe()
}

func checked(findings []Finding) []string {
	var names []string
	for _, f := range findings {
		names = append(names, f.Resource+"/"+f.Check)
	}
	return names
}

func TestVerify(t *testing.T) {
	ctx := context.Background()

	cfg := fixturemock.Config()
	resolved := fixturemock.Resolved(t, cfg)
	live := fixturemock.Live(t, resolved)
	deployed := fixturemock.Physical(resolved)

	lambdaRole, _ := live.Attribute(training.LambdaRole, topology.AttrArn)

	tests := []struct {
		name     string
		physical func(map[string]string)
		setup    func(mocks, map[string]string)
		test     func(*testing.T, []Finding, error, mocks, map[string]string)
	}{
		{
			name: "convention.Verify reports nothing for a matching stack.",
			test: func(t *testing.T, findings []Finding, err error, m mocks, physical map[string]string) {
				require.NoError(t, err)
				assert.Empty(t, findings)
			},
		},
		{
			name: "convention.Verify simulates grants against live api ids.",
			test: func(t *testing.T, findings []Finding, err error, m mocks, physical map[string]string) {
				require.NoError(t, err)
				m.function.AssertCalled(t, "Simulate", mock.Anything, lambdaRole,
					[]string{"execute-api:ManageConnections"},
					[]string{"arn:aws:execute-api:" + fixturemock.Region + ":" + fixturemock.Account + ":" + physical[training.AudioStreamApi] + "/*"},
				)
			},
		},
		{
			name: "convention.Verify skips wildcard actions.",
			test: func(t *testing.T, findings []Finding, err error, m mocks, physical map[string]string) {
				require.NoError(t, err)
				for _, call := range m.function.Calls {
					if call.Method != "Simulate" {
						continue
					}
					for _, action := range call.Arguments.Get(2).([]string) {
						assert.NotContains(t, action, "*")
					}
				}
			},
		},
		{
			name: "convention.Verify reports resources missing from the stack.",
			physical: func(physical map[string]string) {
				delete(physical, training.WeightsBucket)
			},
			test: func(t *testing.T, findings []Finding, err error, m mocks, physical map[string]string) {
				require.NoError(t, err)
				assert.Contains(t, checked(findings), training.WeightsBucket+"/exists")
				m.bucket.AssertNumberOfCalls(t, "Inspect", 1)
			},
		},
		{
			name: "convention.Verify reports bucket settings.",
			setup: func(m mocks, physical map[string]string) {
				m.bucket.On("Inspect", mock.Anything, physical[training.TrainingDataBucket]).Return(bucket.Settings{Versioned: false}, nil).Once()
			},
			test: func(t *testing.T, findings []Finding, err error, m mocks, physical map[string]string) {
				require.NoError(t, err)
				assert.ElementsMatch(t, []string{
					training.TrainingDataBucket + "/versioning",
					training.TrainingDataBucket + "/encryption",
					training.TrainingDataBucket + "/cors",
				}, checked(findings))
			},
		},
		{
			name: "convention.Verify reports a missing registry.",
			setup: func(m mocks, physical map[string]string) {
				m.registry.On("Inspect", mock.Anything, training.RepositoryName).Return(ecrtypes.Repository{}, registry.ErrRepositoryNotFound).Once()
			},
			test: func(t *testing.T, findings []Finding, err error, m mocks, physical map[string]string) {
				require.NoError(t, err)
				assert.Equal(t, []string{training.ModelRegistry + "/exists"}, checked(findings))
			},
		},
		{
			name: "convention.Verify reports attached policies it did not declare.",
			setup: func(m mocks, physical map[string]string) {
				m.function.On("AttachedPolicies", mock.Anything, physical[training.SageMakerRole]).Return([]string{"arn:aws:iam::aws:policy/AmazonS3FullAccess"}, nil).Once()
			},
			test: func(t *testing.T, findings []Finding, err error, m mocks, physical map[string]string) {
				require.NoError(t, err)
				require.Len(t, findings, 1)
				assert.Equal(t, training.SageMakerRole, findings[0].Resource)
				assert.Equal(t, "managed-policies", findings[0].Check)
				assert.Equal(t, "arn:aws:iam::aws:policy/AmazonS3FullAccess", findings[0].Actual)
			},
		},
		{
			name: "convention.Verify reports a drifted handler.",
			setup: func(m mocks, physical map[string]string) {
				m.function.On("Inspect", mock.Anything, physical[training.UploadHandler]).Return(&lambda.GetFunctionConfigurationOutput{
					Timeout:    aws.Int32(3),
					MemorySize: aws.Int32(training.HandlerMemory),
					Role:       aws.String("arn:aws:iam::123456789012:role/other"),
				}, nil).Once()
			},
			test: func(t *testing.T, findings []Finding, err error, m mocks, physical map[string]string) {
				require.NoError(t, err)
				assert.ElementsMatch(t, []string{
					training.UploadHandler + "/timeout",
					training.UploadHandler + "/identity",
					training.UploadHandler + "/environment TRAINING_BUCKET",
					training.UploadHandler + "/environment WEIGHTS_BUCKET",
				}, checked(findings))
			},
		},
		{
			name: "convention.Verify reports stream routes and stages.",
			setup: func(m mocks, physical map[string]string) {
				apiId := physical[training.AudioStreamApi]
				m.gateway.On("InspectApi", mock.Anything, apiId).Return(&apigatewayv2.GetApiOutput{
					ProtocolType:             gwtypes.ProtocolTypeHttp,
					RouteSelectionExpression: aws.String("$request.body.action"),
				}, nil).Once()
				m.gateway.On("RouteKeys", mock.Anything, apiId).Return([]string{topology.RouteConnect}, nil).Once()
				m.gateway.On("Stage", mock.Anything, apiId, training.StageName).Return(gwtypes.Stage{}, &smithy.GenericAPIError{Code: "NotFoundException"}).Once()
			},
			test: func(t *testing.T, findings []Finding, err error, m mocks, physical map[string]string) {
				require.NoError(t, err)
				assert.Equal(t, []string{
					training.AudioStreamApi + "/protocol",
					training.AudioStreamApi + "/routes",
					training.AudioStreamApi + "/stage",
				}, checked(findings))
			},
		},
		{
			name: "convention.Verify reports denied grants.",
			setup: func(m mocks, physical map[string]string) {
				m.function.On("Simulate", mock.Anything, lambdaRole, []string{"iam:PassRole"}, mock.Anything).Return([]function.Decision{
					{Action: "iam:PassRole", Resource: "arn", Allowed: false, Detail: "implicitDeny"},
				}, nil).Once()
			},
			test: func(t *testing.T, findings []Finding, err error, m mocks, physical map[string]string) {
				require.NoError(t, err)
				require.Len(t, findings, 1)
				assert.Equal(t, training.TrainingHandler, findings[0].Resource)
				assert.Equal(t, "implicitDeny", findings[0].Actual)
				assert.Equal(t, "TrainingJobAPIHandler permission iam:PassRole on arn: expected allowed, got implicitDeny", findings[0].String())
			},
		},
		{
			name: "convention.Verify surfaces stack errors.",
			setup: func(m mocks, physical map[string]string) {
				m.stack.On("Resources", mock.Anything, cfg.StackName).Return(map[string]string{}, fmt.Errorf("throttled")).Once()
			},
			test: func(t *testing.T, findings []Finding, err error, m mocks, physical map[string]string) {
				assert.EqualError(t, err, "throttled")
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := mocks{
				stack:    &servicemock.MockStackService{},
				bucket:   &servicemock.MockBucketService{},
				registry: &servicemock.MockRegistryService{},
				function: &servicemock.MockFunctionService{},
				gateway:  &servicemock.MockGatewayService{},
			}

			physical := maps.Clone(deployed)
			if tc.physical != nil {
				tc.physical(physical)
			}

			if tc.setup != nil {
				tc.setup(m, physical)
			}
			healthy(t, m, cfg.StackName, live, physical)

			c := FromServices(cfg, m.stack, m.bucket, m.registry, m.function, m.gateway)
			findings, err := c.Verify(ctx, resolved)
			tc.test(t, findings, err, m, physical)

			m.stack.AssertExpectations(t)
			m.bucket.AssertExpectations(t)
			m.registry.AssertExpectations(t)
			m.function.AssertExpectations(t)
			m.gateway.AssertExpectations(t)
		})
	}
}
