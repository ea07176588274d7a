package sdk

import (
	"context"
	"fmt"

	// config
	"github.com/linecard/trainstack/pkg/convention/config"

	// topology
	"github.com/linecard/trainstack/pkg/convention/training"
	"github.com/linecard/trainstack/pkg/topology"

	// services
	"github.com/linecard/trainstack/pkg/service/bucket"
	"github.com/linecard/trainstack/pkg/service/function"
	"github.com/linecard/trainstack/pkg/service/gateway"
	"github.com/linecard/trainstack/pkg/service/registry"
	"github.com/linecard/trainstack/pkg/service/stack"

	// conventions
	"github.com/linecard/trainstack/pkg/convention/deployment"
	"github.com/linecard/trainstack/pkg/convention/drift"

	// clients
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigatewayv2"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

type Clients struct {
	StsClient            *sts.Client
	CloudFormationClient *cloudformation.Client
	EcrClient            *ecr.Client
	LambdaClient         *lambda.Client
	IamClient            *iam.Client
	S3Client             *s3.Client
	ApiGatewayV2Client   *apigatewayv2.Client
}

type Services struct {
	Stack    stack.Service
	Bucket   bucket.Service
	Registry registry.Service
	Function function.Service
	Gateway  gateway.Service
}

type Conventions struct {
	Deployment deployment.Convention
	Drift      drift.Convention
}

type API struct {
	Conventions
	Config config.Config
}

// Init discovers configuration through the caller's credentials and wires every convention.
func Init(ctx context.Context, awsConfig aws.Config) (API, error) {
	clients, err := InitClients(ctx, awsConfig)
	if err != nil {
		return API{}, err
	}

	cfg, err := config.Discover(ctx, clients.StsClient, awsConfig)
	if err != nil {
		return API{}, err
	}

	services, err := InitServices(ctx, clients)
	if err != nil {
		return API{}, err
	}

	conventions, err := InitConventions(ctx, cfg, services)
	if err != nil {
		return API{}, err
	}

	return API{
		Conventions: conventions,
		Config:      cfg,
	}, nil
}

// Offline wires nothing that talks to AWS. Only Resolve is usable.
func Offline(cfg config.Config) API {
	return API{Config: cfg}
}

// Resolve builds the training topology for the configured environment.
func (a API) Resolve(ctx context.Context) (topology.Resolved, error) {
	if err := a.Config.Validate(); err != nil {
		return topology.Resolved{}, err
	}

	return training.Build(ctx, a.Config.Env, a.Config.StackName, training.Options{
		BroadTrainingAccess: a.Config.Options.BroadTrainingAccess,
	})
}

// Online fails for APIs built with Offline.
func (a API) Online() error {
	if a.Config.Offline || a.Deployment.Service.Stack == nil {
		return fmt.Errorf("%w: this command needs AWS credentials, drop --offline", topology.ErrInvalidConfiguration)
	}
	return nil
}

func InitConventions(ctx context.Context, cfg config.Config, services Services) (Conventions, error) {
	return Conventions{
		Deployment: deployment.FromServices(cfg, services.Stack),
		Drift:      drift.FromServices(cfg, services.Stack, services.Bucket, services.Registry, services.Function, services.Gateway),
	}, nil
}

func InitServices(ctx context.Context, clients Clients) (Services, error) {
	return Services{
		Stack:    stack.FromClients(clients.CloudFormationClient),
		Bucket:   bucket.FromClients(clients.S3Client),
		Registry: registry.FromClients(clients.EcrClient),
		Function: function.FromClients(clients.LambdaClient, clients.IamClient),
		Gateway:  gateway.FromClients(clients.ApiGatewayV2Client),
	}, nil
}

func InitClients(ctx context.Context, awsConfig aws.Config) (Clients, error) {
	return Clients{
		StsClient:            sts.NewFromConfig(awsConfig),
		CloudFormationClient: cloudformation.NewFromConfig(awsConfig),
		EcrClient:            ecr.NewFromConfig(awsConfig),
		LambdaClient:         lambda.NewFromConfig(awsConfig),
		IamClient:            iam.NewFromConfig(awsConfig),
		S3Client:             s3.NewFromConfig(awsConfig),
		ApiGatewayV2Client:   apigatewayv2.NewFromConfig(awsConfig),
	}, nil
}
