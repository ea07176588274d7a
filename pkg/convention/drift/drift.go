package drift

import (
	"context"
	"fmt"

	"github.com/linecard/trainstack/pkg/convention/config"
	"github.com/linecard/trainstack/pkg/service/bucket"
	"github.com/linecard/trainstack/pkg/service/function"
	"github.com/linecard/trainstack/pkg/topology"

	"github.com/aws/aws-sdk-go-v2/service/apigatewayv2"
	gwtypes "github.com/aws/aws-sdk-go-v2/service/apigatewayv2/types"
	ecrtypes "github.com/aws/aws-sdk-go-v2/service/ecr/types"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type StackService interface {
	Resources(ctx context.Context, name string) (map[string]string, error)
}

type BucketService interface {
	Inspect(ctx context.Context, name string) (bucket.Settings, error)
}

type RegistryService interface {
	Inspect(ctx context.Context, name string) (ecrtypes.Repository, error)
}

type FunctionService interface {
	Inspect(ctx context.Context, name string) (*lambda.GetFunctionConfigurationOutput, error)
	InspectRole(ctx context.Context, name string) (iamtypes.Role, function.TrustDocument, error)
	AttachedPolicies(ctx context.Context, roleName string) ([]string, error)
	Simulate(ctx context.Context, roleArn string, actions, resources []string) ([]function.Decision, error)
}

type GatewayService interface {
	InspectApi(ctx context.Context, apiId string) (*apigatewayv2.GetApiOutput, error)
	RouteKeys(ctx context.Context, apiId string) ([]string, error)
	Stage(ctx context.Context, apiId, name string) (gwtypes.Stage, error)
}

// Finding is one difference between the resolved topology and what is provisioned.
type Finding struct {
	Resource string
	Check    string
	Expected string
	Actual   string
}

func (f Finding) String() string {
	return fmt.Sprintf("%s %s: expected %s, got %s", f.Resource, f.Check, f.Expected, f.Actual)
}

type Services struct {
	Stack    StackService
	Bucket   BucketService
	Registry RegistryService
	Function FunctionService
	Gateway  GatewayService
}

type Convention struct {
	Config  config.Config
	Service Services
}

func FromServices(c config.Config, s StackService, b BucketService, r RegistryService, f FunctionService, g GatewayService) Convention {
	return Convention{
		Config: c,
		Service: Services{
			Stack:    s,
			Bucket:   b,
			Registry: r,
			Function: f,
			Gateway:  g,
		},
	}
}

type check func(ctx context.Context, live topology.Resolved, physical map[string]string) ([]Finding, error)

// Verify compares the deployed stack to resolved. The topology is first rebound to the physical ids
// the stack reports, so generated identifiers that only exist after provisioning are compared by
// their live values.
func (c Convention) Verify(ctx context.Context, resolved topology.Resolved) ([]Finding, error) {
	ctx, span := otel.Tracer("").Start(ctx, "drift.Verify")
	defer span.End()

	span.SetAttributes(attribute.String("stack", c.Config.StackName))

	physical, err := c.Service.Stack.Resources(ctx, c.Config.StackName)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	live, err := topology.Rebind(resolved.Graph, physical)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var findings []Finding
	for _, id := range resolved.Graph.Order() {
		if physical[id] == "" {
			findings = append(findings, Finding{Resource: id, Check: "exists", Expected: "provisioned", Actual: "missing"})
		}
	}

	checks := []check{
		c.containers,
		c.repositories,
		c.identities,
		c.handlers,
		c.streams,
		c.permissions,
	}

	for _, run := range checks {
		found, err := run(ctx, live, physical)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		findings = append(findings, found...)
	}

	span.SetAttributes(attribute.Int("findings", len(findings)))
	log.Debug().Str("stack", c.Config.StackName).Int("findings", len(findings)).Msg("drift verified")

	return findings, nil
}
