package deployment

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/linecard/trainstack/pkg/convention/config"
	"github.com/linecard/trainstack/pkg/convention/template"
	"github.com/linecard/trainstack/pkg/topology"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var ErrOutputMismatch = errors.New("deployed outputs do not match the topology")

type StackService interface {
	Describe(ctx context.Context, name string) (types.Stack, error)
	PutStack(ctx context.Context, name, body string, parameters, tags map[string]string) (types.Stack, error)
	DeleteStack(ctx context.Context, name string) error
	Events(ctx context.Context, name string, limit int) ([]types.StackEvent, error)
}

type Deployment struct {
	Stack   types.Stack
	Outputs map[string]string
}

type Status struct {
	Deployment
	Events []types.StackEvent
}

type Services struct {
	Stack StackService
}

type Convention struct {
	Config  config.Config
	Service Services
}

func FromServices(c config.Config, s StackService) Convention {
	return Convention{
		Config: c,
		Service: Services{
			Stack: s,
		},
	}
}

func (c Convention) Deploy(ctx context.Context, resolved topology.Resolved) (Deployment, error) {
	ctx, span := otel.Tracer("").Start(ctx, "deployment.Deploy")
	defer span.End()

	span.SetAttributes(attribute.String("stack", c.Config.StackName))

	if c.Config.Offline {
		err := fmt.Errorf("%w: cannot deploy without credentials", topology.ErrInvalidConfiguration)
		span.SetStatus(codes.Error, err.Error())
		return Deployment{}, err
	}

	if c.Config.Options.CodeBucket == "" || c.Config.Options.CodeKey == "" {
		err := fmt.Errorf("%w: handler bundle location is required (%s, %s)", topology.ErrInvalidConfiguration, config.EnvCodeBucket, config.EnvCodeKey)
		span.SetStatus(codes.Error, err.Error())
		return Deployment{}, err
	}

	tmpl, err := template.Synthesize(resolved)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Deployment{}, err
	}

	body, err := template.Compact(tmpl)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Deployment{}, err
	}

	log.Info().Str("stack", c.Config.StackName).Int("bytes", len(body)).Msg("submitting template")

	stack, err := c.Service.Stack.PutStack(ctx, c.Config.StackName, string(body), c.Config.Parameters(), c.Config.Tags())
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Deployment{}, err
	}

	deployment := Deployment{
		Stack:   stack,
		Outputs: outputs(stack),
	}

	if err := deployment.expect(resolved.OutputNames()); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return deployment, err
	}

	return deployment, nil
}

func (c Convention) Find(ctx context.Context) (Deployment, error) {
	ctx, span := otel.Tracer("").Start(ctx, "deployment.Find")
	defer span.End()

	stack, err := c.Service.Stack.Describe(ctx, c.Config.StackName)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Deployment{}, err
	}

	return Deployment{Stack: stack, Outputs: outputs(stack)}, nil
}

// Status is the deployed stack along with its most recent events.
func (c Convention) Status(ctx context.Context, limit int) (Status, error) {
	ctx, span := otel.Tracer("").Start(ctx, "deployment.Status")
	defer span.End()

	deployment, err := c.Find(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Status{}, err
	}

	events, err := c.Service.Stack.Events(ctx, c.Config.StackName, limit)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Status{}, err
	}

	return Status{Deployment: deployment, Events: events}, nil
}

// Destroy tears the stack down. The retained registry survives it.
func (c Convention) Destroy(ctx context.Context) error {
	ctx, span := otel.Tracer("").Start(ctx, "deployment.Destroy")
	defer span.End()

	if err := c.Service.Stack.DeleteStack(ctx, c.Config.StackName); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	log.Info().Str("stack", c.Config.StackName).Msg("stack destroyed")
	return nil
}

func (d Deployment) expect(names []string) error {
	deployed := make([]string, 0, len(d.Outputs))
	for name := range d.Outputs {
		deployed = append(deployed, name)
	}
	slices.Sort(deployed)

	if !slices.Equal(deployed, names) {
		return fmt.Errorf("%w: expected %v, got %v", ErrOutputMismatch, names, deployed)
	}

	return nil
}

func outputs(stack types.Stack) map[string]string {
	outputs := make(map[string]string, len(stack.Outputs))
	for _, o := range stack.Outputs {
		outputs[aws.ToString(o.OutputKey)] = aws.ToString(o.OutputValue)
	}
	return outputs
}
