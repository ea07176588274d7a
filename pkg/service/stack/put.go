package stack

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog/log"
)

var ErrStackNotFound = errors.New("stack not found")

// Describe returns ErrStackNotFound when the stack has never been created or is fully deleted.
func (s Service) Describe(ctx context.Context, name string) (types.Stack, error) {
	var apiErr smithy.APIError

	output, err := s.Client.CloudFormation.DescribeStacks(ctx, &cloudformation.DescribeStacksInput{
		StackName: aws.String(name),
	})

	if errors.As(err, &apiErr) {
		if apiErr.ErrorCode() == "ValidationError" && strings.Contains(apiErr.ErrorMessage(), "does not exist") {
			return types.Stack{}, fmt.Errorf("%w: %s", ErrStackNotFound, name)
		}
	}

	if err != nil {
		return types.Stack{}, err
	}

	if len(output.Stacks) == 0 || output.Stacks[0].StackStatus == types.StackStatusDeleteComplete {
		return types.Stack{}, fmt.Errorf("%w: %s", ErrStackNotFound, name)
	}

	return output.Stacks[0], nil
}

// PutStack creates or updates the stack and waits for it to settle. An update with no changes
// is not an error.
func (s Service) PutStack(ctx context.Context, name, body string, parameters, tags map[string]string) (types.Stack, error) {
	var apiErr smithy.APIError

	existing, err := s.Describe(ctx, name)
	if errors.Is(err, ErrStackNotFound) {
		log.Info().Str("stack", name).Msg("creating stack")

		_, err := s.Client.CloudFormation.CreateStack(ctx, &cloudformation.CreateStackInput{
			StackName:    aws.String(name),
			TemplateBody: aws.String(body),
			Parameters:   toParameters(parameters),
			Tags:         toTags(tags),
			Capabilities: []types.Capability{types.CapabilityCapabilityNamedIam},
		})

		if err != nil {
			return types.Stack{}, err
		}

		waiter := cloudformation.NewStackCreateCompleteWaiter(s.Client.CloudFormation)
		if err := waiter.Wait(ctx, &cloudformation.DescribeStacksInput{StackName: aws.String(name)}, s.MaxWait); err != nil {
			return types.Stack{}, fmt.Errorf("waiting for %s to create: %w", name, err)
		}

		return s.Describe(ctx, name)
	}

	if err != nil {
		return types.Stack{}, err
	}

	if existing.StackStatus == types.StackStatusRollbackComplete {
		return types.Stack{}, fmt.Errorf("stack %s is in %s and must be destroyed before it can be deployed", name, existing.StackStatus)
	}

	log.Info().Str("stack", name).Str("status", string(existing.StackStatus)).Msg("updating stack")

	_, err = s.Client.CloudFormation.UpdateStack(ctx, &cloudformation.UpdateStackInput{
		StackName:    aws.String(name),
		TemplateBody: aws.String(body),
		Parameters:   toParameters(parameters),
		Tags:         toTags(tags),
		Capabilities: []types.Capability{types.CapabilityCapabilityNamedIam},
	})

	if errors.As(err, &apiErr) {
		if apiErr.ErrorCode() == "ValidationError" && strings.Contains(apiErr.ErrorMessage(), "No updates are to be performed") {
			log.Info().Str("stack", name).Msg("stack is up to date")
			return existing, nil
		}
	}

	if err != nil {
		return types.Stack{}, err
	}

	waiter := cloudformation.NewStackUpdateCompleteWaiter(s.Client.CloudFormation)
	if err := waiter.Wait(ctx, &cloudformation.DescribeStacksInput{StackName: aws.String(name)}, s.MaxWait); err != nil {
		return types.Stack{}, fmt.Errorf("waiting for %s to update: %w", name, err)
	}

	return s.Describe(ctx, name)
}

func (s Service) DeleteStack(ctx context.Context, name string) error {
	if _, err := s.Describe(ctx, name); err != nil {
		return err
	}

	_, err := s.Client.CloudFormation.DeleteStack(ctx, &cloudformation.DeleteStackInput{
		StackName: aws.String(name),
	})

	if err != nil {
		return err
	}

	waiter := cloudformation.NewStackDeleteCompleteWaiter(s.Client.CloudFormation)
	if err := waiter.Wait(ctx, &cloudformation.DescribeStacksInput{StackName: aws.String(name)}, s.MaxWait); err != nil {
		return fmt.Errorf("waiting for %s to delete: %w", name, err)
	}

	return nil
}

func toParameters(parameters map[string]string) []types.Parameter {
	keys := make([]string, 0, len(parameters))
	for key := range parameters {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var params []types.Parameter
	for _, key := range keys {
		params = append(params, types.Parameter{
			ParameterKey:   aws.String(key),
			ParameterValue: aws.String(parameters[key]),
		})
	}
	return params
}

func toTags(tags map[string]string) []types.Tag {
	keys := make([]string, 0, len(tags))
	for key := range tags {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var converted []types.Tag
	for _, key := range keys {
		converted = append(converted, types.Tag{
			Key:   aws.String(key),
			Value: aws.String(tags[key]),
		})
	}
	return converted
}
