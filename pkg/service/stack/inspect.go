package stack

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
)

// Resources maps logical ids to physical ids.
func (s Service) Resources(ctx context.Context, name string) (map[string]string, error) {
	resources := map[string]string{}

	paginator := cloudformation.NewListStackResourcesPaginator(s.Client.CloudFormation, &cloudformation.ListStackResourcesInput{
		StackName: aws.String(name),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}

		for _, summary := range page.StackResourceSummaries {
			resources[aws.ToString(summary.LogicalResourceId)] = aws.ToString(summary.PhysicalResourceId)
		}
	}

	return resources, nil
}

// Events returns the most recent stack events, newest first.
func (s Service) Events(ctx context.Context, name string, limit int) ([]types.StackEvent, error) {
	output, err := s.Client.CloudFormation.DescribeStackEvents(ctx, &cloudformation.DescribeStackEventsInput{
		StackName: aws.String(name),
	})

	if err != nil {
		return nil, err
	}

	events := output.StackEvents
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}

	return events, nil
}
