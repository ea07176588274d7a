package function

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/iam/types"
)

type Decision struct {
	Action   string
	Resource string
	Allowed  bool
	Detail   string
}

// Simulate evaluates the role's effective policies for every action on every resource.
func (s Service) Simulate(ctx context.Context, roleArn string, actions, resources []string) ([]Decision, error) {
	var decisions []Decision

	paginator := iam.NewSimulatePrincipalPolicyPaginator(s.Client.Iam, &iam.SimulatePrincipalPolicyInput{
		PolicySourceArn: aws.String(roleArn),
		ActionNames:     actions,
		ResourceArns:    resources,
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}

		for _, result := range page.EvaluationResults {
			decisions = append(decisions, Decision{
				Action:   aws.ToString(result.EvalActionName),
				Resource: aws.ToString(result.EvalResourceName),
				Allowed:  result.EvalDecision == types.PolicyEvaluationDecisionTypeAllowed,
				Detail:   string(result.EvalDecision),
			})
		}
	}

	return decisions, nil
}
