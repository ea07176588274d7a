package function

import (
	"context"
	"net/url"
	"testing"

	clientmock "github.com/linecard/trainstack/pkg/mock/client"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestFunction(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		setup func(*clientmock.MockLambdaClient, *clientmock.MockIAMClient)
		test  func(*testing.T, Service)
	}{
		{
			name: "Inspect reads the function configuration",
			setup: func(ml *clientmock.MockLambdaClient, mi *clientmock.MockIAMClient) {
				ml.On("GetFunctionConfiguration", ctx, &lambda.GetFunctionConfigurationInput{FunctionName: aws.String("fn")}).Return(&lambda.GetFunctionConfigurationOutput{
					Timeout: aws.Int32(30),
				}, nil)
			},
			test: func(t *testing.T, s Service) {
				out, err := s.Inspect(ctx, "fn")
				require.NoError(t, err)
				assert.Equal(t, int32(30), aws.ToInt32(out.Timeout))
			},
		},
		{
			name: "InspectRole decodes the url encoded trust policy",
			setup: func(ml *clientmock.MockLambdaClient, mi *clientmock.MockIAMClient) {
				document := `{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"Service":["lambda.amazonaws.com","edgelambda.amazonaws.com"]},"Action":"sts:AssumeRole"}]}`
				mi.On("GetRole", ctx, &iam.GetRoleInput{RoleName: aws.String("role")}).Return(&iam.GetRoleOutput{
					Role: &types.Role{
						RoleName:                 aws.String("role"),
						AssumeRolePolicyDocument: aws.String(url.QueryEscape(document)),
					},
				}, nil)
			},
			test: func(t *testing.T, s Service) {
				role, trust, err := s.InspectRole(ctx, "role")
				require.NoError(t, err)
				assert.Equal(t, "role", aws.ToString(role.RoleName))
				assert.Equal(t, []string{"lambda.amazonaws.com", "edgelambda.amazonaws.com"}, trust.Principals())
			},
		},
		{
			name: "AttachedPolicies lists policy arns",
			setup: func(ml *clientmock.MockLambdaClient, mi *clientmock.MockIAMClient) {
				mi.On("ListAttachedRolePolicies", mock.Anything, mock.Anything).Return(&iam.ListAttachedRolePoliciesOutput{
					AttachedPolicies: []types.AttachedPolicy{
						{PolicyArn: aws.String("arn:aws:iam::aws:policy/service-role/AWSLambdaBasicExecutionRole")},
					},
				}, nil)
			},
			test: func(t *testing.T, s Service) {
				arns, err := s.AttachedPolicies(ctx, "role")
				require.NoError(t, err)
				assert.Equal(t, []string{"arn:aws:iam::aws:policy/service-role/AWSLambdaBasicExecutionRole"}, arns)
			},
		},
		{
			name: "Simulate reports each decision",
			setup: func(ml *clientmock.MockLambdaClient, mi *clientmock.MockIAMClient) {
				mi.On("SimulatePrincipalPolicy", mock.Anything, mock.MatchedBy(func(in *iam.SimulatePrincipalPolicyInput) bool {
					return aws.ToString(in.PolicySourceArn) == "arn:aws:iam::123456789012:role/role" && len(in.ActionNames) == 2
				})).Return(&iam.SimulatePrincipalPolicyOutput{
					EvaluationResults: []types.EvaluationResult{
						{EvalActionName: aws.String("s3:GetObject"), EvalResourceName: aws.String("arn:aws:s3:::b/*"), EvalDecision: types.PolicyEvaluationDecisionTypeAllowed},
						{EvalActionName: aws.String("s3:PutObject"), EvalResourceName: aws.String("arn:aws:s3:::b/*"), EvalDecision: types.PolicyEvaluationDecisionTypeImplicitDeny},
					},
				}, nil)
			},
			test: func(t *testing.T, s Service) {
				decisions, err := s.Simulate(ctx, "arn:aws:iam::123456789012:role/role", []string{"s3:GetObject", "s3:PutObject"}, []string{"arn:aws:s3:::b/*"})
				require.NoError(t, err)
				require.Len(t, decisions, 2)
				assert.True(t, decisions[0].Allowed)
				assert.False(t, decisions[1].Allowed)
				assert.Equal(t, "implicitDeny", decisions[1].Detail)
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ml := &clientmock.MockLambdaClient{}
			mi := &clientmock.MockIAMClient{}
			tc.setup(ml, mi)

			tc.test(t, FromClients(ml, mi))

			ml.AssertExpectations(t)
			mi.AssertExpectations(t)
		})
	}
}
