package function

import (
	"context"
	"fmt"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/iam/types"
	json "github.com/goccy/go-json"
)

type TrustPrincipal struct {
	Service any `json:"Service"`
}

type TrustStatement struct {
	Effect    string         `json:"Effect"`
	Principal TrustPrincipal `json:"Principal"`
	Action    any            `json:"Action"`
}

type TrustDocument struct {
	Version   string           `json:"Version"`
	Statement []TrustStatement `json:"Statement"`
}

// Principals lists the service principals allowed to assume the role.
func (d TrustDocument) Principals() []string {
	var principals []string
	for _, statement := range d.Statement {
		switch service := statement.Principal.Service.(type) {
		case string:
			principals = append(principals, service)
		case []any:
			for _, s := range service {
				if str, ok := s.(string); ok {
					principals = append(principals, str)
				}
			}
		}
	}
	return principals
}

func (s Service) InspectRole(ctx context.Context, name string) (types.Role, TrustDocument, error) {
	output, err := s.Client.Iam.GetRole(ctx, &iam.GetRoleInput{
		RoleName: aws.String(name),
	})

	if err != nil {
		return types.Role{}, TrustDocument{}, err
	}

	var trust TrustDocument
	if output.Role.AssumeRolePolicyDocument != nil {
		// IAM returns the document url encoded
		decoded, err := url.QueryUnescape(*output.Role.AssumeRolePolicyDocument)
		if err != nil {
			return types.Role{}, TrustDocument{}, fmt.Errorf("decoding trust policy of %s: %w", name, err)
		}

		if err := json.Unmarshal([]byte(decoded), &trust); err != nil {
			return types.Role{}, TrustDocument{}, fmt.Errorf("parsing trust policy of %s: %w", name, err)
		}
	}

	return *output.Role, trust, nil
}

func (s Service) AttachedPolicies(ctx context.Context, roleName string) ([]string, error) {
	var arns []string

	paginator := iam.NewListAttachedRolePoliciesPaginator(s.Client.Iam, &iam.ListAttachedRolePoliciesInput{
		RoleName: aws.String(roleName),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}

		for _, policy := range page.AttachedPolicies {
			arns = append(arns, aws.ToString(policy.PolicyArn))
		}
	}

	return arns, nil
}
