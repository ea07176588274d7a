package template

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/linecard/trainstack/pkg/topology"

	"github.com/awslabs/goformation/v7/cloudformation"
	"github.com/awslabs/goformation/v7/cloudformation/apigateway"
	"github.com/awslabs/goformation/v7/cloudformation/apigatewayv2"
	"github.com/awslabs/goformation/v7/cloudformation/ecr"
	"github.com/awslabs/goformation/v7/cloudformation/iam"
	"github.com/awslabs/goformation/v7/cloudformation/lambda"
	"github.com/awslabs/goformation/v7/cloudformation/policies"
	"github.com/awslabs/goformation/v7/cloudformation/s3"
)

type synth struct {
	r   topology.Resolved
	g   *topology.Graph
	t   *cloudformation.Template
	env topology.Env
}

// Synthesize renders a resolved topology as a CloudFormation template.
func Synthesize(r topology.Resolved) (*cloudformation.Template, error) {
	if r.Graph == nil {
		return nil, fmt.Errorf("%w: nothing to synthesize", topology.ErrInvalidConfiguration)
	}

	t := cloudformation.NewTemplate()
	t.Description = r.Graph.Stack + " model training topology"
	t.Metadata = map[string]interface{}{
		MetadataOrder: r.Graph.Order(),
	}
	t.Parameters = cloudformation.Parameters{}
	t.Resources = cloudformation.Resources{}
	t.Outputs = cloudformation.Outputs{}

	s := &synth{
		r:   r,
		g:   r.Graph,
		env: r.Graph.Env,
		t:   t,
	}

	steps := []func() error{
		s.containers,
		s.repositories,
		s.identities,
		s.policies,
		s.handlers,
		s.syncApis,
		s.streamApis,
		s.outputs,
	}

	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}

	return s.t, nil
}

func (s *synth) add(id string, res cloudformation.Resource) error {
	if _, exists := s.t.Resources[id]; exists {
		return fmt.Errorf("%w: logical id %s", topology.ErrDuplicateResource, id)
	}
	s.t.Resources[id] = res
	return nil
}

func (s *synth) physical(id string) (string, error) {
	name, exists := s.r.Attribute(id, topology.AttrName)
	if !exists {
		return "", fmt.Errorf("%w: %s has no physical name", topology.ErrUnresolvedReference, id)
	}
	return name, nil
}

func (s *synth) containers() error {
	for _, c := range s.g.Containers {
		name, err := s.physical(c.ID)
		if err != nil {
			return err
		}

		bucket := &s3.Bucket{BucketName: cloudformation.String(name)}

		if c.Versioned {
			bucket.VersioningConfiguration = &s3.Bucket_VersioningConfiguration{Status: "Enabled"}
		}

		if c.Encryption == topology.EncryptionS3Managed {
			bucket.BucketEncryption = &s3.Bucket_BucketEncryption{
				ServerSideEncryptionConfiguration: []s3.Bucket_ServerSideEncryptionRule{
					{
						ServerSideEncryptionByDefault: &s3.Bucket_ServerSideEncryptionByDefault{SSEAlgorithm: sseAlgorithm},
					},
				},
			}
		}

		if len(c.Cors) > 0 {
			rules := make([]s3.Bucket_CorsRule, 0, len(c.Cors))
			for _, rule := range c.Cors {
				rules = append(rules, s3.Bucket_CorsRule{
					AllowedMethods: rule.AllowedMethods,
					AllowedOrigins: rule.AllowedOrigins,
					AllowedHeaders: rule.AllowedHeaders,
				})
			}
			bucket.CorsConfiguration = &s3.Bucket_CorsConfiguration{CorsRules: rules}
		}

		if err := s.add(c.ID, bucket); err != nil {
			return err
		}
	}
	return nil
}

func (s *synth) repositories() error {
	for _, repo := range s.g.Repositories {
		err := s.add(repo.ID, &ecr.Repository{
			RepositoryName: cloudformation.String(repo.Name),
			ImageScanningConfiguration: &ecr.Repository_ImageScanningConfiguration{
				ScanOnPush: cloudformation.Bool(repo.ScanOnPush),
			},
			AWSCloudFormationDeletionPolicy:      policies.DeletionPolicy(repo.DeletionPolicy),
			AWSCloudFormationUpdateReplacePolicy: policies.UpdateReplacePolicy(repo.DeletionPolicy),
		})

		if err != nil {
			return err
		}
	}
	return nil
}

func (s *synth) identities() error {
	for _, i := range s.g.Identities {
		name, err := s.physical(i.ID)
		if err != nil {
			return err
		}

		role := &iam.Role{
			RoleName:                 cloudformation.String(name),
			AssumeRolePolicyDocument: trustDocument(i.TrustPrincipal),
		}

		if len(i.ManagedPolicies) > 0 {
			role.ManagedPolicyArns = renderAll(i.ManagedPolicies)
		}

		if err := s.add(i.ID, role); err != nil {
			return err
		}
	}
	return nil
}

func policyId(owner string) string {
	return logicalId(owner, "Policy")
}

// roleOf is the identity whose role carries the owner's statements.
func (s *synth) roleOf(owner string) string {
	if h, exists := s.g.Handler(owner); exists {
		return h.Identity
	}
	return owner
}

func (s *synth) policies() error {
	statements := s.g.Statements()

	for _, owner := range s.g.Order() {
		owned, exists := statements[owner]
		if !exists {
			continue
		}

		document := policyDocument{Version: policyVersion}
		for _, st := range owned {
			document.Statement = append(document.Statement, policyStatement{
				Effect:   string(st.Effect),
				Action:   st.Actions,
				Resource: renderAll(st.Resources),
			})
		}

		err := s.add(policyId(owner), &iam.Policy{
			PolicyName:                policyId(owner),
			Roles:                     []string{cloudformation.Ref(s.roleOf(owner))},
			PolicyDocument:            document,
			AWSCloudFormationMetadata: map[string]interface{}{MetadataOwner: owner},
		})

		if err != nil {
			return err
		}
	}
	return nil
}

// rolePolicies lists the policies attached to a role, so functions wait for their permissions.
func (s *synth) rolePolicies(role string) []string {
	var ids []string
	for owner := range s.g.Statements() {
		if s.roleOf(owner) == role {
			ids = append(ids, policyId(owner))
		}
	}
	sort.Strings(ids)
	return ids
}

func (s *synth) handlers() error {
	if len(s.g.Handlers) == 0 {
		return nil
	}

	s.t.Parameters[ParamCodeBucket] = cloudformation.Parameter{Type: "String"}
	s.t.Parameters[ParamCodeKey] = cloudformation.Parameter{Type: "String"}

	for _, h := range s.g.Handlers {
		name, err := s.physical(h.ID)
		if err != nil {
			return err
		}

		fn := &lambda.Function{
			FunctionName: cloudformation.String(name),
			Runtime:      cloudformation.String(h.Runtime),
			Handler:      cloudformation.String(h.Entry),
			Code: &lambda.Function_Code{
				S3Bucket: cloudformation.String(cloudformation.Ref(ParamCodeBucket)),
				S3Key:    cloudformation.String(cloudformation.Ref(ParamCodeKey)),
			},
			Role:                       cloudformation.GetAtt(h.Identity, "Arn"),
			Timeout:                    cloudformation.Int(int(h.Timeout / time.Second)),
			MemorySize:                 cloudformation.Int(int(h.MemoryMB)),
			AWSCloudFormationDependsOn: s.rolePolicies(h.Identity),
			AWSCloudFormationMetadata:  map[string]interface{}{MetadataAsset: h.Code},
		}

		if env := h.EffectiveEnvironment(); len(env) > 0 {
			variables := make(map[string]string, len(env))
			for key, value := range env {
				variables[key] = render(value)
			}
			fn.Environment = &lambda.Function_Environment{Variables: variables}
		}

		if err := s.add(h.ID, fn); err != nil {
			return err
		}
	}
	return nil
}

func (s *synth) invocationUri(handler string) string {
	return render(topology.Join(
		topology.Lit("arn:"+s.env.Partition+":apigateway:"+s.env.Region+":lambda:path/2015-03-31/functions/"),
		topology.Attribute(handler, topology.AttrArn),
		topology.Lit("/invocations"),
	))
}

// permit lets an API invoke each of its handlers once.
func (s *synth) permit(api string, handlers []string) error {
	seen := map[string]bool{}
	for _, handler := range handlers {
		if seen[handler] {
			continue
		}
		seen[handler] = true

		err := s.add(logicalId(api, handler, "Permission"), &lambda.Permission{
			Action:       "lambda:InvokeFunction",
			FunctionName: cloudformation.GetAtt(handler, "Arn"),
			Principal:    "apigateway.amazonaws.com",
			SourceArn: cloudformation.String(render(topology.Join(
				topology.Lit("arn:"+s.env.Partition+":execute-api:"+s.env.Region+":"+s.env.Account+":"),
				topology.Attribute(api, topology.AttrId),
				topology.Lit("/*"),
			))),
		})

		if err != nil {
			return err
		}
	}
	return nil
}

func quoted(values []string) string {
	return "'" + strings.Join(values, ",") + "'"
}

func (s *synth) preflight(api, resource string, p topology.Preflight) *apigateway.Method {
	headers := map[string]string{
		"method.response.header.Access-Control-Allow-Headers": quoted(p.AllowHeaders),
		"method.response.header.Access-Control-Allow-Origin":  quoted(p.AllowOrigins),
		"method.response.header.Access-Control-Allow-Methods": quoted(p.AllowMethods),
	}

	declared := map[string]string{}
	for key := range headers {
		declared[key] = "true"
	}

	return &apigateway.Method{
		RestApiId:         cloudformation.Ref(api),
		ResourceId:        resource,
		HttpMethod:        "OPTIONS",
		AuthorizationType: cloudformation.String("NONE"),
		Integration: &apigateway.Method_Integration{
			Type:             "MOCK",
			RequestTemplates: map[string]string{"application/json": "{ statusCode: 200 }"},
			IntegrationResponses: []apigateway.Method_IntegrationResponse{
				{StatusCode: "204", ResponseParameters: headers},
			},
		},
		MethodResponses: []apigateway.Method_MethodResponse{
			{StatusCode: "204", ResponseParameters: declared},
		},
	}
}

func (s *synth) syncApis() error {
	for _, api := range s.g.SyncApis {
		if err := s.add(api.ID, &apigateway.RestApi{Name: cloudformation.String(api.Name)}); err != nil {
			return err
		}

		var methods []string
		var handlers []string
		hasPreflight := len(api.Preflight.AllowOrigins) > 0
		root := cloudformation.GetAtt(api.ID, "RootResourceId")

		if hasPreflight {
			id := logicalId(api.ID, "Root", "OPTIONS", "Method")
			if err := s.add(id, s.preflight(api.ID, root, api.Preflight)); err != nil {
				return err
			}
			methods = append(methods, id)
		}

		for _, resource := range api.Resources {
			resourceId := logicalId(api.ID, resource.PathPart, "Resource")
			err := s.add(resourceId, &apigateway.Resource{
				RestApiId: cloudformation.Ref(api.ID),
				ParentId:  root,
				PathPart:  resource.PathPart,
			})

			if err != nil {
				return err
			}

			for _, method := range resource.Methods {
				id := logicalId(api.ID, resource.PathPart, method.HTTPMethod, "Method")
				err := s.add(id, &apigateway.Method{
					RestApiId:         cloudformation.Ref(api.ID),
					ResourceId:        cloudformation.Ref(resourceId),
					HttpMethod:        method.HTTPMethod,
					AuthorizationType: cloudformation.String("NONE"),
					Integration: &apigateway.Method_Integration{
						Type:                  "AWS_PROXY",
						IntegrationHttpMethod: cloudformation.String("POST"),
						Uri:                   cloudformation.String(s.invocationUri(method.Handler)),
					},
				})

				if err != nil {
					return err
				}

				methods = append(methods, id)
				handlers = append(handlers, method.Handler)
			}

			if hasPreflight {
				id := logicalId(api.ID, resource.PathPart, "OPTIONS", "Method")
				if err := s.add(id, s.preflight(api.ID, cloudformation.Ref(resourceId), api.Preflight)); err != nil {
					return err
				}
				methods = append(methods, id)
			}
		}

		sort.Strings(methods)

		deploymentId := logicalId(api.ID, "Deployment")
		err := s.add(deploymentId, &apigateway.Deployment{
			RestApiId:                  cloudformation.Ref(api.ID),
			AWSCloudFormationDependsOn: methods,
		})

		if err != nil {
			return err
		}

		err = s.add(logicalId(api.ID, api.StageName, "Stage"), &apigateway.Stage{
			RestApiId:    cloudformation.Ref(api.ID),
			DeploymentId: cloudformation.String(cloudformation.Ref(deploymentId)),
			StageName:    cloudformation.String(api.StageName),
		})

		if err != nil {
			return err
		}

		if err := s.permit(api.ID, handlers); err != nil {
			return err
		}
	}
	return nil
}

func (s *synth) streamApis() error {
	for _, api := range s.g.StreamApis {
		err := s.add(api.ID, &apigatewayv2.Api{
			Name:                     cloudformation.String(api.Name),
			ProtocolType:             cloudformation.String("WEBSOCKET"),
			RouteSelectionExpression: cloudformation.String(api.RouteSelection),
		})

		if err != nil {
			return err
		}

		var routes []string
		var handlers []string
		integrations := map[string]string{}

		for _, route := range api.Routes {
			integrationId, exists := integrations[route.Handler]
			if !exists {
				integrationId = logicalId(api.ID, route.Handler, "Integration")
				integrations[route.Handler] = integrationId

				err := s.add(integrationId, &apigatewayv2.Integration{
					ApiId:           cloudformation.Ref(api.ID),
					IntegrationType: "AWS_PROXY",
					IntegrationUri:  cloudformation.String(s.invocationUri(route.Handler)),
				})

				if err != nil {
					return err
				}
			}

			routeId := logicalId(api.ID, route.Key, "Route")
			err := s.add(routeId, &apigatewayv2.Route{
				ApiId:             cloudformation.Ref(api.ID),
				RouteKey:          route.Key,
				AuthorizationType: cloudformation.String("NONE"),
				Target:            cloudformation.String(cloudformation.Join("", []string{"integrations/", cloudformation.Ref(integrationId)})),
			})

			if err != nil {
				return err
			}

			routes = append(routes, routeId)
			handlers = append(handlers, route.Handler)
		}

		sort.Strings(routes)

		for _, stage := range api.Stages {
			err := s.add(logicalId(api.ID, stage.Name, "Stage"), &apigatewayv2.Stage{
				ApiId:                      cloudformation.Ref(api.ID),
				StageName:                  stage.Name,
				AutoDeploy:                 cloudformation.Bool(stage.AutoDeploy),
				AWSCloudFormationDependsOn: routes,
			})

			if err != nil {
				return err
			}
		}

		if err := s.permit(api.ID, handlers); err != nil {
			return err
		}
	}
	return nil
}

func (s *synth) outputs() error {
	var names []string
	for _, o := range s.g.Outputs {
		s.t.Outputs[o.Name] = cloudformation.Output{
			Description: cloudformation.String(o.Description),
			Value:       render(o.Value),
		}
		names = append(names, o.Name)
	}

	s.t.Metadata[MetadataOutputs] = names
	return nil
}
