package drift

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"strings"

	"github.com/linecard/trainstack/internal/util"
	"github.com/linecard/trainstack/pkg/service/registry"
	"github.com/linecard/trainstack/pkg/topology"

	"github.com/aws/aws-sdk-go-v2/aws"
	gwtypes "github.com/aws/aws-sdk-go-v2/service/apigatewayv2/types"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog/log"
)

func (c Convention) containers(ctx context.Context, live topology.Resolved, physical map[string]string) ([]Finding, error) {
	var findings []Finding

	for _, container := range live.Graph.Containers {
		name := physical[container.ID]
		if name == "" {
			continue
		}

		settings, err := c.Service.Bucket.Inspect(ctx, name)
		if err != nil {
			return nil, err
		}

		if settings.Versioned != container.Versioned {
			findings = append(findings, mismatch(container.ID, "versioning", strconv.FormatBool(container.Versioned), strconv.FormatBool(settings.Versioned)))
		}

		if container.Encryption == topology.EncryptionS3Managed && !slices.Contains(settings.Algorithms, string(s3types.ServerSideEncryptionAes256)) {
			findings = append(findings, mismatch(container.ID, "encryption", string(s3types.ServerSideEncryptionAes256), strings.Join(settings.Algorithms, ",")))
		}

		expected := make([]string, 0, len(container.Cors))
		for _, rule := range container.Cors {
			expected = append(expected, corsKey(rule.AllowedMethods, rule.AllowedOrigins, rule.AllowedHeaders))
		}

		actual := make([]string, 0, len(settings.Cors))
		for _, rule := range settings.Cors {
			actual = append(actual, corsKey(rule.AllowedMethods, rule.AllowedOrigins, rule.AllowedHeaders))
		}

		if !sameSet(expected, actual) {
			findings = append(findings, mismatch(container.ID, "cors", strings.Join(sorted(expected), " "), strings.Join(sorted(actual), " ")))
		}
	}

	return findings, nil
}

func (c Convention) repositories(ctx context.Context, live topology.Resolved, physical map[string]string) ([]Finding, error) {
	var findings []Finding

	for _, repo := range live.Graph.Repositories {
		if physical[repo.ID] == "" {
			continue
		}

		found, err := c.Service.Registry.Inspect(ctx, repo.Name)
		if errors.Is(err, registry.ErrRepositoryNotFound) {
			findings = append(findings, mismatch(repo.ID, "exists", repo.Name, "missing"))
			continue
		}

		if err != nil {
			return nil, err
		}

		scanning := found.ImageScanningConfiguration != nil && found.ImageScanningConfiguration.ScanOnPush
		if scanning != repo.ScanOnPush {
			findings = append(findings, mismatch(repo.ID, "scan-on-push", strconv.FormatBool(repo.ScanOnPush), strconv.FormatBool(scanning)))
		}
	}

	return findings, nil
}

func (c Convention) identities(ctx context.Context, live topology.Resolved, physical map[string]string) ([]Finding, error) {
	var findings []Finding

	for _, identity := range live.Graph.Identities {
		name := physical[identity.ID]
		if name == "" {
			continue
		}

		_, trust, err := c.Service.Function.InspectRole(ctx, name)
		if err != nil {
			return nil, err
		}

		principals := trust.Principals()
		if !slices.Contains(principals, identity.TrustPrincipal) {
			findings = append(findings, mismatch(identity.ID, "trust", identity.TrustPrincipal, strings.Join(principals, ",")))
		}

		expected, err := live.Values(identity.ManagedPolicies)
		if err != nil {
			return nil, err
		}

		attached, err := c.Service.Function.AttachedPolicies(ctx, name)
		if err != nil {
			return nil, err
		}

		if !sameSet(expected, attached) {
			findings = append(findings, mismatch(identity.ID, "managed-policies", strings.Join(sorted(expected), ","), strings.Join(sorted(attached), ",")))
		}
	}

	return findings, nil
}

func (c Convention) handlers(ctx context.Context, live topology.Resolved, physical map[string]string) ([]Finding, error) {
	var findings []Finding

	for _, handler := range live.Graph.Handlers {
		name := physical[handler.ID]
		if name == "" {
			continue
		}

		deployed, err := c.Service.Function.Inspect(ctx, name)
		if err != nil {
			return nil, err
		}

		if timeout := int32(handler.Timeout.Seconds()); timeout > 0 && aws.ToInt32(deployed.Timeout) != timeout {
			findings = append(findings, mismatch(handler.ID, "timeout", strconv.Itoa(int(timeout)), strconv.Itoa(int(aws.ToInt32(deployed.Timeout)))))
		}

		if handler.MemoryMB > 0 && aws.ToInt32(deployed.MemorySize) != handler.MemoryMB {
			findings = append(findings, mismatch(handler.ID, "memory", strconv.Itoa(int(handler.MemoryMB)), strconv.Itoa(int(aws.ToInt32(deployed.MemorySize)))))
		}

		role, _ := live.Attribute(handler.Identity, topology.AttrArn)
		if aws.ToString(deployed.Role) != role {
			findings = append(findings, mismatch(handler.ID, "identity", util.RoleNameFromArn(role), util.RoleNameFromArn(aws.ToString(deployed.Role))))
		}

		variables := map[string]string{}
		if deployed.Environment != nil {
			variables = deployed.Environment.Variables
		}

		environment := handler.EffectiveEnvironment()
		keys := make([]string, 0, len(environment))
		for key := range environment {
			keys = append(keys, key)
		}
		slices.Sort(keys)

		for _, key := range keys {
			want, err := live.Value(environment[key])
			if err != nil {
				return nil, err
			}

			got, exists := variables[key]
			if !exists {
				got = "unset"
			}

			if got != want {
				findings = append(findings, mismatch(handler.ID, "environment "+key, want, got))
			}
		}
	}

	return findings, nil
}

func (c Convention) streams(ctx context.Context, live topology.Resolved, physical map[string]string) ([]Finding, error) {
	var findings []Finding
	var apiErr smithy.APIError

	for _, api := range live.Graph.StreamApis {
		apiId := physical[api.ID]
		if apiId == "" {
			continue
		}

		deployedApi, err := c.Service.Gateway.InspectApi(ctx, apiId)
		if err != nil {
			return nil, err
		}

		if deployedApi.ProtocolType != gwtypes.ProtocolTypeWebsocket {
			findings = append(findings, mismatch(api.ID, "protocol", string(gwtypes.ProtocolTypeWebsocket), string(deployedApi.ProtocolType)))
		}

		if selection := aws.ToString(deployedApi.RouteSelectionExpression); selection != api.RouteSelection {
			findings = append(findings, mismatch(api.ID, "route-selection", api.RouteSelection, selection))
		}

		keys, err := c.Service.Gateway.RouteKeys(ctx, apiId)
		if err != nil {
			return nil, err
		}

		expected := make([]string, 0, len(api.Routes))
		for _, route := range api.Routes {
			expected = append(expected, route.Key)
		}

		if !sameSet(expected, keys) {
			findings = append(findings, mismatch(api.ID, "routes", strings.Join(sorted(expected), ","), strings.Join(sorted(keys), ",")))
		}

		for _, stage := range api.Stages {
			deployed, err := c.Service.Gateway.Stage(ctx, apiId, stage.Name)
			if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NotFoundException" {
				findings = append(findings, mismatch(api.ID, "stage", stage.Name, "missing"))
				continue
			}

			if err != nil {
				return nil, err
			}

			if aws.ToBool(deployed.AutoDeploy) != stage.AutoDeploy {
				findings = append(findings, mismatch(api.ID, "stage "+stage.Name+" auto-deploy", strconv.FormatBool(stage.AutoDeploy), strconv.FormatBool(aws.ToBool(deployed.AutoDeploy))))
			}
		}
	}

	return findings, nil
}

// permissions asks the policy simulator whether every granted action is actually allowed for the
// identity the grant lands on. Wildcard actions cannot be simulated and are skipped.
func (c Convention) permissions(ctx context.Context, live topology.Resolved, physical map[string]string) ([]Finding, error) {
	var findings []Finding

	statements := live.Graph.Statements()

	for _, owner := range live.Graph.Order() {
		identity := owner
		if handler, exists := live.Graph.Handler(owner); exists {
			identity = handler.Identity
		}

		if physical[identity] == "" {
			continue
		}

		roleArn, _ := live.Attribute(identity, topology.AttrArn)

		for _, statement := range statements[owner] {
			if statement.Effect != topology.Allow {
				continue
			}

			var actions []string
			for _, action := range statement.Actions {
				if strings.Contains(action, "*") {
					log.Debug().Str("owner", owner).Str("action", action).Msg("skipping wildcard action")
					continue
				}
				actions = append(actions, action)
			}

			if len(actions) == 0 {
				continue
			}

			resources, err := live.Values(statement.Resources)
			if err != nil {
				return nil, err
			}

			decisions, err := c.Service.Function.Simulate(ctx, roleArn, actions, resources)
			if err != nil {
				return nil, err
			}

			for _, decision := range decisions {
				if !decision.Allowed {
					findings = append(findings, mismatch(owner, "permission "+decision.Action+" on "+decision.Resource, "allowed", decision.Detail))
				}
			}
		}
	}

	return findings, nil
}

func mismatch(resource, check, expected, actual string) Finding {
	return Finding{Resource: resource, Check: check, Expected: expected, Actual: actual}
}

func corsKey(methods, origins, headers []string) string {
	return strings.Join(sorted(methods), ",") + "|" + strings.Join(sorted(origins), ",") + "|" + strings.Join(sorted(headers), ",")
}

func sorted(s []string) []string {
	c := slices.Clone(s)
	slices.Sort(c)
	return c
}

func sameSet(a, b []string) bool {
	return slices.Equal(sorted(a), sorted(b))
}
