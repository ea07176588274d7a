package template

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/linecard/trainstack/pkg/topology"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/awslabs/goformation/v7/cloudformation"
	"github.com/awslabs/goformation/v7/cloudformation/apigateway"
	"github.com/awslabs/goformation/v7/cloudformation/apigatewayv2"
	"github.com/awslabs/goformation/v7/cloudformation/ecr"
	"github.com/awslabs/goformation/v7/cloudformation/iam"
	"github.com/awslabs/goformation/v7/cloudformation/lambda"
	"github.com/awslabs/goformation/v7/cloudformation/s3"
)

// rank orders declarations when a template carries no recorded order.
var rank = map[topology.Kind]int{
	topology.KindContainer:  0,
	topology.KindRepository: 0,
	topology.KindIdentity:   1,
	topology.KindHandler:    2,
	topology.KindSyncApi:    3,
	topology.KindStreamApi:  3,
}

func kindOf(res cloudformation.Resource) (topology.Kind, bool) {
	switch res.(type) {
	case *s3.Bucket:
		return topology.KindContainer, true
	case *ecr.Repository:
		return topology.KindRepository, true
	case *iam.Role:
		return topology.KindIdentity, true
	case *lambda.Function:
		return topology.KindHandler, true
	case *apigateway.RestApi:
		return topology.KindSyncApi, true
	case *apigatewayv2.Api:
		return topology.KindStreamApi, true
	}
	return "", false
}

type parser struct {
	t      *cloudformation.Template
	g      *topology.Graph
	ids    []string
	values valueParser
}

// Parse rebuilds the resource graph, permission statements and outputs from a template.
// Derived resources (permissions, methods, deployments, stages, integrations) are folded back
// into the API that generated them.
func Parse(t *cloudformation.Template, env topology.Env, stack string) (*topology.Graph, error) {
	g, err := topology.NewGraph(env, stack)
	if err != nil {
		return nil, err
	}

	p := &parser{
		t:      t,
		g:      g,
		values: valueParser{kinds: map[string]topology.Kind{}},
	}

	for id, res := range t.Resources {
		p.ids = append(p.ids, id)
		if kind, exists := kindOf(res); exists {
			p.values.kinds[id] = kind
		}
	}
	sort.Strings(p.ids)

	for _, id := range p.order() {
		if err := p.declare(id); err != nil {
			return nil, fmt.Errorf("%s: %w", id, err)
		}
	}

	if err := p.grants(); err != nil {
		return nil, err
	}

	if err := p.outputs(); err != nil {
		return nil, err
	}

	return g, nil
}

// metadataStrings reads a string list from template metadata. Synthesized templates hold
// []string, decoded ones []interface{}.
func metadataStrings(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []interface{}:
		values := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				values = append(values, s)
			}
		}
		return values
	}
	return nil
}

func (p *parser) order() []string {
	var ids []string
	seen := map[string]bool{}

	for _, id := range metadataStrings(p.t.Metadata[MetadataOrder]) {
		if _, exists := p.values.kinds[id]; exists && !seen[id] {
			ids = append(ids, id)
			seen[id] = true
		}
	}

	var rest []string
	for _, id := range p.ids {
		if _, exists := p.values.kinds[id]; exists && !seen[id] {
			rest = append(rest, id)
		}
	}

	sort.SliceStable(rest, func(i, j int) bool {
		return rank[p.values.kinds[rest[i]]] < rank[p.values.kinds[rest[j]]]
	})

	return append(ids, rest...)
}

func (p *parser) declare(id string) error {
	switch res := p.t.Resources[id].(type) {
	case *s3.Bucket:
		return p.g.AddContainer(parseContainer(id, res))
	case *ecr.Repository:
		return p.g.AddRepository(parseRepository(id, res))
	case *iam.Role:
		i, err := p.identity(id, res)
		if err != nil {
			return err
		}
		return p.g.AddIdentity(i)
	case *lambda.Function:
		h, err := p.handler(id, res)
		if err != nil {
			return err
		}
		return p.g.AddHandler(h)
	case *apigateway.RestApi:
		a, err := p.syncApi(id, res)
		if err != nil {
			return err
		}
		return p.g.AddSyncApi(a)
	case *apigatewayv2.Api:
		a, err := p.streamApi(id, res)
		if err != nil {
			return err
		}
		return p.g.AddStreamApi(a)
	}

	return nil
}

func parseContainer(id string, b *s3.Bucket) topology.BlobContainer {
	c := topology.BlobContainer{
		ID:         id,
		Versioned:  b.VersioningConfiguration != nil && b.VersioningConfiguration.Status == "Enabled",
		Encryption: topology.EncryptionUnencrypted,
	}

	if b.BucketEncryption != nil {
		for _, rule := range b.BucketEncryption.ServerSideEncryptionConfiguration {
			if rule.ServerSideEncryptionByDefault != nil && rule.ServerSideEncryptionByDefault.SSEAlgorithm == sseAlgorithm {
				c.Encryption = topology.EncryptionS3Managed
			}
		}
	}

	if b.CorsConfiguration != nil {
		for _, rule := range b.CorsConfiguration.CorsRules {
			c.Cors = append(c.Cors, topology.CorsRule{
				AllowedMethods: rule.AllowedMethods,
				AllowedOrigins: rule.AllowedOrigins,
				AllowedHeaders: rule.AllowedHeaders,
			})
		}
	}

	return c
}

func parseRepository(id string, r *ecr.Repository) topology.ImageRepository {
	policy := topology.DeletionPolicy(r.AWSCloudFormationDeletionPolicy)
	if policy == "" {
		policy = topology.Destroy
	}

	repo := topology.ImageRepository{
		ID:             id,
		Name:           aws.ToString(r.RepositoryName),
		DeletionPolicy: policy,
	}

	if r.ImageScanningConfiguration != nil {
		repo.ScanOnPush = aws.ToBool(r.ImageScanningConfiguration.ScanOnPush)
	}

	return repo
}

func (p *parser) identity(id string, r *iam.Role) (topology.ExecutionIdentity, error) {
	i := topology.ExecutionIdentity{ID: id}

	trust, err := decodeDocument(r.AssumeRolePolicyDocument)
	if err != nil {
		return i, fmt.Errorf("%w: trust document: %v", topology.ErrInvalidConfiguration, err)
	}

	for _, st := range trust.Statement {
		if services := st.Principal["Service"]; len(services) > 0 {
			i.TrustPrincipal = services[0]
			break
		}
	}

	i.ManagedPolicies, err = p.values.parseAll(r.ManagedPolicyArns)
	if err != nil {
		return i, err
	}

	return i, nil
}

func (p *parser) handler(id string, f *lambda.Function) (topology.Handler, error) {
	h := topology.Handler{
		ID:      id,
		Runtime: aws.ToString(f.Runtime),
		Entry:   aws.ToString(f.Handler),
	}

	if asset, ok := f.AWSCloudFormationMetadata[MetadataAsset].(string); ok {
		h.Code = asset
	}

	role, err := p.values.parse(f.Role)
	if err != nil {
		return h, err
	}
	if refs := role.Refs(); len(refs) == 1 {
		h.Identity = refs[0].Target
	}

	if f.Timeout != nil {
		h.Timeout = time.Duration(*f.Timeout) * time.Second
	}

	if f.MemorySize != nil {
		h.MemoryMB = int32(*f.MemorySize)
	}

	env := map[string]topology.Value{}
	if f.Environment != nil {
		for key, raw := range f.Environment.Variables {
			value, err := p.values.parse(raw)
			if err != nil {
				return h, fmt.Errorf("environment %s: %w", key, err)
			}
			env[key] = value
		}
	}

	h.TrainingJob, h.Environment, err = topology.TrainingJobFromEnvironment(env)
	if err != nil {
		return h, err
	}

	return h, nil
}

func (p *parser) syncApi(id string, api *apigateway.RestApi) (topology.SyncApi, error) {
	a := topology.SyncApi{
		ID:   id,
		Name: aws.ToString(api.Name),
	}

	paths := map[string]string{}
	var methodIds []string

	for _, rid := range p.ids {
		switch res := p.t.Resources[rid].(type) {
		case *apigateway.Stage:
			if refTarget(res.RestApiId) == id {
				a.StageName = aws.ToString(res.StageName)
			}
		case *apigateway.Resource:
			if refTarget(res.RestApiId) == id {
				paths[rid] = res.PathPart
			}
		case *apigateway.Method:
			if refTarget(res.RestApiId) == id {
				methodIds = append(methodIds, rid)
			}
		}
	}

	methods := map[string][]topology.SyncMethod{}
	for _, methodId := range methodIds {
		method := p.t.Resources[methodId].(*apigateway.Method)

		if method.HttpMethod == "OPTIONS" && method.Integration != nil && method.Integration.Type == "MOCK" {
			a.Preflight = parsePreflight(method)
			continue
		}

		path, exists := paths[refTarget(method.ResourceId)]
		if !exists {
			return a, fmt.Errorf("%w: method %s is not on a declared resource", topology.ErrUnresolvedReference, methodId)
		}

		if method.Integration == nil {
			return a, fmt.Errorf("%w: method %s has no integration", topology.ErrInvalidConfiguration, methodId)
		}

		uri, err := p.values.parse(aws.ToString(method.Integration.Uri))
		if err != nil {
			return a, fmt.Errorf("method %s: %w", methodId, err)
		}

		refs := uri.Refs()
		if len(refs) != 1 {
			return a, fmt.Errorf("%w: method %s does not integrate one handler", topology.ErrInvalidConfiguration, methodId)
		}

		methods[path] = append(methods[path], topology.SyncMethod{HTTPMethod: method.HttpMethod, Handler: refs[0].Target})
	}

	var parts []string
	for _, path := range paths {
		parts = append(parts, path)
	}
	sort.Strings(parts)

	for _, path := range parts {
		a.Resources = append(a.Resources, topology.SyncResource{PathPart: path, Methods: methods[path]})
	}

	return a, nil
}

func parsePreflight(method *apigateway.Method) topology.Preflight {
	var headers map[string]string
	for _, response := range method.Integration.IntegrationResponses {
		headers = response.ResponseParameters
	}

	unquote := func(key string) []string {
		s := strings.Trim(headers["method.response.header."+key], "'")
		if s == "" {
			return nil
		}
		return strings.Split(s, ",")
	}

	return topology.Preflight{
		AllowOrigins: unquote("Access-Control-Allow-Origin"),
		AllowMethods: unquote("Access-Control-Allow-Methods"),
		AllowHeaders: unquote("Access-Control-Allow-Headers"),
	}
}

func (p *parser) streamApi(id string, api *apigatewayv2.Api) (topology.StreamApi, error) {
	a := topology.StreamApi{
		ID:             id,
		Name:           aws.ToString(api.Name),
		RouteSelection: aws.ToString(api.RouteSelectionExpression),
	}

	for _, rid := range p.ids {
		switch res := p.t.Resources[rid].(type) {
		case *apigatewayv2.Route:
			if refTarget(res.ApiId) != id {
				continue
			}

			integration, ok := p.t.Resources[refTarget(aws.ToString(res.Target))].(*apigatewayv2.Integration)
			if !ok {
				return a, fmt.Errorf("%w: route %s has no integration", topology.ErrUnresolvedReference, rid)
			}

			uri, err := p.values.parse(aws.ToString(integration.IntegrationUri))
			if err != nil {
				return a, fmt.Errorf("route %s: %w", rid, err)
			}

			refs := uri.Refs()
			if len(refs) != 1 {
				return a, fmt.Errorf("%w: route %s does not integrate one handler", topology.ErrInvalidConfiguration, rid)
			}

			a.Routes = append(a.Routes, topology.StreamRoute{Key: res.RouteKey, Handler: refs[0].Target})

		case *apigatewayv2.Stage:
			if refTarget(res.ApiId) == id {
				a.Stages = append(a.Stages, topology.StreamStage{
					Name:       res.StageName,
					AutoDeploy: aws.ToBool(res.AutoDeploy),
				})
			}
		}
	}

	sort.Slice(a.Routes, func(i, j int) bool { return a.Routes[i].Key < a.Routes[j].Key })

	return a, nil
}

// grants replays every policy document onto its recorded owner, or onto the role it is
// attached to when no owner was recorded.
func (p *parser) grants() error {
	type owned struct {
		id     string
		owner  string
		policy *iam.Policy
	}

	var found []owned
	for _, id := range p.ids {
		policy, ok := p.t.Resources[id].(*iam.Policy)
		if !ok {
			continue
		}

		owner, _ := policy.AWSCloudFormationMetadata[MetadataOwner].(string)
		if owner == "" && len(policy.Roles) > 0 {
			owner = refTarget(policy.Roles[0])
		}

		found = append(found, owned{id: id, owner: owner, policy: policy})
	}

	position := map[string]int{}
	for i, id := range p.g.Order() {
		position[id] = i
	}

	sort.SliceStable(found, func(i, j int) bool {
		return position[found[i].owner] < position[found[j].owner]
	})

	for _, o := range found {
		document, err := decodeDocument(o.policy.PolicyDocument)
		if err != nil {
			return fmt.Errorf("%w: policy %s: %v", topology.ErrInvalidConfiguration, o.id, err)
		}

		for _, st := range document.Statement {
			resources, err := p.values.parseAll(st.Resource)
			if err != nil {
				return fmt.Errorf("policy %s: %w", o.id, err)
			}

			err = p.g.Grant(o.owner, topology.Statement{
				Effect:    topology.Effect(st.Effect),
				Actions:   st.Action,
				Resources: resources,
			})

			if err != nil {
				return fmt.Errorf("policy %s: %w", o.id, err)
			}
		}
	}

	return nil
}

func (p *parser) outputs() error {
	var names []string
	seen := map[string]bool{}

	for _, name := range metadataStrings(p.t.Metadata[MetadataOutputs]) {
		if _, exists := p.t.Outputs[name]; exists && !seen[name] {
			names = append(names, name)
			seen[name] = true
		}
	}

	var rest []string
	for name := range p.t.Outputs {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)

	for _, name := range append(names, rest...) {
		o := p.t.Outputs[name]

		value, err := p.values.parse(o.Value)
		if err != nil {
			return fmt.Errorf("output %s: %w", name, err)
		}

		err = p.g.AddOutput(topology.Output{Name: name, Value: value, Description: aws.ToString(o.Description)})
		if err != nil {
			return err
		}
	}

	return nil
}
