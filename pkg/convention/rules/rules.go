package rules

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/linecard/trainstack/pkg/topology"
)

var ErrPolicyViolation = errors.New("policy violation")

type Severity string

const (
	Error   Severity = "error"
	Warning Severity = "warning"
)

type Violation struct {
	Rule     string
	Resource string
	Severity Severity
	Message  string
}

func (v Violation) String() string {
	return fmt.Sprintf("[%s] %s: %s", v.Rule, v.Resource, v.Message)
}

// Expectations describes the API surface a topology must expose exactly.
type Expectations struct {
	Bindings         []topology.Binding
	PreflightHeaders []string
	StreamRoutes     []string
	StageName        string
}

type rule struct {
	name  string
	check func(topology.Resolved, Expectations) []Violation
}

var all = []rule{
	{"cors-methods", corsMethods},
	{"retain-registry", retainRegistry},
	{"handler-identity", handlerIdentity},
	{"dangling-reference", danglingReference},
	{"sync-bindings", syncBindings},
	{"stream-routes", streamRoutes},
	{"broad-managed-policy", broadManagedPolicy},
}

var (
	corsAllowed = []string{"GET", "POST", "PUT"}

	broadPolicies = []string{
		"AmazonSageMakerFullAccess",
		"AmazonS3FullAccess",
		"AdministratorAccess",
	}
)

// Check runs every rule and returns violations of both severities, ordered by rule.
func Check(r topology.Resolved, want Expectations) []Violation {
	var violations []Violation
	for _, rule := range all {
		for _, v := range rule.check(r, want) {
			v.Rule = rule.name
			if v.Severity == "" {
				v.Severity = Error
			}
			violations = append(violations, v)
		}
	}
	return violations
}

// Enforce fails when any error-level violation is found. Warnings never fail.
func Enforce(r topology.Resolved, want Expectations) error {
	var messages []string
	for _, v := range Check(r, want) {
		if v.Severity == Error {
			messages = append(messages, v.String())
		}
	}

	if len(messages) > 0 {
		return fmt.Errorf("%w: %s", ErrPolicyViolation, strings.Join(messages, "; "))
	}

	return nil
}

func corsMethods(r topology.Resolved, _ Expectations) []Violation {
	var violations []Violation
	for _, c := range r.Graph.Containers {
		if len(c.Cors) == 0 {
			violations = append(violations, Violation{Resource: c.ID, Message: "no CORS rule"})
			continue
		}

		for _, rule := range c.Cors {
			if !sameSet(rule.AllowedMethods, corsAllowed) {
				violations = append(violations, Violation{
					Resource: c.ID,
					Message:  fmt.Sprintf("CORS methods %v, want %v", rule.AllowedMethods, corsAllowed),
				})
			}

			if !sameSet(rule.AllowedOrigins, []string{"*"}) || !sameSet(rule.AllowedHeaders, []string{"*"}) {
				violations = append(violations, Violation{Resource: c.ID, Message: "CORS must allow any origin and header"})
			}
		}
	}
	return violations
}

func retainRegistry(r topology.Resolved, _ Expectations) []Violation {
	var violations []Violation
	for _, repo := range r.Graph.Repositories {
		if repo.DeletionPolicy != topology.Retain {
			violations = append(violations, Violation{
				Resource: repo.ID,
				Message:  fmt.Sprintf("deletion policy %q, want %q", repo.DeletionPolicy, topology.Retain),
			})
		}
	}
	return violations
}

func handlerIdentity(r topology.Resolved, _ Expectations) []Violation {
	var violations []Violation
	for _, h := range r.Graph.Handlers {
		if _, exists := r.Graph.Identity(h.Identity); !exists {
			violations = append(violations, Violation{Resource: h.ID, Message: fmt.Sprintf("identity %q is not declared", h.Identity)})
		}
	}
	return violations
}

func danglingReference(r topology.Resolved, _ Expectations) []Violation {
	var violations []Violation

	statements := r.Graph.Statements()
	owners := make([]string, 0, len(statements))
	for owner := range statements {
		owners = append(owners, owner)
	}
	sort.Strings(owners)

	for _, owner := range owners {
		for _, s := range statements[owner] {
			for _, resource := range s.Resources {
				if _, err := r.Value(resource); err != nil {
					violations = append(violations, Violation{Resource: owner, Message: err.Error()})
				}
			}
		}
	}

	return violations
}

func syncBindings(r topology.Resolved, want Expectations) []Violation {
	if len(r.Graph.SyncApis) != 1 {
		return []Violation{{Resource: "SyncApi", Message: fmt.Sprintf("%d REST APIs declared, want 1", len(r.Graph.SyncApis))}}
	}

	api := r.Graph.SyncApis[0]

	var violations []Violation

	got := bindingStrings(api.Bindings())
	expected := bindingStrings(want.Bindings)
	if !slices.Equal(got, expected) {
		violations = append(violations, Violation{
			Resource: api.ID,
			Message:  fmt.Sprintf("bindings %v, want %v", got, expected),
		})
	}

	if !sameSet(api.Preflight.AllowHeaders, want.PreflightHeaders) {
		violations = append(violations, Violation{
			Resource: api.ID,
			Message:  fmt.Sprintf("preflight headers %v, want %v", api.Preflight.AllowHeaders, want.PreflightHeaders),
		})
	}

	if api.StageName != want.StageName {
		violations = append(violations, Violation{Resource: api.ID, Message: fmt.Sprintf("stage %q, want %q", api.StageName, want.StageName)})
	}

	return violations
}

func streamRoutes(r topology.Resolved, want Expectations) []Violation {
	if len(r.Graph.StreamApis) != 1 {
		return []Violation{{Resource: "StreamApi", Message: fmt.Sprintf("%d WebSocket APIs declared, want 1", len(r.Graph.StreamApis))}}
	}

	api := r.Graph.StreamApis[0]

	var violations []Violation

	keys := []string{}
	handlers := map[string]bool{}
	for _, route := range api.Routes {
		keys = append(keys, route.Key)
		handlers[route.Handler] = true
	}

	if !sameSet(keys, want.StreamRoutes) {
		violations = append(violations, Violation{Resource: api.ID, Message: fmt.Sprintf("routes %v, want %v", keys, want.StreamRoutes)})
	}

	if len(handlers) != 1 {
		violations = append(violations, Violation{Resource: api.ID, Message: fmt.Sprintf("routes bound to %d handlers, want 1", len(handlers))})
	}

	if len(api.Stages) != 1 || api.Stages[0].Name != want.StageName || !api.Stages[0].AutoDeploy {
		violations = append(violations, Violation{
			Resource: api.ID,
			Message:  fmt.Sprintf("want exactly one auto-deployed stage %q", want.StageName),
		})
	}

	return violations
}

func broadManagedPolicy(r topology.Resolved, _ Expectations) []Violation {
	var violations []Violation
	for _, i := range r.Graph.Identities {
		for _, policy := range i.ManagedPolicies {
			arn, err := r.Value(policy)
			if err != nil {
				continue
			}

			for _, broad := range broadPolicies {
				if strings.HasSuffix(arn, ":policy/"+broad) {
					violations = append(violations, Violation{
						Resource: i.ID,
						Severity: Warning,
						Message:  "carries full-access managed policy " + broad,
					})
				}
			}
		}
	}
	return violations
}

func bindingStrings(bindings []topology.Binding) []string {
	s := make([]string, 0, len(bindings))
	for _, b := range bindings {
		s = append(s, b.String())
	}
	sort.Strings(s)
	return s
}

func sameSet(got, want []string) bool {
	a := append([]string{}, got...)
	b := append([]string{}, want...)
	sort.Strings(a)
	sort.Strings(b)
	return slices.Equal(a, b)
}
