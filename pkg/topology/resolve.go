package topology

import (
	"fmt"
	"sort"
	"strings"

	"github.com/linecard/trainstack/internal/util"
)

// Resolved is a graph whose generated identifiers and physical names have been computed.
type Resolved struct {
	Graph      *Graph
	Attributes map[Ref]string
	Outputs    map[string]string
}

// Resolve is the second build phase: it computes every attribute of every declared resource,
// then checks that each value in the graph evaluates and evaluates the outputs.
func Resolve(g *Graph) (Resolved, error) {
	return resolve(g, nil)
}

// Rebind resolves g against the physical ids a provisioning engine reports for it. Resources
// missing from physical keep their generated identifiers.
func Rebind(g *Graph, physical map[string]string) (Resolved, error) {
	return resolve(g, physical)
}

func resolve(g *Graph, physical map[string]string) (Resolved, error) {
	pick := func(id, generated string) string {
		if name, exists := physical[id]; exists && name != "" {
			return name
		}
		return generated
	}

	r := Resolved{
		Graph:      g,
		Attributes: map[Ref]string{},
		Outputs:    map[string]string{},
	}

	env := g.Env

	for _, c := range g.Containers {
		name := pick(c.ID, util.PhysicalName(g.Stack, c.ID, suffix(g, c.ID), 63, true))
		r.set(c.ID, AttrName, name)
		r.set(c.ID, AttrArn, "arn:"+env.Partition+":s3:::"+name)
	}

	for _, repo := range g.Repositories {
		r.set(repo.ID, AttrName, repo.Name)
		r.set(repo.ID, AttrArn, env.Arn("ecr", "repository/"+repo.Name))
		r.set(repo.ID, AttrUri, env.Account+".dkr.ecr."+env.Region+"."+env.URLSuffix+"/"+repo.Name)
	}

	for _, i := range g.Identities {
		name := pick(i.ID, util.PhysicalName(g.Stack, i.ID, strings.ToUpper(suffix(g, i.ID)), 64, false))
		r.set(i.ID, AttrName, name)
		r.set(i.ID, AttrArn, util.RoleArnFromName(env.Partition, env.Account, name))
	}

	for _, h := range g.Handlers {
		name := pick(h.ID, util.PhysicalName(g.Stack, h.ID, strings.ToUpper(suffix(g, h.ID)), 64, false))
		r.set(h.ID, AttrName, name)
		r.set(h.ID, AttrArn, env.Arn("lambda", "function:"+name))
	}

	for _, a := range g.SyncApis {
		r.set(a.ID, AttrId, pick(a.ID, apiId(g, a.ID)))
	}

	for _, a := range g.StreamApis {
		r.set(a.ID, AttrId, pick(a.ID, apiId(g, a.ID)))
	}

	if err := r.check(); err != nil {
		return Resolved{}, err
	}

	for _, o := range g.Outputs {
		value, err := r.Value(o.Value)
		if err != nil {
			return Resolved{}, fmt.Errorf("output %s: %w", o.Name, err)
		}
		r.Outputs[o.Name] = value
	}

	return r, nil
}

func (r Resolved) Value(v Value) (string, error) {
	var b strings.Builder
	for _, part := range v.Parts {
		if part.Ref == nil {
			b.WriteString(part.Literal)
			continue
		}

		resolved, exists := r.Attributes[*part.Ref]
		if !exists {
			return "", fmt.Errorf("%w: %s", ErrUnresolvedReference, part.Ref)
		}
		b.WriteString(resolved)
	}
	return b.String(), nil
}

func (r Resolved) Values(values []Value) ([]string, error) {
	resolved := make([]string, 0, len(values))
	for _, v := range values {
		s, err := r.Value(v)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, s)
	}
	return resolved, nil
}

// Attribute looks up a single resolved attribute.
func (r Resolved) Attribute(target string, attr Attr) (string, bool) {
	value, exists := r.Attributes[Ref{Target: target, Attr: attr}]
	return value, exists
}

// OutputNames returns the exported names sorted.
func (r Resolved) OutputNames() []string {
	names := make([]string, 0, len(r.Outputs))
	for name := range r.Outputs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r Resolved) set(target string, attr Attr, value string) {
	r.Attributes[Ref{Target: target, Attr: attr}] = value
}

func (r Resolved) check() error {
	g := r.Graph

	for _, i := range g.Identities {
		if _, err := r.Values(i.ManagedPolicies); err != nil {
			return fmt.Errorf("identity %s: %w", i.ID, err)
		}
	}

	for owner, statements := range g.Statements() {
		for _, s := range statements {
			if _, err := r.Values(s.Resources); err != nil {
				return fmt.Errorf("statement on %s: %w", owner, err)
			}
		}
	}

	for _, h := range g.Handlers {
		if _, exists := g.Identity(h.Identity); !exists {
			return fmt.Errorf("%w: handler %s identity %s", ErrUnresolvedReference, h.ID, h.Identity)
		}

		for key, value := range h.EffectiveEnvironment() {
			if _, err := r.Value(value); err != nil {
				return fmt.Errorf("handler %s environment %s: %w", h.ID, key, err)
			}
		}
	}

	return nil
}

func suffix(g *Graph, id string) string {
	return util.Digest(g.Env.Partition, g.Env.Account, g.Env.Region, g.Stack, id)[:12]
}

func apiId(g *Graph, id string) string {
	return util.Digest("api", g.Env.Partition, g.Env.Account, g.Env.Region, g.Stack, id)[:10]
}
