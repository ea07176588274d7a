package topology

import (
	"fmt"
)

// Graph is the declared resource graph of one stack. Resources may only reference resources
// declared before them.
type Graph struct {
	Env          Env
	Stack        string
	Containers   []BlobContainer
	Repositories []ImageRepository
	Identities   []ExecutionIdentity
	Handlers     []Handler
	SyncApis     []SyncApi
	StreamApis   []StreamApi
	Outputs      []Output

	order []string
	kinds map[string]Kind
}

func NewGraph(env Env, stack string) (*Graph, error) {
	if err := env.Validate(); err != nil {
		return nil, err
	}

	if stack == "" {
		return nil, fmt.Errorf("%w: stack name is required", ErrInvalidConfiguration)
	}

	return &Graph{
		Env:   env,
		Stack: stack,
		kinds: map[string]Kind{},
	}, nil
}

func (g *Graph) Kind(id string) (Kind, bool) {
	kind, exists := g.kinds[id]
	return kind, exists
}

// Order returns logical ids in declaration order.
func (g *Graph) Order() []string {
	return append([]string{}, g.order...)
}

func (g *Graph) AddContainer(c BlobContainer) error {
	if err := g.declare(c.ID, KindContainer); err != nil {
		return err
	}

	g.Containers = append(g.Containers, c)
	return nil
}

func (g *Graph) AddRepository(r ImageRepository) error {
	if r.Name == "" {
		return fmt.Errorf("%w: repository %s has no name", ErrInvalidConfiguration, r.ID)
	}

	if err := g.declare(r.ID, KindRepository); err != nil {
		return err
	}

	g.Repositories = append(g.Repositories, r)
	return nil
}

func (g *Graph) AddIdentity(i ExecutionIdentity) error {
	if i.TrustPrincipal == "" {
		return fmt.Errorf("%w: identity %s has no trust principal", ErrInvalidConfiguration, i.ID)
	}

	if err := g.checkValues(i.ID, i.ManagedPolicies...); err != nil {
		return err
	}

	if err := g.checkStatements(i.ID, i.Statements); err != nil {
		return err
	}

	if err := g.declare(i.ID, KindIdentity); err != nil {
		return err
	}

	g.Identities = append(g.Identities, i)
	return nil
}

func (g *Graph) AddHandler(h Handler) error {
	if h.Identity == "" {
		return fmt.Errorf("%w: handler %s is not bound to an identity", ErrInvalidConfiguration, h.ID)
	}

	if err := g.expect(h.ID, h.Identity, KindIdentity); err != nil {
		return err
	}

	for key, value := range h.Environment {
		if err := g.checkValues(h.ID+"."+key, value); err != nil {
			return err
		}
	}

	if h.TrainingJob != nil {
		if err := g.checkValues(h.ID, h.TrainingJob.Values()...); err != nil {
			return err
		}
	}

	if err := g.checkStatements(h.ID, h.Statements); err != nil {
		return err
	}

	if err := g.declare(h.ID, KindHandler); err != nil {
		return err
	}

	g.Handlers = append(g.Handlers, h)
	return nil
}

func (g *Graph) AddSyncApi(a SyncApi) error {
	seen := map[string]bool{}
	for _, resource := range a.Resources {
		if seen[resource.PathPart] {
			return fmt.Errorf("%w: %s declares /%s twice", ErrDuplicateResource, a.ID, resource.PathPart)
		}
		seen[resource.PathPart] = true

		for _, method := range resource.Methods {
			if err := g.expect(a.ID, method.Handler, KindHandler); err != nil {
				return err
			}
		}
	}

	if err := g.declare(a.ID, KindSyncApi); err != nil {
		return err
	}

	g.SyncApis = append(g.SyncApis, a)
	return nil
}

func (g *Graph) AddStreamApi(a StreamApi) error {
	seen := map[string]bool{}
	for _, route := range a.Routes {
		if seen[route.Key] {
			return fmt.Errorf("%w: %s declares route %s twice", ErrDuplicateResource, a.ID, route.Key)
		}
		seen[route.Key] = true

		if err := g.expect(a.ID, route.Handler, KindHandler); err != nil {
			return err
		}
	}

	if err := g.declare(a.ID, KindStreamApi); err != nil {
		return err
	}

	g.StreamApis = append(g.StreamApis, a)
	return nil
}

// Grant attaches a statement to an identity or handler. Every resource it names must already
// be declared, which is how grants scoped by generated identifiers are ordered after the
// resources that generate them.
func (g *Graph) Grant(owner string, s Statement) error {
	kind, exists := g.kinds[owner]
	if !exists {
		return fmt.Errorf("%w: grant owner %s is not declared", ErrUnresolvedReference, owner)
	}

	if err := g.checkStatements(owner, []Statement{s}); err != nil {
		return err
	}

	switch kind {
	case KindIdentity:
		for i := range g.Identities {
			if g.Identities[i].ID == owner {
				g.Identities[i].Statements = append(g.Identities[i].Statements, s)
			}
		}
	case KindHandler:
		for i := range g.Handlers {
			if g.Handlers[i].ID == owner {
				g.Handlers[i].Statements = append(g.Handlers[i].Statements, s)
			}
		}
	default:
		return fmt.Errorf("%w: %s is a %s and cannot hold permissions", ErrInvalidConfiguration, owner, kind)
	}

	return nil
}

func (g *Graph) AddOutput(o Output) error {
	for _, existing := range g.Outputs {
		if existing.Name == o.Name {
			return fmt.Errorf("%w: output %s", ErrDuplicateResource, o.Name)
		}
	}

	if err := g.checkValues("output "+o.Name, o.Value); err != nil {
		return err
	}

	g.Outputs = append(g.Outputs, o)
	return nil
}

func (g *Graph) Container(id string) (BlobContainer, bool) {
	for _, c := range g.Containers {
		if c.ID == id {
			return c, true
		}
	}
	return BlobContainer{}, false
}

func (g *Graph) Repository(id string) (ImageRepository, bool) {
	for _, r := range g.Repositories {
		if r.ID == id {
			return r, true
		}
	}
	return ImageRepository{}, false
}

func (g *Graph) Identity(id string) (ExecutionIdentity, bool) {
	for _, i := range g.Identities {
		if i.ID == id {
			return i, true
		}
	}
	return ExecutionIdentity{}, false
}

func (g *Graph) Handler(id string) (Handler, bool) {
	for _, h := range g.Handlers {
		if h.ID == id {
			return h, true
		}
	}
	return Handler{}, false
}

// Statements returns every permission statement in the graph keyed by owner.
func (g *Graph) Statements() map[string][]Statement {
	statements := map[string][]Statement{}
	for _, i := range g.Identities {
		if len(i.Statements) > 0 {
			statements[i.ID] = i.Statements
		}
	}
	for _, h := range g.Handlers {
		if len(h.Statements) > 0 {
			statements[h.ID] = h.Statements
		}
	}
	return statements
}

type Inventory struct {
	Containers    int
	Repositories  int
	Identities    int
	Handlers      int
	SyncApis      int
	SyncResources int
	StreamApis    int
	StreamStages  int
	Outputs       int
}

func (g *Graph) Inventory() Inventory {
	inv := Inventory{
		Containers:   len(g.Containers),
		Repositories: len(g.Repositories),
		Identities:   len(g.Identities),
		Handlers:     len(g.Handlers),
		SyncApis:     len(g.SyncApis),
		StreamApis:   len(g.StreamApis),
		Outputs:      len(g.Outputs),
	}

	for _, a := range g.SyncApis {
		inv.SyncResources += len(a.Resources)
	}

	for _, a := range g.StreamApis {
		inv.StreamStages += len(a.Stages)
	}

	return inv
}

func (g *Graph) declare(id string, kind Kind) error {
	if id == "" {
		return fmt.Errorf("%w: %s has no logical id", ErrInvalidConfiguration, kind)
	}

	if existing, exists := g.kinds[id]; exists {
		return fmt.Errorf("%w: %s already declared as %s", ErrDuplicateResource, id, existing)
	}

	if g.kinds == nil {
		g.kinds = map[string]Kind{}
	}

	g.kinds[id] = kind
	g.order = append(g.order, id)
	return nil
}

func (g *Graph) expect(from, id string, kind Kind) error {
	found, exists := g.kinds[id]
	if !exists {
		return fmt.Errorf("%w: %s references undeclared %s %s", ErrUnresolvedReference, from, kind, id)
	}

	if found != kind {
		return fmt.Errorf("%w: %s expects %s to be a %s, found %s", ErrInvalidConfiguration, from, id, kind, found)
	}

	return nil
}

func (g *Graph) checkStatements(owner string, statements []Statement) error {
	for _, s := range statements {
		if s.Effect != Allow && s.Effect != Deny {
			return fmt.Errorf("%w: %s has a statement with effect %q", ErrInvalidConfiguration, owner, s.Effect)
		}

		if len(s.Actions) == 0 || len(s.Resources) == 0 {
			return fmt.Errorf("%w: %s has a statement without actions or resources", ErrInvalidConfiguration, owner)
		}

		if err := g.checkValues(owner, s.Resources...); err != nil {
			return err
		}
	}
	return nil
}

func (g *Graph) checkValues(from string, values ...Value) error {
	for _, value := range values {
		for _, ref := range value.Refs() {
			kind, exists := g.kinds[ref.Target]
			if !exists {
				return fmt.Errorf("%w: %s references %s before it is declared", ErrUnresolvedReference, from, ref)
			}

			if !supports(kind, ref.Attr) {
				return fmt.Errorf("%w: %s has no attribute %s", ErrUnknownAttribute, kind, ref.Attr)
			}
		}
	}
	return nil
}

func supports(kind Kind, attr Attr) bool {
	for _, a := range Attributes[kind] {
		if a == attr {
			return true
		}
	}
	return false
}
