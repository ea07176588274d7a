package topology

import (
	"time"
)

type Kind string

const (
	KindContainer  Kind = "BlobContainer"
	KindRepository Kind = "ImageRepository"
	KindIdentity   Kind = "ExecutionIdentity"
	KindHandler    Kind = "Handler"
	KindSyncApi    Kind = "SyncApi"
	KindStreamApi  Kind = "StreamApi"
)

// Attributes lists what each kind of resource exposes to references.
var Attributes = map[Kind][]Attr{
	KindContainer:  {AttrName, AttrArn},
	KindRepository: {AttrName, AttrArn, AttrUri},
	KindIdentity:   {AttrName, AttrArn},
	KindHandler:    {AttrName, AttrArn},
	KindSyncApi:    {AttrId},
	KindStreamApi:  {AttrId},
}

type Effect string

const (
	Allow Effect = "Allow"
	Deny  Effect = "Deny"
)

type Statement struct {
	Effect    Effect
	Actions   []string
	Resources []Value
}

type EncryptionMode string

const (
	EncryptionS3Managed   EncryptionMode = "S3_MANAGED"
	EncryptionUnencrypted EncryptionMode = "UNENCRYPTED"
)

type CorsRule struct {
	AllowedMethods []string
	AllowedOrigins []string
	AllowedHeaders []string
}

type BlobContainer struct {
	ID         string
	Versioned  bool
	Encryption EncryptionMode
	Cors       []CorsRule
}

type DeletionPolicy string

const (
	Retain  DeletionPolicy = "Retain"
	Destroy DeletionPolicy = "Delete"
)

type ImageRepository struct {
	ID             string
	Name           string
	ScanOnPush     bool
	DeletionPolicy DeletionPolicy
}

type ExecutionIdentity struct {
	ID              string
	TrustPrincipal  string
	ManagedPolicies []Value
	Statements      []Statement
}

type Handler struct {
	ID          string
	Runtime     string
	Code        string
	Entry       string
	Environment map[string]Value
	TrainingJob *TrainingJobTemplate
	Timeout     time.Duration
	MemoryMB    int32
	Identity    string
	Statements  []Statement
}

// EffectiveEnvironment is what the handler receives at runtime: its own mapping plus the
// discrete keys of any structured template it carries.
func (h Handler) EffectiveEnvironment() map[string]Value {
	env := make(map[string]Value, len(h.Environment))
	for k, v := range h.Environment {
		env[k] = v
	}

	if h.TrainingJob != nil {
		for k, v := range h.TrainingJob.Environment() {
			env[k] = v
		}
	}

	return env
}

type Preflight struct {
	AllowOrigins []string
	AllowMethods []string
	AllowHeaders []string
}

type SyncMethod struct {
	HTTPMethod string
	Handler    string
}

type SyncResource struct {
	PathPart string
	Methods  []SyncMethod
}

type SyncApi struct {
	ID        string
	Name      string
	StageName string
	Preflight Preflight
	Resources []SyncResource
}

type Binding struct {
	Method  string
	Path    string
	Handler string
}

func (b Binding) String() string {
	return b.Method + " " + b.Path + " -> " + b.Handler
}

func (a SyncApi) Bindings() []Binding {
	var bindings []Binding
	for _, resource := range a.Resources {
		for _, method := range resource.Methods {
			bindings = append(bindings, Binding{
				Method:  method.HTTPMethod,
				Path:    "/" + resource.PathPart,
				Handler: method.Handler,
			})
		}
	}
	return bindings
}

const (
	RouteConnect    = "$connect"
	RouteDisconnect = "$disconnect"
	RouteDefault    = "$default"
)

type StreamRoute struct {
	Key     string
	Handler string
}

type StreamStage struct {
	Name       string
	AutoDeploy bool
}

type StreamApi struct {
	ID             string
	Name           string
	RouteSelection string
	Routes         []StreamRoute
	Stages         []StreamStage
}

type Output struct {
	Name        string
	Value       Value
	Description string
}
