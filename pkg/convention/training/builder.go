package training

import (
	"context"
	"time"

	"github.com/linecard/trainstack/internal/util"
	"github.com/linecard/trainstack/pkg/convention/rules"
	"github.com/linecard/trainstack/pkg/topology"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type Options struct {
	// Attach the full-access managed policies to the training identity in addition to its
	// enumerated grants. Off unless confirmed.
	BroadTrainingAccess bool
}

// Build declares the training topology for env, resolves it, and enforces the policy rules.
// Any failure aborts the whole build.
func Build(ctx context.Context, env topology.Env, stack string, opts Options) (topology.Resolved, error) {
	_, span := otel.Tracer("").Start(ctx, "training.Build")
	defer span.End()

	span.SetAttributes(
		attribute.String("stack", stack),
		attribute.String("env", env.String()),
	)

	g, err := Declare(env, stack, opts)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return topology.Resolved{}, err
	}

	resolved, err := topology.Resolve(g)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return topology.Resolved{}, err
	}

	for _, v := range rules.Check(resolved, Expectations()) {
		if v.Severity == rules.Warning {
			log.Warn().Str("rule", v.Rule).Str("resource", v.Resource).Msg(v.Message)
		}
	}

	if err := rules.Enforce(resolved, Expectations()); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return topology.Resolved{}, err
	}

	log.Debug().Str("stack", stack).Int("resources", len(g.Order())).Msg("topology resolved")
	return resolved, nil
}

// Declare is the first build phase. Each step only references what earlier steps declared.
func Declare(env topology.Env, stack string, opts Options) (*topology.Graph, error) {
	g, err := topology.NewGraph(env, stack)
	if err != nil {
		return nil, err
	}

	steps := []func(*topology.Graph, Options) error{
		declareStorage,
		declareIdentities,
		declareHandlers,
		declareApis,
		declareGrants,
		declareOutputs,
	}

	for _, step := range steps {
		if err := step(g, opts); err != nil {
			return nil, err
		}
	}

	return g, nil
}

func Expectations() rules.Expectations {
	return rules.Expectations{
		Bindings: []topology.Binding{
			{Method: "POST", Path: "/photos", Handler: UploadHandler},
			{Method: "POST", Path: "/weights", Handler: UploadHandler},
			{Method: "GET", Path: "/weights", Handler: DownloadHandler},
			{Method: "GET", Path: "/models", Handler: DownloadHandler},
			{Method: "POST", Path: "/training", Handler: TrainingHandler},
		},
		PreflightHeaders: PreflightHeader,
		StreamRoutes:     []string{topology.RouteConnect, topology.RouteDisconnect, topology.RouteDefault},
		StageName:        StageName,
	}
}

func declareStorage(g *topology.Graph, _ Options) error {
	for _, id := range []string{TrainingDataBucket, WeightsBucket} {
		err := g.AddContainer(topology.BlobContainer{
			ID:         id,
			Versioned:  true,
			Encryption: topology.EncryptionS3Managed,
			Cors: []topology.CorsRule{
				{
					AllowedMethods: append([]string{}, CorsMethods...),
					AllowedOrigins: []string{"*"},
					AllowedHeaders: []string{"*"},
				},
			},
		})

		if err != nil {
			return err
		}
	}

	return g.AddRepository(topology.ImageRepository{
		ID:             ModelRegistry,
		Name:           RepositoryName,
		ScanOnPush:     true,
		DeletionPolicy: topology.Retain,
	})
}

func declareIdentities(g *topology.Graph, opts Options) error {
	partition := g.Env.Partition

	training := topology.ExecutionIdentity{
		ID:             SageMakerRole,
		TrustPrincipal: "sagemaker.amazonaws.com",
		Statements: []topology.Statement{
			allow(bucketReadWriteActions, bucketAndObjects(TrainingDataBucket, WeightsBucket)...),
			allow(registryPullPushActions, topology.Attribute(ModelRegistry, topology.AttrArn)),
			allow(registryTokenActions, topology.Lit("*")),
			allow(trainingLogActions, topology.Lit(g.Env.Arn("logs", "log-group:/aws/sagemaker/TrainingJobs*"))),
		},
	}

	if opts.BroadTrainingAccess {
		training.ManagedPolicies = []topology.Value{
			topology.Lit(util.ManagedPolicyArn(partition, SageMakerFullAccessPolicy)),
			topology.Lit(util.ManagedPolicyArn(partition, S3FullAccessPolicy)),
		}
	}

	if err := g.AddIdentity(training); err != nil {
		return err
	}

	return g.AddIdentity(topology.ExecutionIdentity{
		ID:             LambdaRole,
		TrustPrincipal: "lambda.amazonaws.com",
		ManagedPolicies: []topology.Value{
			topology.Lit(util.ManagedPolicyArn(partition, LambdaBasicExecutionPolicy)),
		},
	})
}

func declareHandlers(g *topology.Graph, _ Options) error {
	bucketName := func(id string) topology.Value {
		return topology.Attribute(id, topology.AttrName)
	}

	handlers := []topology.Handler{
		{
			ID:    UploadHandler,
			Entry: "upload.handler",
			Environment: map[string]topology.Value{
				"TRAINING_BUCKET": bucketName(TrainingDataBucket),
				"WEIGHTS_BUCKET":  bucketName(WeightsBucket),
			},
			Timeout: 30 * time.Second,
		},
		{
			ID:    DownloadHandler,
			Entry: "download.handler",
			Environment: map[string]topology.Value{
				"WEIGHTS_BUCKET": bucketName(WeightsBucket),
				"MODEL_REGISTRY": topology.Attribute(ModelRegistry, topology.AttrUri),
			},
			Timeout: 30 * time.Second,
		},
		{
			ID:          TrainingHandler,
			Entry:       "training_api.handler",
			Environment: map[string]topology.Value{},
			TrainingJob: trainingJob(),
			Timeout:     5 * time.Minute,
		},
		{
			ID:    AudioHandler,
			Entry: "audio.handler",
			Environment: map[string]topology.Value{
				"TRAINING_BUCKET": bucketName(TrainingDataBucket),
			},
			Timeout: 30 * time.Second,
		},
	}

	for _, h := range handlers {
		h.Runtime = HandlerRuntime
		h.Code = HandlerCode
		h.MemoryMB = HandlerMemory
		h.Identity = LambdaRole

		if err := g.AddHandler(h); err != nil {
			return err
		}
	}

	return nil
}

func trainingJob() *topology.TrainingJobTemplate {
	return &topology.TrainingJobTemplate{
		JobName:   "demo-training-job",
		Image:     topology.Attribute(ModelRegistry, topology.AttrUri),
		InputMode: "File",
		RoleArn:   topology.Attribute(SageMakerRole, topology.AttrArn),
		Channel: topology.InputChannel{
			Name:             "training",
			SourceUri:        s3Uri(TrainingDataBucket, "photos/"),
			SourceType:       "S3Prefix",
			DistributionType: "FullyReplicated",
		},
		OutputPath: s3Uri(WeightsBucket, "training-output/"),
		Resources: topology.TrainingResources{
			InstanceCount: 1,
			InstanceType:  "ml.m5.large",
			VolumeSizeGB:  50,
		},
		MaxRuntime: 24 * time.Hour,
	}
}

func declareApis(g *topology.Graph, _ Options) error {
	method := func(verb, handler string) topology.SyncMethod {
		return topology.SyncMethod{HTTPMethod: verb, Handler: handler}
	}

	err := g.AddSyncApi(topology.SyncApi{
		ID:        ModelAPI,
		Name:      RestApiName,
		StageName: StageName,
		Preflight: topology.Preflight{
			AllowOrigins: []string{"*"},
			AllowMethods: append([]string{}, AllMethods...),
			AllowHeaders: append([]string{}, PreflightHeader...),
		},
		Resources: []topology.SyncResource{
			{PathPart: "photos", Methods: []topology.SyncMethod{method("POST", UploadHandler)}},
			{PathPart: "weights", Methods: []topology.SyncMethod{method("POST", UploadHandler), method("GET", DownloadHandler)}},
			{PathPart: "models", Methods: []topology.SyncMethod{method("GET", DownloadHandler)}},
			{PathPart: "training", Methods: []topology.SyncMethod{method("POST", TrainingHandler)}},
		},
	})

	if err != nil {
		return err
	}

	return g.AddStreamApi(topology.StreamApi{
		ID:             AudioStreamApi,
		Name:           StreamApiName,
		RouteSelection: "$request.body.action",
		Routes: []topology.StreamRoute{
			{Key: topology.RouteConnect, Handler: AudioHandler},
			{Key: topology.RouteDisconnect, Handler: AudioHandler},
			{Key: topology.RouteDefault, Handler: AudioHandler},
		},
		Stages: []topology.StreamStage{
			{Name: StageName, AutoDeploy: true},
		},
	})
}

// Handler grants come after the APIs: the audio handler's connection grant is scoped by the
// streaming API's own generated id.
func declareGrants(g *topology.Graph, _ Options) error {
	registry := topology.Attribute(ModelRegistry, topology.AttrArn)

	grants := []struct {
		owner     string
		statement topology.Statement
	}{
		{UploadHandler, allow(uploadObjectActions, bucketAndObjects(TrainingDataBucket, WeightsBucket)...)},
		{DownloadHandler, allow(downloadObjectActions, bucketAndObjects(WeightsBucket)...)},
		{DownloadHandler, allow(registryTokenActions, topology.Lit("*"))},
		{DownloadHandler, allow(registryReadActions, registry)},
		{TrainingHandler, allow(trainingJobActions, topology.Lit(g.Env.Arn("sagemaker", "training-job/*")))},
		{TrainingHandler, allow(passRoleActions, topology.Attribute(SageMakerRole, topology.AttrArn))},
		{TrainingHandler, allow(registryTokenActions, topology.Lit("*"))},
		{TrainingHandler, allow(registryReadActions, registry)},
		{AudioHandler, allow(manageConnectionActions, connectionsArn(g.Env, AudioStreamApi))},
		{AudioHandler, allow(audioObjectActions, bucketAndObjects(TrainingDataBucket)...)},
	}

	for _, grant := range grants {
		if err := g.Grant(grant.owner, grant.statement); err != nil {
			return err
		}
	}

	return nil
}

func declareOutputs(g *topology.Graph, _ Options) error {
	host := ".execute-api." + g.Env.Region + "." + g.Env.URLSuffix

	outputs := []topology.Output{
		{
			Name:        OutputTrainingBucket,
			Value:       topology.Attribute(TrainingDataBucket, topology.AttrName),
			Description: "Training data bucket name",
		},
		{
			Name:        OutputWeightsBucket,
			Value:       topology.Attribute(WeightsBucket, topology.AttrName),
			Description: "Model weights bucket name",
		},
		{
			Name:        OutputRegistryUri,
			Value:       topology.Attribute(ModelRegistry, topology.AttrUri),
			Description: "ECR repository URI",
		},
		{
			Name:        OutputApiEndpoint,
			Value:       topology.Join(topology.Lit("https://"), topology.Attribute(ModelAPI, topology.AttrId), topology.Lit(host+"/"+StageName+"/")),
			Description: "API Gateway endpoint URL",
		},
		{
			Name:        OutputAudioEndpoint,
			Value:       topology.Join(topology.Lit("wss://"), topology.Attribute(AudioStreamApi, topology.AttrId), topology.Lit(host+"/"+StageName)),
			Description: "Audio WebSocket Endpoint",
		},
	}

	for _, o := range outputs {
		if err := g.AddOutput(o); err != nil {
			return err
		}
	}

	return nil
}

func allow(actions []string, resources ...topology.Value) topology.Statement {
	return topology.Statement{
		Effect:    topology.Allow,
		Actions:   append([]string{}, actions...),
		Resources: resources,
	}
}

func bucketAndObjects(ids ...string) []topology.Value {
	var values []topology.Value
	for _, id := range ids {
		arn := topology.Attribute(id, topology.AttrArn)
		values = append(values, arn, arn.Suffix("/*"))
	}
	return values
}

func s3Uri(bucket, prefix string) topology.Value {
	return topology.Join(topology.Lit("s3://"), topology.Attribute(bucket, topology.AttrName), topology.Lit("/"+prefix))
}

func connectionsArn(env topology.Env, api string) topology.Value {
	return topology.Join(
		topology.Lit("arn:"+env.Partition+":execute-api:"+env.Region+":"+env.Account+":"),
		topology.Attribute(api, topology.AttrId),
		topology.Lit("/*"),
	)
}
