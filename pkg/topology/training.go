package topology

import (
	"fmt"
	"strconv"
	"time"
)

const (
	EnvTrainingJobName        = "TRAINING_JOB_NAME"
	EnvTrainingImage          = "TRAINING_JOB_IMAGE"
	EnvTrainingInputMode      = "TRAINING_JOB_INPUT_MODE"
	EnvTrainingRoleArn        = "TRAINING_JOB_ROLE_ARN"
	EnvTrainingChannel        = "TRAINING_JOB_CHANNEL_NAME"
	EnvTrainingSourceUri      = "TRAINING_JOB_INPUT_URI"
	EnvTrainingSourceType     = "TRAINING_JOB_INPUT_DATA_TYPE"
	EnvTrainingDistribution   = "TRAINING_JOB_INPUT_DISTRIBUTION"
	EnvTrainingOutputPath     = "TRAINING_JOB_OUTPUT_PATH"
	EnvTrainingInstanceCount  = "TRAINING_JOB_INSTANCE_COUNT"
	EnvTrainingInstanceType   = "TRAINING_JOB_INSTANCE_TYPE"
	EnvTrainingVolumeSizeGB   = "TRAINING_JOB_VOLUME_SIZE_GB"
	EnvTrainingMaxRuntimeSecs = "TRAINING_JOB_MAX_RUNTIME_SECONDS"
)

var trainingKeys = []string{
	EnvTrainingJobName,
	EnvTrainingImage,
	EnvTrainingInputMode,
	EnvTrainingRoleArn,
	EnvTrainingChannel,
	EnvTrainingSourceUri,
	EnvTrainingSourceType,
	EnvTrainingDistribution,
	EnvTrainingOutputPath,
	EnvTrainingInstanceCount,
	EnvTrainingInstanceType,
	EnvTrainingVolumeSizeGB,
	EnvTrainingMaxRuntimeSecs,
}

type InputChannel struct {
	Name             string
	SourceUri        Value
	SourceType       string
	DistributionType string
}

type TrainingResources struct {
	InstanceCount int32
	InstanceType  string
	VolumeSizeGB  int32
}

// TrainingJobTemplate is the static shape of the training job a handler launches. The handler
// fills in per-request details (a unique job name) and serializes the request itself.
type TrainingJobTemplate struct {
	JobName    string
	Image      Value
	InputMode  string
	RoleArn    Value
	Channel    InputChannel
	OutputPath Value
	Resources  TrainingResources
	MaxRuntime time.Duration
}

func (t TrainingJobTemplate) Values() []Value {
	return []Value{t.Image, t.RoleArn, t.Channel.SourceUri, t.OutputPath}
}

func (t TrainingJobTemplate) Environment() map[string]Value {
	return map[string]Value{
		EnvTrainingJobName:        Lit(t.JobName),
		EnvTrainingImage:          t.Image,
		EnvTrainingInputMode:      Lit(t.InputMode),
		EnvTrainingRoleArn:        t.RoleArn,
		EnvTrainingChannel:        Lit(t.Channel.Name),
		EnvTrainingSourceUri:      t.Channel.SourceUri,
		EnvTrainingSourceType:     Lit(t.Channel.SourceType),
		EnvTrainingDistribution:   Lit(t.Channel.DistributionType),
		EnvTrainingOutputPath:     t.OutputPath,
		EnvTrainingInstanceCount:  Lit(strconv.Itoa(int(t.Resources.InstanceCount))),
		EnvTrainingInstanceType:   Lit(t.Resources.InstanceType),
		EnvTrainingVolumeSizeGB:   Lit(strconv.Itoa(int(t.Resources.VolumeSizeGB))),
		EnvTrainingMaxRuntimeSecs: Lit(strconv.FormatInt(int64(t.MaxRuntime/time.Second), 10)),
	}
}

// TrainingJobFromEnvironment splits a handler environment into the structured template and the
// remaining keys. The template is nil when the environment carries none.
func TrainingJobFromEnvironment(env map[string]Value) (*TrainingJobTemplate, map[string]Value, error) {
	rest := make(map[string]Value, len(env))
	for k, v := range env {
		rest[k] = v
	}

	if _, exists := env[EnvTrainingJobName]; !exists {
		return nil, rest, nil
	}

	for _, key := range trainingKeys {
		if _, exists := env[key]; !exists {
			return nil, rest, fmt.Errorf("%w: training job template is missing %s", ErrInvalidConfiguration, key)
		}
		delete(rest, key)
	}

	count, err := literalInt(env, EnvTrainingInstanceCount)
	if err != nil {
		return nil, rest, err
	}

	volume, err := literalInt(env, EnvTrainingVolumeSizeGB)
	if err != nil {
		return nil, rest, err
	}

	runtime, err := literalInt(env, EnvTrainingMaxRuntimeSecs)
	if err != nil {
		return nil, rest, err
	}

	return &TrainingJobTemplate{
		JobName:   env[EnvTrainingJobName].Literal(),
		Image:     env[EnvTrainingImage],
		InputMode: env[EnvTrainingInputMode].Literal(),
		RoleArn:   env[EnvTrainingRoleArn],
		Channel: InputChannel{
			Name:             env[EnvTrainingChannel].Literal(),
			SourceUri:        env[EnvTrainingSourceUri],
			SourceType:       env[EnvTrainingSourceType].Literal(),
			DistributionType: env[EnvTrainingDistribution].Literal(),
		},
		OutputPath: env[EnvTrainingOutputPath],
		Resources: TrainingResources{
			InstanceCount: int32(count),
			InstanceType:  env[EnvTrainingInstanceType].Literal(),
			VolumeSizeGB:  int32(volume),
		},
		MaxRuntime: time.Duration(runtime) * time.Second,
	}, rest, nil
}

func literalInt(env map[string]Value, key string) (int64, error) {
	value := env[key]
	if !value.IsLiteral() {
		return 0, fmt.Errorf("%w: %s must be a literal", ErrInvalidConfiguration, key)
	}

	n, err := strconv.ParseInt(value.Literal(), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidConfiguration, key, err)
	}

	return n, nil
}
