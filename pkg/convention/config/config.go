package config

import (
	"context"
	"strconv"

	"github.com/linecard/trainstack/internal/util"
	"github.com/linecard/trainstack/pkg/topology"

	json "github.com/goccy/go-json"
)

const (
	EnvStackName   = "TRAINSTACK_STACK_NAME"
	EnvAccount     = "TRAINSTACK_ACCOUNT"
	EnvRegion      = "AWS_REGION"
	EnvPartition   = "TRAINSTACK_PARTITION"
	EnvBroadAccess = "TRAINSTACK_BROAD_TRAINING_ACCESS"
	EnvCodeBucket  = "TRAINSTACK_CODE_BUCKET"
	EnvCodeKey     = "TRAINSTACK_CODE_KEY"

	DefaultStackName = "TestTrainingStack"
)

type Caller struct {
	Arn     string
	Account string
}

type Git struct {
	Origin string
	Branch string
	Sha    string
	Root   string
	Dirty  bool
}

type Options struct {
	BroadTrainingAccess bool
	CodeBucket          string
	CodeKey             string
}

type Config struct {
	Env       topology.Env
	StackName string
	Caller    Caller
	Git       *Git
	Options   Options
	Offline   bool
}

// Offline describes an environment without calling out for credentials, for synthesis only.
func Offline(account, region, stack string) Config {
	if stack == "" {
		stack = DefaultStackName
	}

	return Config{
		Env:       topology.NewEnv(account, region),
		StackName: stack,
		Offline:   true,
	}
}

// Tags are applied to the stack and propagate to every resource in it.
func (c Config) Tags() map[string]string {
	tags := map[string]string{
		"trainstack:stack": c.StackName,
	}

	if c.Git != nil {
		if util.ShaLike(c.Git.Sha) {
			tags["trainstack:git-sha"] = c.Git.Sha
		}
		tags["trainstack:git-branch"] = c.Git.Branch
		tags["trainstack:git-dirty"] = strconv.FormatBool(c.Git.Dirty)
		if c.Git.Origin != "" {
			tags["trainstack:git-origin"] = c.Git.Origin
		}
	}

	return tags
}

// Parameters are the template parameter values a deploy passes along.
func (c Config) Parameters() map[string]string {
	return map[string]string{
		"HandlerCodeBucket": c.Options.CodeBucket,
		"HandlerCodeKey":    c.Options.CodeKey,
	}
}

func (c Config) Validate() error {
	return c.Env.Validate()
}

func (c Config) Json(ctx context.Context) (string, error) {
	cJson, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "", err
	}

	return string(cJson), nil
}
