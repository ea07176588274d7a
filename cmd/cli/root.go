package cli

import (
	"context"
	"os"
	"strconv"

	"github.com/alexflint/go-arg"
	"github.com/linecard/trainstack/cmd/cli/router"
	"github.com/linecard/trainstack/internal/util"
	"github.com/linecard/trainstack/pkg/convention/config"
	"github.com/linecard/trainstack/pkg/sdk"
	"go.opentelemetry.io/otel"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Invoke() {
	var err error
	var api sdk.API

	ctx := context.Background()
	ctx, span := otel.Tracer("").Start(ctx, "trainstack")
	defer span.End()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).With().Caller().Logger()

	var root router.Root
	arg.MustParse(&root)

	configEnv(root)

	if root.Offline {
		if api, err = offline(ctx, root); err != nil {
			log.Fatal().Err(err).Msg("failed to load offline configuration")
		}
	} else {
		retryLogger := util.RetryLogger{
			Log: &log.Logger,
		}

		awsConfig, err := awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithLogger(&retryLogger),
			awsconfig.WithClientLogMode(aws.LogRetries))

		if err != nil {
			log.Fatal().Err(err).Msg("failed to load AWS configuration")
		}

		if api, err = sdk.Init(ctx, awsConfig); err != nil {
			log.Fatal().Err(err).Msg("failed to initialize SDK")
		}
	}

	if err := root.Route(ctx, api); err != nil {
		log.Fatal().Err(err).Strs("argv", os.Args).Msgf("failed command")
	}
}

func offline(ctx context.Context, root router.Root) (sdk.API, error) {
	cfg := config.Offline(root.Account, root.Region, root.Stack)
	cfg.DiscoverPartition()

	if err := cfg.DiscoverOptions(); err != nil {
		return sdk.API{}, err
	}

	if err := cfg.DiscoverGit(ctx); err != nil {
		return sdk.API{}, err
	}

	if err := cfg.Validate(); err != nil {
		return sdk.API{}, err
	}

	return sdk.Offline(cfg), nil
}

// Take options given to the CLI and export them to their respective environment variables.
func configEnv(root router.Root) {
	if root.Stack != "" {
		os.Setenv(config.EnvStackName, root.Stack)
	}

	if root.Account != "" {
		os.Setenv(config.EnvAccount, root.Account)
	}

	if root.Region != "" {
		os.Setenv(config.EnvRegion, root.Region)
	}

	if root.Broad {
		os.Setenv(config.EnvBroadAccess, strconv.FormatBool(root.Broad))
	}

	if root.Deploy != nil {
		if root.Deploy.CodeBucket != "" {
			os.Setenv(config.EnvCodeBucket, root.Deploy.CodeBucket)
		}

		if root.Deploy.CodeKey != "" {
			os.Setenv(config.EnvCodeKey, root.Deploy.CodeKey)
		}
	}
}
