package router

import (
	"context"
	"os"

	"github.com/linecard/trainstack/cmd/cli/method"
	"github.com/linecard/trainstack/cmd/cli/param"
	"github.com/linecard/trainstack/pkg/sdk"

	"github.com/alexflint/go-arg"
)

type Root struct {
	param.GlobalOpts
	Synth   *param.Synth   `arg:"subcommand:synth" help:"Render the stack template"`
	Parse   *param.Parse   `arg:"subcommand:parse" help:"Read a rendered template back into a topology"`
	Plan    *param.Plan    `arg:"subcommand:plan" help:"List declared resources, bindings and grants"`
	Outputs *param.Outputs `arg:"subcommand:outputs" help:"Print stack outputs"`
	Check   *param.Check   `arg:"subcommand:check" help:"Evaluate policy rules"`
	Deploy  *param.Deploy  `arg:"subcommand:deploy" help:"Create or update the stack"`
	Destroy *param.Destroy `arg:"subcommand:destroy" help:"Delete the stack"`
	Status  *param.Status  `arg:"subcommand:status" help:"Show stack status and recent events"`
	Verify  *param.Verify  `arg:"subcommand:verify" help:"Compare live resources against the topology"`
	Config  *param.Config  `arg:"subcommand:config" help:"Print configuration"`
}

func (r Root) Route(ctx context.Context, api sdk.API) error {
	switch {
	case r.Synth != nil:
		return method.Synth(ctx, api, r.Synth)

	case r.Parse != nil:
		return method.Parse(ctx, api, r.Parse)

	case r.Plan != nil:
		return method.Plan(ctx, api, r.Plan)

	case r.Outputs != nil:
		return method.Outputs(ctx, api, r.Outputs)

	case r.Check != nil:
		return method.Check(ctx, api, r.Check)

	case r.Deploy != nil:
		return method.Deploy(ctx, api, r.Deploy)

	case r.Destroy != nil:
		return method.Destroy(ctx, api, r.Destroy)

	case r.Status != nil:
		return method.Status(ctx, api, r.Status)

	case r.Verify != nil:
		return method.Verify(ctx, api, r.Verify)

	case r.Config != nil:
		return method.PrintConfig(ctx, api, r.Config)

	default:
		arg.MustParse(&r).WriteHelp(os.Stdout)
	}

	return nil
}
