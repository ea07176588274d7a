package method

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/linecard/trainstack/cmd/cli/param"
	"github.com/linecard/trainstack/cmd/cli/view"
	"github.com/linecard/trainstack/pkg/convention/rules"
	"github.com/linecard/trainstack/pkg/convention/template"
	"github.com/linecard/trainstack/pkg/convention/training"
	"github.com/linecard/trainstack/pkg/sdk"
	"github.com/linecard/trainstack/pkg/topology"

	"github.com/rs/zerolog/log"
)

var ErrDriftDetected = errors.New("drift detected")

func Synth(ctx context.Context, api sdk.API, p *param.Synth) error {
	format, err := template.ParseFormat(p.Format)
	if err != nil {
		return err
	}

	resolved, err := api.Resolve(ctx)
	if err != nil {
		return err
	}

	tmpl, err := template.Synthesize(resolved)
	if err != nil {
		return err
	}

	body, err := template.Encode(tmpl, format)
	if err != nil {
		return err
	}

	if p.Out == "" {
		_, err := os.Stdout.Write(body)
		return err
	}

	if err := os.WriteFile(p.Out, body, 0o644); err != nil {
		return err
	}

	log.Info().Str("path", p.Out).Int("resources", len(tmpl.Resources)).Msg("template written")
	return nil
}

func Parse(ctx context.Context, api sdk.API, p *param.Parse) error {
	name := p.Format
	if name == "" {
		name = strings.TrimPrefix(filepath.Ext(p.Path), ".")
	}

	format, err := template.ParseFormat(name)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(p.Path)
	if err != nil {
		return err
	}

	tmpl, err := template.Decode(data, format)
	if err != nil {
		return err
	}

	g, err := template.Parse(tmpl, api.Config.Env, api.Config.StackName)
	if err != nil {
		return err
	}

	resolved, err := topology.Resolve(g)
	if err != nil {
		return err
	}

	view.Plan(os.Stdout, resolved)
	view.Violations(os.Stdout, rules.Check(resolved, training.Expectations()))
	return nil
}

func Plan(ctx context.Context, api sdk.API, p *param.Plan) error {
	resolved, err := api.Resolve(ctx)
	if err != nil {
		return err
	}

	view.Plan(os.Stdout, resolved)
	return nil
}

func Outputs(ctx context.Context, api sdk.API, p *param.Outputs) error {
	if p.Live {
		if err := api.Online(); err != nil {
			return err
		}

		deployed, err := api.Deployment.Find(ctx)
		if err != nil {
			return err
		}

		view.Outputs(os.Stdout, deployed.Outputs)
		return nil
	}

	resolved, err := api.Resolve(ctx)
	if err != nil {
		return err
	}

	view.Outputs(os.Stdout, resolved.Outputs)
	return nil
}

// Check reports every rule outcome, warnings included, before enforcing.
func Check(ctx context.Context, api sdk.API, p *param.Check) error {
	if err := api.Config.Validate(); err != nil {
		return err
	}

	g, err := training.Declare(api.Config.Env, api.Config.StackName, training.Options{
		BroadTrainingAccess: api.Config.Options.BroadTrainingAccess,
	})

	if err != nil {
		return err
	}

	resolved, err := topology.Resolve(g)
	if err != nil {
		return err
	}

	view.Violations(os.Stdout, rules.Check(resolved, training.Expectations()))
	return rules.Enforce(resolved, training.Expectations())
}

func Deploy(ctx context.Context, api sdk.API, p *param.Deploy) error {
	if err := api.Online(); err != nil {
		return err
	}

	resolved, err := api.Resolve(ctx)
	if err != nil {
		return err
	}

	deployed, err := api.Deployment.Deploy(ctx, resolved)
	if err != nil {
		return err
	}

	view.Outputs(os.Stdout, deployed.Outputs)
	return nil
}

func Destroy(ctx context.Context, api sdk.API, p *param.Destroy) error {
	if !p.Yes {
		return fmt.Errorf("%w: destroying %s needs --yes", topology.ErrInvalidConfiguration, api.Config.StackName)
	}

	if err := api.Online(); err != nil {
		return err
	}

	return api.Deployment.Destroy(ctx)
}

func Status(ctx context.Context, api sdk.API, p *param.Status) error {
	if err := api.Online(); err != nil {
		return err
	}

	status, err := api.Deployment.Status(ctx, p.Limit)
	if err != nil {
		return err
	}

	view.Status(os.Stdout, status)
	return nil
}

func Verify(ctx context.Context, api sdk.API, p *param.Verify) error {
	if err := api.Online(); err != nil {
		return err
	}

	resolved, err := api.Resolve(ctx)
	if err != nil {
		return err
	}

	findings, err := api.Drift.Verify(ctx, resolved)
	if err != nil {
		return err
	}

	view.Findings(os.Stdout, findings)

	if len(findings) > 0 {
		return fmt.Errorf("%w: %d findings", ErrDriftDetected, len(findings))
	}

	return nil
}

func PrintConfig(ctx context.Context, api sdk.API, p *param.Config) error {
	cfgJson, err := api.Config.Json(ctx)
	if err != nil {
		return err
	}

	fmt.Println(cfgJson)
	return nil
}
