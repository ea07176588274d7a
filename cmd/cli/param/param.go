package param

type GlobalOpts struct {
	Stack   string `arg:"-s,--stack,env:TRAINSTACK_STACK_NAME" help:"stack name"`
	Account string `arg:"-a,--account,env:TRAINSTACK_ACCOUNT" help:"target account id"`
	Region  string `arg:"-r,--region,env:AWS_REGION" help:"target region"`
	Offline bool   `arg:"--offline" help:"skip credential discovery, synthesis only"`
	Broad   bool   `arg:"--broad-training-access,env:TRAINSTACK_BROAD_TRAINING_ACCESS" help:"attach full-access managed policies to the training identity"`
}

type Synth struct {
	Format string `arg:"-f,--format" default:"json" help:"json or yaml"`
	Out    string `arg:"-o,--out" help:"write the template to a file instead of stdout"`
}

type Parse struct {
	Path   string `arg:"positional,required" help:"template to read back"`
	Format string `arg:"-f,--format" help:"json or yaml, guessed from the extension when unset"`
}

type Plan struct{}

type Outputs struct {
	Live bool `arg:"-l,--live" help:"read outputs from the deployed stack"`
}

type Check struct{}

type Deploy struct {
	CodeBucket string `arg:"--code-bucket,env:TRAINSTACK_CODE_BUCKET" help:"bucket holding the handler bundle"`
	CodeKey    string `arg:"--code-key,env:TRAINSTACK_CODE_KEY" help:"key of the handler bundle"`
}

type Destroy struct {
	Yes bool `arg:"-y,--yes" help:"confirm destruction"`
}

type Status struct {
	Limit int `arg:"-n,--limit" default:"10" help:"number of recent events"`
}

type Verify struct{}

type Config struct{}
