package topology

import (
	"fmt"
	"regexp"
	"strings"
)

var accountPattern = regexp.MustCompile(`^[0-9]{12}$`)

// Env is the account/region context every ARN pattern and generated identifier is derived from.
type Env struct {
	Partition string
	Account   string
	Region    string
	URLSuffix string
}

func NewEnv(account, region string) Env {
	env := Env{
		Account: account,
		Region:  region,
	}

	switch {
	case strings.HasPrefix(region, "cn-"):
		return env.WithPartition("aws-cn")
	case strings.HasPrefix(region, "us-gov-"):
		return env.WithPartition("aws-us-gov")
	}

	return env.WithPartition("aws")
}

// WithPartition moves the environment to partition, along with the partition's endpoint suffix.
func (e Env) WithPartition(partition string) Env {
	e.Partition = partition
	e.URLSuffix = "amazonaws.com"
	if partition == "aws-cn" {
		e.URLSuffix = "amazonaws.com.cn"
	}
	return e
}

func (e Env) Validate() error {
	if !accountPattern.MatchString(e.Account) {
		return fmt.Errorf("%w: account %q is not a 12 digit id", ErrInvalidConfiguration, e.Account)
	}

	if e.Region == "" {
		return fmt.Errorf("%w: region is required", ErrInvalidConfiguration)
	}

	if e.Partition == "" || e.URLSuffix == "" {
		return fmt.Errorf("%w: partition and url suffix are required", ErrInvalidConfiguration)
	}

	return nil
}

// Arn builds a regional, account scoped ARN.
func (e Env) Arn(service, resource string) string {
	return "arn:" + e.Partition + ":" + service + ":" + e.Region + ":" + e.Account + ":" + resource
}

// GlobalArn builds an ARN without a region, as IAM and S3 use.
func (e Env) GlobalArn(service, account, resource string) string {
	return "arn:" + e.Partition + ":" + service + "::" + account + ":" + resource
}

func (e Env) String() string {
	return e.Partition + "/" + e.Account + "/" + e.Region
}
