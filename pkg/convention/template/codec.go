package template

import (
	"bytes"
	"fmt"

	"github.com/linecard/trainstack/pkg/topology"

	"github.com/awslabs/goformation/v7"
	"github.com/awslabs/goformation/v7/cloudformation"
	"github.com/awslabs/goformation/v7/intrinsics"
	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

func ParseFormat(s string) (Format, error) {
	switch s {
	case "", "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("%w: unknown template format %q", topology.ErrInvalidConfiguration, s)
}

func Encode(t *cloudformation.Template, format Format) ([]byte, error) {
	body, err := t.JSON()
	if err != nil {
		return nil, err
	}

	switch format {
	case FormatJSON:
		return body, nil
	case FormatYAML:
		var document any
		if err := json.Unmarshal(body, &document); err != nil {
			return nil, err
		}

		var buf bytes.Buffer
		encoder := yaml.NewEncoder(&buf)
		encoder.SetIndent(2)

		if err := encoder.Encode(document); err != nil {
			return nil, err
		}

		if err := encoder.Close(); err != nil {
			return nil, err
		}

		return buf.Bytes(), nil
	}

	return nil, fmt.Errorf("%w: unknown template format %q", topology.ErrInvalidConfiguration, format)
}

// MaxInlineBody is the largest template body accepted inline by the provisioning engine.
const MaxInlineBody = 51200

// Compact encodes t as unindented JSON for submission.
func Compact(t *cloudformation.Template) ([]byte, error) {
	body, err := t.JSON()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, body); err != nil {
		return nil, err
	}

	if buf.Len() > MaxInlineBody {
		return nil, fmt.Errorf("%w: template is %d bytes, inline limit is %d", topology.ErrInvalidConfiguration, buf.Len(), MaxInlineBody)
	}

	return buf.Bytes(), nil
}

// Decode reads a template body into typed resources. References stay unevaluated.
func Decode(data []byte, format Format) (*cloudformation.Template, error) {
	options := &intrinsics.ProcessorOptions{IntrinsicHandlerOverrides: encoded}

	var t *cloudformation.Template
	var err error

	switch format {
	case FormatJSON:
		t, err = goformation.ParseJSONWithOptions(data, options)
	case FormatYAML:
		t, err = goformation.ParseYAMLWithOptions(data, options)
	default:
		return nil, fmt.Errorf("%w: unknown template format %q", topology.ErrInvalidConfiguration, format)
	}

	if err != nil {
		return nil, fmt.Errorf("decoding %s template: %w", format, err)
	}

	return t, nil
}
