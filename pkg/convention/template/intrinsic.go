package template

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/linecard/trainstack/pkg/topology"

	"github.com/awslabs/goformation/v7/cloudformation"
	"github.com/awslabs/goformation/v7/intrinsics"
	json "github.com/goccy/go-json"
)

var nonAlnum = regexp.MustCompile(`[^A-Za-z0-9]+`)

// logicalId joins words into a CloudFormation logical id, capitalizing each word.
func logicalId(parts ...string) string {
	var b strings.Builder
	for _, part := range parts {
		for _, word := range nonAlnum.Split(part, -1) {
			if word == "" {
				continue
			}
			b.WriteString(strings.ToUpper(word[:1]) + word[1:])
		}
	}
	return b.String()
}

// render turns a value into a literal string, a single Ref/GetAtt, or an Fn::Join.
func render(v topology.Value) string {
	switch {
	case v.IsZero():
		return ""
	case len(v.Parts) == 1 && v.Parts[0].Ref == nil:
		return v.Parts[0].Literal
	case len(v.Parts) == 1:
		return renderRef(*v.Parts[0].Ref)
	}

	parts := make([]string, 0, len(v.Parts))
	for _, part := range v.Parts {
		if part.Ref == nil {
			parts = append(parts, part.Literal)
			continue
		}
		parts = append(parts, renderRef(*part.Ref))
	}

	return cloudformation.Join("", parts)
}

func renderAll(values []topology.Value) []string {
	rendered := make([]string, 0, len(values))
	for _, v := range values {
		rendered = append(rendered, render(v))
	}
	return rendered
}

func renderRef(r topology.Ref) string {
	switch r.Attr {
	case topology.AttrArn:
		return cloudformation.GetAtt(r.Target, "Arn")
	case topology.AttrUri:
		return cloudformation.GetAtt(r.Target, "RepositoryUri")
	default:
		return cloudformation.Ref(r.Target)
	}
}

// encoded keeps Ref, GetAtt and Join unevaluated while a template body is parsed, so typed
// string properties carry the same encoded intrinsics Synthesize puts there.
var encoded map[string]intrinsics.IntrinsicHandler

// encoded is assigned in init because its Fn::Join handler calls reencode, which reads encoded.
func init() {
	encoded = map[string]intrinsics.IntrinsicHandler{
		"Ref": func(_ string, input interface{}, _ interface{}) interface{} {
			return cloudformation.Ref(fmt.Sprint(input))
		},
		"Fn::GetAtt": func(_ string, input interface{}, _ interface{}) interface{} {
			target, attr, err := getAttArgs(input)
			if err != nil {
				return input
			}
			return cloudformation.GetAtt(target, attr)
		},
		"Fn::Join": func(_ string, input interface{}, _ interface{}) interface{} {
			args, _ := input.([]interface{})
			if len(args) != 2 {
				return input
			}

			items, _ := args[1].([]interface{})
			parts := make([]string, 0, len(items))
			for _, item := range items {
				parts = append(parts, reencode(item))
			}
			return cloudformation.Join(fmt.Sprint(args[0]), parts)
		},
	}
}

// reencode turns an already evaluated intrinsic object back into its encoded string form.
func reencode(v interface{}) string {
	expr, ok := v.(map[string]interface{})
	if !ok {
		return fmt.Sprint(v)
	}

	for name, args := range expr {
		if handler, known := encoded[name]; known {
			if s, ok := handler(name, args, nil).(string); ok {
				return s
			}
		}
	}
	return fmt.Sprint(v)
}

// preserved expands encoded intrinsics into their object form without evaluating them.
var preserved = map[string]intrinsics.IntrinsicHandler{
	"Ref":        keep,
	"Fn::GetAtt": keep,
	"Fn::Join":   keep,
}

func keep(name string, input interface{}, _ interface{}) interface{} {
	return map[string]interface{}{name: input}
}

// expand returns the intrinsic object an encoded property string stands for, or the
// string itself when it is a literal.
func expand(s string) (any, error) {
	wrapped, err := json.Marshal(map[string]string{"value": s})
	if err != nil {
		return nil, err
	}

	processed, err := intrinsics.ProcessJSON(wrapped, &intrinsics.ProcessorOptions{
		IntrinsicHandlerOverrides: preserved,
	})

	if err != nil {
		return nil, err
	}

	var out map[string]any
	if err := json.Unmarshal(processed, &out); err != nil {
		return nil, err
	}

	return out["value"], nil
}

// valueParser reverses render. Ref on an API yields its id, on anything else its name.
type valueParser struct {
	kinds map[string]topology.Kind
}

func (p valueParser) parse(v any) (topology.Value, error) {
	if s, ok := v.(string); ok {
		expr, err := expand(s)
		if err != nil {
			return topology.Value{}, fmt.Errorf("%w: %v", topology.ErrInvalidConfiguration, err)
		}
		v = expr
	}
	return p.expr(v)
}

func (p valueParser) parseAll(values []string) ([]topology.Value, error) {
	parsed := make([]topology.Value, 0, len(values))
	for _, v := range values {
		value, err := p.parse(v)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, value)
	}
	return parsed, nil
}

func (p valueParser) expr(v any) (topology.Value, error) {
	switch expr := v.(type) {
	case string:
		return topology.Lit(expr), nil
	case map[string]any:
		if target, ok := expr["Ref"].(string); ok {
			kind, exists := p.kinds[target]
			if !exists {
				return topology.Value{}, fmt.Errorf("%w: Ref %s", topology.ErrUnresolvedReference, target)
			}

			if kind == topology.KindSyncApi || kind == topology.KindStreamApi {
				return topology.Attribute(target, topology.AttrId), nil
			}
			return topology.Attribute(target, topology.AttrName), nil
		}

		if args, ok := expr["Fn::GetAtt"]; ok {
			target, attr, err := getAttArgs(args)
			if err != nil {
				return topology.Value{}, err
			}

			if _, exists := p.kinds[target]; !exists {
				return topology.Value{}, fmt.Errorf("%w: GetAtt %s", topology.ErrUnresolvedReference, target)
			}

			switch attr {
			case "Arn":
				return topology.Attribute(target, topology.AttrArn), nil
			case "RepositoryUri":
				return topology.Attribute(target, topology.AttrUri), nil
			}
			return topology.Value{}, fmt.Errorf("%w: %s.%s", topology.ErrUnknownAttribute, target, attr)
		}

		if args, ok := expr["Fn::Join"]; ok {
			return p.join(args)
		}
	}

	return topology.Value{}, fmt.Errorf("%w: unsupported expression %v", topology.ErrInvalidConfiguration, v)
}

func (p valueParser) join(args any) (topology.Value, error) {
	list, _ := args.([]any)
	if len(list) != 2 {
		return topology.Value{}, fmt.Errorf("%w: Fn::Join takes a delimiter and a list", topology.ErrInvalidConfiguration)
	}

	delimiter, _ := list[0].(string)
	items, _ := list[1].([]any)

	var joined []topology.Value
	for i, item := range items {
		if i > 0 && delimiter != "" {
			joined = append(joined, topology.Lit(delimiter))
		}

		value, err := p.expr(item)
		if err != nil {
			return topology.Value{}, err
		}
		joined = append(joined, value)
	}

	return topology.Join(joined...), nil
}

func getAttArgs(args any) (string, string, error) {
	if dotted, ok := args.(string); ok {
		target, attr, found := strings.Cut(dotted, ".")
		if found {
			return target, attr, nil
		}
	}

	if list, ok := args.([]any); ok && len(list) == 2 {
		target, _ := list[0].(string)
		attr, _ := list[1].(string)
		if target != "" && attr != "" {
			return target, attr, nil
		}
	}

	return "", "", fmt.Errorf("%w: malformed Fn::GetAtt %v", topology.ErrInvalidConfiguration, args)
}

// refTarget returns the logical id of a bare Ref, or of the first Ref inside a Join.
func refTarget(s string) string {
	expr, err := expand(s)
	if err != nil {
		return ""
	}
	return firstRef(expr)
}

func firstRef(v any) string {
	expr, ok := v.(map[string]any)
	if !ok {
		return ""
	}

	if target, ok := expr["Ref"].(string); ok {
		return target
	}

	if args, ok := expr["Fn::Join"].([]any); ok && len(args) == 2 {
		items, _ := args[1].([]any)
		for _, item := range items {
			if target := firstRef(item); target != "" {
				return target
			}
		}
	}

	return ""
}
