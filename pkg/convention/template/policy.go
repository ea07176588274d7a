package template

import (
	json "github.com/goccy/go-json"
)

// policyDocument is an IAM policy or trust document as it appears in a role or policy resource.
type policyDocument struct {
	Version   string            `json:"Version"`
	Statement []policyStatement `json:"Statement"`
}

type policyStatement struct {
	Effect    string                `json:"Effect"`
	Principal map[string]stringList `json:"Principal,omitempty"`
	Action    stringList            `json:"Action"`
	Resource  stringList            `json:"Resource,omitempty"`
}

// stringList accepts the single-string shorthand IAM documents allow.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*l = stringList{one}
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}

	*l = many
	return nil
}

func trustDocument(principal string) policyDocument {
	return policyDocument{
		Version: policyVersion,
		Statement: []policyStatement{
			{
				Effect:    "Allow",
				Principal: map[string]stringList{"Service": {principal}},
				Action:    stringList{"sts:AssumeRole"},
			},
		},
	}
}

// decodeDocument reads a policy document out of a resource property, whether it was
// synthesized or decoded from a template body.
func decodeDocument(v any) (policyDocument, error) {
	var document policyDocument

	data, err := json.Marshal(v)
	if err != nil {
		return document, err
	}

	err = json.Unmarshal(data, &document)
	return document, err
}
