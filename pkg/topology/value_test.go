package topology

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValue(t *testing.T) {
	tests := []struct {
		name     string
		value    Value
		expected string
		literal  bool
		refs     int
	}{
		{
			name:     "empty literal is the zero value",
			value:    Lit(""),
			expected: "",
			literal:  true,
		},
		{
			name:     "single reference",
			value:    Attribute("Bucket", AttrArn),
			expected: "${Bucket.Arn}",
			refs:     1,
		},
		{
			name:     "adjacent literals merge",
			value:    Join(Lit("s3://"), Lit("bucket"), Lit("/photos/")),
			expected: "s3://bucket/photos/",
			literal:  true,
		},
		{
			name:     "join keeps references between literals",
			value:    Join(Lit("https://"), Attribute("Api", AttrId), Lit(".execute-api"), Lit("/prod/")),
			expected: "https://${Api.Id}.execute-api/prod/",
			refs:     1,
		},
		{
			name:     "suffix appends a literal",
			value:    Attribute("Bucket", AttrArn).Suffix("/*"),
			expected: "${Bucket.Arn}/*",
			refs:     1,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.value.String())
			assert.Equal(t, tc.literal, tc.value.IsLiteral())
			assert.Len(t, tc.value.Refs(), tc.refs)
		})
	}
}

func TestJoinCopiesReferences(t *testing.T) {
	original := Attribute("Bucket", AttrName)
	joined := Join(original, Lit("/x"))

	joined.Parts[0].Ref.Target = "Other"

	assert.Equal(t, "Bucket", original.Parts[0].Ref.Target)
	assert.Len(t, joined.Parts, 2)
}
