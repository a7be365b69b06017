package template_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/urbantransit/notify/pkg/template"
)

func TestRender(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		tpl  string
		vars map[string]string
		want string
	}{
		{
			name: "single variable",
			tpl:  "Hello {{name}}!",
			vars: map[string]string{"name": "Ada"},
			want: "Hello Ada!",
		},
		{
			name: "multiple variables",
			tpl:  "Ticket #{{ticketId}} for {{name}}",
			vars: map[string]string{"ticketId": "42", "name": "Ada"},
			want: "Ticket #42 for Ada",
		},
		{
			name: "repeated variable",
			tpl:  "{{x}} and {{x}}",
			vars: map[string]string{"x": "y"},
			want: "y and y",
		},
		{
			name: "unresolved placeholder passes through",
			tpl:  "Hello {{name}}, route {{route}}",
			vars: map[string]string{"name": "Ada"},
			want: "Hello Ada, route {{route}}",
		},
		{
			name: "nil variable map",
			tpl:  "Hello {{name}}",
			vars: nil,
			want: "Hello {{name}}",
		},
		{
			name: "whitespace around variable name",
			tpl:  "Hello {{ name }}",
			vars: map[string]string{"name": "Ada"},
			want: "Hello Ada",
		},
		{
			name: "empty value substituted",
			tpl:  "Hello {{name}}!",
			vars: map[string]string{"name": ""},
			want: "Hello !",
		},
		{
			name: "no placeholders",
			tpl:  "plain text",
			vars: map[string]string{"name": "Ada"},
			want: "plain text",
		},
		{
			name: "empty template",
			tpl:  "",
			vars: map[string]string{"name": "Ada"},
			want: "",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, template.Render(tt.tpl, tt.vars))
		})
	}
}

func TestHasVariables(t *testing.T) {
	t.Parallel()

	assert.True(t, template.HasVariables("Hello {{name}}"))
	assert.False(t, template.HasVariables("Hello world"))
	assert.False(t, template.HasVariables(""))
}
