package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name    string
		tmpl    string
		ctx     *Context
		want    string
		wantErr bool
	}{
		{
			name: "report name",
			tmpl: "report-{{.Name}}",
			ctx:  &Context{Name: "fraud-model"},
			want: "report-fraud-model",
		},
		{
			name: "timestamp and status",
			tmpl: "{{.Timestamp}}-{{.Status}}",
			ctx:  &Context{Timestamp: "20260218-120000", Status: "passed"},
			want: "20260218-120000-passed",
		},
		{
			name: "samples and classes",
			tmpl: "n{{.Samples}}-c{{.Classes}}",
			ctx:  &Context{Samples: 1000, Classes: 3},
			want: "n1000-c3",
		},
		{
			name: "user-defined Vars",
			tmpl: "{{.Vars.model}}-{{.Vars.split}}",
			ctx:  &Context{Vars: map[string]string{"model": "v2", "split": "test"}},
			want: "v2-test",
		},
		{
			name: "no templates passthrough",
			tmpl: "plain.json",
			ctx:  &Context{Name: "ignored"},
			want: "plain.json",
		},
		{
			name:    "missing var",
			tmpl:    "{{.Vars.absent}}",
			ctx:     &Context{Vars: map[string]string{}},
			wantErr: true,
		},
		{
			name:    "unknown field",
			tmpl:    "{{.Model}}",
			ctx:     &Context{},
			wantErr: true,
		},
		{
			name:    "parse error",
			tmpl:    "{{.Name",
			ctx:     &Context{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render(tt.tmpl, tt.ctx)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFileName(t *testing.T) {
	ctx := &Context{Name: "fraud model/v2", Timestamp: "20260218-120000"}

	got, err := FileName("", ctx)
	require.NoError(t, err)
	assert.Equal(t, "fraud-model-v2-20260218-120000.json", got)

	got, err = FileName("{{.Name}}.json", &Context{Name: "../../etc"})
	require.NoError(t, err)
	assert.Equal(t, "..-..-etc.json", got)

	_, err = FileName("{{.Status}}", &Context{})
	require.Error(t, err)
}
