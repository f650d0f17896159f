package generator

import (
	stderrors "errors"
	"go/parser"
	"go/token"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mcncl/jsonmigration/internal/errors"
)

func loadReportView(t *testing.T) *Descriptor {
	t.Helper()
	d, err := LoadDescriptor(filepath.Join("testdata", "report_view.yaml"))
	require.NoError(t, err)
	return d
}

func generate(t *testing.T, opts Options, d *Descriptor) string {
	t.Helper()
	code, err := NewGenerator(opts, zaptest.NewLogger(t)).Generate(d)
	require.NoError(t, err)
	return code
}

func assertParses(t *testing.T, code string) {
	t.Helper()
	_, err := parser.ParseFile(token.NewFileSet(), "wrapper.go", code, parser.ParseComments)
	require.NoError(t, err, "generated code:\n%s", code)
}

func TestLoadDescriptor(t *testing.T) {
	d := loadReportView(t)

	assert.Equal(t, "views", d.Package)
	assert.Equal(t, "ReportView", d.Type)
	assert.Equal(t, map[string]string{"time": "time"}, d.Imports)
	require.Len(t, d.Methods, 6)
	assert.Equal(t, "merge", d.Methods[1].Name)
	assert.Equal(t, []string{"*elemental.Object", "string"}, d.Methods[1].Params)
	assert.True(t, d.Methods[1].ReturnsError)
	assert.True(t, d.Methods[2].Variadic)
	assert.True(t, d.Methods[5].Static)
}

func TestLoadDescriptor_Missing(t *testing.T) {
	_, err := LoadDescriptor(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrFileNotFound))
	assert.True(t, errors.IsType(err, errors.ErrorTypeInput))
}

func TestParseDescriptor_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		errType errors.ErrorType
		message string
	}{
		{
			name:    "invalid yaml",
			yaml:    "package: [views",
			errType: errors.ErrorTypeParsing,
			message: "failed to parse descriptor",
		},
		{
			name:    "bad package",
			yaml:    "package: my-views\ntype: ReportView\n",
			errType: errors.ErrorTypeConfiguration,
			message: `"my-views" is not a Go identifier`,
		},
		{
			name:    "missing type",
			yaml:    "package: views\n",
			errType: errors.ErrorTypeConfiguration,
			message: "descriptor type",
		},
		{
			name:    "bad method name",
			yaml:    "package: views\ntype: ReportView\nmethods:\n  - name: 2fast\n",
			errType: errors.ErrorTypeConfiguration,
			message: `invalid name "2fast"`,
		},
		{
			name:    "unknown marker",
			yaml:    "package: views\ntype: ReportView\nmethods:\n  - name: Summary\n    marker: exported\n",
			errType: errors.ErrorTypeConfiguration,
			message: `unknown callable marker "exported"`,
		},
		{
			name:    "variadic without params",
			yaml:    "package: views\ntype: ReportView\nmethods:\n  - name: Append\n    variadic: true\n",
			errType: errors.ErrorTypeConfiguration,
			message: "variadic without parameters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDescriptor([]byte(tt.yaml))
			require.Error(t, err)
			assert.True(t, errors.IsType(err, tt.errType), "got %v", err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestDescriptor_Methods(t *testing.T) {
	d := loadReportView(t)
	d.Methods[0].DeclaredIn = "BaseView"

	methods := d.Discovery()
	require.Len(t, methods, 6)

	summary := methods[0]
	assert.Equal(t, "BaseView", summary.DeclaringType)
	assert.True(t, summary.Exported)
	assert.True(t, summary.HasJSONResult())
	assert.False(t, summary.HasJSONParam())

	merge := methods[1]
	assert.Equal(t, "ReportView", merge.DeclaringType)
	assert.False(t, merge.Exported)
	assert.True(t, merge.HasJSONParam())
	assert.Equal(t, "(*elemental.Object, string)", merge.Signature())

	assert.Equal(t, "(int, ...elemental.Value)", methods[2].Signature())
	assert.Nil(t, methods[2].Result)
	assert.True(t, methods[5].Static)
}

func TestGenerate_ReportView(t *testing.T) {
	code := generate(t, Options{}, loadReportView(t))
	assertParses(t, code)

	assert.True(t, strings.HasPrefix(code, "// "+GeneratedHeader+"\n"), "header missing:\n%s", code)
	assert.Contains(t, code, "package views\n")
	assert.Contains(t, code, "type ReportViewInstrumented struct {\n\t*ReportView\n}")
	assert.Contains(t, code, "func NewReportViewInstrumented(c *ReportView) *ReportViewInstrumented {")
	assert.Contains(t, code, "ReportView: c")

	// Plain method with a JSON result: converted, panicking on failure.
	assert.Contains(t, code, "func (w *ReportViewInstrumented) Summary() *jsonnode.ObjectNode {\n"+
		"\treturn jsonmigration.MustToNodeAs[*jsonnode.ObjectNode](w.ReportView.Summary())\n}")

	// Legacy method with an error result reports conversion failures.
	assert.Contains(t, code, "func (w *ReportViewInstrumented) merge(p0 *jsonnode.ObjectNode, p1 string) (out *jsonnode.ObjectNode, err error) {\n"+
		"\ta0, err := jsonmigration.ToElementalAs[*elemental.Object](p0)\n"+
		"\tif err != nil {\n\t\treturn\n\t}\n"+
		"\tr, err := w.ReportView.merge(a0, p1)\n"+
		"\tif err != nil {\n\t\treturn\n\t}\n"+
		"\treturn jsonmigration.ToNodeAs[*jsonnode.ObjectNode](r)\n}")

	// Variadic legacy parameters are converted element by element.
	assert.Contains(t, code, "func (w *ReportViewInstrumented) Append(p0 int, p1 ...jsonnode.Node) {\n"+
		"\ta1 := make([]elemental.Value, len(p1))\n"+
		"\tfor i, v := range p1 {\n"+
		"\t\ta1[i] = jsonmigration.MustToElementalAs[elemental.Value](v)\n"+
		"\t}\n"+
		"\tw.ReportView.Append(p0, a1...)\n}")

	// Non-JSON parameters keep their declared types.
	assert.Contains(t, code, "func (w *ReportViewInstrumented) Since(p0 time.Duration) jsonnode.NumberNode {\n"+
		"\treturn jsonmigration.MustToNodeAs[jsonnode.NumberNode](w.ReportView.Since(p0))\n}")

	// Plain methods without JSON results and static methods pass through.
	assert.NotContains(t, code, ") Title(")
	assert.NotContains(t, code, ") Create(")

	// Standard library imports come first, in their own group.
	timeAt := strings.Index(code, "\"time\"\n\n")
	moduleAt := strings.Index(code, "\"github.com/mcncl/jsonmigration\"")
	require.NotEqual(t, -1, timeAt, "time import not grouped:\n%s", code)
	require.NotEqual(t, -1, moduleAt)
	assert.Less(t, timeAt, moduleAt)
}

func TestGenerate_Options(t *testing.T) {
	d := loadReportView(t)
	d.Import = "example.com/app/views"
	d.Methods = d.Methods[:1]

	code := generate(t, Options{
		Package:    "viewsgen",
		Name:       "ReportAdapter",
		FileHeader: "Source: report_view.yaml",
	}, d)
	assertParses(t, code)

	assert.Contains(t, code, "// Source: report_view.yaml")
	assert.Contains(t, code, "package viewsgen\n")
	assert.Contains(t, code, "\"example.com/app/views\"")
	assert.Contains(t, code, "type ReportAdapter struct {\n\t*views.ReportView\n}")
	assert.Contains(t, code, "func NewReportAdapter(c *views.ReportView) *ReportAdapter {")
	assert.Contains(t, code, "func (w *ReportAdapter) Summary() *jsonnode.ObjectNode {")
}

func TestGenerate_Suffix(t *testing.T) {
	d := loadReportView(t)
	d.Type = "report_view"
	d.Methods = d.Methods[:1]

	code := generate(t, Options{Suffix: "Modern"}, d)
	assert.Contains(t, code, "type ReportViewModern struct {")
}

func TestGenerate_NothingToGenerate(t *testing.T) {
	d, err := ParseDescriptor([]byte(`package: views
type: LabelView
methods:
  - name: Text
    marker: callable
    result: string
  - name: Parse
    static: true
    params: ["elemental.Value"]
`))
	require.NoError(t, err)

	code, err := NewGenerator(Options{}, nil).Generate(d)
	require.NoError(t, err)
	assert.Empty(t, code)
}

func TestGenerate_Errors(t *testing.T) {
	tests := []struct {
		name     string
		yaml     string
		sentinel error
		message  string
	}{
		{
			name: "plain marker with JSON parameter",
			yaml: `package: views
type: ReportView
methods:
  - name: Load
    marker: callable
    params: ["*elemental.Object"]
`,
			sentinel: errors.ErrMarkerMismatch,
			message:  "mark it legacy-callable instead",
		},
		{
			name: "name collision across embedded types",
			yaml: `package: views
type: ReportView
methods:
  - name: Merge
    marker: legacy
    params: ["*elemental.Object"]
  - name: Merge
    marker: legacy
    declared_in: BaseView
    params: ["*elemental.Array"]
`,
			sentinel: errors.ErrNameCollision,
			message:  "Merge(*elemental.Array) in BaseView",
		},
		{
			name: "unexported method in another package",
			yaml: `package: viewsgen
type: ReportView
import: example.com/app/views
methods:
  - name: summary
    result: "*elemental.Object"
`,
			message: "method summary of ReportView is unexported",
		},
		{
			name: "package missing from imports",
			yaml: `package: views
type: ReportView
methods:
  - name: Tag
    marker: legacy
    params: ["uuid.UUID"]
    result: elemental.String
`,
			message: "uses package uuid, which is not listed in imports",
		},
		{
			name: "unsupported type spelling",
			yaml: `package: views
type: ReportView
methods:
  - name: Counts
    marker: legacy
    params: ["map[string]int"]
    result: elemental.Value
`,
			message: `unsupported type spelling "map[string]int"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseDescriptor([]byte(tt.yaml))
			require.NoError(t, err)

			code, err := NewGenerator(Options{}, zaptest.NewLogger(t)).Generate(d)
			require.Error(t, err)
			assert.Empty(t, code)
			assert.True(t, errors.IsType(err, errors.ErrorTypeConfiguration), "got %v", err)
			if tt.sentinel != nil {
				assert.True(t, stderrors.Is(err, tt.sentinel), "got %v", err)
			}
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}
