// Package generator emits, ahead of time, the wrapper types that the runtime
// decorator in internal/instrument builds on the fly: one converting method
// per instrumentable callable method of a component.
package generator

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dave/jennifer/jen"
	"github.com/iancoleman/strcase"
	"go.uber.org/zap"

	"github.com/mcncl/jsonmigration/callable"
	"github.com/mcncl/jsonmigration/internal/discover"
	"github.com/mcncl/jsonmigration/internal/errors"
	"github.com/mcncl/jsonmigration/internal/formatter"
)

const (
	modulePath    = "github.com/mcncl/jsonmigration"
	elementalPath = modulePath + "/elemental"
	jsonnodePath  = modulePath + "/jsonnode"

	// GeneratedHeader marks generated files for tools and reviewers.
	GeneratedHeader = "Code generated by jsonmigrate. DO NOT EDIT."
)

// Options controls code generation.
type Options struct {
	// Package overrides the descriptor package.
	Package string
	// Name is the wrapper type name. Defaults to the component type name
	// followed by Suffix.
	Name   string
	Suffix string
	// FileHeader is an extra comment placed under the generated header.
	FileHeader string
}

// Generator is responsible for generating wrapper sources from descriptors
type Generator struct {
	opts   Options
	logger *zap.Logger
	format *formatter.Formatter
}

// NewGenerator creates a new Generator instance
func NewGenerator(opts Options, logger *zap.Logger) *Generator {
	if opts.Suffix == "" {
		opts.Suffix = "Instrumented"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{opts: opts, logger: logger, format: formatter.NewFormatter()}
}

// Generate returns the wrapper source for d. A component without
// instrumentable methods yields an empty string and no error.
func (g *Generator) Generate(d *Descriptor) (string, error) {
	if err := d.Validate(); err != nil {
		return "", err
	}
	selected, err := discover.Select(d.Discovery(), discover.Modern)
	if err != nil {
		return "", err
	}
	if len(selected) == 0 {
		g.logger.Debug("nothing to generate", zap.String("type", d.Type))
		return "", nil
	}

	pkg := d.Package
	if g.opts.Package != "" {
		pkg = g.opts.Package
	}
	name := g.opts.Name
	if name == "" {
		name = strcase.ToCamel(d.Type) + g.opts.Suffix
	}

	w := &wrapper{desc: d, name: name}
	f := jen.NewFile(pkg)
	f.HeaderComment(GeneratedHeader)
	if g.opts.FileHeader != "" {
		f.HeaderComment(g.opts.FileHeader)
	}

	f.Commentf("%s converts the callable methods of %s for hosts exchanging jsonnode values.", name, d.Type)
	f.Type().Id(name).Struct(jen.Op("*").Add(w.component()))
	f.Line()
	f.Commentf("New%s wraps c.", name)
	f.Func().Id("New"+name).Params(jen.Id("c").Op("*").Add(w.component())).Op("*").Id(name).Block(
		jen.Return(jen.Op("&").Id(name).Values(jen.Dict{jen.Id(d.Type): jen.Id("c")})),
	)

	for _, m := range selected {
		if !m.Exported && d.Import != "" {
			return "", errors.NewConfigurationError(
				fmt.Sprintf("method %s of %s is unexported and cannot be wrapped from another package", m.Name, d.Type), nil)
		}
		fn, err := w.method(m)
		if err != nil {
			return "", err
		}
		f.Line()
		f.Add(fn)
		g.logger.Debug("generated converting method",
			zap.String("type", d.Type), zap.String("method", m.Name), zap.String("marker", m.Marker.String()))
	}

	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return "", errors.NewGenerationError(fmt.Sprintf("failed to render wrapper for %s", d.Type), err)
	}
	code, err := g.format.Format(buf.String())
	if err != nil {
		return "", errors.NewGenerationError(fmt.Sprintf("failed to format wrapper for %s", d.Type), err)
	}
	return code, nil
}

type wrapper struct {
	desc *Descriptor
	name string
}

func (w *wrapper) component() jen.Code {
	if w.desc.Import != "" {
		return jen.Qual(w.desc.Import, w.desc.Type)
	}
	return jen.Id(w.desc.Type)
}

// method builds the converting method for m. Legacy-marked methods take
// jsonnode parameters in place of their elemental ones; JSON-shaped results
// are returned as jsonnode values.
func (w *wrapper) method(m discover.Method) (jen.Code, error) {
	convertArgs := m.Marker == callable.Legacy
	last := len(m.Params) - 1

	var params, args []jen.Code
	var body []jen.Code
	for i, p := range m.Params {
		pname := fmt.Sprintf("p%d", i)
		variadic := m.Variadic && i == last
		converting := convertArgs && p.JSONShaped()

		spelling := p.Name
		if converting {
			spelling = p.NodeName()
		}
		typ, err := w.typeCode(spelling)
		if err != nil {
			return nil, err
		}
		param := jen.Id(pname)
		if variadic {
			param = param.Op("...")
		}
		params = append(params, param.Add(typ))

		arg := pname
		if converting {
			arg = fmt.Sprintf("a%d", i)
			target, err := w.typeCode(p.Name)
			if err != nil {
				return nil, err
			}
			body = append(body, convertParam(arg, pname, target, variadic, m.ReturnsError)...)
		}
		call := jen.Id(arg)
		if variadic {
			call = call.Op("...")
		}
		args = append(args, call)
	}

	invoke := jen.Id("w").Dot(w.desc.Type).Dot(m.Name).Call(args...)

	var result jen.Code
	convertResult := m.HasJSONResult()
	if m.Result != nil {
		spelling := m.Result.Name
		if convertResult {
			spelling = m.Result.NodeName()
		}
		typ, err := w.typeCode(spelling)
		if err != nil {
			return nil, err
		}
		result = typ
	}

	var results []jen.Code
	switch {
	case m.ReturnsError && result != nil:
		results = []jen.Code{jen.Id("out").Add(result), jen.Err().Error()}
		body = append(body,
			jen.List(jen.Id("r"), jen.Err()).Op(":=").Add(invoke),
			jen.If(jen.Err().Op("!=").Nil()).Block(jen.Return()),
		)
		if convertResult {
			body = append(body, jen.Return(qual("ToNodeAs").Types(result).Call(jen.Id("r"))))
		} else {
			body = append(body, jen.Return(jen.Id("r"), jen.Nil()))
		}
	case m.ReturnsError:
		results = []jen.Code{jen.Err().Error()}
		body = append(body, jen.Err().Op("=").Add(invoke), jen.Return())
	case result != nil:
		results = []jen.Code{result}
		if convertResult {
			body = append(body, jen.Return(qual("MustToNodeAs").Types(result).Call(invoke)))
		} else {
			body = append(body, jen.Return(invoke))
		}
	default:
		body = append(body, invoke)
	}

	fn := jen.Func().Params(jen.Id("w").Op("*").Id(w.name)).Id(m.Name).Params(params...)
	switch len(results) {
	case 0:
	case 1:
		if m.ReturnsError {
			fn = fn.Params(results...)
		} else {
			fn = fn.Add(results[0])
		}
	default:
		fn = fn.Params(results...)
	}
	return fn.Block(body...), nil
}

// convertParam converts parameter from into a new variable to. Methods with
// an error result report conversion failures; others panic.
func convertParam(to, from string, target jen.Code, variadic, returnsError bool) []jen.Code {
	if !variadic {
		if returnsError {
			return []jen.Code{
				jen.List(jen.Id(to), jen.Err()).Op(":=").Add(qual("ToElementalAs").Types(target).Call(jen.Id(from))),
				jen.If(jen.Err().Op("!=").Nil()).Block(jen.Return()),
			}
		}
		return []jen.Code{jen.Id(to).Op(":=").Add(qual("MustToElementalAs").Types(target).Call(jen.Id(from)))}
	}

	elem := jen.Id(to).Index(jen.Id("i"))
	var loop jen.Code
	if returnsError {
		loop = jen.If(
			jen.List(elem, jen.Err()).Op("=").Add(qual("ToElementalAs").Types(target).Call(jen.Id("v"))),
			jen.Err().Op("!=").Nil(),
		).Block(jen.Return())
	} else {
		loop = jen.Id(to).Index(jen.Id("i")).Op("=").Add(qual("MustToElementalAs").Types(target).Call(jen.Id("v")))
	}
	return []jen.Code{
		jen.Id(to).Op(":=").Make(jen.Index().Add(target), jen.Len(jen.Id(from))),
		jen.For(jen.List(jen.Id("i"), jen.Id("v")).Op(":=").Range().Id(from)).Block(loop),
	}
}

func qual(name string) *jen.Statement {
	return jen.Qual(modulePath, name)
}

// typeCode renders a type spelling such as "*elemental.Object",
// "[]time.Duration" or "string".
func (w *wrapper) typeCode(spelling string) (*jen.Statement, error) {
	s := strings.TrimSpace(spelling)
	switch {
	case s == "":
		return nil, errors.NewConfigurationError("empty type name in descriptor for "+w.desc.Type, nil)
	case strings.HasPrefix(s, "*"):
		inner, err := w.typeCode(s[1:])
		if err != nil {
			return nil, err
		}
		return jen.Op("*").Add(inner), nil
	case strings.HasPrefix(s, "[]"):
		inner, err := w.typeCode(s[2:])
		if err != nil {
			return nil, err
		}
		return jen.Index().Add(inner), nil
	case strings.ContainsAny(s, "[]{}() ,"):
		return nil, errors.NewConfigurationError(fmt.Sprintf("unsupported type spelling %q in descriptor for %s", spelling, w.desc.Type), nil)
	}

	pkg, name, qualified := strings.Cut(s, ".")
	if !qualified {
		return jen.Id(s), nil
	}
	switch pkg {
	case "elemental":
		return jen.Qual(elementalPath, name), nil
	case "jsonnode":
		return jen.Qual(jsonnodePath, name), nil
	}
	path, ok := w.desc.Imports[pkg]
	if !ok {
		return nil, errors.NewConfigurationError(
			fmt.Sprintf("type %s in descriptor for %s uses package %s, which is not listed in imports", spelling, w.desc.Type, pkg), nil)
	}
	return jen.Qual(path, name), nil
}
