package generator

import (
	"fmt"
	"go/token"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mcncl/jsonmigration/callable"
	"github.com/mcncl/jsonmigration/internal/discover"
	"github.com/mcncl/jsonmigration/internal/errors"
)

// Descriptor lists a component type and its callable methods, the build-time
// counterpart of callable.Register.
type Descriptor struct {
	Package string `yaml:"package"`
	Type    string `yaml:"type"`
	// Import is the import path of the component's package. Empty means the
	// wrapper is generated into that package.
	Import string `yaml:"import"`
	// Imports maps package names used in type spellings to import paths.
	Imports map[string]string `yaml:"imports"`
	// Methods are listed outermost declaration first.
	Methods []MethodDescriptor `yaml:"methods"`
}

// MethodDescriptor describes one callable method.
type MethodDescriptor struct {
	Name string `yaml:"name"`
	// DeclaredIn names the embedded struct declaring the method. Defaults to
	// the component type.
	DeclaredIn   string   `yaml:"declared_in"`
	Marker       string   `yaml:"marker"`
	Params       []string `yaml:"params"`
	Variadic     bool     `yaml:"variadic"`
	Result       string   `yaml:"result"`
	ReturnsError bool     `yaml:"returns_error"`
	Static       bool     `yaml:"static"`
}

// LoadDescriptor reads a YAML descriptor file.
func LoadDescriptor(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewInputError(fmt.Sprintf("descriptor '%s' not found", path), errors.ErrFileNotFound)
		}
		return nil, errors.NewInputError(fmt.Sprintf("failed to read descriptor '%s'", path), err)
	}
	return ParseDescriptor(data)
}

// ParseDescriptor decodes and checks a YAML descriptor.
func ParseDescriptor(data []byte) (*Descriptor, error) {
	var d Descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, errors.NewParsingError("failed to parse descriptor", err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Validate checks the names in d.
func (d *Descriptor) Validate() error {
	if !token.IsIdentifier(d.Package) {
		return errors.NewConfigurationError(fmt.Sprintf("descriptor package %q is not a Go identifier", d.Package), nil)
	}
	if !token.IsIdentifier(d.Type) {
		return errors.NewConfigurationError(fmt.Sprintf("descriptor type %q is not a Go identifier", d.Type), nil)
	}
	for i, m := range d.Methods {
		if !token.IsIdentifier(m.Name) {
			return errors.NewConfigurationError(fmt.Sprintf("method %d of %s has invalid name %q", i, d.Type, m.Name), nil)
		}
		if _, err := callable.ParseMarker(m.Marker); err != nil {
			return errors.NewConfigurationError(fmt.Sprintf("method %s of %s", m.Name, d.Type), err)
		}
		if m.Variadic && len(m.Params) == 0 {
			return errors.NewConfigurationError(fmt.Sprintf("method %s of %s is variadic without parameters", m.Name, d.Type), nil)
		}
	}
	return nil
}

// Discovery converts the descriptor into discovery input.
func (d *Descriptor) Discovery() []discover.Method {
	out := make([]discover.Method, 0, len(d.Methods))
	for _, md := range d.Methods {
		// Validate has checked the marker.
		marker, _ := callable.ParseMarker(md.Marker)
		m := discover.Method{
			Name:          md.Name,
			DeclaringType: d.Type,
			Variadic:      md.Variadic,
			ReturnsError:  md.ReturnsError,
			Exported:      token.IsExported(md.Name),
			Marker:        marker,
			Static:        md.Static,
		}
		if md.DeclaredIn != "" {
			m.DeclaringType = md.DeclaredIn
		}
		for _, p := range md.Params {
			m.Params = append(m.Params, discover.RefOfName(p))
		}
		if r := strings.TrimSpace(md.Result); r != "" {
			ref := discover.RefOfName(r)
			m.Result = &ref
		}
		out = append(out, m)
	}
	return out
}
