// Package host declares what the adapter consumes from the hosting
// framework: the component base type, elements, DOM events, pending script
// results and the host's version.
//
// Values crossing this boundary are typed any. Legacy hosts exchange
// elemental values; newer hosts exchange jsonnode nodes.
package host

// Component is the base type embedded by every host component. Discovery of
// callable methods stops at Component.
type Component struct {
	element Element
}

// Element returns the element the component is attached to, or nil.
func (c *Component) Element() Element {
	return c.element
}

// Attach binds the component to an element.
func (c *Component) Attach(el Element) {
	c.element = el
}

// Element is a host-side DOM element.
type Element interface {
	// SetPropertyJSON assigns a JSON value to a property of the element.
	SetPropertyJSON(name string, value any)
	// ExecuteJS schedules expr with $0..$n bound to args.
	ExecuteJS(expr string, args ...any) PendingJavaScriptResult
}

// PendingJavaScriptResult is the host's handle on a script evaluation that
// completes later. The host calls exactly one of the handlers.
type PendingJavaScriptResult interface {
	Then(onResult func(value any), onError func(message string))
}

// DomEvent is a host DOM event carrying a JSON object of event data.
type DomEvent interface {
	EventData() any
}

// VersionSource reports the major version of the running host.
type VersionSource interface {
	MajorVersion() (int, error)
}

// StaticVersion is a VersionSource with a fixed answer.
type StaticVersion int

func (v StaticVersion) MajorVersion() (int, error) {
	return int(v), nil
}
