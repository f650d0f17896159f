// Package hosttest provides in-memory host collaborators for tests.
package hosttest

import (
	"fmt"
	"sync"

	"github.com/mcncl/jsonmigration/host"
)

// Script is one ExecuteJS call recorded by an Element.
type Script struct {
	Expr    string
	Args    []any
	Pending *Pending
}

// Element records property assignments and script evaluations.
type Element struct {
	mu         sync.Mutex
	properties map[string]any
	scripts    []Script
}

// NewElement returns an empty element.
func NewElement() *Element {
	return &Element{properties: make(map[string]any)}
}

func (e *Element) SetPropertyJSON(name string, value any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.properties[name] = value
}

// Property returns the last value assigned to name.
func (e *Element) Property(name string) (any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.properties[name]
	return v, ok
}

func (e *Element) ExecuteJS(expr string, args ...any) host.PendingJavaScriptResult {
	p := &Pending{}
	e.mu.Lock()
	e.scripts = append(e.scripts, Script{Expr: expr, Args: args, Pending: p})
	e.mu.Unlock()
	return p
}

// Scripts returns the recorded script evaluations in call order.
func (e *Element) Scripts() []Script {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Script, len(e.scripts))
	copy(out, e.scripts)
	return out
}

// LastScript returns the most recent script evaluation.
func (e *Element) LastScript() Script {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.scripts) == 0 {
		return Script{}
	}
	return e.scripts[len(e.scripts)-1]
}

// Pending is a script result completed by the test through Complete or Fail.
type Pending struct {
	mu       sync.Mutex
	onResult func(any)
	onError  func(string)
	done     bool
}

func (p *Pending) Then(onResult func(any), onError func(string)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onResult = onResult
	p.onError = onError
}

// Complete delivers value to the registered result handler.
func (p *Pending) Complete(value any) error {
	onResult, _, err := p.finish()
	if err != nil {
		return err
	}
	if onResult != nil {
		onResult(value)
	}
	return nil
}

// Fail delivers message to the registered error handler.
func (p *Pending) Fail(message string) error {
	_, onError, err := p.finish()
	if err != nil {
		return err
	}
	if onError != nil {
		onError(message)
	}
	return nil
}

func (p *Pending) finish() (func(any), func(string), error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done {
		return nil, nil, fmt.Errorf("pending result already completed")
	}
	if p.onResult == nil && p.onError == nil {
		return nil, nil, fmt.Errorf("no handlers registered")
	}
	p.done = true
	return p.onResult, p.onError, nil
}

// Event is a DOM event with fixed data.
type Event struct {
	Data any
}

func (e Event) EventData() any { return e.Data }

// FailingVersion is a VersionSource that always errors.
type FailingVersion struct {
	Err error
}

func (f FailingVersion) MajorVersion() (int, error) {
	return 0, f.Err
}
