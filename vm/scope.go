package vm

import (
	"fmt"

	"github.com/chazu/baraco/value"
)

// ---------------------------------------------------------------------------
// Scopes
// ---------------------------------------------------------------------------

// Scope is a level of the symbol table. Local scopes chain outward and
// every chain ends at exactly one ClassScope.
type Scope interface {
	// Lookup finds name in this scope or any enclosing one.
	Lookup(name string) (*value.Value, bool)

	// Declare binds name in this scope. Redeclaring a name already bound
	// at the same level is an error.
	Declare(name string, v *value.Value) error

	// Class returns the class scope at the end of the chain.
	Class() *ClassScope
}

// ResolveVariable looks name up from scope outward. A name that is not
// bound anywhere up to the class scope is a SymbolResolution error.
func ResolveVariable(scope Scope, name string) (*value.Value, error) {
	if v, ok := scope.Lookup(name); ok {
		return v, nil
	}
	return nil, &RuntimeError{
		Kind: SymbolResolution,
		Expr: name,
		Err:  fmt.Errorf("undefined variable %q", name),
	}
}

// ---------------------------------------------------------------------------
// ClassScope
// ---------------------------------------------------------------------------

// ClassScope owns a class's methods and field bindings.
type ClassScope struct {
	name    string
	fields  map[string]*value.Value
	order   []string
	methods map[string]*Method
	mnames  []string
}

// NewClassScope creates an empty class scope.
func NewClassScope(name string) *ClassScope {
	return &ClassScope{
		name:    name,
		fields:  make(map[string]*value.Value),
		methods: make(map[string]*Method),
	}
}

// Name returns the class name.
func (c *ClassScope) Name() string { return c.name }

func (c *ClassScope) Lookup(name string) (*value.Value, bool) {
	v, ok := c.fields[name]
	return v, ok
}

func (c *ClassScope) Declare(name string, v *value.Value) error {
	if _, exists := c.fields[name]; exists {
		return &RuntimeError{
			Kind: SymbolResolution,
			Expr: name,
			Err:  fmt.Errorf("field %q already declared in %s", name, c.name),
		}
	}
	c.fields[name] = v
	c.order = append(c.order, name)
	return nil
}

func (c *ClassScope) Class() *ClassScope { return c }

// Fields returns the declared field names in declaration order.
func (c *ClassScope) Fields() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// resetFields drops all field bindings so a new run starts clean.
func (c *ClassScope) resetFields() {
	c.fields = make(map[string]*value.Value)
	c.order = nil
}

// AddMethod registers a method. Method names are unique per class.
func (c *ClassScope) AddMethod(m *Method) error {
	if _, exists := c.methods[m.Name]; exists {
		return fmt.Errorf("method %s.%s already defined", c.name, m.Name)
	}
	m.Class = c
	c.methods[m.Name] = m
	c.mnames = append(c.mnames, m.Name)
	return nil
}

// ResolveMethod finds a method in this class scope only.
func (c *ClassScope) ResolveMethod(name string) (*Method, error) {
	if m, ok := c.methods[name]; ok {
		return m, nil
	}
	return nil, &RuntimeError{
		Kind: SymbolResolution,
		Expr: name,
		Err:  fmt.Errorf("undefined method %q in class %s", name, c.name),
	}
}

// Methods returns the class's methods in definition order.
func (c *ClassScope) Methods() []*Method {
	out := make([]*Method, len(c.mnames))
	for i, n := range c.mnames {
		out[i] = c.methods[n]
	}
	return out
}

// ---------------------------------------------------------------------------
// LocalScope
// ---------------------------------------------------------------------------

// LocalScope holds the locals of a method body, loop iteration or block.
type LocalScope struct {
	parent   Scope
	vars     map[string]*value.Value
	declared []string
}

// NewLocalScope creates a scope nested in parent.
func NewLocalScope(parent Scope) *LocalScope {
	return &LocalScope{parent: parent, vars: make(map[string]*value.Value)}
}

func (l *LocalScope) Lookup(name string) (*value.Value, bool) {
	if v, ok := l.vars[name]; ok {
		return v, true
	}
	return l.parent.Lookup(name)
}

func (l *LocalScope) Declare(name string, v *value.Value) error {
	if _, exists := l.vars[name]; exists {
		return &RuntimeError{
			Kind: SymbolResolution,
			Expr: name,
			Err:  fmt.Errorf("variable %q already declared in this scope", name),
		}
	}
	l.vars[name] = v
	l.declared = append(l.declared, name)
	return nil
}

func (l *LocalScope) Class() *ClassScope { return l.parent.Class() }

// Declared returns the names bound directly in this scope, in
// declaration order.
func (l *LocalScope) Declared() []string {
	out := make([]string, len(l.declared))
	copy(out, l.declared)
	return out
}

// fieldTexts renders every field of c keyed by "Class.field".
func fieldTexts(c *ClassScope, into map[string]string) {
	for _, n := range c.order {
		into[c.name+"."+n] = c.fields[n].Text()
	}
}
