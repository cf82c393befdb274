package scopes

import (
	"fmt"
	"sort"
	"strings"

	"github.com/goliatone/go-scopes/layering"
	"github.com/goliatone/go-scopes/pkg/tree"
)

// MethodFunc implements a scope method. c is bound to the owning scope;
// args are the caller's positional arguments.
type MethodFunc func(c *Context, args ...any) (any, error)

// Node is a template entry. It is exactly one of a method (Method, Expr,
// ExprWith) or a sub-scope (Sub).
type Node interface {
	templateNode()
}

// Template maps scope and method names to their declarations.
type Template map[string]Node

type methodNode struct {
	fn MethodFunc
}

type exprNode struct {
	evaluator  Evaluator
	expression string
	explicit   bool
}

// SubTemplate declares a nested scope. Build it with Sub; a zero SubTemplate
// has no default and is rejected at construction.
type SubTemplate struct {
	def      any
	children Template
	declared bool
}

func (methodNode) templateNode()   {}
func (exprNode) templateNode()     {}
func (*SubTemplate) templateNode() {}

// Method declares a Go method.
func Method(fn MethodFunc) Node {
	return methodNode{fn: fn}
}

// Expr declares a method evaluated by the store's evaluator. The expression
// sees the scope value as value and the call arguments as args.
func Expr(expression string) Node {
	return exprNode{expression: expression}
}

// ExprWith declares an expression method evaluated by evaluator. A nil
// evaluator fails construction with ErrNoEvaluator.
func ExprWith(evaluator Evaluator, expression string) Node {
	return exprNode{evaluator: evaluator, expression: expression, explicit: true}
}

// Sub declares a nested scope seeded from def. children may declare methods
// and further sub-scopes; when it declares sub-scopes def must be nil or a
// mapping.
func Sub(def any, children Template) *SubTemplate {
	return &SubTemplate{def: def, children: children, declared: true}
}

// compiledTemplate is the validated, flattened form of a Template. Index 0
// is the root scope; the rest follow in depth-first, name-sorted order.
type compiledTemplate struct {
	nodes    []*nodeSpec
	index    map[string]int
	defaults map[string]any

	evaluator Evaluator
}

type nodeSpec struct {
	path     string
	name     string
	segments []string
	parent   int
	children []int
	methods  map[string]*methodSpec
	names    []string
}

type methodSpec struct {
	name       string
	fn         MethodFunc
	expression string
	evaluator  Evaluator
	rule       CompiledRule
}

func compileTemplate(t Template, cfg storeConfig) (*compiledTemplate, error) {
	if t == nil {
		return nil, templateError("", fmt.Errorf("%w: root template is nil", ErrInvalidTemplate))
	}
	c := &compiledTemplate{
		index:     make(map[string]int),
		evaluator: cfg.evaluator,
	}
	c.add(&nodeSpec{parent: -1})
	if c.evaluator == nil {
		c.evaluator = defaultEvaluator(cfg)
	}
	defaults, err := c.compileChildren(0, t)
	if err != nil {
		return nil, err
	}
	c.defaults = defaults
	return c, nil
}

func defaultEvaluator(cfg storeConfig) Evaluator {
	var opts []ExprEvaluatorOption
	if cfg.programCache != nil {
		opts = append(opts, ExprWithProgramCache(cfg.programCache))
	}
	if cfg.functions != nil {
		opts = append(opts, ExprWithFunctionRegistry(cfg.functions))
	}
	return NewExprEvaluator(opts...)
}

func (c *compiledTemplate) add(spec *nodeSpec) int {
	idx := len(c.nodes)
	spec.segments = tree.Split(spec.path)
	spec.methods = make(map[string]*methodSpec)
	c.nodes = append(c.nodes, spec)
	c.index[spec.path] = idx
	if spec.parent >= 0 {
		parent := c.nodes[spec.parent]
		parent.children = append(parent.children, idx)
	}
	return idx
}

// compileChildren registers the entries of t under parent and returns the
// default values of its sub-scopes keyed by name.
func (c *compiledTemplate) compileChildren(parent int, t Template) (map[string]any, error) {
	owner := c.nodes[parent]
	defaults := make(map[string]any)

	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		path := tree.Join(owner.path, name)
		if err := validateName(name); err != nil {
			return nil, templateError(path, err)
		}
		switch entry := t[name].(type) {
		case nil:
			return nil, templateError(path, fmt.Errorf("%w: entry is nil", ErrInvalidTemplate))
		case methodNode:
			if entry.fn == nil {
				return nil, templateError(path, fmt.Errorf("%w: method func is nil", ErrInvalidTemplate))
			}
			owner.addMethod(&methodSpec{name: name, fn: entry.fn})
		case exprNode:
			spec, err := c.compileExpr(owner.path, name, entry)
			if err != nil {
				return nil, templateError(path, err)
			}
			owner.addMethod(spec)
		case *SubTemplate:
			if entry == nil || !entry.declared {
				return nil, templateError(path, ErrMissingDefault)
			}
			idx := c.add(&nodeSpec{path: path, name: name, parent: parent})
			nested, err := c.compileChildren(idx, entry.children)
			if err != nil {
				return nil, err
			}
			value := tree.Native(entry.def)
			if len(nested) > 0 {
				own, ok := value.(map[string]any)
				if value != nil && !ok {
					return nil, templateError(path, fmt.Errorf("%w: default of a scope with sub-scopes must be a mapping, got %T", ErrInvalidTemplate, entry.def))
				}
				value = layering.MergeLayers(own, nested)
			}
			defaults[name] = value
		default:
			return nil, templateError(path, fmt.Errorf("%w: unsupported node %T", ErrInvalidTemplate, entry))
		}
	}
	return defaults, nil
}

func (c *compiledTemplate) compileExpr(scope, name string, entry exprNode) (*methodSpec, error) {
	if strings.TrimSpace(entry.expression) == "" {
		return nil, fmt.Errorf("%w: expression is empty", ErrInvalidTemplate)
	}
	evaluator := entry.evaluator
	if !entry.explicit {
		evaluator = c.evaluator
	}
	if evaluator == nil {
		return nil, ErrNoEvaluator
	}
	rule, err := evaluator.Compile(entry.expression, CompileForScope(scope))
	if err != nil {
		return nil, err
	}
	return &methodSpec{
		name:       name,
		expression: entry.expression,
		evaluator:  evaluator,
		rule:       rule,
	}, nil
}

func (n *nodeSpec) addMethod(spec *methodSpec) {
	n.methods[spec.name] = spec
	n.names = append(n.names, spec.name)
}

func validateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("%w: name must not be empty", ErrInvalidTemplate)
	case name == tree.Whole:
		return fmt.Errorf("%w: name %q is reserved", ErrInvalidTemplate, name)
	case strings.Contains(name, tree.Separator):
		return fmt.Errorf("%w: name %q must not contain %q", ErrInvalidTemplate, name, tree.Separator)
	}
	return nil
}

// freeze converts the root and every container sitting on a scope path into
// frozen containers. Values below the scope paths are left as they are.
func (c *compiledTemplate) freeze(state any) any {
	return c.freezeNode(0, state)
}

func (c *compiledTemplate) freezeNode(idx int, value any) any {
	frozen := tree.Freeze(value)
	m, ok := frozen.(*tree.Map)
	if !ok {
		return frozen
	}
	for _, child := range c.nodes[idx].children {
		spec := c.nodes[child]
		current, exists := m.Get(spec.name)
		if !exists {
			continue
		}
		m = m.With(spec.name, c.freezeNode(child, current))
	}
	return m
}

// checkShape reports the first scope path missing from state, or holding a
// non-mapping value where the scope declares sub-scopes.
func (c *compiledTemplate) checkShape(state any) error {
	for _, spec := range c.nodes[1:] {
		value, ok := tree.Lookup(state, spec.segments)
		if !ok {
			return fmt.Errorf("%w: scope %q is missing", ErrIncompatibleState, spec.path)
		}
		if len(spec.children) > 0 && !tree.IsMapping(value) {
			return fmt.Errorf("%w: scope %q must hold a mapping, got %T", ErrIncompatibleState, spec.path, value)
		}
	}
	return nil
}
