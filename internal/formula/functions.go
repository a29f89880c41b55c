package formula

import (
	"fmt"
	"strings"
)

// RandSource supplies randomness to the few builtins that want it. The engine
// exposes its seeded source to resolution contexts under the name "rng"; a
// context without one degrades deterministically.
type RandSource interface {
	Intn(n int) int
}

// RandCallable adapts a RandSource into a value bindable under "rng" in an
// evaluation context.
type RandCallable struct {
	RandSource
}

func (RandCallable) GetValue(string) Value { return Null }
func (RandCallable) Inputs() []Input       { return nil }

// NativeFunc is the implementation of a host-registered function. It receives
// the unevaluated argument expressions so it can be as lazy as the builtins.
type NativeFunc func(ctx Callable, args []Expr) Value

type nativeDef struct {
	name    string
	minArgs int // -1 for no minimum
	maxArgs int // -1 for unbounded
	fn      NativeFunc
}

type nativeExpr struct {
	def  *nativeDef
	args []Expr
}

func (e *nativeExpr) Evaluate(ctx Callable) Value { return e.def.fn(ctx, e.args) }

// SymbolTable resolves function names at parse time. Resolution order:
// this table's user-defined formulas, then its native registrations, then the
// backup chain, and finally the shared builtin table. Tables layer, so a
// content pack can shadow or extend a global table.
type SymbolTable struct {
	formulas  map[string]*FormulaFunction
	natives   map[string]*nativeDef
	constants map[string]Value
	backup    *SymbolTable
}

// NewSymbolTable creates an empty table falling back to backup (may be nil).
func NewSymbolTable(backup *SymbolTable) *SymbolTable {
	return &SymbolTable{
		formulas:  make(map[string]*FormulaFunction),
		natives:   make(map[string]*nativeDef),
		constants: make(map[string]Value),
		backup:    backup,
	}
}

// RegisterNative binds a host function. minArgs/maxArgs are enforced at
// construction time; -1 disables a bound.
func (t *SymbolTable) RegisterNative(name string, minArgs, maxArgs int, fn NativeFunc) {
	t.natives[name] = &nativeDef{name: name, minArgs: minArgs, maxArgs: maxArgs, fn: fn}
}

// DefineConstant binds an UPPER_CASE constant resolvable from formulas.
func (t *SymbolTable) DefineConstant(name string, v Value) {
	t.constants[name] = v
}

// Constant resolves a constant through the backup chain.
func (t *SymbolTable) Constant(name string) (Value, bool) {
	for tab := t; tab != nil; tab = tab.backup {
		if v, ok := tab.constants[name]; ok {
			return v, true
		}
	}
	return Null, false
}

// AddFormulaFunction registers a user-defined formula function.
func (t *SymbolTable) AddFormulaFunction(fn *FormulaFunction) {
	t.formulas[fn.Name] = fn
}

// FunctionNames lists the names registered directly on this table.
func (t *SymbolTable) FunctionNames() []string {
	var names []string
	for n := range t.formulas {
		names = append(names, n)
	}
	for n := range t.natives {
		names = append(names, n)
	}
	return names
}

// createFunction builds a call expression for name, or reports an unknown
// function. Arity violations surface here, at compile time.
func (t *SymbolTable) createFunction(name string, args []Expr) (Expr, error) {
	for tab := t; tab != nil; tab = tab.backup {
		if fn, ok := tab.formulas[name]; ok {
			return fn.call(args)
		}
		if def, ok := tab.natives[name]; ok {
			if err := checkArity(name, len(args), def.minArgs, def.maxArgs); err != nil {
				return nil, err
			}
			return &nativeExpr{def: def, args: args}, nil
		}
	}

	def, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("unknown function %q", name)
	}
	if err := checkArity(name, len(args), def.minArgs, def.maxArgs); err != nil {
		return nil, err
	}
	expr := &builtinExpr{name: name, def: def, args: args}
	if folded, ok := foldBuiltin(expr); ok {
		return folded, nil
	}
	return expr, nil
}

func checkArity(name string, n, min, max int) error {
	if min >= 0 && n < min {
		return fmt.Errorf("incorrect number of arguments to %s(): expected at least %d, found %d", name, min, n)
	}
	if max >= 0 && n > max {
		return fmt.Errorf("incorrect number of arguments to %s(): expected at most %d, found %d", name, max, n)
	}
	return nil
}

// FormulaFunction is a content-defined function: named arguments and a body
// formula, optionally guarded by a precondition.
type FormulaFunction struct {
	Name         string
	Args         []string
	Body         *Formula
	Precondition *Formula
}

func (f *FormulaFunction) call(args []Expr) (Expr, error) {
	if err := checkArity(f.Name, len(args), len(f.Args), len(f.Args)); err != nil {
		return nil, err
	}
	return &formulaCallExpr{fn: f, args: args}, nil
}

type formulaCallExpr struct {
	fn   *FormulaFunction
	args []Expr
}

func (e *formulaCallExpr) Evaluate(ctx Callable) Value {
	scope := NewMapCallable(nil)
	for i, name := range e.fn.Args {
		scope.Add(name, e.args[i].Evaluate(ctx))
	}
	if e.fn.Precondition != nil && !e.fn.Precondition.Execute(scope).AsBool() {
		return Null
	}
	if e.fn.Body == nil {
		// Recursive stub not yet back-patched; calling it is a defect in
		// the loader, not the content.
		panic(fmt.Sprintf("formula: call to unresolved function %q", e.fn.Name))
	}
	return e.fn.Body.Execute(scope)
}

// recursiveTable wraps a symbol table during the parse of a user function
// body so the function can call itself by name. The stub's body is
// back-patched once parsing completes.
type recursiveTable struct {
	*SymbolTable
	stub *FormulaFunction
}

func newRecursiveTable(name string, args []string, backup *SymbolTable) *recursiveTable {
	t := &recursiveTable{
		SymbolTable: NewSymbolTable(backup),
		stub:        &FormulaFunction{Name: name, Args: args},
	}
	t.SymbolTable.AddFormulaFunction(t.stub)
	return t
}

func (t *recursiveTable) resolve(body *Formula) *FormulaFunction {
	t.stub.Body = body
	return t.stub
}

// --- Builtins ---

type builtinDef struct {
	minArgs int
	maxArgs int // -1 for unbounded
	eval    func(args []Expr, ctx Callable) Value
}

type builtinExpr struct {
	name string
	def  *builtinDef
	args []Expr
}

func (e *builtinExpr) Evaluate(ctx Callable) Value { return e.def.eval(e.args, ctx) }

// noFold lists builtins whose sub-expressions are re-evaluated per element or
// are context-sensitive; they must never be constant-folded.
var noFold = map[string]bool{
	"choose": true,
	"filter": true,
	"find":   true,
	"map":    true,
	"set":    true,
	"add":    true,
	"debug":  true,
	"query":  true,
}

func foldBuiltin(e *builtinExpr) (Expr, bool) {
	// if() with a constant condition reduces to one branch outright.
	if e.name == "if" {
		if cond, ok := reduceExpr(e.args[0]); ok {
			if cond.AsBool() {
				return e.args[1], true
			}
			if len(e.args) == 3 {
				return e.args[2], true
			}
			return &literalExpr{val: Null}, true
		}
		return nil, false
	}

	if noFold[e.name] {
		return nil, false
	}
	for _, arg := range e.args {
		if _, ok := reduceExpr(arg); !ok {
			return nil, false
		}
	}
	return &literalExpr{val: e.Evaluate(nullCallable{})}, true
}

var builtins map[string]*builtinDef

func init() {
	builtins = map[string]*builtinDef{
		"if":        {2, 3, evalIf},
		"switch":    {3, -1, evalSwitch},
		"query":     {2, 2, evalQuery},
		"abs":       {1, 1, evalAbs},
		"min":       {1, -1, evalMin},
		"max":       {1, -1, evalMax},
		"choose":    {1, 2, evalChoose},
		"wave":      {1, 1, evalWave},
		"sort":      {1, 2, evalSort},
		"filter":    {2, 3, evalFilter},
		"mapping":   {0, -1, evalMapping},
		"find":      {2, 3, evalFind},
		"transform": {2, 2, evalTransform},
		"map":       {2, 3, evalMap},
		"sum":       {1, 2, evalSum},
		"range":     {1, 1, evalRange},
		"head":      {1, 1, evalHead},
		"size":      {1, 1, evalSize},
		"slice":     {3, 3, evalSlice},
		"str":       {1, 1, evalStr},
		"strstr":    {2, 2, evalStrstr},
		"null":      {0, 0, evalNull},
		"keys":      {1, 1, evalKeys},
		"values":    {1, 1, evalValues},
		"dir":       {1, 1, evalDir},
		"set":       {2, 3, evalSet},
		"add":       {2, 3, evalAdd},
		"debug":     {1, -1, evalDebug},
	}
}

func evalIf(args []Expr, ctx Callable) Value {
	if args[0].Evaluate(ctx).AsBool() {
		return args[1].Evaluate(ctx)
	}
	if len(args) == 3 {
		return args[2].Evaluate(ctx)
	}
	return Null
}

func evalSwitch(args []Expr, ctx Callable) Value {
	subject := args[0].Evaluate(ctx)
	n := 1
	for ; n+1 < len(args); n += 2 {
		if args[n].Evaluate(ctx).Equals(subject) {
			return args[n+1].Evaluate(ctx)
		}
	}
	// Even arg count leaves a trailing default.
	if len(args)%2 == 0 {
		return args[len(args)-1].Evaluate(ctx)
	}
	return Null
}

func evalQuery(args []Expr, ctx Callable) Value {
	obj := args[0].Evaluate(ctx)
	key := args[1].Evaluate(ctx).AsString()
	return obj.Lookup(key)
}

func evalAbs(args []Expr, ctx Callable) Value {
	n := args[0].Evaluate(ctx).AsInt()
	if n < 0 {
		n = -n
	}
	return Int(n)
}

func evalMin(args []Expr, ctx Callable) Value {
	return foldNumeric(args, ctx, func(a, b int) bool { return a < b })
}
func evalMax(args []Expr, ctx Callable) Value {
	return foldNumeric(args, ctx, func(a, b int) bool { return a > b })
}

// foldNumeric scans args, flattening one level of lists, keeping the extreme.
func foldNumeric(args []Expr, ctx Callable, better func(a, b int) bool) Value {
	found := false
	res := 0
	consider := func(n int) {
		if !found || better(n, res) {
			res = n
			found = true
		}
	}
	for _, arg := range args {
		v := arg.Evaluate(ctx)
		if v.IsList() {
			for _, e := range v.Elements() {
				consider(e.AsInt())
			}
		} else if v.IsInt() {
			consider(v.AsInt())
		}
	}
	return Int(res)
}

func evalChoose(args []Expr, ctx Callable) Value {
	items := args[0].Evaluate(ctx)
	best := -1
	var bestScore Value
	for n := 0; n < items.Len(); n++ {
		var score Value
		if len(args) >= 2 {
			scope := newItemCallable(items.Index(n), "self", ctx)
			score = args[1].Evaluate(scope)
		} else if rng, ok := ctx.GetValue("rng").AsCallable().(RandSource); ok {
			score = Int(rng.Intn(1 << 30))
		} else {
			// No randomness available: first element wins, deterministically.
			score = Int(-n)
		}
		if best == -1 || bestScore.Less(score) {
			best = n
			bestScore = score
		}
	}
	if best == -1 {
		return Null
	}
	return items.Index(best)
}

// evalWave maps a 0..999 phase onto an integer sine wave scaled to ±1000,
// via the Bhaskara approximation so no floating point is involved.
func evalWave(args []Expr, ctx Callable) Value {
	p := args[0].Evaluate(ctx).AsInt() % 1000
	if p < 0 {
		p += 1000
	}
	deg := p * 360 / 1000
	sign := 1
	if deg > 180 {
		deg -= 180
		sign = -1
	}
	q := deg * (180 - deg)
	if q == 0 {
		return Int(0)
	}
	return Int(sign * (4 * q * 1000) / (40500 - q))
}

func evalSort(args []Expr, ctx Callable) Value {
	items := args[0].Evaluate(ctx)
	out := append([]Value(nil), items.Elements()...)
	if len(args) == 1 {
		sortValues(out, func(a, b Value) bool { return a.Less(b) })
	} else {
		cmp := NewMapCallable(ctx)
		sortValues(out, func(a, b Value) bool {
			cmp.Add("a", a)
			cmp.Add("b", b)
			return args[1].Evaluate(cmp).AsBool()
		})
	}
	return List(out)
}

// sortValues is an insertion sort: stable, allocation-free, and the lists
// formulas sort are small.
func sortValues(vals []Value, less func(a, b Value) bool) {
	for i := 1; i < len(vals); i++ {
		for j := i; j > 0 && less(vals[j], vals[j-1]); j-- {
			vals[j], vals[j-1] = vals[j-1], vals[j]
		}
	}
}

// combinatorScope builds the per-element context for filter/find/map. The
// two-argument form exposes the element's own fields plus "self"; the
// three-argument form binds it under an explicit name with "index" and
// "context" alongside.
func combinatorScope(items Value, n int, args []Expr, ctx Callable) Callable {
	if len(args) == 2 {
		return newItemCallable(items.Index(n), "self", ctx)
	}
	name := args[1].Evaluate(ctx).AsString()
	scope := NewMapCallable(newItemCallable(items.Index(n), "self", ctx))
	scope.Add(name, items.Index(n))
	scope.Add("index", Int(n))
	scope.Add("context", Object(ctx))
	return scope
}

func evalFilter(args []Expr, ctx Callable) Value {
	items := args[0].Evaluate(ctx)
	var out []Value
	for n := 0; n < items.Len(); n++ {
		if args[len(args)-1].Evaluate(combinatorScope(items, n, args, ctx)).AsBool() {
			out = append(out, items.Index(n))
		}
	}
	return List(out)
}

func evalFind(args []Expr, ctx Callable) Value {
	items := args[0].Evaluate(ctx)
	for n := 0; n < items.Len(); n++ {
		if args[len(args)-1].Evaluate(combinatorScope(items, n, args, ctx)).AsBool() {
			return items.Index(n)
		}
	}
	return Null
}

func evalMap(args []Expr, ctx Callable) Value {
	items := args[0].Evaluate(ctx)
	out := make([]Value, 0, items.Len())
	for n := 0; n < items.Len(); n++ {
		out = append(out, args[len(args)-1].Evaluate(combinatorScope(items, n, args, ctx)))
	}
	return List(out)
}

func evalMapping(args []Expr, ctx Callable) Value {
	m := make(map[string]Value, len(args)/2)
	for n := 0; n+1 < len(args); n += 2 {
		m[args[n].Evaluate(ctx).AsString()] = args[n+1].Evaluate(ctx)
	}
	return Map(m)
}

// evalTransform exposes the element as "v" and its index as "i".
func evalTransform(args []Expr, ctx Callable) Value {
	items := args[0].Evaluate(ctx)
	out := make([]Value, 0, items.Len())
	scope := NewMapCallable(ctx)
	for n := 0; n < items.Len(); n++ {
		scope.Add("v", items.Index(n))
		scope.Add("i", Int(n))
		out = append(out, args[1].Evaluate(scope))
	}
	return List(out)
}

func evalSum(args []Expr, ctx Callable) Value {
	res := Int(0)
	if len(args) >= 2 {
		res = args[1].Evaluate(ctx)
	}
	items := args[0].Evaluate(ctx)
	for _, e := range items.Elements() {
		res = res.Add(e)
	}
	return res
}

func evalRange(args []Expr, ctx Callable) Value {
	n := args[0].Evaluate(ctx).AsInt()
	if n <= 0 {
		return List(nil)
	}
	out := make([]Value, n)
	for i := 0; i < n; i++ {
		out[i] = Int(i)
	}
	return List(out)
}

func evalHead(args []Expr, ctx Callable) Value {
	items := args[0].Evaluate(ctx)
	if items.Len() == 0 {
		return Null
	}
	return items.Index(0)
}

func evalSize(args []Expr, ctx Callable) Value {
	return Int(args[0].Evaluate(ctx).Len())
}

func evalSlice(args []Expr, ctx Callable) Value {
	items := args[0].Evaluate(ctx)
	if items.Len() == 0 {
		return Null
	}
	begin := args[1].Evaluate(ctx).AsInt() % items.Len()
	end := args[2].Evaluate(ctx).AsInt() % items.Len()
	if end < begin {
		return Null
	}
	out := make([]Value, 0, end-begin)
	for ; begin != end; begin++ {
		out = append(out, items.Index(begin))
	}
	return List(out)
}

func evalStr(args []Expr, ctx Callable) Value {
	return String(args[0].Evaluate(ctx).String())
}

func evalStrstr(args []Expr, ctx Callable) Value {
	haystack := args[0].Evaluate(ctx).AsString()
	needle := args[1].Evaluate(ctx).AsString()
	return Bool(strings.Contains(haystack, needle))
}

func evalNull([]Expr, Callable) Value { return Null }

func evalKeys(args []Expr, ctx Callable) Value {
	return args[0].Evaluate(ctx).Keys()
}

func evalValues(args []Expr, ctx Callable) Value {
	return args[0].Evaluate(ctx).Values()
}

// evalDir enumerates the input names of an object, for content debugging.
func evalDir(args []Expr, ctx Callable) Value {
	obj := args[0].Evaluate(ctx).AsCallable()
	if obj == nil {
		return List(nil)
	}
	inputs := obj.Inputs()
	out := make([]Value, len(inputs))
	for i, in := range inputs {
		out[i] = String(in.Name)
	}
	return List(out)
}

// mutationTarget resolves the target/key pair for set() and add(). Forms:
//
//	set(obj.field, val)   member capture
//	set(name, val)        bare identifier or string key on the context
//	set(obj, 'key', val)  explicit three-argument form
func mutationTarget(args []Expr, ctx Callable) (MutableCallable, string, Value) {
	if len(args) == 3 {
		target, _ := args[0].Evaluate(ctx).AsCallable().(MutableCallable)
		return target, args[1].Evaluate(ctx).AsString(), args[2].Evaluate(ctx)
	}

	val := args[1].Evaluate(ctx)
	if member, ok := args[0].(*memberExpr); ok {
		obj, key := member.evaluateTarget(ctx)
		target, _ := obj.AsCallable().(MutableCallable)
		return target, key, val
	}
	// Bare identifier or string literal: mutate the evaluation context.
	key := ""
	switch a := args[0].(type) {
	case *identExpr:
		key = a.name
	default:
		key = args[0].Evaluate(ctx).AsString()
	}
	target, _ := ctx.(MutableCallable)
	return target, key, val
}

func evalSet(args []Expr, ctx Callable) Value {
	target, key, val := mutationTarget(args, ctx)
	return Object(&SetCommand{Target: target, Key: key, Val: val})
}

func evalAdd(args []Expr, ctx Callable) Value {
	target, key, val := mutationTarget(args, ctx)
	return Object(&AddCommand{Target: target, Key: key, Val: val})
}

func evalDebug(args []Expr, ctx Callable) Value {
	var b strings.Builder
	for _, arg := range args {
		v := arg.Evaluate(ctx)
		// Literal text is the message itself; computed values keep their
		// serialized form so strings stay distinguishable from identifiers.
		if lit, ok := arg.(*literalExpr); ok && lit.val.IsString() {
			b.WriteString(v.AsString())
		} else {
			b.WriteString(v.String())
		}
	}
	return Object(&DebugCommand{Text: b.String()})
}
