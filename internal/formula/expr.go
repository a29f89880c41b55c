package formula

// Expr is a node in a compiled expression tree. Evaluate must be
// referentially transparent: no node mutates game state directly; mutation
// is expressed by returning Command values.
type Expr interface {
	Evaluate(ctx Callable) Value
}

// reducible is implemented by nodes that can fold to a constant at compile
// time. Functions on the fold disable-list never report their sub-trees as
// reducible results.
type reducible interface {
	ReduceToValue() (Value, bool)
}

func reduceExpr(e Expr) (Value, bool) {
	if r, ok := e.(reducible); ok {
		return r.ReduceToValue()
	}
	return Null, false
}

type literalExpr struct {
	val Value
}

func (e *literalExpr) Evaluate(Callable) Value      { return e.val }
func (e *literalExpr) ReduceToValue() (Value, bool) { return e.val, true }

type identExpr struct {
	name string
}

func (e *identExpr) Evaluate(ctx Callable) Value { return ctx.GetValue(e.name) }

type listExpr struct {
	items []Expr
}

func (e *listExpr) Evaluate(ctx Callable) Value {
	out := make([]Value, len(e.items))
	for i, item := range e.items {
		out[i] = item.Evaluate(ctx)
	}
	return List(out)
}

func (e *listExpr) ReduceToValue() (Value, bool) {
	out := make([]Value, len(e.items))
	for i, item := range e.items {
		v, ok := reduceExpr(item)
		if !ok {
			return Null, false
		}
		out[i] = v
	}
	return List(out), true
}

type unaryExpr struct {
	op      string
	operand Expr
}

func (e *unaryExpr) Evaluate(ctx Callable) Value {
	v := e.operand.Evaluate(ctx)
	switch e.op {
	case "-":
		return Int(-v.AsInt())
	case "not":
		return Bool(!v.AsBool())
	}
	return Null
}

func (e *unaryExpr) ReduceToValue() (Value, bool) {
	if _, ok := reduceExpr(e.operand); !ok {
		return Null, false
	}
	return e.Evaluate(nullCallable{}), true
}

type binaryExpr struct {
	op          string
	left, right Expr
}

func (e *binaryExpr) Evaluate(ctx Callable) Value {
	switch e.op {
	case "and":
		l := e.left.Evaluate(ctx)
		if !l.AsBool() {
			return l
		}
		return e.right.Evaluate(ctx)
	case "or":
		l := e.left.Evaluate(ctx)
		if l.AsBool() {
			return l
		}
		return e.right.Evaluate(ctx)
	}

	l := e.left.Evaluate(ctx)
	r := e.right.Evaluate(ctx)
	switch e.op {
	case "+":
		return l.Add(r)
	case "-":
		return Int(l.AsInt() - r.AsInt())
	case "*":
		return Int(l.AsInt() * r.AsInt())
	case "/":
		d := r.AsInt()
		if d == 0 {
			return Int(0)
		}
		return Int(l.AsInt() / d)
	case "%":
		d := r.AsInt()
		if d == 0 {
			return Int(0)
		}
		return Int(l.AsInt() % d)
	case "^":
		return Int(ipow(l.AsInt(), r.AsInt()))
	case "=":
		return Bool(l.Equals(r))
	case "!=":
		return Bool(!l.Equals(r))
	case "<":
		return Bool(l.Compare(r) < 0)
	case "<=":
		return Bool(l.Compare(r) <= 0)
	case ">":
		return Bool(l.Compare(r) > 0)
	case ">=":
		return Bool(l.Compare(r) >= 0)
	}
	return Null
}

func (e *binaryExpr) ReduceToValue() (Value, bool) {
	if _, ok := reduceExpr(e.left); !ok {
		return Null, false
	}
	if _, ok := reduceExpr(e.right); !ok {
		return Null, false
	}
	return e.Evaluate(nullCallable{}), true
}

func ipow(base, exp int) int {
	if exp < 0 {
		return 0
	}
	result := 1
	for ; exp > 0; exp-- {
		result *= base
	}
	return result
}

// memberExpr resolves `object.field`. A missing field is Null.
type memberExpr struct {
	object Expr
	field  string
}

func (e *memberExpr) Evaluate(ctx Callable) Value {
	return e.object.Evaluate(ctx).Lookup(e.field)
}

// evaluateTarget resolves the object and hands back the field name, letting
// set()/add() capture a mutation target without evaluating the lookup.
func (e *memberExpr) evaluateTarget(ctx Callable) (Value, string) {
	return e.object.Evaluate(ctx), e.field
}

type indexExpr struct {
	object Expr
	index  Expr
}

func (e *indexExpr) Evaluate(ctx Callable) Value {
	obj := e.object.Evaluate(ctx)
	idx := e.index.Evaluate(ctx)
	switch obj.Kind() {
	case KindList:
		n := idx.AsInt()
		if n < 0 || n >= obj.Len() {
			return Null
		}
		return obj.Index(n)
	case KindMap, KindObject:
		return obj.Lookup(idx.AsString())
	}
	return Null
}

// whereExpr evaluates its body with extra bindings layered over the outer
// context; the nearest binding shadows.
type whereExpr struct {
	body     Expr
	names    []string
	bindings []Expr
}

func (e *whereExpr) Evaluate(ctx Callable) Value {
	scope := NewMapCallable(ctx)
	for i, name := range e.names {
		scope.Add(name, e.bindings[i].Evaluate(ctx))
	}
	return e.body.Evaluate(scope)
}

// nullCallable is the empty evaluation context used for compile-time folds.
type nullCallable struct{}

func (nullCallable) GetValue(string) Value { return Null }
func (nullCallable) Inputs() []Input       { return nil }
