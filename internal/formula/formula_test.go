package formula

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func eval(t *testing.T, src string, ctx Callable) Value {
	t.Helper()
	f, err := Parse(src, nil)
	require.NoError(t, err, "parse %q", src)
	return f.Execute(ctx)
}

func TestArithmetic(t *testing.T) {
	cases := []struct {
		src  string
		want int
	}{
		{"1+2", 3},
		{"10-4", 6},
		{"3*4", 12},
		{"13/4", 3},
		{"13%4", 1},
		{"2^10", 1024},
		{"2+3*4", 14},
		{"(2+3)*4", 20},
		{"-5+2", -3},
		{"2^3^2", 512}, // right associative
		{"7/0", 0},
		{"7%0", 0},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, eval(t, c.src, nil).AsInt(), c.src)
	}
}

func TestComparisonAndLogic(t *testing.T) {
	cases := []struct {
		src  string
		want bool
	}{
		{"1 = 1", true},
		{"1 = '1'", false},
		{"1 != 2", true},
		{"2 < 3", true},
		{"3 <= 3", true},
		{"'abc' < 'abd'", true},
		{"1 < 2 and 2 < 3", true},
		{"1 > 2 or 2 < 3", true},
		{"not 0", true},
		{"not 'x'", false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, eval(t, c.src, nil).AsBool(), c.src)
	}
}

func TestShortCircuitReturnsOperand(t *testing.T) {
	// and/or yield the deciding operand, not a canonical boolean.
	assert.Equal(t, 5, eval(t, "3 and 5", nil).AsInt())
	assert.Equal(t, 3, eval(t, "3 or 5", nil).AsInt())
	assert.Equal(t, 0, eval(t, "0 and 5", nil).AsInt())
}

func TestStringsAndLists(t *testing.T) {
	assert.Equal(t, "'abcdef'", eval(t, "'abc'+'def'", nil).String())
	assert.Equal(t, "[1,2,3,4]", eval(t, "[1,2]+[3,4]", nil).String())
	assert.Equal(t, 6, eval(t, "[4,5,6][2]", nil).AsInt())
	assert.True(t, eval(t, "[10,20][5]", nil).IsNull())
}

func TestContextLookup(t *testing.T) {
	ctx := NewMapCallable(nil).Add("life", Int(8)).Add("name", String("orc"))
	assert.Equal(t, 8, eval(t, "life", ctx).AsInt())
	assert.Equal(t, 16, eval(t, "life*2", ctx).AsInt())
	assert.True(t, eval(t, "no_such_field", ctx).IsNull())
}

func TestMemberAccess(t *testing.T) {
	unit := NewMapCallable(nil).Add("damage", Int(3))
	ctx := NewMapCallable(nil).Add("target", Object(unit))
	assert.Equal(t, 3, eval(t, "target.damage", ctx).AsInt())
	assert.True(t, eval(t, "target.armor", ctx).IsNull())
	assert.True(t, eval(t, "target.armor.deeper", ctx).IsNull())
}

func TestWhere(t *testing.T) {
	ctx := NewMapCallable(nil).Add("x", Int(100))
	assert.Equal(t, 5, eval(t, "a+b where a = 2, b = 3", ctx).AsInt())
	// The nearest binding shadows the context.
	assert.Equal(t, 1, eval(t, "x where x = 1", ctx).AsInt())
	// Bindings see the outer context, not each other's results.
	assert.Equal(t, 101, eval(t, "y where y = x+1", ctx).AsInt())
}

func TestWhereInsideArgumentList(t *testing.T) {
	// The comma after the where binding belongs to min(), not the where.
	assert.Equal(t, 3, eval(t, "min(a where a = 7, 3)", nil).AsInt())
}

func TestIfAndSwitch(t *testing.T) {
	assert.Equal(t, 1, eval(t, "if(5 > 3, 1, 2)", nil).AsInt())
	assert.Equal(t, 2, eval(t, "if(5 < 3, 1, 2)", nil).AsInt())
	assert.True(t, eval(t, "if(0, 1)", nil).IsNull())

	src := "switch(n, 1, 'one', 2, 'two', 'many')"
	ctx := NewMapCallable(nil).Add("n", Int(2))
	assert.Equal(t, "two", eval(t, src, ctx).AsString())
	ctx.Add("n", Int(9))
	assert.Equal(t, "many", eval(t, src, ctx).AsString())
}

func TestMinMaxAbs(t *testing.T) {
	assert.Equal(t, 1, eval(t, "min(3, 1, 2)", nil).AsInt())
	assert.Equal(t, 9, eval(t, "max([4, 9, 2])", nil).AsInt())
	assert.Equal(t, 7, eval(t, "max(5, [6, 7])", nil).AsInt())
	assert.Equal(t, 4, eval(t, "abs(0-4)", nil).AsInt())
}

func TestWaveIsIntegerSine(t *testing.T) {
	assert.Equal(t, 0, eval(t, "wave(0)", nil).AsInt())
	assert.Equal(t, 1000, eval(t, "wave(250)", nil).AsInt())
	assert.Equal(t, -1000, eval(t, "wave(750)", nil).AsInt())
	// Phase wraps modulo 1000.
	assert.Equal(t, 1000, eval(t, "wave(1250)", nil).AsInt())
	// sin(45deg) to three digits is 707; the approximation stays within 3.
	assert.InDelta(t, 707, eval(t, "wave(125)", nil).AsInt(), 3)
}

func TestSort(t *testing.T) {
	assert.Equal(t, "[1,2,3]", eval(t, "sort([3,1,2])", nil).String())
	assert.Equal(t, "[3,2,1]", eval(t, "sort([3,1,2], a > b)", nil).String())
}

func TestFilterMapFind(t *testing.T) {
	ctx := NewMapCallable(nil).Add("limit", Int(2))
	assert.Equal(t, "[3,4]", eval(t, "filter([1,2,3,4], self > limit)", ctx).String())
	assert.Equal(t, "[2,4,6]", eval(t, "map([1,2,3], self*2)", nil).String())
	assert.Equal(t, 3, eval(t, "find([1,2,3,4], self > 2)", nil).AsInt())
	assert.True(t, eval(t, "find([1,2], self > 9)", nil).IsNull())
}

func TestCombinatorExplicitName(t *testing.T) {
	// Three-argument form binds the element under a custom name with index
	// and context alongside.
	assert.Equal(t, "[20,31]", eval(t, "map([20,30], 'n', n+index)", nil).String())
	assert.Equal(t, "[0,1]", eval(t, "map([5,15], 'n', index)", nil).String())
	assert.Equal(t, "[15]", eval(t, "filter([5,15], 'n', n > 10)", nil).String())
}

func TestCombinatorScopeFallsBackToElementFields(t *testing.T) {
	mk := func(n int) Value {
		return Object(NewMapCallable(nil).Add("life", Int(n)))
	}
	ctx := NewMapCallable(nil).Add("units", List([]Value{mk(1), mk(5)}))
	// Unqualified "life" resolves on the element itself.
	assert.Equal(t, "[5]", eval(t, "map(filter(units, life > 2), self.life)", ctx).String())
}

func TestTransform(t *testing.T) {
	assert.Equal(t, "[10,21,32]", eval(t, "transform([10,20,30], v+i)", nil).String())
}

func TestSumRangeHeadSizeSlice(t *testing.T) {
	assert.Equal(t, 6, eval(t, "sum([1,2,3])", nil).AsInt())
	assert.Equal(t, 16, eval(t, "sum([1,2,3], 10)", nil).AsInt())
	assert.Equal(t, "'ab'", eval(t, "sum(['a','b'], '')", nil).String())
	assert.Equal(t, "[0,1,2]", eval(t, "range(3)", nil).String())
	assert.Equal(t, 7, eval(t, "head([7,8])", nil).AsInt())
	assert.Equal(t, 3, eval(t, "size([1,1,1])", nil).AsInt())
	assert.Equal(t, "[20,30]", eval(t, "slice([10,20,30,40], 1, 3)", nil).String())
}

func TestMappingKeysValues(t *testing.T) {
	assert.Equal(t, 2, eval(t, "mapping('a', 1, 'b', 2)['b']", nil).AsInt())
	assert.Equal(t, "['a','b']", eval(t, "keys(mapping('b', 2, 'a', 1))", nil).String())
	assert.Equal(t, "[1,2]", eval(t, "values(mapping('b', 2, 'a', 1))", nil).String())
}

func TestStrAndStrstr(t *testing.T) {
	assert.Equal(t, "12", eval(t, "str(12)", nil).AsString())
	assert.True(t, eval(t, "strstr('firestorm', 'fire')", nil).AsBool())
	assert.False(t, eval(t, "strstr('firestorm', 'ice')", nil).AsBool())
}

func TestQuery(t *testing.T) {
	unit := NewMapCallable(nil).Add("life", Int(4))
	ctx := NewMapCallable(nil).Add("u", Object(unit)).Add("field", String("life"))
	assert.Equal(t, 4, eval(t, "query(u, field)", ctx).AsInt())
}

type fixedRand struct{ n int }

func (r fixedRand) Intn(int) int { return r.n }

func TestChoose(t *testing.T) {
	// With a scoring formula the best-scoring element wins.
	assert.Equal(t, 2, eval(t, "choose([5, 2, 9], -self)", nil).AsInt())

	// Without one, randomness comes from the context's rng binding.
	ctx := NewMapCallable(nil).Add("rng", Object(RandCallable{fixedRand{0}}))
	v := eval(t, "choose([10, 20, 30])", ctx)
	assert.False(t, v.IsNull())

	// No rng in scope degrades to the first element.
	assert.Equal(t, 10, eval(t, "choose([10, 20, 30])", nil).AsInt())
	assert.True(t, eval(t, "choose([])", nil).IsNull())
}

func TestUserDefinedFunctions(t *testing.T) {
	assert.Equal(t, 9, eval(t, "def sq(x) x*x; sq(3)", nil).AsInt())
	// Self-recursion works through the back-patched stub.
	assert.Equal(t, 120, eval(t, "def fact(n) if(n <= 1, 1, n*fact(n-1)); fact(5)", nil).AsInt())
}

func TestUserFunctionsPersistInSymbolTable(t *testing.T) {
	symbols := NewSymbolTable(nil)
	_, err := Parse("def double(x) x*2", symbols)
	require.NoError(t, err)

	f, err := Parse("double(21)", symbols)
	require.NoError(t, err)
	assert.Equal(t, 42, f.Execute(nil).AsInt())
}

func TestNativeFunctionsAndConstants(t *testing.T) {
	symbols := NewSymbolTable(nil)
	symbols.DefineConstant("UPKEEP_PENALTY", Int(2))
	symbols.RegisterNative("triple", 1, 1, func(ctx Callable, args []Expr) Value {
		return Int(args[0].Evaluate(ctx).AsInt() * 3)
	})

	f, err := Parse("triple(UPKEEP_PENALTY)+1", symbols)
	require.NoError(t, err)
	assert.Equal(t, 7, f.Execute(nil).AsInt())

	_, err = Parse("UNKNOWN_CONST", symbols)
	assert.Error(t, err)
}

func TestLayeredSymbolTables(t *testing.T) {
	global := NewSymbolTable(nil)
	_, err := Parse("def base(x) x+1", global)
	require.NoError(t, err)

	pack := NewSymbolTable(global)
	f, err := Parse("base(1)", pack)
	require.NoError(t, err)
	assert.Equal(t, 2, f.Execute(nil).AsInt())
}

func TestArityErrorsAtParseTime(t *testing.T) {
	for _, src := range []string{
		"if(1)",
		"abs(1, 2)",
		"wave()",
		"def sq(x) x*x; sq(1, 2)",
		"no_such_function(1)",
	} {
		_, err := Parse(src, nil)
		assert.Error(t, err, src)
	}
}

func TestParseErrors(t *testing.T) {
	for _, src := range []string{
		"1 +",
		"(1",
		"[1, 2",
		"a.",
		"'unterminated",
		"1 ~ 2",
		"1 2",
	} {
		_, err := Parse(src, nil)
		assert.Error(t, err, src)
	}
}

func TestParseErrorCarriesLocation(t *testing.T) {
	_, err := ParseAt("1 +", nil, "cards/goblin.yml", 14)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cards/goblin.yml:14")
}

func TestCommentsAreIgnored(t *testing.T) {
	assert.Equal(t, 3, eval(t, "1 + #adds two# 2", nil).AsInt())
}

func TestConstantFolding(t *testing.T) {
	f, err := Parse("2*3+4", nil)
	require.NoError(t, err)
	_, folded := f.expr.(*literalExpr)
	assert.True(t, folded, "constant arithmetic folds to a literal")

	// choose() must never fold even over constant input.
	f, err = Parse("choose([1,2,3])", nil)
	require.NoError(t, err)
	_, folded = f.expr.(*literalExpr)
	assert.False(t, folded)

	// if() with a constant condition reduces to the taken branch.
	f, err = Parse("if(1, x, y)", nil)
	require.NoError(t, err)
	_, isIdent := f.expr.(*identExpr)
	assert.True(t, isIdent)
}

func TestSetCommand(t *testing.T) {
	unit := NewMapCallable(nil).Add("life", Int(5))
	ctx := NewMapCallable(nil).Add("target", Object(unit))

	v := eval(t, "set(target.life, 9)", ctx)
	cmd, ok := v.AsCallable().(*SetCommand)
	require.True(t, ok)
	// Evaluation captured the mutation but did not apply it.
	assert.Equal(t, 5, unit.GetValue("life").AsInt())

	cmd.Apply()
	assert.Equal(t, 9, unit.GetValue("life").AsInt())
}

func TestAddCommand(t *testing.T) {
	unit := NewMapCallable(nil).Add("damage_taken", Int(1))
	ctx := NewMapCallable(nil).Add("target", Object(unit))

	cmd, ok := eval(t, "add(target.damage_taken, 3)", ctx).AsCallable().(*AddCommand)
	require.True(t, ok)
	cmd.Apply()
	cmd2, _ := eval(t, "add(target.damage_taken, 3)", ctx).AsCallable().(*AddCommand)
	cmd2.Apply()
	assert.Equal(t, 7, unit.GetValue("damage_taken").AsInt())
}

func TestSetOnContextByName(t *testing.T) {
	ctx := NewMapCallable(nil).Add("score", Int(0))
	cmd, ok := eval(t, "set(score, 10)", ctx).AsCallable().(*SetCommand)
	require.True(t, ok)
	cmd.Apply()
	assert.Equal(t, 10, ctx.GetValue("score").AsInt())
}

func TestSetThreeArgumentForm(t *testing.T) {
	unit := NewMapCallable(nil)
	ctx := NewMapCallable(nil).Add("u", Object(unit)).Add("k", String("poisoned"))
	cmd, ok := eval(t, "set(u, k, 1)", ctx).AsCallable().(*SetCommand)
	require.True(t, ok)
	cmd.Apply()
	assert.Equal(t, 1, unit.GetValue("poisoned").AsInt())
}

func TestDebugCommand(t *testing.T) {
	ctx := NewMapCallable(nil).Add("who", String("goblin"))
	cmd, ok := eval(t, "debug('spawned ', who)", ctx).AsCallable().(*DebugCommand)
	require.True(t, ok)
	assert.Equal(t, "spawned 'goblin'", cmd.Text)
}

func TestCommandListsFlowThroughCombinators(t *testing.T) {
	mk := func() *MapCallable { return NewMapCallable(nil).Add("damage_taken", Int(0)) }
	a, b := mk(), mk()
	ctx := NewMapCallable(nil).Add("units", List([]Value{Object(a), Object(b)}))

	v := eval(t, "map(units, set(self.damage_taken, 2))", ctx)
	require.Equal(t, 2, v.Len())
	for _, cv := range v.Elements() {
		cv.AsCallable().(*SetCommand).Apply()
	}
	assert.Equal(t, 2, a.GetValue("damage_taken").AsInt())
	assert.Equal(t, 2, b.GetValue("damage_taken").AsInt())
}

func TestEvaluateNilFormula(t *testing.T) {
	assert.Equal(t, 4, Evaluate(nil, nil, Int(4)).AsInt())
	f := MustParse("1+1", nil)
	assert.Equal(t, 2, Evaluate(f, nil, Int(4)).AsInt())
}

func TestParseOptional(t *testing.T) {
	f, err := ParseOptional("  ", nil)
	require.NoError(t, err)
	assert.Nil(t, f)
}

func TestVarStore(t *testing.T) {
	s := NewVarStore()
	s.SetValue("gold", Int(3))
	s.SetValue("gold", Int(5))
	s.SetValue("wood", Int(1))
	assert.Equal(t, 5, s.GetValue("gold").AsInt())
	assert.Equal(t, 2, s.Len())
	assert.True(t, s.GetValue("missing").IsNull())
}
