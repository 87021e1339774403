package jsexpr

import (
	"fmt"
	"strconv"
	"strings"
)

// Eval evaluates the compiled expression against x, bound to the
// expression's arrow-function parameter.
func (e *Expr) Eval(x float64) (any, error) {
	env := map[string]any{e.param: x}
	return evalNode(e.body, env)
}

func evalNode(n node, env map[string]any) (any, error) {
	switch v := n.(type) {
	case numberLit:
		return v.value, nil
	case stringLit:
		return v.value, nil
	case templateLit:
		var b strings.Builder
		for _, part := range v.parts {
			if part.expr == nil {
				b.WriteString(part.literal)
				continue
			}
			val, err := evalNode(part.expr, env)
			if err != nil {
				return nil, err
			}
			b.WriteString(toDisplayString(val))
		}
		return b.String(), nil
	case identExpr:
		if val, ok := env[v.name]; ok {
			return val, nil
		}
		switch v.name {
		case "Number", "String", "Boolean", "Math":
			return builtinMarker(v.name), nil
		}
		return nil, fmt.Errorf("jsexpr: unbound identifier %q", v.name)
	case unaryExpr:
		operand, err := evalNode(v.operand, env)
		if err != nil {
			return nil, err
		}
		switch v.op {
		case "-":
			f, ok := toNumber(operand)
			if !ok {
				return nil, fmt.Errorf("jsexpr: cannot negate %v", operand)
			}
			return -f, nil
		case "!":
			return !truthy(operand), nil
		}
		return nil, fmt.Errorf("jsexpr: unsupported unary operator %q", v.op)
	case binaryExpr:
		return evalBinary(v, env)
	case conditionalExpr:
		cond, err := evalNode(v.cond, env)
		if err != nil {
			return nil, err
		}
		if truthy(cond) {
			return evalNode(v.then, env)
		}
		return evalNode(v.els, env)
	case memberExpr:
		return evalMember(v, env)
	case callExpr:
		return evalCall(v, env)
	default:
		return nil, fmt.Errorf("jsexpr: unsupported node %T", n)
	}
}

func evalBinary(v binaryExpr, env map[string]any) (any, error) {
	left, err := evalNode(v.left, env)
	if err != nil {
		return nil, err
	}

	if v.op == "&&" {
		if !truthy(left) {
			return left, nil
		}
		return evalNode(v.right, env)
	}
	if v.op == "||" {
		if truthy(left) {
			return left, nil
		}
		return evalNode(v.right, env)
	}

	right, err := evalNode(v.right, env)
	if err != nil {
		return nil, err
	}

	switch v.op {
	case "+":
		if _, lok := left.(string); lok {
			return toDisplayString(left) + toDisplayString(right), nil
		}
		if _, rok := right.(string); rok {
			return toDisplayString(left) + toDisplayString(right), nil
		}
		lf, lok := toNumber(left)
		rf, rok := toNumber(right)
		if lok && rok {
			return lf + rf, nil
		}
		return toDisplayString(left) + toDisplayString(right), nil
	case "-", "*", "/", "%":
		lf, lok := toNumber(left)
		rf, rok := toNumber(right)
		if !lok || !rok {
			return nil, fmt.Errorf("jsexpr: arithmetic on non-numeric operand")
		}
		switch v.op {
		case "-":
			return lf - rf, nil
		case "*":
			return lf * rf, nil
		case "/":
			return lf / rf, nil
		case "%":
			return float64(int64(lf) % int64(rf)), nil
		}
	case "==":
		return looseEquals(left, right), nil
	case "!=":
		return !looseEquals(left, right), nil
	case "<", ">", "<=", ">=":
		lf, lok := toNumber(left)
		rf, rok := toNumber(right)
		if !lok || !rok {
			return nil, fmt.Errorf("jsexpr: comparison on non-numeric operand")
		}
		switch v.op {
		case "<":
			return lf < rf, nil
		case ">":
			return lf > rf, nil
		case "<=":
			return lf <= rf, nil
		case ">=":
			return lf >= rf, nil
		}
	}
	return nil, fmt.Errorf("jsexpr: unsupported binary operator %q", v.op)
}

type builtinMarker string

func evalMember(v memberExpr, env map[string]any) (any, error) {
	obj, err := evalNode(v.object, env)
	if err != nil {
		return nil, err
	}
	return memberValue(obj, v.prop)
}

// memberValue handles a bare property access (a member expression that
// is not the callee of a call; evalCall applies methods itself). Bare
// property access is not supported, so it always returns an error.
func memberValue(obj any, prop string) (any, error) {
	return nil, fmt.Errorf("jsexpr: property access %q on %v requires a call", prop, obj)
}

func evalCall(v callExpr, env map[string]any) (any, error) {
	args := make([]any, len(v.args))
	for i, a := range v.args {
		val, err := evalNode(a, env)
		if err != nil {
			return nil, err
		}
		args[i] = val
	}

	switch callee := v.callee.(type) {
	case identExpr:
		switch callee.name {
		case "Number":
			if len(args) == 0 {
				return 0.0, nil
			}
			f, ok := toNumber(args[0])
			if !ok {
				return nil, fmt.Errorf("jsexpr: Number() of non-numeric value")
			}
			return f, nil
		case "String":
			if len(args) == 0 {
				return "", nil
			}
			return toDisplayString(args[0]), nil
		case "Boolean":
			if len(args) == 0 {
				return false, nil
			}
			return truthy(args[0]), nil
		}
		return nil, fmt.Errorf("jsexpr: unsupported call to %q", callee.name)

	case memberExpr:
		if obj, ok := callee.object.(identExpr); ok && obj.name == "Math" {
			return evalMathCall(callee.prop, args)
		}
		obj, err := evalNode(callee.object, env)
		if err != nil {
			return nil, err
		}
		return evalMethodCall(obj, callee.prop, args)

	default:
		return nil, fmt.Errorf("jsexpr: unsupported call target")
	}
}

func evalMathCall(name string, args []any) (any, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("jsexpr: Math.%s requires an argument", name)
	}
	f, ok := toNumber(args[0])
	if !ok {
		return nil, fmt.Errorf("jsexpr: Math.%s of non-numeric value", name)
	}
	switch name {
	case "round":
		return float64(int64(f + sign(f)*0.5)), nil
	case "floor":
		return float64(int64(f) - boolToInt(f < 0 && f != float64(int64(f)))), nil
	case "ceil":
		i := int64(f)
		if f > float64(i) {
			i++
		}
		return float64(i), nil
	case "abs":
		if f < 0 {
			return -f, nil
		}
		return f, nil
	default:
		return nil, fmt.Errorf("jsexpr: unsupported Math.%s", name)
	}
}

func sign(f float64) float64 {
	if f < 0 {
		return -1
	}
	return 1
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func evalMethodCall(obj any, method string, args []any) (any, error) {
	switch method {
	case "toFixed":
		f, ok := toNumber(obj)
		if !ok {
			return nil, fmt.Errorf("jsexpr: toFixed on non-numeric value")
		}
		prec := 0
		if len(args) > 0 {
			if p, ok := toNumber(args[0]); ok {
				prec = int(p)
			}
		}
		return strconv.FormatFloat(f, 'f', prec, 64), nil

	case "padStart":
		s := toDisplayString(obj)
		if len(args) == 0 {
			return s, nil
		}
		length, _ := toNumber(args[0])
		pad := " "
		if len(args) > 1 {
			pad = toDisplayString(args[1])
		}
		for len([]rune(s)) < int(length) && pad != "" {
			s = pad + s
		}
		return s, nil

	case "toString":
		return toDisplayString(obj), nil

	case "trim":
		return strings.TrimSpace(toDisplayString(obj)), nil

	case "toUpperCase":
		return strings.ToUpper(toDisplayString(obj)), nil

	case "toLowerCase":
		return strings.ToLower(toDisplayString(obj)), nil

	default:
		return nil, fmt.Errorf("jsexpr: unsupported method %q", method)
	}
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	default:
		return true
	}
}

func toNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

func toDisplayString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		if t {
			return "true"
		}
		return "false"
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}

func looseEquals(a, b any) bool {
	if af, aok := toNumber(a); aok {
		if bf, bok := toNumber(b); bok {
			return af == bf
		}
	}
	return toDisplayString(a) == toDisplayString(b)
}
