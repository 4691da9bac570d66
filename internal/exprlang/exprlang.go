// Package exprlang compiles the textual predicate and expression syntax used
// by schema files into wire.Predicate and wire.Expression values.
//
// Predicates:
//
//	flags.has_auth == true && (count > 0 || ../kind != "empty")
//
// Expressions:
//
//	len(payload) + 4
//	checksum(body, "crc32")
//	size("/") - 2
package exprlang

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/danmuck/binstruct/internal/wire"
)

var ErrSyntax = errors.New("exprlang: syntax error")

// ParsePredicate compiles a boolean predicate.
func ParsePredicate(src string) (wire.Predicate, error) {
	ast, err := predicateParser.ParseString("", src)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrSyntax, src, err)
	}
	p, err := compileOr(ast)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrSyntax, src, err)
	}
	return p, nil
}

// ParseExpression compiles an arithmetic expression.
func ParseExpression(src string) (wire.Expression, error) {
	ast, err := expressionParser.ParseString("", src)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrSyntax, src, err)
	}
	e, err := compileSum(ast)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrSyntax, src, err)
	}
	return e, nil
}

func MustPredicate(src string) wire.Predicate {
	p, err := ParsePredicate(src)
	if err != nil {
		panic(err)
	}
	return p
}

func MustExpression(src string) wire.Expression {
	e, err := ParseExpression(src)
	if err != nil {
		panic(err)
	}
	return e
}

func compileOr(n *orNode) (wire.Predicate, error) {
	terms := make([]wire.Predicate, 0, len(n.Terms))
	for _, t := range n.Terms {
		p, err := compileAnd(t)
		if err != nil {
			return nil, err
		}
		terms = append(terms, p)
	}
	if len(terms) == 1 {
		return terms[0], nil
	}
	return wire.Or(terms...), nil
}

func compileAnd(n *andNode) (wire.Predicate, error) {
	terms := make([]wire.Predicate, 0, len(n.Terms))
	for _, t := range n.Terms {
		p, err := compileCmp(t)
		if err != nil {
			return nil, err
		}
		terms = append(terms, p)
	}
	if len(terms) == 1 {
		return terms[0], nil
	}
	return wire.And(terms...), nil
}

func compileCmp(n *cmpNode) (wire.Predicate, error) {
	if n.Group != nil {
		return compileOr(n.Group)
	}
	op, err := wire.ParseCompareOp(n.Op)
	if err != nil {
		return nil, err
	}
	var right any
	switch {
	case n.Right.Path != nil:
		if n.Right.Neg {
			return nil, fmt.Errorf("cannot negate path %s in a comparison", *n.Right.Path)
		}
		right = wire.Ref(*n.Right.Path)
	default:
		v, err := literal(n.Right.Lit)
		if err != nil {
			return nil, err
		}
		if n.Right.Neg {
			if v, err = negate(v); err != nil {
				return nil, err
			}
		}
		right = v
	}
	return wire.Comparison{Left: wire.Ref(n.Left), Op: op, Right: right}, nil
}

func compileSum(n *sumNode) (wire.Expression, error) {
	acc, err := compileProduct(n.Head)
	if err != nil {
		return nil, err
	}
	for _, t := range n.Tail {
		rhs, err := compileProduct(t.Term)
		if err != nil {
			return nil, err
		}
		if acc, err = wire.Binary(t.Op, acc, rhs); err != nil {
			return nil, err
		}
	}
	return acc, nil
}

func compileProduct(n *productNode) (wire.Expression, error) {
	acc, err := compileFactor(n.Head)
	if err != nil {
		return nil, err
	}
	for _, t := range n.Tail {
		rhs, err := compileFactor(t.Factor)
		if err != nil {
			return nil, err
		}
		if acc, err = wire.Binary(t.Op, acc, rhs); err != nil {
			return nil, err
		}
	}
	return acc, nil
}

func compileFactor(n *factorNode) (wire.Expression, error) {
	var e wire.Expression
	switch {
	case n.Call != nil:
		c, err := compileCall(n.Call)
		if err != nil {
			return nil, err
		}
		e = c
	case n.Group != nil:
		g, err := compileSum(n.Group)
		if err != nil {
			return nil, err
		}
		e = g
	case n.Lit != nil:
		v, err := literal(n.Lit)
		if err != nil {
			return nil, err
		}
		if n.Neg {
			if v, err = negate(v); err != nil {
				return nil, err
			}
		}
		return wire.Const(v), nil
	default:
		e = wire.ValueOf(*n.Path)
	}
	if n.Neg {
		return wire.Sub(int64(0), e), nil
	}
	return e, nil
}

func compileCall(n *callNode) (wire.Expression, error) {
	switch n.Func {
	case "len":
		if n.Algo != nil {
			return nil, fmt.Errorf("len takes one argument")
		}
		return wire.LenOf(n.Arg), nil
	case "size":
		if n.Algo != nil {
			return nil, fmt.Errorf("size takes one argument")
		}
		return wire.SizeOf(n.Arg), nil
	default:
		if n.Algo == nil {
			return nil, fmt.Errorf("checksum needs an algorithm name")
		}
		return wire.ChecksumOf(n.Arg, *n.Algo), nil
	}
}

func literal(n *literalNode) (any, error) {
	switch {
	case n.Hex != nil:
		u, err := strconv.ParseUint((*n.Hex)[2:], 16, 64)
		if err != nil {
			return nil, err
		}
		if u > math.MaxInt64 {
			return u, nil
		}
		return int64(u), nil
	case n.Float != nil:
		return strconv.ParseFloat(*n.Float, 64)
	case n.Int != nil:
		i, err := strconv.ParseInt(*n.Int, 10, 64)
		if err == nil {
			return i, nil
		}
		return strconv.ParseUint(*n.Int, 10, 64)
	case n.Str != nil:
		return *n.Str, nil
	default:
		return *n.Bool == "true", nil
	}
}

func negate(v any) (any, error) {
	switch x := v.(type) {
	case int64:
		return -x, nil
	case float64:
		return -x, nil
	}
	return nil, fmt.Errorf("cannot negate %v", v)
}
