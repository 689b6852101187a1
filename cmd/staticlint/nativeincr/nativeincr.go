// Package nativeincr defines an analyzer that reports server-side counter
// increments on memcached and Redis clients. Measurement stores increment
// with a read followed by a write so every backend behaves the same.
package nativeincr

import (
	"fmt"
	"go/ast"
	"go/types"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/passes/inspect"
	"golang.org/x/tools/go/ast/inspector"
)

// Analyzer is the nativeincr analyzer.
var Analyzer = &analysis.Analyzer{
	Name:     "nativeincr",
	Doc:      "reports native increment commands on memcached and Redis clients",
	Requires: []*analysis.Analyzer{inspect.Analyzer},
	Run:      run,
}

var forbidden = map[string]map[string]struct{}{
	"github.com/bradfitz/gomemcache/memcache": {
		"Increment": {},
		"Decrement": {},
	},
	"github.com/redis/go-redis/v9": {
		"Incr":         {},
		"IncrBy":       {},
		"IncrByFloat":  {},
		"Decr":         {},
		"DecrBy":       {},
		"HIncrBy":      {},
		"HIncrByFloat": {},
	},
}

func run(pass *analysis.Pass) (any, error) {
	insp, ok := pass.ResultOf[inspect.Analyzer].(*inspector.Inspector)
	if !ok {
		return nil, fmt.Errorf("failed to assert type: expected *inspector.Inspector")
	}

	insp.Preorder([]ast.Node{(*ast.CallExpr)(nil)}, func(n ast.Node) {
		call, ok := n.(*ast.CallExpr)
		if !ok {
			return
		}
		if fn := nativeIncrement(pass, call); fn != nil {
			pass.Reportf(call.Pos(), "native %s.%s is forbidden; increment with a read followed by a write", fn.Pkg().Name(), fn.Name())
		}
	})
	return nil, nil
}

// nativeIncrement returns the called method when call is a forbidden one.
func nativeIncrement(pass *analysis.Pass, call *ast.CallExpr) *types.Func {
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok || pass.TypesInfo == nil {
		return nil
	}
	s, ok := pass.TypesInfo.Selections[sel]
	if !ok || s.Kind() != types.MethodVal {
		return nil
	}
	fn, ok := s.Obj().(*types.Func)
	if !ok || fn.Pkg() == nil {
		return nil
	}
	names, ok := forbidden[fn.Pkg().Path()]
	if !ok {
		return nil
	}
	if _, hit := names[fn.Name()]; !hit {
		return nil
	}
	return fn
}
