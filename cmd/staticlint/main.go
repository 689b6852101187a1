// Command staticlint runs the analyzers this repository is checked with:
// a handful of vet passes, the staticcheck SA suite, nil error and type
// assertion checks, and nativeincr.
package main

import (
	"strings"

	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/multichecker"
	"golang.org/x/tools/go/analysis/passes/copylock"
	"golang.org/x/tools/go/analysis/passes/errorsas"
	"golang.org/x/tools/go/analysis/passes/httpresponse"
	"golang.org/x/tools/go/analysis/passes/lostcancel"
	"golang.org/x/tools/go/analysis/passes/printf"
	"golang.org/x/tools/go/analysis/passes/structtag"
	"golang.org/x/tools/go/analysis/passes/tests"
	"honnef.co/go/tools/staticcheck"

	"github.com/gostaticanalysis/forcetypeassert"
	"github.com/gostaticanalysis/nilerr"
	"github.com/vshulcz/promstore/cmd/staticlint/nativeincr"
)

func main() {
	multichecker.Main(filterAnalyzers(analyzers())...)
}

// analyzers lists the checks in run order. Vet passes cover the mutex held
// by the metrics service, request contexts, wrapped backend errors, the
// memcached text client and the JSON tags on query payloads.
func analyzers() []*analysis.Analyzer {
	out := []*analysis.Analyzer{
		copylock.Analyzer,
		lostcancel.Analyzer,
		errorsas.Analyzer,
		printf.Analyzer,
		httpresponse.Analyzer,
		structtag.Analyzer,
		tests.Analyzer,
	}
	for _, a := range staticcheck.Analyzers {
		if a != nil && a.Analyzer != nil && strings.HasPrefix(a.Analyzer.Name, "SA") {
			out = append(out, a.Analyzer)
		}
	}
	return append(out, nilerr.Analyzer, forcetypeassert.Analyzer, nativeincr.Analyzer)
}

// filterAnalyzers drops nil entries and later analyzers that reuse a name,
// which multichecker rejects.
func filterAnalyzers(list []*analysis.Analyzer) []*analysis.Analyzer {
	seen := make(map[string]struct{}, len(list))
	filtered := make([]*analysis.Analyzer, 0, len(list))
	for _, a := range list {
		if a == nil {
			continue
		}
		if _, dup := seen[a.Name]; dup {
			continue
		}
		seen[a.Name] = struct{}{}
		filtered = append(filtered, a)
	}
	return filtered
}
