// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command effindex scans Go packages for effect types and prints a YAML
// index of them, one entry per package. A type counts as an effect when
// it or its pointer satisfies the Effect interface of the kontrol
// package, so the index is exactly the set of operations a machine could
// be asked to dispatch.
package main

import (
	"fmt"
	"go/types"
	"os"
	"sort"

	"github.com/docopt/docopt-go"
	"github.com/mattn/go-isatty"
	"golang.org/x/tools/go/packages"
	"gopkg.in/yaml.v2"
)

var usage = `effindex

Usage:
  effindex [-t] [-e PKG] [PATTERNS...]
  effindex -h

Arguments:
  PATTERNS  Package patterns to scan, in the load syntax of the go tool.
            Defaults to ./...

Options:
  -e, --effects=PKG  Import path of the package defining the Effect
                     interface. [default: code.hybscloud.com/kontrol]
  -t, --tests        Also scan test packages.
  -h, --help         Display this help.
`

type pkgEffects struct {
	Package string   `yaml:"package"`
	Effects []string `yaml:"effects"`
}

func main() {
	opts, err := docopt.ParseDoc(usage)
	if err != nil {
		panic(err.Error())
	}
	effects, _ := opts.String("--effects")
	tests, _ := opts.Bool("--tests")
	patterns, _ := opts["PATTERNS"].([]string)
	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}

	config := packages.Config{
		Mode:  packages.NeedName | packages.NeedTypes,
		Tests: tests,
	}
	pkgs, err := packages.Load(&config, append([]string{effects}, patterns...)...)
	if err != nil {
		fail("error loading packages:", err)
	}
	if packages.PrintErrors(pkgs) > 0 {
		os.Exit(1)
	}

	iface := effectInterface(pkgs, effects)
	index := collect(pkgs, iface)

	out, err := yaml.Marshal(index)
	if err != nil {
		fail("error encoding index:", err)
	}
	os.Stdout.Write(out)

	if isatty.IsTerminal(os.Stderr.Fd()) {
		n := 0
		for _, e := range index {
			n += len(e.Effects)
		}
		fmt.Fprintf(os.Stderr, "%d effects in %d packages\n", n, len(index))
	}
}

func fail(args ...interface{}) {
	fmt.Fprintln(os.Stderr, args...)
	os.Exit(1)
}

// effectInterface digs the Effect interface out of the loaded packages.
func effectInterface(pkgs []*packages.Package, path string) *types.Interface {
	for _, pkg := range pkgs {
		if pkg.PkgPath != path || pkg.Types == nil {
			continue
		}
		r := pkg.Types.Scope().Lookup("Effect")
		if r == nil {
			continue
		}
		t, ok := r.(*types.TypeName)
		if !ok {
			fail(path, "has incorrect definition of Effect:", r)
		}
		iface, ok := t.Type().Underlying().(*types.Interface)
		if !ok {
			fail(path, "defines Effect as a non-interface:", t.Type())
		}
		return iface
	}
	fail(path, "has no definition of Effect")
	return nil
}

// collect gathers effect type names per package path, merging test
// variants of the same package.
func collect(pkgs []*packages.Package, iface *types.Interface) []pkgEffects {
	found := map[string]map[string]bool{}
	for _, pkg := range pkgs {
		if pkg.Types == nil {
			continue
		}
		scope := pkg.Types.Scope()
		for _, name := range scope.Names() {
			tn, ok := scope.Lookup(name).(*types.TypeName)
			if !ok || tn.IsAlias() {
				continue
			}
			t := tn.Type()
			if types.IsInterface(t) {
				continue
			}
			// generic types have no method set until instantiated
			if named, ok := t.(*types.Named); ok && named.TypeParams().Len() > 0 {
				continue
			}
			if !types.Implements(t, iface) && !types.Implements(types.NewPointer(t), iface) {
				continue
			}
			set := found[pkg.PkgPath]
			if set == nil {
				set = map[string]bool{}
				found[pkg.PkgPath] = set
			}
			set[name] = true
		}
	}

	index := make([]pkgEffects, 0, len(found))
	for path, set := range found {
		names := make([]string, 0, len(set))
		for name := range set {
			names = append(names, name)
		}
		sort.Strings(names)
		index = append(index, pkgEffects{Package: path, Effects: names})
	}
	sort.Slice(index, func(i, j int) bool { return index[i].Package < index[j].Package })
	return index
}
