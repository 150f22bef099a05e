package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/probgraph/bugc/compiler"
	"github.com/probgraph/bugc/token"
)

// nodeOut is the serialized form of one emitted node. Generators are
// in-memory closures and do not serialize; downstream runtimes recompile
// from the document when they need them.
type nodeOut struct {
	Default float64  `json:"default"`
	Kind    string   `json:"kind"`
	Parents []string `json:"parents,omitempty"`
}

// compileModel compiles a serialized document into the node-list JSON.
func compileModel(src []byte) ([]byte, error) {
	program, data, err := DecodeDocument(src)
	if err != nil {
		return nil, err
	}

	nodes, cerrs := compiler.Compile(program, data)
	if len(cerrs) > 0 {
		return nil, compileErrors(cerrs)
	}

	out := make(map[string]nodeOut, len(nodes))
	for name, n := range nodes {
		out[name] = nodeOut{
			Default: n.Default,
			Kind:    n.Kind.String(),
			Parents: n.Parents,
		}
	}
	return json.MarshalIndent(out, "", "  ")
}

func compileErrors(cerrs []*token.CompileError) error {
	msgs := make([]string, len(cerrs))
	for i, ce := range cerrs {
		msgs[i] = ce.Error()
	}
	return fmt.Errorf("%s", strings.Join(msgs, "\n"))
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: bugc [--version] model.json")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	if os.Args[1] == "--version" {
		printVersion()
		return
	}

	src, err := os.ReadFile(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}

	out, err := cachedCompile(defaultCacheDir(), src)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
