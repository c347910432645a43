// Package workload is the demo program instrumented by the CLI. Every call
// between its functions goes through a table or constructor registered in a
// resolver.Namespace, so installed replacements observe the nesting.
package workload

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"time"

	"callScope/resolver"
)

// Name is the root scope entry Register creates.
const Name = "workload"

// Library is a table of functions calling one another through the table.
type Library struct {
	Fib      func(n int) int
	Checksum func(data ...byte) uint32
	Words    func(text string) []string
	Render   func(text string) string
}

// NewLibrary returns a Library wired to itself.
func NewLibrary() *Library {
	lib := &Library{}
	lib.Fib = func(n int) int {
		if n < 2 {
			return n
		}
		return lib.Fib(n-1) + lib.Fib(n-2)
	}
	lib.Checksum = func(data ...byte) uint32 {
		h := fnv.New32a()
		_, _ = h.Write(data)
		return h.Sum32()
	}
	lib.Words = strings.Fields
	lib.Render = func(text string) string {
		words := lib.Words(text)
		sum := lib.Checksum([]byte(strings.Join(words, " "))...)
		return fmt.Sprintf("%d words, checksum %08x", len(words), sum)
	}
	return lib
}

// Document accumulates text.
type Document struct {
	text  strings.Builder
	edits int
}

// DocumentMethods is the method table of the Document constructor.
type DocumentMethods struct {
	Append  func(d *Document, s string)
	Summary func(d *Document) string
}

// NewDocumentConstructor returns a constructor for Documents whose Summary
// renders through lib.
func NewDocumentConstructor(lib *Library) *resolver.Constructor {
	methods := &DocumentMethods{
		Append: func(d *Document, s string) {
			if d.text.Len() > 0 {
				d.text.WriteByte(' ')
			}
			d.text.WriteString(s)
			d.edits++
		},
	}
	methods.Summary = func(d *Document) string {
		return fmt.Sprintf("%d edits: %s", d.edits, lib.Render(d.text.String()))
	}

	return resolver.NewConstructor(func(title string) *Document {
		d := &Document{}
		methods.Append(d, title)
		return d
	}, methods)
}

// Workload holds the registered tables.
type Workload struct {
	Lib      *Library
	Document *resolver.Constructor
}

// Register creates the workload tables under Name in root.
func Register(root *resolver.Namespace) *Workload {
	w := &Workload{Lib: NewLibrary()}
	w.Document = NewDocumentConstructor(w.Lib)

	ns := resolver.NewNamespace()
	ns.Set("lib", w.Lib)
	ns.Set("Document", w.Document)
	root.Set(Name, ns)

	return w
}

// Once runs a single iteration and returns the document summary.
func (w *Workload) Once(n int) string {
	methods := w.Document.Methods.(*DocumentMethods)

	doc := resolver.Call[func(string) *Document](w.Document)("report")
	methods.Append(doc, fmt.Sprintf("fib(%d)=%d", n, w.Lib.Fib(n)))
	methods.Append(doc, "done")
	return methods.Summary(doc)
}

// Run repeats Once every pause until ctx is done or d has elapsed, and
// returns the number of iterations.
func (w *Workload) Run(ctx context.Context, d, pause time.Duration) int {
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	ticker := time.NewTicker(pause)
	defer ticker.Stop()

	iterations := 0
	for {
		w.Once(15)
		iterations++

		select {
		case <-ctx.Done():
			return iterations
		case <-ticker.C:
		}
	}
}
