// Package language holds the fixed table of supported languages and the
// toolchain each one is compiled or interpreted with.
//
// The table is built once at startup from Toolchains and never mutated
// afterwards, so it is safe to share between concurrent executions without
// locking.
package language

import (
	"fmt"
	"strings"

	"github.com/sakif/coderun/internal/apperror"
)

// Kind is the shape of a language's pipeline.
type Kind int

const (
	// Interpreted runs `interpreter source` directly.
	Interpreted Kind = iota
	// CompileAndRun runs `compiler source -o artifact`, then `artifact`.
	CompileAndRun
	// CompileWithClassBinding compiles a source whose public class name must
	// match the file name, then runs the class on a JVM.
	CompileWithClassBinding
)

func (k Kind) String() string {
	switch k {
	case Interpreted:
		return "interpreted"
	case CompileAndRun:
		return "compile-and-run"
	case CompileWithClassBinding:
		return "compile-with-class-binding"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// MarshalText lets Kind appear as a readable string in JSON responses.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Compiled reports whether the pipeline has a compile stage.
func (k Kind) Compiled() bool {
	return k != Interpreted
}

// Profile describes how to build and run one language.
type Profile struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Extension string `json:"extension"`
	Kind      Kind   `json:"kind"`
	// Compiler is the compiler, or the interpreter for Interpreted profiles.
	Compiler string `json:"-"`
	// Runtime is the program that runs a compiled artifact (the JVM).
	// Empty when the artifact is executed directly.
	Runtime string `json:"-"`
}

// Toolchains are the executable paths the table is built from.
type Toolchains struct {
	Python string `yaml:"python"`
	Node   string `yaml:"node"`
	GCC    string `yaml:"gcc"`
	GPP    string `yaml:"gpp"`
	Javac  string `yaml:"javac"`
	Java   string `yaml:"java"`
}

// DefaultToolchains returns the stock Debian/Ubuntu install locations.
func DefaultToolchains() Toolchains {
	return Toolchains{
		Python: "/usr/bin/python3",
		Node:   "/usr/bin/node",
		GCC:    "/usr/bin/gcc",
		GPP:    "/usr/bin/g++",
		Javac:  "/usr/bin/javac",
		Java:   "/usr/bin/java",
	}
}

// Merge returns t with every empty field filled from defaults.
func (t Toolchains) Merge(defaults Toolchains) Toolchains {
	pick := func(v, d string) string {
		if strings.TrimSpace(v) == "" {
			return d
		}
		return v
	}
	return Toolchains{
		Python: pick(t.Python, defaults.Python),
		Node:   pick(t.Node, defaults.Node),
		GCC:    pick(t.GCC, defaults.GCC),
		GPP:    pick(t.GPP, defaults.GPP),
		Javac:  pick(t.Javac, defaults.Javac),
		Java:   pick(t.Java, defaults.Java),
	}
}

// Table is the closed set of supported languages.
type Table struct {
	profiles map[string]Profile
	order    []string
}

// NewTable builds the table. Empty toolchain paths fall back to
// DefaultToolchains.
func NewTable(tc Toolchains) *Table {
	tc = tc.Merge(DefaultToolchains())

	profiles := []Profile{
		{ID: "python", Name: "Python", Extension: ".py", Kind: Interpreted, Compiler: tc.Python},
		{ID: "javascript", Name: "JavaScript", Extension: ".js", Kind: Interpreted, Compiler: tc.Node},
		{ID: "c", Name: "C", Extension: ".c", Kind: CompileAndRun, Compiler: tc.GCC},
		{ID: "cpp", Name: "C++", Extension: ".cpp", Kind: CompileAndRun, Compiler: tc.GPP},
		{ID: "java", Name: "Java", Extension: ".java", Kind: CompileWithClassBinding, Compiler: tc.Javac, Runtime: tc.Java},
	}

	t := &Table{profiles: make(map[string]Profile, len(profiles))}
	for _, p := range profiles {
		t.profiles[p.ID] = p
		t.order = append(t.order, p.ID)
	}
	return t
}

// Normalize lowercases and trims a language identifier.
func Normalize(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Resolve looks up a profile case-insensitively. Unknown ids return an error
// wrapping apperror.ErrUnsupportedLanguage.
func (t *Table) Resolve(id string) (Profile, error) {
	p, ok := t.profiles[Normalize(id)]
	if !ok {
		return Profile{}, apperror.UnsupportedLanguage(id)
	}
	return p, nil
}

// List returns every profile in a stable order.
func (t *Table) List() []Profile {
	out := make([]Profile, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.profiles[id])
	}
	return out
}

// ByExtension finds the profile for a file extension such as ".cpp". The
// match is case-insensitive; ".cc" and ".mjs" are accepted as aliases.
func (t *Table) ByExtension(ext string) (Profile, bool) {
	ext = strings.ToLower(ext)
	switch ext {
	case ".cc", ".cxx":
		ext = ".cpp"
	case ".mjs":
		ext = ".js"
	}
	for _, id := range t.order {
		if p := t.profiles[id]; p.Extension == ext {
			return p, true
		}
	}
	return Profile{}, false
}
