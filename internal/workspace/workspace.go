// Package workspace manages the on-disk artifacts of a single execution.
//
// Every execution gets its own directory under the shared scratch root,
// named by a random UUIDv4 token:
//
//	<root>/<token>/<token>.c        source
//	<root>/<token>/<token>.out      compiled binary (c, cpp)
//	<root>/<token>/Main<hex>.java   renamed java source
//	<root>/<token>/Main<hex>.class  javac output
//
// Cleanup removes the directory as a whole, so it can never touch files that
// belong to another in-flight execution, including the .class files javac
// writes next to the source.
package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/sakif/coderun/internal/language"
)

// javaMainClass matches the declaration the JVM binds to the file name.
var javaMainClass = regexp.MustCompile(`public\s+class\s+Main\b`)

// Workspace is the set of paths owned by one execution.
type Workspace struct {
	Root  string // shared scratch root
	Dir   string // per-execution directory, removed by Cleanup
	Token string // UUIDv4, unique per execution

	SourcePath   string
	ArtifactPath string // compiled binary; empty for interpreted and java
	ClassName    string // java only
}

// Manager creates and removes workspaces under one scratch root.
type Manager struct {
	root   string
	logger *slog.Logger
}

// NewManager returns a Manager rooted at root. The directory is created
// lazily by Create.
//
// A relative root is made absolute here: commands run with their working
// directory set to the workspace, so a relative source path would be
// resolved twice.
func NewManager(root string, logger *slog.Logger) *Manager {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	return &Manager{root: root, logger: logger}
}

// Root returns the scratch root.
func (m *Manager) Root() string {
	return m.root
}

// Create ensures the scratch root exists and allocates a fresh directory
// for one execution.
func (m *Manager) Create() (*Workspace, error) {
	if err := os.MkdirAll(m.root, 0o755); err != nil {
		return nil, fmt.Errorf("workspace: creating scratch root: %w", err)
	}

	token := uuid.NewString()
	dir := filepath.Join(m.root, token)

	// Mkdir (not MkdirAll) so a token collision fails loudly instead of
	// silently sharing a directory.
	if err := os.Mkdir(dir, 0o755); err != nil {
		return nil, fmt.Errorf("workspace: creating %s: %w", dir, err)
	}

	return &Workspace{
		Root:  m.root,
		Dir:   dir,
		Token: token,
	}, nil
}

// WriteSource persists code for the given profile and fills in the source
// and artifact paths on ws.
func (m *Manager) WriteSource(ws *Workspace, code string, profile language.Profile) error {
	name := ws.Token + profile.Extension

	switch profile.Kind {
	case language.CompileAndRun:
		ws.ArtifactPath = filepath.Join(ws.Dir, ws.Token+".out")
	case language.CompileWithClassBinding:
		ws.ClassName = ClassName(ws.Token)
		name = ws.ClassName + profile.Extension
		code = BindClass(code, ws.ClassName)
	}

	ws.SourcePath = filepath.Join(ws.Dir, name)
	if err := os.WriteFile(ws.SourcePath, []byte(code), 0o644); err != nil {
		return fmt.Errorf("workspace: writing source: %w", err)
	}
	return nil
}

// Cleanup removes every artifact of ws. Safe to call on a nil or
// half-initialised workspace.
func (m *Manager) Cleanup(ws *Workspace) error {
	if ws == nil || ws.Dir == "" {
		return nil
	}
	if err := os.RemoveAll(ws.Dir); err != nil {
		m.logger.Warn("workspace cleanup failed",
			slog.String("dir", ws.Dir),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("workspace: removing %s: %w", ws.Dir, err)
	}
	return nil
}

// ClassName derives a java identifier from a workspace token by dropping
// every character that is not valid in an identifier.
func ClassName(token string) string {
	var b strings.Builder
	b.WriteString("Main")
	for _, r := range token {
		if r == '_' || r == '$' || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || ('0' <= r && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// BindClass rewrites the first `public class Main` declaration to className.
// Code without that declaration is returned unchanged and will fail to
// compile the same way it would have under its own name.
func BindClass(code, className string) string {
	loc := javaMainClass.FindStringIndex(code)
	if loc == nil {
		return code
	}
	return code[:loc[0]] + "public class " + className + code[loc[1]:]
}
