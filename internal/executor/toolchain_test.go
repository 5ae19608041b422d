//go:build !windows

package executor_test

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/coderun/internal/executor"
	"github.com/sakif/coderun/internal/language"
)

// These run against the real toolchains and skip when one is missing.

func requireTool(t *testing.T, paths ...string) {
	t.Helper()
	for _, p := range paths {
		if _, err := exec.LookPath(p); err != nil {
			t.Skipf("%s not installed", p)
		}
	}
}

func TestToolchain_HelloWorld(t *testing.T) {
	defaults := language.DefaultToolchains()
	f := newFixture(t, language.Toolchains{}, executor.DefaultConfig())

	tests := []struct {
		lang  string
		tools []string
		code  string
	}{
		{"python", []string{defaults.Python}, "print('hello')"},
		{"javascript", []string{defaults.Node}, "console.log('hello')"},
		{"c", []string{defaults.GCC}, "#include <stdio.h>\nint main(){printf(\"hello\\n\");return 0;}\n"},
		{"cpp", []string{defaults.GPP}, "#include <iostream>\nint main(){std::cout<<\"hello\"<<std::endl;return 0;}\n"},
		{"java", []string{defaults.Javac, defaults.Java}, "public class Main {\n  public static void main(String[] a) {\n    System.out.println(\"hello\");\n  }\n}\n"},
	}

	for _, tt := range tests {
		t.Run(tt.lang, func(t *testing.T) {
			requireTool(t, tt.tools...)

			res, err := f.engine.Execute(context.Background(), executor.ExecutionRequest{Code: tt.code, Language: tt.lang})
			require.NoError(t, err)

			assert.Equal(t, "hello\n", res.Stdout)
			assert.Empty(t, res.Stderr)
			assert.Equal(t, 0, res.ExitCode)
			f.assertScratchEmpty(t)
		})
	}
}

func TestToolchain_MalformedC(t *testing.T) {
	requireTool(t, language.DefaultToolchains().GCC)
	f := newFixture(t, language.Toolchains{}, executor.DefaultConfig())

	res, err := f.engine.Execute(context.Background(), executor.ExecutionRequest{
		Code:     "int main(){return",
		Language: "c",
	})
	require.NoError(t, err)

	assert.Empty(t, res.Stdout)
	assert.NotEmpty(t, res.Stderr)
	assert.NotEqual(t, 0, res.ExitCode)
	assert.Equal(t, executor.StageCompile, res.Stage)
	f.assertScratchEmpty(t)
}

func TestToolchain_PythonStdin(t *testing.T) {
	requireTool(t, language.DefaultToolchains().Python)
	f := newFixture(t, language.Toolchains{}, executor.DefaultConfig())

	res, err := f.engine.Execute(context.Background(), executor.ExecutionRequest{
		Code:     "print(input())",
		Language: "python",
		Stdin:    "world",
	})
	require.NoError(t, err)
	assert.Equal(t, "world\n", res.Stdout)
}

func TestToolchain_CppInfiniteLoop(t *testing.T) {
	requireTool(t, language.DefaultToolchains().GPP)
	cfg := executor.DefaultConfig()
	cfg.RunTimeout = time.Second
	f := newFixture(t, language.Toolchains{}, cfg)

	res, err := f.engine.Execute(context.Background(), executor.ExecutionRequest{
		Code:     "int main(){ volatile int x = 0; for(;;){ x++; } }",
		Language: "cpp",
	})
	require.NoError(t, err)

	assert.True(t, res.TimedOut)
	assert.NotEqual(t, 0, res.ExitCode)
	f.assertScratchEmpty(t)
}
