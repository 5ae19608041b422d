package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "coderun",
		Short: "Compile and run Python, JavaScript, C, C++ and Java",
		Long: `coderun - run a source file with a local toolchain under a time limit.

Each run gets a private scratch directory that is removed afterwards.
Interpreted languages run directly; C and C++ are compiled first; Java
sources have their "public class Main" renamed so concurrent runs never
collide.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newRunCmd(), newLanguagesCmd())
	return root
}
