package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var solveCmd = &cobra.Command{
	Use:   "solve <equation-id> <solution|->",
	Short: "Submit a solution for verification (use - to read it from stdin)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		equationID, solution := args[0], args[1]
		if solution == "-" {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return eris.Wrap(err, "read solution from stdin")
			}
			solution = string(data)
		}

		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		sol, err := env.Pipeline.Solve(cmd.Context(), equationID, solution)
		if err != nil {
			return err
		}

		verdict := "INCORRECT"
		if sol.Verdict.IsCorrect {
			verdict = "CORRECT"
		}
		fmt.Printf("solution %s: %s\n", sol.ID, verdict)
		if sol.Verdict.Fallback {
			fmt.Println("note: automatic verification was unavailable; this is a conservative default")
		}
		fmt.Printf("\n%s\n", sol.Verdict.Explanation)
		if len(sol.Verdict.Steps) > 0 {
			fmt.Printf("\nsteps:\n")
			for i, step := range sol.Verdict.Steps {
				fmt.Printf("  %d. %s\n", i+1, strings.TrimSpace(step))
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(solveCmd)
}
