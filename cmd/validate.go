package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/davewx7/Wizard-Tactics/internal/game"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Compile every formula in the content directory",
	Long: `Loads the full content directory, compiling every card, ability and unit
formula, and reports each error found. Exits nonzero when any definition
fails to compile, so content changes can be checked before deploying.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := contentDir()
		errs := game.ValidateContent(dir)
		if len(errs) == 0 {
			fmt.Printf("content in %s is valid\n", dir)
			return nil
		}
		for _, err := range errs {
			fmt.Println(err)
		}
		return fmt.Errorf("%d content error(s)", len(errs))
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
