package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Сверить current_version статей с журналом версий",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rep, err := core.Sweeper.RepairLedger(cmd.Context())
		if err != nil {
			return err
		}
		if err := printJSON(rep); err != nil {
			return err
		}
		if len(rep.Failed) > 0 {
			return fmt.Errorf("не удалось восстановить %d статей", len(rep.Failed))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(repairCmd)
}
