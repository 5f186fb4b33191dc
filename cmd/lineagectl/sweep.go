package main

import (
	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Удалить файлы без строк вложений",
	Long: `Удаляет временные загрузки и файлы в каталогах статей, на которые не
ссылается ни одна версия, а также каталоги удалённых статей. Файлы моложе
ORPHAN_GRACE не трогаются.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rep, err := core.Sweeper.SweepOrphans(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(rep)
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}
