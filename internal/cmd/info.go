package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/connesc/ncchview"
	"github.com/spf13/cobra"
)

func init() {
	infoCmd.Flags().AddFlagSet(&processFlags)
	infoCmd.Flags().AddFlagSet(&keyFlags)
	rootCmd.AddCommand(infoCmd)
}

type ncchFile struct {
	File *string
	*ncchview.NCCHInfo
}

var infoCmd = &cobra.Command{
	Use:   "info [file...]",
	Short: "Summarize NCCH containers",
	Long:  "Summarize NCCH containers given as arguments, or stdin if none is given",
	Run: func(cmd *cobra.Command, args []string) {
		keys := ncchview.DefaultKeySet()
		seeds := seedSource()

		processFiles(args, func(filename *string, input io.ReadSeeker) interface{} {
			info, err := ncchview.Inspect(input, keys, seeds)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Invalid NCCH: %v\n", err)
				os.Exit(3)
			}
			return ncchFile{
				File:     filename,
				NCCHInfo: info,
			}
		})
	},
}
