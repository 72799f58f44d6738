package cmd

import (
	"fmt"
	"image/png"
	"io"
	"os"

	"github.com/connesc/ncchview"
	"github.com/spf13/cobra"
)

func init() {
	iconCmd.Flags().AddFlagSet(&keyFlags)
	iconCmd.Flags().StringVarP(&iconOutput, "output", "o", "icon.png", "output PNG file")
	iconCmd.Flags().BoolVar(&iconSmall, "small", false, "extract the small 24x24 icon instead of the large one")
	rootCmd.AddCommand(iconCmd)
}

var (
	iconOutput string
	iconSmall  bool
)

var iconCmd = &cobra.Command{
	Use:   "icon <file>",
	Short: "Extract the icon of an NCCH as PNG",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		file, err := os.Open(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Unable to open file: %v\n", err)
			os.Exit(2)
		}
		defer file.Close()

		smdh, err := loadSMDH(file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid NCCH: %v\n", err)
			os.Exit(3)
		}

		decode := smdh.IconImage
		if iconSmall {
			decode = smdh.SmallIconImage
		}
		img, err := decode()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid icon: %v\n", err)
			os.Exit(3)
		}

		output, err := os.Create(iconOutput)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Unable to create output: %v\n", err)
			os.Exit(2)
		}
		if err := png.Encode(output, img); err != nil {
			fmt.Fprintf(os.Stderr, "Unable to encode icon: %v\n", err)
			os.Exit(2)
		}
		if err := output.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Unable to encode icon: %v\n", err)
			os.Exit(2)
		}
	},
}

func loadSMDH(rs io.ReadSeeker) (*ncchview.SMDH, error) {
	hdr, err := ncchview.ParseHeader(rs)
	if err != nil {
		return nil, err
	}
	kp, err := ncchview.DeriveKeypair(hdr, ncchview.DefaultKeySet(), seedSource())
	if err != nil {
		return nil, err
	}

	headerStream, err := hdr.OpenExeFSHeader(rs, kp)
	if err != nil {
		return nil, err
	}
	exefs, err := ncchview.ParseExeFSHeader(headerStream)
	if err != nil {
		return nil, err
	}

	icon := exefs.File("icon")
	if icon == nil {
		return nil, fmt.Errorf("exefs has no icon: %w", ncchview.ErrNotFound)
	}
	iconStream, err := hdr.OpenExeFSFile(rs, kp, icon)
	if err != nil {
		return nil, err
	}
	return ncchview.ParseSMDH(iconStream)
}
