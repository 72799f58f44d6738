package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/connesc/ncchview"
	"github.com/spf13/pflag"
)

type processFunc func(filename *string, input io.ReadSeeker) interface{}

var (
	processFlags pflag.FlagSet
	compact      = processFlags.BoolP("compact", "c", false, "disable pretty-printing of JSON output")
)

var (
	keyFlags   pflag.FlagSet
	seeddbPath = keyFlags.String("seeddb", "", "seeddb.bin to load seeds for 9.6.0 titles from")
)

// seedSource loads the seed database named by --seeddb, or returns nil
// when the flag is unset.
func seedSource() ncchview.SeedSource {
	if *seeddbPath == "" {
		return nil
	}

	file, err := os.Open(*seeddbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to open seeddb: %v\n", err)
		os.Exit(2)
	}
	defer file.Close()

	seeds, err := ncchview.ParseSeedDB(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid seeddb: %v\n", err)
		os.Exit(3)
	}
	return seeds
}

func processFiles(filenames []string, process processFunc) {
	encoder := json.NewEncoder(os.Stdout)
	if !*compact {
		encoder.SetIndent("", "  ")
	}
	encoder.SetEscapeHTML(false)

	if len(filenames) == 0 {
		// Sections are reached by seeking, so stdin must be buffered first.
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Unable to read stdin: %v\n", err)
			os.Exit(2)
		}
		encoder.Encode(process(nil, bytes.NewReader(data)))
		return
	}

	for _, filename := range filenames {
		processFile(filename, process, encoder)
	}
}

func processFile(filename string, process processFunc, encoder *json.Encoder) {
	file, err := os.Open(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Unable to open file: %v\n", err)
		os.Exit(2)
	}
	defer file.Close()

	encoder.Encode(process(&filename, file))
}
