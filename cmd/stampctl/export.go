package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/arloliu/stampdb/compress"
	"github.com/arloliu/stampdb/export"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export rows of a series in a time range",
	Long: `Export rows of a series in [t0..t1] milliseconds.

Formats: csv and ndjson stream text to stdout (or --out); archive writes the
compact binary archive with an xxHash64 digest, compressed with --codec.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().Uint16("series", 0, "series identifier (0..255)")
	exportCmd.Flags().Uint32("t0", 0, "range start in milliseconds")
	exportCmd.Flags().Uint32("t1", 0, "range end in milliseconds")
	exportCmd.Flags().String("format", "csv", "output format (csv, ndjson, archive)")
	exportCmd.Flags().String("codec", "s2", "archive compression (none, zstd, s2, lz4)")
	exportCmd.Flags().String("out", "", "output file (default stdout)")
}

func runExport(cmd *cobra.Command, _ []string) error {
	handle, err := openDB(cmd)
	if err != nil {
		return err
	}
	defer handle.Close()

	series := uint16(viper.GetUint32("series"))
	t0 := viper.GetUint32("t0")
	t1 := viper.GetUint32("t1")
	if t1 < t0 {
		t1 = t0
	}

	var out io.Writer = os.Stdout
	if path := viper.GetString("out"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	var rows int
	switch format := viper.GetString("format"); format {
	case "csv":
		rows, err = export.WriteCSV(out, handle, series, t0, t1)
	case "ndjson":
		rows, err = export.WriteNDJSON(out, handle, series, t0, t1)
	case "archive":
		var codecType compress.Type
		codecType, err = compress.ParseType(viper.GetString("codec"))
		if err != nil {
			return err
		}
		rows, err = export.WriteArchive(out, handle, series, t0, t1, codecType)
	default:
		return fmt.Errorf("unknown format: %q", format)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "exported %d rows\n", rows)

	return nil
}
