package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var latestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Print the newest row of a series",
	RunE: func(cmd *cobra.Command, _ []string) error {
		handle, err := openDB(cmd)
		if err != nil {
			return err
		}
		defer handle.Close()

		ts, v, err := handle.QueryLatest(uint16(viper.GetUint32("series")))
		if err != nil {
			return err
		}
		fmt.Printf("%d,%.9g\n", ts, v)

		return nil
	},
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print database counters",
	RunE: func(cmd *cobra.Command, _ []string) error {
		handle, err := openDB(cmd)
		if err != nil {
			return err
		}
		defer handle.Close()

		stats := handle.Info()
		fmt.Printf("seg_seq_head:         %d\n", stats.SegSeqHead)
		fmt.Printf("seg_seq_tail:         %d\n", stats.SegSeqTail)
		fmt.Printf("blocks_written:       %d\n", stats.BlocksWritten)
		fmt.Printf("crc_errors:           %d\n", stats.CRCErrors)
		fmt.Printf("gc_warn_events:       %d\n", stats.GCWarnEvents)
		fmt.Printf("gc_busy_events:       %d\n", stats.GCBusyEvents)
		fmt.Printf("recovery_truncations: %d\n", stats.RecoveryTruncations)
		fmt.Printf("quant_saturations:    %d\n", stats.QuantSaturations)
		fmt.Printf("epoch_id:             %d\n", stats.EpochID)

		return nil
	},
}

func init() {
	latestCmd.Flags().Uint16("series", 0, "series identifier (0..255)")
}
