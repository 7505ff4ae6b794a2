package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/arloliu/stampdb/flash"
	"github.com/arloliu/stampdb/format"
)

var retentionCmd = &cobra.Command{
	Use:   "retention",
	Short: "Estimate how long the flash image retains data",
	Long: `Estimate retention from the image geometry and an assumed write rate.

The estimate assumes an average of 64 rows per block (typical for u8 delta
lanes with mild jitter) and 15 blocks per segment.`,
	RunE: runRetention,
}

func init() {
	retentionCmd.Flags().Float64("rows-per-day", 86400, "expected write rate (rows per day)")
}

func runRetention(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	dev, err := flash.OpenFileDevice(viper.GetString("flash"), viper.GetUint32("flash-size"))
	if err != nil {
		return err
	}

	const rowsPerBlock = 64.0
	segCount := float64((dev.SizeBytes() - format.MetaReservedBytes) / format.SegmentBytes)
	capacityRows := segCount * rowsPerBlock * float64(format.DataPagesPerSegment)

	ratePerDay := viper.GetFloat64("rows-per-day")
	fmt.Printf("segments:       %.0f\n", segCount)
	fmt.Printf("capacity_rows:  %.0f\n", capacityRows)
	if ratePerDay > 0 {
		fmt.Printf("retention_days: %.1f\n", capacityRows/ratePerDay)
	}

	return nil
}
