// Command stampctl is the host-side tool for stampdb flash images: it
// exports data, inspects counters, estimates retention, and serves the
// database over HTTP.
//
// Configuration comes from flags or environment variables with the STAMPDB_
// prefix (e.g. STAMPDB_FLASH=flash.bin); a .env file in the working
// directory is honored.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/arloliu/stampdb"
	"github.com/arloliu/stampdb/flash"
)

const version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "stampctl",
	Short: "tooling for stampdb flash images",
	Long: fmt.Sprintf(`stampctl (v%s)

Host-side tooling for stampdb, the embedded time-series log for NOR flash.
Operates on a file-backed flash image compatible with the on-device layout.`, version),
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of stampctl",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("stampctl v%s\n", version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("flash", "flash.bin", "path of the flash image file")
	rootCmd.PersistentFlags().Uint32("flash-size", 0, "flash image size in bytes (0 = 4 MiB)")
	rootCmd.PersistentFlags().Uint32("workspace", 0, "workspace budget in bytes (0 = default)")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(latestCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(retentionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// initConfig binds environment variables (and an optional .env file) under
// the STAMPDB_ prefix to the flag namespace.
func initConfig() {
	_ = godotenv.Load()
	viper.SetEnvPrefix("STAMPDB")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// openDB opens the database on the configured flash image.
func openDB(cmd *cobra.Command) (*stampdb.DB, error) {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}

	dev, err := flash.OpenFileDevice(viper.GetString("flash"), viper.GetUint32("flash-size"))
	if err != nil {
		return nil, err
	}

	var opts []stampdb.Option
	if ws := viper.GetUint32("workspace"); ws > 0 {
		opts = append(opts, stampdb.WithWorkspaceBytes(ws))
	}

	return stampdb.Open(dev, opts...)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
