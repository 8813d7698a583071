package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/Manu343726/vmlens/cmd/inspect"
	"github.com/Manu343726/vmlens/cmd/tools"
	slogmulti "github.com/samber/slog-multi"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "vmlens",
	Short: "Symbolic disassembler and metadata inspector for a managed runtime VM",
	Long: `vmlens renders symbolic views of a VM target: methods with resolved bytecode,
classes, constant pools, compiled code annotated with its safepoint debug
information, interpreter codelets and raw machine code.

Every view embeds cross references (kind=payload) that can be followed with
"vmlens inspect link" or interactively with "vmlens inspect browse".`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger()
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := RootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	RootCmd.AddCommand(tools.ToolsCmd, inspect.InspectCmd)
	cobra.OnInitialize(initConfig)

	flags := RootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.vmlens.yaml)")
	flags.StringP("snapshot", "s", "", "VM snapshot image to inspect")
	flags.String("style", "plain", "document style: plain or markup")
	flags.String("syntax", "intel", "assembly syntax: intel, gnu or go")
	flags.String("export-root", ".", "directory class files are exported to")
	flags.Int64("page-size", 64, "bytes of raw disassembly per page")
	flags.String("log-level", "warn", "log level: debug, info, warn or error")
	flags.String("log-file", "", "also write JSON logs to this file")

	for _, key := range []string{"snapshot", "style", "syntax", "export-root", "page-size", "log-level", "log-file"} {
		cobra.CheckErr(viper.BindPFlag(key, flags.Lookup(key)))
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".vmlens" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".vmlens")
	}

	viper.SetEnvPrefix("vmlens")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newLogger fans log records out to stderr and, when configured, to a JSON
// log file.
func newLogger() (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(viper.GetString("log-level"))); err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	handlers := []slog.Handler{
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}),
	}

	if path := viper.GetString("log-file"); path != "" {
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		handlers = append(handlers, slog.NewJSONHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	return slog.New(slogmulti.Fanout(handlers...)), nil
}
