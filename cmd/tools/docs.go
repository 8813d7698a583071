package tools

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/Manu343726/vmlens/pkg/inspector/xref"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

const configDoc = `Configuration is read from $HOME/.vmlens.yaml (or --config), from VMLENS_*
environment variables and from the command line flags of the same name.

Keys:

 - snapshot: VM snapshot image to inspect
 - style: document style, plain or markup
 - syntax: assembly syntax, intel, gnu or go
 - export-root: directory class files are exported to
 - page-size: bytes of raw disassembly per page
 - log-level: debug, info, warn or error
 - log-file: also write JSON logs to this file
`

var supportedModules = map[string]func() string{
	"links":  xref.DocString,
	"config": func() string { return configDoc },
}

func moduleNames() []string {
	names := lo.Keys(supportedModules)
	sort.Strings(names)
	return names
}

var docsCmd = &cobra.Command{
	Use:   "docs module",
	Short: "Show vmlens documentation",
	Long: `Dumps the documentation of the specified vmlens module.
By default the tool dumps the documentation to stdout, but it can be redirected to a file using the --output flag.

Supported modules:
` + strings.Join(lo.Map(moduleNames(), func(module string, _ int) string { return "  " + module }), "\n"),
	Args:      cobra.MatchAll(cobra.OnlyValidArgs, cobra.ExactArgs(1)),
	ValidArgs: moduleNames(),
	Run: func(cmd *cobra.Command, args []string) {
		module := args[0]
		outputFile, _ := cmd.Flags().GetString("output")
		if outputFile != "" {
			file, err := os.Create(outputFile)
			if err != nil {
				fmt.Fprintln(os.Stderr, "Error creating file:", err)
				os.Exit(1)
			}
			defer file.Close()
			fmt.Fprintln(file, supportedModules[module]())
		} else {
			fmt.Println(supportedModules[module]())
		}
	},
}

func init() {
	ToolsCmd.AddCommand(docsCmd)
	docsCmd.Flags().StringP("output", "o", "", "Output file. If not specified, the documentation is dumped to stdout.")
}
