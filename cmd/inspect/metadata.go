package inspect

import (
	"fmt"
	"os"

	"github.com/Manu343726/vmlens/pkg/inspector"
	"github.com/Manu343726/vmlens/pkg/vm"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var methodCmd = &cobra.Command{
	Use:   "method addr",
	Short: "Render a method with its bytecode",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		in := mustOpenInspector()
		printDocument(in.RenderMethod(metadataOf[vm.Method](in, args[0])))
	},
}

var classCmd = &cobra.Command{
	Use:   "class addr|name",
	Short: "Render a class",
	Long:  `Renders a class given its address or its name, either internal (java/lang/Object) or external (java.lang.Object).`,
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		in := mustOpenInspector()
		printDocument(in.RenderClass(mustFindClass(in, args[0])))
	},
}

var cpoolCmd = &cobra.Command{
	Use:   "cpool addr",
	Short: "Render a constant pool",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		in := mustOpenInspector()
		printDocument(in.RenderConstantPool(metadataOf[vm.ConstantPool](in, args[0])))
	},
}

var hierarchyCmd = &cobra.Command{
	Use:   "hierarchy addr|name",
	Short: "Render the superclasses and direct subclasses of a class",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		in := mustOpenInspector()
		printDocument(in.RenderHierarchy(mustFindClass(in, args[0])))
	},
}

var classesCmd = &cobra.Command{
	Use:   "classes",
	Short: "List the loaded classes",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		in := mustOpenInspector()
		printDocument(in.RenderClassList())
	},
}

var hierarchyGraphCmd = &cobra.Command{
	Use:   "hierarchy-graph addr|name",
	Short: "Dump the subclass tree of a class as a Graphviz graph",
	Long: `Dumps the subclass tree of a class in DOT format.
By default the graph is dumped to stdout, but it can be redirected to a file using the --output flag.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		in := mustOpenInspector()
		dot := inspector.HierarchyDOT(mustFindClass(in, args[0]))

		outputFile, _ := cmd.Flags().GetString("output")
		if outputFile == "" {
			fmt.Println(dot)
			return
		}
		if err := afero.WriteFile(afero.NewOsFs(), outputFile, []byte(dot), 0o644); err != nil {
			fail("writing graph: %v", err)
		}
		fmt.Fprintln(os.Stderr, "Graph written to", outputFile)
	},
}

var dumpclassCmd = &cobra.Command{
	Use:   "dumpclass addr|name [directory]",
	Short: "Export the class file of a class",
	Long: `Writes the class file of an instance class below the given directory, or the
configured export root if none is given.`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		in := mustOpenInspector(func(options *inspector.Options) {
			if len(args) > 1 {
				options.ExportRoot = args[1]
			}
		})
		printDocument(in.ExportClass(mustFindClass(in, args[0])))
	},
}

func init() {
	InspectCmd.AddCommand(methodCmd, classCmd, cpoolCmd, hierarchyCmd, classesCmd, hierarchyGraphCmd, dumpclassCmd)
	hierarchyGraphCmd.Flags().StringP("output", "o", "", "Output file. If not specified, the graph is dumped to stdout.")
}
