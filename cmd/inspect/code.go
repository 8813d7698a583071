package inspect

import (
	"github.com/Manu343726/vmlens/pkg/inspector/xref"
	"github.com/spf13/cobra"
)

var addressCmd = &cobra.Command{
	Use:   "address addr",
	Short: "Render the most specific view of an address",
	Long: `Resolves an address to a code blob, interpreter codelet, class, method or
constant pool and renders it. Addresses holding none of them are disassembled.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		in := mustOpenInspector()
		printDocument(in.RenderAddressText(args[0]))
	},
}

var disCmd = &cobra.Command{
	Use:   "dis addr [length]",
	Short: "Disassemble raw machine code",
	Long:  `Disassembles length bytes (0x10 by default) at an address without symbolic context.`,
	Args:  cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		addr := parseAddress(args[0])
		length := int64(0x10)
		if len(args) > 1 {
			length = parseLength(args[1])
		}

		in := mustOpenInspector()
		printDocument(in.RenderRawRange(addr, length, nil))
	},
}

var nmethodCmd = &cobra.Command{
	Use:   "nmethod addr",
	Short: "Render the code blob containing an address",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		addr := parseAddress(args[0])
		in := mustOpenInspector()

		blob, ok := in.Target().FindBlob(addr)
		if !ok {
			fail("no code blob contains %v", addr)
		}
		printDocument(in.RenderCompiledMethod(blob))
	},
}

var codeletsCmd = &cobra.Command{
	Use:   "codelets",
	Short: "List the template interpreter codelets",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		in := mustOpenInspector()
		printDocument(in.RenderCodeletIndex())
	},
}

var jstackCmd = &cobra.Command{
	Use:   "jstack",
	Short: "Render the Java stack traces of every thread",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		in := mustOpenInspector()
		printDocument(in.RenderAllStackTraces())
	},
}

var linkCmd = &cobra.Command{
	Use:   "link kind=payload",
	Short: "Follow a cross reference",
	Long: `Renders the document a cross reference points to. Run "vmlens tools docs links"
for the list of kinds.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ref, err := xref.Parse(args[0])
		if err != nil {
			fail("%v", err)
		}

		in := mustOpenInspector()
		printDocument(in.DispatchRef(ref))
	},
}

func init() {
	InspectCmd.AddCommand(addressCmd, disCmd, nmethodCmd, codeletsCmd, jstackCmd, linkCmd)
}
