package inspect

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/Manu343726/vmlens/pkg/disasm"
	"github.com/Manu343726/vmlens/pkg/document"
	"github.com/Manu343726/vmlens/pkg/inspector"
	"github.com/Manu343726/vmlens/pkg/utils"
	"github.com/Manu343726/vmlens/pkg/vm"
	"github.com/Manu343726/vmlens/pkg/vm/snapshot"
	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	colorTitle = color.New(color.FgWhite, color.Bold, color.Underline)
	colorError = color.New(color.FgRed, color.Bold)
)

// InspectCmd groups the commands rendering views of a VM snapshot
var InspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Render symbolic views of a VM snapshot",
}

// openInspector loads the configured snapshot and builds an inspector over
// it. configure may adjust the options before construction.
func openInspector(configure ...func(*inspector.Options)) (*inspector.Inspector, error) {
	path := viper.GetString("snapshot")
	if path == "" {
		return nil, fmt.Errorf("no snapshot given, use --snapshot or the snapshot config key")
	}

	fs := afero.NewOsFs()
	target, err := snapshot.LoadFile(fs, path)
	if err != nil {
		return nil, err
	}

	style, err := document.ParseStyle(viper.GetString("style"))
	if err != nil {
		return nil, err
	}
	syntax, err := disasm.ParseSyntax(viper.GetString("syntax"))
	if err != nil {
		return nil, err
	}

	options := inspector.Options{
		Style:      style,
		Syntax:     syntax,
		Fs:         fs,
		ExportRoot: viper.GetString("export-root"),
		PageSize:   viper.GetInt64("page-size"),
		Logger:     slog.Default(),
	}
	for _, c := range configure {
		c(&options)
	}
	return inspector.New(target, options), nil
}

// mustOpenInspector is openInspector for commands, exiting on failure
func mustOpenInspector(configure ...func(*inspector.Options)) *inspector.Inspector {
	in, err := openInspector(configure...)
	if err != nil {
		fail("%v", err)
	}
	return in
}

func fail(format string, args ...any) {
	colorError.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

// writeDocument prints a document. Plain documents get terminal colors.
func writeDocument(out io.Writer, doc document.Document) {
	if doc.Style == document.StyleMarkup {
		fmt.Fprintln(out, doc.String())
		return
	}

	if isError(doc) {
		colorError.Fprintln(out, doc.Title)
	} else {
		colorTitle.Fprintln(out, doc.Title)
	}
	fmt.Fprintln(out)
	fmt.Fprint(out, utils.HighlightDocument(doc.Body))
}

func isError(doc document.Document) bool {
	return doc.Title == "Error"
}

// printDocument writes a document to stdout and exits with an error status
// if it is an error document.
func printDocument(doc document.Document) {
	writeDocument(os.Stdout, doc)
	if isError(doc) {
		os.Exit(1)
	}
}

func parseAddress(text string) vm.Address {
	addr, err := vm.ParseAddress(text)
	if err != nil {
		fail("%v", err)
	}
	return addr
}

// parseLength accepts decimal or 0x prefixed hexadecimal byte counts
func parseLength(text string) int64 {
	length, err := strconv.ParseInt(text, 0, 64)
	if err != nil || length <= 0 {
		fail("invalid length '%s'", text)
	}
	return utils.Clamp(length, 1, inspector.MaxPageSize)
}

// findClass accepts a class address or a class name, internal or external
func findClass(target vm.Target, text string) (vm.Class, error) {
	if addr, err := vm.ParseAddress(text); err == nil {
		h, err := target.MetadataAt(addr)
		if err == nil {
			if c, ok := h.(vm.Class); ok {
				return c, nil
			}
			return nil, utils.MakeError(vm.ErrNotMetadata, "%v is a %v, not a class", addr, h.Kind())
		}
		if _, ok := target.FindClass(text); !ok {
			return nil, err
		}
	}

	c, ok := target.FindClass(text)
	if !ok {
		return nil, fmt.Errorf("no loaded class named '%s'", text)
	}
	return c, nil
}

func mustFindClass(in *inspector.Inspector, text string) vm.Class {
	c, err := findClass(in.Target(), text)
	if err != nil {
		fail("%v", err)
	}
	return c
}

// metadataOf resolves an address to metadata of the given variant
func metadataOf[T vm.Handle](in *inspector.Inspector, text string) T {
	addr := parseAddress(text)
	h, err := in.Target().MetadataAt(addr)
	if err != nil {
		fail("%v", err)
	}
	v, ok := h.(T)
	if !ok {
		fail("%v is a %v", addr, h.Kind())
	}
	return v
}
