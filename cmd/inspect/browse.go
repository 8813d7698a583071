package inspect

import (
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/Manu343726/vmlens/pkg/document"
	"github.com/Manu343726/vmlens/pkg/inspector"
	"github.com/Manu343726/vmlens/pkg/inspector/xref"
	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	colorPrompt = color.New(color.FgBlue, color.Bold)
	colorIndex  = color.New(color.FgCyan)
)

var (
	errNoDocument = errors.New("no document shown yet")
	errNoHistory  = errors.New("no previous document")
	errBadIndex   = errors.New("no such link")
)

const browseHelp = `Commands:
  <addr>            render the most specific view of an address
  <kind=payload>    follow a cross reference
  <n>               follow link number n of the current document
  back              return to the previous document
  links             list the links of the current document
  help              show this help
  quit              leave the browser
`

// browser holds the navigation history of an interactive session. The
// inspector itself is stateless; everything needed to go back lives here.
type browser struct {
	in      *inspector.Inspector
	history []document.Document
}

func (b *browser) current() (document.Document, bool) {
	if len(b.history) == 0 {
		return document.Document{}, false
	}
	return b.history[len(b.history)-1], true
}

func (b *browser) push(doc document.Document) document.Document {
	b.history = append(b.history, doc)
	return doc
}

// step interprets an input line and returns the document to show
func (b *browser) step(line string) (document.Document, error) {
	line = strings.TrimSpace(line)

	if line == "back" {
		if len(b.history) < 2 {
			return document.Document{}, errNoHistory
		}
		b.history = b.history[:len(b.history)-1]
		doc, _ := b.current()
		return doc, nil
	}

	if index, err := strconv.Atoi(line); err == nil {
		doc, ok := b.current()
		if !ok {
			return document.Document{}, errNoDocument
		}
		if index < 1 || index > len(doc.Links) {
			return document.Document{}, fmt.Errorf("%w: %d", errBadIndex, index)
		}
		return b.push(b.in.Dispatch(doc.Links[index-1].Ref)), nil
	}

	if ref, err := xref.Parse(line); err == nil {
		return b.push(b.in.DispatchRef(ref)), nil
	} else if !errors.Is(err, xref.ErrUnknownKind) {
		return document.Document{}, err
	}

	return b.push(b.in.RenderAddressText(line)), nil
}

func writeLinks(out io.Writer, doc document.Document) {
	if len(doc.Links) == 0 {
		return
	}
	fmt.Fprintln(out)
	for i, l := range doc.Links {
		fmt.Fprintf(out, "%s %s -> %s\n", colorIndex.Sprintf("[%d]", i+1), l.Label, l.Ref)
	}
}

// capturePanic turns a panic raised by fn into an error carrying the stack
func capturePanic(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v\nStack: %s", r, debug.Stack())
		}
	}()

	fn()
	return nil
}

func runBrowse(b *browser, shell *readline.Instance) {
	out := shell.Terminal
	fmt.Fprint(out, "Entering interactive mode (type 'help' for commands)\n")

	for {
		line, err := shell.Readline()
		if err != nil {
			if err != io.EOF && err != readline.ErrInterrupt {
				colorError.Fprintf(out, "error: %v\n", err)
			}
			return
		}

		switch strings.TrimSpace(line) {
		case "":
			continue
		case "quit", "exit":
			return
		case "help":
			fmt.Fprint(out, browseHelp)
			continue
		case "links":
			if doc, ok := b.current(); ok {
				writeLinks(out, doc)
			}
			continue
		}

		var doc document.Document
		var stepErr error
		err = capturePanic(func() {
			doc, stepErr = b.step(line)
		})
		if err == nil {
			err = stepErr
		}
		if err != nil {
			colorError.Fprintf(out, "error: %v\n", err)
			continue
		}
		writeDocument(out, doc)
		writeLinks(out, doc)
	}
}

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Navigate the snapshot interactively by following links",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		in := mustOpenInspector()

		completer := readline.NewPrefixCompleter(
			readline.PcItem("back"),
			readline.PcItem("links"),
			readline.PcItem("help"),
			readline.PcItem("quit"),
		)
		for _, k := range xref.Kinds {
			name := k.String()
			if k.HasPayload() {
				name += "="
			}
			completer.SetChildren(append(completer.GetChildren(), readline.PcItem(name)))
		}

		shell, err := readline.NewEx(&readline.Config{
			Prompt:       colorPrompt.Sprint("(vmlens) "),
			AutoComplete: completer,
			EOFPrompt:    "\n",
		})
		if err != nil {
			fail("%v", err)
		}
		defer shell.Close()

		runBrowse(&browser{in: in}, shell)
	},
}

func init() {
	InspectCmd.AddCommand(browseCmd)
}
