// Package document accumulates the rendered views of the inspector.
//
// # Styles
//
// A Writer renders either markup (HTML-like tags, entity escaped text) or
// plain indented text. Callers issue the same sequence of calls in both
// styles: tags are dropped in plain style, while table rows, cells and
// explicit line breaks still produce separating whitespace so that both
// styles carry the same information.
//
// # Links
//
// Cross references are embedded with Link. In markup they become anchors,
// in plain text the reference follows the label in square brackets. Every
// reference is also recorded in Document.Links in emission order.
package document

import (
	"fmt"
	"strings"
)

// Style controls the output syntax of a Writer
type Style int

const (
	// StylePlain produces indented plain text
	StylePlain Style = iota
	// StyleMarkup produces HTML-like markup
	StyleMarkup
)

func (s Style) String() string {
	if s == StyleMarkup {
		return "markup"
	}
	return "plain"
}

// ParseStyle parses "plain" or "markup" (also accepting "html")
func ParseStyle(text string) (Style, error) {
	switch strings.ToLower(text) {
	case "plain", "text", "":
		return StylePlain, nil
	case "markup", "html":
		return StyleMarkup, nil
	default:
		return StylePlain, fmt.Errorf("unknown document style '%s'", text)
	}
}

// Link is a cross reference embedded in a document
type Link struct {
	Ref   string
	Label string
}

// Document is a finished rendering
type Document struct {
	Title string
	Style Style
	Body  string
	Links []Link
}

// String returns the full document text. Markup documents get the html
// envelope with the title; plain documents are preceded by the title line.
func (d Document) String() string {
	if d.Style == StyleMarkup {
		return "<html><head><title>" + escape(d.Title) + "</title></head><body>" + d.Body + "</body></html>"
	}
	return d.Title + "\n\n" + d.Body
}

var escaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escape(text string) string {
	return escaper.Replace(text)
}

// Writer accumulates a document. It is not safe for concurrent use; create
// one per rendering.
type Writer struct {
	style Style
	title string
	buf   strings.Builder
	links []Link
	// cells counts the cells emitted in the current row, plain style only
	cells     int
	lineStart bool
}

func NewWriter(style Style) *Writer {
	return &Writer{style: style, lineStart: true}
}

func (w *Writer) Style() Style {
	return w.style
}

func (w *Writer) IsMarkup() bool {
	return w.style == StyleMarkup
}

func (w *Writer) write(text string) {
	if text == "" {
		return
	}
	w.buf.WriteString(text)
	w.lineStart = strings.HasSuffix(text, "\n")
}

// SetTitle sets the document title
func (w *Writer) SetTitle(title string) {
	w.title = title
}

// Emit appends text, escaping it in markup style
func (w *Writer) Emit(text string) {
	if w.IsMarkup() {
		w.write(escape(text))
	} else {
		w.write(text)
	}
}

func (w *Writer) Emitf(format string, args ...any) {
	w.Emit(fmt.Sprintf(format, args...))
}

// OpenTag emits <name>. Nesting is not validated.
func (w *Writer) OpenTag(name string) {
	if w.IsMarkup() {
		w.write("<" + name + ">")
	}
}

// CloseTag emits </name>
func (w *Writer) CloseTag(name string) {
	if w.IsMarkup() {
		w.write("</" + name + ">")
	}
}

// Heading emits a section heading on its own line
func (w *Writer) Heading(text string) {
	if w.IsMarkup() {
		w.write("<h3>" + escape(text) + "</h3>")
		return
	}
	w.ensureLineStart()
	w.write(text + "\n")
}

// Bold emits emphasized text
func (w *Writer) Bold(text string) {
	w.OpenTag("b")
	w.Emit(text)
	w.CloseTag("b")
}

// Newline ends the current line
func (w *Writer) Newline() {
	if w.IsMarkup() {
		w.write("<br>")
	} else {
		w.write("\n")
	}
}

// NewlineIfPlain ends the current line in plain style only
func (w *Writer) NewlineIfPlain() {
	if !w.IsMarkup() {
		w.write("\n")
	}
}

func (w *Writer) ensureLineStart() {
	if !w.lineStart {
		w.write("\n")
	}
}

// Indent emits level steps of indentation
func (w *Writer) Indent(level int) {
	if level <= 0 {
		return
	}
	if w.IsMarkup() {
		w.write(strings.Repeat("&nbsp;&nbsp;", level))
	} else {
		w.write(strings.Repeat("  ", level))
	}
}

// Link embeds a cross reference
func (w *Writer) Link(ref, label string) {
	w.links = append(w.links, Link{Ref: ref, Label: label})
	if w.IsMarkup() {
		w.write(`<a href="` + escape(ref) + `">` + escape(label) + "</a>")
	} else {
		w.write(label + " [" + ref + "]")
	}
}

// BeginTable starts a table
func (w *Writer) BeginTable(border int) {
	if w.IsMarkup() {
		w.write(fmt.Sprintf(`<table border="%d">`, border))
	} else {
		w.ensureLineStart()
	}
}

// EndTable ends a table
func (w *Writer) EndTable() {
	if w.IsMarkup() {
		w.write("</table>")
	}
}

// BeginRow starts a table row
func (w *Writer) BeginRow() {
	w.cells = 0
	if w.IsMarkup() {
		w.write("<tr>")
	}
}

// EndRow ends a table row
func (w *Writer) EndRow() {
	if w.IsMarkup() {
		w.write("</tr>")
	} else {
		w.write("\n")
	}
}

// BeginCell starts a table cell. Cells are tab separated in plain style.
func (w *Writer) BeginCell() {
	if w.IsMarkup() {
		w.write("<td>")
	} else if w.cells > 0 {
		w.write("\t")
	}
	w.cells++
}

// EndCell ends a table cell
func (w *Writer) EndCell() {
	if w.IsMarkup() {
		w.write("</td>")
	}
}

// TableRow emits a row of plain text cells
func (w *Writer) TableRow(cells ...string) {
	w.BeginRow()
	for _, c := range cells {
		w.BeginCell()
		w.Emit(c)
		w.EndCell()
	}
	w.EndRow()
}

// Document returns the accumulated document
func (w *Writer) Document() Document {
	return Document{
		Title: w.title,
		Style: w.style,
		Body:  w.buf.String(),
		Links: append([]Link(nil), w.links...),
	}
}
