package inspect

import (
	"bytes"
	"errors"
	"testing"

	"github.com/Manu343726/vmlens/pkg/inspector"
	"github.com/Manu343726/vmlens/pkg/vm"
	"github.com/Manu343726/vmlens/pkg/vm/snapshot/snapshottest"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBrowser(t *testing.T) *browser {
	t.Helper()
	return &browser{in: inspector.New(snapshottest.Image(t), inspector.Options{})}
}

func TestBrowserFollowsLinksAndGoesBack(t *testing.T) {
	b := newBrowser(t)

	doc, err := b.step("0xdead0000")
	require.NoError(t, err)
	assert.Equal(t, "Compiled code for Foo.bar()V", doc.Title)
	require.NotEmpty(t, doc.Links)
	assert.Equal(t, "method=0x2100", doc.Links[0].Ref)

	doc, err = b.step("1")
	require.NoError(t, err)
	assert.Equal(t, "Method Foo.bar()V", doc.Title)

	doc, err = b.step("klass=0x1100")
	require.NoError(t, err)
	assert.Equal(t, "Class com.example.Foo", doc.Title)

	doc, err = b.step("back")
	require.NoError(t, err)
	assert.Equal(t, "Method Foo.bar()V", doc.Title)

	doc, err = b.step("back")
	require.NoError(t, err)
	assert.Equal(t, "Compiled code for Foo.bar()V", doc.Title)

	_, err = b.step("back")
	assert.ErrorIs(t, err, errNoHistory)
}

func TestBrowserInputErrors(t *testing.T) {
	tests := []struct {
		name  string
		lines []string
		err   error
	}{
		{"index before any document", []string{"1"}, errNoDocument},
		{"index out of range", []string{"interp_codelets", "4"}, errBadIndex},
		{"zero index", []string{"interp_codelets", "0"}, errBadIndex},
		{"back with no history", []string{"back"}, errNoHistory},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			b := newBrowser(t)
			var err error
			for _, line := range test.lines {
				_, err = b.step(line)
			}
			assert.ErrorIs(t, err, test.err)
		})
	}
}

func TestBrowserMalformedReferences(t *testing.T) {
	b := newBrowser(t)

	_, err := b.step("klass=zz")
	assert.Error(t, err)
	assert.Empty(t, b.history)

	doc, err := b.step("not an address")
	require.NoError(t, err)
	assert.Equal(t, "Error", doc.Title)
}

func TestCapturePanic(t *testing.T) {
	assert.NoError(t, capturePanic(func() {}))

	err := capturePanic(func() { panic(errors.New("boom")) })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestFindClass(t *testing.T) {
	target := snapshottest.Image(t)

	tests := []struct {
		text    string
		address vm.Address
		fails   bool
	}{
		{text: "0x1100", address: snapshottest.FooClass},
		{text: "com.example.Foo", address: snapshottest.FooClass},
		{text: "com/example/Bar", address: snapshottest.BarClass},
		{text: "0x2100", fails: true},
		{text: "com.example.Nope", fails: true},
		{text: "0x42", fails: true},
	}

	for _, test := range tests {
		t.Run(test.text, func(t *testing.T) {
			c, err := findClass(target, test.text)
			if test.fails {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.address, c.Address())
		})
	}
}

func TestWriteDocument(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	in := inspector.New(snapshottest.Image(t), inspector.Options{})
	doc := in.Dispatch("interp_codelets")

	var out bytes.Buffer
	writeDocument(&out, doc)
	writeLinks(&out, doc)

	assert.Contains(t, out.String(), "Interpreter codelets\n\n")
	assert.Contains(t, out.String(), "[1] [0xdeb00040, 0xdeb00080) -> pc=0xdeb00040\n")
}
