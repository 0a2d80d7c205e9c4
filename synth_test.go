package suba

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSynthIDAndClass(t *testing.T) {
	require.Equal(t, []string{`<div id="foo"></div>`}, Synth("div#foo"))
	require.Equal(t, []string{`<div class="bar"></div>`}, Synth("div.bar"))
}

func TestSynthAttributes(t *testing.T) {
	require.Equal(t, []string{`<a href="#home"></a>`}, Synth("a[href=#home]"))
}

func TestSynthTextChild(t *testing.T) {
	require.Equal(t, []string{`<a href="#home">Home Link</a>`}, Synth("a[href=#home] 'Home Link'"))
}

func TestSynthDescendAndAscend(t *testing.T) {
	require.Equal(t,
		[]string{`<div><p><span><a href="#home">Home Link</a><a href="#logout">Logout Link</a></span></p></div>`},
		Synth("div p span a[href=#home] 'Home Link' + a[href=#logout] 'Logout Link'"))

	require.Equal(t,
		[]string{`<div><p><span>Here</span></p><p><span>There</span></p></div>`},
		Synth("div p span 'Here' + + p span 'There'"))
}

func TestSynthMultipleRoots(t *testing.T) {
	require.Equal(t, []string{`<div></div>`, `<span></span>`}, Synth("div, span"))
}

func TestSynthQuotedSeparators(t *testing.T) {
	// separators inside quoted attribute values and text are inert
	got := Synth(`div#id1.class1[a=b][k=v], div#id2.class2[href='home, on the range'] 'some inner, text' span 'span, text' + sub 'sub text'`)
	require.Equal(t, []string{
		`<div id="id1" class="class1" a="b" k="v"></div>`,
		`<div id="id2" class="class2" href="'home, on the range'">some inner, text<span>span, text</span><sub>sub text</sub></div>`,
	}, got)
}

func TestSynthTemplatePlaceholders(t *testing.T) {
	// synth output commonly feeds back into templates
	require.Equal(t, []string{`<div id="%(id)s"></div>`}, Synth("div#%(id)s"))
	require.Equal(t,
		[]string{`<div id="%(id)s" class="%(cls)s" %(k)s="%(v)s">%(data)s</div>`},
		Synth("div#%(id)s.%(cls)s[%(k)s=%(v)s] '%(data)s'"))
}

func TestSynthMemoized(t *testing.T) {
	a := Synth("div#memo")
	b := Synth("div#memo")
	require.Equal(t, a, b)
}
