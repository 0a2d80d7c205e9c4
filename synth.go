package suba

import (
	"strings"
	"sync"
)

// Synth builds element markup from a compact selector-like expression:
// tag names, #id, .class, [attr=value], quoted literal text, space to
// descend, + to ascend, and , to start a new root.
//
//	Synth("div#foo")                      // [`<div id="foo"></div>`]
//	Synth("a[href=#home] 'Home'")         // [`<a href="#home">Home</a>`]
//	Synth("div, span")                    // [`<div></div>`, `<span></span>`]
//
// One string is returned per root element. Results are memoized per
// expression; callers must not mutate the returned slice.
func Synth(expr string) []string {
	synthMu.Lock()
	cached, ok := synthCache[expr]
	synthMu.Unlock()
	if ok {
		return cached
	}

	roots := parseSynth(expr)
	out := make([]string, len(roots))
	for i, n := range roots {
		var b strings.Builder
		n.render(&b)
		out[i] = b.String()
	}

	synthMu.Lock()
	synthCache[expr] = out
	synthMu.Unlock()
	return out
}

var (
	synthMu    sync.Mutex
	synthCache = map[string][]string{}
)

// synthNode is the bare minimum idea of a DOM node: enough structure to
// build a tree and dump a string.
type synthNode struct {
	tagName    string
	id         string
	className  string
	attrNames  []string
	attrValues []string
	text       string // set only on text nodes
	isText     bool
	parent     *synthNode
	children   []*synthNode
}

func (n *synthNode) appendChild(c *synthNode) *synthNode {
	n.children = append(n.children, c)
	c.parent = n
	return c
}

func (n *synthNode) setAttr(k, v string) {
	n.attrNames = append(n.attrNames, k)
	n.attrValues = append(n.attrValues, v)
}

func (n *synthNode) render(b *strings.Builder) {
	if n.isText {
		b.WriteString(n.text)
		return
	}
	b.WriteByte('<')
	b.WriteString(n.tagName)
	if n.id != "" {
		b.WriteString(` id="`)
		b.WriteString(n.id)
		b.WriteByte('"')
	}
	if n.className != "" {
		b.WriteString(` class="`)
		b.WriteString(n.className)
		b.WriteByte('"')
	}
	for i, k := range n.attrNames {
		b.WriteByte(' ')
		b.WriteString(k)
		b.WriteString(`="`)
		b.WriteString(n.attrValues[i])
		b.WriteByte('"')
	}
	b.WriteByte('>')
	for _, c := range n.children {
		c.render(b)
	}
	b.WriteString("</")
	b.WriteString(n.tagName)
	b.WriteByte('>')
}

// target states of the synth machine: which buffer the next character
// lands in.
type synthTarget int

const (
	tgTag synthTarget = iota
	tgID
	tgClass
	tgAttr
	tgVal
	tgText
)

// parseSynth feeds the expression through a character state machine.
// Separators are inert inside attribute values and quoted text, so
// values may contain them freely.
func parseSynth(expr string) []*synthNode {
	var roots []*synthNode
	var tag, id, class, attr, val, text strings.Builder
	var attrNames, attrValues []string
	var qmode rune // quote the current text run was opened with
	var parent *synthNode
	target := tgTag

	flushElement := func() *synthNode {
		node := &synthNode{
			tagName:    tag.String(),
			id:         id.String(),
			className:  class.String(),
			attrNames:  attrNames,
			attrValues: attrValues,
		}
		if parent != nil {
			parent.appendChild(node)
		} else {
			roots = append(roots, node)
		}
		tag.Reset()
		id.Reset()
		class.Reset()
		attr.Reset()
		val.Reset()
		attrNames, attrValues = nil, nil
		return node
	}

	for _, c := range expr {
		switch {
		case c == '+' && target == tgTag:
			if parent != nil {
				parent = parent.parent
			}
		case c == '#' && (target == tgTag || target == tgClass || target == tgAttr):
			target = tgID
		case c == '.' && (target == tgTag || target == tgID || target == tgAttr):
			target = tgClass
		case c == '[' && (target == tgTag || target == tgID || target == tgClass || target == tgAttr):
			target = tgAttr
		case c == '=' && target == tgAttr:
			target = tgVal
		case c == ']' && (target == tgAttr || target == tgVal):
			attrNames = append(attrNames, attr.String())
			attrValues = append(attrValues, val.String())
			attr.Reset()
			val.Reset()
			target = tgTag
		case (c == '"' || c == '\'') && target == tgTag:
			target = tgText
			qmode = c
		case c == qmode && target == tgText:
			node := &synthNode{isText: true, text: text.String()}
			if parent != nil {
				parent.appendChild(node)
			} else {
				roots = append(roots, node)
			}
			text.Reset()
			target = tgTag
			qmode = 0
		case (c == ' ' || c == ',') && target != tgVal && target != tgText && tag.Len() > 0:
			node := flushElement()
			if c == ',' {
				parent = nil
			} else {
				parent = node
			}
			target = tgTag
		case target == tgTag:
			if c != ' ' {
				tag.WriteRune(c)
			}
		case target == tgID:
			id.WriteRune(c)
		case target == tgClass:
			class.WriteRune(c)
		case target == tgAttr:
			attr.WriteRune(c)
		case target == tgVal:
			val.WriteRune(c)
		case target == tgText:
			text.WriteRune(c)
		}
	}

	if tag.Len() > 0 {
		flushElement()
	}
	if text.Len() > 0 {
		node := &synthNode{isText: true, text: text.String()}
		if parent != nil {
			parent.appendChild(node)
		} else {
			roots = append(roots, node)
		}
	}
	return roots
}
