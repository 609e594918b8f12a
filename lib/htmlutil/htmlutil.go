package htmlutil

import (
	"bytes"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// GetText concatenates the text nodes under node, scripts and styles excluded.
func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	if node.Type == html.ElementNode && (node.Data == "script" || node.Data == "style") {
		return
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		getTextRecursive(child, buffer)
	}
}

func removeNonPrintable(s string) string {
	return strings.Map(func(c rune) rune {
		if unicode.IsPrint(c) || unicode.IsSpace(c) {
			return c
		}
		return -1
	}, s)
}

// CellText returns the visible text of the first node in the selection,
// trimmed of surrounding whitespace. inner whitespace is kept as is since
// numeric cells use it as a thousands separator.
func CellText(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	text := removeNonPrintable(GetText(sel.Get(0)))
	return strings.TrimFunc(text, unicode.IsSpace)
}
