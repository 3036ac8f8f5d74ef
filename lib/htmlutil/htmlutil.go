package htmlutil

import (
	"bytes"

	"golang.org/x/net/html"
)

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
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

// VisitTextNodes walks the tree in document order, calling visit on the
// contents of every text node. returning false stops the walk.
func VisitTextNodes(node *html.Node, visit func(text string) bool) {
	visitTextNodesRecursive(node, visit)
}

func visitTextNodesRecursive(node *html.Node, visit func(text string) bool) bool {
	if node == nil {
		return true
	}
	if node.Type == html.TextNode {
		return visit(node.Data)
	}
	child := node.FirstChild
	for child != nil {
		if !visitTextNodesRecursive(child, visit) {
			return false
		}
		child = child.NextSibling
	}
	return true
}
