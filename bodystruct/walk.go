package bodystruct

// Visitor is invoked once per part during a walk, with the node owning the
// part. State lives in the visitor's closure or receiver; the tree is not
// modified by walking.
type Visitor func(node *Node, part *Part)

// Walk traverses the tree in pre-order: each part is visited before its
// children, children in their part-number order.
func Walk(node *Node, visit Visitor) {
	if node == nil {
		return
	}
	for i := range node.Parts {
		part := &node.Parts[i]
		visit(node, part)
		if part.Child != nil {
			Walk(part.Child, visit)
		}
	}
}
