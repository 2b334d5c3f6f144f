// Package tree implements Component E (Tree Builder) of spec.md §4.E: a
// pure, idempotent function from a sorted file list to a types.TreeNode,
// directories-first then alphabetical at every level. Grounded on the
// teacher's internal/scanner tree assembly, generalized to the fixed
// {dir, file} node shape spec.md requires instead of the teacher's richer
// per-language node metadata.
package tree

import (
	"sort"
	"strings"

	"github.com/codebasemap/codebasemap/internal/types"
)

// Build constructs a types.TreeNode rooted at rootName from a sorted list
// of forward-slash, project-relative file paths. It touches no filesystem
// state and is idempotent: the same input always yields an identical tree.
func Build(files []string, rootName string) *types.TreeNode {
	root := &types.TreeNode{Name: rootName, Type: types.NodeDir}
	dirs := map[string]*types.TreeNode{"": root}

	for _, f := range files {
		segments := strings.Split(f, "/")
		parentPath := ""
		parent := root
		for i, seg := range segments {
			isLeaf := i == len(segments)-1
			path := joinPath(parentPath, seg)
			if isLeaf {
				parent.Children = append(parent.Children, &types.TreeNode{Name: seg, Type: types.NodeFile})
				break
			}
			node, ok := dirs[path]
			if !ok {
				node = &types.TreeNode{Name: seg, Type: types.NodeDir}
				dirs[path] = node
				parent.Children = append(parent.Children, node)
			}
			parent = node
			parentPath = path
		}
	}

	sortChildren(root)
	return root
}

func joinPath(parent, seg string) string {
	if parent == "" {
		return seg
	}
	return parent + "/" + seg
}

// sortChildren recursively orders each node's children directories-first,
// then alphabetically within each group.
func sortChildren(n *types.TreeNode) {
	sort.SliceStable(n.Children, func(i, j int) bool {
		a, b := n.Children[i], n.Children[j]
		if a.Type != b.Type {
			return a.Type == types.NodeDir
		}
		return a.Name < b.Name
	})
	for _, c := range n.Children {
		if c.Type == types.NodeDir {
			sortChildren(c)
		}
	}
}
