// Package pathtrie implements an in-memory directory-tree index over
// absolute, normalized paths. It holds no file content and performs no
// I/O; it is purely a namespace index mapping paths to file-ids and
// back, grounded the way gcsfuse's fs/inode.DirInode holds a name and a
// child map, generalized here away from being backed by GCS objects and
// turned into the namespace's own source of truth.
package pathtrie

import (
	"sort"
	"strings"

	"github.com/tachyoncache/tachyon/internal/errs"
)

// node is one entry in the trie: either a folder (with children) or a
// leaf file (childless, IsFolder == false).
type node struct {
	name     string
	fileID   int32
	isFolder bool
	children map[string]*node
}

func newNode(name string, fileID int32, isFolder bool) *node {
	n := &node{name: name, fileID: fileID, isFolder: isFolder}
	if isFolder {
		n.children = make(map[string]*node)
	}
	return n
}

// Trie is the directory-tree index. The zero value is not usable; use
// New. Trie is not safe for concurrent use on its own -- callers
// (internal/inode.Store) serialize access under their own mutator lock,
// matching the "same critical section" requirement of spec section 4.2.
type Trie struct {
	root *node
}

// New returns an empty trie rooted at "/".
func New() *Trie {
	return &Trie{root: newNode("", 0, true)}
}

// Normalize collapses repeated slashes and validates that p is an
// absolute path with no ".." segments and no empty components. It
// returns the normalized form, or an InvalidPath error.
func Normalize(p string) (string, error) {
	if p == "" || p[0] != '/' {
		return "", &errs.InvalidPath{Path: p, Reason: "path must be absolute"}
	}

	parts := strings.Split(p, "/")
	var clean []string
	for _, part := range parts {
		if part == "" {
			continue
		}
		if part == ".." {
			return "", &errs.InvalidPath{Path: p, Reason: "\"..\" is not allowed"}
		}
		if part == "." {
			continue
		}
		clean = append(clean, part)
	}

	if len(clean) == 0 {
		return "/", nil
	}
	return "/" + strings.Join(clean, "/"), nil
}

func split(normalized string) []string {
	if normalized == "/" {
		return nil
	}
	return strings.Split(strings.TrimPrefix(normalized, "/"), "/")
}

// walk returns the node at the normalized path, or nil if absent. It
// fails with InvalidPath if an intermediate component exists but is not
// a folder.
func (t *Trie) walk(segments []string) (*node, error) {
	cur := t.root
	for _, seg := range segments {
		if !cur.isFolder {
			return nil, &errs.InvalidPath{Reason: "path traverses a non-folder component"}
		}
		child, ok := cur.children[seg]
		if !ok {
			return nil, nil
		}
		cur = child
	}
	return cur, nil
}

// Insert adds a new node of the given kind at path. Ancestor folders
// are NOT created implicitly here -- that auto-vivification policy
// belongs to InodeStore.CreateFile, which calls Insert once per missing
// ancestor. Insert fails FileAlreadyExist if the final component exists,
// and InvalidPath if path is malformed or traverses a non-folder.
func (t *Trie) Insert(path string, fileID int32, isFolder bool) error {
	normalized, err := Normalize(path)
	if err != nil {
		return err
	}
	segments := split(normalized)
	if len(segments) == 0 {
		return &errs.FileAlreadyExist{Path: normalized}
	}

	cur := t.root
	for _, seg := range segments[:len(segments)-1] {
		if !cur.isFolder {
			return &errs.InvalidPath{Path: normalized, Reason: "path traverses a non-folder component"}
		}
		child, ok := cur.children[seg]
		if !ok {
			return &errs.InvalidPath{Path: normalized, Reason: "missing ancestor folder"}
		}
		cur = child
	}

	last := segments[len(segments)-1]
	if !cur.isFolder {
		return &errs.InvalidPath{Path: normalized, Reason: "path traverses a non-folder component"}
	}
	if _, exists := cur.children[last]; exists {
		return &errs.FileAlreadyExist{Path: normalized}
	}

	cur.children[last] = newNode(last, fileID, isFolder)
	return nil
}

// Lookup returns the file-id stored at path, or ok == false if no node
// is there.
func (t *Trie) Lookup(path string) (fileID int32, ok bool) {
	normalized, err := Normalize(path)
	if err != nil {
		return 0, false
	}
	segments := split(normalized)
	if len(segments) == 0 {
		return t.root.fileID, true
	}

	n, err := t.walk(segments)
	if err != nil || n == nil {
		return 0, false
	}
	return n.fileID, true
}

// Child is one entry returned by Children: a name and the file-id it
// resolves to.
type Child struct {
	Name   string
	FileID int32
}

// Children returns the direct children of path in case-sensitive
// lexicographic order by name. Fails FileDoesNotExist if path is absent,
// InvalidPath if path resolves to a file rather than a folder.
func (t *Trie) Children(path string) ([]Child, error) {
	normalized, err := Normalize(path)
	if err != nil {
		return nil, err
	}
	segments := split(normalized)

	n, err := t.walk(segments)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, &errs.FileDoesNotExist{Path: normalized}
	}
	if !n.isFolder {
		return nil, &errs.InvalidPath{Path: normalized, Reason: "not a folder"}
	}

	out := make([]Child, 0, len(n.children))
	for name, child := range n.children {
		out = append(out, Child{Name: name, FileID: child.fileID})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Remove deletes the subtree rooted at path. Fails FileDoesNotExist if
// absent, InvalidPath if the node has children and recursive is false.
func (t *Trie) Remove(path string, recursive bool) error {
	normalized, err := Normalize(path)
	if err != nil {
		return err
	}
	segments := split(normalized)
	if len(segments) == 0 {
		return &errs.InvalidPath{Path: normalized, Reason: "cannot remove the root"}
	}

	parent := t.root
	for _, seg := range segments[:len(segments)-1] {
		child, ok := parent.children[seg]
		if !ok {
			return &errs.FileDoesNotExist{Path: normalized}
		}
		parent = child
	}

	last := segments[len(segments)-1]
	target, ok := parent.children[last]
	if !ok {
		return &errs.FileDoesNotExist{Path: normalized}
	}
	if target.isFolder && len(target.children) > 0 && !recursive {
		return &errs.InvalidPath{Path: normalized, Reason: "folder is not empty"}
	}

	delete(parent.children, last)
	return nil
}

// Rename moves the subtree at src to dst. Fails FileDoesNotExist if src
// is absent, FileAlreadyExist if dst exists, InvalidPath if dst would
// land inside src's own subtree (including dst == src).
func (t *Trie) Rename(src, dst string) error {
	normSrc, err := Normalize(src)
	if err != nil {
		return err
	}
	normDst, err := Normalize(dst)
	if err != nil {
		return err
	}

	if normDst == normSrc || strings.HasPrefix(normDst, normSrc+"/") {
		return &errs.InvalidPath{Path: dst, Reason: "destination is the source or one of its descendants"}
	}

	srcSegments := split(normSrc)
	if len(srcSegments) == 0 {
		return &errs.InvalidPath{Path: src, Reason: "cannot rename the root"}
	}

	srcParent := t.root
	for _, seg := range srcSegments[:len(srcSegments)-1] {
		child, ok := srcParent.children[seg]
		if !ok {
			return &errs.FileDoesNotExist{Path: src}
		}
		srcParent = child
	}
	srcLast := srcSegments[len(srcSegments)-1]
	srcNode, ok := srcParent.children[srcLast]
	if !ok {
		return &errs.FileDoesNotExist{Path: src}
	}

	dstSegments := split(normDst)
	if len(dstSegments) == 0 {
		return &errs.FileAlreadyExist{Path: dst}
	}
	dstParent := t.root
	for _, seg := range dstSegments[:len(dstSegments)-1] {
		child, ok := dstParent.children[seg]
		if !ok {
			return &errs.InvalidPath{Path: dst, Reason: "missing ancestor folder"}
		}
		dstParent = child
	}
	dstLast := dstSegments[len(dstSegments)-1]
	if _, exists := dstParent.children[dstLast]; exists {
		return &errs.FileAlreadyExist{Path: dst}
	}

	delete(srcParent.children, srcLast)
	srcNode.name = dstLast
	dstParent.children[dstLast] = srcNode
	return nil
}
