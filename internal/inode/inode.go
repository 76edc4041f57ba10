// Package inode owns the File and Directory records that make up the
// master's namespace, and composes internal/pathtrie under the same
// critical section so the two structures never drift apart: InodeStore
// exclusively owns File/Directory records, and PathTrie is always
// updated under that same lock. Grounded on gcsfuse's fs/inode.DirInode
// (an inode record plus a type cache, guarded by a single mutex,
// generalized here away from GCS-object backing into pure namespace
// bookkeeping) and fs/inode/file.go (the ready/not-ready and
// size-committed-once lifecycle).
package inode

import (
	"sync"

	"github.com/tachyoncache/tachyon/internal/clock"
	"github.com/tachyoncache/tachyon/internal/errs"
	"github.com/tachyoncache/tachyon/internal/pathtrie"
)

// File is the namespace record for a file or folder. RawTable columns
// are ordinary folders discoverable via Children; table-specific
// metadata lives in the separate rawTables side-table keyed by ID.
type File struct {
	ID             int32
	Path           string
	Name           string
	IsFolder       bool
	SizeBytes      int64
	CreationTimeMs int64
	Ready          bool
	Pin            bool
	Cache          bool
	CheckpointPath string
}

// RawTable is the metadata overlay attached to a folder created via
// CreateRawTable.
type RawTable struct {
	ID       int32
	Columns  int
	Metadata []byte
}

// MaxColumns bounds RawTable.Columns and is reported as the limit in the
// TableColumn failure. It is a fixed constant; no configuration setting
// changes it.
const MaxColumns = 4096

// Store is the InodeStore: file-id allocation, File/RawTable CRUD, and
// the PathTrie namespace index, mutated together under one lock. Use
// New; the zero value is not usable.
type Store struct {
	mu sync.Mutex

	clk clock.Clock

	trie      *pathtrie.Trie
	files     map[int32]*File
	rawTables map[int32]*RawTable
	nextID    int32
}

// New returns an empty store rooted at "/" (file-id 0, a folder).
func New(clk clock.Clock) *Store {
	root := &File{ID: 0, Path: "/", Name: "", IsFolder: true, CreationTimeMs: clk.Now().UnixMilli()}
	return &Store{
		clk:       clk,
		trie:      pathtrie.New(),
		files:     map[int32]*File{0: root},
		rawTables: make(map[int32]*RawTable),
		nextID:    1,
	}
}

func (s *Store) allocID() int32 {
	id := s.nextID
	s.nextID++
	return id
}

func dirname(normalized string) string {
	if normalized == "/" {
		return "/"
	}
	i := len(normalized) - 1
	for i > 0 && normalized[i] != '/' {
		i--
	}
	if i == 0 {
		return "/"
	}
	return normalized[:i]
}

func basename(normalized string) string {
	if normalized == "/" {
		return ""
	}
	i := len(normalized) - 1
	for i > 0 && normalized[i] != '/' {
		i--
	}
	return normalized[i+1:]
}

// ensureAncestors creates any missing ancestor folders of normalized,
// returning the file-id of its immediate parent folder.
func (s *Store) ensureAncestors(normalized string) (int32, error) {
	parent := dirname(normalized)
	if parentID, ok := s.trie.Lookup(parent); ok {
		return parentID, nil
	}

	grandParentID, err := s.ensureAncestors(parent)
	if err != nil {
		return 0, err
	}

	id := s.allocID()
	if err := s.trie.Insert(parent, id, true); err != nil {
		return 0, err
	}
	s.files[id] = &File{
		ID:             id,
		Path:           parent,
		Name:           basename(parent),
		IsFolder:       true,
		CreationTimeMs: s.clk.Now().UnixMilli(),
	}
	_ = grandParentID
	return id, nil
}

// CreateFile creates a non-folder, not-ready inode at path, creating any
// missing ancestor folders. Fails FileAlreadyExist / InvalidPath.
func (s *Store) CreateFile(path string) (int32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	normalized, err := pathtrie.Normalize(path)
	if err != nil {
		return 0, err
	}
	if _, ok := s.trie.Lookup(normalized); ok {
		return 0, &errs.FileAlreadyExist{Path: normalized}
	}

	if normalized != "/" {
		if _, err := s.ensureAncestors(normalized); err != nil {
			return 0, err
		}
	}

	id := s.allocID()
	if err := s.trie.Insert(normalized, id, false); err != nil {
		return 0, err
	}
	s.files[id] = &File{
		ID:             id,
		Path:           normalized,
		Name:           basename(normalized),
		IsFolder:       false,
		CreationTimeMs: s.clk.Now().UnixMilli(),
	}
	return id, nil
}

// Mkdir creates a folder at path. Fails FileAlreadyExist if anything
// already lives there, InvalidPath for a malformed path.
func (s *Store) Mkdir(path string) (int32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mkdirLocked(path)
}

func (s *Store) mkdirLocked(path string) (int32, error) {
	normalized, err := pathtrie.Normalize(path)
	if err != nil {
		return 0, err
	}
	if _, ok := s.trie.Lookup(normalized); ok {
		return 0, &errs.FileAlreadyExist{Path: normalized}
	}
	if normalized != "/" {
		if _, err := s.ensureAncestors(normalized); err != nil {
			return 0, err
		}
	}

	id := s.allocID()
	if err := s.trie.Insert(normalized, id, true); err != nil {
		return 0, err
	}
	s.files[id] = &File{
		ID:             id,
		Path:           normalized,
		Name:           basename(normalized),
		IsFolder:       true,
		CreationTimeMs: s.clk.Now().UnixMilli(),
	}
	return id, nil
}

// CreateRawTable creates a folder at path plus one child folder per
// column (named "0".."columns-1"), and attaches a RawTable record keyed
// by the top folder's file-id. Fails TableColumn if columns is outside
// [1, MaxColumns].
func (s *Store) CreateRawTable(path string, columns int, metadata []byte) (int32, error) {
	if columns < 1 || columns > MaxColumns {
		return 0, &errs.TableColumn{Requested: columns, Max: MaxColumns}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.mkdirLocked(path)
	if err != nil {
		return 0, err
	}
	normalized := s.files[id].Path

	for i := 0; i < columns; i++ {
		colPath := normalized
		if colPath != "/" {
			colPath += "/"
		}
		colPath += itoa(i)
		if _, err := s.mkdirLocked(colPath); err != nil {
			return 0, err
		}
	}

	s.rawTables[id] = &RawTable{ID: id, Columns: columns, Metadata: metadata}
	return id, nil
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var buf [12]byte
	pos := len(buf)
	neg := i < 0
	if neg {
		i = -i
	}
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}

// UpdateRawTableMetadata overwrites the metadata blob for tableID.
// Fails TableDoesNotExist if tableID is not a raw table.
func (s *Store) UpdateRawTableMetadata(tableID int32, metadata []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rt, ok := s.rawTables[tableID]
	if !ok {
		return &errs.TableDoesNotExist{ID: tableID}
	}
	rt.Metadata = metadata
	return nil
}

// RawTable returns a copy of the raw table record for id, if any.
func (s *Store) RawTable(id int32) (RawTable, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rt, ok := s.rawTables[id]
	if !ok {
		return RawTable{}, false
	}
	return *rt, true
}

// Rename moves src to dst in the namespace. File-ids are stable; only
// PathTrie and the File.Path/Name fields change.
func (s *Store) Rename(src, dst string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	normSrc, err := pathtrie.Normalize(src)
	if err != nil {
		return err
	}
	normDst, err := pathtrie.Normalize(dst)
	if err != nil {
		return err
	}

	if err := s.trie.Rename(normSrc, normDst); err != nil {
		return err
	}

	id, ok := s.trie.Lookup(normDst)
	if !ok {
		return &errs.FileDoesNotExist{Path: src}
	}
	s.renamePathsLocked(id, normSrc, normDst)
	return nil
}

// renamePathsLocked updates the File.Path/Name of id and (if id is a
// folder) every descendant still rooted under normSrc, after the trie
// move has already happened.
func (s *Store) renamePathsLocked(id int32, normSrc, normDst string) {
	f := s.files[id]
	f.Path = normDst
	f.Name = basename(normDst)

	if !f.IsFolder {
		return
	}
	children, err := s.trie.Children(normDst)
	if err != nil {
		return
	}
	for _, c := range children {
		childSrc := normSrc + "/" + c.Name
		childDst := normDst + "/" + c.Name
		s.renamePathsLocked(c.FileID, childSrc, childDst)
	}
}

// Delete removes fileID (and, if recursive, its subtree). Returns the
// set of deleted file-ids on success so the caller can propagate Free
// commands to holders. Fails FileDoesNotExist / InvalidPath.
func (s *Store) Delete(fileID int32, recursive bool) ([]int32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.files[fileID]
	if !ok {
		return nil, &errs.FileDoesNotExist{ID: fileID}
	}

	deleted, err := s.collectSubtreeLocked(f.Path)
	if err != nil {
		return nil, err
	}
	if len(deleted) > 1 && !recursive {
		return nil, &errs.InvalidPath{Path: f.Path, Reason: "folder is not empty"}
	}

	if err := s.trie.Remove(f.Path, recursive); err != nil {
		return nil, err
	}
	for _, id := range deleted {
		delete(s.files, id)
		delete(s.rawTables, id)
	}
	return deleted, nil
}

// DeleteByPath is Delete keyed by path instead of file-id.
func (s *Store) DeleteByPath(path string, recursive bool) ([]int32, error) {
	s.mu.Lock()
	id, ok := s.trie.Lookup(path)
	s.mu.Unlock()
	if !ok {
		normalized, err := pathtrie.Normalize(path)
		if err != nil {
			return nil, err
		}
		return nil, &errs.FileDoesNotExist{Path: normalized}
	}
	return s.Delete(id, recursive)
}

func (s *Store) collectSubtreeLocked(path string) ([]int32, error) {
	id, ok := s.trie.Lookup(path)
	if !ok {
		return nil, &errs.FileDoesNotExist{Path: path}
	}

	out := []int32{id}
	f := s.files[id]
	if f != nil && f.IsFolder {
		children, err := s.trie.Children(path)
		if err != nil {
			return nil, err
		}
		for _, c := range children {
			childPath := path
			if childPath != "/" {
				childPath += "/"
			}
			childPath += c.Name
			sub, err := s.collectSubtreeLocked(childPath)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
		}
	}
	return out, nil
}

// AddCheckpoint sets fileID's checkpoint-path. If size-bytes was unset
// it is committed now and the file becomes ready; if already set and
// different, fails SuspectedFileSize.
func (s *Store) AddCheckpoint(fileID int32, sizeBytes int64, checkpointPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.files[fileID]
	if !ok {
		return &errs.FileDoesNotExist{ID: fileID}
	}
	if f.Ready && f.SizeBytes != sizeBytes {
		return &errs.SuspectedFileSize{ID: fileID, Committed: f.SizeBytes, Reported: sizeBytes}
	}

	f.CheckpointPath = checkpointPath
	if !f.Ready {
		f.SizeBytes = sizeBytes
		f.Ready = true
	}
	return nil
}

// CommitSize is the cache-file-path analogue of AddCheckpoint: called
// when a worker reports it finished caching fileID at sizeBytes.
func (s *Store) CommitSize(fileID int32, sizeBytes int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.files[fileID]
	if !ok {
		return &errs.FileDoesNotExist{ID: fileID}
	}
	if f.Ready && f.SizeBytes != sizeBytes {
		return &errs.SuspectedFileSize{ID: fileID, Committed: f.SizeBytes, Reported: sizeBytes}
	}
	if !f.Ready {
		f.SizeBytes = sizeBytes
		f.Ready = true
	}
	return nil
}

// Get returns a copy of the File record for id.
func (s *Store) Get(id int32) (File, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.files[id]
	if !ok {
		return File{}, false
	}
	return *f, true
}

// GetByPath returns a copy of the File record at path.
func (s *Store) GetByPath(path string) (File, bool) {
	s.mu.Lock()
	id, ok := s.trie.Lookup(path)
	if !ok {
		s.mu.Unlock()
		return File{}, false
	}
	f := *s.files[id]
	s.mu.Unlock()
	return f, true
}

// FileID returns the id for path, or -1 if absent, matching
// user_getFileId's contract.
func (s *Store) FileID(path string) int32 {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.trie.Lookup(path)
	if !ok {
		return -1
	}
	return id
}

// RawTableID returns the id for path, or 0 if absent or not a raw
// table, matching user_getRawTableId's contract.
func (s *Store) RawTableID(path string) int32 {
	s.mu.Lock()
	id, ok := s.trie.Lookup(path)
	if !ok {
		s.mu.Unlock()
		return 0
	}
	_, isTable := s.rawTables[id]
	s.mu.Unlock()
	if !isTable {
		return 0
	}
	return id
}

// List returns the direct children of path as File copies, ordered
// lexicographically by name.
func (s *Store) List(path string) ([]File, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	children, err := s.trie.Children(path)
	if err != nil {
		return nil, err
	}
	out := make([]File, 0, len(children))
	for _, c := range children {
		out = append(out, *s.files[c.FileID])
	}
	return out, nil
}

// NumberOfFiles returns the count of direct children if path is a
// folder, or 1 if path is a file. Fails FileDoesNotExist if absent.
func (s *Store) NumberOfFiles(path string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.trie.Lookup(path)
	if !ok {
		normalized, err := pathtrie.Normalize(path)
		if err != nil {
			return 0, err
		}
		return 0, &errs.FileDoesNotExist{Path: normalized}
	}

	f := s.files[id]
	if !f.IsFolder {
		return 1, nil
	}
	children, err := s.trie.Children(path)
	if err != nil {
		return 0, err
	}
	return len(children), nil
}

// MarkPin sets or clears a file's pin flag.
func (s *Store) MarkPin(fileID int32, pin bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.files[fileID]
	if !ok {
		return &errs.FileDoesNotExist{ID: fileID}
	}
	f.Pin = pin
	return nil
}
