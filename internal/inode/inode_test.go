package inode

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tachyoncache/tachyon/internal/clock"
	"github.com/tachyoncache/tachyon/internal/errs"
)

func newTestStore() *Store {
	return New(clock.NewSimulatedClock(time.Unix(1700000000, 0)))
}

func TestCreateFile_AutoCreatesAncestors(t *testing.T) {
	s := newTestStore()

	id, err := s.CreateFile("/a/b/c.dat")
	require.NoError(t, err)
	assert.Equal(t, int32(3), id, "ids 1 and 2 should go to /a and /a/b")

	dirID := s.FileID("/a")
	assert.NotEqual(t, int32(-1), dirID)
	f, ok := s.Get(dirID)
	require.True(t, ok)
	assert.True(t, f.IsFolder)

	file, ok := s.Get(id)
	require.True(t, ok)
	assert.False(t, file.Ready)
	assert.False(t, file.IsFolder)
	assert.Equal(t, "c.dat", file.Name)
}

func TestCreateFile_FailsAlreadyExist(t *testing.T) {
	s := newTestStore()
	_, err := s.CreateFile("/a.dat")
	require.NoError(t, err)

	_, err = s.CreateFile("/a.dat")
	require.Error(t, err)
	var target *errs.FileAlreadyExist
	assert.ErrorAs(t, err, &target)
}

func TestMkdir_FailsAlreadyExist(t *testing.T) {
	s := newTestStore()
	_, err := s.Mkdir("/a")
	require.NoError(t, err)

	_, err = s.Mkdir("/a")
	require.Error(t, err)
	var target *errs.FileAlreadyExist
	assert.ErrorAs(t, err, &target)
}

func TestCreateRawTable_CreatesColumnFolders(t *testing.T) {
	s := newTestStore()

	id, err := s.CreateRawTable("/tables/t1", 3, []byte("meta"))
	require.NoError(t, err)

	children, err := s.List("/tables/t1")
	require.NoError(t, err)
	require.Len(t, children, 3)
	names := []string{children[0].Name, children[1].Name, children[2].Name}
	assert.Equal(t, []string{"0", "1", "2"}, names)

	rt, ok := s.RawTable(id)
	require.True(t, ok)
	assert.Equal(t, 3, rt.Columns)
	assert.Equal(t, []byte("meta"), rt.Metadata)
}

func TestCreateRawTable_FailsBadColumnCount(t *testing.T) {
	s := newTestStore()

	_, err := s.CreateRawTable("/tables/t1", 0, nil)
	require.Error(t, err)
	var target *errs.TableColumn
	assert.ErrorAs(t, err, &target)

	_, err = s.CreateRawTable("/tables/t2", MaxColumns+1, nil)
	require.Error(t, err)
	assert.ErrorAs(t, err, &target)
}

func TestUpdateRawTableMetadata(t *testing.T) {
	s := newTestStore()
	id, err := s.CreateRawTable("/t", 1, []byte("old"))
	require.NoError(t, err)

	require.NoError(t, s.UpdateRawTableMetadata(id, []byte("new")))
	rt, ok := s.RawTable(id)
	require.True(t, ok)
	assert.Equal(t, []byte("new"), rt.Metadata)

	err = s.UpdateRawTableMetadata(9999, []byte("x"))
	require.Error(t, err)
	var target *errs.TableDoesNotExist
	assert.ErrorAs(t, err, &target)
}

func TestAddCheckpoint_CommitsSizeOnce(t *testing.T) {
	s := newTestStore()
	id, err := s.CreateFile("/a.dat")
	require.NoError(t, err)

	require.NoError(t, s.AddCheckpoint(id, 100, "/ufs/a.dat"))
	f, _ := s.Get(id)
	assert.True(t, f.Ready)
	assert.Equal(t, int64(100), f.SizeBytes)
	assert.Equal(t, "/ufs/a.dat", f.CheckpointPath)

	err = s.AddCheckpoint(id, 200, "/ufs/a.dat")
	require.Error(t, err)
	var target *errs.SuspectedFileSize
	assert.ErrorAs(t, err, &target)
}

func TestRename_PreservesFileIDAndMovesDescendants(t *testing.T) {
	s := newTestStore()
	dirID, err := s.Mkdir("/a")
	require.NoError(t, err)
	fileID, err := s.CreateFile("/a/b.dat")
	require.NoError(t, err)

	require.NoError(t, s.Rename("/a", "/z"))

	f, ok := s.Get(dirID)
	require.True(t, ok)
	assert.Equal(t, "/z", f.Path)

	child, ok := s.Get(fileID)
	require.True(t, ok)
	assert.Equal(t, "/z/b.dat", child.Path)

	assert.Equal(t, int32(-1), s.FileID("/a/b.dat"))
	assert.Equal(t, fileID, s.FileID("/z/b.dat"))
}

func TestDelete_NonRecursiveFailsOnNonEmptyFolder(t *testing.T) {
	s := newTestStore()
	dirID, err := s.Mkdir("/a")
	require.NoError(t, err)
	_, err = s.CreateFile("/a/b.dat")
	require.NoError(t, err)

	_, err = s.Delete(dirID, false)
	require.Error(t, err)
	var target *errs.InvalidPath
	assert.ErrorAs(t, err, &target)

	deleted, err := s.Delete(dirID, true)
	require.NoError(t, err)
	assert.Len(t, deleted, 2)
	assert.Equal(t, int32(-1), s.FileID("/a"))
}

func TestFileID_ReturnsNegativeOneWhenAbsent(t *testing.T) {
	s := newTestStore()
	assert.Equal(t, int32(-1), s.FileID("/nope"))
}

func TestRawTableID_ReturnsZeroForNonTable(t *testing.T) {
	s := newTestStore()
	id, err := s.Mkdir("/plain")
	require.NoError(t, err)
	_ = id
	assert.Equal(t, int32(0), s.RawTableID("/plain"))
	assert.Equal(t, int32(0), s.RawTableID("/nope"))
}

func TestNumberOfFiles_CountsDirectChildren(t *testing.T) {
	s := newTestStore()
	_, err := s.Mkdir("/a")
	require.NoError(t, err)
	_, err = s.CreateFile("/a/1.dat")
	require.NoError(t, err)
	_, err = s.CreateFile("/a/2.dat")
	require.NoError(t, err)

	n, err := s.NumberOfFiles("/a")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
