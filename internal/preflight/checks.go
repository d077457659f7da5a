package preflight

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"golang.org/x/sys/unix"
)

// Access is the permission set a directory check requires.
type Access uint32

const (
	// ReadOnly suits source roots, which may be write-protected cards.
	ReadOnly Access = unix.R_OK | unix.X_OK
	// ReadWrite suits target roots and the catalog directory.
	ReadWrite Access = unix.R_OK | unix.W_OK | unix.X_OK
)

func (a Access) String() string {
	if a&unix.W_OK != 0 {
		return "read/write"
	}
	return "read"
}

// CheckDirectoryAccess verifies that the directory exists and grants access.
func CheckDirectoryAccess(name, path string, access Access) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, uint32(access)); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s ok)", path, access)}
}

// CheckCatalog verifies the catalog directory is writable and that no other
// process holds the catalog lock. It never opens the database itself.
func CheckCatalog(name, path string) Result {
	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		// Created on first run.
		return checkCreatable(name, dir)
	}
	if dirCheck := CheckDirectoryAccess(name, dir, ReadWrite); !dirCheck.Passed {
		return dirCheck
	}

	lock := flock.New(path + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: lock: %v)", path, err)}
	}
	if !ok {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: in use by another archivist process)", path)}
	}
	_ = lock.Unlock()

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", path)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (unlocked)", path)}
}

// checkCreatable walks up to the nearest existing ancestor of dir and checks
// it is writable.
func checkCreatable(name, dir string) Result {
	for parent := dir; ; {
		next := filepath.Dir(parent)
		if next == parent {
			break
		}
		parent = next
		if _, err := os.Stat(parent); err == nil {
			if err := unix.Access(parent, uint32(ReadWrite)); err != nil {
				return Result{Name: name, Detail: fmt.Sprintf("%s (error: cannot create below %s: %v)", dir, parent, err)}
			}
			return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", dir)}
		}
	}
	return Result{Name: name, Detail: fmt.Sprintf("%s (error: no existing parent)", dir)}
}
