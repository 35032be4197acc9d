// Package pathutil collects the filesystem primitives shared by the cache,
// selections, and registry layers: existence probes, atomic file writes, and
// directory copy/rename-with-fallback, all needed because package data
// lives on disk across process boundaries and must survive a crash
// mid-write without corrupting a tier.
package pathutil

import (
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/pkg/errors"
)

// IsRegular reports whether name exists and is a regular file.
func IsRegular(name string) (bool, error) {
	fi, err := os.Stat(name)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if fi.IsDir() {
		return false, errors.Errorf("%q is a directory, should be a file", name)
	}
	return true, nil
}

// IsDir reports whether name exists and is a directory.
func IsDir(name string) (bool, error) {
	fi, err := os.Stat(name)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !fi.IsDir() {
		return false, errors.Errorf("%q is not a directory", name)
	}
	return true, nil
}

// IsEmptyDirOrNotExist reports whether name is a directory with no entries,
// or does not exist at all. It errors if name is a file.
func IsEmptyDirOrNotExist(name string) (bool, error) {
	files, err := ioutil.ReadDir(name)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, err
	}
	return len(files) == 0, nil
}

// WriteAtomic writes b to path by first writing to a sibling temp file and
// renaming over the destination, so a concurrent reader (or a crash
// mid-write) never observes a partial file. This is how every persistent
// cache manifest (local-packages.json, overrides.json, pin files) is
// written.
func WriteAtomic(path string, b []byte) error {
	dir := filepath.Dir(path)
	tmp, err := ioutil.TempFile(dir, ".anvil-tmp-")
	if err != nil {
		return errors.Wrapf(err, "creating temp file in %s", dir)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrapf(err, "writing temp file %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "closing temp file %s", tmpName)
	}

	if err := renameWithFallback(tmpName, path); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "renaming %s to %s", tmpName, path)
	}
	return nil
}

// renameWithFallback attempts to rename a file or directory, falling back to
// a copy-then-remove when the rename crosses a filesystem boundary
// (syscall.EXDEV), which a straight os.Rename cannot cross.
func renameWithFallback(src, dest string) error {
	fi, err := os.Lstat(src)
	if err != nil {
		return err
	}

	if runtime.GOOS == "windows" && fi.IsDir() {
		if err := CopyDir(src, dest); err != nil {
			return err
		}
		return os.RemoveAll(src)
	}

	err = os.Rename(src, dest)
	if err == nil {
		return nil
	}

	terr, ok := err.(*os.LinkError)
	if !ok {
		return err
	}

	var cerr error
	switch {
	case terr.Err == syscall.EXDEV:
		if fi.IsDir() {
			cerr = CopyDir(src, dest)
		} else {
			cerr = CopyFile(src, dest)
		}
	case runtime.GOOS == "windows":
		if noerr, ok := terr.Err.(syscall.Errno); ok && noerr == 0x11 {
			cerr = CopyFile(src, dest)
		}
	default:
		return terr
	}

	if cerr != nil {
		return cerr
	}
	return os.RemoveAll(src)
}

// CopyDir recursively copies src's contents into dest, preserving file
// modes and skipping symlinks (a package's cached tree is always copied by
// value into a new tier, never by reference).
func CopyDir(src, dest string) error {
	fi, err := os.Lstat(src)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dest, fi.Mode()); err != nil {
		return err
	}

	dir, err := os.Open(src)
	if err != nil {
		return err
	}
	defer dir.Close()

	objects, err := dir.Readdir(-1)
	if err != nil {
		return err
	}

	for _, obj := range objects {
		if obj.Mode()&os.ModeSymlink != 0 {
			continue
		}

		srcfile := filepath.Join(src, obj.Name())
		destfile := filepath.Join(dest, obj.Name())

		if obj.IsDir() {
			if err := CopyDir(srcfile, destfile); err != nil {
				return err
			}
			continue
		}
		if err := CopyFile(srcfile, destfile); err != nil {
			return err
		}
	}
	return nil
}

// CopyFile copies src to dest, preserving the source's permission bits.
func CopyFile(src, dest string) error {
	srcfile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcfile.Close()

	destfile, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer destfile.Close()

	if _, err := io.Copy(destfile, srcfile); err != nil {
		return err
	}

	srcinfo, err := os.Stat(src)
	if err != nil {
		return err
	}
	return os.Chmod(dest, srcinfo.Mode())
}
