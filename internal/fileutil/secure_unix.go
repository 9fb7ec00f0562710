//go:build !windows

package fileutil

import "os"

// SecureMkdirAll creates path and any missing parents with perm.
func SecureMkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

// SecureChmod changes the mode of the named file.
func SecureChmod(path string, perm os.FileMode) error {
	return os.Chmod(path, perm)
}
