//go:build windows

package fileutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sys/windows"
)

func ownerOnly(perm os.FileMode) bool {
	return perm&0077 == 0
}

// lockDown replaces the DACL on path with a single protected entry granting
// the current user full access. Directories pass the entry on to children.
func lockDown(path string) error {
	user, err := windows.GetCurrentProcessToken().GetTokenUser()
	if err != nil {
		return fmt.Errorf("lookup user SID: %w", err)
	}

	inherit := uint32(windows.NO_INHERITANCE)
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		inherit = windows.CONTAINER_INHERIT_ACE | windows.OBJECT_INHERIT_ACE
	}

	acl, err := windows.ACLFromEntries([]windows.EXPLICIT_ACCESS{{
		AccessPermissions: windows.GENERIC_ALL,
		AccessMode:        windows.SET_ACCESS,
		Inheritance:       inherit,
		Trustee: windows.TRUSTEE{
			TrusteeForm:  windows.TRUSTEE_IS_SID,
			TrusteeType:  windows.TRUSTEE_IS_USER,
			TrusteeValue: windows.TrusteeValueFromSID(user.User.Sid),
		},
	}}, nil)
	if err != nil {
		return fmt.Errorf("build ACL: %w", err)
	}

	return windows.SetNamedSecurityInfo(path, windows.SE_FILE_OBJECT,
		windows.DACL_SECURITY_INFORMATION|windows.PROTECTED_DACL_SECURITY_INFORMATION,
		nil, nil, acl, nil)
}

// missingDirs lists path and each ancestor that does not exist yet,
// stopping at the first one that does.
func missingDirs(path string) []string {
	var dirs []string
	for p := filepath.Clean(path); p != "." && p != filepath.Dir(p); p = filepath.Dir(p) {
		if _, err := os.Stat(p); err == nil {
			break
		}
		dirs = append(dirs, p)
	}
	return dirs
}

func warnDACL(path string, err error) {
	slog.Warn("could not restrict access to current user", "path", path, "error", err)
}

// SecureMkdirAll creates path and any missing parents with perm. For
// owner-only modes every directory it creates is locked to the current user.
func SecureMkdirAll(path string, perm os.FileMode) error {
	var created []string
	if ownerOnly(perm) {
		created = missingDirs(path)
	}
	if err := os.MkdirAll(path, perm); err != nil {
		return err
	}
	for _, dir := range created {
		if err := lockDown(dir); err != nil {
			warnDACL(dir, err)
		}
	}
	return nil
}

// SecureChmod changes the mode of the named file and, for owner-only modes,
// locks it to the current user. A DACL failure is only logged.
func SecureChmod(path string, perm os.FileMode) error {
	if err := os.Chmod(path, perm); err != nil {
		return err
	}
	if ownerOnly(perm) {
		if err := lockDown(path); err != nil {
			warnDACL(path, err)
		}
	}
	return nil
}
