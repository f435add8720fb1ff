// Package locate finds one shared drive item by drive ID, parent directory,
// and file name. It is pure: no I/O, no logging, no state.
package locate

import (
	"errors"
	"fmt"
	"path"
)

// Target errors. ParseTarget only checks for presence; whether the drive or
// path exists is answered by Find.
var (
	ErrEmptyDriveID = errors.New("locate: drive ID must not be empty")
	ErrEmptyPath    = errors.New("locate: path must not be empty")
	ErrRootPath     = errors.New("locate: path must name an item, not the drive root")
)

// Target identifies the item to find.
type Target struct {
	DriveID   string
	Directory string // rooted at "/", e.g. "/Reports/2025"
	FileName  string
}

// ParseTarget splits fullPath into a directory and a base name. The path is
// cleaned and rooted at "/", so "Reports/q1.xlsx", "/Reports/q1.xlsx" and
// "/Reports//./q1.xlsx" all yield the same Target.
func ParseTarget(driveID, fullPath string) (Target, error) {
	var errs []error

	if driveID == "" {
		errs = append(errs, ErrEmptyDriveID)
	}

	if fullPath == "" {
		errs = append(errs, ErrEmptyPath)
	}

	if err := errors.Join(errs...); err != nil {
		return Target{}, err
	}

	clean := path.Clean("/" + fullPath)
	if clean == "/" {
		return Target{}, fmt.Errorf("%w: %q", ErrRootPath, fullPath)
	}

	return Target{
		DriveID:   driveID,
		Directory: path.Dir(clean),
		FileName:  path.Base(clean),
	}, nil
}

// Path returns the target's full path within its drive.
func (t Target) Path() string {
	return path.Join(t.Directory, t.FileName)
}

func (t Target) String() string {
	return t.DriveID + ":" + t.Path()
}
