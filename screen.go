package cms

import (
	"errors"
	"io/fs"
	"os"
)

// Screen is a display that may have an ICC profile attached to it
type Screen interface {
	// ICCProfile returns the profile data, nil when no profile is attached
	ICCProfile() ([]byte, error)
}

// ScreenProfileFile is a Screen whose profile is kept in a file. A missing
// file means the screen has no profile.
type ScreenProfileFile string

func (s ScreenProfileFile) ICCProfile() ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	data, err := os.ReadFile(string(s))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return data, err
}

// GetScreenProfile returns the profile attached to screen or nil if there is
// none
func GetScreenProfile(screen Screen) (*Profile, error) {
	if screen == nil {
		return nil, errorf(ErrOutOfRange, "no screen specified")
	}
	data, err := screen.ICCProfile()
	if err != nil {
		return nil, errorf(err, "cannot read the profile of the screen")
	}
	if len(data) == 0 {
		return nil, nil
	}
	return NewProfile(data)
}
