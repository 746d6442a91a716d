/*
Package cms provides color management for images: ICC profiles, tone curves,
color temperature helpers and transforms that convert pixel buffers between
the color spaces of a chain of profiles.

Profiles, tone curves and transforms hold engine resources and must be
closed when no longer needed. The exception is the shared sRGB profile
returned by CreateStandardRgb, for which Close does nothing.
*/
package cms

import "fmt"

type LibraryVersion struct {
	Major, Minor, Patch uint
}

func (v LibraryVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

var Version = LibraryVersion{0, 5, 0}
