// ABOUTME: Version and product identification
// ABOUTME: Version is overridden at build time with -ldflags
package version

const (
	Product      = "SoundDrift Player"
	Manufacturer = "SoundDrift"
)

// Version is set at build time: -ldflags "-X .../internal/version.Version=1.2.3"
var Version = "0.1.0"

// String returns the product banner used by the version command
func String() string {
	return Product + " " + Version + " (" + Manufacturer + ")"
}
