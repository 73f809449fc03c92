// Package ua condenses a User-Agent header into a handful of log fields.
//
// The trace middleware attaches these to every request span so operators
// can tell browsers, bots, and scripted health probes apart without reading
// raw header strings.  Only this file imports uasurfer.
package ua

import (
	"fmt"
	"strconv"

	surfer "github.com/avct/uasurfer"
	"go.uber.org/zap"
)

// Agent is the parsed form of a User-Agent header.
//
// Example (Chrome on macOS):
//
//	Browser   "Chrome"
//	Version   "125.0.6422"
//	OS        "MacOSX"
//	OSVersion "14.4"
//	Device    "desktop"
type Agent struct {
	Browser   string
	Version   string
	OS        string
	OSVersion string
	Device    string // desktop, mobile, tablet, or other
	IsBot     bool
}

// Parse never fails; unrecognised agents come back as "Unknown" with
// Device "other".
func Parse(raw string) Agent {
	u := surfer.Parse(raw)

	a := Agent{
		Browser:   u.Browser.Name.StringTrimPrefix(),
		Version:   version(u.Browser.Version),
		OS:        u.OS.Name.StringTrimPrefix(),
		OSVersion: version(u.OS.Version),
		IsBot:     u.IsBot(),
	}

	switch u.DeviceType {
	case surfer.DeviceComputer:
		a.Device = "desktop"
	case surfer.DeviceTablet:
		a.Device = "tablet"
	case surfer.DevicePhone, surfer.DeviceWearable:
		a.Device = "mobile"
	default:
		a.Device = "other"
	}
	return a
}

// Fields renders a as zap fields under the "ua." prefix.  Empty versions
// are skipped.
func (a Agent) Fields() []zap.Field {
	fs := []zap.Field{
		zap.String("ua.browser", a.Browser),
		zap.String("ua.os", a.OS),
		zap.String("ua.device", a.Device),
		zap.Bool("ua.bot", a.IsBot),
	}
	if a.Version != "" {
		fs = append(fs, zap.String("ua.browser_version", a.Version))
	}
	if a.OSVersion != "" {
		fs = append(fs, zap.String("ua.os_version", a.OSVersion))
	}
	return fs
}

// version trims trailing zero components: 17.0.0 -> "17", 17.3.0 -> "17.3".
func version(v surfer.Version) string {
	switch {
	case v.Major == 0 && v.Minor == 0 && v.Patch == 0:
		return ""
	case v.Patch != 0:
		return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	case v.Minor != 0:
		return fmt.Sprintf("%d.%d", v.Major, v.Minor)
	}
	return strconv.Itoa(v.Major)
}
