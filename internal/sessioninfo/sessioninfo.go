// Package sessioninfo is an optional dbus-backed enrichment for
// --dump-info, adapted from the teacher's xdg-desktop-portal ScreenCast
// client (internal/xdgportal, screencast/screencast.go). It answers one
// question: what does the desktop portal say about screen-capture
// capability on this session bus? When no session bus or portal is
// reachable, the dump-info report in cmd/screenrec prints a single
// "portal enrichment unavailable" line after the device output and still
// succeeds, since portal enrichment is cosmetic, not load-bearing
// (spec.md §1 scopes device discovery itself out of the core).
package sessioninfo

import (
	"fmt"

	"github.com/godbus/dbus/v5"
)

const (
	objectName        = "org.freedesktop.portal.Desktop"
	objectPath        = "/org/freedesktop/portal/desktop"
	propertiesGetName = "org.freedesktop.DBus.Properties.Get"
	interfaceName     = "org.freedesktop.portal.ScreenCast"
)

// Capabilities is the portal-reported subset of ScreenCast information
// relevant to a --dump-info report.
type Capabilities struct {
	AvailableSourceTypes uint32
	AvailableCursorModes uint32
	Version              uint32
}

// SourceType bits, mirroring the portal's ScreenCast.AvailableSourceTypes.
const (
	SourceTypeMonitor uint32 = 1 << 0
	SourceTypeWindow  uint32 = 1 << 1
	SourceTypeVirtual uint32 = 1 << 2
)

// CursorMode bits, mirroring the portal's ScreenCast.AvailableCursorModes.
const (
	CursorModeHidden   uint32 = 1 << 0
	CursorModeEmbedded uint32 = 1 << 1
	CursorModeMetadata uint32 = 1 << 2
)

// Query reads the ScreenCast portal's capability properties over the
// session bus. Any failure (no bus, no portal, wrong types) is returned
// as a plain error; callers treat it as "enrichment unavailable", not as
// a fatal condition.
func Query() (Capabilities, error) {
	sourceTypes, err := getUint32Property("AvailableSourceTypes")
	if err != nil {
		return Capabilities{}, err
	}
	cursorModes, err := getUint32Property("AvailableCursorModes")
	if err != nil {
		return Capabilities{}, err
	}
	version, err := getUint32Property("version")
	if err != nil {
		return Capabilities{}, err
	}

	return Capabilities{
		AvailableSourceTypes: sourceTypes,
		AvailableCursorModes: cursorModes,
		Version:              version,
	}, nil
}

func getUint32Property(property string) (uint32, error) {
	value, err := getProperty(interfaceName, property)
	if err != nil {
		return 0, fmt.Errorf("sessioninfo: get %s: %w", property, err)
	}

	result, ok := value.(uint32)
	if !ok {
		return 0, fmt.Errorf("sessioninfo: property %s returned unexpected type %T", property, value)
	}
	return result, nil
}

// getProperty reads one property off the portal's
// org.freedesktop.DBus.Properties interface. This is the only dbus call
// the portal enrichment needs; it is not a general-purpose dbus helper.
func getProperty(iface, property string) (any, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, err
	}
	obj := conn.Object(objectName, dbus.ObjectPath(objectPath))
	call := obj.Call(propertiesGetName, 0, iface, property)
	if call.Err != nil {
		return nil, call.Err
	}

	var value any
	if err := call.Store(&value); err != nil {
		return nil, err
	}
	return value, nil
}

// Describe renders capability flags as a short comma-joined label list,
// for the dump-info textual report; an empty Capabilities value renders
// as "unknown".
func (c Capabilities) Describe() string {
	if c.AvailableSourceTypes == 0 && c.AvailableCursorModes == 0 && c.Version == 0 {
		return "unknown"
	}

	types := flagLabels(c.AvailableSourceTypes, []flagLabel{
		{SourceTypeMonitor, "monitor"},
		{SourceTypeWindow, "window"},
		{SourceTypeVirtual, "virtual"},
	})
	cursors := flagLabels(c.AvailableCursorModes, []flagLabel{
		{CursorModeHidden, "hidden"},
		{CursorModeEmbedded, "embedded"},
		{CursorModeMetadata, "metadata"},
	})

	return fmt.Sprintf("portal v%d, sources=[%s], cursor-modes=[%s]", c.Version, joinOrNone(types), joinOrNone(cursors))
}

type flagLabel struct {
	bit   uint32
	label string
}

func flagLabels(value uint32, labels []flagLabel) []string {
	var out []string
	for _, l := range labels {
		if value&l.bit != 0 {
			out = append(out, l.label)
		}
	}
	return out
}

func joinOrNone(labels []string) string {
	if len(labels) == 0 {
		return "none"
	}
	out := labels[0]
	for _, l := range labels[1:] {
		out += "," + l
	}
	return out
}
