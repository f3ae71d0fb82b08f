// Package action defines the inert commands widgets exchange through the
// display manager's action queue.
package action

import (
	"fmt"

	"piso/pisoos/lvm"
)

// Kind tags an Action.
type Kind uint8

const (
	KindNone Kind = iota
	KindOpenSizeMenu
	KindIncDriveSize
	KindDecDriveSize
	KindOpenFormatMenu
	KindCloseFormatMenu
	KindFormatDrive
	KindCreateDrive
	KindToggleDriveExport
	KindShowError
	KindDismissError
	KindFocusNext
	KindFocusPrev
	KindOpenDriveMenu
	KindCloseDriveMenu
	KindRemoveDrive
	KindRescanDrives
)

func (k Kind) String() string {
	switch k {
	case KindOpenSizeMenu:
		return "OpenSizeMenu"
	case KindIncDriveSize:
		return "IncDriveSize"
	case KindDecDriveSize:
		return "DecDriveSize"
	case KindOpenFormatMenu:
		return "OpenFormatMenu"
	case KindCloseFormatMenu:
		return "CloseFormatMenu"
	case KindFormatDrive:
		return "FormatDrive"
	case KindCreateDrive:
		return "CreateDrive"
	case KindToggleDriveExport:
		return "ToggleDriveExport"
	case KindShowError:
		return "ShowError"
	case KindDismissError:
		return "DismissError"
	case KindFocusNext:
		return "FocusNext"
	case KindFocusPrev:
		return "FocusPrev"
	case KindOpenDriveMenu:
		return "OpenDriveMenu"
	case KindCloseDriveMenu:
		return "CloseDriveMenu"
	case KindRemoveDrive:
		return "RemoveDrive"
	case KindRescanDrives:
		return "RescanDrives"
	default:
		return "None"
	}
}

// Action is a value; only the payload field matching Kind is meaningful.
type Action struct {
	Kind    Kind
	Volume  lvm.LogicalVolume // CreateDrive
	Name    string            // drive actions
	Message string            // ShowError
}

var (
	OpenSizeMenu    = Action{Kind: KindOpenSizeMenu}
	IncDriveSize    = Action{Kind: KindIncDriveSize}
	DecDriveSize    = Action{Kind: KindDecDriveSize}
	OpenFormatMenu  = Action{Kind: KindOpenFormatMenu}
	CloseFormatMenu = Action{Kind: KindCloseFormatMenu}
	FormatDrive     = Action{Kind: KindFormatDrive}
	DismissError    = Action{Kind: KindDismissError}
	FocusNext       = Action{Kind: KindFocusNext}
	FocusPrev       = Action{Kind: KindFocusPrev}
	RescanDrives    = Action{Kind: KindRescanDrives}
)

// CreateDrive hands a freshly formatted volume to the aggregate widget.
func CreateDrive(v lvm.LogicalVolume) Action {
	return Action{Kind: KindCreateDrive, Volume: v}
}

// ToggleDriveExport attaches or detaches the named volume as a USB LUN.
func ToggleDriveExport(name string) Action {
	return Action{Kind: KindToggleDriveExport, Name: name}
}

// OpenDriveMenu and CloseDriveMenu show and hide the named drive's menu.
func OpenDriveMenu(name string) Action {
	return Action{Kind: KindOpenDriveMenu, Name: name}
}

func CloseDriveMenu(name string) Action {
	return Action{Kind: KindCloseDriveMenu, Name: name}
}

// RemoveDrive ejects the named drive and deletes its volume.
func RemoveDrive(name string) Action {
	return Action{Kind: KindRemoveDrive, Name: name}
}

// ShowError asks the aggregate widget to surface a message.
func ShowError(msg string) Action {
	return Action{Kind: KindShowError, Message: msg}
}

func (a Action) String() string {
	switch a.Kind {
	case KindCreateDrive:
		return fmt.Sprintf("CreateDrive(%s)", a.Volume.Name)
	case KindToggleDriveExport, KindOpenDriveMenu, KindCloseDriveMenu, KindRemoveDrive:
		return fmt.Sprintf("%s(%s)", a.Kind, a.Name)
	case KindShowError:
		return fmt.Sprintf("ShowError(%q)", a.Message)
	default:
		return a.Kind.String()
	}
}
