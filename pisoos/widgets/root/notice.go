package root

import (
	"piso/pisoos/action"
	"piso/pisoos/bitmap"
	"piso/pisoos/controller"
	"piso/pisoos/display"
	"piso/pisoos/font"
)

// Notice is a modal message box dismissed with Select.
type Notice struct {
	window   display.WindowID
	message  string
	returnTo display.WindowID
}

func newNotice(m *display.Manager, msg string, returnTo display.WindowID) (*Notice, error) {
	id, err := m.AddChild(display.Fixed(0, 0))
	if err != nil {
		return nil, err
	}
	return &Notice{window: id, message: msg, returnTo: returnTo}, nil
}

func (n *Notice) WindowID() display.WindowID { return n.window }
func (n *Notice) Message() string            { return n.message }

func (n *Notice) Render(display.Window) (*bitmap.Bitmap, error) {
	body := bitmap.New(0, 0)
	body.Blit(font.RenderText("Error"), 0, 0)
	body.Blit(font.RenderText(n.message), 0, font.LineHeight)
	body.Blit(font.RenderText("Select: OK"), 0, font.LineHeight*3)
	return bitmap.WithBorder(body, bitmap.BorderBox, 1), nil
}

func (n *Notice) OnEvent(ev controller.Event) (bool, []action.Action, error) {
	if ev == controller.Select {
		return true, []action.Action{action.DismissError}, nil
	}
	return true, nil, nil
}

func (n *Notice) DoAction(*display.Manager, action.Action) (bool, []action.Action, error) {
	return false, nil, nil
}

func (n *Notice) Children() []display.Widget { return nil }
