package session

// StatusKind styles a status message.
type StatusKind string

const (
	StatusNormal StatusKind = "normal"
	StatusActive StatusKind = "active"
	StatusError  StatusKind = "error"
)

// Status is the single line shown to the user after each operation.
type Status struct {
	Text string
	Kind StatusKind
}

// ToggleLabel is the caption and style of the start/stop control.
type ToggleLabel struct {
	Text  string
	Style string
}

var (
	StartLabel = ToggleLabel{Text: "Start Backend Webcam", Style: "primary"}
	StopLabel  = ToggleLabel{Text: "Stop Backend Webcam", Style: "danger"}
)

// View is the rendering surface. Poll ticks render from their own goroutine,
// so implementations must be safe for concurrent use.
type View interface {
	ShowStream(url string)
	HideStream()
	SetWord(word string)
	SetStatus(s Status)
	SetToggleLabel(l ToggleLabel)
}

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

var (
	// AutoConfirm accepts every prompt.
	AutoConfirm = ConfirmFunc(func(string) bool { return true })
	// NeverConfirm declines every prompt.
	NeverConfirm = ConfirmFunc(func(string) bool { return false })
)
