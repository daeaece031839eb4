package tui

// Key bindings used in handleKey. Typing mode takes letters as text, so only
// control keys act there.
const (
	KeyQuit      = "q"
	KeyCtrlC     = "ctrl+c"
	KeyHangUp    = "esc"
	KeyEnter     = "enter"
	KeyBackspace = "backspace"
	KeySpace     = " "
	KeyTab       = "tab"
	KeySkip      = "s"
	KeyType      = "t"
	KeyReplay    = "r"
	KeyEdit      = "e"
	KeyConfirm   = "y"
	KeySave      = "s"
	KeyNewCall   = "n"
)
