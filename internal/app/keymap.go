package app

// Key binding constants used in handleKey. Playback keys live in
// playback.KeyMap.
const (
	KeyQuit         = "q"
	KeyCtrlC        = "ctrl+c"
	KeyTab          = "tab"
	KeyUp           = "up"
	KeyDown         = "down"
	KeyJ            = "j"
	KeyK            = "k"
	KeyEnter        = "enter"
	KeyEsc          = "esc"
	KeyDelete       = "d"
	KeyCustom       = "o"
	KeyGameClock    = "g"
	KeyExportName   = "n"
	KeyOpen         = "O"
	KeySelectRegion = "r"
	KeyReadNow      = "R"
	KeyAutoRead     = "a"
	KeyCycleTeam    = "t"
	KeyExportJSON   = "x"
	KeyExportCSV    = "X"
	KeyExportSQLite = "S"
	KeyCopyCSV      = "y"
)

// actionIndex maps the digit keys 1..9 to action positions.
func actionIndex(key string) (int, bool) {
	if len(key) != 1 || key[0] < '1' || key[0] > '9' {
		return 0, false
	}
	return int(key[0] - '1'), true
}
