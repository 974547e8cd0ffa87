package browser

import (
	"fmt"

	"github.com/battlewithbytes/migration-console/internal/lifecycle"
)

// KeyMap defines the keyboard shortcuts displayed in the footer.
type KeyMap struct {
	Up       string
	Down     string
	PrevPage string
	NextPage string
	PerPage  string
	Unsort   string
	Refresh  string
	Quit     string
	Actions  map[lifecycle.Action]string
}

// DefaultKeyMap returns the default shortcut mapping. Number keys 1-9 sort
// by the matching column.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:       "up",
		Down:     "down",
		PrevPage: "left",
		NextPage: "right",
		PerPage:  "p",
		Unsort:   "0",
		Refresh:  "R",
		Quit:     "q",
		Actions: map[lifecycle.Action]string{
			lifecycle.ActionStart:  "s",
			lifecycle.ActionStop:   "x",
			lifecycle.ActionReset:  "z",
			lifecycle.ActionCancel: "c",
			lifecycle.ActionRetry:  "y",
			lifecycle.ActionDelete: "d",
		},
	}
}

// action returns the lifecycle action bound to key among offered.
func (k KeyMap) action(key string, offered []lifecycle.Action) (lifecycle.Action, bool) {
	for _, a := range offered {
		if k.Actions[a] == key {
			return a, true
		}
	}
	return "", false
}

// HelpLine renders the footer help text.
func (k KeyMap) HelpLine(offered []lifecycle.Action) string {
	line := fmt.Sprintf("[1-9] sort  [%s] unsort  [←/→] page  [%s] per page  [%s] refresh  [%s] quit",
		k.Unsort, k.PerPage, k.Refresh, k.Quit)
	for _, a := range offered {
		line += fmt.Sprintf("  [%s] %s", k.Actions[a], a)
	}
	return line
}
