// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ide

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the IDE bindings.
type KeyMap struct {
	Save     key.Binding
	Run      key.Binding
	Suggest  key.Binding
	Copy     key.Binding
	NewFile  key.Binding
	Open     key.Binding
	Search   key.Binding
	Refactor key.Binding
	Preview  key.Binding
	Focus    key.Binding
	Up       key.Binding
	Down     key.Binding
	Accept   key.Binding
	Dismiss  key.Binding
	Quit     key.Binding
}

// DefaultKeyMap returns the default IDE bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Save:     key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("C-s", "save")),
		Run:      key.NewBinding(key.WithKeys("ctrl+r", "f5"), key.WithHelp("C-r", "run")),
		Suggest:  key.NewBinding(key.WithKeys("ctrl+g"), key.WithHelp("C-g", "AI suggest")),
		Copy:     key.NewBinding(key.WithKeys("ctrl+y"), key.WithHelp("C-y", "copy")),
		NewFile:  key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("C-n", "new file")),
		Open:     key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("C-o", "project")),
		Search:   key.NewBinding(key.WithKeys("ctrl+f"), key.WithHelp("C-f", "search")),
		Refactor: key.NewBinding(key.WithKeys("ctrl+e"), key.WithHelp("C-e", "refactor")),
		Preview:  key.NewBinding(key.WithKeys("ctrl+p"), key.WithHelp("C-p", "preview")),
		Focus:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("Tab", "files/editor")),
		Up:       key.NewBinding(key.WithKeys("up")),
		Down:     key.NewBinding(key.WithKeys("down")),
		Accept:   key.NewBinding(key.WithKeys("enter", "tab")),
		Dismiss:  key.NewBinding(key.WithKeys("esc")),
		Quit:     key.NewBinding(key.WithKeys("ctrl+c", "ctrl+q"), key.WithHelp("C-q", "quit")),
	}
}

// ShortHelp returns the bindings shown in the footer.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Save, k.Run, k.Suggest, k.Copy, k.NewFile, k.Open, k.Search, k.Refactor, k.Preview, k.Focus, k.Quit}
}
