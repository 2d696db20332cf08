// Package ui implements the interactive terminal interface using bubbletea's Elm architecture.
//
// The shell has three tabs, switched with tab or 1/2/3:
//  1. [SongsTab] : the catalog with a search box and favorite/playlist toggles
//  2. [FavoritesTab] : favorites as a numbered table with remove
//  3. [PlaylistTab] : the playlist, same as favorites
//
// Activating a tab re-fetches its data through [tasks.Library] and replaces the [playback.Deck],
// so audio from the tab being left stops. Every network call runs as a [tea.Cmd]; results arrive
// as [Msg] values and failures end up in the status line while the previous rows stay on screen.
//
// Keyboard navigation uses vim-style bindings (j/k) with contextual help rendered by charmbracelet/bubbles/help.
package ui
