// Package web is the server-rendered browser UI.
//
// # Routes
//
//	GET  /                         → 302 to /songs
//	GET  /songs?q=term             → song cards with favorite/playlist toggles and <audio>
//	POST /songs/{id}/favorite      → toggle, then 303 back to /songs (q preserved)
//	POST /songs/{id}/playlist      → same against the playlist
//	GET  /favorities, /playlist    → numbered tables
//	POST /favorities/{itemId}/remove, /playlist/{itemId}/remove
//	GET  /static/*                 → embedded CSS/JS/SVG, minified at startup
//
// Every page re-fetches its data through [tasks.Library] before rendering. A failed fetch
// renders the previous state with an error banner; mutations report through a one-shot
// flash cookie.
//
// Exclusive playback lives in static/app.js: a capturing "play" listener pauses whichever
// <audio> element was playing before.
package web
