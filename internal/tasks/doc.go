// Package tasks implements the library engine shared by the terminal UI, the browser UI and the CLI.
//
// # Library
//
// [Library] holds the last fetched songs, favorites and playlist and applies membership mutations:
//
//  1. [Library.Load] : fetch all three collections concurrently (errgroup)
//  2. [Library.Toggle] : remove when member, add otherwise
//  3. [Library.Add] : POST a snapshot of the song, then re-fetch the collection
//  4. [Library.Remove] : look up the entry by itemId, DELETE by entry id, then re-fetch
//
// A failed fetch never replaces state. Mutations for a (collection, song) pair that is already
// in flight are rejected with [shared.ErrMutationPending] before any request is sent.
//
// # Snapshot Caching
//
// The optional [SnapshotCacher] interface receives every successful fetch. When the first load
// fails the cached snapshot is served read-only and [Library.Offline] reports true.
//
// # Progress Reporting
//
// Long operations ([Library.Load], [Dump], [Export]) send [ProgressUpdate] values on an optional
// channel. Updates use select with default so reporting never blocks.
package tasks
