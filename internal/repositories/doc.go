// Package repositories implements SQLite persistence for the offline snapshot cache.
//
// [SnapshotRepository] stores the last successful fetch of the song list and of each membership
// collection. Every save replaces the previous snapshot for that collection inside one
// transaction, so a reader never sees a half-written list. Row ids are UUIDs; list order is
// kept in a position column.
//
// snapshot_meta records when each collection was fetched and how many rows it held. A
// collection without a meta row has never been cached and loads fail with [shared.ErrNoSnapshot].
package repositories
