// Package models defines the catalog entities exchanged with the remote catalog service.
//
// The package contains:
//   - [Song] : Immutable reference data from the items collection
//   - [Entry] : A favorite or playlist record, a denormalized snapshot of a Song with its own ID
//   - [EntryInput] : The POST body used to create an Entry
//   - [Collection] : Which membership collection an Entry lives in (favorities or playlist)
//   - [ID] : Identifier compared as a string regardless of its JSON encoding
//
// Membership is decided by a linear scan comparing [Entry.ItemID] with [Song.ID] ([ContainsItem], [FindByItemID]).
// Search is a case-insensitive substring match across title, singer and genre ([FilterSongs]).
package models
