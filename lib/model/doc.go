// Package model defines the documents persisted by the document store.
//
// Every persisted value is one of five kinds: a Profile (one per owner) or a
// record of kind Application, Exam, Activity or Attachment (many per owner).
// The Document interface is sealed, so a type switch over the five concrete
// types is exhaustive and the store can dispatch on kind without reflection.
//
// Owners are addressed by their owner key, the case-normalized callsign
// returned by NormalizeOwnerKey. Documents never store their owner key; the
// OwnerKey field is only populated on values returned by cross-owner listings.
package model
