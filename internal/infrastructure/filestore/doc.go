// Package filestore provides the whole-file JSON persistence shared by the
// command queue, message log and form stores.
//
// Writes go to a temporary file in the target directory and are renamed into
// place, so a crash mid-write leaves the previous document intact. Reads are
// tolerant: a missing or blank file decodes as "nothing stored", and a file
// that cannot be decoded is reported as ErrCorrupt so the caller can log it
// and fall back to an empty value.
//
// The package does no locking. Each store serialises its own
// read-modify-write cycles.
package filestore
