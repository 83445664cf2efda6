// Package snapshot rotates the output of a SyncRoot between runs.
//
// A run starts with Rotate, which renames the previous live tree to the
// shadow location and returns a Snapshot handle. During the run the engine
// writes a fresh live tree and moves files it can prove unchanged from the
// shadow back into it with Claim. The run ends with Discard, which drops
// whatever was not reclaimed, or with Restore when the root page could not
// be fetched, which puts the previous tree back.
//
// At no point are both the live and the shadow tree missing.
package snapshot
