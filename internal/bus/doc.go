// Package bus owns in-process value distribution between acquisition loops
// and their consumers.
//
// Ownership boundary:
// - typed, named topics with a single conflated slot each
// - independent per-consumer read cursors
// - the registry that creates topics once at startup
//
// A topic keeps only the most recent value. Publish never blocks and always
// overwrites; a slow reader skips whatever it missed and sees the newest value
// on its next read. The bus carries no liveness signal: a producer that stops
// looks the same as one that has nothing new to say.
package bus
