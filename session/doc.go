// Package session keeps the single active refresh session of every user in
// Redis.
//
// # Key layout
//
//	refresh-token:{userID}:{tokenID}   -> userID   (TTL = refresh lifetime)
//	current-refresh-token:{userID}     -> tokenID  (TTL = refresh lifetime)
//
// # Supersede protocol
//
// [Store.Save] reads the pointer, then commits "delete previous record, write
// new record, move pointer" as one MULTI/EXEC batch. Other readers observe
// either the old session or the new one, never both. The pointer read is not
// part of the transaction: two concurrent saves for the same user resolve as
// last-writer-wins and may leave the loser's record behind until its TTL
// elapses.
//
// # What this package must NOT do
//
//   - Verify or decode JWTs.
//   - Clear the pointer on logout; it expires or is overwritten.
package session
