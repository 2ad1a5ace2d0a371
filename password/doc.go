// Package password hashes and matches user passwords.
//
// Two encodings are understood:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>   (Argon2id, PHC)
//	$2a$<cost>$<salt+hash>                                          (bcrypt)
//
// New hashes are produced with Argon2id. [Matcher] dispatches on the stored
// prefix so users imported with bcrypt hashes keep working; [Matcher.NeedsRehash]
// tells the caller when a stored hash should be replaced after a successful
// login.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords.
//   - Import any other otpauth package.
//   - Log plaintext passwords.
package password
