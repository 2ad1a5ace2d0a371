// Package userstore implements otpauth.UserProvider.
//
// # Implementations
//
//   - [Postgres]: pgxpool-backed store over the users table, with rows
//     scanned by scany. [Migrate] applies the embedded goose migrations.
//   - [Memory]: mutex-guarded in-memory store for tests, load tests, and
//     development without a database.
//
// Both return otpauth.ErrUserNotFound for absent or soft-deleted users and
// otpauth.ErrUserExists when a username or email is taken.
//
// # What this package must NOT do
//
//   - Hash or compare passwords.
//   - Touch Redis or issue tokens.
package userstore
