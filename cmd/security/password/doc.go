// Package password hashes and verifies account passwords.
//
// New digests are Argon2id in PHC string form. Verify also accepts bcrypt
// digests written by the previous Node.js backend; NeedsRehash flags them so
// callers can upgrade the stored value after a successful login.
//
// Hashing is CPU and memory heavy. Request paths go through a Pool, which
// bounds the number of concurrent derivations.
package password
