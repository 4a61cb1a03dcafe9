// Package password hashes and verifies user passwords and enforces the
// password strength policy applied at registration and password change.
//
// # Formats
//
// New hashes use Argon2id in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// Hashes imported from the previous bcrypt-based service ($2a$, $2b$, $2y$)
// still verify. [Hasher.NeedsRehash] reports them, along with Argon2 hashes
// made with weaker parameters, so the engine can upgrade on the next
// successful login.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords.
//   - Import any other sessionauth package.
//   - Log plaintext passwords.
package password
