// Package password provides password hashing and verification for aegis.
//
// It implements Argon2id hashing with a PHC-style encoded string format and
// includes:
//   - Configurable Argon2id cost parameters (via environment variables)
//   - Password policy validation
//   - Strict hash decoding and verification with anti-DoS bounds
//   - Rehash detection, so stored hashes can be upgraded transparently on the
//     next successful login when cost parameters are raised
//   - A fixed decoy hash so verification against a non-existent account costs
//     the same as a real one (timing-based account enumeration resistance)
//
// Security notes:
//   - Hash strings are treated as untrusted input during Verify and are
//     validated accordingly.
//   - Verification refuses hashes whose parameters exceed reasonable bounds.
package password
