package password

import (
	"strings"
	"testing"
)

// testConfig returns low-cost params so the suite stays fast.
func testConfig() Config {
	return Config{
		Params: Argon2idParams{
			MemoryKiB:   8 * 1024,
			Iterations:  1,
			Parallelism: 1,
			SaltLength:  16,
			KeyLength:   32,
		},
		Policy: Policy{MinLength: 8, MaxLength: 256},
	}
}

func TestHashAndVerify_RoundTrip(t *testing.T) {
	cfg := testConfig()

	enc, err := cfg.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(enc, "$argon2id$v=19$") {
		t.Fatalf("unexpected encoding: %q", enc)
	}

	ok, err := cfg.Verify(enc, "correct horse battery staple")
	if err != nil || !ok {
		t.Fatalf("expected match, got ok=%v err=%v", ok, err)
	}

	ok, err = cfg.Verify(enc, "wrong password entirely")
	if err != nil {
		t.Fatalf("Verify mismatch: %v", err)
	}
	if ok {
		t.Fatalf("expected mismatch")
	}
}

func TestVerify_MalformedHash(t *testing.T) {
	cfg := testConfig()

	for _, enc := range []string{
		"",
		"not-a-hash",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$AAAA",
		"$argon2id$v=18$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$AAAA",
		"$argon2id$v=19$m=0,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$AAAA",
	} {
		if _, err := cfg.Verify(enc, "whatever"); err != ErrInvalidHash {
			t.Fatalf("enc=%q: expected ErrInvalidHash, got %v", enc, err)
		}
	}
}

func TestVerify_RefusesOversizedParams(t *testing.T) {
	// Hash generated with big memory, verified under a small-limit config.
	big := testConfig()
	big.Params.MemoryKiB = 64 * 1024
	enc, err := big.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	small := testConfig() // limit 8 MiB; 64 MiB is > 2x
	if _, err := small.Verify(enc, "correct horse battery staple"); err != ErrInvalidHash {
		t.Fatalf("expected ErrInvalidHash for oversized params, got %v", err)
	}
}

func TestNeedsRehash(t *testing.T) {
	weak := testConfig()
	enc, err := weak.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	// Same params: no rehash.
	need, err := weak.NeedsRehash(enc)
	if err != nil {
		t.Fatalf("NeedsRehash: %v", err)
	}
	if need {
		t.Fatalf("same params must not need rehash")
	}

	// Raised memory cost: rehash.
	strong := weak
	strong.Params.MemoryKiB = 16 * 1024
	need, err = strong.NeedsRehash(enc)
	if err != nil {
		t.Fatalf("NeedsRehash: %v", err)
	}
	if !need {
		t.Fatalf("raised cost must need rehash")
	}
}

func TestDecoyHash_VerifiableAtFullCost(t *testing.T) {
	cfg := testConfig()

	decoy, err := cfg.DecoyHash()
	if err != nil {
		t.Fatalf("DecoyHash: %v", err)
	}

	// The decoy must be a well-formed hash so Verify performs a real argon2
	// computation against it.
	ok, err := cfg.Verify(decoy, "any attacker-supplied password")
	if err != nil {
		t.Fatalf("Verify against decoy: %v", err)
	}
	if ok {
		t.Fatalf("decoy must never match an arbitrary password")
	}
}

func TestPolicy_Bounds(t *testing.T) {
	cfg := testConfig()

	if _, err := cfg.Hash("short"); err != ErrPasswordTooShort {
		t.Fatalf("expected ErrPasswordTooShort, got %v", err)
	}

	long := strings.Repeat("a", 300)
	if _, err := cfg.Hash(long); err != ErrPasswordTooLong {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
}

func TestFromEnv_InvalidValues(t *testing.T) {
	t.Setenv("AEGIS_ARGON2_MEMORY_KIB", "42") // below 8 MiB floor
	if _, err := FromEnv(); err == nil {
		t.Fatalf("expected error for tiny memory setting")
	}
}

func TestFromEnv_PolicyOrder(t *testing.T) {
	t.Setenv("AEGIS_PASSWORD_MIN_LEN", "64")
	t.Setenv("AEGIS_PASSWORD_MAX_LEN", "32")
	if _, err := FromEnv(); err == nil {
		t.Fatalf("expected error when min > max")
	}
}
