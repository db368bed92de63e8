package bscrypt

import "testing"

func TestReadUint32Basic(t *testing.T) {
	v, next, ok := readUint32("m=65536,t=3$", 2, ',')
	if !ok {
		t.Fatal("readUint32 rejected a valid decimal")
	}
	if v != 65536 {
		t.Fatalf("value = %d, want 65536", v)
	}
	if next != 8 {
		t.Fatalf("next = %d, want 8", next)
	}
}

func TestReadUint32RejectsLeadingZero(t *testing.T) {
	if _, _, ok := readUint32("0123,", 0, ','); ok {
		t.Fatal("readUint32 accepted a leading zero")
	}
}

func TestReadUint32AllowsExactZero(t *testing.T) {
	v, _, ok := readUint32("0,", 0, ',')
	if !ok || v != 0 {
		t.Fatalf("readUint32(\"0,\") = (%d, %v), want (0, true)", v, ok)
	}
}

func TestReadUint32RejectsMissingEnding(t *testing.T) {
	if _, _, ok := readUint32("123", 0, ','); ok {
		t.Fatal("readUint32 accepted input with no ending byte")
	}
}

func TestReadUint32RejectsOverflow(t *testing.T) {
	if _, _, ok := readUint32("99999999999,", 0, ','); ok {
		t.Fatal("readUint32 accepted a value overflowing uint32")
	}
}

func TestDecodeHashHeaderRoundTrip(t *testing.T) {
	params := Params{MemoryKiB: 65536, Iterations: 3, Parallelism: 2}
	salt := make([]byte, saltSize)
	hash := make([]byte, defaultHashBytes)
	encoded := encodeHash(params, salt, hash)

	decoded, offset, ok := decodeHashHeader(encoded)
	if !ok {
		t.Fatalf("decodeHashHeader rejected %q", encoded)
	}
	if decoded != params {
		t.Fatalf("decoded params = %+v, want %+v", decoded, params)
	}
	if len(encoded) < offset+saltEncodedSize {
		t.Fatalf("offset %d leaves no room for the salt segment in %q", offset, encoded)
	}
}

func TestDecodeHashHeaderRejectsWrongPrefix(t *testing.T) {
	if _, _, ok := decodeHashHeader("$argon2id$v=19$..."); ok {
		t.Fatal("decodeHashHeader accepted a non-bscrypt prefix")
	}
}

func TestDecodeHashHeaderRejectsMissingFields(t *testing.T) {
	cases := []string{
		"$bscrypt$m=16",
		"$bscrypt$m=16,t=2",
		"$bscrypt$m=16,t=2,p=",
		"$bscrypt$m=abc,t=2,p=1$",
	}
	for _, c := range cases {
		if _, _, ok := decodeHashHeader(c); ok {
			t.Errorf("decodeHashHeader accepted %q", c)
		}
	}
}

func TestConstTimeEqualDetectsDifference(t *testing.T) {
	a := "$bscrypt$m=16,t=2,p=1$aaaaaaaaaaaaaaaaaaaaaa"
	b := "$bscrypt$m=16,t=2,p=1$bbbbbbbbbbbbbbbbbbbbbb"
	if constTimeEqual(a, b, len(a)) {
		t.Fatal("constTimeEqual reported equal for differing strings")
	}
}

func TestConstTimeEqualIgnoresBytesPastN(t *testing.T) {
	a := "identical-prefix-but-then-diverges-aaaa"
	b := "identical-prefix-but-then-diverges-bbbb"
	n := len("identical-prefix-but-then-diverges-")
	if !constTimeEqual(a, b, n) {
		t.Fatal("constTimeEqual reported unequal within the shared prefix")
	}
}

func TestConstTimeEqualClampsOversizedN(t *testing.T) {
	a := string(make([]byte, hashMaxSize))
	if !constTimeEqual(a, a, hashMaxSize*4) {
		t.Fatal("constTimeEqual failed to clamp an oversized n")
	}
}
