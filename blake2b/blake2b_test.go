package blake2b

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"io/ioutil"
	"testing"
)

const (
	// Source: BLAKE2 Section 2.8
	DemoParamBytes = "402001010000000000000000000000000000000000000000000000000000000055555555555555555555555555555555eeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"
)

func TestParameterBlockInit(t *testing.T) {
	params := &parameterBlock{
		fanout:          1,
		depth:           1,
		KeyLength:       32,
		DigestSize:      64,
		Salt:            []byte{0x55, 0x55, 0x55, 0x55, 0x55, 0x55, 0x55, 0x55, 0x55, 0x55, 0x55, 0x55, 0x55, 0x55, 0x55, 0x55},
		Personalization: []byte{0xee, 0xee, 0xee, 0xee, 0xee, 0xee, 0xee, 0xee, 0xee, 0xee, 0xee, 0xee, 0xee, 0xee, 0xee, 0xee},
	}

	packedBytes := params.Marshal()
	expectedBytes, _ := hex.DecodeString(DemoParamBytes)

	if !bytes.Equal(packedBytes, expectedBytes) {
		t.Errorf("packed bytes mismatch: %x %x", packedBytes, expectedBytes)
	}

	digest := initFromParams(params)
	if digest.h[0] != (IV0 ^ 0x01012040) {
		t.Errorf("first u32 of parameter block was wrong: %x", digest.h[0])
	}
}

func TestNewDigest(t *testing.T) {
	_, err := NewDigest(nil, nil, nil, 32)
	if err != nil {
		t.Fatal(err)
	}
}

// These come from the BLAKE2b reference implementation.
type ReferenceTestVector struct {
	Hash    string `json:"hash"`
	Input   string `json:"in"`
	Key     string `json:"key"`
	Persona string `json:"persona,omitempty"`
	Salt    string `json:"salt,omitempty"`
	Output  string `json:"out"`
}

func TestStandardVectors(t *testing.T) {
	jsonTestData, err := ioutil.ReadFile("../testdata/blake2b-kat.json")
	if err != nil {
		t.Skip()
	}
	var tests []ReferenceTestVector
	err = json.Unmarshal(jsonTestData, &tests)
	if err != nil {
		t.Fatal(err)
	}
	for _, test := range tests {
		if test.Hash != "blake2b" {
			t.Errorf("Got a test for the wrong hash: %s", test.Hash)
			continue
		}
		decodedInput, _ := hex.DecodeString(test.Input)
		if len(decodedInput) == 0 {
			decodedInput = nil
		}
		decodedKey, _ := hex.DecodeString(test.Key)
		if len(decodedKey) == 0 {
			decodedKey = nil
		}
		decodedOutput, _ := hex.DecodeString(test.Output)
		d, err := NewDigest(decodedKey, nil, nil, 64)
		if err != nil {
			t.Error(err)
			continue
		}
		if decodedInput != nil {
			d.Write(decodedInput)
		}
		if !bytes.Equal(decodedOutput, d.Sum(nil)) {
			t.Errorf("Failed test: %v", test.Output)
			break
		}
	}
}

func TestExtrasVectors(t *testing.T) {
	jsonTestData, err := ioutil.ReadFile("../testdata/blake2b-extras.json")
	if err != nil {
		t.Skip()
	}
	var tests []ReferenceTestVector
	err = json.Unmarshal(jsonTestData, &tests)
	if err != nil {
		t.Fatal(err)
	}
	for _, test := range tests {
		if test.Hash != "blake2b" {
			t.Errorf("Got a test for the wrong hash: %s", test.Hash)
			continue
		}
		decodedInput, _ := hex.DecodeString(test.Input)
		if len(decodedInput) == 0 {
			decodedInput = nil
		}
		decodedKey, _ := hex.DecodeString(test.Key)
		if len(decodedKey) == 0 {
			decodedKey = nil
		}
		decodedSalt, _ := hex.DecodeString(test.Salt)
		if len(decodedSalt) == 0 {
			decodedSalt = nil
		}
		decodedPersona, _ := hex.DecodeString(test.Persona)
		if len(decodedPersona) == 0 {
			decodedPersona = nil
		}
		decodedOutput, _ := hex.DecodeString(test.Output)

		d, err := NewDigest(decodedKey, decodedSalt, decodedPersona, 64)
		if err != nil {
			t.Error(err)
			continue
		}

		if decodedInput != nil {
			d.Write(decodedInput)
		}

		if !bytes.Equal(decodedOutput, d.Sum(nil)) {
			t.Errorf("Failed test: %v", test.Output)
			break
		}
	}
}

// RFC 7693 Appendix A test vectors: BLAKE2b-512 of the empty string and
// of "abc", with no key/salt/personalization.
func TestRFC7693Vectors(t *testing.T) {
	cases := []struct {
		input string
		sum   string
	}{
		{
			input: "",
			sum:   "786a02f742015903c6c6fd852552d272912f4740e15847618a86e217f71f5419d25e1031afee585313896444934eb04b903a685b1448b755d56f701afe9be8",
		},
		{
			input: "abc",
			sum:   "ba80a53f981c4d0d6a2797b69f12f6e94c212f14685ac4b74b12bb6fdbffa2d17d87c5392aab792dc252d5de4533cc9518d38aa8dbf1925ab92386edd4009923",
		},
	}

	for _, tc := range cases {
		d, err := NewDigest(nil, nil, nil, 64)
		if err != nil {
			t.Fatal(err)
		}
		d.Write([]byte(tc.input))
		got := hex.EncodeToString(d.Sum(nil))
		if got != tc.sum {
			t.Errorf("blake2b(%q) = %s, want %s", tc.input, got, tc.sum)
		}
	}
}

func TestHashWordsMatchesByteHash(t *testing.T) {
	words := []uint64{0x0102030405060708, 0x1112131415161718}
	var wordBytes []byte
	for _, w := range words {
		b := make([]byte, 8)
		for i := 0; i < 8; i++ {
			b[i] = byte(w >> (8 * i))
		}
		wordBytes = append(wordBytes, b...)
	}

	want, err := Hash(wordBytes, 32)
	if err != nil {
		t.Fatal(err)
	}

	got := make([]byte, 32)
	if err := HashWords(got, words, len(wordBytes)); err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(want, got) {
		t.Errorf("HashWords = %x, want %x", got, want)
	}
}

func TestHashWordsTruncatesPartialWord(t *testing.T) {
	words := []uint64{0x0102030405060708}
	want, err := Hash([]byte{0x08, 0x07, 0x06}, 32)
	if err != nil {
		t.Fatal(err)
	}

	got := make([]byte, 32)
	if err := HashWords(got, words, 3); err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(want, got) {
		t.Errorf("HashWords with partial word = %x, want %x", got, want)
	}
}

var emptyBuf = make([]byte, 16384)

func benchmarkHashSize(b *testing.B, size int) {
	b.SetBytes(int64(size))
	sum := make([]byte, 64)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		digest, _ := NewDigest(nil, nil, nil, 64)
		digest.Write(emptyBuf[:size])
		digest.Sum(sum[:0])
	}
}

func BenchmarkHash8Bytes(b *testing.B) {
	benchmarkHashSize(b, 8)
}

func BenchmarkHash1K(b *testing.B) {
	benchmarkHashSize(b, 1024)
}

func BenchmarkHash8K(b *testing.B) {
	benchmarkHashSize(b, 8192)
}
