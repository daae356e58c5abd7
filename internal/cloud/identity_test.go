package cloud

import "testing"

func TestIdentityRoundTrip(t *testing.T) {
	cases := []struct {
		id    int64
		owner bool
	}{
		{0, false},
		{0, true},
		{1, false},
		{42, true},
		{987654321, false},
	}

	for _, tc := range cases {
		encoded := EncodeIdentity(tc.id, tc.owner)
		id, owner := DecodeIdentity(encoded)
		if id != tc.id || owner != tc.owner {
			t.Fatalf("round trip of (%d, %v) via %q gave (%d, %v)", tc.id, tc.owner, encoded, id, owner)
		}
	}
}

func TestDecodeIdentityTolerance(t *testing.T) {
	cases := []struct {
		identity  string
		wantID    int64
		wantOwner bool
	}{
		{"", 0, false},
		{"abc", 0, false},
		{"123", 123, false},
		{"123_", 123, false},
		{"123_0", 123, false},
		{"123_1", 123, true},
		{"_1", 0, true},
		{"12_34_56", 12, true},
	}

	for _, tc := range cases {
		id, owner := DecodeIdentity(tc.identity)
		if id != tc.wantID || owner != tc.wantOwner {
			t.Fatalf("decode %q: got (%d, %v), want (%d, %v)", tc.identity, id, owner, tc.wantID, tc.wantOwner)
		}
	}
}

func TestEncodeIdentityFormat(t *testing.T) {
	if got := EncodeIdentity(42, true); got != "42_1" {
		t.Fatalf("expected 42_1, got %q", got)
	}
	if got := EncodeIdentity(42, false); got != "42_0" {
		t.Fatalf("expected 42_0, got %q", got)
	}
}
