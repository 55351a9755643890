package state

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func sampleLocals() Locals {
	return Locals{
		"name":  String("ann"),
		"count": Number(2),
		"tags":  List(String("a"), String("b")),
	}
}

func TestSignedCodecRoundTrip(t *testing.T) {
	codec := NewSignedCodec([]byte("secret"))
	ctx := context.Background()

	token, err := codec.Encode(ctx, sampleLocals())
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}

	got, err := codec.Decode(ctx, token)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	for k, want := range sampleLocals() {
		if !got[k].Equal(want) {
			t.Errorf("local %q = %v, want %v", k, got[k], want)
		}
	}
}

func TestSignedCodecRejectsTampering(t *testing.T) {
	codec := NewSignedCodec([]byte("secret"))
	ctx := context.Background()

	token, err := codec.Encode(ctx, sampleLocals())
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}

	body, sig, _ := strings.Cut(token, ".")
	tampered := body + "x." + sig

	tests := map[string]string{
		"tampered body": tampered,
		"no signature":  body,
		"empty":         "",
		"garbage":       "!!!.???",
	}
	for name, tok := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := codec.Decode(ctx, tok); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Decode(%q) error = %v, want ErrInvalidToken", tok, err)
			}
		})
	}

	other := NewSignedCodec([]byte("other"))
	if _, err := other.Decode(ctx, token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("foreign secret error = %v, want ErrInvalidToken", err)
	}
}

func TestStoreCodecRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	codec := NewStoreCodec(store, time.Minute)
	ctx := context.Background()

	token, err := codec.Encode(ctx, sampleLocals())
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	if store.Count() != 1 {
		t.Fatalf("store Count = %d, want 1", store.Count())
	}

	got, err := codec.Decode(ctx, token)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if !got["name"].Equal(String("ann")) {
		t.Errorf("name = %v, want ann", got["name"])
	}
}

func TestStoreCodecErrors(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	codec := NewStoreCodec(store, time.Minute)
	ctx := context.Background()

	if _, err := codec.Decode(ctx, "not-a-uuid"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("malformed token error = %v, want ErrInvalidToken", err)
	}
	if _, err := codec.Decode(ctx, "7d444840-9dc0-11d1-b245-5ffdce74fad2"); !errors.Is(err, ErrExpired) {
		t.Errorf("unknown token error = %v, want ErrExpired", err)
	}
}
