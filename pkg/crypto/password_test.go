package crypto

import (
	"errors"
	"testing"
)

func TestCompareAccessKey(t *testing.T) {
	hash, err := HashAccessKey("ghost-protocol")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := CompareAccessKey(string(hash), "ghost-protocol"); err != nil {
		t.Fatalf("expected key to match: %v", err)
	}
	if err := CompareAccessKey(string(hash), "wrong"); err == nil {
		t.Fatal("expected mismatch error")
	}
}

func TestCompareAccessKeyRequiresHash(t *testing.T) {
	if err := CompareAccessKey("  ", "anything"); !errors.Is(err, ErrKeyNotConfigured) {
		t.Fatalf("expected ErrKeyNotConfigured, got %v", err)
	}
}
