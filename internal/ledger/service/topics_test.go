package service

import (
	"strings"
	"testing"
)

func TestShardKeyForHash(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		hash string
		want string
	}{
		{name: "full hash", hash: strings.Repeat("a", 61) + "f3c", want: "f3c"},
		{name: "exactly shard length", hash: "abc", want: "abc"},
		{name: "shorter than shard", hash: "ab", want: "ab"},
		{name: "empty", hash: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShardKeyForHash(tt.hash); got != tt.want {
				t.Fatalf("ShardKeyForHash(%q) = %q, want %q", tt.hash, got, tt.want)
			}
		})
	}
}

func TestShardKeyForAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		address string
		want    string
	}{
		{name: "regular address", address: "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa", want: "Na"},
		{name: "exactly shard length", address: "ab", want: "ab"},
		{name: "single char", address: "a", want: "a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShardKeyForAddress(tt.address); got != tt.want {
				t.Fatalf("ShardKeyForAddress(%q) = %q, want %q", tt.address, got, tt.want)
			}
		})
	}
}
