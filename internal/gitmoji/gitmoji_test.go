package gitmoji

import "testing"

func TestForTypeReturnsEmojiForKnownCommitType(t *testing.T) {
	emoji, ok := ForType("feat")
	if !ok {
		t.Fatalf("expected feat to be a known commit type")
	}
	if emoji == "" {
		t.Fatalf("expected non-empty emoji for feat")
	}
}

func TestForTypeReturnsFalseForUnknownCommitType(t *testing.T) {
	if _, ok := ForType("not-a-real-type"); ok {
		t.Fatalf("expected unknown commit type to report false")
	}
}
