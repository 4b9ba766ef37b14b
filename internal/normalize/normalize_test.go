package normalize

import "testing"

func TestClean(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercases", "Heinz Baked Beans 415G", "heinz baked beans 415g"},
		{"strips parenthetical", "Bananas Loose (C)", "bananas loose"},
		{"strips mid-string parenthetical", "Milk (Semi Skimmed) 2L", "milk  2l"},
		{"trims whitespace", "  Bread  ", "bread"},
		{"empty input", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clean(tt.input); got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCleanIdempotent(t *testing.T) {
	inputs := []string{
		"Heinz Baked Beans 415G",
		"Bananas Loose (C)",
		"  Tesco Finest* Sourdough  ",
		"",
	}
	for _, in := range inputs {
		once := Clean(in)
		if twice := Clean(once); twice != once {
			t.Errorf("Clean not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestCleanStrict(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"ampersand to and", "Crisps & Snacks", "crisps and snacks"},
		{"comma to and", "Tins, Cans", "tins and cans"},
		{"strips punctuation", "Free-From!", "free from"},
		{"collapses whitespace", "Frozen   Food", "frozen food"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanStrict(tt.input); got != tt.want {
				t.Errorf("CleanStrict(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCleanStrictIdempotent(t *testing.T) {
	for _, in := range []string{"Crisps & Snacks", "Tins, Cans & Jars", "plain"} {
		once := CleanStrict(in)
		if twice := CleanStrict(once); twice != once {
			t.Errorf("CleanStrict not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}

func TestCommonWords(t *testing.T) {
	t.Run("sorted intersection", func(t *testing.T) {
		got := CommonWords("Frozen Pizza & Garlic Bread", "Garlic Bread Frozen")
		if got != "bread frozen garlic" {
			t.Errorf("CommonWords = %q, want %q", got, "bread frozen garlic")
		}
	})

	t.Run("no overlap", func(t *testing.T) {
		if got := CommonWords("Apples", "Oranges"); got != "" {
			t.Errorf("CommonWords = %q, want empty", got)
		}
	})
}

func TestTitleFirstWord(t *testing.T) {
	if got := TitleFirstWord("crisps and snacks"); got != "Crisps and snacks" {
		t.Errorf("TitleFirstWord = %q", got)
	}
	if got := TitleFirstWord(""); got != "" {
		t.Errorf("TitleFirstWord empty = %q", got)
	}
}
