package data

import "testing"

func TestNormalizePath(t *testing.T) {
	cases := map[string]struct {
		input    string
		expected string
		fails    bool
	}{
		"plain":           {input: "a/b.txt", expected: "a/b.txt"},
		"leading-slash":   {input: "/a/b.txt", expected: "a/b.txt"},
		"repeated-slash":  {input: "a//b.txt", expected: "a/b.txt"},
		"dot-segment":     {input: "a/./b.txt", expected: "a/b.txt"},
		"dir-marker":      {input: "a/b/", expected: "a/b/"},
		"root":            {input: "/", expected: ""},
		"empty":           {input: "", expected: ""},
		"traversal":       {input: "a/../b.txt", fails: true},
		"backslash":       {input: "a\\b.txt", fails: true},
		"nul-byte":        {input: "a\x00b", fails: true},
		"collapse-to-dir": {input: "//a//b//", expected: "a/b/"},
	}

	for name, tc := range cases {
		t.Run(name, func(tst *testing.T) {
			got, err := NormalizePath(tc.input)

			if tc.fails {
				if err == nil {
					tst.Fatalf("Expected failure for %q, got %q", tc.input, got)
				}
				return
			}

			if err != nil {
				tst.Fatalf("Unexpected error for %q: %v", tc.input, err)
			}
			if got != tc.expected {
				tst.Errorf("Expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestHasPrefix(t *testing.T) {
	if !HasPrefix("a/b.txt", "") {
		t.Error("Expected root prefix to match everything")
	}
	if !HasPrefix("a/b.txt", "a/") {
		t.Error("Expected key under prefix to match")
	}
	if HasPrefix("ab/c.txt", "a/") {
		t.Error("Expected sibling prefix not to match")
	}
}

func TestBaseName(t *testing.T) {
	cases := map[string]string{
		"a/b.txt": "b.txt",
		"a/b/":    "b",
		"c.txt":   "c.txt",
		"":        "",
	}

	for input, expected := range cases {
		if got := BaseName(input); got != expected {
			t.Errorf("BaseName(%q): expected %q, got %q", input, expected, got)
		}
	}
}

func TestByteRange_Validate(t *testing.T) {
	if err := FullRange.Validate(); err != nil {
		t.Errorf("Expected full range valid, got %v", err)
	}
	if err := (ByteRange{Start: 5}).Validate(); err != nil {
		t.Errorf("Expected unbounded range valid, got %v", err)
	}
	if err := (ByteRange{Start: -1}).Validate(); err == nil {
		t.Error("Expected negative start to fail")
	}
	if err := (ByteRange{Start: 5, End: 5}).Validate(); err == nil {
		t.Error("Expected empty window to fail")
	}
	if err := (ByteRange{Start: 5, End: 3}).Validate(); err == nil {
		t.Error("Expected inverted window to fail")
	}
}

func TestByteRange_Length(t *testing.T) {
	if got := (ByteRange{Start: 2, End: 7}).Length(); got != 5 {
		t.Errorf("Expected length 5, got %d", got)
	}
	if got := (ByteRange{Start: 2}).Length(); got != -1 {
		t.Errorf("Expected -1 for unbounded, got %d", got)
	}
}
