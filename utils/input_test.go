package utils

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestSplitIdentifiers(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected []string
	}{
		{"commas", "123,456", []string{"123", "456"}},
		{"mixed_separators", "123 456\t789\r\n#dance", []string{"123", "456", "789", "#dance"}},
		{"empty_fields", ",,123,,\n\n", []string{"123"}},
		{"surrounding_whitespace", "  \n 123 \n ", []string{"123"}},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SplitIdentifiers(tt.content)
			if len(result) == 0 && len(tt.expected) == 0 {
				return
			}
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("SplitIdentifiers(%q) = %v, want %v", tt.content, result, tt.expected)
			}
		})
	}
}

func TestSplitArgs(t *testing.T) {
	result := SplitArgs([]string{"123,#dance", " 456 ", ","})
	expected := []string{"123", "#dance", "456"}

	if !reflect.DeepEqual(result, expected) {
		t.Errorf("SplitArgs() = %v, want %v", result, expected)
	}
}

func TestCollectIdentifiers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "user-number.txt")
	if err := os.WriteFile(path, []byte("111,222\n#music\n"), 0644); err != nil {
		t.Fatalf("Failed to write input file: %v", err)
	}

	t.Run("args_take_precedence", func(t *testing.T) {
		tokens, err := CollectIdentifiers([]string{"999"}, path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(tokens, []string{"999"}) {
			t.Errorf("unexpected tokens %v", tokens)
		}
	})

	t.Run("file_fallback", func(t *testing.T) {
		tokens, err := CollectIdentifiers(nil, path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(tokens, []string{"111", "222", "#music"}) {
			t.Errorf("unexpected tokens %v", tokens)
		}
	})

	t.Run("missing_file", func(t *testing.T) {
		_, err := CollectIdentifiers(nil, filepath.Join(dir, "missing.txt"))
		if err == nil || !strings.Contains(err.Error(), "identifier file not found") {
			t.Errorf("expected missing file error, got %v", err)
		}
	})

	t.Run("empty_file", func(t *testing.T) {
		empty := filepath.Join(dir, "empty.txt")
		if err := os.WriteFile(empty, []byte(" \n\t"), 0644); err != nil {
			t.Fatalf("Failed to write input file: %v", err)
		}
		if _, err := CollectIdentifiers(nil, empty); err == nil {
			t.Error("expected error for empty identifier file")
		}
	})

	t.Run("only_separators_in_args", func(t *testing.T) {
		if _, err := CollectIdentifiers([]string{",,"}, path); err == nil {
			t.Error("expected error when arguments hold no identifiers")
		}
	})
}

func TestUsageMentionsInputFile(t *testing.T) {
	if !strings.Contains(Usage(""), DefaultInputFile) {
		t.Error("usage should mention the default input file")
	}
	if !strings.Contains(Usage("ids.txt"), "ids.txt") {
		t.Error("usage should mention the configured input file")
	}
}
