package utils

import (
	"fmt"
	"os"
	"strings"

	"videoripper/internal"
)

// DefaultInputFile is read when no identifiers are given on the command line
const DefaultInputFile = "user-number.txt"

// inputSeparators split an identifier file; the command line only splits on commas
var inputSeparators = ",\t\r\n "

// SplitArgs turns positional arguments into identifier tokens. Each argument
// may hold several comma separated identifiers.
func SplitArgs(args []string) []string {
	var tokens []string
	for _, arg := range args {
		for _, token := range strings.Split(arg, ",") {
			if token = strings.TrimSpace(token); token != "" {
				tokens = append(tokens, token)
			}
		}
	}
	return tokens
}

// SplitIdentifiers splits file content on commas, whitespace and line breaks,
// dropping empty fields
func SplitIdentifiers(content string) []string {
	return strings.FieldsFunc(content, func(r rune) bool {
		return strings.ContainsRune(inputSeparators, r)
	})
}

// ReadIdentifierFile loads identifier tokens from path
func ReadIdentifierFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, internal.NewValidationErrorWithValue("input", "identifier file not found", path).
				WithSuggestion("Create " + path + " or pass identifiers as arguments")
		}
		return nil, fmt.Errorf("failed to read identifier file %s: %w", path, err)
	}

	return SplitIdentifiers(string(data)), nil
}

// CollectIdentifiers picks the command line tokens when present and falls back
// to the identifier file otherwise
func CollectIdentifiers(args []string, inputFile string) ([]string, error) {
	if len(args) > 0 {
		tokens := SplitArgs(args)
		if len(tokens) == 0 {
			return nil, internal.NewValidationError("identifiers", "no identifiers given")
		}
		return tokens, nil
	}

	if inputFile == "" {
		inputFile = DefaultInputFile
	}

	tokens, err := ReadIdentifierFile(inputFile)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, internal.NewValidationErrorWithValue("input", "identifier file is empty", inputFile)
	}
	return tokens, nil
}

// Usage describes how identifiers can be supplied
func Usage(inputFile string) string {
	if inputFile == "" {
		inputFile = DefaultInputFile
	}
	return fmt.Sprintf(`1. Create %[1]s in the working directory.
2. List account numbers or #collection names in it, separated by
   comma/space/tab/CR. Multiple lines are accepted.
3. Save the file and retry.

Sample file content:
number1,number2
#challenge

Or pass identifiers on the command line:
videoripper number1,number2
`, inputFile)
}
