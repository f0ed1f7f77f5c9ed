package extractor

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

const maxFileBytes = 32 << 20

func extractPlainText(reader io.Reader) (string, error) {
	raw, err := io.ReadAll(io.LimitReader(reader, maxFileBytes))
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("file is not valid utf-8 text")
	}
	return strings.TrimSpace(string(raw)), nil
}
