package preview

import (
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Text extracts up to maxChars of plain text from a local PDF so the
// user has something to look at while the server-side parse runs. Any
// failure here is cosmetic; callers log and move on.
func Text(path string, maxChars int) (string, error) {
	if maxChars <= 0 {
		maxChars = 600
	}

	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	body, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}

	var sb strings.Builder
	if _, err := io.CopyN(&sb, body, int64(maxChars)); err != nil && err != io.EOF {
		return "", fmt.Errorf("read pdf text: %w", err)
	}

	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("pdf contains no extractable text")
	}
	return text, nil
}
