package cvapi

import "testing"

func TestResolveContentTypePrefersExplicitType(t *testing.T) {
	got := ResolveContentType("resume.pdf", "application/x-custom")
	if got != "application/x-custom" {
		t.Fatalf("expected explicit type to win, got %q", got)
	}
}

func TestResolveContentTypeExtensionTable(t *testing.T) {
	cases := map[string]string{
		"resume.pdf":  "application/pdf",
		"resume.PDF":  "application/pdf",
		"resume.docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"resume.txt":  "text/plain",
	}
	for filename, want := range cases {
		if got := ResolveContentType(filename, ""); got != want {
			t.Fatalf("ResolveContentType(%q) = %q, want %q", filename, got, want)
		}
	}
}

func TestResolveContentTypeFallsBackToBinary(t *testing.T) {
	for _, filename := range []string{"resume.odt", "resume", "resume.tar.gz"} {
		if got := ResolveContentType(filename, ""); got != "application/octet-stream" {
			t.Fatalf("ResolveContentType(%q) = %q, want generic binary type", filename, got)
		}
	}
}
