package parser

import "testing"

func TestExtractLinks_MarkdownAndBare(t *testing.T) {
	body := "See [docs](https://example.org/docs) and https://example.org/raw\nSecond [rel](../other.md) line"
	refs := ExtractLinks(body)
	if len(refs) != 3 {
		t.Fatalf("len(refs) = %d, want 3: %v", len(refs), refs)
	}
	if refs[0].URL != "https://example.org/docs" || refs[0].Line != 1 {
		t.Errorf("refs[0] = %+v", refs[0])
	}
	if refs[1].URL != "https://example.org/raw" || refs[1].Line != 1 {
		t.Errorf("refs[1] = %+v", refs[1])
	}
	if refs[2].URL != "../other.md" || refs[2].Line != 2 {
		t.Errorf("refs[2] = %+v", refs[2])
	}
}

func TestExtractLinks_MarkdownTargetNotDoubleCounted(t *testing.T) {
	// The bare-URL scanner must skip URLs already consumed by a markdown link.
	refs := ExtractLinks("[x](https://example.org/page)")
	if len(refs) != 1 {
		t.Errorf("refs = %v, want exactly one", refs)
	}
}

func TestExtractLinks_Autolink(t *testing.T) {
	refs := ExtractLinks("visit <https://example.org/auto> now")
	if len(refs) != 1 || refs[0].URL != "https://example.org/auto" {
		t.Errorf("refs = %v", refs)
	}
}

func TestExtractLinks_DedupPerLine(t *testing.T) {
	refs := ExtractLinks("[a](https://x.org) and [b](https://x.org)\n[c](https://x.org)")
	if len(refs) != 2 {
		t.Errorf("len(refs) = %d, want 2 (dedup within a line only)", len(refs))
	}
}

func TestExtractLinks_RelativeTargetsKeepLeadingDots(t *testing.T) {
	body := "[up](../canonized/other.md) and [out](../../outside.md)"
	refs := ExtractLinks(body)
	if len(refs) != 2 {
		t.Fatalf("len(refs) = %d, want 2: %v", len(refs), refs)
	}
	if refs[0].URL != "../canonized/other.md" {
		t.Errorf("refs[0].URL = %q, want ../canonized/other.md", refs[0].URL)
	}
	if refs[1].URL != "../../outside.md" {
		t.Errorf("refs[1].URL = %q, want ../../outside.md", refs[1].URL)
	}
}

func TestExtractLinks_BareURLTrailingPunctuation(t *testing.T) {
	refs := ExtractLinks("read https://example.org/page.")
	if len(refs) != 1 || refs[0].URL != "https://example.org/page" {
		t.Errorf("refs = %v, want the URL without the trailing period", refs)
	}
}

func TestExtractLinks_TitleStripped(t *testing.T) {
	refs := ExtractLinks(`[doc](guide.md "the guide")`)
	if len(refs) != 1 || refs[0].URL != "guide.md" {
		t.Errorf("refs = %v, want guide.md", refs)
	}
}

func TestExtractLinks_Image(t *testing.T) {
	refs := ExtractLinks("![alt](evidence/shot.png)")
	if len(refs) != 1 || refs[0].URL != "evidence/shot.png" {
		t.Errorf("refs = %v", refs)
	}
}

func TestHeadings(t *testing.T) {
	body := "# Top Level\ntext\n## Sub-Section Two!\n### Deep heading ###\nnot # a heading"
	got := Headings(body)
	want := []string{"top-level", "sub-section-two", "deep-heading"}
	if len(got) != len(want) {
		t.Fatalf("headings = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("headings[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Hello World":        "hello-world",
		"  Spaced  Out  ":    "spaced-out",
		"Punct! (here)?":     "punct-here",
		"already-hyphenated": "already-hyphenated",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}
