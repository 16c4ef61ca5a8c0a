package format

import (
	"strings"
	"testing"
	"unicode"
	"unicode/utf8"

	"github.com/slack-go/slack"

	"esabot/internal/domain"
)

// --- RepairNumbering ---

func TestRepairNumbering_PositionBasedCounting(t *testing.T) {
	in := "item \\5\nitem \\12\n"
	want := "item 1\nitem 2\n"
	if got := RepairNumbering(in); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRepairNumbering_CountsAcrossLines(t *testing.T) {
	in := "\\1 a \\1\n\\9 b"
	want := "1 a 2\n3 b"
	if got := RepairNumbering(in); got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestRepairNumbering_NoPlaceholders(t *testing.T) {
	in := "plain text with 5 numbers and a \\ backslash"
	if got := RepairNumbering(in); got != in {
		t.Fatalf("text without placeholders must pass through, got %q", got)
	}
}

// --- ToMrkdwn ---

func TestToMrkdwn_HeadingsBulletsBold(t *testing.T) {
	out := ToMrkdwn("# Title\n## Sub\n- a\n**b**\n")
	if !strings.Contains(out, "*Title*") {
		t.Errorf("missing *Title* in %q", out)
	}
	if !strings.Contains(out, "*Sub*") {
		t.Errorf("missing *Sub* in %q", out)
	}
	if !strings.Contains(out, "• a") {
		t.Errorf("missing bullet line in %q", out)
	}
	if !strings.Contains(out, "*b*") {
		t.Errorf("missing converted bold in %q", out)
	}
}

func TestToMrkdwn_AllBulletMarkers(t *testing.T) {
	out := ToMrkdwn("- Item A\n* Item B\n+ Item C\n")
	lines := strings.Split(out, "\n")
	for i, want := range []string{"• Item A", "• Item B", "• Item C"} {
		if lines[i] != want {
			t.Errorf("line %d = %q, want %q", i, lines[i], want)
		}
	}
}

func TestToMrkdwn_UnderscoreEmphasis(t *testing.T) {
	out := ToMrkdwn("**Bold** text and __italic__ mid\n")
	if !strings.Contains(out, "*Bold*") {
		t.Errorf("bold not converted: %q", out)
	}
	if !strings.Contains(out, "_italic_") {
		t.Errorf("italic not converted: %q", out)
	}
}

func TestToMrkdwn_CodeFencePassthrough(t *testing.T) {
	in := "```\n# not a heading\n- not a bullet\n**not bold**\n```\n"
	out := ToMrkdwn(in)
	if strings.Count(out, "```") != 2 {
		t.Fatalf("expected open and close fences, got %q", out)
	}
	for _, verbatim := range []string{"# not a heading", "- not a bullet", "**not bold**"} {
		if !strings.Contains(out, verbatim) {
			t.Errorf("fenced content altered, missing %q in %q", verbatim, out)
		}
	}
}

func TestToMrkdwn_BlankLinesPreserved(t *testing.T) {
	out := ToMrkdwn("a\n\nb")
	if out != "a\n\nb" {
		t.Fatalf("blank line not preserved: %q", out)
	}
}

// --- Chunk ---

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func TestChunk_RoundTrip(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 200; i++ {
		sb.WriteString(strings.Repeat("x", i%40))
		sb.WriteString(" line\n")
	}
	text := sb.String()

	for _, size := range []int{50, 200, 1000} {
		chunks := Chunk(text, size)
		if len(chunks) < 2 {
			t.Fatalf("size %d: expected multiple chunks", size)
		}
		for i, c := range chunks {
			if len(c) > size {
				t.Errorf("size %d: chunk %d has %d bytes", size, i, len(c))
			}
		}
		if stripSpace(strings.Join(chunks, "")) != stripSpace(text) {
			t.Errorf("size %d: content lost across chunk boundaries", size)
		}
	}
}

func TestChunk_ShortTextSingleChunk(t *testing.T) {
	chunks := Chunk("short", 100)
	if len(chunks) != 1 || chunks[0] != "short" {
		t.Fatalf("got %v", chunks)
	}
}

func TestChunk_PrefersNewlineBoundary(t *testing.T) {
	// newline at 80% of the limit: must be used as the split point
	text := strings.Repeat("a", 80) + "\n" + strings.Repeat("b", 80)
	chunks := Chunk(text, 100)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %v", chunks)
	}
	if chunks[0] != strings.Repeat("a", 80) {
		t.Errorf("first chunk should end at the newline, got %d bytes", len(chunks[0]))
	}
}

func TestChunk_IgnoresEarlyBoundary(t *testing.T) {
	// the only newline sits at 10% of the limit: hard split instead
	text := strings.Repeat("a", 10) + "\n" + strings.Repeat("b", 200)
	chunks := Chunk(text, 100)
	if len(chunks[0]) < 60 {
		t.Fatalf("early boundary should be ignored, first chunk only %d bytes", len(chunks[0]))
	}
}

func TestChunk_HardSplitKeepsValidUTF8(t *testing.T) {
	text := strings.Repeat("日本語のテキスト", 100)
	for _, c := range Chunk(text, 100) {
		if !utf8.ValidString(c) {
			t.Fatal("hard split produced invalid UTF-8")
		}
	}
}

// --- Build ---

func sampleInput() BuildInput {
	return BuildInput{
		Summary:    "# H1\n- A\n- B\n**Bold**",
		Title:      "Sample Title",
		Category:   "Cat",
		UpdatedAt:  "2025-11-18",
		URL:        "https://example.esa.io/posts/123",
		Options:    domain.DefaultOptions(),
		PostNumber: 123,
		BodyLength: 4567,
	}
}

func TestBuild_BlockStructure(t *testing.T) {
	msg := Build(sampleInput())

	if len(msg.Blocks) < 5 {
		t.Fatalf("expected header/context/fields/divider/sections/footer, got %d blocks", len(msg.Blocks))
	}
	if _, ok := msg.Blocks[0].(*slack.HeaderBlock); !ok {
		t.Errorf("first block should be a header, got %T", msg.Blocks[0])
	}
	if _, ok := msg.Blocks[1].(*slack.ContextBlock); !ok {
		t.Errorf("second block should be the source context, got %T", msg.Blocks[1])
	}
	if _, ok := msg.Blocks[len(msg.Blocks)-1].(*slack.ContextBlock); !ok {
		t.Errorf("last block should be the footer link, got %T", msg.Blocks[len(msg.Blocks)-1])
	}

	var hasDivider, hasSection bool
	for _, b := range msg.Blocks {
		switch b.(type) {
		case *slack.DividerBlock:
			hasDivider = true
		case *slack.SectionBlock:
			hasSection = true
		}
	}
	if !hasDivider || !hasSection {
		t.Errorf("divider=%v section=%v", hasDivider, hasSection)
	}
	if !msg.SuppressUnfurl {
		t.Error("summary posts must suppress link previews")
	}
}

func TestBuild_SummaryContentTranslated(t *testing.T) {
	msg := Build(sampleInput())
	var joined strings.Builder
	for _, b := range msg.Blocks {
		if s, ok := b.(*slack.SectionBlock); ok && s.Text != nil {
			joined.WriteString(s.Text.Text)
			joined.WriteString("\n")
		}
	}
	body := joined.String()
	if !strings.Contains(body, "*H1*") || !strings.Contains(body, "• A") || !strings.Contains(body, "*Bold*") {
		t.Fatalf("summary sections not translated: %q", body)
	}
}

func TestBuild_FallbackCapped(t *testing.T) {
	in := sampleInput()
	in.Summary = strings.Repeat("long summary line\n", 500)
	msg := Build(in)
	if n := utf8.RuneCountInString(msg.Text); n > 3000 {
		t.Fatalf("fallback text %d runes, cap is 3000", n)
	}
	if !strings.Contains(msg.Text, "Sample Title") {
		t.Error("fallback should lead with the title")
	}
}

func TestBuild_TitleTruncatedForHeader(t *testing.T) {
	in := sampleInput()
	in.Title = strings.Repeat("T", 500)
	msg := Build(in)
	header, ok := msg.Blocks[0].(*slack.HeaderBlock)
	if !ok {
		t.Fatalf("expected header block, got %T", msg.Blocks[0])
	}
	if n := utf8.RuneCountInString(header.Text.Text); n > 140 {
		t.Fatalf("header title %d runes, cap is 140", n)
	}
}

func TestBuild_UntitledSentinel(t *testing.T) {
	in := sampleInput()
	in.Title = ""
	msg := Build(in)
	header := msg.Blocks[0].(*slack.HeaderBlock)
	if header.Text.Text != "untitled" {
		t.Fatalf("missing title should become the sentinel, got %q", header.Text.Text)
	}
}

func TestBuild_LongSummaryProducesMultipleSections(t *testing.T) {
	in := sampleInput()
	in.ChunkSize = 200
	in.Summary = strings.Repeat("a summary line that repeats\n", 50)
	msg := Build(in)

	sections := 0
	for _, b := range msg.Blocks {
		if s, ok := b.(*slack.SectionBlock); ok && s.Text != nil {
			sections++
		}
	}
	if sections < 2 {
		t.Fatalf("expected chunked summary sections, got %d", sections)
	}
}
