package wiki

import "testing"

func TestToPlaintextBold(t *testing.T) {
	got := ToPlaintext("this is '''bold''' text", DefaultWikitextConfig(), nil)
	want := "this is bold text"
	if got != want {
		t.Errorf("ToPlaintext() = %q, want %q", got, want)
	}
}

func TestToPlaintextItalic(t *testing.T) {
	got := ToPlaintext("this is ''italic'' text", DefaultWikitextConfig(), nil)
	want := "this is italic text"
	if got != want {
		t.Errorf("ToPlaintext() = %q, want %q", got, want)
	}
}

func TestToPlaintextCharacterEntity(t *testing.T) {
	got := ToPlaintext("Q&amp;A", DefaultWikitextConfig(), nil)
	if got != "Q&A" {
		t.Errorf("ToPlaintext() = %q, want Q&A", got)
	}
}

func TestToPlaintextTemplateIsEmpty(t *testing.T) {
	got := ToPlaintext("before {{cite web|url=x}} after", DefaultWikitextConfig(), nil)
	want := "before  after"
	if got != want {
		t.Errorf("ToPlaintext() = %q, want %q", got, want)
	}
}

func TestToPlaintextCategoryIsEmpty(t *testing.T) {
	got := ToPlaintext("text [[Category:Go]] more", DefaultWikitextConfig(), nil)
	want := "text  more"
	if got != want {
		t.Errorf("ToPlaintext() = %q, want %q", got, want)
	}
}

func TestToPlaintextLinkUsesDisplayText(t *testing.T) {
	got := ToPlaintext("see [[Go (programming language)|Go]] here", DefaultWikitextConfig(), nil)
	want := "see Go here"
	if got != want {
		t.Errorf("ToPlaintext() = %q, want %q", got, want)
	}
}

func TestToPlaintextLinkWithoutPipeUsesTarget(t *testing.T) {
	got := ToPlaintext("see [[Go]] here", DefaultWikitextConfig(), nil)
	want := "see Go here"
	if got != want {
		t.Errorf("ToPlaintext() = %q, want %q", got, want)
	}
}

func TestToPlaintextExternalLinkUsesCaption(t *testing.T) {
	got := ToPlaintext("ref [http://example.com Example Site] done", DefaultWikitextConfig(), nil)
	want := "ref Example Site done"
	if got != want {
		t.Errorf("ToPlaintext() = %q, want %q", got, want)
	}
}

func TestToPlaintextCommentIsEmpty(t *testing.T) {
	got := ToPlaintext("a<!-- hidden -->b", DefaultWikitextConfig(), nil)
	if got != "ab" {
		t.Errorf("ToPlaintext() = %q, want ab", got)
	}
}

func TestToPlaintextRedirectIsEmpty(t *testing.T) {
	got := ToPlaintext("#REDIRECT [[Go]]", DefaultWikitextConfig(), nil)
	if got != "" {
		t.Errorf("ToPlaintext() = %q, want empty", got)
	}
}

func TestToPlaintextListBrackets(t *testing.T) {
	got := ToPlaintext("*one\n*two\n*three", DefaultWikitextConfig(), nil)
	want := "[one, two, three]"
	if got != want {
		t.Errorf("ToPlaintext() = %q, want %q", got, want)
	}
}

func TestToPlaintextHeadingRecurses(t *testing.T) {
	got := ToPlaintext("== History ==\nbody", DefaultWikitextConfig(), nil)
	want := "History\nbody"
	if got != want {
		t.Errorf("ToPlaintext() = %q, want %q", got, want)
	}
}

func TestToPlaintextPreformattedRecurses(t *testing.T) {
	got := ToPlaintext("<pre>fixed width</pre>", DefaultWikitextConfig(), nil)
	if got != "fixed width" {
		t.Errorf("ToPlaintext() = %q, want %q", got, "fixed width")
	}
}

func TestToPlaintextGenericTagIsEmpty(t *testing.T) {
	got := ToPlaintext("a<ref>citation junk</ref>b", DefaultWikitextConfig(), nil)
	if got != "ab" {
		t.Errorf("ToPlaintext() = %q, want ab", got)
	}
}

// TestAntiWedgeGuardPassesThroughRawText covers spec.md §8's scenario: an
// article whose markup is unbalanced enough to defeat a naive parser is
// passed through unparsed rather than corrupting the output.
func TestAntiWedgeGuardPassesThroughRawText(t *testing.T) {
	raw := ""
	for i := 0; i < 10; i++ {
		raw += "{{ "
	}
	got := ToPlaintext(raw, DefaultWikitextConfig(), nil)
	if got != raw {
		t.Errorf("ToPlaintext() with unbalanced braces = %q, want passthrough of raw text", got)
	}
}

func TestAntiWedgeGuardAllowsBalancedTemplates(t *testing.T) {
	raw := "{{a}}{{b}}{{c}} text"
	got := ToPlaintext(raw, DefaultWikitextConfig(), nil)
	if got != " text" {
		t.Errorf("ToPlaintext() = %q, want %q", got, " text")
	}
}

func TestIsWedgedCountsBraceImbalance(t *testing.T) {
	if isWedged("{{a}}{{b}}", 6) {
		t.Error("balanced braces should not be wedged")
	}
	unbalanced := ""
	for i := 0; i < 8; i++ {
		unbalanced += "{{"
	}
	if !isWedged(unbalanced, 6) {
		t.Error("8 unmatched {{ should exceed threshold 6")
	}
}
