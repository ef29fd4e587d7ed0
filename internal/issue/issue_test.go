// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"
	"testing"
)

func TestValuesCoversEveryId(t *testing.T) {
	t.Parallel()

	values := Values()
	if len(values) != int(EnvironmentFailedId) {
		t.Fatalf("len(Values()) = %d, want %d", len(values), EnvironmentFailedId)
	}
	for i, is := range values {
		if want := Id(i + 1); is.Id() != want {
			t.Errorf("Values()[%d].Id() = %d, want %d", i, is.Id(), want)
		}
		if strings.TrimSpace(string(is.MarkdownMsg())) == "" {
			t.Errorf("issue %d has no message", is.Id())
		}
	}
}

func TestGetUnknown(t *testing.T) {
	t.Parallel()

	if Get(0) != nil {
		t.Error("Get(0) should return nil")
	}
}

func TestMarkdownLinks(t *testing.T) {
	t.Parallel()

	is := &Issue{id: 99, mdMsg: "# Title", docLinks: []HttpLink{"https://example.com/docs"}}
	md := is.Markdown()
	if !strings.Contains(md, "## See also") || !strings.Contains(md, "<https://example.com/docs>") {
		t.Errorf("Markdown() = %q", md)
	}

	links := is.DocLinks()
	links[0] = "changed"
	if is.docLinks[0] != "https://example.com/docs" {
		t.Error("DocLinks() must return a copy")
	}
}

func TestRender(t *testing.T) {
	t.Parallel()

	out, err := Get(IntegrityFailedId).Render("notty")
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if !strings.Contains(out, "Checksum mismatch") {
		t.Errorf("rendered output missing title:\n%s", out)
	}
}
