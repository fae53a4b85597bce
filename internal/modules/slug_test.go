package modules

import "testing"

func TestSlugify(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Trip", "Trip"},
		{"My Trip Notes", "My-Trip-Notes"},
		{"a/b\\c:d", "a-b-c-d"},
		{"what? *really*", "what-really"},
		{"[draft] notes #1", "draft-notes-1"},
		{"  spaced  out  ", "spaced-out"},
		{"---", "untitled"},
		{"", "untitled"},
		{"...", "untitled"},
		{"ends with dot.", "ends-with-dot"},
	}
	for _, c := range cases {
		if got := Slugify(c.in); got != c.want {
			t.Errorf("Slugify(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestSlugifyStable(t *testing.T) {
	if Slugify("My Trip") != Slugify("My Trip") {
		t.Error("same display name must produce the same slug")
	}
}

func TestSlugFromDocPath(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Notes/Trip.md", "Trip"},
		{"Notes/Trip-page-3.md", "Trip"},
		{"Memos/idea-list.md", "idea-list"},
		{"Journal/2024-03-05.md", "2024-03-05"},
	}
	for _, c := range cases {
		if got := SlugFromDocPath(c.in); got != c.want {
			t.Errorf("SlugFromDocPath(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
