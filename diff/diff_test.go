package diff

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestUnified(t *testing.T) {
	for _, tt := range []struct {
		name          string
		before, after string
		want          string
	}{
		{
			name:   "equal",
			before: "a\n",
			after:  "a\n",
			want:   "",
		},
		{
			name:   "change",
			before: "a\nb\nc\n",
			after:  "a\nB\nc\n",
			want:   "--- a/x.ts\n+++ b/x.ts\n@@ -1,3 +1,3 @@\n a\n-b\n+B\n c\n",
		},
		{
			name:   "insert",
			before: "a\nb\n",
			after:  "a\nx\nb\n",
			want:   "--- a/x.ts\n+++ b/x.ts\n@@ -1,2 +1,3 @@\n a\n+x\n b\n",
		},
		{
			name:   "no newline",
			before: "x",
			after:  "y",
			want:   "--- a/x.ts\n+++ b/x.ts\n@@ -1 +1 @@\n-x\n\\ No newline at end of file\n+y\n\\ No newline at end of file\n",
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			got := string(Unified("a/x.ts", "b/x.ts", tt.before, tt.after))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Unified() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestUnifiedSplitsDistantChanges(t *testing.T) {
	var before, after []string
	for i := 0; i < 20; i++ {
		before = append(before, "line")
		after = append(after, "line")
	}
	after[0] = "first"
	after[19] = "last"
	got := string(Unified("a", "b", strings.Join(before, "\n")+"\n", strings.Join(after, "\n")+"\n"))
	if n := strings.Count(got, "@@ -"); n != 2 {
		t.Errorf("got %d hunks, want 2:\n%s", n, got)
	}
}
