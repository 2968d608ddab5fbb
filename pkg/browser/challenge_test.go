package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectChallenge(t *testing.T) {
	tests := []struct {
		name  string
		title string
		html  string
		want  bool
	}{
		{
			name:  "challenge title from live document",
			title: "Just a moment...",
			html:  "<html><body></body></html>",
			want:  true,
		},
		{
			name: "challenge title only in markup",
			html: "<html><head><title>Just a moment...</title></head><body></body></html>",
			want: true,
		},
		{
			name:  "verification text in body",
			title: "claude.ai",
			html:  "<html><body><div><p>Verifying   you are\n human. This may take a few seconds.</p></div></body></html>",
			want:  true,
		},
		{
			name:  "marker split across inline elements",
			title: "claude.ai",
			html:  "<html><body><span>Verifying you</span> <span>are human</span></body></html>",
			want:  true,
		},
		{
			name:  "marker word split by inline markup",
			title: "claude.ai",
			html:  "<html><body><p>Verifying you are hu<span>man</span></p></body></html>",
			want:  true,
		},
		{
			name:  "block elements do not glue words",
			title: "claude.ai",
			html:  "<html><body><div>Verifying you are</div><div>human</div></body></html>",
			want:  true,
		},
		{
			name:  "marker only inside a script",
			title: "Settings",
			html:  `<html><body><script>var s = "Verifying you are human";</script><main>Settings</main></body></html>`,
			want:  false,
		},
		{
			name:  "ordinary settings page",
			title: "Settings - Claude",
			html:  "<html><head><title>Settings - Claude</title></head><body><h1>Profile</h1></body></html>",
			want:  false,
		},
		{
			name:  "empty page",
			title: "",
			html:  "",
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectChallenge(tt.title, tt.html))
		})
	}
}
