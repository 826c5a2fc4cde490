package backend

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorDetail(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		want        string
	}{
		{"empty", "", "  ", ""},
		{"fastapi detail", "application/json", `{"detail":"  session   missing "}`, "session missing"},
		{"validation list", "application/json", `{"detail":[{"msg":"field required"}]}`, `[{"msg":"field required"}]`},
		{
			"html page",
			"text/html",
			`<html><head><title>502 Bad Gateway</title><style>p{}</style></head>` +
				`<body><h1>Bad Gateway</h1><script>x()</script><p>upstream  down</p></body></html>`,
			"Bad Gateway: upstream down",
		},
		{
			"proxy page",
			"text/html",
			`<html><head><title>502 Bad Gateway</title></head><body><center><h1>502 Bad Gateway</h1></center>` +
				`<hr><center>nginx</center></body></html>`,
			"502 Bad Gateway",
		},
		{
			"traceback in pre",
			"text/html",
			`<html><head><title>Internal Server Error</title></head><body><pre>Traceback:
  KeyError: 'session_id'</pre></body></html>`,
			"Internal Server Error: Traceback: KeyError: 'session_id'",
		},
		{"unstructured body", "text/html", `<html><body><div>Service   unavailable</div></body></html>`, "Service unavailable"},
		{"html title only", "text/html", `<html><head><title>Oops</title></head><body></body></html>`, "Oops"},
		{"plain text", "text/plain", "Internal\nServer Error", "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errorDetail(tt.contentType, []byte(tt.body)))
		})
	}
}

func TestErrorDetail_Truncates(t *testing.T) {
	body := strings.Repeat("word ", maxDetailWords+10)
	got := errorDetail("text/plain", []byte(body))
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Len(t, strings.Fields(got), maxDetailWords)
}
