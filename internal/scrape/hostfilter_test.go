package scrape

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHostFilter_Excluded(t *testing.T) {
	f := NewHostFilter([]string{"YouTube.com", "www.pinterest.com", " "})

	tests := []struct {
		url  string
		want bool
	}{
		{"https://www.youtube.com/watch?v=abc", true},
		{"https://youtube.com/", true},
		{"https://pinterest.com/pin/1", true},
		{"https://au.pinterest.com/pin/1", true},
		{"https://notyoutube.com/recipe", false},
		{"https://www.seriouseats.com/pozole", false},
		{"not a url", true},
		{"://bad", true},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, f.Excluded(tt.url))
		})
	}
}

func TestHostFilter_HostsNormalized(t *testing.T) {
	f := NewHostFilter([]string{"YouTube.com", "www.pinterest.com", ""})
	assert.Equal(t, []string{"youtube.com", "pinterest.com"}, f.Hosts())
}

func TestHostFilter_QueryTerms(t *testing.T) {
	assert.Equal(t, "-site:youtube.com -site:pinterest.com", NewHostFilter(DefaultExcludedHosts).QueryTerms())
	assert.Equal(t, "", NewHostFilter(nil).QueryTerms())
}
