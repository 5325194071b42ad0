package cleaner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listingHTML = `<!DOCTYPE html>
<html><head><title>Placas</title></head>
<body>
<div id="__next"><p>R$ 1.299,99</p></div>
<script id="__NEXT_DATA__" type="application/json">{"props":{"pageProps":{"data":"<b>x</b>"}}}</script>
<script id="empty"></script>
</body></html>`

func TestSelectText(t *testing.T) {
	tests := []struct {
		name      string
		selector  string
		wantText  string
		wantFound bool
	}{
		{"script blob", "script#__NEXT_DATA__", `{"props":{"pageProps":{"data":"<b>x</b>"}}}`, true},
		{"empty element", "script#empty", "", true},
		{"missing element", "script#nope", "", false},
		{"first of many", "script", `{"props":{"pageProps":{"data":"<b>x</b>"}}}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, found, err := SelectText(listingHTML, tt.selector)
			require.NoError(t, err)
			assert.Equal(t, tt.wantFound, found)
			assert.Equal(t, tt.wantText, text)
		})
	}
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("ab"))
	assert.Equal(t, 3, EstimateTokens("123456789"))
	assert.Equal(t, 1, EstimateTokens("çãé"))
}
