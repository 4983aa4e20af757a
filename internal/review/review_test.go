package review

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterSystemPhrases(t *testing.T) {
	text := "Intro line\nA note for SEO: use more keywords\nBody\nMeta description idea here\nAnother A note for SEO\nOutro"

	cleaned, matched := FilterSystemPhrases(text, nil)
	assert.Equal(t, "Intro line\nBody\nOutro", cleaned)
	assert.Equal(t, []string{"A note for SEO", "Meta description idea"}, matched)

	cleaned, matched = FilterSystemPhrases("nothing to see", []string{"secret"})
	assert.Equal(t, "nothing to see", cleaned)
	assert.Empty(t, matched)

	cleaned, matched = FilterSystemPhrases("", nil)
	assert.Equal(t, "", cleaned)
	assert.Empty(t, matched)
}

func TestFilterSystemPhrasesCRLF(t *testing.T) {
	text := "Intro line\r\nA note for SEO: use more keywords\r\nBody\r\nOutro\r\n"

	cleaned, matched := FilterSystemPhrases(text, nil)
	assert.Equal(t, "Intro line\nBody\nOutro", cleaned)
	assert.NotContains(t, cleaned, "\r")
	assert.Equal(t, []string{"A note for SEO"}, matched)
}

func TestValidateAndFixImagePrompts(t *testing.T) {
	prompts := []string{
		"",
		"A cozy kitchen with homemade kimchi on the table",
		"SaaS dashboard with marketing charts",
		"sunset over mountains",
	}

	fixed, issues := ValidateAndFixImagePrompts("Kimchi recipe", prompts, nil)
	require.Len(t, fixed, 4)

	assert.Equal(t, "Kimchi recipe, "+GenericImageDescriptor, fixed[0])
	assert.Equal(t, prompts[1], fixed[1])
	assert.True(t, strings.HasPrefix(fixed[2], "Kimchi recipe, "))
	assert.NotContains(t, strings.ToLower(fixed[2]), "saas")
	assert.NotContains(t, strings.ToLower(fixed[2]), "marketing")
	assert.Equal(t, "Kimchi recipe, sunset over mountains", fixed[3])

	assert.Equal(t, []string{
		"image_prompts[0] empty -> default topic prompt",
		"image_prompts[2] contains banned marketing terms -> sanitized",
		"image_prompts[2] topic mismatch -> forced topic prefix",
		"image_prompts[3] topic mismatch -> forced topic prefix",
	}, issues)
}

func TestValidateAndFixImagePromptsFixedPoint(t *testing.T) {
	cases := []struct {
		topic   string
		prompts []string
	}{
		{"Kimchi recipe", []string{"", "ui mockup", "landing page hero", "kimchi jar"}},
		{"서울 여행", []string{"야경 사진", "", "marketing banner"}},
		{"a", []string{"ux", "b"}},
		{" , ", []string{"anything", ""}},
		{"", []string{"", "dashboard"}},
	}

	for _, tc := range cases {
		fixed, _ := ValidateAndFixImagePrompts(tc.topic, tc.prompts, nil)
		again, issues := ValidateAndFixImagePrompts(tc.topic, fixed, nil)
		for _, issue := range issues {
			assert.NotContains(t, issue, "topic mismatch", "topic %q", tc.topic)
		}
		assert.Equal(t, fixed, again, "topic %q", tc.topic)
	}
}

func TestValidateAndFixImagePromptsTokenMatch(t *testing.T) {
	fixed, issues := ValidateAndFixImagePrompts("Best Seoul cafes", []string{"rainy SEOUL street at night"}, nil)
	assert.Equal(t, []string{"rainy SEOUL street at night"}, fixed)
	assert.Empty(t, issues)
}

func TestSanitizeFinalHTML(t *testing.T) {
	cleaned, issues := SanitizeFinalHTML("<p>ok</p><script>bad()</script>")
	assert.Equal(t, "<p>ok</p>", cleaned)
	assert.Equal(t, []string{"removed <script> blocks"}, issues)

	html := `<h2>Title</h2>
<SCRIPT type="text/javascript">track()</SCRIPT>
<p>Body SEO를 위한 한마디 text</p>
<div id="x" class="adsense">ad</div>
<p>end</p>`
	cleaned, issues = SanitizeFinalHTML(html)
	assert.NotContains(t, cleaned, "track()")
	assert.NotContains(t, cleaned, "SEO를 위한 한마디")
	assert.NotContains(t, cleaned, "adsense")
	assert.Contains(t, cleaned, "<p>end</p>")
	assert.ElementsMatch(t, []string{
		"removed <script> blocks",
		"removed banned phrase: SEO를 위한 한마디",
		"removed adsense blocks",
	}, issues)

	cleaned, issues = SanitizeFinalHTML("  <p>clean</p>  ")
	assert.Equal(t, "<p>clean</p>", cleaned)
	assert.Empty(t, issues)
}

func TestSanitizeFinalHTMLIdempotent(t *testing.T) {
	inputs := []string{
		"<p>ok</p><script>bad()</script>",
		"<scr<script>x</script>ipt>alert(1)</script>",
		"<div class=\"adsense\"><div class=\"adsense\">a</div></div>",
		"<p>unclosed <script>never ends",
		"Meta descriptionMeta description idea idea",
		"",
		"<<<>>>",
	}
	for _, in := range inputs {
		once, _ := SanitizeFinalHTML(in)
		twice, issues := SanitizeFinalHTML(once)
		assert.Equal(t, once, twice, "input %q", in)
		assert.Empty(t, issues, "input %q", in)
	}
}
