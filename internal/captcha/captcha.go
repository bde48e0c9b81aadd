// Package captcha inspects page markup for human-verification challenges.
// The core never attempts to solve one; detection exists so a session can
// skip the page or hand it to the operator.
package captcha

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Kind names the challenge family that was found.
type Kind string

const (
	KindNone       Kind = ""
	KindRecaptcha  Kind = "recaptcha"
	KindHCaptcha   Kind = "hcaptcha"
	KindCloudflare Kind = "cloudflare"
	KindGeneric    Kind = "generic"
)

// selector probes, checked in order. First hit wins.
var probes = []struct {
	kind     Kind
	selector string
}{
	{KindRecaptcha, `iframe[src*="recaptcha"]`},
	{KindRecaptcha, `.g-recaptcha`},
	{KindRecaptcha, `#recaptcha`},
	{KindHCaptcha, `iframe[src*="hcaptcha"]`},
	{KindHCaptcha, `.h-captcha`},
	{KindCloudflare, `#challenge-form`},
	{KindCloudflare, `#cf-challenge-running`},
}

// keyword fallbacks over the raw text, for challenges rendered without the
// well-known markup.
var keywords = []string{
	"verify you are human",
	"are you a robot",
	"security check",
	"unusual traffic",
}

// Detect reports whether html contains a verification challenge and which
// family it belongs to. Unparseable markup is treated as challenge-free.
func Detect(html string) (bool, Kind) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false, KindNone
	}
	for _, p := range probes {
		if doc.Find(p.selector).Length() > 0 {
			return true, p.kind
		}
	}
	text := strings.ToLower(doc.Text())
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true, KindGeneric
		}
	}
	return false, KindNone
}
