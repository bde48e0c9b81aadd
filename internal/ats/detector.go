// Package ats identifies which third-party applicant tracking system backs
// an external application page.
package ats

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// Platform identifies a third-party applicant tracking system.
type Platform string

const (
	Greenhouse      Platform = "greenhouse"
	Lever           Platform = "lever"
	Workday         Platform = "workday"
	Taleo           Platform = "taleo"
	ICIMS           Platform = "icims"
	BambooHR        Platform = "bamboohr"
	Jobvite         Platform = "jobvite"
	SmartRecruiters Platform = "smartrecruiters"
	Unknown         Platform = "unknown"
)

// urlSignature maps a platform to known domain fragments. Order matters
// twice: table order breaks ties between platforms, and within a platform the
// most specific fragments come first.
type urlSignature struct {
	platform  Platform
	fragments []string
}

var urlSignatures = []urlSignature{
	{Greenhouse, []string{"boards.greenhouse.io", "job-boards.greenhouse.io", "greenhouse.io"}},
	{Lever, []string{"jobs.lever.co", "lever.co"}},
	{Workday, []string{"wd1.myworkdayjobs.com", "wd5.myworkdayjobs.com", "myworkdayjobs.com"}},
	{Taleo, []string{"tbe.taleo.net", "taleo.net"}},
	{ICIMS, []string{"careers.icims.com", "icims.com"}},
	{BambooHR, []string{"bamboohr.com"}},
	{Jobvite, []string{"jobvite.com"}},
	{SmartRecruiters, []string{"smartrecruiters.com"}},
}

// domSignature maps a platform to CSS selectors whose presence marks the
// platform's form structure. Probed only when the URL is inconclusive.
type domSignature struct {
	platform  Platform
	selectors []string
}

/// Ordered most-specific-first: Lever's "application-form" and "posting"
// classes are narrower than Greenhouse's bare "application" probe, which
// would otherwise shadow them.
var domSignatures = []domSignature{
	{Lever, []string{`div[class*="application-form"]`, `div[class*="posting"]`}},
	{Greenhouse, []string{`form[id*="greenhouse"]`, `div[id*="application"]`, `div[class*="application"]`}},
}

// Detector resolves the platform behind a page, URL first and DOM second.
type Detector struct {
	log *zap.Logger
}

// NewDetector creates a Detector. The logger may not be nil.
func NewDetector(logger *zap.Logger) *Detector {
	return &Detector{log: logger.Named("ats_detector")}
}

// DetectFromURL matches the page URL (case-insensitive) against the static
// domain table. First match wins.
func (d *Detector) DetectFromURL(pageURL string) Platform {
	lower := strings.ToLower(pageURL)
	for _, sig := range urlSignatures {
		for _, fragment := range sig.fragments {
			if strings.Contains(lower, fragment) {
				d.log.Debug("Detected platform from URL",
					zap.String("platform", string(sig.platform)),
					zap.String("fragment", fragment))
				return sig.platform
			}
		}
	}
	return Unknown
}

// DetectFromDOM probes the page HTML for platform-specific structural
// signatures. The first signature matching any element wins. Parse failures
// degrade to Unknown; they are never an error.
func (d *Detector) DetectFromDOM(pageHTML string) Platform {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		d.log.Warn("Failed to parse page HTML for DOM detection", zap.Error(err))
		return Unknown
	}
	for _, sig := range domSignatures {
		for _, selector := range sig.selectors {
			if doc.Find(selector).Length() > 0 {
				d.log.Debug("Detected platform from DOM",
					zap.String("platform", string(sig.platform)),
					zap.String("selector", selector))
				return sig.platform
			}
		}
	}
	return Unknown
}

// Detect identifies the platform behind pageURL, consulting the DOM accessor
// only when the URL alone is inconclusive. Callers must treat Unknown as "do
// not attempt automatic fill", not as an error.
func (d *Detector) Detect(pageURL string, dom func() (string, error)) Platform {
	if p := d.DetectFromURL(pageURL); p != Unknown {
		return p
	}
	if dom == nil {
		return Unknown
	}
	html, err := dom()
	if err != nil {
		d.log.Warn("Could not read page source for DOM detection", zap.Error(err))
		return Unknown
	}
	return d.DetectFromDOM(html)
}
