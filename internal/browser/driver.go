// Package browser abstracts the automation-capable browser the fill
// strategies drive. Any driver satisfying the capability set is
// substitutable; the chromedp implementation lives alongside.
package browser

import (
	"context"

	"github.com/davenull4x/applyforge/internal/fields"
)

// Field is one enumerated form control, addressable by Selector.
type Field struct {
	Selector string
	Meta     fields.Meta
}

// Driver is the minimal capability set the core needs from a browser.
type Driver interface {
	// Navigate loads url and waits for the page to settle.
	Navigate(ctx context.Context, url string) error
	// CurrentURL returns the URL of the active page.
	CurrentURL(ctx context.Context) (string, error)
	// PageSource returns the serialized HTML of the active page.
	PageSource(ctx context.Context) (string, error)
	// Fields enumerates the form controls matching the CSS selector,
	// collecting the DOM attributes the classifier needs.
	Fields(ctx context.Context, selector string) ([]Field, error)
	// Exists reports whether any element matches the CSS selector.
	Exists(ctx context.Context, selector string) (bool, error)
	// Click clicks the first element matching the selector.
	Click(ctx context.Context, selector string) error
	// Clear empties the value of the matching input element.
	Clear(ctx context.Context, selector string) error
	// SendKeys types text into the matching input element.
	SendKeys(ctx context.Context, selector, text string) error
	// SetFiles assigns local file paths to a file input element.
	SetFiles(ctx context.Context, selector string, paths []string) error
	// Evaluate runs a script in the page, unmarshaling the result into out
	// when out is non-nil.
	Evaluate(ctx context.Context, script string, out any) error
}
