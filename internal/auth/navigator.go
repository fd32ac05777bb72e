package auth

import "github.com/pkg/browser"

// Navigator performs the flow's full-page redirects by sending the user's
// browser to a URL. Injected so tests observe the URLs instead of opening
// anything.
type Navigator interface {
	OpenURL(url string) error
}

type browserNavigator struct{}

func (browserNavigator) OpenURL(url string) error {
	return browser.OpenURL(url)
}

// NewBrowserNavigator returns the Navigator that opens the system browser.
func NewBrowserNavigator() Navigator {
	return browserNavigator{}
}
