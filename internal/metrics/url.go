package metrics

import "net/url"

func parseURL(endpoint string) (*url.URL, error) {
	return url.Parse(endpoint)
}
