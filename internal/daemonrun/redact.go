package daemonrun

import "net/url"

// redactDSN hides the password of URL-style DSNs before logging them.
func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	return u.Redacted()
}
