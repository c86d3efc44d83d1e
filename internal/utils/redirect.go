package utils

import (
	"net/url"
	"strings"
)

// neutralOrigin is a fixed origin used only to resolve candidate paths; a
// candidate that resolves anywhere else is not same-origin.
const neutralOrigin = "http://rtlab.invalid"

// SanitizeReturnPath reduces an arbitrary candidate return path to a safe
// same-origin path+query+fragment, or "/" when the candidate is empty,
// absolute, protocol-relative ("//..."), carries raw CR/LF, or does not
// resolve back to the neutral origin. Guards the `next` query parameter
// against open redirects and response splitting. Idempotent.
func SanitizeReturnPath(candidate string) string {
	if candidate == "" {
		return "/"
	}
	if strings.ContainsAny(candidate, "\r\n") {
		return "/"
	}
	if !strings.HasPrefix(candidate, "/") || strings.HasPrefix(candidate, "//") {
		return "/"
	}

	base, err := url.Parse(neutralOrigin)
	if err != nil {
		return "/"
	}
	resolved, err := base.Parse(candidate)
	if err != nil {
		return "/"
	}
	if resolved.Scheme != base.Scheme || resolved.Host != base.Host {
		return "/"
	}

	out := resolved.EscapedPath()
	if !strings.HasPrefix(out, "/") || strings.HasPrefix(out, "//") {
		return "/"
	}
	if resolved.RawQuery != "" {
		out += "?" + resolved.RawQuery
	}
	if resolved.Fragment != "" {
		out += "#" + resolved.EscapedFragment()
	}
	return out
}
