// Package referrers turns referrer URLs into the traffic source names shown on the dashboard.
package referrers

import (
	"net/url"
	"strings"
)

// Direct labels visits that arrived without a usable referrer.
const Direct = "Direto"

// Common referrer hostnames mapped to friendly display names
var knownReferrers = map[string]string{
	// Search engines
	"google.com":     "Google",
	"google.com.br":  "Google",
	"google.pt":      "Google",
	"bing.com":       "Bing",
	"duckduckgo.com": "DuckDuckGo",
	"yahoo.com":      "Yahoo",
	"ecosia.org":     "Ecosia",

	// Social media
	"instagram.com":    "Instagram",
	"l.instagram.com":  "Instagram",
	"facebook.com":     "Facebook",
	"fb.com":           "Facebook",
	"l.facebook.com":   "Facebook",
	"lm.facebook.com":  "Facebook",
	"linkedin.com":     "LinkedIn",
	"lnkd.in":          "LinkedIn",
	"tiktok.com":       "TikTok",
	"pinterest.com":    "Pinterest",
	"br.pinterest.com": "Pinterest",
	"x.com":            "X/Twitter",
	"twitter.com":      "X/Twitter",
	"t.co":             "X/Twitter",
	"threads.net":      "Threads",
	"youtube.com":      "YouTube",
	"youtu.be":         "YouTube",
	"behance.net":      "Behance",
	"dribbble.com":     "Dribbble",

	// Messaging
	"whatsapp.com":     "WhatsApp",
	"web.whatsapp.com": "WhatsApp",
	"wa.me":            "WhatsApp",
	"t.me":             "Telegram",

	// Email providers (for newsletter clicks)
	"mail.google.com":    "Gmail",
	"outlook.live.com":   "Outlook",
	"outlook.office.com": "Outlook",

	// Link hubs and shorteners
	"linktr.ee": "Linktree",
	"bit.ly":    "Bitly",
}

// FriendlyName returns a human-friendly name for a referrer hostname.
// Unknown hostnames are returned without "www." and with the first letter capitalized.
func FriendlyName(hostname string) string {
	hostname = strings.ToLower(hostname)

	if name, ok := knownReferrers[hostname]; ok {
		return name
	}

	if strings.HasPrefix(hostname, "www.") {
		withoutWWW := hostname[4:]
		if name, ok := knownReferrers[withoutWWW]; ok {
			return name
		}
		hostname = withoutWWW
	}

	// Subdomain of a known referrer, e.g. m.facebook.com
	for domain, name := range knownReferrers {
		if strings.HasSuffix(hostname, "."+domain) {
			return name
		}
	}

	return capitalizeFirst(hostname)
}

// Source returns the source name for a stored referrer value.
// Empty or unparseable referrers count as Direct.
func Source(referrer string) string {
	referrer = strings.TrimSpace(referrer)
	if referrer == "" {
		return Direct
	}
	u, err := url.Parse(referrer)
	if err != nil || u.Hostname() == "" {
		return Direct
	}
	return FriendlyName(u.Hostname())
}

func capitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
