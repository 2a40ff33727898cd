package referrers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFriendlyName(t *testing.T) {
	tests := []struct {
		hostname string
		expected string
	}{
		// Known referrers
		{"google.com.br", "Google"},
		{"instagram.com", "Instagram"},
		{"l.instagram.com", "Instagram"},
		{"wa.me", "WhatsApp"},
		{"linktr.ee", "Linktree"},

		// With www prefix
		{"www.google.com", "Google"},
		{"www.linkedin.com", "LinkedIn"},

		// Subdomains of known referrers
		{"m.facebook.com", "Facebook"},
		{"mobile.twitter.com", "X/Twitter"},

		// Unknown referrers (capitalized)
		{"example.com", "Example.com"},
		{"www.agenciaparceira.com.br", "Agenciaparceira.com.br"},

		// Case insensitive
		{"GOOGLE.COM", "Google"},
		{"Www.Instagram.Com", "Instagram"},
	}

	for _, tt := range tests {
		t.Run(tt.hostname, func(t *testing.T) {
			assert.Equal(t, tt.expected, FriendlyName(tt.hostname))
		})
	}
}

func TestSource(t *testing.T) {
	tests := []struct {
		referrer string
		expected string
	}{
		{"", Direct},
		{"   ", Direct},
		{"not a url", Direct},
		{"android-app://com.google.android.gm/", "Com.google.android.gm"},
		{"https://www.google.com.br/search?q=agencia", "Google"},
		{"https://l.instagram.com/?u=https%3A%2F%2Fvitrine.example", "Instagram"},
		{"http://blog.example.com:8080/post", "Blog.example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.referrer, func(t *testing.T) {
			assert.Equal(t, tt.expected, Source(tt.referrer))
		})
	}
}
