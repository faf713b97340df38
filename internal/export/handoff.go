// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/atotto/clipboard"
)

// =============================================================================
// MAIL COMPOSER
// =============================================================================

// MailtoURI builds a mailto URI with no recipient so the user picks one in
// their mail client.
func MailtoURI(subject, body string) string {
	return "mailto:?subject=" + encodeURIComponent(subject) + "&body=" + encodeURIComponent(body)
}

// encodeURIComponent escapes everything except the unreserved characters
// A-Z a-z 0-9 - _ . ! ~ * ' ( ), byte by byte over the UTF-8 encoding.
func encodeURIComponent(s string) string {
	const hex = "0123456789ABCDEF"
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isURIUnreserved(c) {
			sb.WriteByte(c)
			continue
		}
		sb.WriteByte('%')
		sb.WriteByte(hex[c>>4])
		sb.WriteByte(hex[c&0x0F])
	}
	return sb.String()
}

func isURIUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", c) >= 0
}

// =============================================================================
// PLATFORM OPENER
// =============================================================================

// startCommand launches a detached process. Replaced in tests.
var startCommand = func(name string, args ...string) error {
	return exec.Command(name, args...).Start()
}

// OpenURI hands uri (a mailto: URI, URL or file path) to the platform's
// default handler. It does not wait for the handler to exit.
func OpenURI(uri string) error {
	switch runtime.GOOS {
	case "windows":
		// "cmd /c start" mangles '&' in URIs
		return startCommand("rundll32", "url.dll,FileProtocolHandler", uri)
	case "darwin":
		return startCommand("open", uri)
	case "linux", "freebsd", "openbsd", "netbsd":
		return startCommand("xdg-open", uri)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
}

// =============================================================================
// CLIPBOARD
// =============================================================================

// ErrClipboardUnavailable is returned when no clipboard utility is present
// (for example xclip or xsel on Linux).
var ErrClipboardUnavailable = fmt.Errorf("clipboard not available on this system")

// CopyToClipboard places text on the system clipboard.
func CopyToClipboard(text string) error {
	if clipboard.Unsupported {
		return ErrClipboardUnavailable
	}
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	return nil
}
