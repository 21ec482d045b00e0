package ref

import (
	"fmt"
	"strings"
)

// Button is one interactive control on an outbound message. Exactly one of
// Data (opaque callback payload), URL (navigation link), or WebApp
// (external-app link) may be set.
type Button struct {
	Text   string `json:"text"`
	Data   string `json:"data,omitempty"`
	URL    string `json:"url,omitempty"`
	WebApp string `json:"webApp,omitempty"`
}

// ValidateButton fails loudly on controls the host protocol would silently
// break: over-budget or newline-carrying payloads, or more than one link
// semantic on a single control.
func ValidateButton(b Button) error {
	if b.Text == "" {
		return fmt.Errorf("button has no label")
	}
	semantics := 0
	if b.Data != "" {
		semantics++
	}
	if b.URL != "" {
		semantics++
	}
	if b.WebApp != "" {
		semantics++
	}
	if semantics != 1 {
		return fmt.Errorf("button %q must carry exactly one of data/url/webApp, has %d", b.Text, semantics)
	}
	if b.Data != "" {
		if n := len(b.Data); n > ControlDataLimit {
			return fmt.Errorf("button %q callback data is %d bytes, limit %d", b.Text, n, ControlDataLimit)
		}
		if strings.ContainsAny(b.Data, "\n\r") {
			return fmt.Errorf("button %q callback data contains a newline", b.Text)
		}
	}
	return nil
}

// ValidateKeyboard validates every control in a keyboard layout.
func ValidateKeyboard(rows [][]Button) error {
	for _, row := range rows {
		for _, b := range row {
			if err := ValidateButton(b); err != nil {
				return err
			}
		}
	}
	return nil
}
