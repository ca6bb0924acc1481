// Package identity supplies the author name and color stamped on new events.
package identity

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"
)

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

type Author struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// ValidColor reports whether c is an RGB hex color like "#1a2b3c".
func ValidColor(c string) bool {
	return colorPattern.MatchString(c)
}

// Random returns the anonymous author a first-time visitor gets.
func Random() Author {
	return Author{
		Name:  fmt.Sprintf("User %d", rand.Intn(1000)),
		Color: fmt.Sprintf("#%06x", rand.Intn(0x1000000)),
	}
}

// Resolve fills the parts of an author the caller did not supply.
func Resolve(name, color string) Author {
	fallback := Random()
	a := Author{Name: strings.TrimSpace(name), Color: strings.ToLower(color)}
	if a.Name == "" {
		a.Name = fallback.Name
	}
	if a.Color == "" {
		a.Color = fallback.Color
	}
	return a
}
