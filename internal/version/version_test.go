package version

import (
	"testing"

	"github.com/fatih/color"
)

func TestColoredWithoutColorIsPlain(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	defer func() { color.NoColor = prev }()

	for _, v := range []string{"0.1.0-dev", "1.2.3", "weird"} {
		Version = v
		if got := Colored(); got != v {
			t.Fatalf("Colored() = %q, want %q", got, v)
		}
	}
	Version = "0.1.0-dev"
}
