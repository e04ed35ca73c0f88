package models

// Background treatments for a custom export theme.
const (
	BackgroundWhite    = "white"
	BackgroundWarm     = "warm"
	BackgroundGradient = "gradient"
)

// Font families for a custom export theme. "monospace" is accepted as an alias of "mono".
const (
	FontSans      = "sans"
	FontSerif     = "serif"
	FontMono      = "mono"
	FontMonospace = "monospace"
)

// Header layouts for a custom export theme.
const (
	HeaderBanner  = "banner"
	HeaderLeftBar = "left-bar"
	HeaderClean   = "clean"
)

// ThemeSettings describes a user-composed export theme.
type ThemeSettings struct {
	PrimaryColor    string `json:"primaryColor" validate:"omitempty,hexcolor"`
	BackgroundColor string `json:"backgroundColor" validate:"omitempty,oneof=white warm gradient"`
	FontFamily      string `json:"fontFamily" validate:"omitempty,oneof=sans serif mono monospace"`
	HeaderStyle     string `json:"headerStyle" validate:"omitempty,oneof=banner left-bar clean"`
}

// DefaultThemeSettings mirrors the initial state of the theme designer.
func DefaultThemeSettings() ThemeSettings {
	return ThemeSettings{
		PrimaryColor:    "#007bff",
		BackgroundColor: BackgroundWhite,
		FontFamily:      FontSans,
		HeaderStyle:     HeaderBanner,
	}
}
