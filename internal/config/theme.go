package config

// Theme class names applied to the html element; the stylesheet keys its
// variables off these.
const (
	LightTheme string = "light-theme"
	DarkTheme  string = "dark-theme"

	LightThemeIcon string = `<i class="fas fa-sun"></i>`
	DarkThemeIcon  string = `<i class="fas fa-moon"></i>`

	DefaultTheme string = DarkTheme
)
