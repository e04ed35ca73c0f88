package export

import (
	"fmt"
	"strings"

	"github.com/example/resumehub/internal/models"
)

// CustomStyleID is the id of the injected custom theme style block. Only one exists at a time.
const CustomStyleID = "pdf-custom-style"

const fallbackPrimary = "#000000"

func backgroundDecl(bg string) string {
	switch bg {
	case models.BackgroundWarm:
		return "background: #fdfbf7 !important;"
	case models.BackgroundGradient:
		return "background: linear-gradient(135deg, #f5f7fa 0%, #c3cfe2 100%) !important;"
	default:
		return "background: #ffffff !important;"
	}
}

func fontDecl(font string) string {
	switch font {
	case models.FontSerif:
		return "font-family: 'Georgia', 'Times New Roman', serif !important;"
	case models.FontMono, models.FontMonospace:
		return "font-family: 'Courier New', monospace !important;"
	default:
		return "font-family: 'Segoe UI', Roboto, sans-serif !important;"
	}
}

func headerRules(s, layout, primary string) string {
	switch layout {
	case models.HeaderBanner:
		return fmt.Sprintf(`%[1]s {
  padding: 0 100px 100px 100px !important;
  border: none;
}
%[1]s header {
  background: %[2]s !important;
  color: white !important;
  margin-left: -100px !important;
  margin-right: -100px !important;
  padding: 80px 100px !important;
  margin-bottom: 50px;
}
%[1]s header h1, %[1]s header p, %[1]s header i {
  color: white !important;
}
`, s, primary)
	case models.HeaderLeftBar:
		return fmt.Sprintf(`%[1]s {
  border-left: 20px solid %[2]s !important;
  padding: 60px 100px 60px 100px !important;
}
%[1]s header {
  border-bottom: 2px solid %[2]s !important;
  padding-bottom: 30px;
  margin-bottom: 40px;
}
`, s, primary)
	default:
		return fmt.Sprintf(`%[1]s {
  padding: 80px 100px !important;
  border: none;
}
%[1]s header {
  border-bottom: 1px solid #ccc;
  padding-bottom: 30px;
  margin-bottom: 40px;
}
`, s)
	}
}

// GenerateCustomCSS returns the stylesheet for settings with every rule scoped
// under the class scopeClass. The output depends only on its arguments.
func GenerateCustomCSS(settings models.ThemeSettings, scopeClass string) string {
	s := "." + scopeClass
	primary := settings.PrimaryColor
	if primary == "" {
		primary = fallbackPrimary
	}
	banner := settings.HeaderStyle == models.HeaderBanner
	sectionHeading, heading := primary, primary
	if banner {
		sectionHeading, heading = "#444", "#333"
	}

	var b strings.Builder
	fmt.Fprintf(&b, `%[1]s {
  %[2]s
  %[3]s
  color: #333 !important;
  font-size: 0.9rem !important;
  line-height: 1.7;
}
%[1]s .row {
  margin-left: 0 !important;
  margin-right: 0 !important;
  padding: 0 !important;
  width: 100%% !important;
}
%[1]s .col-md-8, %[1]s .col-md-4, %[1]s .col-12 {
  padding-left: 15px !important;
  padding-right: 15px !important;
}
%[1]s section {
  margin-bottom: 35px !important;
}
%[1]s h1.display-4, %[1]s h1 {
  font-size: 2.4rem !important;
  font-weight: 800 !important;
  letter-spacing: -0.5px;
}
%[1]s p.lead {
  font-size: 1.2rem !important;
  font-weight: 500;
}
%[1]s h4 {
  font-size: 1.15rem !important;
  font-weight: 700 !important;
  text-transform: uppercase;
  letter-spacing: 1px;
  margin-top: 1.5rem;
  margin-bottom: 1.5rem;
  color: %[4]s !important;
  border-bottom: 1px solid #eee;
  padding-bottom: 10px;
}
%[1]s h1, %[1]s h5, %[1]s h6 {
  color: %[5]s !important;
}
%[1]s .badge {
  background-color: %[6]s !important;
  color: white !important;
  padding: 0.5em 0.8em;
}
`, s, backgroundDecl(settings.BackgroundColor), fontDecl(settings.FontFamily), sectionHeading, heading, primary)
	b.WriteString(headerRules(s, settings.HeaderStyle, primary))
	return b.String()
}
