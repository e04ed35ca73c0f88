package render

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/example/resumehub/internal/models"
)

// RegionID is the id of the printable resume region on a rendered page.
const RegionID = "profile-pdf-content"

//go:embed page.html.tmpl
var pageSource string

var pageTemplate = template.Must(template.New("page").Funcs(template.FuncMap{
	"imageURL":     imageURL,
	"trainingDate": trainingDate,
}).Parse(pageSource))

type pageData struct {
	RegionID string
	Resume   *models.Resume
	Avatar   string
	ThemeCSS template.CSS
}

// ResumePage renders resume as a standalone HTML page. themeCSS is placed in the
// page head so predefined theme classes resolve; avatar may be empty.
func ResumePage(resume *models.Resume, avatar, themeCSS string) (string, error) {
	if resume == nil {
		return "", fmt.Errorf("render resume page: nil resume")
	}
	var buf bytes.Buffer
	err := pageTemplate.Execute(&buf, pageData{
		RegionID: RegionID,
		Resume:   resume,
		Avatar:   avatar,
		ThemeCSS: template.CSS(themeCSS),
	})
	if err != nil {
		return "", fmt.Errorf("render resume page: %w", err)
	}
	return buf.String(), nil
}

// imageURL passes through image data URLs and http(s) links and drops anything else.
func imageURL(src string) template.URL {
	switch {
	case strings.HasPrefix(src, "data:image/"),
		strings.HasPrefix(src, "https://"),
		strings.HasPrefix(src, "http://"):
		return template.URL(src)
	}
	return ""
}

func trainingDate(t models.Training) string {
	if t.Date != "" {
		return t.Date
	}
	return t.StartDate
}
