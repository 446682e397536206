package email

import (
	"bytes"
	"html/template"
	"strings"
)

var notificationTemplate = template.Must(template.New("notification").Parse(`<!doctype html>
<html><body style="font-family:sans-serif;color:#1b1b1b">
<h2 style="margin:0 0 12px">{{.Title}}</h2>
{{if .Body}}<p>{{.Body}}</p>{{end}}
{{if .URL}}<p><a href="{{.URL}}">Open in Whistle Connect</a></p>{{end}}
<p style="color:#777;font-size:12px">You are receiving this because you have a Whistle Connect account.</p>
</body></html>`))

// NotificationHTML renders the HTML body for a notification email.
// link is joined to baseURL when it is a relative path.
func NotificationHTML(title, body, link, baseURL string) (string, error) {
	url := link
	if strings.HasPrefix(link, "/") && baseURL != "" {
		url = strings.TrimRight(baseURL, "/") + link
	}
	var buf bytes.Buffer
	err := notificationTemplate.Execute(&buf, struct {
		Title, Body, URL string
	}{title, body, url})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
