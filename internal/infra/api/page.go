package api

import (
	"html/template"
	"net/http"
	"time"

	"medcontent-subscription/internal/infra/i18n"
)

type resultPage struct {
	OK     bool
	Msg    string
	RefID  string
	Until  *time.Time
	AppURL string

	Lang     string
	Dir      string
	Title    string
	RefLine  string
	UntilLn  string
	BackText string
}

var page = template.Must(template.New("cb").Parse(`<!doctype html>
<html lang="{{.Lang}}" dir="{{.Dir}}">
<head>
<meta charset="utf-8" />
<meta name="viewport" content="width=device-width,initial-scale=1" />
<title>{{.Title}}</title>
<style>
body{font-family:system-ui,Arial,sans-serif;margin:2rem;}
.card{max-width:560px;border:1px solid #ddd;border-radius:12px;padding:24px;}
.ok{color:#057a55} .fail{color:#b00020}
.btn{display:inline-block;margin-top:16px;padding:10px 16px;border-radius:8px;border:1px solid #888;text-decoration:none}
.small{font-size:12px;color:#666}
</style>
</head>
<body>
<div class="card">
  <h2 class="{{if .OK}}ok{{else}}fail{{end}}">{{.Title}}</h2>
  <p>{{.Msg}}</p>
  {{if .RefLine}}<p class="small">{{.RefLine}}</p>{{end}}
  {{if .UntilLn}}<p class="small">{{.UntilLn}}</p>{{end}}
  {{if .AppURL}}<a class="btn" href="{{.AppURL}}">{{.BackText}}</a>{{end}}
</div>
</body>
</html>`))

func (s *Server) translator(r *http.Request) *i18n.Translator {
	return s.catalog.Match(r.Header.Get("Accept-Language"))
}

func (s *Server) renderResult(w http.ResponseWriter, tr *i18n.Translator, code int, p resultPage) {
	p.AppURL = s.opts.AppURL
	p.Lang = tr.Lang()
	p.Dir = "ltr"
	if p.Lang == "fa" {
		p.Dir = "rtl"
	}
	p.Title = tr.T("callback.title_fail")
	if p.OK {
		p.Title = tr.T("callback.title_ok")
	}
	if p.RefID != "" {
		p.RefLine = tr.T("callback.reference", p.RefID)
	}
	if p.Until != nil {
		p.UntilLn = tr.T("callback.until", p.Until.Format("2006-01-02"))
	}
	p.BackText = tr.T("callback.back")
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	_ = page.Execute(w, p)
}
