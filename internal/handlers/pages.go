package handlers

import (
	"bytes"
	"embed"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/Brownie44l1/pesticide-api/internal/branding"
	"github.com/Brownie44l1/pesticide-api/internal/classify"
	"github.com/Brownie44l1/pesticide-api/internal/imageproc"
	"github.com/Brownie44l1/pesticide-api/internal/pesticide"
)

//go:embed templates/*.html
var templatesFS embed.FS

const (
	PageWelcome        = "Welcome"
	PageClassification = "Classification"
)

const (
	msgUndecodable = "Could not read the uploaded image. Please upload a JPG or PNG file."
	msgNoImage     = "Please choose an image to upload."
	msgFailed      = "Prediction failed. Please try again."
	msgLowConf     = "Confidence is low. Please verify the prediction manually."
	msgBusy        = "Too many requests right now. Please wait a moment and try again."
)

type pages struct {
	welcome  *template.Template
	classify *template.Template
}

func parsePages() *pages {
	return &pages{
		welcome:  template.Must(template.ParseFS(templatesFS, "templates/layout.html", "templates/welcome.html")),
		classify: template.Must(template.ParseFS(templatesFS, "templates/layout.html", "templates/classify.html")),
	}
}

type navItem struct {
	Name   string
	Href   string
	Active bool
}

type resultView struct {
	Label         string
	Confidence    string
	LowConfidence bool
	Advisory      string
	Info          pesticide.Info
	ImageURI      template.URL
}

type pageData struct {
	Title     string
	Nav       []navItem
	Accept    string
	Error     string
	Result    *resultView
	Developer string
	LogoURI   template.URL
	LogoError string
}

func (h *Handler) newPageData(active, title string) pageData {
	return pageData{
		Title: title,
		Nav: []navItem{
			{Name: PageWelcome, Href: "/?page=" + PageWelcome, Active: active == PageWelcome},
			{Name: PageClassification, Href: "/?page=" + PageClassification, Active: active == PageClassification},
		},
		Accept:    imageproc.AcceptAttr,
		Developer: h.opts.DeveloperName,
	}
}

// Home selects a view from the sidebar choice. Anything unrecognised falls
// back to the welcome view.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("page") == PageClassification {
		h.ClassificationForm(w, r)
		return
	}
	h.Welcome(w, r)
}

// Welcome is static and never touches the classifier.
func (h *Handler) Welcome(w http.ResponseWriter, r *http.Request) {
	data := h.newPageData(PageWelcome, "Welcome to Pesticide Classification AI System")
	h.render(w, r, h.pages.welcome, http.StatusOK, data)
}

func (h *Handler) ClassificationForm(w http.ResponseWriter, r *http.Request) {
	data := h.newPageData(PageClassification, "Pesticide Classification & Detailed Information")
	h.render(w, r, h.pages.classify, http.StatusOK, data)
}

func (h *Handler) ClassificationSubmit(w http.ResponseWriter, r *http.Request) {
	data := h.newPageData(PageClassification, "Pesticide Classification & Detailed Information")

	raw, err := h.readUpload(w, r)
	if err != nil {
		data.Error = msgNoImage
		if !errors.Is(err, errNoImage) {
			data.Error = msgUndecodable
		}
		h.render(w, r, h.pages.classify, http.StatusBadRequest, data)
		return
	}

	outcome, err := h.classifier.Classify(r.Context(), raw)
	if err != nil {
		if errors.Is(err, imageproc.ErrUndecodable) {
			h.logger(r).Warn("Upload rejected", "error", err)
			data.Error = msgUndecodable
			h.render(w, r, h.pages.classify, http.StatusBadRequest, data)
			return
		}
		h.logger(r).Error("Prediction error", "error", err)
		data.Error = msgFailed
		h.render(w, r, h.pages.classify, http.StatusInternalServerError, data)
		return
	}

	data.Result = newResultView(outcome, raw)

	// The logo is decoration: failing to load it never hides the result.
	logo, err := branding.LoadLogo(h.opts.LogoPath)
	if err != nil {
		h.logger(r).Warn("Logo unavailable", "path", h.opts.LogoPath, "error", err)
		data.LogoError = branding.MissingLogoMessage
	} else {
		data.LogoURI = dataURI(logo.MimeType, logo.Data)
	}

	h.render(w, r, h.pages.classify, http.StatusOK, data)
}

// ClassificationThrottled re-renders the upload form when the rate limit
// is hit.
func (h *Handler) ClassificationThrottled(w http.ResponseWriter, r *http.Request) {
	data := h.newPageData(PageClassification, "Pesticide Classification & Detailed Information")
	data.Error = msgBusy
	h.render(w, r, h.pages.classify, http.StatusTooManyRequests, data)
}

func newResultView(o *classify.Outcome, raw []byte) *resultView {
	v := &resultView{
		Label:         strings.ToUpper(o.Label.String()),
		Confidence:    formatConfidence(o.Confidence),
		LowConfidence: o.LowConfidence,
		Info:          o.Info,
		ImageURI:      dataURI(o.MimeType, raw),
	}
	if o.LowConfidence {
		v.Advisory = msgLowConf
	}
	return v
}

func formatConfidence(c float32) string {
	return fmt.Sprintf("%.2f", c)
}

func dataURI(mimeType string, data []byte) template.URL {
	return template.URL("data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data))
}

// render buffers the page so a template error can still become a 500.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, t *template.Template, status int, data pageData) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		h.logger(r).Error("Template error", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
