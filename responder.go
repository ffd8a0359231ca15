package tokenauth

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-print"
)

// MediaKind is the coarse content negotiation outcome the failure responder
// branches on. Anything that is not browser-ish renders as JSON.
type MediaKind int

const (
	MediaJSON MediaKind = iota
	MediaHTML
	MediaPlain
	MediaImage
)

// NegotiateMedia resolves the request's Accept list. Entries are taken in
// order; the first recognized one wins. A wildcard type defaults to JSON; a
// wildcard subtype resolves to text/plain for text/* and JSON for
// application/*. An empty or unrecognized list is JSON.
func NegotiateMedia(accept string) MediaKind {
	for _, entry := range strings.Split(accept, ",") {
		media := strings.TrimSpace(entry)
		if i := strings.IndexByte(media, ';'); i >= 0 {
			media = strings.TrimSpace(media[:i])
		}
		if media == "" {
			continue
		}

		typ, subtype, ok := strings.Cut(strings.ToLower(media), "/")
		if !ok {
			continue
		}

		switch typ {
		case "*":
			return MediaJSON
		case "application":
			if subtype == "json" || subtype == "*" {
				return MediaJSON
			}
		case "text":
			switch subtype {
			case "html":
				return MediaHTML
			case "plain", "*":
				return MediaPlain
			}
		case "image":
			return MediaImage
		}
	}
	return MediaJSON
}

func (m MediaKind) browserish() bool {
	return m == MediaHTML || m == MediaPlain || m == MediaImage
}

// ErrorBody is the structured JSON failure payload. The HTTP status rides
// on the transport response only, never duplicated in the body.
type ErrorBody struct {
	ErrCode int    `json:"errCode"`
	ErrMsg  string `json:"errMsg"`
	Type    string `json:"type,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// ResponseWriter is the thin transport port each middleware adapter
// implements so the failure decision tree lives in exactly one place.
type ResponseWriter interface {
	SetHeader(key, value string)
	Redirect(url string, status int) error
	JSON(status int, body any) error
	Text(status int, body string) error
}

// Responder turns authentication/authorization failures into exactly one of
// three wire outcomes: a redirect, a Basic challenge, or a JSON error body.
// The outcomes are branches of one decision tree, never a fallback chain
// that could double-write the response.
type Responder struct {
	loginURL string
	realm    string
	logger   Logger
}

// NewResponder wires a responder from the login-url and realm config.
func NewResponder(cfg Config) *Responder {
	return &Responder{
		loginURL: cfg.GetLoginURL(),
		realm:    cfg.GetRealmName(),
		logger:   defLogger{},
	}
}

func (r *Responder) WithLogger(l Logger) *Responder {
	if l != nil {
		r.logger = l
	}
	return r
}

// RedirectStatus is used for login redirects so the original method
// survives the hop.
const RedirectStatus = 307

// Respond renders the failure. The accept parameter is the request's raw
// Accept header. Unclassified errors fail closed as 401; stack traces never
// reach the body.
func (r *Responder) Respond(w ResponseWriter, accept string, err error) error {
	ae := Classify(err)
	status := ae.Kind.Status()
	media := NegotiateMedia(accept)

	r.logger.Debug("rendering auth failure: %s", print.MaybePrettyJSON(map[string]any{
		"kind":   ae.Kind.TextCode(),
		"status": status,
		"media":  int(media),
	}))

	if status == 401 && media.browserish() {
		if r.loginURL != "" {
			return w.Redirect(r.loginURL, RedirectStatus)
		}
		if r.realm != "" {
			w.SetHeader("WWW-Authenticate", fmt.Sprintf("Basic realm=%q", r.realm))
			return w.Text(status, ae.Kind.Message())
		}
		// Neither login url nor realm configured: fall through to JSON.
	}

	return w.JSON(status, ErrorBody{
		ErrCode: ae.Kind.ErrCode(),
		ErrMsg:  ae.Kind.Message(),
		Type:    ae.MessageType,
		Data:    ae.Data,
	})
}
